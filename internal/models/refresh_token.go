package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RefreshToken is stored by hash only; the plain token is handed to the
// client once and never persisted.
type RefreshToken struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty"`
	UserID     primitive.ObjectID  `bson:"userId"`
	TokenHash  string              `bson:"tokenHash"`
	ExpiresAt  time.Time           `bson:"expiresAt"`
	Revoked    bool                `bson:"revoked"`
	RevokedAt  *time.Time          `bson:"revokedAt,omitempty"`
	ReplacedBy *primitive.ObjectID `bson:"replacedBy,omitempty"`
	CreatedAt  time.Time           `bson:"createdAt"`
}

func (t RefreshToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
