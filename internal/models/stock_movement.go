package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	StockActionSale    = "sale"
	StockActionRestock = "restock"
)

// StockMovement records one applied scan adjustment.
type StockMovement struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProductID   primitive.ObjectID `bson:"productId" json:"productId"`
	Barcode     string             `bson:"barcode" json:"barcode"`
	Action      string             `bson:"action" json:"action"`
	Quantity    int                `bson:"quantity" json:"quantity"`
	StockBefore int                `bson:"stockBefore" json:"stockBefore"`
	StockAfter  int                `bson:"stockAfter" json:"stockAfter"`
	ScannerID   string             `bson:"scannerId,omitempty" json:"scannerId,omitempty"`
	Notes       string             `bson:"notes,omitempty" json:"notes,omitempty"`
	UserID      string             `bson:"userId,omitempty" json:"userId,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}
