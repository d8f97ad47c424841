package handlers

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"furniture-inventory/internal/database"
	"furniture-inventory/internal/middleware"
	"furniture-inventory/internal/models"
)

// TokenSettings configures token issuance for the auth handlers.
type TokenSettings struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Phone    string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type UserResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Phone string `json:"phone,omitempty"`
}

func userResponse(u models.User) UserResponse {
	return UserResponse{ID: u.ID.Hex(), Name: u.Name, Email: u.Email, Role: u.Role, Phone: u.Phone}
}

type issuedTokens struct {
	AccessToken    string
	RefreshToken   string
	RefreshTokenID primitive.ObjectID
	ExpiresIn      int64
}

func tokenBody(user models.User, tokens *issuedTokens) gin.H {
	return gin.H{
		"success":      true,
		"token":        tokens.AccessToken,
		"accessToken":  tokens.AccessToken,
		"refreshToken": tokens.RefreshToken,
		"expiresIn":    tokens.ExpiresIn,
		"user":         userResponse(user),
	}
}

/*
POST /api/auth/register
- the first account becomes admin, later ones are staff
*/
func Register(db *mongo.Database, settings TokenSettings) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/auth/register"
		defer handlePanic(c, route)

		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))
		name := strings.TrimSpace(req.Name)
		if name == "" || strings.TrimSpace(req.Password) == "" {
			respondWithError(c, http.StatusBadRequest, route, "name, email and password are required")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		users := db.Collection(database.UsersCollection)
		count, err := users.CountDocuments(ctx, bson.M{})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		role := models.RoleStaff
		if count == 0 {
			role = models.RoleAdmin
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			zap.L().Error("password hash failed", zap.String("route", route), zap.Error(err))
			respondWithError(c, http.StatusInternalServerError, route, "password hash failed")
			return
		}

		now := time.Now().UTC()
		user := models.User{
			Name:         name,
			Email:        email,
			PasswordHash: string(hash),
			Phone:        strings.TrimSpace(req.Phone),
			Role:         role,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		res, err := users.InsertOne(ctx, user)
		if mongo.IsDuplicateKeyError(err) {
			respondWithError(c, http.StatusConflict, route, "User already exists")
			return
		}
		if err != nil {
			zap.L().Error("user insert failed", zap.String("route", route), zap.Error(err))
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		user.ID, _ = res.InsertedID.(primitive.ObjectID)

		tokens, err := issueTokens(ctx, db, user, settings)
		if err != nil {
			zap.L().Error("token generation failed", zap.String("route", route), zap.Error(err))
			respondWithError(c, http.StatusInternalServerError, route, "token generation failed")
			return
		}

		zap.L().Info("user registered", zap.String("email", email), zap.String("role", role))
		c.JSON(http.StatusCreated, tokenBody(user, tokens))
	}
}

func Login(db *mongo.Database, settings TokenSettings) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/auth/login"
		defer handlePanic(c, route)

		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))

		ctx, cancel := requestContext(c)
		defer cancel()

		var user models.User
		err := db.Collection(database.UsersCollection).FindOne(ctx, bson.M{"email": email}).Decode(&user)
		if errors.Is(err, mongo.ErrNoDocuments) {
			respondWithError(c, http.StatusUnauthorized, route, "Invalid credentials")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
			respondWithError(c, http.StatusUnauthorized, route, "Invalid credentials")
			return
		}

		tokens, err := issueTokens(ctx, db, user, settings)
		if err != nil {
			zap.L().Error("token generation failed", zap.String("route", route), zap.Error(err))
			respondWithError(c, http.StatusInternalServerError, route, "token generation failed")
			return
		}

		zap.L().Info("user login succeeded", zap.String("email", user.Email))
		c.JSON(http.StatusOK, tokenBody(user, tokens))
	}
}

/*
POST /api/auth/refresh
  - rotates the refresh token; presenting a rotated token again revokes
    every token of the user
*/
func Refresh(db *mongo.Database, settings TokenSettings) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/auth/refresh"
		defer handlePanic(c, route)

		var req RefreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		plain := strings.TrimSpace(req.RefreshToken)
		if plain == "" {
			respondWithError(c, http.StatusBadRequest, route, "refreshToken is required")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		tokensCol := db.Collection(database.RefreshTokensCollection)
		var token models.RefreshToken
		if err := tokensCol.FindOne(ctx, bson.M{"tokenHash": hashToken(plain)}).Decode(&token); err != nil {
			respondWithError(c, http.StatusUnauthorized, route, "invalid refresh token")
			return
		}

		now := time.Now().UTC()
		if token.Revoked {
			zap.L().Warn("revoked refresh token reused", zap.String("userId", token.UserID.Hex()))
			_, _ = revokeAllTokens(ctx, db, token.UserID, now)
			respondWithError(c, http.StatusUnauthorized, route, "invalid refresh token")
			return
		}
		if token.Expired(now) {
			_, _ = tokensCol.UpdateByID(ctx, token.ID, bson.M{"$set": bson.M{"revoked": true, "revokedAt": now}})
			respondWithError(c, http.StatusUnauthorized, route, "refresh token expired")
			return
		}

		var user models.User
		if err := db.Collection(database.UsersCollection).FindOne(ctx, bson.M{"_id": token.UserID}).Decode(&user); err != nil {
			respondWithError(c, http.StatusUnauthorized, route, "user not found")
			return
		}

		newTokens, err := issueTokens(ctx, db, user, settings)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "token generation failed")
			return
		}

		_, _ = tokensCol.UpdateByID(ctx, token.ID, bson.M{
			"$set": bson.M{
				"revoked":    true,
				"revokedAt":  now,
				"replacedBy": newTokens.RefreshTokenID,
			},
		})

		c.JSON(http.StatusOK, tokenBody(user, newTokens))
	}
}

func GetMe(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/auth/me"
		defer handlePanic(c, route)

		userID, ok := middleware.CurrentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		var user models.User
		err := db.Collection(database.UsersCollection).FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
		if errors.Is(err, mongo.ErrNoDocuments) {
			respondWithError(c, http.StatusNotFound, route, "user not found")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "user": userResponse(user)})
	}
}

func Logout(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/auth/logout"
		defer handlePanic(c, route)

		userID, ok := middleware.CurrentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req RefreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		res, err := db.Collection(database.RefreshTokensCollection).UpdateOne(ctx, bson.M{
			"tokenHash": hashToken(strings.TrimSpace(req.RefreshToken)),
			"userId":    userID,
			"revoked":   false,
		}, bson.M{"$set": bson.M{"revoked": true, "revokedAt": time.Now().UTC()}})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if res.MatchedCount == 0 {
			respondWithError(c, http.StatusUnauthorized, route, "invalid refresh token")
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out successfully"})
	}
}

func LogoutAll(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/auth/logout-all"
		defer handlePanic(c, route)

		userID, ok := middleware.CurrentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		revoked, err := revokeAllTokens(ctx, db, userID, time.Now().UTC())
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Logged out from all devices",
			"revoked": revoked,
		})
	}
}

func revokeAllTokens(ctx context.Context, db *mongo.Database, userID primitive.ObjectID, now time.Time) (int64, error) {
	res, err := db.Collection(database.RefreshTokensCollection).UpdateMany(ctx,
		bson.M{"userId": userID, "revoked": false},
		bson.M{"$set": bson.M{"revoked": true, "revokedAt": now}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// IssueAccessToken signs the HS256 access token AuthGuard accepts.
func IssueAccessToken(user models.User, secret string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":   user.ID.Hex(),
		"role":  user.Role,
		"email": user.Email,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func issueTokens(ctx context.Context, db *mongo.Database, user models.User, settings TokenSettings) (*issuedTokens, error) {
	accessToken, err := IssueAccessToken(user, settings.Secret, settings.AccessTTL)
	if err != nil {
		return nil, err
	}

	plainRefresh, err := generateRefreshString()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	refresh := models.RefreshToken{
		UserID:    user.ID,
		TokenHash: hashToken(plainRefresh),
		ExpiresAt: now.Add(settings.RefreshTTL),
		CreatedAt: now,
	}

	res, err := db.Collection(database.RefreshTokensCollection).InsertOne(ctx, refresh)
	if err != nil {
		return nil, err
	}

	refreshID, _ := res.InsertedID.(primitive.ObjectID)
	return &issuedTokens{
		AccessToken:    accessToken,
		RefreshToken:   plainRefresh,
		RefreshTokenID: refreshID,
		ExpiresIn:      int64(settings.AccessTTL.Seconds()),
	}, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func generateRefreshString() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
