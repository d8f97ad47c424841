package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	ContextClaims = "claims"
	ContextUserID = "userId"
	ContextRole   = "role"
	ContextEmail  = "email"
)

// AuthGuard accepts HS256 bearer tokens signed with secret. When roles are
// given, the token's role claim must be one of them.
func AuthGuard(secret string, allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("Authorization"))
		if raw == "" {
			abortAuth(c, http.StatusUnauthorized, "missing token")
			return
		}

		parts := strings.Split(raw, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortAuth(c, http.StatusUnauthorized, "invalid token")
			return
		}

		token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
		if err != nil || !token.Valid {
			zap.L().Debug("token validation failed", zap.Error(err))
			abortAuth(c, http.StatusUnauthorized, "unauthorized")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abortAuth(c, http.StatusUnauthorized, "unauthorized")
			return
		}

		subject, _ := claims.GetSubject()
		userID, err := primitive.ObjectIDFromHex(subject)
		if err != nil {
			abortAuth(c, http.StatusUnauthorized, "unauthorized")
			return
		}

		role, _ := claims["role"].(string)
		if len(allowedRoles) > 0 && !hasRole(role, allowedRoles) {
			abortAuth(c, http.StatusForbidden, "forbidden")
			return
		}

		email, _ := claims["email"].(string)

		c.Set(ContextClaims, claims)
		c.Set(ContextUserID, userID)
		c.Set(ContextRole, role)
		c.Set(ContextEmail, email)
		c.Next()
	}
}

func AdminOnly(secret string) gin.HandlerFunc {
	return AuthGuard(secret, "admin")
}

func hasRole(role string, allowed []string) bool {
	for _, r := range allowed {
		if role == r {
			return true
		}
	}
	return false
}

func abortAuth(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": message})
}
