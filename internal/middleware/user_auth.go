package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CurrentUserID returns the user id AuthGuard stored on the context.
func CurrentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	value, exists := c.Get(ContextUserID)
	if !exists {
		return primitive.NilObjectID, false
	}
	id, ok := value.(primitive.ObjectID)
	return id, ok && !id.IsZero()
}

func CurrentRole(c *gin.Context) string {
	return c.GetString(ContextRole)
}

// RequireRole is for routes already behind AuthGuard that need a narrower
// role than the rest of their group.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUserID(c); !ok {
			abortAuth(c, http.StatusUnauthorized, "unauthorized")
			return
		}
		if !hasRole(CurrentRole(c), roles) {
			abortAuth(c, http.StatusForbidden, "admin privileges required")
			return
		}
		c.Next()
	}
}
