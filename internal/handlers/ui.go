package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
)

const apiVersion = "1.0.0"

func Home() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Furniture Shop Inventory API",
			"version": apiVersion,
			"endpoints": gin.H{
				"auth":       "/api/auth",
				"products":   "/api/products",
				"barcode":    "/api/barcode",
				"scan":       "/api/scan",
				"categories": "/api/categories",
				"health":     "/health",
			},
		})
	}
}

func Health(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "status": "degraded", "database": "unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "status": "ok", "database": "connected", "time": time.Now().UTC()})
	}
}

func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "API endpoint not found"})
	}
}
