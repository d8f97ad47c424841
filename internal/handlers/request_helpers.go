package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"furniture-inventory/internal/database"
	"furniture-inventory/internal/inventory"
)

const requestTimeout = 5 * time.Second

func handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		zap.L().Error("panic recovered", zap.String("route", route), zap.Any("panic", r), zap.Stack("stack"))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal server error"})
	}
}

func ensureDBConnection(ctx context.Context, db *mongo.Database) error {
	return database.Ping(ctx, db, 2*time.Second)
}

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

func respondWithError(c *gin.Context, status int, route string, message string) {
	zap.L().Warn("request failed", zap.String("route", route), zap.Int("status", status), zap.String("error", message))
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": message})
}

// respondServiceError maps inventory error kinds onto HTTP statuses.
func respondServiceError(c *gin.Context, route string, err error) {
	var (
		insufficient inventory.InsufficientStockError
		duplicate    inventory.DuplicateError
	)

	switch {
	case errors.As(err, &insufficient):
		zap.L().Info("sale rejected", zap.String("route", route), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"success":   false,
			"error":     "Not enough stock",
			"available": insufficient.Available,
			"requested": insufficient.Requested,
		})
	case errors.Is(err, inventory.ErrTransientConflict):
		zap.L().Warn("code allocation conflict", zap.String("route", route), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"success":   false,
			"error":     "product code conflict, please retry",
			"retryable": true,
		})
	case errors.As(err, &duplicate):
		respondWithError(c, http.StatusConflict, route, duplicate.Error())
	case errors.Is(err, inventory.ErrNotFound):
		respondWithError(c, http.StatusNotFound, route, "not found")
	case errors.Is(err, inventory.ErrValidation):
		respondWithError(c, http.StatusBadRequest, route, validationMessage(err))
	case errors.Is(err, context.DeadlineExceeded):
		respondWithError(c, http.StatusServiceUnavailable, route, "database timeout")
	default:
		zap.L().Error("unexpected error", zap.String("route", route), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": "db error"})
	}
}

func validationMessage(err error) string {
	return strings.TrimPrefix(err.Error(), inventory.ErrValidation.Error()+": ")
}

func respondValidationError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			field := lowerCamel(fieldError.Field())
			switch fieldError.Tag() {
			case "required":
				details = append(details, fmt.Sprintf("%s is required", field))
			case "min", "gte":
				details = append(details, fmt.Sprintf("%s must be at least %s", field, fieldError.Param()))
			case "oneof":
				details = append(details, fmt.Sprintf("%s must be one of: %s", field, fieldError.Param()))
			case "email":
				details = append(details, fmt.Sprintf("%s must be a valid email", field))
			default:
				details = append(details, fmt.Sprintf("%s is invalid", field))
			}
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "validation failed",
			"details": details,
		})
		return
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid body", "details": err.Error()})
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
