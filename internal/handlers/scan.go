package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"furniture-inventory/internal/inventory"
	"furniture-inventory/internal/middleware"
)

type ScanRequest struct {
	Barcode   string `json:"barcode" binding:"required"`
	Action    string `json:"action" binding:"required"`
	Quantity  *int   `json:"quantity" binding:"omitempty,min=1"`
	ScannerID string `json:"scannerId"`
	Notes     string `json:"notes"`
}

/*
POST /api/scan
- action "sale" takes stock, "add"/"restock" puts it back
- quantity defaults to 1
*/
func ScanProduct(engine *inventory.StockEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/scan"
		defer handlePanic(c, route)

		var req ScanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		quantity := 1
		if req.Quantity != nil {
			quantity = *req.Quantity
		}

		adj := inventory.StockAdjustment{
			Barcode:   req.Barcode,
			Action:    req.Action,
			Quantity:  quantity,
			ScannerID: strings.TrimSpace(req.ScannerID),
			Notes:     strings.TrimSpace(req.Notes),
		}
		if userID, ok := middleware.CurrentUserID(c); ok {
			adj.UserID = userID.Hex()
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		res, err := engine.Adjust(ctx, adj)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Scan recorded successfully",
			"product": gin.H{
				"name":     res.Product.Name,
				"barcode":  res.Product.Barcode,
				"stock":    res.Product.Stock,
				"lowStock": res.Product.IsLowStock(),
			},
			"scanned": gin.H{
				"scannerId": adj.ScannerID,
				"quantity":  res.Quantity,
				"action":    res.Action,
				"notes":     adj.Notes,
				"time":      res.ScannedAt,
			},
		})
	}
}

func GetScanHistory(engine *inventory.StockEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/scan/history"
		defer handlePanic(c, route)

		var limit int64
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || parsed < 1 {
				respondWithError(c, http.StatusBadRequest, route, "limit must be a positive integer")
				return
			}
			limit = parsed
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		movements, err := engine.History(ctx, c.Query("barcode"), limit)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "count": len(movements), "movements": movements})
	}
}
