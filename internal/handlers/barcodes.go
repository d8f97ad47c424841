package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"furniture-inventory/internal/barcode"
	"furniture-inventory/internal/inventory"
)

type GenerateBarcodeRequest struct {
	ProductID   string `json:"productId"`
	ProductCode string `json:"productCode"`
}

type Base64BarcodeRequest struct {
	ProductCode string `json:"productCode" binding:"required"`
}

/*
POST /api/barcode/generate
  - productId: regenerate for an existing product
  - productCode: regenerate for the owning product, or return an inline
    preview when no product carries that code; nothing is written to disk
*/
func GenerateBarcode(prov *inventory.Provisioner, images BarcodeImages, baseURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/barcode/generate"
		defer handlePanic(c, route)

		var req GenerateBarcodeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		productID := strings.TrimSpace(req.ProductID)
		productCode := strings.TrimSpace(req.ProductCode)

		ctx, cancel := requestContext(c)
		defer cancel()

		switch {
		case productID != "":
			info, err := prov.Reprovision(ctx, productID)
			if err != nil {
				respondServiceError(c, route, err)
				return
			}
			c.JSON(http.StatusOK, barcodeInfoBody(info, baseURL))
		case productCode != "":
			info, err := prov.ReprovisionByCode(ctx, productCode)
			if err == nil {
				c.JSON(http.StatusOK, barcodeInfoBody(info, baseURL))
				return
			}
			if !errors.Is(err, inventory.ErrNotFound) {
				respondServiceError(c, route, err)
				return
			}

			if !barcode.ValidCode(productCode) {
				respondWithError(c, http.StatusBadRequest, route, "productCode may only contain letters, digits, '-' and '_'")
				return
			}
			uri, err := images.RenderBase64(productCode)
			if err != nil {
				zap.L().Error("barcode render failed", zap.String("route", route), zap.Error(err))
				respondWithError(c, http.StatusInternalServerError, route, "barcode generation failed")
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"success": true,
				"message": "Barcode generated successfully",
				"data": gin.H{
					"productCode":    productCode,
					"barcode":        productCode,
					"barcodePreview": uri,
					"stored":         false,
				},
			})
		default:
			respondWithError(c, http.StatusBadRequest, route, "Provide either productId or productCode")
		}
	}
}

// GetBarcodeImage serves the stored PNG, rendering it first when missing.
func GetBarcodeImage(store inventory.ProductStore, images BarcodeImages) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/barcode/:productCode"
		defer handlePanic(c, route)

		code := strings.TrimSpace(c.Param("productCode"))
		if !barcode.ValidCode(code) {
			respondWithError(c, http.StatusBadRequest, route, "invalid product code")
			return
		}

		label := ""
		ctx, cancel := requestContext(c)
		defer cancel()
		if product, err := store.FindByCode(ctx, code); err == nil {
			label = product.Name
		} else if !errors.Is(err, inventory.ErrNotFound) {
			zap.L().Warn("product lookup for barcode label failed", zap.String("route", route), zap.Error(err))
		}

		data, err := images.Load(code, label)
		if err != nil {
			zap.L().Error("barcode load failed", zap.String("route", route), zap.String("code", code), zap.Error(err))
			respondWithError(c, http.StatusInternalServerError, route, "barcode generation failed")
			return
		}

		c.Header("Cache-Control", "no-cache")
		c.Data(http.StatusOK, "image/png", data)
	}
}

func GenerateBase64Barcode(images BarcodeImages) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/barcode/base64"
		defer handlePanic(c, route)

		var req Base64BarcodeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		code := strings.TrimSpace(req.ProductCode)

		uri, err := images.RenderBase64(code)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"productCode":  code,
				"barcodeImage": uri,
			},
		})
	}
}
