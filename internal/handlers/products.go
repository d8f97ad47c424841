package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"

	"furniture-inventory/internal/barcode"
	"furniture-inventory/internal/inventory"
	"furniture-inventory/internal/models"
)

const maxBulkItems = 100

// BarcodeImages is the part of the barcode renderer the HTTP layer uses
// directly, outside of provisioning.
type BarcodeImages interface {
	Render(code, label string) barcode.Result
	RenderBase64(code string) (string, error)
	Load(code, label string) ([]byte, error)
	Remove(code string) error
}

type ProductRequest struct {
	Name        string   `json:"name" binding:"required"`
	Category    string   `json:"category" binding:"required"`
	Material    string   `json:"material"`
	Color       string   `json:"color"`
	Stock       *int     `json:"stock" binding:"required,min=0"`
	MinStock    *int     `json:"minStock" binding:"omitempty,min=0"`
	Price       *float64 `json:"price" binding:"required,min=0"`
	CostPrice   float64  `json:"costPrice" binding:"min=0"`
	Location    string   `json:"location"`
	Description string   `json:"description"`
	Status      string   `json:"status" binding:"omitempty,oneof=active inactive"`
}

func (r ProductRequest) toDraft() models.ProductDraft {
	draft := models.ProductDraft{
		Name:        r.Name,
		Category:    r.Category,
		Material:    r.Material,
		Color:       r.Color,
		MinStock:    r.MinStock,
		CostPrice:   r.CostPrice,
		Location:    r.Location,
		Description: r.Description,
		Status:      r.Status,
	}
	if r.Stock != nil {
		draft.Stock = *r.Stock
	}
	if r.Price != nil {
		draft.Price = *r.Price
	}
	return draft
}

// ProductUpdateRequest has no code, barcode or image fields, so clients
// cannot change them through an update.
type ProductUpdateRequest struct {
	Name        *string  `json:"name" binding:"omitempty,min=1"`
	Category    *string  `json:"category" binding:"omitempty,min=1"`
	Material    *string  `json:"material"`
	Color       *string  `json:"color"`
	Stock       *int     `json:"stock" binding:"omitempty,min=0"`
	MinStock    *int     `json:"minStock" binding:"omitempty,min=0"`
	Price       *float64 `json:"price" binding:"omitempty,min=0"`
	CostPrice   *float64 `json:"costPrice" binding:"omitempty,min=0"`
	Location    *string  `json:"location"`
	Description *string  `json:"description"`
	Status      *string  `json:"status" binding:"omitempty,oneof=active inactive"`
}

// blankRequiredField names the first required field the update would set
// to whitespace only.
func (r ProductUpdateRequest) blankRequiredField() string {
	switch {
	case r.Name != nil && strings.TrimSpace(*r.Name) == "":
		return "name"
	case r.Category != nil && strings.TrimSpace(*r.Category) == "":
		return "category"
	}
	return ""
}

func (r ProductUpdateRequest) toChanges() models.ProductChanges {
	return models.ProductChanges{
		Name:        r.Name,
		Category:    r.Category,
		Material:    r.Material,
		Color:       r.Color,
		Stock:       r.Stock,
		MinStock:    r.MinStock,
		Price:       r.Price,
		CostPrice:   r.CostPrice,
		Location:    r.Location,
		Description: r.Description,
		Status:      r.Status,
	}
}

type BulkBarcodeRequest struct {
	ProductIDs []string `json:"productIds" binding:"required,min=1"`
}

type BulkCreateRequest struct {
	Products []ProductRequest `json:"products" binding:"required,min=1"`
}

func absoluteURL(baseURL, path string) string {
	if path == "" {
		return ""
	}
	return strings.TrimRight(baseURL, "/") + path
}

func listProducts(c *gin.Context, store inventory.ProductStore, route string, filter models.ProductFilter, extra gin.H) {
	ctx, cancel := requestContext(c)
	defer cancel()

	products, total, err := store.List(ctx, filter)
	if err != nil {
		respondServiceError(c, route, err)
		return
	}

	body := gin.H{
		"success":  true,
		"count":    len(products),
		"total":    total,
		"products": products,
	}
	if filter.Limit > 0 {
		body["page"] = filter.Page
		body["limit"] = filter.Limit
	}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

/*
GET /api/products
- ?search= ?category= ?status= ?lowStock=true ?page= ?limit=
*/
func GetProducts(store inventory.ProductStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products"
		defer handlePanic(c, route)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		status := strings.TrimSpace(c.Query("status"))
		if status != "" && status != models.ProductStatusActive && status != models.ProductStatusInactive {
			respondWithError(c, http.StatusBadRequest, route, "status must be active or inactive")
			return
		}

		listProducts(c, store, route, models.ProductFilter{
			Search:   strings.TrimSpace(c.Query("search")),
			Category: strings.TrimSpace(c.Query("category")),
			Status:   status,
			LowStock: c.Query("lowStock") == "true",
			Page:     page,
			Limit:    limit,
		}, nil)
	}
}

func SearchProducts(store inventory.ProductStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products/search/:query"
		defer handlePanic(c, route)

		query := strings.TrimSpace(c.Param("query"))
		if query == "" {
			respondWithError(c, http.StatusBadRequest, route, "search query is required")
			return
		}
		listProducts(c, store, route, models.ProductFilter{Search: query}, gin.H{"query": query})
	}
}

func GetProductsByCategory(store inventory.ProductStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products/category/:category"
		defer handlePanic(c, route)

		category := strings.TrimSpace(c.Param("category"))
		listProducts(c, store, route, models.ProductFilter{Category: category}, gin.H{"category": category})
	}
}

func GetLowStockProducts(store inventory.ProductStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products/low-stock/alerts"
		defer handlePanic(c, route)

		listProducts(c, store, route, models.ProductFilter{LowStock: true}, nil)
	}
}

func GetProductByID(store inventory.ProductStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products/:id"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		product, err := store.FindByID(ctx, c.Param("id"))
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "product": product})
	}
}

func GetProductByCode(store inventory.ProductStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products/code/:code"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		product, err := store.FindByCode(ctx, strings.TrimSpace(c.Param("code")))
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "product": product})
	}
}

// GetProductBarcode returns the product's barcode fields with an inline
// preview that does not depend on the stored file.
func GetProductBarcode(store inventory.ProductStore, images BarcodeImages, baseURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products/:id/barcode"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		product, err := store.FindByID(ctx, c.Param("id"))
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		if product.ProductCode == "" {
			respondWithError(c, http.StatusBadRequest, route, "product has no product code")
			return
		}

		preview, err := images.RenderBase64(product.ProductCode)
		if err != nil {
			zap.L().Warn("barcode preview failed", zap.String("route", route), zap.String("code", product.ProductCode), zap.Error(err))
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"productId":       product.ID.Hex(),
				"productCode":     product.ProductCode,
				"productName":     product.Name,
				"barcode":         product.Barcode,
				"barcodeImage":    product.BarcodeImage,
				"barcodeImageUrl": absoluteURL(baseURL, product.BarcodeImage),
				"barcodePreview":  preview,
			},
		})
	}
}

func CreateProduct(prov *inventory.Provisioner, baseURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/products"
		defer handlePanic(c, route)

		var req ProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		out, err := prov.Provision(ctx, req.toDraft())
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		zap.L().Info("product created",
			zap.String("route", route),
			zap.String("code", out.Product.ProductCode),
			zap.Bool("barcodeGenerated", out.BarcodeGenerated),
			zap.Bool("codeFallback", out.CodeFallback),
		)
		c.JSON(http.StatusCreated, createdProductBody(out, baseURL))
	}
}

func createdProductBody(out *inventory.Provisioned, baseURL string) gin.H {
	message := "Product created successfully with barcode"
	if !out.BarcodeGenerated {
		message = "Product created but barcode image generation failed"
	}
	body := gin.H{
		"success":          true,
		"message":          message,
		"data":             out.Product,
		"barcodeGenerated": out.BarcodeGenerated,
		"codeFallback":     out.CodeFallback,
	}
	if out.BarcodeGenerated {
		body["barcodeImageUrl"] = absoluteURL(baseURL, out.Product.BarcodeImage)
	}
	return body
}

func UpdateProduct(store inventory.ProductStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/products/:id"
		defer handlePanic(c, route)

		var req ProductUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		if blank := req.blankRequiredField(); blank != "" {
			respondWithError(c, http.StatusBadRequest, route, blank+" cannot be blank")
			return
		}
		changes := req.toChanges()
		if changes.IsEmpty() {
			respondWithError(c, http.StatusBadRequest, route, "no fields to update")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		product, err := store.Update(ctx, c.Param("id"), changes)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Product updated successfully", "product": product})
	}
}

func DeleteProduct(store inventory.ProductStore, images BarcodeImages) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/products/:id"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		product, err := store.Delete(ctx, c.Param("id"))
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		if product.ProductCode != "" {
			if err := images.Remove(product.ProductCode); err != nil {
				zap.L().Warn("barcode image not removed", zap.String("route", route), zap.String("code", product.ProductCode), zap.Error(err))
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Product deleted successfully",
			"product": gin.H{
				"id":          product.ID.Hex(),
				"productCode": product.ProductCode,
				"name":        product.Name,
			},
		})
	}
}

func GenerateProductBarcode(prov *inventory.Provisioner, baseURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/products/:id/generate-barcode"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		info, err := prov.Reprovision(ctx, c.Param("id"))
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, barcodeInfoBody(info, baseURL))
	}
}

func barcodeInfoBody(info *inventory.BarcodeInfo, baseURL string) gin.H {
	message := "Barcode generated successfully"
	if !info.Generated {
		message = "Barcode saved but image generation failed"
	}
	return gin.H{
		"success": true,
		"message": message,
		"data": gin.H{
			"productId":       info.ProductID,
			"productCode":     info.ProductCode,
			"barcode":         info.Barcode,
			"barcodeImage":    info.BarcodeImage,
			"barcodeImageUrl": absoluteURL(baseURL, info.BarcodeImage),
			"generated":       info.Generated,
		},
	}
}

// BulkGenerateBarcodes serves both /api/products/bulk/generate-barcodes and
// /api/barcode/bulk.
func BulkGenerateBarcodes(prov *inventory.Provisioner) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST bulk barcodes"
		defer handlePanic(c, route)

		var req BulkBarcodeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		if len(req.ProductIDs) > maxBulkItems {
			respondWithError(c, http.StatusBadRequest, route, "too many productIds")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		results := prov.BulkReprovision(ctx, req.ProductIDs)

		generated := 0
		items := make([]gin.H, 0, len(results))
		for _, res := range results {
			item := gin.H{"productId": res.ProductID}
			switch {
			case res.Err != nil:
				item["success"] = false
				item["error"] = res.Err.Error()
			case !res.Info.Generated:
				item["success"] = false
				item["productCode"] = res.Info.ProductCode
				item["error"] = "image generation failed"
			default:
				generated++
				item["success"] = true
				item["productCode"] = res.Info.ProductCode
				item["barcodeImage"] = res.Info.BarcodeImage
			}
			items = append(items, item)
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": fmt.Sprintf("Generated %d barcodes", generated),
			"results": items,
		})
	}
}

func BulkCreateProducts(prov *inventory.Provisioner, baseURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/products/bulk/create"
		defer handlePanic(c, route)

		var req BulkCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		if len(req.Products) > maxBulkItems {
			respondWithError(c, http.StatusBadRequest, route, "too many products")
			return
		}

		items := make([]gin.H, len(req.Products))
		drafts := make([]models.ProductDraft, 0, len(req.Products))
		positions := make([]int, 0, len(req.Products))
		for i := range req.Products {
			if err := binding.Validator.ValidateStruct(&req.Products[i]); err != nil {
				items[i] = gin.H{"index": i, "success": false, "error": err.Error()}
				continue
			}
			drafts = append(drafts, req.Products[i].toDraft())
			positions = append(positions, i)
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		created := 0
		for _, res := range prov.BulkProvision(ctx, drafts) {
			i := positions[res.Index]
			if res.Err != nil {
				items[i] = gin.H{"index": i, "success": false, "error": res.Err.Error()}
				continue
			}
			created++
			items[i] = gin.H{
				"index":            i,
				"success":          true,
				"data":             res.Result.Product,
				"barcodeGenerated": res.Result.BarcodeGenerated,
				"barcodeImageUrl":  absoluteURL(baseURL, res.Result.Product.BarcodeImage),
			}
		}

		status := http.StatusCreated
		if created == 0 {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{
			"success": created > 0,
			"message": fmt.Sprintf("Created %d of %d products", created, len(req.Products)),
			"created": created,
			"failed":  len(req.Products) - created,
			"results": items,
		})
	}
}
