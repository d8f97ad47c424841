package server

import (
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"furniture-inventory/internal/handlers"
	"furniture-inventory/internal/inventory"
	"furniture-inventory/internal/middleware"
	"furniture-inventory/internal/models"
)

// Deps is everything the HTTP layer is built from.
type Deps struct {
	DB          *mongo.Database
	Products    inventory.ProductStore
	Provisioner *inventory.Provisioner
	Stock       *inventory.StockEngine
	Images      handlers.BarcodeImages
	Tokens      handlers.TokenSettings
	Logger      *zap.Logger

	UploadsDir    string
	PublicBaseURL string
	CORSOrigins   []string
}

func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(middleware.CORS(d.CORSOrigins...))
	r.NoRoute(handlers.NotFound())

	if d.UploadsDir != "" {
		r.Static("/uploads", d.UploadsDir)
	}

	r.GET("/", handlers.Home())
	r.GET("/health", handlers.Health(d.DB))

	authed := middleware.AuthGuard(d.Tokens.Secret)

	auth := r.Group("/api/auth")
	{
		auth.POST("/register", handlers.Register(d.DB, d.Tokens))
		auth.POST("/login", handlers.Login(d.DB, d.Tokens))
		auth.POST("/refresh", handlers.Refresh(d.DB, d.Tokens))
		auth.GET("/me", authed, handlers.GetMe(d.DB))
		auth.POST("/logout", authed, handlers.Logout(d.DB))
		auth.POST("/logout-all", authed, handlers.LogoutAll(d.DB))
	}

	products := r.Group("/api/products")
	products.Use(authed)
	{
		products.GET("", handlers.GetProducts(d.Products))
		products.GET("/code/:code", handlers.GetProductByCode(d.Products))
		products.GET("/search/:query", handlers.SearchProducts(d.Products))
		products.GET("/category/:category", handlers.GetProductsByCategory(d.Products))
		products.GET("/low-stock/alerts", handlers.GetLowStockProducts(d.Products))
		products.GET("/:id", handlers.GetProductByID(d.Products))
		products.GET("/:id/barcode", handlers.GetProductBarcode(d.Products, d.Images, d.PublicBaseURL))
		products.POST("", handlers.CreateProduct(d.Provisioner, d.PublicBaseURL))
		products.PUT("/:id", handlers.UpdateProduct(d.Products))
		products.DELETE("/:id", handlers.DeleteProduct(d.Products, d.Images))
		products.POST("/:id/generate-barcode", handlers.GenerateProductBarcode(d.Provisioner, d.PublicBaseURL))
		products.POST("/bulk/generate-barcodes", handlers.BulkGenerateBarcodes(d.Provisioner))
		products.POST("/bulk/create", handlers.BulkCreateProducts(d.Provisioner, d.PublicBaseURL))
	}

	barcodes := r.Group("/api/barcode")
	barcodes.Use(authed)
	{
		barcodes.POST("/generate", handlers.GenerateBarcode(d.Provisioner, d.Images, d.PublicBaseURL))
		barcodes.GET("/:productCode", handlers.GetBarcodeImage(d.Products, d.Images))
		barcodes.POST("/base64", handlers.GenerateBase64Barcode(d.Images))
		barcodes.POST("/bulk", handlers.BulkGenerateBarcodes(d.Provisioner))
	}

	scan := r.Group("/api/scan")
	scan.Use(authed)
	{
		scan.POST("", handlers.ScanProduct(d.Stock))
		scan.GET("/history", handlers.GetScanHistory(d.Stock))
	}

	categories := r.Group("/api/categories")
	{
		categories.GET("", handlers.GetCategories(d.DB))
		categories.GET("/stats", handlers.GetCategoryStats(d.DB))
		categories.GET("/:id", handlers.GetCategoryByID(d.DB))
		categories.POST("", authed, handlers.CreateCategory(d.DB))
		categories.PUT("/:id", authed, handlers.UpdateCategory(d.DB))
		categories.DELETE("/:id", authed, handlers.DeleteCategory(d.DB))
		categories.POST("/seed/default", authed, middleware.RequireRole(models.RoleAdmin), handlers.SeedDefaultCategories(d.DB))
	}

	return r
}
