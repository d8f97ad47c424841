package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"furniture-inventory/internal/barcode"
	"furniture-inventory/internal/config"
	"furniture-inventory/internal/database"
	"furniture-inventory/internal/handlers"
	"furniture-inventory/internal/inventory"
	"furniture-inventory/internal/jobs"
	"furniture-inventory/internal/logging"
	"furniture-inventory/internal/repository"
	"furniture-inventory/internal/server"
	"furniture-inventory/internal/storage"
)

func main() {
	config.Load()
	cfg := config.AppEnv
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	logger, err := logging.Init(logging.Options{Mode: cfg.LogMode, File: cfg.LogFile})
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.LogMode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	client, err := database.Connect(cfg.MongoURI)
	if err != nil {
		logger.Fatal("mongodb connect failed", zap.Error(err))
	}
	db := client.Database(cfg.DBName)
	logger.Info("mongodb connected", zap.String("db", db.Name()))

	for name, ensure := range map[string]func() error{
		"product":        func() error { return database.EnsureProductIndexes(db) },
		"category":       func() error { return database.EnsureCategoryIndexes(db) },
		"user":           func() error { return database.EnsureUserIndexes(db) },
		"stock movement": func() error { return database.EnsureStockMovementIndexes(db) },
	} {
		if err := ensure(); err != nil {
			logger.Warn("index warning", zap.String("collection", name), zap.Error(err))
		}
	}

	disk, err := storage.NewDisk(cfg.UploadsDir)
	if err != nil {
		logger.Fatal("uploads dir unavailable", zap.String("dir", cfg.UploadsDir), zap.Error(err))
	}

	renderer := barcode.NewRenderer(disk, logger)
	products := repository.NewProductRepository(db)
	provisioner := inventory.NewProvisioner(
		products,
		inventory.NewAllocator(products, logger),
		renderer,
		inventory.ProvisionerOptions{AllocRetries: cfg.AllocRetries, BulkConcurrency: cfg.BulkConcurrency},
		logger,
	)
	stock := inventory.NewStockEngine(products, products, logger)

	scheduler := jobs.NewScheduler(logger)
	if err := scheduler.AddBarcodeBackfill(cfg.BackfillSchedule, provisioner); err != nil {
		logger.Fatal("invalid backfill schedule", zap.String("spec", cfg.BackfillSchedule), zap.Error(err))
	}
	scheduler.Start()

	router := server.NewRouter(server.Deps{
		DB:          db,
		Products:    products,
		Provisioner: provisioner,
		Stock:       stock,
		Images:      renderer,
		Tokens: handlers.TokenSettings{
			Secret:     cfg.JWTSecret,
			AccessTTL:  cfg.AccessTokenTTL,
			RefreshTTL: cfg.RefreshTokenTTL,
		},
		Logger:        logger,
		UploadsDir:    disk.Root(),
		PublicBaseURL: cfg.PublicBaseURL,
		CORSOrigins:   []string{cfg.FrontendURL},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Port), zap.String("baseURL", cfg.PublicBaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	scheduler.Stop()
	if err := client.Disconnect(shutdownCtx); err != nil {
		logger.Error("mongodb disconnect", zap.Error(err))
	}
}
