package inventory

import (
	"context"
	"errors"
	"strings"
	"time"

	"furniture-inventory/internal/models"

	"go.uber.org/zap"
)

const (
	// ActionAdd is what older scanner clients send for a restock.
	ActionAdd = "add"

	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// StockAdjustment is one scan applied to the product carrying Barcode.
type StockAdjustment struct {
	Barcode   string
	Action    string
	Quantity  int
	ScannerID string
	Notes     string
	UserID    string
}

type StockResult struct {
	Product  *models.Product
	Movement *models.StockMovement
	// Action is the normalized action that was applied.
	Action    string
	Quantity  int
	ScannedAt time.Time
}

type StockEngine struct {
	products  ProductStore
	movements MovementStore
	logger    *zap.Logger
	now       func() time.Time
}

func NewStockEngine(products ProductStore, movements MovementStore, logger *zap.Logger) *StockEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockEngine{products: products, movements: movements, logger: logger, now: time.Now}
}

// NormalizeAction maps a scanner action onto sale or restock.
func NormalizeAction(action string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case models.StockActionSale:
		return models.StockActionSale, nil
	case models.StockActionRestock, ActionAdd:
		return models.StockActionRestock, nil
	default:
		return "", validationError("action must be %q or %q", models.StockActionSale, ActionAdd)
	}
}

// Adjust applies a sale or restock atomically. A sale never drives stock
// below zero: if concurrent sales race for the last units, only as many as
// there is stock for succeed and the rest fail with InsufficientStockError.
func (e *StockEngine) Adjust(ctx context.Context, adj StockAdjustment) (*StockResult, error) {
	code := strings.TrimSpace(adj.Barcode)
	if code == "" {
		return nil, validationError("barcode is required")
	}
	action, err := NormalizeAction(adj.Action)
	if err != nil {
		return nil, err
	}
	if adj.Quantity < 0 {
		return nil, validationError("quantity must not be negative")
	}

	result := &StockResult{Action: action, Quantity: adj.Quantity, ScannedAt: e.now()}

	if adj.Quantity == 0 {
		product, err := e.products.FindByBarcode(ctx, code)
		if err != nil {
			return nil, err
		}
		result.Product = product
		return result, nil
	}

	delta := adj.Quantity
	if action == models.StockActionSale {
		delta = -delta
	}

	product, err := e.products.AdjustStock(ctx, code, delta)
	if err != nil {
		if action == models.StockActionSale && errors.Is(err, ErrNotFound) {
			return nil, e.explainRejectedSale(ctx, code, adj.Quantity)
		}
		return nil, err
	}
	result.Product = product

	movement := &models.StockMovement{
		ProductID:   product.ID,
		Barcode:     code,
		Action:      action,
		Quantity:    adj.Quantity,
		StockBefore: product.Stock - delta,
		StockAfter:  product.Stock,
		ScannerID:   adj.ScannerID,
		Notes:       adj.Notes,
		UserID:      adj.UserID,
		CreatedAt:   result.ScannedAt,
	}
	if err := e.movements.InsertMovement(ctx, movement); err != nil {
		e.logger.Error("stock movement not recorded",
			zap.String("barcode", code), zap.String("action", action), zap.Error(err))
	} else {
		result.Movement = movement
	}

	e.logger.Info("stock adjusted",
		zap.String("barcode", code),
		zap.String("action", action),
		zap.Int("quantity", adj.Quantity),
		zap.Int("stock", product.Stock),
	)
	return result, nil
}

// explainRejectedSale tells an unknown barcode apart from a sale that asked
// for more than is on hand.
func (e *StockEngine) explainRejectedSale(ctx context.Context, code string, requested int) error {
	product, err := e.products.FindByBarcode(ctx, code)
	if err != nil {
		return err
	}
	return InsufficientStockError{Barcode: code, Available: product.Stock, Requested: requested}
}

// History lists recent movements, newest first. An empty barcode lists all.
func (e *StockEngine) History(ctx context.Context, barcode string, limit int64) ([]models.StockMovement, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	return e.movements.ListMovements(ctx, strings.TrimSpace(barcode), limit)
}
