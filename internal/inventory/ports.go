package inventory

//go:generate mockgen -source=ports.go -destination=mocks_test.go -package=inventory_test

import (
	"context"

	"furniture-inventory/internal/barcode"
	"furniture-inventory/internal/models"
)

// CodeStore is the read side the allocator needs.
type CodeStore interface {
	// LatestSequentialCode returns the productCode of the most recently
	// created product whose code is FUR-<digits>. found is false when no
	// such product exists.
	LatestSequentialCode(ctx context.Context) (code string, found bool, err error)
	CodeExists(ctx context.Context, code string) (bool, error)
}

// ProductStore is the document store behind the inventory core. Writes that
// break the productCode/barcode unique indexes fail with DuplicateError, and
// lookups that match nothing fail with ErrNotFound.
type ProductStore interface {
	CodeStore

	Insert(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id string) (*models.Product, error)
	FindByCode(ctx context.Context, code string) (*models.Product, error)
	FindByBarcode(ctx context.Context, barcode string) (*models.Product, error)
	List(ctx context.Context, filter models.ProductFilter) ([]models.Product, int64, error)
	Update(ctx context.Context, id string, changes models.ProductChanges) (*models.Product, error)
	Delete(ctx context.Context, id string) (*models.Product, error)
	SetBarcode(ctx context.Context, id, barcode, image string) (*models.Product, error)

	// AdjustStock applies delta to the stock of the product with the given
	// barcode in one atomic step. A negative delta only applies while the
	// resulting stock stays >= 0; otherwise nothing changes and ErrNotFound
	// is returned, same as for an unknown barcode.
	AdjustStock(ctx context.Context, barcode string, delta int) (*models.Product, error)
}

type MovementStore interface {
	InsertMovement(ctx context.Context, movement *models.StockMovement) error
	ListMovements(ctx context.Context, barcode string, limit int64) ([]models.StockMovement, error)
}

// Renderer produces barcode images for product codes.
type Renderer interface {
	Render(code, label string) barcode.Result
	ImagePath(code string) string
	Exists(code string) bool
}
