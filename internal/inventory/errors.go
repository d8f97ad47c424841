package inventory

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrValidation        = errors.New("validation failed")
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrRenderFailure and ErrAllocationFallback never abort an operation;
	// they are attached to results so callers can report degraded success.
	ErrRenderFailure      = errors.New("barcode render failed")
	ErrAllocationFallback = errors.New("sequential product code unavailable")
	ErrTransientConflict  = errors.New("product code conflict, retry the request")
)

// DuplicateError is returned by stores when a unique index rejects a write.
type DuplicateError struct {
	Field string
}

func (e DuplicateError) Error() string {
	if e.Field == "" {
		return "duplicate key"
	}
	return e.Field + " already exists"
}

func (e DuplicateError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// InsufficientStockError carries the quantities of a rejected sale.
type InsufficientStockError struct {
	Barcode   string
	Available int
	Requested int
}

func (e InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for %s: available %d, requested %d", e.Barcode, e.Available, e.Requested)
}

func (e InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// InvalidID reports an id that is not a well-formed object id.
func InvalidID(id string) error {
	return validationError("invalid id %q", id)
}
