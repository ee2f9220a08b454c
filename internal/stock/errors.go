package stock

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/krishi-kendra/krishi-kendra/internal/shared"
)

var (
	// ErrInvalidQuantity indicates a non-positive line quantity or a per-product
	// total outside the int64 range.
	ErrInvalidQuantity = fmt.Errorf("%w: invalid quantity", shared.ErrValidation)
	// ErrNoLines indicates an empty movement request.
	ErrNoLines = fmt.Errorf("%w: at least one item is required", shared.ErrValidation)
	// ErrProductNotFound indicates a line references an unknown product.
	ErrProductNotFound = fmt.Errorf("product %w", shared.ErrNotFound)

	errRowUnchanged = errors.New("no row updated")
)

// StockError reports an insufficient-stock rejection. No quantity was
// changed when it is returned.
type StockError struct {
	ProductID uuid.UUID
	Product   string
	Available int64
	Required  int64
}

func (e *StockError) Error() string {
	return fmt.Sprintf("Insufficient stock for %s. Available: %d, Required: %d", e.Product, e.Available, e.Required)
}

// ProblemStatus maps the shortage to 422.
func (e *StockError) ProblemStatus() int {
	return http.StatusUnprocessableEntity
}

// ProblemFields exposes the shortage detail to API clients.
func (e *StockError) ProblemFields() map[string]any {
	return map[string]any{
		"product":   e.Product,
		"productId": e.ProductID.String(),
		"available": e.Available,
		"required":  e.Required,
	}
}

// StockMutationError reports a debit or credit that failed after validation
// passed. The surrounding transaction must be aborted.
type StockMutationError struct {
	Op        string
	ProductID uuid.UUID
	Err       error
}

func (e *StockMutationError) Error() string {
	return fmt.Sprintf("stock: %s of product %s failed: %v", e.Op, e.ProductID, e.Err)
}

func (e *StockMutationError) Unwrap() error {
	return e.Err
}
