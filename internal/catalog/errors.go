package catalog

import (
	"fmt"

	"github.com/krishi-kendra/krishi-kendra/internal/shared"
	"github.com/krishi-kendra/krishi-kendra/internal/stock"
)

var (
	// ErrProductNotFound is shared with the stock engine so callers match a
	// single sentinel.
	ErrProductNotFound = stock.ErrProductNotFound
	// ErrInvalidID indicates an unparsable product id.
	ErrInvalidID = fmt.Errorf("%w: invalid product id", shared.ErrValidation)
)

// ErrInvalidProduct indicates a row rejected by a table constraint.
var ErrInvalidProduct = fmt.Errorf("%w: product violates catalog constraints", shared.ErrValidation)
