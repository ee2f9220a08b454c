package purchases

import (
	"fmt"

	"github.com/krishi-kendra/krishi-kendra/internal/shared"
)

var (
	// ErrPurchaseNotFound indicates the purchase id does not exist.
	ErrPurchaseNotFound = fmt.Errorf("purchase %w", shared.ErrNotFound)
	// ErrInvalidPaymentDate indicates an unparsable payment date.
	ErrInvalidPaymentDate = fmt.Errorf("%w: invalid payment date", shared.ErrValidation)
	// ErrInvalidID indicates an unparsable purchase id.
	ErrInvalidID = fmt.Errorf("%w: invalid purchase id", shared.ErrValidation)
	// ErrDuplicateRequest indicates an Idempotency-Key that was already used.
	ErrDuplicateRequest = fmt.Errorf("%w: request already processed", shared.ErrConflict)
)
