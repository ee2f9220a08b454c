package billing

import (
	"fmt"

	"github.com/krishi-kendra/krishi-kendra/internal/shared"
)

var (
	// ErrBillNotFound indicates the bill id does not exist.
	ErrBillNotFound = fmt.Errorf("bill %w", shared.ErrNotFound)
	// ErrDuplicateBillNumber indicates the bill number is already taken.
	ErrDuplicateBillNumber = fmt.Errorf("%w: bill number already exists", shared.ErrConflict)
	// ErrEmptyBill indicates a bill without items.
	ErrEmptyBill = fmt.Errorf("%w: bill must contain at least one item", shared.ErrValidation)
	// ErrInvalidStatus indicates an unknown status value.
	ErrInvalidStatus = fmt.Errorf("%w: invalid status", shared.ErrValidation)
	// ErrInvalidTransition indicates a status change the lifecycle forbids.
	ErrInvalidTransition = fmt.Errorf("%w: status transition not allowed", shared.ErrConflict)
	// ErrTotalsMismatch indicates client totals disagree with the computed ones.
	ErrTotalsMismatch = fmt.Errorf("%w: bill totals do not match items", shared.ErrValidation)
	// ErrInvalidDueDate indicates an unparsable due date.
	ErrInvalidDueDate = fmt.Errorf("%w: invalid due date", shared.ErrValidation)
	// ErrInvalidID indicates an unparsable bill id.
	ErrInvalidID = fmt.Errorf("%w: invalid bill id", shared.ErrValidation)
)
