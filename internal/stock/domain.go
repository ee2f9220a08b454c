// Package stock guards product quantities: every debit is validated against
// the whole bill before any product is touched, and every accepted debit has
// a matching credit for reversal.
package stock

import "github.com/google/uuid"

// Line is one product movement request.
type Line struct {
	ProductID   uuid.UUID
	ProductName string
	Quantity    int64
}

// Level is the on-hand quantity of a product as read under lock.
type Level struct {
	ProductID uuid.UUID
	Name      string
	Quantity  int64
}
