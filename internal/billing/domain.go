// Package billing owns the bill lifecycle: creation with stock debit, status
// transitions that credit stock on cancellation, and deletion.
package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/krishi-kendra/krishi-kendra/internal/stock"
)

// BillType distinguishes informal (kaccha) from GST (pakka) bills.
type BillType string

const (
	BillTypeKaccha BillType = "kaccha"
	BillTypePakka  BillType = "pakka"
)

// PaymentMode records how the customer pays.
type PaymentMode string

const (
	PaymentCash   PaymentMode = "Cash"
	PaymentUdhaar PaymentMode = "Udhaar"
)

// Status is the bill lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Customer is the buyer snapshot stored with the bill.
type Customer struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Mobile  string `json:"mobile"`
	Address string `json:"address,omitempty"`
}

// Item is an immutable bill line. ProductID is a weak reference; the product
// may be deleted later.
type Item struct {
	ProductID   uuid.UUID       `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int64           `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	Total       decimal.Decimal `json:"total"`
}

// Bill is a customer invoice.
type Bill struct {
	ID          uuid.UUID       `json:"id"`
	BillNumber  string          `json:"billNumber"`
	BillType    BillType        `json:"billType"`
	Customer    Customer        `json:"customer"`
	Items       []Item          `json:"items"`
	PaymentMode PaymentMode     `json:"paymentMode"`
	DueDate     *time.Time      `json:"dueDate,omitempty"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	GST         decimal.Decimal `json:"gst"`
	Total       decimal.Decimal `json:"total"`
	Status      Status          `json:"status"`
	CreatedBy   string          `json:"createdBy,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// StockLines converts bill items into stock movements.
func (b Bill) StockLines() []stock.Line {
	lines := make([]stock.Line, 0, len(b.Items))
	for _, item := range b.Items {
		lines = append(lines, stock.Line{ProductID: item.ProductID, ProductName: item.ProductName, Quantity: item.Quantity})
	}
	return lines
}

// CustomerInput is the customer part of a create request.
type CustomerInput struct {
	ID      string `json:"id"`
	Name    string `json:"name" validate:"required,max=200"`
	Mobile  string `json:"mobile" validate:"required,mobile"`
	Address string `json:"address" validate:"max=500"`
}

// ItemInput is one requested line.
type ItemInput struct {
	ProductID   uuid.UUID        `json:"productId" validate:"required"`
	ProductName string           `json:"productName" validate:"required,max=200"`
	Quantity    int64            `json:"quantity" validate:"required,gt=0"`
	Rate        decimal.Decimal  `json:"rate" validate:"min=0"`
	Total       *decimal.Decimal `json:"total"`
}

// CreateBillInput is the payload accepted by CreateBill. Totals are optional;
// when present they must agree with the server computation. DueDate accepts
// RFC 3339 or a bare yyyy-mm-dd in the shop timezone.
type CreateBillInput struct {
	BillNumber  string           `json:"billNumber" validate:"required,max=64"`
	BillType    BillType         `json:"billType" validate:"omitempty,oneof=kaccha pakka"`
	Customer    CustomerInput    `json:"customer"`
	Items       []ItemInput      `json:"items" validate:"dive"`
	PaymentMode PaymentMode      `json:"paymentMode" validate:"omitempty,oneof=Cash Udhaar"`
	DueDate     string           `json:"dueDate"`
	Subtotal    *decimal.Decimal `json:"subtotal"`
	GST         *decimal.Decimal `json:"gst"`
	Total       *decimal.Decimal `json:"total"`
}

// ListFilter narrows bill listings.
type ListFilter struct {
	Status      Status
	PaymentMode PaymentMode
	Search      string
}
