// Package purchases records stock bought from supplier companies.
package purchases

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/krishi-kendra/krishi-kendra/internal/stock"
)

// Item is one purchased line. ProductID is empty for goods not in the catalog.
// Credited marks lines whose quantity was added to stock when recorded.
type Item struct {
	ProductID   string          `json:"productId,omitempty"`
	ProductName string          `json:"productName"`
	Quantity    int64           `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	Total       decimal.Decimal `json:"total"`
	Credited    bool            `json:"credited,omitempty"`
}

// Purchase is a supplier invoice kept for bookkeeping.
type Purchase struct {
	ID          uuid.UUID       `json:"id"`
	CompanyName string          `json:"companyName"`
	Items       []Item          `json:"items"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	PaymentDate time.Time       `json:"paymentDate"`
	Notes       string          `json:"notes,omitempty"`
	// StockCredited reports whether any line was added to stock.
	StockCredited bool      `json:"stockCredited"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// StockLines returns the catalog-linked lines as stock movements.
func (p Purchase) StockLines() []stock.Line {
	return p.lines(func(Item) bool { return true })
}

// CreditedLines returns the lines that were added to stock.
func (p Purchase) CreditedLines() []stock.Line {
	if !p.StockCredited {
		return nil
	}
	return p.lines(func(item Item) bool { return item.Credited })
}

func (p Purchase) lines(keep func(Item) bool) []stock.Line {
	lines := make([]stock.Line, 0, len(p.Items))
	for _, item := range p.Items {
		id, err := uuid.Parse(item.ProductID)
		if err != nil || !keep(item) {
			continue
		}
		lines = append(lines, stock.Line{ProductID: id, ProductName: item.ProductName, Quantity: item.Quantity})
	}
	return lines
}

// markCredited flags the lines of the given products as credited.
func (p *Purchase) markCredited(ids []uuid.UUID) {
	credited := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		credited[id] = struct{}{}
	}
	p.StockCredited = false
	for i := range p.Items {
		id, err := uuid.Parse(p.Items[i].ProductID)
		_, ok := credited[id]
		p.Items[i].Credited = err == nil && ok
		if p.Items[i].Credited {
			p.StockCredited = true
		}
	}
}

// ItemInput is one requested purchase line.
type ItemInput struct {
	ProductID   string           `json:"productId" validate:"omitempty,uuid"`
	ProductName string           `json:"productName" validate:"required,max=200"`
	Quantity    int64            `json:"quantity" validate:"gt=0"`
	Rate        decimal.Decimal  `json:"rate" validate:"min=0"`
	Total       *decimal.Decimal `json:"total"`
}

// Input carries create and update payloads. PaymentDate accepts RFC 3339 or
// yyyy-mm-dd and defaults to now.
type Input struct {
	CompanyName string           `json:"companyName" validate:"required,max=200"`
	Items       []ItemInput      `json:"items" validate:"dive"`
	TotalAmount *decimal.Decimal `json:"totalAmount" validate:"required,min=0"`
	PaymentDate string           `json:"paymentDate"`
	Notes       string           `json:"notes" validate:"max=2000"`
}
