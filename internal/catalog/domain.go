// Package catalog is the product ledger: product master data plus the
// per-product quantities that the stock engine debits and credits.
package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Category groups products on the shop floor.
type Category string

const (
	CategoryFungicide             Category = "Fungicide"
	CategoryInsecticide           Category = "Insecticide"
	CategoryHerbicide             Category = "Herbicide"
	CategoryPGR                   Category = "PGR"
	CategoryWaterSoluble          Category = "Water Soluble"
	CategoryChelatedMicronutrient Category = "Chelated Micronutrient"
)

// Categories lists every accepted category in display order.
func Categories() []Category {
	return []Category{
		CategoryFungicide,
		CategoryInsecticide,
		CategoryHerbicide,
		CategoryPGR,
		CategoryWaterSoluble,
		CategoryChelatedMicronutrient,
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// DefaultQuantityAlert applies when a product is created without a threshold.
const DefaultQuantityAlert int64 = 10

// Product is a sellable item with its on-hand quantity.
type Product struct {
	ID                 uuid.UUID       `json:"id"`
	Name               string          `json:"name"`
	TechnicalName      string          `json:"technicalName,omitempty"`
	Company            string          `json:"company"`
	Category           Category        `json:"category"`
	Quantity           int64           `json:"quantity"`
	QuantityAlert      int64           `json:"quantityAlert"`
	BuyingPrice        decimal.Decimal `json:"buyingPrice"`
	SellingPriceCash   decimal.Decimal `json:"sellingPriceCash"`
	SellingPriceUdhaar decimal.Decimal `json:"sellingPriceUdhaar"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// LowStock reports whether the product is at or below its alert threshold.
func (p Product) LowStock() bool {
	return p.Quantity <= p.QuantityAlert
}

// ProductInput carries create and update payloads.
type ProductInput struct {
	Name               string          `json:"name" validate:"required,max=200"`
	TechnicalName      string          `json:"technicalName" validate:"max=200"`
	Company            string          `json:"company" validate:"required,max=200"`
	Category           Category        `json:"category" validate:"required,category"`
	Quantity           *int64          `json:"quantity" validate:"required,min=0"`
	QuantityAlert      *int64          `json:"quantityAlert" validate:"omitempty,min=0"`
	BuyingPrice        decimal.Decimal `json:"buyingPrice" validate:"min=0"`
	SellingPriceCash   decimal.Decimal `json:"sellingPriceCash" validate:"min=0"`
	SellingPriceUdhaar decimal.Decimal `json:"sellingPriceUdhaar" validate:"min=0"`
}

// ListFilter narrows product listings.
type ListFilter struct {
	Search   string
	Category Category
	LowStock bool
}
