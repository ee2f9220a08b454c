// Package reporting derives dashboard and report views from bills and
// products. It never mutates either.
package reporting

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillSummary is the slice of a bill the reports need.
type BillSummary struct {
	ID             uuid.UUID
	BillNumber     string
	CustomerName   string
	CustomerMobile string
	PaymentMode    string
	Status         string
	DueDate        *time.Time
	Total          decimal.Decimal
	CreatedAt      time.Time
}

// SoldLine is one line item of a non-cancelled bill.
type SoldLine struct {
	ProductID   uuid.UUID
	ProductName string
	Quantity    int64
	Total       decimal.Decimal
	SoldAt      time.Time
}

// StockItem is the product data behind the stock report.
type StockItem struct {
	ID                 uuid.UUID
	Name               string
	Company            string
	Category           string
	Quantity           int64
	QuantityAlert      int64
	BuyingPrice        decimal.Decimal
	SellingPriceCash   decimal.Decimal
	SellingPriceUdhaar decimal.Decimal
}

// BillQuery selects bill summaries.
type BillQuery struct {
	Since            time.Time
	PaymentMode      string
	IncludeCancelled bool
}

// Outstanding holds all-time aggregates used by the dashboard.
type Outstanding struct {
	ActiveBills   int
	PendingUdhaar decimal.Decimal
}

// MonthlySales is one bucket of the dashboard trend.
type MonthlySales struct {
	Month string `json:"month"`
	Year  int    `json:"year"`
	Sales int64  `json:"sales"`
}

// Dashboard is the landing-page summary.
type Dashboard struct {
	TodaySales          int64          `json:"todaySales"`
	TodayCashSales      int64          `json:"todayCashSales"`
	TodayUdhaarSales    int64          `json:"todayUdhaarSales"`
	PendingUdhaarAmount int64          `json:"pendingUdhaarAmount"`
	TotalBills          int            `json:"totalBills"`
	MonthlySales        []MonthlySales `json:"monthlySalesData"`
}

// DailySales is one row of the sales report.
type DailySales struct {
	Date   string `json:"date"`
	Total  int64  `json:"total"`
	Count  int    `json:"count"`
	Cash   int64  `json:"cash"`
	Udhaar int64  `json:"udhaar"`
}

// UdhaarRow is one credit bill in the Udhaar report.
type UdhaarRow struct {
	BillNumber     string          `json:"billNumber"`
	CustomerName   string          `json:"customerName"`
	CustomerMobile string          `json:"customerMobile"`
	Amount         decimal.Decimal `json:"amount"`
	DueDate        string          `json:"dueDate"`
	Status         string          `json:"status"`
	CreatedAt      string          `json:"createdAt"`
	IsPending      bool            `json:"isPending"`
	IsOverdue      bool            `json:"isOverdue"`
}

// UdhaarSummary totals the Udhaar report.
type UdhaarSummary struct {
	TotalUdhaar     int64 `json:"totalUdhaar"`
	PendingUdhaar   int64 `json:"pendingUdhaar"`
	CompletedUdhaar int64 `json:"completedUdhaar"`
	TotalBills      int   `json:"totalBills"`
}

// UdhaarReport lists outstanding and settled credit bills.
type UdhaarReport struct {
	Report  []UdhaarRow   `json:"report"`
	Summary UdhaarSummary `json:"summary"`
}

// Stock status labels.
const (
	StockLow = "Low Stock"
	StockOK  = "In Stock"
)

// StockRow is one product in the stock report.
type StockRow struct {
	ID                 uuid.UUID       `json:"id"`
	Name               string          `json:"name"`
	Company            string          `json:"company"`
	Category           string          `json:"category"`
	CurrentStock       int64           `json:"currentStock"`
	AlertLevel         int64           `json:"alertLevel"`
	Status             string          `json:"status"`
	BuyingPrice        decimal.Decimal `json:"buyingPrice"`
	SellingPriceCash   decimal.Decimal `json:"sellingPriceCash"`
	SellingPriceUdhaar decimal.Decimal `json:"sellingPriceUdhaar"`
}

// StockSummary totals the stock report.
type StockSummary struct {
	TotalProducts    int   `json:"totalProducts"`
	TotalStock       int64 `json:"totalStock"`
	LowStockProducts int   `json:"lowStockProducts"`
	TotalValue       int64 `json:"totalValue"`
}

// StockReport lists products from scarcest to most plentiful.
type StockReport struct {
	Report  []StockRow   `json:"report"`
	Summary StockSummary `json:"summary"`
}

// ProductSales aggregates sold lines for one product.
type ProductSales struct {
	ProductID   uuid.UUID `json:"productId"`
	ProductName string    `json:"productName"`
	Quantity    int64     `json:"quantity"`
	TotalSales  int64     `json:"totalSales"`
	BillCount   int       `json:"billCount"`
}
