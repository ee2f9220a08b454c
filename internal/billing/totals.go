package billing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultGSTRate applies to pakka bills unless configured otherwise.
var DefaultGSTRate = decimal.RequireFromString("0.18")

// totalsTolerance is the largest accepted gap between client and server totals.
var totalsTolerance = decimal.RequireFromString("0.01")

// Totals holds the computed bill amounts.
type Totals struct {
	Subtotal decimal.Decimal
	GST      decimal.Decimal
	Total    decimal.Decimal
}

// ComputeTotals derives line totals and bill totals from quantities and rates.
func ComputeTotals(items []Item, billType BillType, gstRate decimal.Decimal) ([]Item, Totals) {
	out := make([]Item, len(items))
	subtotal := decimal.Zero
	for i, item := range items {
		item.Total = item.Rate.Mul(decimal.NewFromInt(item.Quantity))
		subtotal = subtotal.Add(item.Total)
		out[i] = item
	}
	gst := decimal.Zero
	if billType == BillTypePakka {
		gst = subtotal.Mul(gstRate)
	}
	return out, Totals{Subtotal: subtotal, GST: gst, Total: subtotal.Add(gst)}
}

// checkClaimed compares client-supplied totals with computed ones.
func checkClaimed(input CreateBillInput, items []Item, totals Totals) error {
	for i, in := range input.Items {
		if in.Total != nil && !within(*in.Total, items[i].Total) {
			return fmt.Errorf("%w: item %d total %s, expected %s", ErrTotalsMismatch, i+1, in.Total.String(), items[i].Total.String())
		}
	}
	claims := []struct {
		name    string
		claimed *decimal.Decimal
		actual  decimal.Decimal
	}{
		{"subtotal", input.Subtotal, totals.Subtotal},
		{"gst", input.GST, totals.GST},
		{"total", input.Total, totals.Total},
	}
	for _, c := range claims {
		if c.claimed != nil && !within(*c.claimed, c.actual) {
			return fmt.Errorf("%w: %s %s, expected %s", ErrTotalsMismatch, c.name, c.claimed.String(), c.actual.String())
		}
	}
	return nil
}

func within(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(totalsTolerance)
}
