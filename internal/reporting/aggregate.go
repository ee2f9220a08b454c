package reporting

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	statusCompleted = "completed"
	statusCancelled = "cancelled"

	modeCash   = "Cash"
	modeUdhaar = "Udhaar"

	dateLayout  = "02/01/2006"
	noDueDate   = "No Due Date"
	trendMonths = 6
)

// rupees rounds half away from zero to whole currency units.
func rupees(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

func startOfMonth(t time.Time, loc *time.Location, offset int) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month()+time.Month(offset), 1, 0, 0, 0, 0, loc)
}

// trendStart is the first instant covered by the monthly sales series.
func trendStart(now time.Time, loc *time.Location) time.Time {
	return startOfMonth(now, loc, -(trendMonths - 1))
}

// BuildDashboard derives today's figures and the six-month trend from bills
// created since trendStart. Cancelled bills are ignored.
func BuildDashboard(recent []BillSummary, outstanding Outstanding, now time.Time, loc *time.Location) Dashboard {
	today := startOfDay(now, loc)
	tomorrow := today.AddDate(0, 0, 1)

	buckets := make([]decimal.Decimal, trendMonths)
	starts := make([]time.Time, trendMonths+1)
	for i := 0; i <= trendMonths; i++ {
		starts[i] = startOfMonth(now, loc, i-(trendMonths-1))
	}

	var todayAll, todayCash, todayUdhaar decimal.Decimal
	for _, b := range recent {
		if b.Status == statusCancelled {
			continue
		}
		if !b.CreatedAt.Before(today) && b.CreatedAt.Before(tomorrow) {
			todayAll = todayAll.Add(b.Total)
			switch b.PaymentMode {
			case modeCash:
				todayCash = todayCash.Add(b.Total)
			case modeUdhaar:
				todayUdhaar = todayUdhaar.Add(b.Total)
			}
		}
		for i := 0; i < trendMonths; i++ {
			if !b.CreatedAt.Before(starts[i]) && b.CreatedAt.Before(starts[i+1]) {
				buckets[i] = buckets[i].Add(b.Total)
				break
			}
		}
	}

	monthly := make([]MonthlySales, trendMonths)
	for i := range monthly {
		monthly[i] = MonthlySales{
			Month: starts[i].Month().String()[:3],
			Year:  starts[i].Year(),
			Sales: rupees(buckets[i]),
		}
	}

	return Dashboard{
		TodaySales:          rupees(todayAll),
		TodayCashSales:      rupees(todayCash),
		TodayUdhaarSales:    rupees(todayUdhaar),
		PendingUdhaarAmount: rupees(outstanding.PendingUdhaar),
		TotalBills:          outstanding.ActiveBills,
		MonthlySales:        monthly,
	}
}

// OutstandingFrom computes dashboard totals from a full bill list. The SQL
// repository does the same in the database.
func OutstandingFrom(bills []BillSummary) Outstanding {
	var out Outstanding
	for _, b := range bills {
		if b.Status == statusCancelled {
			continue
		}
		out.ActiveBills++
		if b.PaymentMode == modeUdhaar && isPending(b.Status) {
			out.PendingUdhaar = out.PendingUdhaar.Add(b.Total)
		}
	}
	return out
}

// BuildSalesReport groups non-cancelled bills by local calendar day, newest
// day first.
func BuildSalesReport(bills []BillSummary, loc *time.Location) []DailySales {
	type acc struct {
		day               time.Time
		total, cash, udhr decimal.Decimal
		count             int
	}
	byDay := make(map[time.Time]*acc)
	for _, b := range bills {
		if b.Status == statusCancelled {
			continue
		}
		day := startOfDay(b.CreatedAt, loc)
		a, ok := byDay[day]
		if !ok {
			a = &acc{day: day}
			byDay[day] = a
		}
		a.total = a.total.Add(b.Total)
		a.count++
		if b.PaymentMode == modeCash {
			a.cash = a.cash.Add(b.Total)
		} else {
			a.udhr = a.udhr.Add(b.Total)
		}
	}

	days := make([]*acc, 0, len(byDay))
	for _, a := range byDay {
		days = append(days, a)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].day.After(days[j].day) })

	out := make([]DailySales, len(days))
	for i, a := range days {
		out[i] = DailySales{
			Date:   a.day.Format(dateLayout),
			Total:  rupees(a.total),
			Count:  a.count,
			Cash:   rupees(a.cash),
			Udhaar: rupees(a.udhr),
		}
	}
	return out
}

// BuildUdhaarReport lists non-cancelled credit bills by due date; bills
// without a due date come last.
func BuildUdhaarReport(bills []BillSummary, now time.Time, loc *time.Location) UdhaarReport {
	credit := make([]BillSummary, 0, len(bills))
	for _, b := range bills {
		if b.PaymentMode == modeUdhaar && b.Status != statusCancelled {
			credit = append(credit, b)
		}
	}
	sort.SliceStable(credit, func(i, j int) bool {
		a, b := credit[i], credit[j]
		switch {
		case a.DueDate == nil && b.DueDate == nil:
			return a.CreatedAt.Before(b.CreatedAt)
		case a.DueDate == nil:
			return false
		case b.DueDate == nil:
			return true
		case !a.DueDate.Equal(*b.DueDate):
			return a.DueDate.Before(*b.DueDate)
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	})

	today := startOfDay(now, loc)
	report := UdhaarReport{Report: make([]UdhaarRow, 0, len(credit))}
	var total, pending decimal.Decimal
	for _, b := range credit {
		row := UdhaarRow{
			BillNumber:     b.BillNumber,
			CustomerName:   b.CustomerName,
			CustomerMobile: b.CustomerMobile,
			Amount:         b.Total,
			DueDate:        noDueDate,
			Status:         b.Status,
			CreatedAt:      b.CreatedAt.In(loc).Format(dateLayout),
			IsPending:      isPending(b.Status),
		}
		if b.DueDate != nil {
			row.DueDate = b.DueDate.In(loc).Format(dateLayout)
			row.IsOverdue = row.IsPending && b.DueDate.Before(today)
		}
		total = total.Add(b.Total)
		if row.IsPending {
			pending = pending.Add(b.Total)
		}
		report.Report = append(report.Report, row)
	}
	report.Summary = UdhaarSummary{
		TotalUdhaar:     rupees(total),
		PendingUdhaar:   rupees(pending),
		CompletedUdhaar: rupees(total.Sub(pending)),
		TotalBills:      len(credit),
	}
	return report
}

// BuildStockReport orders products by ascending quantity and flags those at
// or below their alert level.
func BuildStockReport(items []StockItem) StockReport {
	sorted := make([]StockItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Quantity < sorted[j].Quantity })

	report := StockReport{Report: make([]StockRow, 0, len(sorted))}
	var value decimal.Decimal
	for _, p := range sorted {
		status := StockOK
		if p.Quantity <= p.QuantityAlert {
			status = StockLow
			report.Summary.LowStockProducts++
		}
		report.Report = append(report.Report, StockRow{
			ID:                 p.ID,
			Name:               p.Name,
			Company:            p.Company,
			Category:           p.Category,
			CurrentStock:       p.Quantity,
			AlertLevel:         p.QuantityAlert,
			Status:             status,
			BuyingPrice:        p.BuyingPrice,
			SellingPriceCash:   p.SellingPriceCash,
			SellingPriceUdhaar: p.SellingPriceUdhaar,
		})
		report.Summary.TotalStock += p.Quantity
		value = value.Add(p.BuyingPrice.Mul(decimal.NewFromInt(p.Quantity)))
	}
	report.Summary.TotalProducts = len(sorted)
	report.Summary.TotalValue = rupees(value)
	return report
}

// BuildProductSales aggregates sold lines per product id, labelled with the
// most recent name seen, highest sales first.
func BuildProductSales(lines []SoldLine) []ProductSales {
	type acc struct {
		row    ProductSales
		total  decimal.Decimal
		seenAt time.Time
	}
	byProduct := make(map[uuid.UUID]*acc)
	for _, l := range lines {
		a, ok := byProduct[l.ProductID]
		if !ok {
			a = &acc{row: ProductSales{ProductID: l.ProductID}}
			byProduct[l.ProductID] = a
		}
		if !l.SoldAt.Before(a.seenAt) {
			a.row.ProductName, a.seenAt = l.ProductName, l.SoldAt
		}
		a.row.Quantity += l.Quantity
		a.row.BillCount++
		a.total = a.total.Add(l.Total)
	}

	accs := make([]*acc, 0, len(byProduct))
	for _, a := range byProduct {
		accs = append(accs, a)
	}
	sort.Slice(accs, func(i, j int) bool {
		if c := accs[i].total.Cmp(accs[j].total); c != 0 {
			return c > 0
		}
		return accs[i].row.ProductName < accs[j].row.ProductName
	})

	out := make([]ProductSales, len(accs))
	for i, a := range accs {
		a.row.TotalSales = rupees(a.total)
		out[i] = a.row
	}
	return out
}

func isPending(status string) bool {
	return status != statusCompleted && status != statusCancelled
}
