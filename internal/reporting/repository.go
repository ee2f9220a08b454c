package reporting

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository reads report inputs from PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs PostgresRepository.
func NewRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) BillSummaries(ctx context.Context, q BillQuery) ([]BillSummary, error) {
	query := `SELECT id, bill_number, customer_name, customer_mobile, payment_mode, status, due_date, total, created_at
		FROM bills WHERE 1=1`
	args := []any{}
	if !q.Since.IsZero() {
		args = append(args, q.Since)
		query += ` AND created_at >= $` + strconv.Itoa(len(args))
	}
	if q.PaymentMode != "" {
		args = append(args, q.PaymentMode)
		query += ` AND payment_mode = $` + strconv.Itoa(len(args))
	}
	if !q.IncludeCancelled {
		query += ` AND status <> 'cancelled'`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("report bills: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (BillSummary, error) {
		var b BillSummary
		err := row.Scan(&b.ID, &b.BillNumber, &b.CustomerName, &b.CustomerMobile, &b.PaymentMode, &b.Status,
			&b.DueDate, &b.Total, &b.CreatedAt)
		return b, err
	})
}

func (r *PostgresRepository) Outstanding(ctx context.Context) (Outstanding, error) {
	var out Outstanding
	err := r.pool.QueryRow(ctx, `SELECT
			COUNT(*) FILTER (WHERE status <> 'cancelled'),
			COALESCE(SUM(total) FILTER (WHERE payment_mode = 'Udhaar' AND status NOT IN ('cancelled', 'completed')), 0)
		FROM bills`).Scan(&out.ActiveBills, &out.PendingUdhaar)
	if err != nil {
		return Outstanding{}, fmt.Errorf("report outstanding: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) SoldLines(ctx context.Context) ([]SoldLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT i.product_id, i.product_name, i.quantity, i.total, b.created_at
		FROM bill_items i
		JOIN bills b ON b.id = i.bill_id
		WHERE b.status <> 'cancelled'
		ORDER BY b.created_at, i.line_no`)
	if err != nil {
		return nil, fmt.Errorf("report sold lines: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (SoldLine, error) {
		var l SoldLine
		err := row.Scan(&l.ProductID, &l.ProductName, &l.Quantity, &l.Total, &l.SoldAt)
		return l, err
	})
}

func (r *PostgresRepository) StockItems(ctx context.Context) ([]StockItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, company, category, quantity, quantity_alert,
			buying_price, selling_price_cash, selling_price_udhaar
		FROM products ORDER BY quantity ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("report stock: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (StockItem, error) {
		var p StockItem
		err := row.Scan(&p.ID, &p.Name, &p.Company, &p.Category, &p.Quantity, &p.QuantityAlert,
			&p.BuyingPrice, &p.SellingPriceCash, &p.SellingPriceUdhaar)
		return p, err
	})
}
