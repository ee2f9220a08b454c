package billing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/krishi-kendra/krishi-kendra/internal/catalog"
	"github.com/krishi-kendra/krishi-kendra/internal/platform/db"
	"github.com/krishi-kendra/krishi-kendra/internal/shared"
	"github.com/krishi-kendra/krishi-kendra/internal/stock"
)

const billColumns = `id, bill_number, bill_type, customer_ref, customer_name, customer_mobile, customer_address,
	payment_mode, due_date, subtotal, gst, total, status, created_by, created_at, updated_at`

// PostgresRepository persists bills in PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs PostgresRepository.
func NewRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

type txRepo struct {
	tx     pgx.Tx
	ledger *catalog.Ledger
	audit  *shared.AuditLogger
}

// WithTx runs fn inside a READ COMMITTED transaction; stock and bill rows are
// locked explicitly by the callbacks.
func (r *PostgresRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx, ledger: catalog.NewLedger(tx), audit: shared.NewAuditLogger(tx)})
	})
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (Bill, error) {
	bill, err := scanBill(r.pool.QueryRow(ctx, `SELECT `+billColumns+` FROM bills WHERE id = $1`, id.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return Bill{}, ErrBillNotFound
	}
	if err != nil {
		return Bill{}, fmt.Errorf("get bill: %w", err)
	}
	items, err := loadItems(ctx, r.pool, []uuid.UUID{bill.ID})
	if err != nil {
		return Bill{}, err
	}
	bill.Items = items[bill.ID]
	return bill, nil
}

func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills WHERE 1=1`
	args := []any{}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	if filter.PaymentMode != "" {
		args = append(args, string(filter.PaymentMode))
		query += ` AND payment_mode = $` + strconv.Itoa(len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := strconv.Itoa(len(args))
		query += ` AND (bill_number ILIKE $` + n + ` OR customer_name ILIKE $` + n + ` OR customer_mobile ILIKE $` + n + `)`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	bills := make([]Bill, 0)
	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		bills = append(bills, bill)
		ids = append(ids, bill.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return bills, nil
	}

	items, err := loadItems(ctx, r.pool, ids)
	if err != nil {
		return nil, err
	}
	for i := range bills {
		bills[i].Items = items[bills[i].ID]
	}
	return bills, nil
}

func (t *txRepo) Ledger() stock.Ledger {
	return t.ledger
}

func (t *txRepo) BillNumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bills WHERE bill_number = $1)`, number).Scan(&exists)
	return exists, err
}

func (t *txRepo) InsertBill(ctx context.Context, bill *Bill) error {
	now := time.Now().UTC()
	_, err := t.tx.Exec(ctx, `INSERT INTO bills (id, bill_number, bill_type, customer_ref, customer_name, customer_mobile,
		customer_address, payment_mode, due_date, subtotal, gst, total, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)`,
		bill.ID.String(), bill.BillNumber, string(bill.BillType), bill.Customer.ID, bill.Customer.Name, bill.Customer.Mobile,
		bill.Customer.Address, string(bill.PaymentMode), bill.DueDate, bill.Subtotal, bill.GST, bill.Total,
		string(bill.Status), bill.CreatedBy, now)
	if err != nil {
		if db.IsUniqueViolation(err, "bills_bill_number_key") {
			return ErrDuplicateBillNumber
		}
		return fmt.Errorf("insert bill: %w", err)
	}

	batch := &pgx.Batch{}
	for i, item := range bill.Items {
		batch.Queue(`INSERT INTO bill_items (bill_id, line_no, product_id, product_name, quantity, rate, total)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			bill.ID.String(), i+1, item.ProductID.String(), item.ProductName, item.Quantity, item.Rate, item.Total)
	}
	if err := t.tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert bill items: %w", err)
	}
	bill.CreatedAt, bill.UpdatedAt = now, now
	return nil
}

func (t *txRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (Bill, error) {
	bill, err := scanBill(t.tx.QueryRow(ctx, `SELECT `+billColumns+` FROM bills WHERE id = $1 FOR UPDATE`, id.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return Bill{}, ErrBillNotFound
	}
	if err != nil {
		return Bill{}, fmt.Errorf("lock bill: %w", err)
	}
	items, err := loadItems(ctx, t.tx, []uuid.UUID{bill.ID})
	if err != nil {
		return Bill{}, err
	}
	bill.Items = items[bill.ID]
	return bill, nil
}

func (t *txRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (time.Time, error) {
	var updatedAt time.Time
	err := t.tx.QueryRow(ctx, `UPDATE bills SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING updated_at`,
		id.String(), string(status)).Scan(&updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, ErrBillNotFound
	}
	return updatedAt, err
}

func (t *txRepo) DeleteBill(ctx context.Context, id uuid.UUID) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM bills WHERE id = $1`, id.String())
	if err != nil {
		return fmt.Errorf("delete bill: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBillNotFound
	}
	return nil
}

func (t *txRepo) InsertAudit(ctx context.Context, log shared.AuditLog) error {
	return t.audit.Record(ctx, log)
}

func scanBill(row pgx.Row) (Bill, error) {
	var (
		b                      Bill
		billType, mode, status string
	)
	err := row.Scan(&b.ID, &b.BillNumber, &billType, &b.Customer.ID, &b.Customer.Name, &b.Customer.Mobile,
		&b.Customer.Address, &mode, &b.DueDate, &b.Subtotal, &b.GST, &b.Total, &status, &b.CreatedBy,
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return Bill{}, err
	}
	b.BillType, b.PaymentMode, b.Status = BillType(billType), PaymentMode(mode), Status(status)
	return b, nil
}

func loadItems(ctx context.Context, q catalog.Querier, ids []uuid.UUID) (map[uuid.UUID][]Item, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	rows, err := q.Query(ctx, `SELECT bill_id, product_id, product_name, quantity, rate, total
		FROM bill_items WHERE bill_id = ANY($1::uuid[]) ORDER BY bill_id, line_no`, keys)
	if err != nil {
		return nil, fmt.Errorf("load bill items: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]Item, len(ids))
	for rows.Next() {
		var (
			billID uuid.UUID
			item   Item
		)
		if err := rows.Scan(&billID, &item.ProductID, &item.ProductName, &item.Quantity, &item.Rate, &item.Total); err != nil {
			return nil, err
		}
		out[billID] = append(out[billID], item)
	}
	return out, rows.Err()
}
