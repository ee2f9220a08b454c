package purchases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/krishi-kendra/krishi-kendra/internal/catalog"
	"github.com/krishi-kendra/krishi-kendra/internal/platform/db"
	"github.com/krishi-kendra/krishi-kendra/internal/shared"
	"github.com/krishi-kendra/krishi-kendra/internal/stock"
)

const (
	purchaseColumns   = `id, company_name, items, total_amount, payment_date, notes, stock_credited, created_at, updated_at`
	idempotencyModule = "purchases"
)

// PostgresRepository persists purchases in PostgreSQL.
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
	keys   *shared.IdempotencyStore
}

func (r *PostgresRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{
			tx:     tx,
			ledger: catalog.NewLedger(tx),
			audit:  shared.NewAuditLogger(tx),
			keys:   shared.NewIdempotencyStore(tx),
		})
	})
}

func (r *PostgresRepository) List(ctx context.Context) ([]Purchase, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+purchaseColumns+` FROM company_purchases ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()
	out := make([]Purchase, 0)
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (Purchase, error) {
	p, err := scanPurchase(r.pool.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM company_purchases WHERE id = $1`, id.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return Purchase{}, ErrPurchaseNotFound
	}
	if err != nil {
		return Purchase{}, fmt.Errorf("get purchase: %w", err)
	}
	return p, nil
}

func (t *txRepo) Ledger() stock.Ledger {
	return t.ledger
}

func (t *txRepo) ClaimKey(ctx context.Context, key string) error {
	err := t.keys.CheckAndInsert(ctx, key, idempotencyModule)
	if errors.Is(err, shared.ErrIdempotencyConflict) {
		return ErrDuplicateRequest
	}
	return err
}

func (t *txRepo) Insert(ctx context.Context, p *Purchase) error {
	items, err := json.Marshal(p.Items)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = t.tx.Exec(ctx, `INSERT INTO company_purchases (id, company_name, items, total_amount, payment_date, notes, stock_credited, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		p.ID.String(), p.CompanyName, items, p.TotalAmount, p.PaymentDate, p.Notes, p.StockCredited, now)
	if err != nil {
		return fmt.Errorf("insert purchase: %w", err)
	}
	p.CreatedAt, p.UpdatedAt = now, now
	return nil
}

func (t *txRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (Purchase, error) {
	p, err := scanPurchase(t.tx.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM company_purchases WHERE id = $1 FOR UPDATE`, id.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return Purchase{}, ErrPurchaseNotFound
	}
	if err != nil {
		return Purchase{}, fmt.Errorf("lock purchase: %w", err)
	}
	return p, nil
}

func (t *txRepo) Update(ctx context.Context, p *Purchase) error {
	items, err := json.Marshal(p.Items)
	if err != nil {
		return err
	}
	err = t.tx.QueryRow(ctx, `UPDATE company_purchases
		SET company_name = $2, items = $3, total_amount = $4, payment_date = $5, notes = $6,
			stock_credited = $7, updated_at = NOW()
		WHERE id = $1 RETURNING created_at, updated_at`,
		p.ID.String(), p.CompanyName, items, p.TotalAmount, p.PaymentDate, p.Notes, p.StockCredited).Scan(&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrPurchaseNotFound
	}
	if err != nil {
		return fmt.Errorf("update purchase: %w", err)
	}
	return nil
}

func (t *txRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM company_purchases WHERE id = $1`, id.String())
	if err != nil {
		return fmt.Errorf("delete purchase: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPurchaseNotFound
	}
	return nil
}

func (t *txRepo) InsertAudit(ctx context.Context, log shared.AuditLog) error {
	return t.audit.Record(ctx, log)
}

func scanPurchase(row pgx.Row) (Purchase, error) {
	var (
		p     Purchase
		items []byte
	)
	if err := row.Scan(&p.ID, &p.CompanyName, &items, &p.TotalAmount, &p.PaymentDate, &p.Notes, &p.StockCredited, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Purchase{}, err
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &p.Items); err != nil {
			return Purchase{}, fmt.Errorf("decode purchase items: %w", err)
		}
	}
	if p.Items == nil {
		p.Items = []Item{}
	}
	return p, nil
}
