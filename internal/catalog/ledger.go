package catalog

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/krishi-kendra/krishi-kendra/internal/stock"
)

// Querier is satisfied by pgx.Tx and *pgxpool.Pool.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Ledger adapts the products table to stock.Ledger. Use it with a pgx.Tx so
// row locks last until commit.
type Ledger struct {
	q Querier
}

var _ stock.Ledger = (*Ledger)(nil)

// NewLedger binds a stock ledger to q.
func NewLedger(q Querier) *Ledger {
	return &Ledger{q: q}
}

// LockProducts reads and locks the given products in ascending id order so
// concurrent bills always acquire row locks in the same sequence.
func (l *Ledger) LockProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]stock.Level, error) {
	sorted := make([]uuid.UUID, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool { return bytes.Compare(sorted[i][:], sorted[j][:]) < 0 })
	keys := make([]string, len(sorted))
	for i, id := range sorted {
		keys[i] = id.String()
	}

	rows, err := l.q.Query(ctx, `SELECT id, name, quantity FROM products
		WHERE id = ANY($1::uuid[])
		ORDER BY id
		FOR UPDATE`, keys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	levels := make(map[uuid.UUID]stock.Level, len(ids))
	for rows.Next() {
		var level stock.Level
		if err := rows.Scan(&level.ProductID, &level.Name, &level.Quantity); err != nil {
			return nil, err
		}
		levels[level.ProductID] = level
	}
	return levels, rows.Err()
}

// Decrement lowers quantity only when enough stock remains.
func (l *Ledger) Decrement(ctx context.Context, id uuid.UUID, qty int64) (bool, error) {
	tag, err := l.q.Exec(ctx, `UPDATE products SET quantity = quantity - $2, updated_at = NOW()
		WHERE id = $1 AND quantity >= $2`, id.String(), qty)
	if err != nil {
		return false, fmt.Errorf("decrement product %s: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Increment raises quantity unconditionally.
func (l *Ledger) Increment(ctx context.Context, id uuid.UUID, qty int64) (bool, error) {
	tag, err := l.q.Exec(ctx, `UPDATE products SET quantity = quantity + $2, updated_at = NOW()
		WHERE id = $1`, id.String(), qty)
	if err != nil {
		return false, fmt.Errorf("increment product %s: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}
