package stock

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"
)

// Ledger is the per-product quantity store as seen from inside one
// transaction. Implementations must make Decrement and Increment atomic per
// product and must keep rows returned by LockProducts locked until the
// transaction ends.
type Ledger interface {
	LockProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Level, error)
	// Decrement lowers quantity by qty only when quantity >= qty. It reports
	// false when no row was changed.
	Decrement(ctx context.Context, id uuid.UUID, qty int64) (bool, error)
	// Increment raises quantity by qty. It reports false when the product
	// does not exist.
	Increment(ctx context.Context, id uuid.UUID, qty int64) (bool, error)
}

// Observer receives engine outcomes, typically Prometheus counters.
type Observer interface {
	StockShortage(product string)
	StockMutationFailed(op string)
	StockMoved(op string, units int64)
}

// Engine validates and applies stock movements for bills.
type Engine struct {
	logger   *slog.Logger
	observer Observer
}

// NewEngine builds an Engine. Both arguments are optional.
func NewEngine(logger *slog.Logger, observer Observer) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger, observer: observer}
}

// ValidateAndDebit checks every line against locked quantities and only then
// decrements each product. A shortage on any line returns *StockError before
// any product is modified.
func (e *Engine) ValidateAndDebit(ctx context.Context, ledger Ledger, lines []Line) error {
	return e.debit(ctx, ledger, lines, false)
}

// Withdraw takes back stock added by an earlier Credit. Lines are validated
// the same way as ValidateAndDebit, except that products which no longer
// exist are skipped, mirroring Credit.
func (e *Engine) Withdraw(ctx context.Context, ledger Ledger, lines []Line) error {
	return e.debit(ctx, ledger, lines, true)
}

func (e *Engine) debit(ctx context.Context, ledger Ledger, lines []Line, skipMissing bool) error {
	demand, order, names, err := collapse(lines)
	if err != nil {
		return err
	}
	levels, err := ledger.LockProducts(ctx, order)
	if err != nil {
		return fmt.Errorf("stock: lock products: %w", err)
	}

	present := make([]uuid.UUID, 0, len(order))
	for _, id := range order {
		level, ok := levels[id]
		if !ok {
			if skipMissing {
				e.logger.WarnContext(ctx, "withdrawal skipped for missing product",
					slog.String("product_id", id.String()),
					slog.String("product", names[id]),
					slog.Int64("quantity", demand[id]))
				continue
			}
			return fmt.Errorf("%w: %s", ErrProductNotFound, displayName(names[id], id))
		}
		if level.Quantity < demand[id] {
			name := level.Name
			if name == "" {
				name = displayName(names[id], id)
			}
			if e.observer != nil {
				e.observer.StockShortage(name)
			}
			return &StockError{ProductID: id, Product: name, Available: level.Quantity, Required: demand[id]}
		}
		present = append(present, id)
	}

	var units int64
	for _, id := range present {
		changed, err := ledger.Decrement(ctx, id, demand[id])
		if err == nil && !changed {
			err = errRowUnchanged
		}
		if err != nil {
			return e.mutationFailed(ctx, "debit", id, err)
		}
		units += demand[id]
	}
	if e.observer != nil {
		e.observer.StockMoved("debit", units)
	}
	return nil
}

// Credit returns quantities to stock. Rows are locked in the same order as
// ValidateAndDebit before any increment. Products that no longer exist are
// skipped: bills keep weak references and a deleted product has no stock to
// restore.
func (e *Engine) Credit(ctx context.Context, ledger Ledger, lines []Line) error {
	_, err := e.CreditExisting(ctx, ledger, lines)
	return err
}

// CreditExisting behaves like Credit and reports the products that were
// actually credited, in first-appearance order.
func (e *Engine) CreditExisting(ctx context.Context, ledger Ledger, lines []Line) ([]uuid.UUID, error) {
	demand, order, names, err := collapse(lines)
	if err != nil {
		return nil, err
	}
	levels, err := ledger.LockProducts(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("stock: lock products: %w", err)
	}
	var units int64
	credited := make([]uuid.UUID, 0, len(order))
	for _, id := range order {
		if _, ok := levels[id]; !ok {
			e.logger.WarnContext(ctx, "credit skipped for missing product",
				slog.String("product_id", id.String()),
				slog.String("product", names[id]),
				slog.Int64("quantity", demand[id]))
			continue
		}
		changed, err := ledger.Increment(ctx, id, demand[id])
		if err == nil && !changed {
			err = errRowUnchanged
		}
		if err != nil {
			return nil, e.mutationFailed(ctx, "credit", id, err)
		}
		units += demand[id]
		credited = append(credited, id)
	}
	if e.observer != nil {
		e.observer.StockMoved("credit", units)
	}
	return credited, nil
}

func (e *Engine) mutationFailed(ctx context.Context, op string, id uuid.UUID, err error) error {
	e.logger.ErrorContext(ctx, "stock mutation failed after validation",
		slog.String("op", op),
		slog.String("product_id", id.String()),
		slog.Any("error", err))
	if e.observer != nil {
		e.observer.StockMutationFailed(op)
	}
	return &StockMutationError{Op: op, ProductID: id, Err: err}
}

// collapse sums quantities per product, keeping first-appearance order.
func collapse(lines []Line) (map[uuid.UUID]int64, []uuid.UUID, map[uuid.UUID]string, error) {
	if len(lines) == 0 {
		return nil, nil, nil, ErrNoLines
	}
	demand := make(map[uuid.UUID]int64, len(lines))
	names := make(map[uuid.UUID]string, len(lines))
	order := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, nil, nil, fmt.Errorf("%w: %s must be greater than zero",
				ErrInvalidQuantity, displayName(line.ProductName, line.ProductID))
		}
		current, seen := demand[line.ProductID]
		if !seen {
			order = append(order, line.ProductID)
			names[line.ProductID] = line.ProductName
		}
		if current > math.MaxInt64-line.Quantity {
			return nil, nil, nil, fmt.Errorf("%w: combined quantity for %s is too large",
				ErrInvalidQuantity, displayName(names[line.ProductID], line.ProductID))
		}
		demand[line.ProductID] = current + line.Quantity
	}
	return demand, order, names, nil
}

func displayName(name string, id uuid.UUID) string {
	if name != "" {
		return name
	}
	return id.String()
}
