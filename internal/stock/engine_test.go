package stock

import (
	"bytes"
	"context"
	"errors"
	"math"
	"runtime"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/krishi-kendra/krishi-kendra/internal/shared"
)

// memoryLedger mimics row-level locking: LockProducts takes a per-product
// lock held until the transaction ends, and Decrement/Increment are atomic
// conditional updates. Transactions over disjoint products run in parallel.
type memoryLedger struct {
	mu       sync.Mutex
	levels   map[uuid.UUID]Level
	rows     map[uuid.UUID]*sync.Mutex
	failNext bool
}

type memoryTx struct {
	ledger *memoryLedger
	locked []uuid.UUID
	undo   map[uuid.UUID]int64
}

func newMemoryLedger(levels ...Level) *memoryLedger {
	l := &memoryLedger{levels: make(map[uuid.UUID]Level), rows: make(map[uuid.UUID]*sync.Mutex)}
	for _, level := range levels {
		l.levels[level.ProductID] = level
	}
	return l
}

func (l *memoryLedger) withTx(fn func(Ledger) error) error {
	tx := &memoryTx{ledger: l, undo: make(map[uuid.UUID]int64)}
	defer tx.release()
	if err := fn(tx); err != nil {
		l.mu.Lock()
		for id, delta := range tx.undo {
			level := l.levels[id]
			level.Quantity -= delta
			l.levels[id] = level
		}
		l.mu.Unlock()
		return err
	}
	return nil
}

func (l *memoryLedger) quantity(id uuid.UUID) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.levels[id].Quantity
}

func (l *memoryLedger) row(id uuid.UUID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.rows[id]
	if !ok {
		m = &sync.Mutex{}
		l.rows[id] = m
	}
	return m
}

func (tx *memoryTx) release() {
	for i := len(tx.locked) - 1; i >= 0; i-- {
		tx.ledger.row(tx.locked[i]).Unlock()
	}
	tx.locked = nil
}

func (tx *memoryTx) holds(id uuid.UUID) bool {
	for _, locked := range tx.locked {
		if locked == id {
			return true
		}
	}
	return false
}

func (tx *memoryTx) LockProducts(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]Level, error) {
	sorted := append([]uuid.UUID(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return bytes.Compare(sorted[i][:], sorted[j][:]) < 0 })
	for _, id := range sorted {
		if tx.holds(id) {
			continue
		}
		tx.ledger.row(id).Lock()
		tx.locked = append(tx.locked, id)
		runtime.Gosched()
	}

	tx.ledger.mu.Lock()
	defer tx.ledger.mu.Unlock()
	out := make(map[uuid.UUID]Level, len(ids))
	for _, id := range ids {
		if level, ok := tx.ledger.levels[id]; ok {
			out[id] = level
		}
	}
	return out, nil
}

func (tx *memoryTx) Decrement(_ context.Context, id uuid.UUID, qty int64) (bool, error) {
	tx.ledger.mu.Lock()
	defer tx.ledger.mu.Unlock()
	if tx.ledger.failNext {
		tx.ledger.failNext = false
		return false, errors.New("connection reset")
	}
	level, ok := tx.ledger.levels[id]
	if !ok || level.Quantity < qty {
		return false, nil
	}
	level.Quantity -= qty
	tx.ledger.levels[id] = level
	tx.undo[id] -= qty
	return true, nil
}

func (tx *memoryTx) Increment(_ context.Context, id uuid.UUID, qty int64) (bool, error) {
	tx.ledger.mu.Lock()
	defer tx.ledger.mu.Unlock()
	level, ok := tx.ledger.levels[id]
	if !ok {
		return false, nil
	}
	level.Quantity += qty
	tx.ledger.levels[id] = level
	tx.undo[id] += qty
	return true, nil
}

type countingObserver struct {
	shortages int
	failures  int
	moved     map[string]int64
}

func (o *countingObserver) StockShortage(string)       { o.shortages++ }
func (o *countingObserver) StockMutationFailed(string) { o.failures++ }
func (o *countingObserver) StockMoved(op string, units int64) {
	if o.moved == nil {
		o.moved = make(map[string]int64)
	}
	o.moved[op] += units
}

func TestValidateAndDebitAllOrNothing(t *testing.T) {
	urea, dap := uuid.New(), uuid.New()
	ledger := newMemoryLedger(
		Level{ProductID: urea, Name: "Urea", Quantity: 10},
		Level{ProductID: dap, Name: "DAP", Quantity: 5},
	)
	obs := &countingObserver{}
	engine := NewEngine(nil, obs)
	ctx := context.Background()

	err := ledger.withTx(func(l Ledger) error {
		return engine.ValidateAndDebit(ctx, l, []Line{
			{ProductID: urea, ProductName: "Urea", Quantity: 3},
			{ProductID: dap, ProductName: "DAP", Quantity: 6},
		})
	})
	var stockErr *StockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, "DAP", stockErr.Product)
	require.EqualValues(t, 5, stockErr.Available)
	require.EqualValues(t, 6, stockErr.Required)
	require.EqualValues(t, 10, ledger.quantity(urea))
	require.EqualValues(t, 5, ledger.quantity(dap))
	require.Equal(t, 1, obs.shortages)

	err = ledger.withTx(func(l Ledger) error {
		return engine.ValidateAndDebit(ctx, l, []Line{
			{ProductID: urea, ProductName: "Urea", Quantity: 3},
			{ProductID: dap, ProductName: "DAP", Quantity: 5},
		})
	})
	require.NoError(t, err)
	require.EqualValues(t, 7, ledger.quantity(urea))
	require.EqualValues(t, 0, ledger.quantity(dap))
	require.EqualValues(t, 8, obs.moved["debit"])
}

func TestValidateAndDebitSumsDuplicateLines(t *testing.T) {
	urea := uuid.New()
	ledger := newMemoryLedger(Level{ProductID: urea, Name: "Urea", Quantity: 6})
	engine := NewEngine(nil, nil)

	err := ledger.withTx(func(l Ledger) error {
		return engine.ValidateAndDebit(context.Background(), l, []Line{
			{ProductID: urea, Quantity: 4},
			{ProductID: urea, Quantity: 4},
		})
	})
	var stockErr *StockError
	require.ErrorAs(t, err, &stockErr)
	require.EqualValues(t, 8, stockErr.Required)
	require.EqualValues(t, 6, ledger.quantity(urea))
}

func TestValidateAndDebitRejectsBadInput(t *testing.T) {
	urea := uuid.New()
	ledger := newMemoryLedger(Level{ProductID: urea, Name: "Urea", Quantity: 6})
	engine := NewEngine(nil, nil)
	ctx := context.Background()

	err := ledger.withTx(func(l Ledger) error {
		return engine.ValidateAndDebit(ctx, l, nil)
	})
	require.ErrorIs(t, err, ErrNoLines)

	err = ledger.withTx(func(l Ledger) error {
		return engine.ValidateAndDebit(ctx, l, []Line{{ProductID: urea, Quantity: 0}})
	})
	require.ErrorIs(t, err, ErrInvalidQuantity)
	require.ErrorIs(t, err, shared.ErrValidation)

	err = ledger.withTx(func(l Ledger) error {
		return engine.ValidateAndDebit(ctx, l, []Line{
			{ProductID: urea, Quantity: 1},
			{ProductID: uuid.New(), ProductName: "Ghost", Quantity: 1},
		})
	})
	require.ErrorIs(t, err, ErrProductNotFound)
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Contains(t, err.Error(), "Ghost")
	require.EqualValues(t, 6, ledger.quantity(urea))
}

func TestValidateAndDebitMutationFailureRollsBack(t *testing.T) {
	urea, dap := uuid.New(), uuid.New()
	ledger := newMemoryLedger(
		Level{ProductID: urea, Name: "Urea", Quantity: 10},
		Level{ProductID: dap, Name: "DAP", Quantity: 10},
	)
	obs := &countingObserver{}
	engine := NewEngine(nil, obs)

	err := ledger.withTx(func(l Ledger) error {
		tx := l.(*memoryTx)
		if _, err := tx.Decrement(context.Background(), urea, 2); err != nil {
			return err
		}
		tx.ledger.failNext = true
		return engine.ValidateAndDebit(context.Background(), l, []Line{{ProductID: dap, Quantity: 1}})
	})
	var mutation *StockMutationError
	require.ErrorAs(t, err, &mutation)
	require.Equal(t, "debit", mutation.Op)
	require.Equal(t, dap, mutation.ProductID)
	require.EqualValues(t, 10, ledger.quantity(urea))
	require.EqualValues(t, 10, ledger.quantity(dap))
	require.Equal(t, 1, obs.failures)
}

func TestCreditRestoresAndSkipsMissingProducts(t *testing.T) {
	urea := uuid.New()
	ledger := newMemoryLedger(Level{ProductID: urea, Name: "Urea", Quantity: 1})
	obs := &countingObserver{}
	engine := NewEngine(nil, obs)

	err := ledger.withTx(func(l Ledger) error {
		return engine.Credit(context.Background(), l, []Line{
			{ProductID: urea, Quantity: 4},
			{ProductID: uuid.New(), ProductName: "Discontinued", Quantity: 2},
		})
	})
	require.NoError(t, err)
	require.EqualValues(t, 5, ledger.quantity(urea))
	require.EqualValues(t, 4, obs.moved["credit"])
}

func TestConcurrentDebitsNeverOversell(t *testing.T) {
	urea := uuid.New()
	ledger := newMemoryLedger(Level{ProductID: urea, Name: "Urea", Quantity: 10})
	engine := NewEngine(nil, nil)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		shortages int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := ledger.withTx(func(l Ledger) error {
				return engine.ValidateAndDebit(context.Background(), l, []Line{{ProductID: urea, Quantity: 3}})
			})
			mu.Lock()
			defer mu.Unlock()
			var stockErr *StockError
			switch {
			case err == nil:
				succeeded++
			case errors.As(err, &stockErr):
				shortages++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 3, succeeded)
	require.Equal(t, 22, shortages)
	require.EqualValues(t, 1, ledger.quantity(urea))
}

func TestStockErrorProblemFields(t *testing.T) {
	err := &StockError{ProductID: uuid.New(), Product: "Urea", Available: 6, Required: 10}
	require.Equal(t, 422, err.ProblemStatus())
	require.Equal(t, "Insufficient stock for Urea. Available: 6, Required: 10", err.Error())
	fields := err.ProblemFields()
	require.Equal(t, "Urea", fields["product"])
	require.EqualValues(t, 6, fields["available"])
	require.EqualValues(t, 10, fields["required"])
}

func TestValidateAndDebitRejectsOverflowingTotals(t *testing.T) {
	urea := uuid.New()
	ledger := newMemoryLedger(Level{ProductID: urea, Name: "Urea", Quantity: 6})
	engine := NewEngine(nil, nil)

	err := ledger.withTx(func(l Ledger) error {
		return engine.ValidateAndDebit(context.Background(), l, []Line{
			{ProductID: urea, ProductName: "Urea", Quantity: math.MaxInt64},
			{ProductID: urea, ProductName: "Urea", Quantity: math.MaxInt64},
		})
	})
	require.ErrorIs(t, err, ErrInvalidQuantity)
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Contains(t, err.Error(), "Urea")
	require.EqualValues(t, 6, ledger.quantity(urea))
}

func TestWithdrawSkipsMissingProductsButKeepsShortageCheck(t *testing.T) {
	urea := uuid.New()
	ledger := newMemoryLedger(Level{ProductID: urea, Name: "Urea", Quantity: 5})
	obs := &countingObserver{}
	engine := NewEngine(nil, obs)
	ctx := context.Background()

	err := ledger.withTx(func(l Ledger) error {
		return engine.Withdraw(ctx, l, []Line{
			{ProductID: urea, ProductName: "Urea", Quantity: 6},
			{ProductID: uuid.New(), ProductName: "Discontinued", Quantity: 1},
		})
	})
	var stockErr *StockError
	require.ErrorAs(t, err, &stockErr)
	require.EqualValues(t, 5, ledger.quantity(urea))

	err = ledger.withTx(func(l Ledger) error {
		return engine.Withdraw(ctx, l, []Line{
			{ProductID: urea, ProductName: "Urea", Quantity: 3},
			{ProductID: uuid.New(), ProductName: "Discontinued", Quantity: 1},
		})
	})
	require.NoError(t, err)
	require.EqualValues(t, 2, ledger.quantity(urea))
	require.EqualValues(t, 3, obs.moved["debit"])
}

func TestCreditExistingReportsCreditedProducts(t *testing.T) {
	urea, dap, ghost := uuid.New(), uuid.New(), uuid.New()
	ledger := newMemoryLedger(
		Level{ProductID: urea, Name: "Urea", Quantity: 1},
		Level{ProductID: dap, Name: "DAP", Quantity: 1},
	)
	engine := NewEngine(nil, nil)

	var credited []uuid.UUID
	err := ledger.withTx(func(l Ledger) error {
		var err error
		credited, err = engine.CreditExisting(context.Background(), l, []Line{
			{ProductID: dap, Quantity: 2},
			{ProductID: ghost, Quantity: 2},
			{ProductID: urea, Quantity: 2},
			{ProductID: dap, Quantity: 1},
		})
		return err
	})
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{dap, urea}, credited)
	require.EqualValues(t, 4, ledger.quantity(dap))
	require.EqualValues(t, 3, ledger.quantity(urea))
}

func TestDisjointDebitsProceedConcurrently(t *testing.T) {
	urea, dap := uuid.New(), uuid.New()
	ledger := newMemoryLedger(
		Level{ProductID: urea, Name: "Urea", Quantity: 10},
		Level{ProductID: dap, Name: "DAP", Quantity: 10},
	)
	engine := NewEngine(nil, nil)
	ctx := context.Background()

	holding := make(chan struct{})
	otherDone := make(chan error, 1)
	first := make(chan error, 1)
	go func() {
		first <- ledger.withTx(func(l Ledger) error {
			if err := engine.ValidateAndDebit(ctx, l, []Line{{ProductID: urea, Quantity: 4}}); err != nil {
				return err
			}
			close(holding)
			// The urea row stays locked until the DAP bill has committed.
			select {
			case err := <-otherDone:
				return err
			case <-time.After(2 * time.Second):
				return errors.New("bill on another product was blocked")
			}
		})
	}()

	<-holding
	otherDone <- ledger.withTx(func(l Ledger) error {
		return engine.ValidateAndDebit(ctx, l, []Line{{ProductID: dap, Quantity: 3}})
	})
	require.NoError(t, <-first)
	require.EqualValues(t, 6, ledger.quantity(urea))
	require.EqualValues(t, 7, ledger.quantity(dap))
}

func TestOpposingLineOrdersDoNotDeadlock(t *testing.T) {
	urea, dap := uuid.New(), uuid.New()
	ledger := newMemoryLedger(
		Level{ProductID: urea, Name: "Urea", Quantity: 1000},
		Level{ProductID: dap, Name: "DAP", Quantity: 1000},
	)
	engine := NewEngine(nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		lines := []Line{{ProductID: urea, Quantity: 1}, {ProductID: dap, Quantity: 2}}
		if i%2 == 1 {
			lines[0], lines[1] = lines[1], lines[0]
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := ledger.withTx(func(l Ledger) error {
				if err := engine.ValidateAndDebit(context.Background(), l, lines); err != nil {
					return err
				}
				return engine.Credit(context.Background(), l, lines[:1])
			})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("transactions deadlocked")
	}
	// Each transaction credits back its first line, so only the second stays debited.
	require.EqualValues(t, 975, ledger.quantity(urea))
	require.EqualValues(t, 950, ledger.quantity(dap))
}
