package billing

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/krishi-kendra/krishi-kendra/internal/shared"
	"github.com/krishi-kendra/krishi-kendra/internal/stock"
)

// memoryRepo behaves like the Postgres store under READ COMMITTED: products
// and bills are locked per row until the transaction ends, so transactions
// over disjoint rows interleave freely. Failed transactions replay their undo
// log.
type memoryRepo struct {
	mu       sync.Mutex
	products map[uuid.UUID]stock.Level
	bills    map[uuid.UUID]Bill
	audits   []shared.AuditLog
	clock    time.Time
	rows     map[string]*sync.Mutex
	// afterLock runs once a transaction holds its product row locks.
	afterLock func(ids []uuid.UUID)
}

type memoryTx struct {
	repo   *memoryRepo
	locked []string
	undo   []func()
	audits []shared.AuditLog
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		products: make(map[uuid.UUID]stock.Level),
		bills:    make(map[uuid.UUID]Bill),
		clock:    time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC),
		rows:     make(map[string]*sync.Mutex),
	}
}

func (r *memoryRepo) addProduct(name string, qty int64) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.New()
	r.products[id] = stock.Level{ProductID: id, Name: name, Quantity: qty}
	return id
}

func (r *memoryRepo) removeProduct(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.products, id)
}

func (r *memoryRepo) quantity(id uuid.UUID) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.products[id].Quantity
}

func (r *memoryRepo) billCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bills)
}

func (r *memoryRepo) row(key string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.rows[key]
	if !ok {
		m = &sync.Mutex{}
		r.rows[key] = m
	}
	return m
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &memoryTx{repo: r}
	defer tx.release()
	if err := fn(ctx, tx); err != nil {
		r.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		r.mu.Unlock()
		return err
	}
	r.mu.Lock()
	r.audits = append(r.audits, tx.audits...)
	r.mu.Unlock()
	return nil
}

func (tx *memoryTx) lock(key string) {
	for _, held := range tx.locked {
		if held == key {
			return
		}
	}
	tx.repo.row(key).Lock()
	tx.locked = append(tx.locked, key)
}

func (tx *memoryTx) release() {
	for i := len(tx.locked) - 1; i >= 0; i-- {
		tx.repo.row(tx.locked[i]).Unlock()
	}
	tx.locked = nil
}

func (r *memoryRepo) Get(_ context.Context, id uuid.UUID) (Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bill, ok := r.bills[id]
	if !ok {
		return Bill{}, ErrBillNotFound
	}
	return bill, nil
}

func (r *memoryRepo) List(_ context.Context, filter ListFilter) ([]Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Bill, 0, len(r.bills))
	for _, bill := range r.bills {
		if filter.Status != "" && bill.Status != filter.Status {
			continue
		}
		if filter.PaymentMode != "" && bill.PaymentMode != filter.PaymentMode {
			continue
		}
		if filter.Search != "" && !strings.Contains(bill.BillNumber, filter.Search) && !strings.Contains(bill.Customer.Name, filter.Search) {
			continue
		}
		out = append(out, bill)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (tx *memoryTx) Ledger() stock.Ledger {
	return tx
}

func (tx *memoryTx) LockProducts(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]stock.Level, error) {
	sorted := append([]uuid.UUID(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return bytes.Compare(sorted[i][:], sorted[j][:]) < 0 })
	for _, id := range sorted {
		tx.lock("product:" + id.String())
	}
	if hook := tx.repo.afterLock; hook != nil {
		hook(sorted)
	}

	tx.repo.mu.Lock()
	defer tx.repo.mu.Unlock()
	out := make(map[uuid.UUID]stock.Level, len(ids))
	for _, id := range ids {
		if level, ok := tx.repo.products[id]; ok {
			out[id] = level
		}
	}
	return out, nil
}

func (tx *memoryTx) adjust(id uuid.UUID, delta int64) {
	level := tx.repo.products[id]
	level.Quantity += delta
	tx.repo.products[id] = level
	tx.undo = append(tx.undo, func() {
		if level, ok := tx.repo.products[id]; ok {
			level.Quantity -= delta
			tx.repo.products[id] = level
		}
	})
}

func (tx *memoryTx) Decrement(_ context.Context, id uuid.UUID, qty int64) (bool, error) {
	tx.repo.mu.Lock()
	defer tx.repo.mu.Unlock()
	level, ok := tx.repo.products[id]
	if !ok || level.Quantity < qty {
		return false, nil
	}
	tx.adjust(id, -qty)
	return true, nil
}

func (tx *memoryTx) Increment(_ context.Context, id uuid.UUID, qty int64) (bool, error) {
	tx.repo.mu.Lock()
	defer tx.repo.mu.Unlock()
	if _, ok := tx.repo.products[id]; !ok {
		return false, nil
	}
	tx.adjust(id, qty)
	return true, nil
}

func (tx *memoryTx) BillNumberExists(_ context.Context, number string) (bool, error) {
	tx.repo.mu.Lock()
	defer tx.repo.mu.Unlock()
	for _, bill := range tx.repo.bills {
		if bill.BillNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (tx *memoryTx) InsertBill(_ context.Context, bill *Bill) error {
	tx.repo.mu.Lock()
	defer tx.repo.mu.Unlock()
	for _, existing := range tx.repo.bills {
		if existing.BillNumber == bill.BillNumber {
			return ErrDuplicateBillNumber
		}
	}
	tx.repo.clock = tx.repo.clock.Add(time.Minute)
	bill.CreatedAt, bill.UpdatedAt = tx.repo.clock, tx.repo.clock
	tx.repo.bills[bill.ID] = *bill
	id := bill.ID
	tx.undo = append(tx.undo, func() { delete(tx.repo.bills, id) })
	return nil
}

func (tx *memoryTx) GetForUpdate(_ context.Context, id uuid.UUID) (Bill, error) {
	tx.lock("bill:" + id.String())
	tx.repo.mu.Lock()
	defer tx.repo.mu.Unlock()
	bill, ok := tx.repo.bills[id]
	if !ok {
		return Bill{}, ErrBillNotFound
	}
	return bill, nil
}

func (tx *memoryTx) UpdateStatus(_ context.Context, id uuid.UUID, status Status) (time.Time, error) {
	tx.repo.mu.Lock()
	defer tx.repo.mu.Unlock()
	bill, ok := tx.repo.bills[id]
	if !ok {
		return time.Time{}, ErrBillNotFound
	}
	previous := bill
	tx.repo.clock = tx.repo.clock.Add(time.Minute)
	bill.Status, bill.UpdatedAt = status, tx.repo.clock
	tx.repo.bills[id] = bill
	tx.undo = append(tx.undo, func() { tx.repo.bills[id] = previous })
	return bill.UpdatedAt, nil
}

func (tx *memoryTx) DeleteBill(_ context.Context, id uuid.UUID) error {
	tx.repo.mu.Lock()
	defer tx.repo.mu.Unlock()
	previous, ok := tx.repo.bills[id]
	if !ok {
		return ErrBillNotFound
	}
	delete(tx.repo.bills, id)
	tx.undo = append(tx.undo, func() { tx.repo.bills[id] = previous })
	return nil
}

func (tx *memoryTx) InsertAudit(_ context.Context, log shared.AuditLog) error {
	tx.audits = append(tx.audits, log)
	return nil
}
