package purchases

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/krishi-kendra/krishi-kendra/internal/shared"
	"github.com/krishi-kendra/krishi-kendra/internal/stock"
)

type memoryRepo struct {
	mu        sync.Mutex
	products  map[uuid.UUID]stock.Level
	purchases map[uuid.UUID]Purchase
	keys      map[string]struct{}
	audits    []shared.AuditLog
	clock     time.Time
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		products:  make(map[uuid.UUID]stock.Level),
		purchases: make(map[uuid.UUID]Purchase),
		keys:      make(map[string]struct{}),
		clock:     time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
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

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	products := make(map[uuid.UUID]stock.Level, len(r.products))
	for k, v := range r.products {
		products[k] = v
	}
	purchases := make(map[uuid.UUID]Purchase, len(r.purchases))
	for k, v := range r.purchases {
		purchases[k] = v
	}
	keys := make(map[string]struct{}, len(r.keys))
	for k := range r.keys {
		keys[k] = struct{}{}
	}
	audits := len(r.audits)

	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.products, r.purchases, r.keys, r.audits = products, purchases, keys, r.audits[:audits]
		return err
	}
	return nil
}

func (r *memoryRepo) List(context.Context) ([]Purchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Purchase, 0, len(r.purchases))
	for _, p := range r.purchases {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryRepo) Get(_ context.Context, id uuid.UUID) (Purchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.purchases[id]
	if !ok {
		return Purchase{}, ErrPurchaseNotFound
	}
	return p, nil
}

func (tx *memoryTx) Ledger() stock.Ledger {
	return tx
}

func (tx *memoryTx) LockProducts(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]stock.Level, error) {
	out := make(map[uuid.UUID]stock.Level, len(ids))
	for _, id := range ids {
		if level, ok := tx.repo.products[id]; ok {
			out[id] = level
		}
	}
	return out, nil
}

func (tx *memoryTx) Decrement(_ context.Context, id uuid.UUID, qty int64) (bool, error) {
	level, ok := tx.repo.products[id]
	if !ok || level.Quantity < qty {
		return false, nil
	}
	level.Quantity -= qty
	tx.repo.products[id] = level
	return true, nil
}

func (tx *memoryTx) Increment(_ context.Context, id uuid.UUID, qty int64) (bool, error) {
	level, ok := tx.repo.products[id]
	if !ok {
		return false, nil
	}
	level.Quantity += qty
	tx.repo.products[id] = level
	return true, nil
}

func (tx *memoryTx) ClaimKey(_ context.Context, key string) error {
	if _, ok := tx.repo.keys[key]; ok {
		return ErrDuplicateRequest
	}
	tx.repo.keys[key] = struct{}{}
	return nil
}

func (tx *memoryTx) Insert(_ context.Context, p *Purchase) error {
	tx.repo.clock = tx.repo.clock.Add(time.Minute)
	p.CreatedAt, p.UpdatedAt = tx.repo.clock, tx.repo.clock
	tx.repo.purchases[p.ID] = *p
	return nil
}

func (tx *memoryTx) GetForUpdate(_ context.Context, id uuid.UUID) (Purchase, error) {
	p, ok := tx.repo.purchases[id]
	if !ok {
		return Purchase{}, ErrPurchaseNotFound
	}
	return p, nil
}

func (tx *memoryTx) Update(_ context.Context, p *Purchase) error {
	existing, ok := tx.repo.purchases[p.ID]
	if !ok {
		return ErrPurchaseNotFound
	}
	tx.repo.clock = tx.repo.clock.Add(time.Minute)
	p.CreatedAt, p.UpdatedAt = existing.CreatedAt, tx.repo.clock
	tx.repo.purchases[p.ID] = *p
	return nil
}

func (tx *memoryTx) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := tx.repo.purchases[id]; !ok {
		return ErrPurchaseNotFound
	}
	delete(tx.repo.purchases, id)
	return nil
}

func (tx *memoryTx) InsertAudit(_ context.Context, log shared.AuditLog) error {
	tx.repo.audits = append(tx.repo.audits, log)
	return nil
}
