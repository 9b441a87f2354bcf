package transaction

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryRepository keeps transactions in process, waiting latency before
// each call.
type MemoryRepository struct {
	mu      sync.RWMutex
	items   map[int64]Transaction
	lastID  int64
	latency time.Duration
}

func NewMemoryRepository(latency time.Duration, seed ...Transaction) *MemoryRepository {
	r := &MemoryRepository{
		items:   make(map[int64]Transaction, len(seed)),
		latency: latency,
	}
	for _, t := range seed {
		r.items[t.ID] = t.Clone()
		if t.ID > r.lastID {
			r.lastID = t.ID
		}
	}
	return r
}

func (r *MemoryRepository) wait(ctx context.Context) error {
	if r.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(r.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (r *MemoryRepository) NextID(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.lastID++
	return r.lastID, nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id int64) (*Transaction, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.items[id]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	c := t.Clone()
	return &c, nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]Transaction, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Transaction, 0, len(r.items))
	for _, t := range r.items {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepository) Insert(ctx context.Context, t Transaction) error {
	if err := r.wait(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if _, exists := r.items[t.ID]; exists {
		return fmt.Errorf("insert transaction %d: duplicate id", t.ID)
	}
	r.items[t.ID] = t.Clone()
	if t.ID > r.lastID {
		r.lastID = t.ID
	}
	return nil
}

func (r *MemoryRepository) Save(ctx context.Context, t Transaction) error {
	if err := r.wait(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if _, exists := r.items[t.ID]; !exists {
		return ErrTransactionNotFound
	}
	r.items[t.ID] = t.Clone()
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id int64) error {
	if err := r.wait(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if _, exists := r.items[id]; !exists {
		return ErrTransactionNotFound
	}
	delete(r.items, id)
	return nil
}
