package appointment

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryRepository keeps appointments in process and waits latency before
// every call, standing in for a remote backend.
type MemoryRepository struct {
	mu      sync.RWMutex
	items   map[int64]Appointment
	events  []EventLog
	lastID  int64
	latency time.Duration
}

func NewMemoryRepository(latency time.Duration, seed ...Appointment) *MemoryRepository {
	r := &MemoryRepository{
		items:   make(map[int64]Appointment, len(seed)),
		latency: latency,
	}
	for _, a := range seed {
		r.items[a.ID] = a.Clone()
		if a.ID > r.lastID {
			r.lastID = a.ID
		}
	}
	return r
}

func (r *MemoryRepository) wait(ctx context.Context) error {
	if r.latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(r.latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
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

func (r *MemoryRepository) GetByID(ctx context.Context, id int64) (*Appointment, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.items[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	c := a.Clone()
	return &c, nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]Appointment, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Appointment, 0, len(r.items))
	for _, a := range r.items {
		out = append(out, a.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepository) Insert(ctx context.Context, a Appointment) error {
	if err := r.wait(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	// re-check after the simulated round trip: a caller that gave up must
	// not see its write land
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, exists := r.items[a.ID]; exists {
		return fmt.Errorf("insert appointment %d: duplicate id", a.ID)
	}
	r.items[a.ID] = a.Clone()
	if a.ID > r.lastID {
		r.lastID = a.ID
	}
	return nil
}

func (r *MemoryRepository) Save(ctx context.Context, a Appointment) error {
	if err := r.wait(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if _, exists := r.items[a.ID]; !exists {
		return ErrAppointmentNotFound
	}
	r.items[a.ID] = a.Clone()
	return nil
}

func (r *MemoryRepository) InsertEvent(_ context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev.ID = int64(len(r.events) + 1)
	r.events = append(r.events, ev)
	return nil
}

// Events returns the recorded event log, oldest first.
func (r *MemoryRepository) Events() []EventLog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]EventLog, len(r.events))
	copy(out, r.events)
	return out
}
