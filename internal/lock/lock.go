// Package lock serializes work per record id and guards against duplicate
// submissions of the same action.
package lock

import (
	"context"
	"errors"
	"sync"

	"github.com/hackgods/practice-scheduling-billing/internal/apperror"
)

var ErrLockNotAcquired = errors.New("record lock not acquired")

// Locker guards critical sections per key. Implementations block until the
// key is free or ctx is done.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

type keyedEntry struct {
	sem  chan struct{}
	refs int
}

// Keyed is an in-process Locker. Different keys never contend.
type Keyed struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
}

func NewKeyed() *Keyed {
	return &Keyed{entries: make(map[string]*keyedEntry)}
}

func (k *Keyed) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	e := k.acquireEntry(key)
	defer k.releaseEntry(key, e)

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		return errors.Join(ErrLockNotAcquired, ctx.Err())
	}
	defer func() { <-e.sem }()

	return fn(ctx)
}

func (k *Keyed) acquireEntry(key string) *keyedEntry {
	k.mu.Lock()
	defer k.mu.Unlock()

	e, ok := k.entries[key]
	if !ok {
		e = &keyedEntry{sem: make(chan struct{}, 1)}
		k.entries[key] = e
	}
	e.refs++
	return e
}

func (k *Keyed) releaseEntry(key string, e *keyedEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
}

// InFlight rejects a second submission of the same action while the first
// one is still running.
type InFlight struct {
	mu      sync.Mutex
	pending map[string]struct{}
}

func NewInFlight() *InFlight {
	return &InFlight{pending: make(map[string]struct{})}
}

// Do runs fn unless key is already running, in which case it returns
// apperror.ErrInFlight without calling fn.
func (g *InFlight) Do(key string, fn func() error) error {
	g.mu.Lock()
	if _, busy := g.pending[key]; busy {
		g.mu.Unlock()
		return apperror.ErrInFlight
	}
	g.pending[key] = struct{}{}
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.pending, key)
		g.mu.Unlock()
	}()

	return fn()
}

func (g *InFlight) Busy(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.pending[key]
	return busy
}
