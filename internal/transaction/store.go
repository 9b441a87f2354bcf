// Package transaction holds the practice's income and expense records:
// categories, lifecycle, filtering, sorting, summaries and recurrence
// previews.
package transaction

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/practice-scheduling-billing/internal/apperror"
	"github.com/hackgods/practice-scheduling-billing/internal/lock"
)

// Store owns the transaction collection, mirroring appointment.Store:
// per-id serialization, an in-flight guard and a refreshed visible view.
type Store struct {
	repo     Repository
	locker   lock.Locker
	inflight *lock.InFlight
	now      func() time.Time
	logger   *zap.Logger

	viewMu    sync.RWMutex
	visible   []Transaction
	viewQuery Filters
	viewSort  Sort
	viewSeq   uint64
	writeSeq  uint64
	fetching  int
	writes    []viewWrite
}

type Option func(*Store)

func WithLocker(l lock.Locker) Option { return func(s *Store) { s.locker = l } }

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

func WithLogger(l *zap.Logger) Option { return func(s *Store) { s.logger = l } }

func NewStore(repo Repository, opts ...Option) *Store {
	s := &Store{
		repo:     repo,
		locker:   lock.NewKeyed(),
		inflight: lock.NewInFlight(),
		now:      time.Now,
		logger:   zap.NewNop(),
		viewSort: DefaultSort,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func recordKey(id int64) string { return fmt.Sprintf("transaction:%d", id) }

func (s *Store) Create(ctx context.Context, in NewTransaction) (*Transaction, error) {
	now := s.now()
	t := Transaction{
		Type:          in.Type,
		Category:      in.Category,
		Description:   strings.TrimSpace(in.Description),
		Amount:        in.Amount,
		Date:          in.Date,
		Status:        in.Status,
		PaymentMethod: in.PaymentMethod,
		AppointmentID: in.AppointmentID,
		PatientID:     in.PatientID,
		Tags:          NormalizeTags(in.Tags),
		Notes:         strings.TrimSpace(in.Notes),
		Recurrence:    in.Recurrence,
		ReceiptFile:   in.ReceiptFile,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if t.Type == "" {
		t.Type = t.Category.Type()
	}
	if t.Status == "" {
		t.Status = StatusPending
	}
	t = t.Clone()

	if err := validate(t); err != nil {
		return nil, err
	}
	if t.Status != StatusPending && t.Status != StatusCompleted {
		var v apperror.Validator
		v.Add("status", "new transactions start as pending or completed")
		return nil, v.Err()
	}

	fingerprint := fmt.Sprintf("create:%s:%s:%s:%s", t.Type, t.Date, t.Amount.String(), strings.ToLower(t.Description))
	err := s.inflight.Do(fingerprint, func() error {
		id, err := s.repo.NextID(ctx)
		if err != nil {
			return fmt.Errorf("allocate id: %w", err)
		}
		t.ID = id
		return s.repo.Insert(ctx, t)
	})
	if err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	s.logger.Info("transaction created",
		zap.Int64("transaction_id", t.ID),
		zap.String("type", string(t.Type)),
		zap.String("category", string(t.Category)),
		zap.String("amount", t.Amount.String()),
	)
	s.refreshVisible(t, false)

	out := t.Clone()
	return &out, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*Transaction, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return t, nil
}

func (s *Store) Update(ctx context.Context, id int64, patch Patch) (*Transaction, error) {
	return s.mutate(ctx, id, "update", "update:"+fingerprint(patch), func(t *Transaction) error {
		patch.apply(t)
		return nil
	})
}

func (s *Store) Complete(ctx context.Context, id int64) (*Transaction, error) {
	return s.transition(ctx, id, "complete", StatusCompleted, "")
}

func (s *Store) Cancel(ctx context.Context, id int64, reason string) (*Transaction, error) {
	return s.transition(ctx, id, "cancel", StatusCancelled, reason)
}

func (s *Store) Refund(ctx context.Context, id int64, reason string) (*Transaction, error) {
	return s.transition(ctx, id, "refund", StatusRefunded, reason)
}

// Delete removes the record. It goes through the same lock as writes so a
// pending update never resurrects it.
func (s *Store) Delete(ctx context.Context, id int64) error {
	key := recordKey(id)
	err := s.inflight.Do(key+":delete", func() error {
		return s.locker.WithLock(ctx, key, func(lockCtx context.Context) error {
			return s.repo.Delete(lockCtx, id)
		})
	})
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	s.logger.Info("transaction deleted", zap.Int64("transaction_id", id))
	s.refreshVisible(Transaction{ID: id}, true)
	return nil
}

func (s *Store) transition(ctx context.Context, id int64, action string, to Status, reason string) (*Transaction, error) {
	reason = strings.TrimSpace(reason)
	var from Status
	updated, err := s.mutate(ctx, id, action, action, func(t *Transaction) error {
		if err := checkTransition(t.Status, to); err != nil {
			return err
		}
		from = t.Status
		t.Status = to
		if reason != "" {
			line := fmt.Sprintf("[%s] %s: %s", s.now().Format("2006-01-02 15:04"), statusLabel(to), reason)
			if t.Notes == "" {
				t.Notes = line
			} else {
				t.Notes += "\n" + line
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("transaction status changed",
		zap.Int64("transaction_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return updated, nil
}

func statusLabel(s Status) string {
	switch s {
	case StatusCancelled:
		return "Cancelled"
	case StatusRefunded:
		return "Refunded"
	}
	return "Completed"
}

// mutate runs fn under the record lock. Only a second submission with the
// same guard fails fast; other writes on the id wait their turn.
func (s *Store) mutate(ctx context.Context, id int64, action, guard string, fn func(t *Transaction) error) (*Transaction, error) {
	key := recordKey(id)
	var updated Transaction

	err := s.inflight.Do(key+":"+guard, func() error {
		return s.locker.WithLock(ctx, key, func(lockCtx context.Context) error {
			current, err := s.repo.GetByID(lockCtx, id)
			if err != nil {
				return err
			}

			next := current.Clone()
			if err := fn(&next); err != nil {
				return err
			}
			next.ID = current.ID
			next.CreatedAt = current.CreatedAt
			next.UpdatedAt = s.now()
			if !next.UpdatedAt.After(current.UpdatedAt) {
				next.UpdatedAt = current.UpdatedAt.Add(time.Millisecond)
			}

			if err := validate(next); err != nil {
				return err
			}
			if err := s.repo.Save(lockCtx, next); err != nil {
				return err
			}
			updated = next
			return nil
		})
	})
	if err != nil {
		if !errors.Is(err, apperror.ErrValidation) && !errors.Is(err, apperror.ErrInvalidTransition) &&
			!errors.Is(err, apperror.ErrNotFound) && !errors.Is(err, apperror.ErrInFlight) {
			s.logger.Warn("transaction write failed",
				zap.Int64("transaction_id", id),
				zap.String("action", action),
				zap.Error(err),
			)
		}
		return nil, fmt.Errorf("%s transaction %d: %w", action, id, err)
	}

	s.refreshVisible(updated, false)
	out := updated.Clone()
	return &out, nil
}

func (s *Store) List(ctx context.Context, f Filters, sortBy Sort) ([]Transaction, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	sortBy = normalizeSort(sortBy)
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return Sorted(f.Apply(all), sortBy), nil
}

// normalizeSort fills an empty key with the default; an empty order on the
// default key means newest first.
func normalizeSort(s Sort) Sort {
	if s.Key == "" {
		s.Key = DefaultSort.Key
		if s.Order == "" {
			s.Order = DefaultSort.Order
		}
	}
	return s
}

// Fetch replaces the visible view unless a newer Fetch started meanwhile.
// Writes committed while it was reading are replayed onto its result.
func (s *Store) Fetch(ctx context.Context, f Filters, sortBy Sort) ([]Transaction, error) {
	sortBy = normalizeSort(sortBy)

	s.viewMu.Lock()
	s.viewSeq++
	seq := s.viewSeq
	since := s.writeSeq
	s.fetching++
	s.viewMu.Unlock()

	items, err := s.List(ctx, f, sortBy)

	s.viewMu.Lock()
	if err == nil {
		for _, w := range s.writes {
			if w.seq > since {
				items = applyWrite(items, w.t, w.removed, f, sortBy)
			}
		}
		if seq == s.viewSeq {
			s.visible = items
			s.viewQuery = f
			s.viewSort = sortBy
		}
	}
	s.fetching--
	if s.fetching == 0 {
		s.writes = nil
	}
	s.viewMu.Unlock()

	if err != nil {
		return nil, err
	}
	return cloneAll(items), nil
}

func (s *Store) Visible() []Transaction {
	s.viewMu.RLock()
	defer s.viewMu.RUnlock()
	return cloneAll(s.visible)
}

func cloneAll(items []Transaction) []Transaction {
	out := make([]Transaction, len(items))
	for i, t := range items {
		out[i] = t.Clone()
	}
	return out
}

func (s *Store) refreshVisible(t Transaction, removed bool) {
	s.viewMu.Lock()
	defer s.viewMu.Unlock()

	s.writeSeq++
	if s.fetching > 0 {
		s.writes = append(s.writes, viewWrite{seq: s.writeSeq, t: t.Clone(), removed: removed})
	}
	if s.viewSeq == 0 {
		return
	}
	s.visible = applyWrite(s.visible, t, removed, s.viewQuery, s.viewSort)
}

type viewWrite struct {
	seq     uint64
	t       Transaction
	removed bool
}

func applyWrite(items []Transaction, t Transaction, removed bool, f Filters, sortBy Sort) []Transaction {
	kept := make([]Transaction, 0, len(items)+1)
	for _, v := range items {
		if v.ID != t.ID {
			kept = append(kept, v)
		}
	}
	if !removed && f.Predicate()(t) {
		kept = append(kept, t.Clone())
	}
	return Sorted(kept, sortBy)
}

func fingerprint(p Patch) string {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Sprintf("%p", &p)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}
