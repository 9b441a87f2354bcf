// Package notification keeps the practitioner's notification feed in a
// key/value store and raises notifications from appointment activity.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/practice-scheduling-billing/internal/apperror"
	"github.com/hackgods/practice-scheduling-billing/internal/lock"
	"github.com/hackgods/practice-scheduling-billing/internal/storage"
)

type Type string

const (
	TypeAppointmentReminder  Type = "appointment_reminder"
	TypePaymentReceived      Type = "payment_received"
	TypePaymentOverdue       Type = "payment_overdue"
	TypeAppointmentCancelled Type = "appointment_cancelled"
	TypeSystemUpdate         Type = "system_update"
	TypeBackupCompleted      Type = "backup_completed"
)

func (t Type) Valid() bool {
	switch t {
	case TypeAppointmentReminder, TypePaymentReceived, TypePaymentOverdue,
		TypeAppointmentCancelled, TypeSystemUpdate, TypeBackupCompleted:
		return true
	}
	return false
}

type Notification struct {
	ID        string            `json:"id"`
	Type      Type              `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	IsRead    bool              `json:"isRead"`
	CreatedAt time.Time         `json:"createdAt"`
	Ref       string            `json:"ref,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

const (
	// StorageKey is where the feed lives in the KV store.
	StorageKey = "notifications"
	// MaxStored bounds the feed; the oldest entries fall off.
	MaxStored = 100
)

var ErrNotificationNotFound = fmt.Errorf("notification %w", apperror.ErrNotFound)

// Center is the notification feed. Every change is a read-modify-write of a
// single JSON array, serialized through the Locker so concurrent writers
// (API and reminder worker) never drop each other's entries.
type Center struct {
	kv     storage.KV
	locker lock.Locker
	now    func() time.Time
	logger *zap.Logger
}

type Option func(*Center)

func WithLocker(l lock.Locker) Option { return func(c *Center) { c.locker = l } }

func WithClock(now func() time.Time) Option { return func(c *Center) { c.now = now } }

func WithLogger(l *zap.Logger) Option { return func(c *Center) { c.logger = l } }

func NewCenter(kv storage.KV, opts ...Option) *Center {
	c := &Center{
		kv:     kv,
		locker: lock.NewKeyed(),
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Center) load(ctx context.Context) ([]Notification, error) {
	var items []Notification
	err := storage.GetJSON(ctx, c.kv, StorageKey, &items)
	if errors.Is(err, storage.ErrMiss) {
		return []Notification{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load notifications: %w", err)
	}
	return items, nil
}

func (c *Center) update(ctx context.Context, fn func(items []Notification) ([]Notification, error)) error {
	return c.locker.WithLock(ctx, StorageKey, func(ctx context.Context) error {
		items, err := c.load(ctx)
		if err != nil {
			return err
		}
		next, err := fn(items)
		if err != nil {
			return err
		}
		if len(next) > MaxStored {
			next = next[:MaxStored]
		}
		if err := storage.SetJSON(ctx, c.kv, StorageKey, next); err != nil {
			return fmt.Errorf("save notifications: %w", err)
		}
		return nil
	})
}

// Add stores n at the top of the feed, assigning id and creation time.
func (c *Center) Add(ctx context.Context, n Notification) (*Notification, error) {
	n.Title = strings.TrimSpace(n.Title)
	var v apperror.Validator
	v.Check(n.Type.Valid(), "type", "is not a known notification type")
	v.Check(n.Title != "", "title", "is required")
	if err := v.Err(); err != nil {
		return nil, err
	}

	n.ID = uuid.NewString()
	n.CreatedAt = c.now()
	n.IsRead = false

	err := c.update(ctx, func(items []Notification) ([]Notification, error) {
		return append([]Notification{n}, items...), nil
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("notification added",
		zap.String("notification_id", n.ID),
		zap.String("type", string(n.Type)),
		zap.String("ref", n.Ref),
	)
	return &n, nil
}

// List returns the feed newest first.
func (c *Center) List(ctx context.Context, unreadOnly bool) ([]Notification, error) {
	items, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	if !unreadOnly {
		return items, nil
	}
	out := make([]Notification, 0, len(items))
	for _, n := range items {
		if !n.IsRead {
			out = append(out, n)
		}
	}
	return out, nil
}

func (c *Center) UnreadCount(ctx context.Context) (int, error) {
	items, err := c.List(ctx, true)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// HasRef reports whether a notification with ref is still in the feed.
func (c *Center) HasRef(ctx context.Context, ref string) (bool, error) {
	items, err := c.load(ctx)
	if err != nil {
		return false, err
	}
	for _, n := range items {
		if n.Ref == ref {
			return true, nil
		}
	}
	return false, nil
}

func (c *Center) MarkRead(ctx context.Context, id string) error {
	return c.update(ctx, func(items []Notification) ([]Notification, error) {
		for i := range items {
			if items[i].ID == id {
				items[i].IsRead = true
				return items, nil
			}
		}
		return nil, ErrNotificationNotFound
	})
}

func (c *Center) MarkAllRead(ctx context.Context) error {
	return c.update(ctx, func(items []Notification) ([]Notification, error) {
		for i := range items {
			items[i].IsRead = true
		}
		return items, nil
	})
}

func (c *Center) Remove(ctx context.Context, id string) error {
	return c.update(ctx, func(items []Notification) ([]Notification, error) {
		for i := range items {
			if items[i].ID == id {
				return append(items[:i], items[i+1:]...), nil
			}
		}
		return nil, ErrNotificationNotFound
	})
}

func (c *Center) Clear(ctx context.Context) error {
	return c.locker.WithLock(ctx, StorageKey, func(ctx context.Context) error {
		if err := c.kv.Delete(ctx, StorageKey); err != nil {
			return fmt.Errorf("clear notifications: %w", err)
		}
		c.logger.Info("notifications cleared")
		return nil
	})
}
