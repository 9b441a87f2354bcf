package notification_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/practice-scheduling-billing/internal/appointment"
	"github.com/hackgods/practice-scheduling-billing/internal/apperror"
	"github.com/hackgods/practice-scheduling-billing/internal/notification"
	"github.com/hackgods/practice-scheduling-billing/internal/storage"
)

func newCenter(t *testing.T) (*notification.Center, *storage.Memory) {
	t.Helper()
	kv := storage.NewMemory()
	return notification.NewCenter(kv), kv
}

func TestCenter_AddListNewestFirst(t *testing.T) {
	ctx := context.Background()
	c, _ := newCenter(t)

	first, err := c.Add(ctx, notification.Notification{Type: notification.TypeSystemUpdate, Title: "v2 released"})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	require.False(t, first.IsRead)

	second, err := c.Add(ctx, notification.Notification{Type: notification.TypeBackupCompleted, Title: "Backup done"})
	require.NoError(t, err)

	all, err := c.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, second.ID, all[0].ID)
	require.Equal(t, first.ID, all[1].ID)
}

func TestCenter_AddValidates(t *testing.T) {
	c, _ := newCenter(t)
	_, err := c.Add(context.Background(), notification.Notification{Type: "carrier_pigeon"})
	require.ErrorIs(t, err, apperror.ErrValidation)
	fields := apperror.Fields(err)
	require.Contains(t, fields, "type")
	require.Contains(t, fields, "title")
}

func TestCenter_ReadRemoveClear(t *testing.T) {
	ctx := context.Background()
	c, kv := newCenter(t)

	a, err := c.Add(ctx, notification.Notification{Type: notification.TypeSystemUpdate, Title: "a"})
	require.NoError(t, err)
	b, err := c.Add(ctx, notification.Notification{Type: notification.TypeSystemUpdate, Title: "b"})
	require.NoError(t, err)

	require.NoError(t, c.MarkRead(ctx, a.ID))
	n, err := c.UnreadCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	unread, err := c.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	require.Equal(t, b.ID, unread[0].ID)

	require.ErrorIs(t, c.MarkRead(ctx, "missing"), apperror.ErrNotFound)
	require.ErrorIs(t, c.Remove(ctx, "missing"), notification.ErrNotificationNotFound)

	require.NoError(t, c.Remove(ctx, a.ID))
	require.NoError(t, c.MarkAllRead(ctx))
	n, err = c.UnreadCount(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	require.NoError(t, c.Clear(ctx))
	_, err = kv.Get(ctx, notification.StorageKey)
	require.ErrorIs(t, err, storage.ErrMiss)
	all, err := c.List(ctx, false)
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestCenter_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	added, err := notification.NewCenter(kv).Add(ctx, notification.Notification{
		Type: notification.TypePaymentReceived, Title: "Paid", Metadata: map[string]string{"amount": "120.00"},
	})
	require.NoError(t, err)

	reloaded, err := notification.NewCenter(kv).List(ctx, false)
	require.NoError(t, err)
	require.Len(t, reloaded, 1)
	require.Equal(t, added.ID, reloaded[0].ID)
	require.Equal(t, "120.00", reloaded[0].Metadata["amount"])
	require.True(t, added.CreatedAt.Equal(reloaded[0].CreatedAt))
}

func TestCenter_CapsFeed(t *testing.T) {
	ctx := context.Background()
	c, _ := newCenter(t)
	for i := 0; i < notification.MaxStored+5; i++ {
		_, err := c.Add(ctx, notification.Notification{Type: notification.TypeSystemUpdate, Title: fmt.Sprintf("n%d", i)})
		require.NoError(t, err)
	}
	all, err := c.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, notification.MaxStored)
	require.Equal(t, fmt.Sprintf("n%d", notification.MaxStored+4), all[0].Title)
}

func TestCenter_ConcurrentAddsAreNotLost(t *testing.T) {
	ctx := context.Background()
	c, _ := newCenter(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := c.Add(ctx, notification.Notification{Type: notification.TypeSystemUpdate, Title: fmt.Sprintf("n%d", i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	all, err := c.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 20)
}

func TestEventSink_CancellationBecomesNotification(t *testing.T) {
	ctx := context.Background()
	c, _ := newCenter(t)
	sink := notification.NewEventSink(c, nil)

	a := appointment.Appointment{ID: 9, Date: "2025-09-25", Time: "14:00", Patient: appointment.PatientSnapshot{Name: "Ana"}}
	sink.Publish(ctx, appointment.Event{Type: appointment.EventAppointmentConfirmed, Appointment: a})
	sink.Publish(ctx, appointment.Event{Type: appointment.EventAppointmentCancelled, Appointment: a, Payload: map[string]any{"reason": "sick"}})

	all, err := c.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, notification.TypeAppointmentCancelled, all[0].Type)
	require.Contains(t, all[0].Message, "Reason: sick")
	require.Equal(t, "9", all[0].Metadata["appointmentId"])
}

// fakeLister applies filters to a fixed collection like the store does.
type fakeLister struct {
	items []appointment.Appointment
}

func (f *fakeLister) List(_ context.Context, q appointment.Filters, s appointment.Sort) ([]appointment.Appointment, error) {
	return appointment.Sorted(q.Apply(f.items), s), nil
}

func TestReminder_Run(t *testing.T) {
	ctx := context.Background()
	c, _ := newCenter(t)
	now := time.Date(2025, 9, 25, 10, 0, 0, 0, time.UTC)

	mk := func(id int64, date, clock string, st appointment.Status, pay appointment.PaymentStatus) appointment.Appointment {
		return appointment.Appointment{
			ID: id, Date: date, Time: clock, Duration: 50, Status: st, PaymentStatus: pay,
			Price: decimal.NewFromInt(120), Patient: appointment.PatientSnapshot{Name: fmt.Sprintf("P%d", id)},
		}
	}
	src := &fakeLister{items: []appointment.Appointment{
		mk(1, "2025-09-25", "14:00", appointment.StatusConfirmed, appointment.PaymentPending), // in window
		mk(2, "2025-09-26", "09:00", appointment.StatusScheduled, appointment.PaymentPending), // in window
		mk(3, "2025-09-26", "11:00", appointment.StatusScheduled, appointment.PaymentPending), // past lead
		mk(4, "2025-09-25", "08:00", appointment.StatusConfirmed, appointment.PaymentPending), // already started
		mk(5, "2025-09-25", "15:00", appointment.StatusCancelled, appointment.PaymentPending),
		mk(6, "2025-09-10", "10:00", appointment.StatusCompleted, appointment.PaymentPending), // overdue
		mk(7, "2025-09-22", "10:00", appointment.StatusCompleted, appointment.PaymentPending), // too recent
		mk(8, "2025-09-01", "10:00", appointment.StatusCompleted, appointment.PaymentPaid),
	}}

	r := notification.NewReminder(c, src, 24*time.Hour, nil).WithClock(func() time.Time { return now }, time.UTC)

	res, err := r.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, notification.RunResult{Reminders: 2, Overdue: 1}, res)

	for _, ref := range []string{"reminder:appointment:1", "reminder:appointment:2", "overdue:appointment:6"} {
		ok, err := c.HasRef(ctx, ref)
		require.NoError(t, err)
		require.True(t, ok, ref)
	}

	again, err := r.Run(ctx)
	require.NoError(t, err)
	require.Zero(t, again.Reminders+again.Overdue)
}
