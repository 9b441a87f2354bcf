package notification

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/practice-scheduling-billing/internal/appointment"
	"github.com/hackgods/practice-scheduling-billing/internal/isodate"
)

// AppointmentLister is the read side Reminder needs; *appointment.Store
// implements it.
type AppointmentLister interface {
	List(ctx context.Context, f appointment.Filters, s appointment.Sort) ([]appointment.Appointment, error)
}

// OverdueAfter is how long a completed session may stay unpaid before it is
// reported.
const OverdueAfter = 7 * 24 * time.Hour

// Reminder raises appointment_reminder notifications for sessions starting
// within the lead time and payment_overdue ones for completed sessions left
// unpaid. Each appointment is reported at most once per kind while its entry
// stays in the feed.
type Reminder struct {
	center   *Center
	source   AppointmentLister
	lead     time.Duration
	location *time.Location
	now      func() time.Time
	logger   *zap.Logger
}

type RunResult struct {
	Reminders int `json:"reminders"`
	Overdue   int `json:"overdue"`
}

func NewReminder(center *Center, source AppointmentLister, lead time.Duration, logger *zap.Logger) *Reminder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reminder{
		center:   center,
		source:   source,
		lead:     lead,
		location: time.Local,
		now:      time.Now,
		logger:   logger,
	}
}

// WithClock overrides the clock and the location appointment times are read in.
func (r *Reminder) WithClock(now func() time.Time, loc *time.Location) *Reminder {
	r.now = now
	r.location = loc
	return r
}

func (r *Reminder) Run(ctx context.Context) (RunResult, error) {
	var res RunResult
	now := r.now().In(r.location)

	upcoming, err := r.source.List(ctx, appointment.Filters{
		Statuses:  []appointment.Status{appointment.StatusScheduled, appointment.StatusConfirmed},
		StartDate: isodate.Format(now),
		EndDate:   isodate.Format(now.Add(r.lead)),
	}, appointment.DefaultSort)
	if err != nil {
		return res, fmt.Errorf("list upcoming appointments: %w", err)
	}

	for _, a := range upcoming {
		start, err := a.StartsAt(r.location)
		if err != nil || start.Before(now) || start.After(now.Add(r.lead)) {
			continue
		}
		created, err := r.addOnce(ctx, Notification{
			Type:    TypeAppointmentReminder,
			Title:   "Upcoming appointment",
			Message: fmt.Sprintf("%s on %s at %s (%s).", a.Patient.Name, a.Date, a.Time, a.Modality),
			Ref:     "reminder:" + refFor(a.ID),
			Metadata: map[string]string{
				"appointmentId": strconv.FormatInt(a.ID, 10),
				"startsAt":      start.Format(time.RFC3339),
			},
		})
		if err != nil {
			return res, err
		}
		if created {
			res.Reminders++
		}
	}

	pending := appointment.PaymentPending
	unpaid, err := r.source.List(ctx, appointment.Filters{
		Statuses:      []appointment.Status{appointment.StatusCompleted},
		PaymentStatus: &pending,
		EndDate:       isodate.Format(now.Add(-OverdueAfter)),
	}, appointment.DefaultSort)
	if err != nil {
		return res, fmt.Errorf("list unpaid appointments: %w", err)
	}

	for _, a := range unpaid {
		start, err := a.StartsAt(r.location)
		if err != nil || now.Sub(start) < OverdueAfter {
			continue
		}
		created, err := r.addOnce(ctx, Notification{
			Type:    TypePaymentOverdue,
			Title:   "Payment overdue",
			Message: fmt.Sprintf("Session with %s on %s is still unpaid (%s).", a.Patient.Name, a.Date, a.Price.StringFixed(2)),
			Ref:     "overdue:" + refFor(a.ID),
			Metadata: map[string]string{
				"appointmentId": strconv.FormatInt(a.ID, 10),
				"amount":        a.Price.StringFixed(2),
			},
		})
		if err != nil {
			return res, err
		}
		if created {
			res.Overdue++
		}
	}

	if res.Reminders > 0 || res.Overdue > 0 {
		r.logger.Info("reminder run created notifications",
			zap.Int("reminders", res.Reminders),
			zap.Int("overdue", res.Overdue),
		)
	}
	return res, nil
}

func (r *Reminder) addOnce(ctx context.Context, n Notification) (bool, error) {
	exists, err := r.center.HasRef(ctx, n.Ref)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if _, err := r.center.Add(ctx, n); err != nil {
		return false, err
	}
	return true, nil
}
