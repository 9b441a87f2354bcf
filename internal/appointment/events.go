package appointment

import (
	"context"
	"time"
)

const (
	EventAppointmentCreated   = "APPOINTMENT_CREATED"
	EventAppointmentUpdated   = "APPOINTMENT_UPDATED"
	EventAppointmentConfirmed = "APPOINTMENT_CONFIRMED"
	EventAppointmentStarted   = "APPOINTMENT_STARTED"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventAppointmentNoShow    = "APPOINTMENT_NO_SHOW"
	EventAppointmentPayment   = "APPOINTMENT_PAYMENT"
)

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID int64
	Payload       []byte
	CreatedAt     time.Time
}

// Event is what subscribers receive after a committed change.
type Event struct {
	Type        string
	Appointment Appointment
	Payload     map[string]any
	At          time.Time
}

// EventSink receives committed changes. Publish must not block for long;
// it runs after the write, outside the record lock.
type EventSink interface {
	Publish(ctx context.Context, ev Event)
}

type EventSinkFunc func(ctx context.Context, ev Event)

func (f EventSinkFunc) Publish(ctx context.Context, ev Event) { f(ctx, ev) }

type multiSink []EventSink

func (m multiSink) Publish(ctx context.Context, ev Event) {
	for _, s := range m {
		s.Publish(ctx, ev)
	}
}

// Sinks fans an event out to several sinks in order.
func Sinks(sinks ...EventSink) EventSink {
	out := make(multiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}
