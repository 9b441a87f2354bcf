package notification

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/hackgods/practice-scheduling-billing/internal/appointment"
)

// EventSink turns committed appointment cancellations into feed entries.
type EventSink struct {
	center *Center
	logger *zap.Logger
}

func NewEventSink(center *Center, logger *zap.Logger) *EventSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventSink{center: center, logger: logger}
}

func (s *EventSink) Publish(ctx context.Context, ev appointment.Event) {
	if ev.Type != appointment.EventAppointmentCancelled {
		return
	}
	a := ev.Appointment

	msg := fmt.Sprintf("%s's session on %s at %s was cancelled.", a.Patient.Name, a.Date, a.Time)
	meta := map[string]string{
		"appointmentId": strconv.FormatInt(a.ID, 10),
		"date":          a.Date,
		"time":          a.Time,
	}
	if reason, ok := ev.Payload["reason"].(string); ok && reason != "" {
		msg += " Reason: " + reason
		meta["reason"] = reason
	}

	_, err := s.center.Add(context.WithoutCancel(ctx), Notification{
		Type:     TypeAppointmentCancelled,
		Title:    "Appointment cancelled",
		Message:  msg,
		Ref:      "cancelled:" + refFor(a.ID),
		Metadata: meta,
	})
	if err != nil {
		s.logger.Warn("failed to add cancellation notification",
			zap.Int64("appointment_id", a.ID),
			zap.Error(err),
		)
	}
}

func refFor(appointmentID int64) string {
	return "appointment:" + strconv.FormatInt(appointmentID, 10)
}
