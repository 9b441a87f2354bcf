package appointment

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

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/practice-scheduling-billing/internal/apperror"
	"github.com/hackgods/practice-scheduling-billing/internal/lock"
)

// Store owns the appointment collection. Every write goes through one of its
// operations so the lifecycle graph is always enforced. Operations on the
// same id are serialized through the Locker; the same action submitted twice
// while the first is pending fails with apperror.ErrInFlight.
type Store struct {
	repo     Repository
	locker   lock.Locker
	inflight *lock.InFlight
	sink     EventSink
	now      func() time.Time
	logger   *zap.Logger

	viewMu    sync.RWMutex
	visible   []Appointment
	viewQuery Filters
	viewSort  Sort
	viewSeq   uint64
	writeSeq  uint64
	fetching  int
	writes    []viewWrite
}

type Option func(*Store)

func WithLocker(l lock.Locker) Option { return func(s *Store) { s.locker = l } }

func WithEventSink(sink EventSink) Option { return func(s *Store) { s.sink = sink } }

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

func recordKey(id int64) string { return fmt.Sprintf("appointment:%d", id) }

// Create validates input, assigns an id and stores a new appointment.
// Status defaults to scheduled and payment to pending; online sessions get a
// video room when none is supplied.
func (s *Store) Create(ctx context.Context, in NewAppointment) (*Appointment, error) {
	now := s.now()
	a := Appointment{
		PatientID:     in.PatientID,
		Patient:       trimSnapshot(in.Patient),
		Date:          in.Date,
		Time:          in.Time,
		Duration:      in.Duration,
		Type:          in.Type,
		Modality:      in.Modality,
		Status:        in.Status,
		Price:         in.Price,
		PaymentStatus: in.PaymentStatus,
		Notes:         strings.TrimSpace(in.Notes),
		VideoRoomID:   in.VideoRoomID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	if a.PaymentStatus == "" {
		a.PaymentStatus = PaymentPending
	}
	if a.Type == "" {
		a.Type = TypeFollowUp
	}
	if a.Modality == ModalityOnline && a.VideoRoomID == nil {
		a.VideoRoomID = newVideoRoom()
	}

	if err := validate(a); err != nil {
		return nil, err
	}
	if a.Status != StatusScheduled && a.Status != StatusConfirmed {
		var v apperror.Validator
		v.Add("status", "new appointments start as scheduled or confirmed")
		return nil, v.Err()
	}

	fingerprint := fmt.Sprintf("create:%d:%s:%s", a.PatientID, a.Date, a.Time)
	err := s.inflight.Do(fingerprint, func() error {
		id, err := s.repo.NextID(ctx)
		if err != nil {
			return fmt.Errorf("allocate id: %w", err)
		}
		a.ID = id
		return s.repo.Insert(ctx, a)
	})
	if err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	s.logger.Info("appointment created",
		zap.Int64("appointment_id", a.ID),
		zap.Int64("patient_id", a.PatientID),
		zap.String("date", a.Date),
		zap.String("time", a.Time),
	)
	s.afterWrite(ctx, EventAppointmentCreated, a, map[string]any{
		"date": a.Date,
		"time": a.Time,
	})

	return &a, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment %d: %w", id, err)
	}
	return a, nil
}

// Update merges patch into the record. Status changes go through the
// transition operations instead.
func (s *Store) Update(ctx context.Context, id int64, patch Patch) (*Appointment, error) {
	return s.mutate(ctx, id, "update", "update:"+fingerprint(patch), EventAppointmentUpdated, nil, func(a *Appointment) error {
		patch.apply(a)
		a.Patient = trimSnapshot(a.Patient)
		switch a.Modality {
		case ModalityOnline:
			if a.VideoRoomID == nil {
				a.VideoRoomID = newVideoRoom()
			}
		case ModalityInPerson:
			if patch.VideoRoomID == nil {
				a.VideoRoomID = nil
			}
		}
		return nil
	})
}

func (s *Store) Confirm(ctx context.Context, id int64) (*Appointment, error) {
	return s.transition(ctx, id, "confirm", StatusConfirmed, EventAppointmentConfirmed)
}

func (s *Store) Start(ctx context.Context, id int64) (*Appointment, error) {
	return s.transition(ctx, id, "start", StatusInProgress, EventAppointmentStarted)
}

func (s *Store) Complete(ctx context.Context, id int64) (*Appointment, error) {
	return s.transition(ctx, id, "complete", StatusCompleted, EventAppointmentCompleted)
}

func (s *Store) MarkNoShow(ctx context.Context, id int64) (*Appointment, error) {
	return s.transition(ctx, id, "mark no-show", StatusNoShow, EventAppointmentNoShow)
}

// Cancel moves the appointment to cancelled. A non-empty reason is appended
// to the notes with a timestamp, never replacing what was there.
func (s *Store) Cancel(ctx context.Context, id int64, reason string) (*Appointment, error) {
	reason = strings.TrimSpace(reason)
	payload := map[string]any{}
	if reason != "" {
		payload["reason"] = reason
	}
	return s.mutate(ctx, id, "cancel", "cancel", EventAppointmentCancelled, payload, func(a *Appointment) error {
		if err := checkTransition(a.Status, StatusCancelled); err != nil {
			return err
		}
		a.Status = StatusCancelled
		if reason != "" {
			line := fmt.Sprintf("[%s] Cancelled: %s", s.now().Format("2006-01-02 15:04"), reason)
			if a.Notes == "" {
				a.Notes = line
			} else {
				a.Notes = a.Notes + "\n" + line
			}
		}
		return nil
	})
}

// MarkPaid records a settled payment for the session.
func (s *Store) MarkPaid(ctx context.Context, id int64, paymentID string) (*Appointment, error) {
	return s.SetPaymentStatus(ctx, id, PaymentPaid, paymentID)
}

// SetPaymentStatus changes the payment side only. paymentID is kept when
// empty.
func (s *Store) SetPaymentStatus(ctx context.Context, id int64, status PaymentStatus, paymentID string) (*Appointment, error) {
	if !status.Valid() {
		var v apperror.Validator
		v.Add("paymentStatus", "is not a known payment status")
		return nil, v.Err()
	}
	payload := map[string]any{"payment_status": string(status)}
	if paymentID != "" {
		payload["payment_id"] = paymentID
	}
	guard := fmt.Sprintf("payment:%s:%s", status, paymentID)
	return s.mutate(ctx, id, "payment", guard, EventAppointmentPayment, payload, func(a *Appointment) error {
		a.PaymentStatus = status
		if paymentID != "" {
			pid := paymentID
			a.PaymentID = &pid
		}
		return nil
	})
}

func (s *Store) transition(ctx context.Context, id int64, action string, to Status, eventType string) (*Appointment, error) {
	var from Status
	payload := map[string]any{"to": string(to)}
	updated, err := s.mutate(ctx, id, action, action, eventType, payload, func(a *Appointment) error {
		if err := checkTransition(a.Status, to); err != nil {
			return err
		}
		from = a.Status
		a.Status = to
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("appointment status changed",
		zap.Int64("appointment_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return updated, nil
}

// mutate is the read-modify-write cycle shared by every update. It holds
// the record lock for the whole cycle so concurrent operations on one id
// apply one after the other, and leaves the stored record untouched when fn,
// validation or the write fails. guard names the submission: a second call
// with the same guard while the first is pending fails with ErrInFlight,
// any other call waits for the lock.
func (s *Store) mutate(ctx context.Context, id int64, action, guard, eventType string, payload map[string]any, fn func(a *Appointment) error) (*Appointment, error) {
	key := recordKey(id)
	var updated Appointment

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
			// updatedAt must move forward even with a coarse clock
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
			s.logger.Warn("appointment write failed",
				zap.Int64("appointment_id", id),
				zap.String("action", action),
				zap.Error(err),
			)
		}
		return nil, fmt.Errorf("%s appointment %d: %w", action, id, err)
	}

	s.afterWrite(ctx, eventType, updated, payload)
	return &updated, nil
}

// List returns the filtered, sorted collection without touching the view.
func (s *Store) List(ctx context.Context, f Filters, sortBy Sort) ([]Appointment, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if sortBy.Key == "" {
		sortBy = DefaultSort
	}
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return Sorted(f.Apply(all), sortBy), nil
}

// Fetch re-derives the visible collection. When fetches overlap, only the
// most recently started one may replace the view. Writes committed while the
// fetch was reading are replayed onto its result before it is installed.
func (s *Store) Fetch(ctx context.Context, f Filters, sortBy Sort) ([]Appointment, error) {
	if sortBy.Key == "" {
		sortBy = DefaultSort
	}

	s.viewMu.Lock()
	s.viewSeq++
	seq := s.viewSeq
	since := s.writeSeq
	s.fetching++
	s.viewMu.Unlock()

	items, err := s.List(ctx, f, sortBy)

	s.viewMu.Lock()
	s.fetching--
	if err == nil {
		for _, w := range s.writes {
			if w.seq > since {
				items = applyWrite(items, w.a, f, sortBy)
			}
		}
		if seq == s.viewSeq {
			s.visible = items
			s.viewQuery = f
			s.viewSort = sortBy
		}
	}
	if s.fetching == 0 {
		s.writes = nil
	}
	s.viewMu.Unlock()

	if err != nil {
		return nil, err
	}
	return cloneAll(items), nil
}

// Visible returns a copy of the currently visible collection.
func (s *Store) Visible() []Appointment {
	s.viewMu.RLock()
	defer s.viewMu.RUnlock()
	return cloneAll(s.visible)
}

func cloneAll(items []Appointment) []Appointment {
	out := make([]Appointment, len(items))
	for i, a := range items {
		out[i] = a.Clone()
	}
	return out
}

// refreshVisible keeps the view consistent with a committed write: the record
// is replaced, added or dropped depending on whether it still matches. While
// a fetch is reading, the write is also kept for it to replay.
func (s *Store) refreshVisible(a Appointment) {
	s.viewMu.Lock()
	defer s.viewMu.Unlock()

	s.writeSeq++
	if s.fetching > 0 {
		s.writes = append(s.writes, viewWrite{seq: s.writeSeq, a: a.Clone()})
	}
	if s.viewSeq == 0 {
		return
	}
	s.visible = applyWrite(s.visible, a, s.viewQuery, s.viewSort)
}

type viewWrite struct {
	seq uint64
	a   Appointment
}

func applyWrite(items []Appointment, a Appointment, f Filters, sortBy Sort) []Appointment {
	kept := make([]Appointment, 0, len(items)+1)
	for _, v := range items {
		if v.ID != a.ID {
			kept = append(kept, v)
		}
	}
	if f.Predicate()(a) {
		kept = append(kept, a.Clone())
	}
	return Sorted(kept, sortBy)
}

// fingerprint identifies a submission by its payload.
func fingerprint(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return uuid.NewString()
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

func (s *Store) afterWrite(ctx context.Context, eventType string, a Appointment, payload map[string]any) {
	s.refreshVisible(a)
	s.logEvent(ctx, a.ID, eventType, payload)
	if s.sink != nil {
		s.sink.Publish(ctx, Event{Type: eventType, Appointment: a.Clone(), Payload: payload, At: a.UpdatedAt})
	}
}

func (s *Store) logEvent(ctx context.Context, appointmentID int64, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("failed to marshal event payload", zap.String("event_type", eventType), zap.Error(err))
		data = nil
	}

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: appointmentID,
		Payload:       data,
		CreatedAt:     s.now(),
	}

	if err := s.repo.InsertEvent(context.WithoutCancel(ctx), ev); err != nil {
		s.logger.Warn("failed to insert event log",
			zap.String("event_type", eventType),
			zap.Int64("appointment_id", appointmentID),
			zap.Error(err),
		)
	}
}

func trimSnapshot(p PatientSnapshot) PatientSnapshot {
	return PatientSnapshot{
		Name:  strings.TrimSpace(p.Name),
		Phone: strings.TrimSpace(p.Phone),
		Email: strings.TrimSpace(p.Email),
	}
}

func newVideoRoom() *string {
	id := "room-" + uuid.NewString()
	return &id
}
