package appointment_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/practice-scheduling-billing/internal/appointment"
)

// stepClock returns a strictly increasing time on every call.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStepClock(start time.Time) *stepClock { return &stepClock{t: start} }

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestStore(t *testing.T, opts ...appointment.Option) (*appointment.Store, *appointment.MemoryRepository) {
	t.Helper()
	repo := appointment.NewMemoryRepository(0)
	clock := newStepClock(time.Date(2025, 9, 20, 9, 0, 0, 0, time.UTC))
	all := append([]appointment.Option{appointment.WithClock(clock.Now)}, opts...)
	return appointment.NewStore(repo, all...), repo
}

func newInput(date, clock string) appointment.NewAppointment {
	return appointment.NewAppointment{
		PatientID: int64(gofakeit.Number(1, 500)),
		Patient: appointment.PatientSnapshot{
			Name:  gofakeit.Name(),
			Phone: gofakeit.Phone(),
			Email: gofakeit.Email(),
		},
		Date:     date,
		Time:     clock,
		Duration: 50,
		Type:     appointment.TypeFollowUp,
		Modality: appointment.ModalityInPerson,
		Price:    decimal.NewFromInt(120),
	}
}

func mustCreate(t *testing.T, s *appointment.Store, in appointment.NewAppointment) *appointment.Appointment {
	t.Helper()
	a, err := s.Create(context.Background(), in)
	require.NoError(t, err)
	return a
}

func fixture(id int64, date, clock string, status appointment.Status, pay appointment.PaymentStatus, price int64) appointment.Appointment {
	return appointment.Appointment{
		ID:            id,
		PatientID:     id,
		Patient:       appointment.PatientSnapshot{Name: "Patient " + string(rune('A'+id%26))},
		Date:          date,
		Time:          clock,
		Duration:      50,
		Type:          appointment.TypeFollowUp,
		Modality:      appointment.ModalityInPerson,
		Status:        status,
		Price:         decimal.NewFromInt(price),
		PaymentStatus: pay,
	}
}

// gatedRepository blocks GetByID until release is closed, so tests can hold
// an operation in flight deterministically.
type gatedRepository struct {
	*appointment.MemoryRepository
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedRepository(seed ...appointment.Appointment) *gatedRepository {
	return &gatedRepository{
		MemoryRepository: appointment.NewMemoryRepository(0, seed...),
		entered:          make(chan struct{}),
		release:          make(chan struct{}),
	}
}

func (g *gatedRepository) GetByID(ctx context.Context, id int64) (*appointment.Appointment, error) {
	g.once.Do(func() { close(g.entered) })
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.MemoryRepository.GetByID(ctx, id)
}

// snapshotGatedRepository takes the List snapshot, then holds it until
// release is closed, so a write can commit while a fetch is reading.
type snapshotGatedRepository struct {
	*appointment.MemoryRepository
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newSnapshotGatedRepository(seed ...appointment.Appointment) *snapshotGatedRepository {
	return &snapshotGatedRepository{
		MemoryRepository: appointment.NewMemoryRepository(0, seed...),
		entered:          make(chan struct{}),
		release:          make(chan struct{}),
	}
}

func (g *snapshotGatedRepository) List(ctx context.Context) ([]appointment.Appointment, error) {
	items, err := g.MemoryRepository.List(ctx)
	if err != nil {
		return nil, err
	}
	first := false
	g.once.Do(func() { first = true; close(g.entered) })
	if first {
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return items, nil
}
