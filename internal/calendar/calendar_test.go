package calendar_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/practice-scheduling-billing/internal/appointment"
	"github.com/hackgods/practice-scheduling-billing/internal/apperror"
	"github.com/hackgods/practice-scheduling-billing/internal/calendar"
)

// fakeFetcher records the last query and filters a fixed collection.
type fakeFetcher struct {
	items []appointment.Appointment
	last  appointment.Filters
	err   error
}

func (f *fakeFetcher) Fetch(_ context.Context, q appointment.Filters, s appointment.Sort) ([]appointment.Appointment, error) {
	f.last = q
	if f.err != nil {
		return nil, f.err
	}
	return appointment.Sorted(q.Apply(f.items), s), nil
}

func appt(id int64, date, clock string, status appointment.Status, pay appointment.PaymentStatus) appointment.Appointment {
	return appointment.Appointment{
		ID: id, PatientID: id, Date: date, Time: clock, Duration: 50,
		Status: status, PaymentStatus: pay, Price: decimal.NewFromInt(100),
	}
}

func fixedNow() time.Time { return time.Date(2025, 9, 25, 10, 0, 0, 0, time.UTC) }

func TestCalendar_LoadWeek(t *testing.T) {
	src := &fakeFetcher{items: []appointment.Appointment{
		appt(1, "2025-09-22", "10:00", appointment.StatusCompleted, appointment.PaymentPaid),
		appt(2, "2025-09-22", "08:00", appointment.StatusScheduled, appointment.PaymentPending),
		appt(3, "2025-09-27", "09:00", appointment.StatusCancelled, appointment.PaymentCancelled),
		appt(4, "2025-09-28", "09:00", appointment.StatusScheduled, appointment.PaymentPending),
	}}
	cal := calendar.New(src, calendar.WithClock(fixedNow))

	snap, err := cal.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, calendar.ViewWeek, snap.State.View)
	require.Equal(t, "2025-09-21", src.last.StartDate)
	require.Equal(t, "2025-09-27", src.last.EndDate)

	require.Len(t, snap.Appointments, 3)
	require.Equal(t, int64(2), snap.Appointments[0].ID)
	require.Equal(t, 3, snap.Stats.Total)
	require.Equal(t, "100", snap.Stats.TotalRevenue.String())

	require.Len(t, snap.Days, 7)
	require.Equal(t, "2025-09-22", snap.Days[1].Date)
	require.Len(t, snap.Days[1].Appointments, 2)
	require.Empty(t, snap.Days[0].Appointments)
}

func TestCalendar_FiltersIntersectWithWindow(t *testing.T) {
	src := &fakeFetcher{}
	cal := calendar.New(src, calendar.WithClock(fixedNow))
	require.NoError(t, cal.SetFilters(appointment.Filters{StartDate: "2025-09-24", Statuses: []appointment.Status{appointment.StatusConfirmed}}))

	_, err := cal.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "2025-09-24", src.last.StartDate)
	require.Equal(t, "2025-09-27", src.last.EndDate)
	require.Equal(t, []appointment.Status{appointment.StatusConfirmed}, src.last.Statuses)
}

func TestCalendar_NavigationAndToday(t *testing.T) {
	cal := calendar.New(&fakeFetcher{}, calendar.WithClock(fixedNow), calendar.WithView(calendar.ViewMonth))

	cal.Select(time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC))
	require.Equal(t, "2025-02-28", cal.Next().Format("2006-01-02"))
	require.Equal(t, "2025-01-31", cal.State().Selected)

	require.NoError(t, cal.SetView(calendar.ViewDay))
	require.Equal(t, "2025-02-27", cal.Prev().Format("2006-01-02"))

	cal.GoToToday()
	st := cal.State()
	require.Equal(t, "2025-09-25", st.Current)
	require.Equal(t, "2025-09-25", st.Selected)
	require.Equal(t, calendar.ViewDay, st.View)
}

func TestCalendar_ListViewHasNoDayGrid(t *testing.T) {
	src := &fakeFetcher{items: []appointment.Appointment{
		appt(1, "2025-10-20", "10:00", appointment.StatusScheduled, appointment.PaymentPending),
		appt(2, "2025-11-20", "10:00", appointment.StatusScheduled, appointment.PaymentPending),
	}}
	cal := calendar.New(src, calendar.WithClock(fixedNow), calendar.WithView(calendar.ViewList))

	snap, err := cal.Load(context.Background())
	require.NoError(t, err)
	require.Nil(t, snap.Days)
	require.Len(t, snap.Appointments, 1)
	require.Equal(t, "2025-10-25", src.last.EndDate)
}

func TestCalendar_RejectsUnknownSettings(t *testing.T) {
	cal := calendar.New(&fakeFetcher{})
	require.ErrorIs(t, cal.SetView("year"), apperror.ErrValidation)
	require.ErrorIs(t, cal.SetSort(appointment.Sort{Key: "mood"}), apperror.ErrValidation)
	require.ErrorIs(t, cal.SetFilters(appointment.Filters{EndDate: "soon"}), apperror.ErrValidation)
}

func TestCalendar_LoadPropagatesErrors(t *testing.T) {
	boom := errors.New("backend down")
	cal := calendar.New(&fakeFetcher{err: boom})
	_, err := cal.Load(context.Background())
	require.ErrorIs(t, err, boom)
}
