package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hackgods/practice-scheduling-billing/internal/app"
	"github.com/hackgods/practice-scheduling-billing/internal/appointment"
	"github.com/hackgods/practice-scheduling-billing/internal/config"
	"github.com/hackgods/practice-scheduling-billing/internal/notification"
	"github.com/hackgods/practice-scheduling-billing/internal/payment"
	"github.com/hackgods/practice-scheduling-billing/internal/transaction"
)

func memoryConfig() config.Config {
	return config.Config{
		Env:            "test",
		StorageBackend: config.BackendMemory,
		Currency:       "BRL",
	}
}

func book(t *testing.T, a *app.App) *appointment.Appointment {
	t.Helper()
	created, err := a.Appointments.Create(context.Background(), appointment.NewAppointment{
		PatientID: 7,
		Patient:   appointment.PatientSnapshot{Name: "Ana Souza", Email: "ana@example.com"},
		Date:      "2025-09-25",
		Time:      "10:00",
		Duration:  50,
		Type:      appointment.TypeFollowUp,
		Modality:  appointment.ModalityInPerson,
		Price:     decimal.NewFromInt(150),
	})
	require.NoError(t, err)
	return created
}

func TestNew_MemoryBackendWiresCollaborators(t *testing.T) {
	ctx := context.Background()
	a, err := app.New(ctx, memoryConfig(), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	require.Empty(t, a.Checks)
	require.IsType(t, &payment.Simulated{}, a.Gateway)

	created := book(t, a)
	_, err = a.Appointments.Cancel(ctx, created.ID, "sick")
	require.NoError(t, err)

	feed, err := a.Notifications.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	require.Equal(t, notification.TypeAppointmentCancelled, feed[0].Type)
}

func TestNew_BillingBooksIncome(t *testing.T) {
	ctx := context.Background()
	a, err := app.New(ctx, memoryConfig(), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	created := book(t, a)
	res, err := a.Billing.Checkout(ctx, created.ID, payment.MethodCreditCard)
	require.NoError(t, err)
	require.Equal(t, appointment.PaymentPaid, res.Appointment.PaymentStatus)

	id := created.ID
	linked, err := a.Transactions.List(ctx, transaction.Filters{AppointmentID: &id}, transaction.DefaultSort)
	require.NoError(t, err)
	require.Len(t, linked, 1)
	require.True(t, linked[0].Amount.Equal(decimal.NewFromInt(150)))
}

func TestRouter_ReadyWithoutOptionalBackends(t *testing.T) {
	a, err := app.New(context.Background(), memoryConfig(), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	rec := httptest.NewRecorder()
	a.Router("test").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestNew_UnreachablePostgresFails(t *testing.T) {
	cfg := memoryConfig()
	cfg.StorageBackend = config.BackendPostgres
	cfg.PostgresDSN = "postgres://nobody@127.0.0.1:1/none?connect_timeout=1"

	_, err := app.New(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
}

func TestReminder_UsesSavedLeadTime(t *testing.T) {
	ctx := context.Background()
	a, err := app.New(ctx, memoryConfig(), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()
	book(t, a)

	now := func() time.Time { return time.Date(2025, 9, 25, 8, 0, 0, 0, time.UTC) }

	s, err := a.Settings.Get(ctx)
	require.NoError(t, err)
	s.ReminderLeadHours = 1
	_, err = a.Settings.Save(ctx, s)
	require.NoError(t, err)

	res, err := a.Reminder(ctx).WithClock(now, time.UTC).Run(ctx)
	require.NoError(t, err)
	require.Zero(t, res.Reminders)

	require.NoError(t, a.Settings.Reset(ctx))
	res, err = a.Reminder(ctx).WithClock(now, time.UTC).Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.Reminders)
}
