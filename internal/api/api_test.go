package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hackgods/practice-scheduling-billing/internal/api"
	"github.com/hackgods/practice-scheduling-billing/internal/appointment"
	"github.com/hackgods/practice-scheduling-billing/internal/billing"
	"github.com/hackgods/practice-scheduling-billing/internal/calendar"
	"github.com/hackgods/practice-scheduling-billing/internal/notification"
	"github.com/hackgods/practice-scheduling-billing/internal/payment"
	"github.com/hackgods/practice-scheduling-billing/internal/report"
	"github.com/hackgods/practice-scheduling-billing/internal/settings"
	"github.com/hackgods/practice-scheduling-billing/internal/storage"
	"github.com/hackgods/practice-scheduling-billing/internal/transaction"
)

// 2025-09-25 is a Thursday.
func fixedNow() time.Time { return time.Date(2025, 9, 25, 10, 0, 0, 0, time.UTC) }

type harness struct {
	srv     *httptest.Server
	gateway *payment.Simulated
}

func newHarness(t *testing.T, checks ...api.Check) *harness {
	t.Helper()
	kv := storage.NewMemory()
	center := notification.NewCenter(kv, notification.WithClock(fixedNow))
	appointments := appointment.NewStore(appointment.NewMemoryRepository(0),
		appointment.WithEventSink(notification.NewEventSink(center, nil)),
	)
	transactions := transaction.NewStore(transaction.NewMemoryRepository(0))
	gateway := payment.NewSimulated(0, nil)

	handler := api.NewRouter(api.RouterConfig{
		Appointments:  appointments,
		Transactions:  transactions,
		Billing:       billing.NewService(appointments, transactions, gateway, "BRL", billing.WithNotifier(center), billing.WithClock(fixedNow)),
		Notifications: center,
		Settings:      settings.NewStore(kv, "BRL", nil),
		Checks:        checks,
		Now:           fixedNow,
		Env:           "test",
		Version:       "v0.0.0",
	})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &harness{srv: srv, gateway: gateway}
}

func (h *harness) do(t *testing.T, method, path string, body any) (int, []byte, http.Header) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, h.srv.URL+path, reader)
	require.NoError(t, err)
	resp, err := h.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data, resp.Header
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(data, &out), string(data))
	return out
}

func bookingBody(date, clock string) map[string]any {
	return map[string]any{
		"patientId": 7,
		"patient":   map[string]any{"name": "Ana Lima", "phone": "+55 11 99999-0000", "email": "ana@example.com"},
		"date":      date,
		"time":      clock,
		"duration":  50,
		"type":      "followUp",
		"modality":  "inPerson",
		"price":     "150.00",
	}
}

func (h *harness) book(t *testing.T, date, clock string) appointment.Appointment {
	t.Helper()
	status, body, _ := h.do(t, http.MethodPost, "/appointments", bookingBody(date, clock))
	require.Equal(t, http.StatusCreated, status, string(body))
	return decode[appointment.Appointment](t, body)
}

func TestHealth(t *testing.T) {
	down := errors.New("down")
	h := newHarness(t,
		api.Check{Name: "postgres", Required: true, Ping: func(context.Context) error { return nil }},
		api.Check{Name: "redis", Ping: func(context.Context) error { return down }},
	)

	status, body, hdr := h.do(t, http.MethodGet, "/health/live", nil)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, hdr.Get("X-Request-ID"))
	require.Equal(t, "ok", decode[api.LivenessResponse](t, body).Status)

	status, body, _ = h.do(t, http.MethodGet, "/health/ready", nil)
	require.Equal(t, http.StatusOK, status)
	ready := decode[api.ReadinessResponse](t, body)
	require.Equal(t, "degraded", ready.Status)
	require.Equal(t, map[string]string{"postgres": "ok", "redis": "down"}, ready.Dependencies)

	h = newHarness(t, api.Check{Name: "postgres", Required: true, Ping: func(context.Context) error { return down }})
	status, _, _ = h.do(t, http.MethodGet, "/health/ready", nil)
	require.Equal(t, http.StatusServiceUnavailable, status)
}

func TestAppointments_LifecycleAndErrors(t *testing.T) {
	h := newHarness(t)
	a := h.book(t, "2025-09-25", "14:00")
	require.Equal(t, appointment.StatusScheduled, a.Status)

	status, body, _ := h.do(t, http.MethodPost, fmt.Sprintf("/appointments/%d/complete", a.ID), nil)
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "invalid_status_transition", decode[api.ErrorResponse](t, body).Error)

	status, body, _ = h.do(t, http.MethodPost, fmt.Sprintf("/appointments/%d/confirm", a.ID), nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, appointment.StatusConfirmed, decode[appointment.Appointment](t, body).Status)

	status, body, _ = h.do(t, http.MethodPatch, fmt.Sprintf("/appointments/%d", a.ID), map[string]any{"notes": "bring forms"})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "bring forms", decode[appointment.Appointment](t, body).Notes)

	status, _, _ = h.do(t, http.MethodGet, "/appointments/999", nil)
	require.Equal(t, http.StatusNotFound, status)

	status, _, _ = h.do(t, http.MethodGet, "/appointments/abc", nil)
	require.Equal(t, http.StatusBadRequest, status)

	bad := bookingBody("2025-13-40", "25:00")
	status, body, _ = h.do(t, http.MethodPost, "/appointments", bad)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	verr := decode[api.ErrorResponse](t, body)
	require.Contains(t, verr.Fields, "date")
	require.Contains(t, verr.Fields, "time")

	req, err := http.NewRequest(http.MethodPost, h.srv.URL+"/appointments", bytes.NewReader([]byte("{")))
	require.NoError(t, err)
	resp, err := h.srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAppointments_ListFiltersAndStats(t *testing.T) {
	h := newHarness(t)
	first := h.book(t, "2025-09-25", "14:00")
	h.book(t, "2025-09-26", "09:00")
	status, _, _ := h.do(t, http.MethodPost, fmt.Sprintf("/appointments/%d/cancel", first.ID), api.ReasonRequest{Reason: "sick"})
	require.Equal(t, http.StatusOK, status)

	status, body, _ := h.do(t, http.MethodGet, "/appointments?status=scheduled&sort=date&order=desc", nil)
	require.Equal(t, http.StatusOK, status)
	list := decode[api.ListResponse[appointment.Appointment]](t, body)
	require.Equal(t, 1, list.Total)
	require.Equal(t, "2025-09-26", list.Items[0].Date)

	status, _, _ = h.do(t, http.MethodGet, "/appointments?status=bogus", nil)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	status, _, _ = h.do(t, http.MethodGet, "/appointments?sort=weight", nil)
	require.Equal(t, http.StatusUnprocessableEntity, status)

	status, body, _ = h.do(t, http.MethodGet, "/appointments/stats", nil)
	require.Equal(t, http.StatusOK, status)
	stats := decode[appointment.Stats](t, body)
	require.Equal(t, 2, stats.Total)
	require.Equal(t, 1, stats.ByStatus[appointment.StatusCancelled])
	require.InDelta(t, 50.0, stats.CancellationRate, 0.001)

	status, body, hdr := h.do(t, http.MethodGet, "/appointments/export", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, report.ContentType, hdr.Get("Content-Type"))
	require.Contains(t, hdr.Get("Content-Disposition"), "appointments-2025-09-25.xlsx")
	require.NotEmpty(t, body)
}

func TestCalendar_LoadAndNavigate(t *testing.T) {
	h := newHarness(t)
	h.book(t, "2025-09-21", "09:00")
	h.book(t, "2025-09-25", "14:00")
	h.book(t, "2025-09-28", "10:00")

	status, body, _ := h.do(t, http.MethodGet, "/calendar?view=week", nil)
	require.Equal(t, http.StatusOK, status)
	snap := decode[calendar.Snapshot](t, body)
	require.Equal(t, "2025-09-21", snap.Range.StartDate())
	require.Equal(t, "2025-09-27", snap.Range.EndDate())
	require.Len(t, snap.Appointments, 2)
	require.Len(t, snap.Days, 7)
	require.Equal(t, 2, snap.Stats.Total)

	status, body, _ = h.do(t, http.MethodGet, "/calendar?view=day&date=2025-09-28", nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, decode[calendar.Snapshot](t, body).Appointments, 1)

	status, body, _ = h.do(t, http.MethodGet, "/calendar/navigate?view=month&date=2025-01-31&direction=next", nil)
	require.Equal(t, http.StatusOK, status)
	nav := decode[api.NavigateResponse](t, body)
	require.Equal(t, "2025-02-28", nav.Current)
	require.Equal(t, "2025-02-01", nav.Range.StartDate())

	status, _, _ = h.do(t, http.MethodGet, "/calendar?view=year", nil)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	status, _, _ = h.do(t, http.MethodGet, "/calendar/navigate?direction=sideways", nil)
	require.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestSlots(t *testing.T) {
	h := newHarness(t)
	h.book(t, "2025-09-25", "14:00")

	status, body, _ := h.do(t, http.MethodGet, "/slots?date=2025-09-25", nil)
	require.Equal(t, http.StatusOK, status)
	slots := decode[api.SlotsResponse](t, body)
	require.Equal(t, []string{"08:00", "09:00", "10:00", "11:00", "12:00", "13:00", "15:00", "16:00", "17:00"}, slots.Slots)

	status, body, _ = h.do(t, http.MethodGet, "/slots?date=2025-09-27", nil)
	require.Equal(t, http.StatusOK, status)
	require.Empty(t, decode[api.SlotsResponse](t, body).Slots)
}

func TestTransactions_CRUDSummaryPreview(t *testing.T) {
	h := newHarness(t)

	status, body, _ := h.do(t, http.MethodPost, "/transactions", map[string]any{
		"category": "rent", "description": "Office rent", "amount": "1200", "date": "2025-09-05", "status": "completed",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	rent := decode[transaction.Transaction](t, body)
	require.Equal(t, transaction.TypeExpense, rent.Type)

	status, body, _ = h.do(t, http.MethodPost, "/transactions", map[string]any{
		"category": "session", "description": "Session Ana", "amount": "150", "date": "2025-09-10",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	session := decode[transaction.Transaction](t, body)

	status, _, _ = h.do(t, http.MethodPost, fmt.Sprintf("/transactions/%d/complete", session.ID), nil)
	require.Equal(t, http.StatusOK, status)
	status, _, _ = h.do(t, http.MethodPost, fmt.Sprintf("/transactions/%d/complete", session.ID), nil)
	require.Equal(t, http.StatusConflict, status)

	status, body, _ = h.do(t, http.MethodGet, "/transactions", nil)
	require.Equal(t, http.StatusOK, status)
	list := decode[api.TransactionListResponse](t, body)
	require.Equal(t, 2, list.Total)
	require.Equal(t, "-1050", list.Summary.Balance.String())

	status, body, _ = h.do(t, http.MethodGet, "/transactions?type=income", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 1, decode[api.TransactionListResponse](t, body).Total)

	status, body, _ = h.do(t, http.MethodPost, "/transactions/preview", map[string]any{
		"startDate":  "2025-01-31",
		"limit":      3,
		"recurrence": map[string]any{"frequency": "monthly", "interval": 1},
	})
	require.Equal(t, http.StatusOK, status, string(body))
	require.Equal(t, []string{"2025-01-31", "2025-02-28", "2025-03-31"}, decode[api.PreviewResponse](t, body).Dates)

	status, _, _ = h.do(t, http.MethodDelete, fmt.Sprintf("/transactions/%d", rent.ID), nil)
	require.Equal(t, http.StatusNoContent, status)
	status, _, _ = h.do(t, http.MethodGet, fmt.Sprintf("/transactions/%d", rent.ID), nil)
	require.Equal(t, http.StatusNotFound, status)
}

func TestBilling_CheckoutRefundAndGatewayFailure(t *testing.T) {
	h := newHarness(t)
	a := h.book(t, "2025-09-25", "14:00")

	status, body, _ := h.do(t, http.MethodPost, fmt.Sprintf("/appointments/%d/checkout", a.ID), api.CheckoutRequest{PaymentMethod: payment.MethodCreditCard})
	require.Equal(t, http.StatusOK, status, string(body))
	res := decode[billing.Result](t, body)
	require.Equal(t, appointment.PaymentPaid, res.Appointment.PaymentStatus)
	require.NotNil(t, res.Transaction)

	status, _, _ = h.do(t, http.MethodPost, fmt.Sprintf("/appointments/%d/checkout", a.ID), api.CheckoutRequest{PaymentMethod: payment.MethodCreditCard})
	require.Equal(t, http.StatusConflict, status)

	status, body, _ = h.do(t, http.MethodPost, fmt.Sprintf("/appointments/%d/refund", a.ID), api.ReasonRequest{Reason: "moved"})
	require.Equal(t, http.StatusOK, status, string(body))
	require.Equal(t, appointment.PaymentRefunded, decode[billing.Result](t, body).Appointment.PaymentStatus)

	b := h.book(t, "2025-09-26", "09:00")
	h.gateway.Fail = errors.New("acquirer offline")
	status, body, _ = h.do(t, http.MethodPost, fmt.Sprintf("/appointments/%d/checkout", b.ID), api.CheckoutRequest{PaymentMethod: payment.MethodCreditCard})
	require.Equal(t, http.StatusBadGateway, status)
	require.Equal(t, "payment_gateway_error", decode[api.ErrorResponse](t, body).Error)
}

func TestNotifications_FromCancellation(t *testing.T) {
	h := newHarness(t)
	a := h.book(t, "2025-09-25", "14:00")
	status, _, _ := h.do(t, http.MethodPost, fmt.Sprintf("/appointments/%d/cancel", a.ID), api.ReasonRequest{Reason: "sick"})
	require.Equal(t, http.StatusOK, status)

	status, body, _ := h.do(t, http.MethodGet, "/notifications?unread=true", nil)
	require.Equal(t, http.StatusOK, status)
	list := decode[api.ListResponse[notification.Notification]](t, body)
	require.Equal(t, 1, list.Total)
	require.Equal(t, notification.TypeAppointmentCancelled, list.Items[0].Type)
	require.Contains(t, list.Items[0].Message, "Reason: sick")

	status, _, _ = h.do(t, http.MethodPost, "/notifications/"+list.Items[0].ID+"/read", nil)
	require.Equal(t, http.StatusNoContent, status)
	status, body, _ = h.do(t, http.MethodGet, "/notifications/unread-count", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 0, decode[api.UnreadResponse](t, body).Unread)

	status, _, _ = h.do(t, http.MethodPost, "/notifications/missing/read", nil)
	require.Equal(t, http.StatusNotFound, status)

	status, _, _ = h.do(t, http.MethodDelete, "/notifications", nil)
	require.Equal(t, http.StatusNoContent, status)
	status, body, _ = h.do(t, http.MethodGet, "/notifications", nil)
	require.Equal(t, http.StatusOK, status)
	require.Zero(t, decode[api.ListResponse[notification.Notification]](t, body).Total)
}

func TestSettings_GetSaveReset(t *testing.T) {
	h := newHarness(t)

	status, body, _ := h.do(t, http.MethodGet, "/settings", nil)
	require.Equal(t, http.StatusOK, status)
	cfg := decode[settings.Settings](t, body)
	require.Equal(t, "BRL", cfg.Currency)

	cfg.WorkStart = "19:00"
	status, body, _ = h.do(t, http.MethodPut, "/settings", cfg)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	require.Contains(t, decode[api.ErrorResponse](t, body).Fields, "workEnd")

	cfg.WorkStart = "09:00"
	cfg.PracticeName = "Clinica Lima"
	status, body, _ = h.do(t, http.MethodPut, "/settings", cfg)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Clinica Lima", decode[settings.Settings](t, body).PracticeName)

	status, body, _ = h.do(t, http.MethodDelete, "/settings", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, settings.Defaults("BRL").PracticeName, decode[settings.Settings](t, body).PracticeName)
}
