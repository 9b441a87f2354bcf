// Package api exposes the scheduling and billing core over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hackgods/practice-scheduling-billing/internal/appointment"
	"github.com/hackgods/practice-scheduling-billing/internal/billing"
	"github.com/hackgods/practice-scheduling-billing/internal/notification"
	"github.com/hackgods/practice-scheduling-billing/internal/settings"
	"github.com/hackgods/practice-scheduling-billing/internal/transaction"
)

type RouterConfig struct {
	Appointments  *appointment.Store
	Transactions  *transaction.Store
	Billing       *billing.Service
	Notifications *notification.Center
	Settings      *settings.Store
	Checks        []Check
	Logger        *zap.Logger
	Now           func() time.Time
	Env           string
	Version       string
}

// Server holds the collaborators the handlers share.
type Server struct {
	appointments  *appointment.Store
	transactions  *transaction.Store
	billing       *billing.Service
	notifications *notification.Center
	settings      *settings.Store
	now           func() time.Time
	logger        *zap.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	s := &Server{
		appointments:  cfg.Appointments,
		transactions:  cfg.Transactions,
		billing:       cfg.Billing,
		notifications: cfg.Notifications,
		settings:      cfg.Settings,
		now:           cfg.Now,
		logger:        cfg.Logger,
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(RecoverMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.Checks, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Get("/calendar", s.loadCalendar)
	r.Get("/calendar/navigate", s.navigateCalendar)
	r.Get("/slots", s.freeSlots)

	r.Route("/appointments", func(r chi.Router) {
		r.Get("/", s.listAppointments)
		r.Post("/", s.createAppointment)
		r.Get("/stats", s.appointmentStats)
		r.Get("/export", s.exportAppointments)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getAppointment)
			r.Patch("/", s.updateAppointment)
			r.Post("/confirm", s.appointmentTransition((*appointment.Store).Confirm))
			r.Post("/start", s.appointmentTransition((*appointment.Store).Start))
			r.Post("/complete", s.appointmentTransition((*appointment.Store).Complete))
			r.Post("/no-show", s.appointmentTransition((*appointment.Store).MarkNoShow))
			r.Post("/cancel", s.cancelAppointment)
			r.Post("/payment", s.setPaymentStatus)
			if s.billing != nil {
				r.Post("/checkout", s.checkout)
				r.Post("/reconcile", s.reconcile)
				r.Post("/refund", s.refund)
			}
		})
	})

	r.Route("/transactions", func(r chi.Router) {
		r.Get("/", s.listTransactions)
		r.Post("/", s.createTransaction)
		r.Get("/summary", s.transactionSummary)
		r.Get("/export", s.exportTransactions)
		r.Get("/categories", s.transactionCategories)
		r.Post("/preview", s.previewRecurrence)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getTransaction)
			r.Patch("/", s.updateTransaction)
			r.Delete("/", s.deleteTransaction)
			r.Post("/complete", s.completeTransaction)
			r.Post("/cancel", s.transactionWithReason((*transaction.Store).Cancel))
			r.Post("/refund", s.transactionWithReason((*transaction.Store).Refund))
		})
	})

	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", s.listNotifications)
		r.Post("/", s.addNotification)
		r.Delete("/", s.clearNotifications)
		r.Get("/unread-count", s.unreadCount)
		r.Post("/read-all", s.markAllRead)
		r.Post("/{id}/read", s.markRead)
		r.Delete("/{id}", s.removeNotification)
	})

	r.Route("/settings", func(r chi.Router) {
		r.Get("/", s.getSettings)
		r.Put("/", s.saveSettings)
		r.Delete("/", s.resetSettings)
	})

	return r
}
