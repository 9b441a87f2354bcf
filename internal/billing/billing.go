// Package billing charges sessions through the payment gateway and keeps the
// appointment, the income ledger and the notification feed in step with it.
package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/practice-scheduling-billing/internal/apperror"
	"github.com/hackgods/practice-scheduling-billing/internal/appointment"
	"github.com/hackgods/practice-scheduling-billing/internal/isodate"
	"github.com/hackgods/practice-scheduling-billing/internal/lock"
	"github.com/hackgods/practice-scheduling-billing/internal/notification"
	"github.com/hackgods/practice-scheduling-billing/internal/payment"
	"github.com/hackgods/practice-scheduling-billing/internal/transaction"
)

var (
	ErrAlreadyPaid       = fmt.Errorf("appointment already paid: %w", apperror.ErrInvalidTransition)
	ErrNotBillable       = fmt.Errorf("appointment cannot be billed: %w", apperror.ErrInvalidTransition)
	ErrNotPaid           = fmt.Errorf("appointment has no settled payment: %w", apperror.ErrInvalidTransition)
	ErrNoPendingPayment  = fmt.Errorf("appointment has no pending payment: %w", apperror.ErrInvalidTransition)
	ErrOutOfStep         = errors.New("gateway refund applied but local records not updated")
	errUnexpectedOutcome = errors.New("unexpected payment status")
)

// Appointments is the part of appointment.Store billing needs.
type Appointments interface {
	Get(ctx context.Context, id int64) (*appointment.Appointment, error)
	SetPaymentStatus(ctx context.Context, id int64, status appointment.PaymentStatus, paymentID string) (*appointment.Appointment, error)
}

// Ledger is the part of transaction.Store billing needs.
type Ledger interface {
	Create(ctx context.Context, in transaction.NewTransaction) (*transaction.Transaction, error)
	Complete(ctx context.Context, id int64) (*transaction.Transaction, error)
	Refund(ctx context.Context, id int64, reason string) (*transaction.Transaction, error)
	List(ctx context.Context, f transaction.Filters, s transaction.Sort) ([]transaction.Transaction, error)
}

// Notifier receives payment notifications. It may be nil.
type Notifier interface {
	Add(ctx context.Context, n notification.Notification) (*notification.Notification, error)
}

// Result reports what a billing operation left behind.
type Result struct {
	Appointment *appointment.Appointment `json:"appointment"`
	Transaction *transaction.Transaction `json:"transaction,omitempty"`
	Payment     *payment.Response        `json:"payment,omitempty"`
	Refund      *payment.RefundResponse  `json:"refund,omitempty"`
}

type Service struct {
	appointments Appointments
	ledger       Ledger
	gateway      payment.Gateway
	notifier     Notifier
	locker       lock.Locker
	inflight     *lock.InFlight
	currency     string
	now          func() time.Time
	logger       *zap.Logger
}

type Option func(*Service)

func WithNotifier(n Notifier) Option { return func(s *Service) { s.notifier = n } }

func WithLocker(l lock.Locker) Option { return func(s *Service) { s.locker = l } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.logger = l } }

func NewService(appointments Appointments, ledger Ledger, gateway payment.Gateway, currency string, opts ...Option) *Service {
	s := &Service{
		appointments: appointments,
		ledger:       ledger,
		gateway:      gateway,
		locker:       lock.NewKeyed(),
		inflight:     lock.NewInFlight(),
		currency:     currency,
		now:          time.Now,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func billingKey(id int64) string { return fmt.Sprintf("billing:appointment:%d", id) }

// guarded runs fn once per appointment and action at a time, holding the
// billing lock of the appointment.
func (s *Service) guarded(ctx context.Context, id int64, action string, fn func(ctx context.Context) error) error {
	key := billingKey(id)
	return s.inflight.Do(key+":"+action, func() error {
		return s.locker.WithLock(ctx, key, fn)
	})
}

// Checkout charges the appointment price. An approved payment marks the
// appointment paid and books a completed session income; a pending one
// records the payment id and waits for Reconcile.
func (s *Service) Checkout(ctx context.Context, appointmentID int64, method payment.Method) (*Result, error) {
	var res Result
	err := s.guarded(ctx, appointmentID, "checkout", func(ctx context.Context) error {
		a, err := s.appointments.Get(ctx, appointmentID)
		if err != nil {
			return err
		}
		if err := billable(a); err != nil {
			return err
		}

		resp, err := s.gateway.ProcessPayment(ctx, s.paymentRequest(a, method))
		if err != nil {
			return err
		}
		res.Payment = resp

		// The gateway has answered; the bookkeeping must finish even if the
		// caller goes away.
		ctx = context.WithoutCancel(ctx)
		switch resp.Status {
		case payment.StatusApproved:
			return s.settle(ctx, a, resp.ID, method, &res)
		case payment.StatusPending:
			res.Appointment, err = s.appointments.SetPaymentStatus(ctx, a.ID, appointment.PaymentPending, resp.ID)
			return err
		case payment.StatusRejected, payment.StatusCancelled:
			res.Appointment = a
			return nil
		default:
			return apperror.Gateway("process payment", fmt.Errorf("%w %q", errUnexpectedOutcome, resp.Status))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("checkout appointment %d: %w", appointmentID, err)
	}

	s.logger.Info("checkout finished",
		zap.Int64("appointment_id", appointmentID),
		zap.String("payment_id", res.Payment.ID),
		zap.String("payment_status", string(res.Payment.Status)),
	)
	return &res, nil
}

// Reconcile asks the gateway about a pending payment and settles or drops it.
func (s *Service) Reconcile(ctx context.Context, appointmentID int64) (*Result, error) {
	var res Result
	err := s.guarded(ctx, appointmentID, "reconcile", func(ctx context.Context) error {
		a, err := s.appointments.Get(ctx, appointmentID)
		if err != nil {
			return err
		}
		if a.PaymentStatus != appointment.PaymentPending || a.PaymentID == nil {
			return ErrNoPendingPayment
		}

		status, err := s.gateway.CheckPaymentStatus(ctx, *a.PaymentID, "")
		if err != nil {
			return err
		}
		res.Payment = &payment.Response{ID: *a.PaymentID, Status: status}

		ctx = context.WithoutCancel(ctx)
		switch status {
		case payment.StatusApproved:
			return s.settle(ctx, a, *a.PaymentID, "", &res)
		case payment.StatusRejected, payment.StatusCancelled:
			res.Appointment, err = s.appointments.SetPaymentStatus(ctx, a.ID, appointment.PaymentCancelled, "")
			return err
		default:
			res.Appointment = a
			return nil
		}
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile appointment %d: %w", appointmentID, err)
	}
	return &res, nil
}

// Refund returns a settled payment in full and reverses the linked income.
func (s *Service) Refund(ctx context.Context, appointmentID int64, reason string) (*Result, error) {
	var res Result
	err := s.guarded(ctx, appointmentID, "refund", func(ctx context.Context) error {
		a, err := s.appointments.Get(ctx, appointmentID)
		if err != nil {
			return err
		}
		if a.PaymentStatus != appointment.PaymentPaid || a.PaymentID == nil {
			return ErrNotPaid
		}
		linked, err := s.linked(ctx, a.ID, transaction.StatusCompleted)
		if err != nil {
			return err
		}

		refund, err := s.gateway.ProcessRefund(ctx, payment.RefundRequest{
			PaymentID: *a.PaymentID,
			Amount:    a.Price,
			Reason:    reason,
		})
		if err != nil {
			return err
		}
		res.Refund = refund

		// The money is back with the payer from here on; local write failures
		// are reported as out of step instead of undone.
		ctx = context.WithoutCancel(ctx)
		if res.Appointment, err = s.appointments.SetPaymentStatus(ctx, a.ID, appointment.PaymentRefunded, ""); err != nil {
			return s.outOfStep(a.ID, refund.RefundID, "appointment", a.ID, err)
		}
		for _, t := range linked {
			if res.Transaction, err = s.ledger.Refund(ctx, t.ID, reason); err != nil {
				return s.outOfStep(a.ID, refund.RefundID, "transaction", t.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("refund appointment %d: %w", appointmentID, err)
	}

	s.logger.Info("refund finished",
		zap.Int64("appointment_id", appointmentID),
		zap.String("refund_id", res.Refund.RefundID),
	)
	return &res, nil
}

func (s *Service) outOfStep(appointmentID int64, refundID, entity string, id int64, err error) error {
	s.logger.Error("refund left records out of step",
		zap.Int64("appointment_id", appointmentID),
		zap.String("refund_id", refundID),
		zap.String("entity", entity),
		zap.Int64("entity_id", id),
		zap.Error(err),
	)
	return fmt.Errorf("%w: refund %s, %s %d: %w", ErrOutOfStep, refundID, entity, id, err)
}

func billable(a *appointment.Appointment) error {
	switch {
	case a.PaymentStatus == appointment.PaymentPaid:
		return ErrAlreadyPaid
	case a.PaymentStatus == appointment.PaymentRefunded:
		return ErrNotBillable
	case a.Status == appointment.StatusCancelled || a.Status == appointment.StatusNoShow:
		return ErrNotBillable
	case !a.Price.IsPositive():
		var v apperror.Validator
		v.Add("price", "must be greater than zero to charge")
		return v.Err()
	}
	return nil
}

func (s *Service) paymentRequest(a *appointment.Appointment, method payment.Method) payment.Request {
	return payment.Request{
		Amount:        a.Price,
		Currency:      s.currency,
		Description:   fmt.Sprintf("Session %s %s", a.Date, a.Time),
		PaymentMethod: method,
		Customer: payment.Customer{
			Name:  a.Patient.Name,
			Email: a.Patient.Email,
			Phone: a.Patient.Phone,
		},
		Metadata: map[string]string{
			"appointmentId": fmt.Sprint(a.ID),
			"patientId":     fmt.Sprint(a.PatientID),
		},
	}
}

// settle marks the appointment paid, books the income once and tells the
// practitioner.
func (s *Service) settle(ctx context.Context, a *appointment.Appointment, paymentID string, method payment.Method, res *Result) error {
	paid, err := s.appointments.SetPaymentStatus(ctx, a.ID, appointment.PaymentPaid, paymentID)
	if err != nil {
		return err
	}
	res.Appointment = paid

	// A pending income booked by hand for this session is completed rather
	// than duplicated.
	open, err := s.linked(ctx, a.ID, transaction.StatusPending)
	if err != nil {
		return err
	}
	if len(open) > 0 {
		res.Transaction, err = s.ledger.Complete(ctx, open[0].ID)
	} else {
		appointmentID, patientID := a.ID, a.PatientID
		res.Transaction, err = s.ledger.Create(ctx, transaction.NewTransaction{
			Type:          transaction.TypeIncome,
			Category:      transaction.CategorySession,
			Description:   fmt.Sprintf("Session %s - %s %s", a.Patient.Name, a.Date, a.Time),
			Amount:        a.Price,
			Date:          isodate.Format(s.now()),
			Status:        transaction.StatusCompleted,
			PaymentMethod: ledgerMethod(method),
			AppointmentID: &appointmentID,
			PatientID:     &patientID,
			Tags:          []string{"session", string(a.Modality)},
		})
	}
	if err != nil {
		return err
	}

	if s.notifier != nil {
		_, err := s.notifier.Add(ctx, notification.Notification{
			Type:    notification.TypePaymentReceived,
			Title:   "Payment received",
			Message: fmt.Sprintf("%s paid %s for the session on %s at %s.", a.Patient.Name, a.Price.StringFixed(2), a.Date, a.Time),
			Ref:     "payment:" + paymentID,
			Metadata: map[string]string{
				"appointmentId": fmt.Sprint(a.ID),
				"paymentId":     paymentID,
			},
		})
		if err != nil {
			s.logger.Warn("payment notification failed",
				zap.Int64("appointment_id", a.ID),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (s *Service) linked(ctx context.Context, appointmentID int64, status transaction.Status) ([]transaction.Transaction, error) {
	id := appointmentID
	return s.ledger.List(ctx, transaction.Filters{
		AppointmentID: &id,
		Statuses:      []transaction.Status{status},
	}, transaction.DefaultSort)
}

func ledgerMethod(m payment.Method) transaction.PaymentMethod {
	switch m {
	case payment.MethodPix:
		return transaction.MethodPix
	case payment.MethodCreditCard:
		return transaction.MethodCreditCard
	case payment.MethodDebitCard:
		return transaction.MethodDebitCard
	case payment.MethodBoleto:
		return transaction.MethodBankTransfer
	case payment.MethodCash:
		return transaction.MethodCash
	}
	return transaction.MethodOther
}
