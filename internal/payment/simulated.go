package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hackgods/practice-scheduling-billing/internal/apperror"
	"github.com/hackgods/practice-scheduling-billing/internal/isodate"
)

var (
	ErrUnknownPayment = errors.New("unknown payment")
	ErrNotRefundable  = errors.New("payment is not refundable")
)

type simulatedPayment struct {
	status   Status
	amount   decimal.Decimal
	refunded decimal.Decimal
}

// Simulated is an in-process gateway with an artificial delay. Card
// payments are approved at once; pix and boleto start pending with a payment
// link. Outcome and Fail override that for tests and demos.
type Simulated struct {
	delay  time.Duration
	now    func() time.Time
	logger *zap.Logger

	// Outcome, when set, decides the status of each new payment.
	Outcome func(Request) Status
	// Fail, when set, makes every call fail with it.
	Fail error

	mu       sync.Mutex
	payments map[string]*simulatedPayment
}

func NewSimulated(delay time.Duration, logger *zap.Logger) *Simulated {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulated{
		delay:    delay,
		now:      time.Now,
		logger:   logger,
		payments: make(map[string]*simulatedPayment),
	}
}

func (g *Simulated) wait(ctx context.Context) error {
	if g.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(g.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (g *Simulated) ProcessPayment(ctx context.Context, req Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := g.wait(ctx); err != nil {
		return nil, apperror.Gateway("process payment", err)
	}
	if g.Fail != nil {
		return nil, apperror.Gateway("process payment", g.Fail)
	}

	status := StatusApproved
	if req.PaymentMethod == MethodPix || req.PaymentMethod == MethodBoleto {
		status = StatusPending
	}
	if g.Outcome != nil {
		status = g.Outcome(req)
	}

	id := "pay_" + uuid.NewString()
	resp := &Response{ID: id, Status: status}
	if status == StatusPending {
		link := fmt.Sprintf("https://pay.example.com/%s/%s", req.PaymentMethod, id)
		resp.PaymentLink = &link
	}
	resp.GatewayResponse, _ = json.Marshal(map[string]any{
		"simulated": true,
		"amount":    req.Amount.StringFixed(2),
		"currency":  req.Currency,
	})

	g.mu.Lock()
	g.payments[id] = &simulatedPayment{status: status, amount: req.Amount, refunded: decimal.Zero}
	g.mu.Unlock()

	g.logger.Info("simulated payment processed",
		zap.String("payment_id", id),
		zap.String("status", string(status)),
		zap.String("amount", req.Amount.StringFixed(2)),
	)
	return resp, nil
}

// Settle moves a pending payment to approved, the way a payer completing a
// pix transfer would.
func (g *Simulated) Settle(paymentID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.payments[paymentID]
	if !ok {
		return apperror.Gateway("settle", ErrUnknownPayment)
	}
	if p.status == StatusPending {
		p.status = StatusApproved
	}
	return nil
}

func (g *Simulated) CheckPaymentStatus(ctx context.Context, paymentID, _ string) (Status, error) {
	if err := g.wait(ctx); err != nil {
		return "", apperror.Gateway("check payment status", err)
	}
	if g.Fail != nil {
		return "", apperror.Gateway("check payment status", g.Fail)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.payments[paymentID]
	if !ok {
		return "", apperror.Gateway("check payment status", fmt.Errorf("%w %s", ErrUnknownPayment, paymentID))
	}
	return p.status, nil
}

// ProcessRefund refunds an approved payment. A zero amount refunds what is
// left.
func (g *Simulated) ProcessRefund(ctx context.Context, req RefundRequest) (*RefundResponse, error) {
	if err := g.wait(ctx); err != nil {
		return nil, apperror.Gateway("process refund", err)
	}
	if g.Fail != nil {
		return nil, apperror.Gateway("process refund", g.Fail)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.payments[req.PaymentID]
	if !ok {
		return nil, apperror.Gateway("process refund", fmt.Errorf("%w %s", ErrUnknownPayment, req.PaymentID))
	}
	if p.status != StatusApproved {
		return nil, apperror.Gateway("process refund", fmt.Errorf("%w: status %s", ErrNotRefundable, p.status))
	}
	left := p.amount.Sub(p.refunded)
	amount := req.Amount
	if amount.IsZero() {
		amount = left
	}
	if amount.IsNegative() || amount.GreaterThan(left) {
		return nil, apperror.Gateway("process refund", fmt.Errorf("%w: amount %s exceeds %s", ErrNotRefundable, amount, left))
	}
	p.refunded = p.refunded.Add(amount)
	if p.refunded.Equal(p.amount) {
		p.status = StatusRefunded
	}

	return &RefundResponse{
		ID:            req.PaymentID,
		Status:        StatusRefunded,
		RefundID:      "ref_" + uuid.NewString(),
		EstimatedDate: isodate.Format(g.now().AddDate(0, 0, 5)),
	}, nil
}
