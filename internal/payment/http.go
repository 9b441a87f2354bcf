package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/practice-scheduling-billing/internal/apperror"
)

// HTTPGateway talks JSON to a remote payment provider.
type HTTPGateway struct {
	client *resty.Client
	logger *zap.Logger
}

type gatewayError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// IdempotencyHeader carries one key per logical charge or refund, repeated
// on every retry, so the provider applies it at most once.
const IdempotencyHeader = "Idempotency-Key"

// NewHTTPGateway builds the client. Transport failures are retried by resty;
// a provider that answered with an error is never retried.
func NewHTTPGateway(baseURL, apiKey string, logger *zap.Logger) *HTTPGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(200*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	return &HTTPGateway{client: client, logger: logger}
}

func (g *HTTPGateway) ProcessPayment(ctx context.Context, req Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var out Response
	var failure gatewayError
	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader(IdempotencyHeader, uuid.NewString()).
		SetBody(req).
		SetResult(&out).
		SetError(&failure).
		Post("/payments")
	if err := g.check("process payment", resp, err, failure); err != nil {
		return nil, err
	}

	g.logger.Info("payment processed",
		zap.String("payment_id", out.ID),
		zap.String("status", string(out.Status)),
	)
	return &out, nil
}

func (g *HTTPGateway) CheckPaymentStatus(ctx context.Context, paymentID, gatewayHint string) (Status, error) {
	var out struct {
		Status Status `json:"status"`
	}
	var failure gatewayError
	r := g.client.R().
		SetContext(ctx).
		SetPathParam("id", paymentID).
		SetResult(&out).
		SetError(&failure)
	if gatewayHint != "" {
		r.SetQueryParam("gateway", gatewayHint)
	}
	resp, err := r.Get("/payments/{id}")
	if err := g.check("check payment status", resp, err, failure); err != nil {
		return "", err
	}
	return out.Status, nil
}

func (g *HTTPGateway) ProcessRefund(ctx context.Context, req RefundRequest) (*RefundResponse, error) {
	var out RefundResponse
	var failure gatewayError
	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader(IdempotencyHeader, uuid.NewString()).
		SetBody(req).
		SetResult(&out).
		SetError(&failure).
		Post("/refunds")
	if err := g.check("process refund", resp, err, failure); err != nil {
		return nil, err
	}

	g.logger.Info("refund processed",
		zap.String("payment_id", req.PaymentID),
		zap.String("refund_id", out.RefundID),
	)
	return &out, nil
}

func (g *HTTPGateway) check(op string, resp *resty.Response, err error, failure gatewayError) error {
	if err != nil {
		g.logger.Error("payment gateway call failed", zap.String("op", op), zap.Error(err))
		return apperror.Gateway(op, err)
	}
	if resp.IsError() {
		g.logger.Error("payment gateway returned error",
			zap.String("op", op),
			zap.Int("status_code", resp.StatusCode()),
			zap.String("code", failure.Code),
			zap.String("message", failure.Message),
		)
		msg := failure.Message
		if msg == "" {
			msg = resp.Status()
		}
		return apperror.Gateway(op, fmt.Errorf("status %d: %s", resp.StatusCode(), msg))
	}
	return nil
}
