// Package payment defines the contract of the external payment collaborator
// and ships a simulated gateway plus an HTTP client for a real one.
package payment

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/hackgods/practice-scheduling-billing/internal/apperror"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
	StatusRefunded  Status = "refunded"
)

type Method string

const (
	MethodPix        Method = "pix"
	MethodCreditCard Method = "creditCard"
	MethodDebitCard  Method = "debitCard"
	MethodBoleto     Method = "boleto"
	MethodCash       Method = "cash"
)

func (m Method) Valid() bool {
	switch m {
	case MethodPix, MethodCreditCard, MethodDebitCard, MethodBoleto, MethodCash:
		return true
	}
	return false
}

type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type Request struct {
	Amount        decimal.Decimal   `json:"amount"`
	Currency      string            `json:"currency"`
	Description   string            `json:"description"`
	PaymentMethod Method            `json:"paymentMethod"`
	Customer      Customer          `json:"customerData"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

func (r Request) Validate() error {
	var v apperror.Validator
	v.Check(r.Amount.IsPositive(), "amount", "must be greater than zero")
	v.Check(len(r.Currency) == 3, "currency", "must be a 3 letter ISO code")
	v.Check(r.PaymentMethod.Valid(), "paymentMethod", "is not a supported payment method")
	v.Check(r.Customer.Name != "", "customerData.name", "is required")
	return v.Err()
}

type Response struct {
	ID              string          `json:"id"`
	Status          Status          `json:"status"`
	PaymentLink     *string         `json:"paymentLink,omitempty"`
	GatewayResponse json.RawMessage `json:"gatewayResponse,omitempty"`
}

type RefundRequest struct {
	PaymentID string          `json:"paymentId"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason,omitempty"`
}

type RefundResponse struct {
	ID            string `json:"id"`
	Status        Status `json:"status"`
	RefundID      string `json:"refundId"`
	EstimatedDate string `json:"estimatedDate"`
}

// Gateway is the payment collaborator. Implementations report every failure
// wrapped in apperror.ErrGateway.
type Gateway interface {
	ProcessPayment(ctx context.Context, req Request) (*Response, error)
	CheckPaymentStatus(ctx context.Context, paymentID, gatewayHint string) (Status, error)
	ProcessRefund(ctx context.Context, req RefundRequest) (*RefundResponse, error)
}
