package api

import (
	"github.com/hackgods/practice-scheduling-billing/internal/appointment"
	"github.com/hackgods/practice-scheduling-billing/internal/calendar"
	"github.com/hackgods/practice-scheduling-billing/internal/payment"
	"github.com/hackgods/practice-scheduling-billing/internal/transaction"
)

type ErrorResponse struct {
	Error   string            `json:"error"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type ListResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

type ReasonRequest struct {
	Reason string `json:"reason"`
}

type PaymentStatusRequest struct {
	PaymentStatus appointment.PaymentStatus `json:"paymentStatus"`
	PaymentID     string                    `json:"paymentId,omitempty"`
}

type CheckoutRequest struct {
	PaymentMethod payment.Method `json:"paymentMethod"`
}

type PreviewRequest struct {
	Recurrence transaction.RecurrenceConfig `json:"recurrence"`
	StartDate  string                       `json:"startDate"`
	Limit      int                          `json:"limit,omitempty"`
}

type PreviewResponse struct {
	Dates []string `json:"dates"`
}

type TransactionListResponse struct {
	Items   []transaction.Transaction `json:"items"`
	Total   int                       `json:"total"`
	Summary transaction.Summary       `json:"summary"`
}

type NavigateResponse struct {
	View    calendar.View  `json:"view"`
	Current string         `json:"currentDate"`
	Range   calendar.Range `json:"range"`
}

type SlotsResponse struct {
	Date  string   `json:"date"`
	Slots []string `json:"slots"`
}

type UnreadResponse struct {
	Unread int `json:"unread"`
}
