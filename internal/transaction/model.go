package transaction

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hackgods/practice-scheduling-billing/internal/apperror"
	"github.com/hackgods/practice-scheduling-billing/internal/isodate"
)

type Type string

const (
	TypeIncome  Type = "income"
	TypeExpense Type = "expense"
)

func (t Type) Valid() bool { return t == TypeIncome || t == TypeExpense }

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusRefunded  Status = "refunded"
)

var AllStatuses = []Status{StatusPending, StatusCompleted, StatusCancelled, StatusRefunded}

func (s Status) Valid() bool { return slices.Contains(AllStatuses, s) }

type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodPix          PaymentMethod = "pix"
	MethodCreditCard   PaymentMethod = "creditCard"
	MethodDebitCard    PaymentMethod = "debitCard"
	MethodBankTransfer PaymentMethod = "bankTransfer"
	MethodOther        PaymentMethod = "other"
)

var AllPaymentMethods = []PaymentMethod{
	MethodCash, MethodPix, MethodCreditCard, MethodDebitCard, MethodBankTransfer, MethodOther,
}

func (m PaymentMethod) Valid() bool { return slices.Contains(AllPaymentMethods, m) }

type Transaction struct {
	ID            int64             `json:"id"`
	Type          Type              `json:"type"`
	Category      Category          `json:"category"`
	Description   string            `json:"description"`
	Amount        decimal.Decimal   `json:"amount"`
	Date          string            `json:"date"`
	Status        Status            `json:"status"`
	PaymentMethod PaymentMethod     `json:"paymentMethod,omitempty"`
	AppointmentID *int64            `json:"appointmentId,omitempty"`
	PatientID     *int64            `json:"patientId,omitempty"`
	Tags          []string          `json:"tags,omitempty"`
	Notes         string            `json:"notes,omitempty"`
	Recurrence    *RecurrenceConfig `json:"recurrence,omitempty"`
	ReceiptFile   *string           `json:"receiptFile,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// Clone returns a deep copy.
func (t Transaction) Clone() Transaction {
	if t.AppointmentID != nil {
		v := *t.AppointmentID
		t.AppointmentID = &v
	}
	if t.PatientID != nil {
		v := *t.PatientID
		t.PatientID = &v
	}
	if t.ReceiptFile != nil {
		v := *t.ReceiptFile
		t.ReceiptFile = &v
	}
	if t.Tags != nil {
		t.Tags = slices.Clone(t.Tags)
	}
	if t.Recurrence != nil {
		r := t.Recurrence.Clone()
		t.Recurrence = &r
	}
	return t
}

// HasTag reports whether the transaction carries tag, ignoring case.
func (t Transaction) HasTag(tag string) bool {
	for _, v := range t.Tags {
		if strings.EqualFold(v, tag) {
			return true
		}
	}
	return false
}

// NewTransaction is the input of Store.Create.
type NewTransaction struct {
	Type          Type              `json:"type"`
	Category      Category          `json:"category"`
	Description   string            `json:"description"`
	Amount        decimal.Decimal   `json:"amount"`
	Date          string            `json:"date"`
	Status        Status            `json:"status,omitempty"`
	PaymentMethod PaymentMethod     `json:"paymentMethod,omitempty"`
	AppointmentID *int64            `json:"appointmentId,omitempty"`
	PatientID     *int64            `json:"patientId,omitempty"`
	Tags          []string          `json:"tags,omitempty"`
	Notes         string            `json:"notes,omitempty"`
	Recurrence    *RecurrenceConfig `json:"recurrence,omitempty"`
	ReceiptFile   *string           `json:"receiptFile,omitempty"`
}

// Patch holds the fields Update may change. Status goes through the
// transition operations.
type Patch struct {
	Type          *Type             `json:"type,omitempty"`
	Category      *Category         `json:"category,omitempty"`
	Description   *string           `json:"description,omitempty"`
	Amount        *decimal.Decimal  `json:"amount,omitempty"`
	Date          *string           `json:"date,omitempty"`
	PaymentMethod *PaymentMethod    `json:"paymentMethod,omitempty"`
	AppointmentID *int64            `json:"appointmentId,omitempty"`
	PatientID     *int64            `json:"patientId,omitempty"`
	Tags          *[]string         `json:"tags,omitempty"`
	Notes         *string           `json:"notes,omitempty"`
	Recurrence    *RecurrenceConfig `json:"recurrence,omitempty"`
	ReceiptFile   *string           `json:"receiptFile,omitempty"`
}

func (p Patch) apply(t *Transaction) {
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.PaymentMethod != nil {
		t.PaymentMethod = *p.PaymentMethod
	}
	if p.AppointmentID != nil {
		v := *p.AppointmentID
		t.AppointmentID = &v
	}
	if p.PatientID != nil {
		v := *p.PatientID
		t.PatientID = &v
	}
	if p.Tags != nil {
		t.Tags = NormalizeTags(*p.Tags)
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
	if p.Recurrence != nil {
		r := p.Recurrence.Clone()
		t.Recurrence = &r
	}
	if p.ReceiptFile != nil {
		v := *p.ReceiptFile
		t.ReceiptFile = &v
	}
}

// NormalizeTags trims, drops empties and removes case-insensitive
// duplicates, keeping the first spelling seen.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func validate(t Transaction) error {
	var v apperror.Validator

	v.Check(t.Type.Valid(), "type", "must be income or expense")
	if t.Type.Valid() {
		v.Check(t.Category.BelongsTo(t.Type), "category", "is not a "+string(t.Type)+" category")
	}
	v.Check(t.Description != "", "description", "is required")
	v.Check(t.Amount.IsPositive(), "amount", "must be greater than zero")
	v.Check(isodate.Valid(t.Date), "date", "must be YYYY-MM-DD")
	v.Check(t.Status.Valid(), "status", "is not a known status")
	if t.PaymentMethod != "" {
		v.Check(t.PaymentMethod.Valid(), "paymentMethod", "is not a known payment method")
	}
	if t.AppointmentID != nil {
		v.Check(*t.AppointmentID > 0, "appointmentId", "must be positive")
	}
	if t.PatientID != nil {
		v.Check(*t.PatientID > 0, "patientId", "must be positive")
	}
	if t.Recurrence != nil {
		t.Recurrence.validateInto(&v)
	}

	return v.Err()
}
