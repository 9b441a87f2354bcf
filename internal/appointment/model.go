package appointment

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hackgods/practice-scheduling-billing/internal/apperror"
	"github.com/hackgods/practice-scheduling-billing/internal/isodate"
)

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "inProgress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "noShow"
)

var AllStatuses = []Status{
	StatusScheduled, StatusConfirmed, StatusInProgress,
	StatusCompleted, StatusCancelled, StatusNoShow,
}

func (s Status) Valid() bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

type Type string

const (
	TypeInitial  Type = "initial"
	TypeFollowUp Type = "followUp"
)

func (t Type) Valid() bool { return t == TypeInitial || t == TypeFollowUp }

type Modality string

const (
	ModalityInPerson Modality = "inPerson"
	ModalityOnline   Modality = "online"
)

func (m Modality) Valid() bool { return m == ModalityInPerson || m == ModalityOnline }

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentCancelled PaymentStatus = "cancelled"
	PaymentRefunded  PaymentStatus = "refunded"
)

func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentPaid, PaymentCancelled, PaymentRefunded:
		return true
	}
	return false
}

// PatientSnapshot is the patient data as of booking time. It is never
// refreshed when the patient record changes.
type PatientSnapshot struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

type Appointment struct {
	ID            int64           `json:"id"`
	PatientID     int64           `json:"patientId"`
	Patient       PatientSnapshot `json:"patient"`
	Date          string          `json:"date"`
	Time          string          `json:"time"`
	Duration      int             `json:"duration"`
	Type          Type            `json:"type"`
	Modality      Modality        `json:"modality"`
	Status        Status          `json:"status"`
	Price         decimal.Decimal `json:"price"`
	PaymentStatus PaymentStatus   `json:"paymentStatus"`
	PaymentID     *string         `json:"paymentId,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	VideoRoomID   *string         `json:"videoRoomId,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Clone returns a deep copy so callers never share pointers with the store.
func (a Appointment) Clone() Appointment {
	if a.PaymentID != nil {
		v := *a.PaymentID
		a.PaymentID = &v
	}
	if a.VideoRoomID != nil {
		v := *a.VideoRoomID
		a.VideoRoomID = &v
	}
	return a
}

// StartsAt combines Date and Time in loc.
func (a Appointment) StartsAt(loc *time.Location) (time.Time, error) {
	d, err := isodate.ParseIn(a.Date, loc)
	if err != nil {
		return time.Time{}, err
	}
	m, err := isodate.ClockMinutes(a.Time)
	if err != nil {
		return time.Time{}, err
	}
	return d.Add(time.Duration(m) * time.Minute), nil
}

func (a Appointment) EndsAt(loc *time.Location) (time.Time, error) {
	start, err := a.StartsAt(loc)
	if err != nil {
		return time.Time{}, err
	}
	return start.Add(time.Duration(a.Duration) * time.Minute), nil
}

// Active reports whether the appointment still occupies its time slot.
func (a Appointment) Active() bool {
	return a.Status != StatusCancelled && a.Status != StatusNoShow
}

// NewAppointment is the input of Store.Create.
type NewAppointment struct {
	PatientID     int64           `json:"patientId"`
	Patient       PatientSnapshot `json:"patient"`
	Date          string          `json:"date"`
	Time          string          `json:"time"`
	Duration      int             `json:"duration"`
	Type          Type            `json:"type"`
	Modality      Modality        `json:"modality"`
	Status        Status          `json:"status,omitempty"`
	Price         decimal.Decimal `json:"price"`
	PaymentStatus PaymentStatus   `json:"paymentStatus,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	VideoRoomID   *string         `json:"videoRoomId,omitempty"`
}

// Patch holds the fields Update may change. Nil fields are left as is.
// Status, id and audit fields are not patchable.
type Patch struct {
	PatientID     *int64           `json:"patientId,omitempty"`
	Patient       *PatientSnapshot `json:"patient,omitempty"`
	Date          *string          `json:"date,omitempty"`
	Time          *string          `json:"time,omitempty"`
	Duration      *int             `json:"duration,omitempty"`
	Type          *Type            `json:"type,omitempty"`
	Modality      *Modality        `json:"modality,omitempty"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	PaymentStatus *PaymentStatus   `json:"paymentStatus,omitempty"`
	Notes         *string          `json:"notes,omitempty"`
	VideoRoomID   *string          `json:"videoRoomId,omitempty"`
}

func (p Patch) apply(a *Appointment) {
	if p.PatientID != nil {
		a.PatientID = *p.PatientID
	}
	if p.Patient != nil {
		a.Patient = *p.Patient
	}
	if p.Date != nil {
		a.Date = *p.Date
	}
	if p.Time != nil {
		a.Time = *p.Time
	}
	if p.Duration != nil {
		a.Duration = *p.Duration
	}
	if p.Type != nil {
		a.Type = *p.Type
	}
	if p.Modality != nil {
		a.Modality = *p.Modality
	}
	if p.Price != nil {
		a.Price = *p.Price
	}
	if p.PaymentStatus != nil {
		a.PaymentStatus = *p.PaymentStatus
	}
	if p.Notes != nil {
		a.Notes = *p.Notes
	}
	if p.VideoRoomID != nil {
		v := *p.VideoRoomID
		a.VideoRoomID = &v
	}
}

// validate checks a full record before it is written.
func validate(a Appointment) error {
	var v apperror.Validator

	v.Check(a.PatientID > 0, "patientId", "is required")
	v.Check(strings.TrimSpace(a.Patient.Name) != "", "patient.name", "is required")
	v.Check(isodate.Valid(a.Date), "date", "must be YYYY-MM-DD")
	v.Check(isodate.ValidClock(a.Time), "time", "must be HH:MM")
	v.Check(a.Duration > 0, "duration", "must be a positive number of minutes")
	v.Check(a.Type.Valid(), "type", "must be initial or followUp")
	v.Check(a.Modality.Valid(), "modality", "must be inPerson or online")
	v.Check(a.Status.Valid(), "status", "is not a known status")
	v.Check(!a.Price.IsNegative(), "price", "must not be negative")
	v.Check(a.PaymentStatus.Valid(), "paymentStatus", "is not a known payment status")
	if a.Modality == ModalityInPerson {
		v.Check(a.VideoRoomID == nil, "videoRoomId", "only online sessions have a video room")
	}

	return v.Err()
}
