package appointment

import (
	"github.com/hackgods/practice-scheduling-billing/internal/apperror"
	"github.com/hackgods/practice-scheduling-billing/internal/isodate"
	"github.com/hackgods/practice-scheduling-billing/internal/query"
)

// Filters narrows a collection. Every set field is ANDed; zero values
// impose no constraint.
type Filters struct {
	Statuses      []Status       `json:"status,omitempty"`
	Modality      *Modality      `json:"modality,omitempty"`
	PaymentStatus *PaymentStatus `json:"paymentStatus,omitempty"`
	Type          *Type          `json:"type,omitempty"`
	PatientID     *int64         `json:"patientId,omitempty"`
	StartDate     string         `json:"startDate,omitempty"`
	EndDate       string         `json:"endDate,omitempty"`
	Search        string         `json:"search,omitempty"`
}

func (f Filters) Validate() error {
	var v apperror.Validator
	for _, s := range f.Statuses {
		v.Check(s.Valid(), "status", "unknown status "+string(s))
	}
	if f.Modality != nil {
		v.Check(f.Modality.Valid(), "modality", "must be inPerson or online")
	}
	if f.PaymentStatus != nil {
		v.Check(f.PaymentStatus.Valid(), "paymentStatus", "is not a known payment status")
	}
	if f.Type != nil {
		v.Check(f.Type.Valid(), "type", "must be initial or followUp")
	}
	if f.StartDate != "" {
		v.Check(isodate.Valid(f.StartDate), "startDate", "must be YYYY-MM-DD")
	}
	if f.EndDate != "" {
		v.Check(isodate.Valid(f.EndDate), "endDate", "must be YYYY-MM-DD")
	}
	return v.Err()
}

// WithinDates narrows the filter to [start, end], intersecting with any
// bounds already set.
func (f Filters) WithinDates(start, end string) Filters {
	if f.StartDate == "" || start > f.StartDate {
		f.StartDate = start
	}
	if f.EndDate == "" || (end != "" && end < f.EndDate) {
		f.EndDate = end
	}
	return f
}

func (f Filters) Predicate() query.Predicate[Appointment] {
	preds := []query.Predicate[Appointment]{
		query.In(f.Statuses, func(a Appointment) Status { return a.Status }),
		query.Equal(f.Modality, func(a Appointment) Modality { return a.Modality }),
		query.Equal(f.PaymentStatus, func(a Appointment) PaymentStatus { return a.PaymentStatus }),
		query.Equal(f.Type, func(a Appointment) Type { return a.Type }),
		query.Equal(f.PatientID, func(a Appointment) int64 { return a.PatientID }),
	}
	if f.StartDate != "" || f.EndDate != "" {
		start, end := f.StartDate, f.EndDate
		preds = append(preds, func(a Appointment) bool {
			return query.DateWithin(a.Date, start, end)
		})
	}
	if f.Search != "" {
		needle := f.Search
		preds = append(preds, func(a Appointment) bool {
			return query.ContainsFold(needle, a.Patient.Name, a.Patient.Email, a.Patient.Phone, a.Notes)
		})
	}
	return query.And(preds...)
}

// Apply returns the matching appointments in input order.
func (f Filters) Apply(items []Appointment) []Appointment {
	return query.Filter(items, f.Predicate())
}
