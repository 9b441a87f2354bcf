package transaction

import (
	"github.com/hackgods/practice-scheduling-billing/internal/apperror"
	"github.com/hackgods/practice-scheduling-billing/internal/isodate"
	"github.com/hackgods/practice-scheduling-billing/internal/query"
)

// Filters narrows a transaction collection; set fields are ANDed.
type Filters struct {
	Type          *Type     `json:"type,omitempty"`
	Category      *Category `json:"category,omitempty"`
	Statuses      []Status  `json:"status,omitempty"`
	StartDate     string    `json:"startDate,omitempty"`
	EndDate       string    `json:"endDate,omitempty"`
	Search        string    `json:"search,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
	AppointmentID *int64    `json:"appointmentId,omitempty"`
}

func (f Filters) Validate() error {
	var v apperror.Validator
	if f.Type != nil {
		v.Check(f.Type.Valid(), "type", "must be income or expense")
	}
	if f.Category != nil {
		v.Check(f.Category.Valid(), "category", "unknown category "+string(*f.Category))
	}
	for _, s := range f.Statuses {
		v.Check(s.Valid(), "status", "unknown status "+string(s))
	}
	if f.StartDate != "" {
		v.Check(isodate.Valid(f.StartDate), "startDate", "must be YYYY-MM-DD")
	}
	if f.EndDate != "" {
		v.Check(isodate.Valid(f.EndDate), "endDate", "must be YYYY-MM-DD")
	}
	return v.Err()
}

// Predicate builds the combined predicate. Tags match when the transaction
// carries every listed tag; search covers description, notes and tags.
func (f Filters) Predicate() query.Predicate[Transaction] {
	preds := []query.Predicate[Transaction]{
		query.Equal(f.Type, func(t Transaction) Type { return t.Type }),
		query.Equal(f.Category, func(t Transaction) Category { return t.Category }),
		query.In(f.Statuses, func(t Transaction) Status { return t.Status }),
	}
	if f.AppointmentID != nil {
		want := *f.AppointmentID
		preds = append(preds, func(t Transaction) bool {
			return t.AppointmentID != nil && *t.AppointmentID == want
		})
	}
	if f.StartDate != "" || f.EndDate != "" {
		start, end := f.StartDate, f.EndDate
		preds = append(preds, func(t Transaction) bool {
			return query.DateWithin(t.Date, start, end)
		})
	}
	if tags := NormalizeTags(f.Tags); len(tags) > 0 {
		preds = append(preds, func(t Transaction) bool {
			for _, tag := range tags {
				if !t.HasTag(tag) {
					return false
				}
			}
			return true
		})
	}
	if f.Search != "" {
		needle := f.Search
		preds = append(preds, func(t Transaction) bool {
			fields := append([]string{t.Description, t.Notes}, t.Tags...)
			return query.ContainsFold(needle, fields...)
		})
	}
	return query.And(preds...)
}

func (f Filters) Apply(items []Transaction) []Transaction {
	return query.Filter(items, f.Predicate())
}
