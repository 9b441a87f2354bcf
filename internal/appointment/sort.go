package appointment

import (
	"github.com/hackgods/practice-scheduling-billing/internal/query"
)

type SortKey string

const (
	SortDate    SortKey = "date"
	SortTime    SortKey = "time"
	SortPatient SortKey = "patient"
	SortStatus  SortKey = "status"
	SortPrice   SortKey = "price"
)

func (k SortKey) Valid() bool {
	switch k {
	case SortDate, SortTime, SortPatient, SortStatus, SortPrice:
		return true
	}
	return false
}

type Sort struct {
	Key   SortKey     `json:"key"`
	Order query.Order `json:"order"`
}

// DefaultSort is chronological ascending.
var DefaultSort = Sort{Key: SortDate, Order: query.Asc}

func byDateTime(a, b Appointment) int {
	if r := query.CompareStrings(a.Date, b.Date); r != 0 {
		return r
	}
	return query.CompareStrings(a.Time, b.Time)
}

func byTimeOfDay(a, b Appointment) int {
	if r := query.CompareStrings(a.Time, b.Time); r != 0 {
		return r
	}
	return query.CompareStrings(a.Date, b.Date)
}

func byID(a, b Appointment) int { return query.CompareInt64(a.ID, b.ID) }

// Comparator builds the comparator for key and order. Every key falls back
// to date+time and then id so equal keys still order deterministically;
// the tie-break is reversed along with the key for desc.
func Comparator(s Sort) query.Comparator[Appointment] {
	var base query.Comparator[Appointment]
	switch s.Key {
	case SortTime:
		base = byTimeOfDay
	case SortPatient:
		base = func(a, b Appointment) int { return query.CompareLocale(a.Patient.Name, b.Patient.Name) }
	case SortStatus:
		base = func(a, b Appointment) int { return query.CompareStrings(string(a.Status), string(b.Status)) }
	case SortPrice:
		base = func(a, b Appointment) int { return a.Price.Cmp(b.Price) }
	default:
		base = byDateTime
	}
	return query.WithOrder(query.Then(base, byDateTime, byID), s.Order)
}

// Sorted returns a sorted copy of items.
func Sorted(items []Appointment, s Sort) []Appointment {
	return query.Sort(items, Comparator(s))
}
