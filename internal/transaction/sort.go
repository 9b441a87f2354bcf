package transaction

import (
	"github.com/hackgods/practice-scheduling-billing/internal/query"
)

type SortKey string

const (
	SortDate        SortKey = "date"
	SortAmount      SortKey = "amount"
	SortDescription SortKey = "description"
	SortCategory    SortKey = "category"
	SortStatus      SortKey = "status"
)

func (k SortKey) Valid() bool {
	switch k {
	case SortDate, SortAmount, SortDescription, SortCategory, SortStatus:
		return true
	}
	return false
}

type Sort struct {
	Key   SortKey     `json:"key"`
	Order query.Order `json:"order"`
}

// DefaultSort lists the most recent transactions first.
var DefaultSort = Sort{Key: SortDate, Order: query.Desc}

func byDate(a, b Transaction) int { return query.CompareStrings(a.Date, b.Date) }

func byID(a, b Transaction) int { return query.CompareInt64(a.ID, b.ID) }

// Comparator ties every key back to date and then id.
func Comparator(s Sort) query.Comparator[Transaction] {
	var base query.Comparator[Transaction]
	switch s.Key {
	case SortAmount:
		base = func(a, b Transaction) int { return a.Amount.Cmp(b.Amount) }
	case SortDescription:
		base = func(a, b Transaction) int { return query.CompareLocale(a.Description, b.Description) }
	case SortCategory:
		base = func(a, b Transaction) int { return query.CompareStrings(string(a.Category), string(b.Category)) }
	case SortStatus:
		base = func(a, b Transaction) int { return query.CompareStrings(string(a.Status), string(b.Status)) }
	default:
		base = byDate
	}
	return query.WithOrder(query.Then(base, byDate, byID), s.Order)
}

func Sorted(items []Transaction, s Sort) []Transaction {
	return query.Sort(items, Comparator(s))
}
