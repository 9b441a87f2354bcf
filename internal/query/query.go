// Package query composes filter predicates and sort comparators over
// in-memory records. Appointments and transactions both build on it.
package query

import (
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type Predicate[T any] func(T) bool

// And matches when every non-nil predicate matches. No predicates match all.
func And[T any](preds ...Predicate[T]) Predicate[T] {
	active := make([]Predicate[T], 0, len(preds))
	for _, p := range preds {
		if p != nil {
			active = append(active, p)
		}
	}
	return func(v T) bool {
		for _, p := range active {
			if !p(v) {
				return false
			}
		}
		return true
	}
}

// Filter returns the matching items in their original order.
func Filter[T any](items []T, pred Predicate[T]) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if pred == nil || pred(it) {
			out = append(out, it)
		}
	}
	return out
}

// In matches when the extracted value is a member of set. An empty set
// imposes no constraint.
func In[T any, K comparable](set []K, get func(T) K) Predicate[T] {
	if len(set) == 0 {
		return nil
	}
	members := make(map[K]struct{}, len(set))
	for _, k := range set {
		members[k] = struct{}{}
	}
	return func(v T) bool {
		_, ok := members[get(v)]
		return ok
	}
}

// Equal matches when want is nil or equals the extracted value.
func Equal[T any, K comparable](want *K, get func(T) K) Predicate[T] {
	if want == nil {
		return nil
	}
	w := *want
	return func(v T) bool { return get(v) == w }
}

// DateWithin reports whether the ISO date lies in [start, end]. Empty bounds
// are open. Fixed width YYYY-MM-DD makes the string compare chronological.
func DateWithin(date, start, end string) bool {
	if start != "" && date < start {
		return false
	}
	if end != "" && date > end {
		return false
	}
	return true
}

// ContainsFold reports whether needle occurs in any field, ignoring case.
// An empty needle matches everything.
func ContainsFold(needle string, fields ...string) bool {
	needle = strings.ToLower(strings.TrimSpace(needle))
	if needle == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

func ParseOrder(s string) (Order, bool) {
	switch strings.ToLower(s) {
	case "", "asc":
		return Asc, true
	case "desc":
		return Desc, true
	}
	return "", false
}

// Comparator returns <0, 0 or >0.
type Comparator[T any] func(a, b T) int

// Then chains comparators, falling through on ties.
func Then[T any](cmps ...Comparator[T]) Comparator[T] {
	return func(a, b T) int {
		for _, c := range cmps {
			if r := c(a, b); r != 0 {
				return r
			}
		}
		return 0
	}
}

func Reverse[T any](c Comparator[T]) Comparator[T] {
	return func(a, b T) int { return -c(a, b) }
}

// WithOrder negates c for Desc.
func WithOrder[T any](c Comparator[T], o Order) Comparator[T] {
	if o == Desc {
		return Reverse(c)
	}
	return c
}

// Sort returns a sorted copy; the input is left untouched.
func Sort[T any](items []T, c Comparator[T]) []T {
	out := make([]T, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool { return c(out[i], out[j]) < 0 })
	return out
}

func CompareStrings(a, b string) int {
	return strings.Compare(a, b)
}

// CompareFold compares case-insensitively, falling back to a byte compare
// so distinct strings never tie.
func CompareFold(a, b string) int {
	if r := strings.Compare(strings.ToLower(a), strings.ToLower(b)); r != 0 {
		return r
	}
	return strings.Compare(a, b)
}

var (
	collatorMu sync.Mutex
	collator   = collate.New(language.BrazilianPortuguese, collate.IgnoreCase, collate.IgnoreDiacritics)
)

// CompareLocale orders names the way a pt-BR reader expects (accents and
// case ignored), then falls back to CompareFold to break ties.
func CompareLocale(a, b string) int {
	collatorMu.Lock()
	r := collator.CompareString(a, b)
	collatorMu.Unlock()
	if r != 0 {
		return r
	}
	return CompareFold(a, b)
}

func CompareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
