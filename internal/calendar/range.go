// Package calendar resolves the date window shown for each calendar view and
// moves that window forwards and backwards.
package calendar

import (
	"strings"
	"time"

	"github.com/hackgods/practice-scheduling-billing/internal/isodate"
)

type View string

const (
	ViewDay   View = "day"
	ViewWeek  View = "week"
	ViewMonth View = "month"
	ViewList  View = "list"
)

var AllViews = []View{ViewDay, ViewWeek, ViewMonth, ViewList}

func (v View) Valid() bool {
	switch v {
	case ViewDay, ViewWeek, ViewMonth, ViewList:
		return true
	}
	return false
}

// ParseView accepts a view name in any case.
func ParseView(s string) (View, bool) {
	v := View(strings.ToLower(strings.TrimSpace(s)))
	return v, v.Valid()
}

// ListWindow is how far ahead the list view looks.
const ListWindow = 30 * 24 * time.Hour

// Range is an inclusive window. For day, week and month views both bounds
// are midnights; the list view keeps the exact instant.
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (r Range) StartDate() string { return isodate.Format(r.Start) }

func (r Range) EndDate() string { return isodate.Format(r.End) }

// Contains reports whether the ISO date falls inside the window.
func (r Range) Contains(date string) bool {
	return date >= r.StartDate() && date <= r.EndDate()
}

// Days lists every calendar day of the window in order.
func (r Range) Days() []string {
	var out []string
	end := isodate.StartOfDay(r.End)
	for d := isodate.StartOfDay(r.Start); !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, isodate.Format(d))
	}
	return out
}

// ResolveRange computes the window for view around current. The list view
// ignores current and covers [now, now+30 days]. Unknown views behave like
// day.
func ResolveRange(view View, current, now time.Time) Range {
	day := isodate.StartOfDay(current)

	switch view {
	case ViewWeek:
		start := day.AddDate(0, 0, -int(day.Weekday()))
		return Range{Start: start, End: start.AddDate(0, 0, 6)}
	case ViewMonth:
		y, m, _ := day.Date()
		start := time.Date(y, m, 1, 0, 0, 0, 0, day.Location())
		return Range{Start: start, End: start.AddDate(0, 1, -1)}
	case ViewList:
		return Range{Start: now, End: now.Add(ListWindow)}
	default:
		return Range{Start: day, End: day}
	}
}

type Direction int

const (
	Prev Direction = -1
	Next Direction = 1
)

// ParseDirection accepts prev/previous/back and next/forward.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "prev", "previous", "back":
		return Prev, true
	case "next", "forward":
		return Next, true
	}
	return 0, false
}

// Navigate steps current one unit of view in dir. Month steps clamp the day
// to the target month, so Jan 31 moves to the last day of February.
func Navigate(view View, current time.Time, dir Direction) time.Time {
	n := int(dir)
	switch view {
	case ViewWeek, ViewList:
		return current.AddDate(0, 0, 7*n)
	case ViewMonth:
		return isodate.AddMonths(current, n)
	default:
		return current.AddDate(0, 0, n)
	}
}
