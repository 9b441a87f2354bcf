package calendar

import (
	"github.com/hackgods/practice-scheduling-billing/internal/appointment"
)

// Day is one cell of a calendar grid.
type Day struct {
	Date         string                    `json:"date"`
	Appointments []appointment.Appointment `json:"appointments"`
}

// GroupByDate buckets items into one Day per date of r, keeping the input
// order inside each day. Days without appointments are included so the grid
// is always complete. Items outside r are dropped.
func GroupByDate(r Range, items []appointment.Appointment) []Day {
	days := r.Days()
	index := make(map[string]int, len(days))
	out := make([]Day, len(days))
	for i, d := range days {
		index[d] = i
		out[i] = Day{Date: d, Appointments: []appointment.Appointment{}}
	}
	for _, a := range items {
		if i, ok := index[a.Date]; ok {
			out[i].Appointments = append(out[i].Appointments, a)
		}
	}
	return out
}
