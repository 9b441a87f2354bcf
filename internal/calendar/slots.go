package calendar

import (
	"slices"

	"github.com/hackgods/practice-scheduling-billing/internal/appointment"
	"github.com/hackgods/practice-scheduling-billing/internal/apperror"
	"github.com/hackgods/practice-scheduling-billing/internal/isodate"
)

// Interval is a busy span in minutes after midnight, end exclusive.
type Interval struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type SlotOptions struct {
	WorkStart   string `json:"workStart"`
	WorkEnd     string `json:"workEnd"`
	Duration    int    `json:"duration"`
	Buffer      int    `json:"buffer"`
	WorkingDays []int  `json:"workingDays"`
}

func (o SlotOptions) Validate() error {
	var v apperror.Validator
	start, errStart := isodate.ClockMinutes(o.WorkStart)
	end, errEnd := isodate.ClockMinutes(o.WorkEnd)
	v.Check(errStart == nil, "workStart", "must be HH:MM")
	v.Check(errEnd == nil, "workEnd", "must be HH:MM")
	if errStart == nil && errEnd == nil {
		v.Check(start < end, "workEnd", "must be after workStart")
	}
	v.Check(o.Duration > 0, "duration", "must be a positive number of minutes")
	v.Check(o.Buffer >= 0, "buffer", "must not be negative")
	for _, d := range o.WorkingDays {
		v.Check(d >= 0 && d <= 6, "workingDays", "days are 0 (Sunday) to 6")
	}
	return v.Err()
}

// Busy collects the spans that active appointments on date occupy.
func Busy(date string, items []appointment.Appointment) []Interval {
	var out []Interval
	for _, a := range items {
		if a.Date != date || !a.Active() {
			continue
		}
		start, err := isodate.ClockMinutes(a.Time)
		if err != nil {
			continue
		}
		out = append(out, Interval{Start: start, End: start + a.Duration})
	}
	return out
}

// FreeSlots lists the HH:MM start times on date where a session of
// opts.Duration fits inside working hours, with opts.Buffer minutes kept
// clear on both sides of every busy interval and between offered slots.
// Non-working days have no slots.
func FreeSlots(date string, opts SlotOptions, busy []Interval) ([]string, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	day, err := isodate.Parse(date)
	if err != nil {
		var v apperror.Validator
		v.Add("date", "must be YYYY-MM-DD")
		return nil, v.Err()
	}
	if len(opts.WorkingDays) > 0 && !slices.Contains(opts.WorkingDays, int(day.Weekday())) {
		return []string{}, nil
	}

	workStart, _ := isodate.ClockMinutes(opts.WorkStart)
	workEnd, _ := isodate.ClockMinutes(opts.WorkEnd)

	sorted := slices.Clone(busy)
	slices.SortFunc(sorted, func(a, b Interval) int { return a.Start - b.Start })

	slots := []string{}
	t := workStart
	for t+opts.Duration <= workEnd {
		end := t + opts.Duration
		clash := -1
		for _, b := range sorted {
			if end+opts.Buffer > b.Start && t < b.End+opts.Buffer {
				if b.End+opts.Buffer > clash {
					clash = b.End + opts.Buffer
				}
			}
		}
		if clash >= 0 {
			t = clash
			continue
		}
		slots = append(slots, isodate.FormatClock(t))
		t = end + opts.Buffer
	}
	return slots, nil
}
