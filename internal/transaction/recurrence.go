package transaction

import (
	"slices"
	"time"

	"github.com/hackgods/practice-scheduling-billing/internal/apperror"
	"github.com/hackgods/practice-scheduling-billing/internal/isodate"
)

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// RecurrenceConfig describes how a transaction repeats. At most one of
// EndDate and MaxOccurrences may be set; with neither the series is open
// ended.
type RecurrenceConfig struct {
	Frequency      Frequency `json:"frequency"`
	Interval       int       `json:"interval"`
	DaysOfWeek     []int     `json:"daysOfWeek,omitempty"`
	DayOfMonth     *int      `json:"dayOfMonth,omitempty"`
	EndDate        *string   `json:"endDate,omitempty"`
	MaxOccurrences *int      `json:"maxOccurrences,omitempty"`
}

func (c RecurrenceConfig) Clone() RecurrenceConfig {
	if c.DaysOfWeek != nil {
		c.DaysOfWeek = slices.Clone(c.DaysOfWeek)
	}
	if c.DayOfMonth != nil {
		v := *c.DayOfMonth
		c.DayOfMonth = &v
	}
	if c.EndDate != nil {
		v := *c.EndDate
		c.EndDate = &v
	}
	if c.MaxOccurrences != nil {
		v := *c.MaxOccurrences
		c.MaxOccurrences = &v
	}
	return c
}

func (c RecurrenceConfig) Validate() error {
	var v apperror.Validator
	c.validateInto(&v)
	return v.Err()
}

func (c RecurrenceConfig) validateInto(v *apperror.Validator) {
	v.Check(c.Frequency.Valid(), "recurrence.frequency", "must be daily, weekly, monthly or yearly")
	v.Check(c.Interval >= 1, "recurrence.interval", "must be at least 1")
	if len(c.DaysOfWeek) > 0 {
		v.Check(c.Frequency == FrequencyWeekly, "recurrence.daysOfWeek", "only applies to weekly recurrence")
		for _, d := range c.DaysOfWeek {
			v.Check(d >= 0 && d <= 6, "recurrence.daysOfWeek", "days are 0 (Sunday) to 6")
		}
	}
	if c.DayOfMonth != nil {
		v.Check(c.Frequency == FrequencyMonthly, "recurrence.dayOfMonth", "only applies to monthly recurrence")
		v.Check(*c.DayOfMonth >= 1 && *c.DayOfMonth <= 31, "recurrence.dayOfMonth", "must be between 1 and 31")
	}
	if c.EndDate != nil && c.MaxOccurrences != nil {
		v.Add("recurrence.endDate", "cannot be combined with maxOccurrences")
	}
	if c.EndDate != nil {
		v.Check(isodate.Valid(*c.EndDate), "recurrence.endDate", "must be YYYY-MM-DD")
	}
	if c.MaxOccurrences != nil {
		v.Check(*c.MaxOccurrences > 0, "recurrence.maxOccurrences", "must be positive")
	}
}

const (
	DefaultPreview = 5
	MaxPreview     = 60
)

// Preview lists up to limit occurrence dates starting at start. limit <= 0
// means DefaultPreview and anything above MaxPreview is capped, so an open
// ended series always yields a bounded list. Generation stops early at
// EndDate (inclusive) or after MaxOccurrences.
func Preview(cfg RecurrenceConfig, start time.Time, limit int) ([]string, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultPreview
	}
	if limit > MaxPreview {
		limit = MaxPreview
	}
	if cfg.MaxOccurrences != nil && *cfg.MaxOccurrences < limit {
		limit = *cfg.MaxOccurrences
	}
	end := ""
	if cfg.EndDate != nil {
		end = *cfg.EndDate
	}

	start = isodate.StartOfDay(start)
	out := make([]string, 0, limit)
	emit := func(d time.Time) bool {
		s := isodate.Format(d)
		if end != "" && s > end {
			return false
		}
		out = append(out, s)
		return len(out) < limit
	}

	switch cfg.Frequency {
	case FrequencyDaily:
		for k := 0; emit(start.AddDate(0, 0, k*cfg.Interval)); k++ {
		}
	case FrequencyWeekly:
		previewWeekly(cfg, start, emit)
	case FrequencyMonthly:
		previewMonthly(cfg, start, emit)
	case FrequencyYearly:
		for k := 0; emit(isodate.AddYears(start, k*cfg.Interval)); k++ {
		}
	}
	return out, nil
}

func previewWeekly(cfg RecurrenceConfig, start time.Time, emit func(time.Time) bool) {
	if len(cfg.DaysOfWeek) == 0 {
		for k := 0; emit(start.AddDate(0, 0, 7*k*cfg.Interval)); k++ {
		}
		return
	}
	days := slices.Clone(cfg.DaysOfWeek)
	slices.Sort(days)
	days = slices.Compact(days)

	week := start.AddDate(0, 0, -int(start.Weekday()))
	for {
		for _, d := range days {
			day := week.AddDate(0, 0, d)
			if day.Before(start) {
				continue
			}
			if !emit(day) {
				return
			}
		}
		week = week.AddDate(0, 0, 7*cfg.Interval)
	}
}

func previewMonthly(cfg RecurrenceConfig, start time.Time, emit func(time.Time) bool) {
	if cfg.DayOfMonth == nil {
		for k := 0; emit(isodate.AddMonths(start, k*cfg.Interval)); k++ {
		}
		return
	}
	first := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location())
	for k := 0; ; k++ {
		month := first.AddDate(0, k*cfg.Interval, 0)
		day := *cfg.DayOfMonth
		if last := isodate.DaysIn(month.Year(), month.Month(), month.Location()); day > last {
			day = last
		}
		d := month.AddDate(0, 0, day-1)
		if d.Before(start) {
			continue
		}
		if !emit(d) {
			return
		}
	}
}
