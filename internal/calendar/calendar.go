package calendar

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hackgods/practice-scheduling-billing/internal/appointment"
	"github.com/hackgods/practice-scheduling-billing/internal/apperror"
	"github.com/hackgods/practice-scheduling-billing/internal/isodate"
)

// Fetcher re-derives the visible appointments for a query.
// *appointment.Store implements it.
type Fetcher interface {
	Fetch(ctx context.Context, f appointment.Filters, s appointment.Sort) ([]appointment.Appointment, error)
}

// State is the navigation state of a calendar.
type State struct {
	View     View                `json:"view"`
	Current  string              `json:"currentDate"`
	Selected string              `json:"selectedDate"`
	Filters  appointment.Filters `json:"filters"`
	Sort     appointment.Sort    `json:"sort"`
}

// Snapshot is what a view renders: the window, the matching appointments and
// the statistics over exactly those appointments.
type Snapshot struct {
	State        State                     `json:"state"`
	Range        Range                     `json:"range"`
	Appointments []appointment.Appointment `json:"appointments"`
	Days         []Day                     `json:"days,omitempty"`
	Stats        appointment.Stats         `json:"stats"`
}

// Calendar combines the range resolver with the appointment filters and
// sort. It is safe for concurrent use.
type Calendar struct {
	source Fetcher
	now    func() time.Time

	mu       sync.Mutex
	view     View
	current  time.Time
	selected time.Time
	filters  appointment.Filters
	sort     appointment.Sort
}

type Option func(*Calendar)

func WithClock(now func() time.Time) Option { return func(c *Calendar) { c.now = now } }

func WithView(v View) Option { return func(c *Calendar) { c.view = v } }

func New(source Fetcher, opts ...Option) *Calendar {
	c := &Calendar{
		source: source,
		now:    time.Now,
		view:   ViewWeek,
		sort:   appointment.DefaultSort,
	}
	for _, opt := range opts {
		opt(c)
	}
	today := c.now()
	c.current, c.selected = today, today
	return c
}

func (c *Calendar) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Calendar) stateLocked() State {
	return State{
		View:     c.view,
		Current:  isodate.Format(c.current),
		Selected: isodate.Format(c.selected),
		Filters:  c.filters,
		Sort:     c.sort,
	}
}

func (c *Calendar) SetView(v View) error {
	if !v.Valid() {
		var val apperror.Validator
		val.Add("view", "must be day, week, month or list")
		return val.Err()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view = v
	return nil
}

// Select marks date as selected and moves the window to it.
func (c *Calendar) Select(date time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = date
	c.current = date
}

// GoToToday resets current and selected date to now, whatever the view.
func (c *Calendar) GoToToday() {
	c.mu.Lock()
	defer c.mu.Unlock()
	today := c.now()
	c.current, c.selected = today, today
}

func (c *Calendar) Next() time.Time { return c.step(Next) }

func (c *Calendar) Prev() time.Time { return c.step(Prev) }

func (c *Calendar) step(dir Direction) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = Navigate(c.view, c.current, dir)
	return c.current
}

func (c *Calendar) SetFilters(f appointment.Filters) error {
	if err := f.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters = f
	return nil
}

func (c *Calendar) SetSort(s appointment.Sort) error {
	if s.Key == "" {
		s = appointment.DefaultSort
	}
	if !s.Key.Valid() {
		var v apperror.Validator
		v.Add("sort", "unknown sort key "+string(s.Key))
		return v.Err()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sort = s
	return nil
}

func (c *Calendar) Range() Range {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ResolveRange(c.view, c.current, c.now())
}

// Load fetches the appointments inside the current window, narrowed by the
// active filters, and computes their statistics.
func (c *Calendar) Load(ctx context.Context) (*Snapshot, error) {
	c.mu.Lock()
	state := c.stateLocked()
	r := ResolveRange(c.view, c.current, c.now())
	c.mu.Unlock()

	f := state.Filters.WithinDates(r.StartDate(), r.EndDate())
	items, err := c.source.Fetch(ctx, f, state.Sort)
	if err != nil {
		return nil, fmt.Errorf("load %s calendar: %w", state.View, err)
	}

	snap := &Snapshot{
		State:        state,
		Range:        r,
		Appointments: items,
		Stats:        appointment.ComputeStats(items),
	}
	if state.View != ViewList {
		snap.Days = GroupByDate(r, items)
	}
	return snap, nil
}
