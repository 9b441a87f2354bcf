package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/hackgods/practice-scheduling-billing/internal/apperror"
	"github.com/hackgods/practice-scheduling-billing/internal/appointment"
	"github.com/hackgods/practice-scheduling-billing/internal/calendar"
	"github.com/hackgods/practice-scheduling-billing/internal/isodate"
)

// calendarParams reads view and date. A missing view means week and a
// missing date means today.
func (s *Server) calendarParams(r *http.Request, v *apperror.Validator) (calendar.View, time.Time) {
	view := calendar.ViewWeek
	if raw := r.URL.Query().Get("view"); raw != "" {
		parsed, ok := calendar.ParseView(raw)
		v.Check(ok, "view", "must be day, week, month or list")
		view = parsed
	}
	current := s.now()
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		parsed, err := isodate.ParseIn(raw, current.Location())
		v.Check(err == nil, "date", "must be YYYY-MM-DD")
		if err == nil {
			current = parsed
		}
	}
	return view, current
}

func (s *Server) loadCalendar(w http.ResponseWriter, r *http.Request) {
	var v apperror.Validator
	view, current := s.calendarParams(r, &v)
	if err := v.Err(); err != nil {
		s.handleError(w, r, err)
		return
	}
	f, sortBy, err := appointmentQuery(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	cal := calendar.New(s.appointments, calendar.WithClock(s.now), calendar.WithView(view))
	cal.Select(current)
	if err := cal.SetFilters(f); err != nil {
		s.handleError(w, r, err)
		return
	}
	if err := cal.SetSort(sortBy); err != nil {
		s.handleError(w, r, err)
		return
	}
	snap, err := cal.Load(r.Context())
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if snap.Appointments == nil {
		snap.Appointments = []appointment.Appointment{}
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) navigateCalendar(w http.ResponseWriter, r *http.Request) {
	var v apperror.Validator
	view, current := s.calendarParams(r, &v)
	dir, ok := calendar.ParseDirection(r.URL.Query().Get("direction"))
	v.Check(ok, "direction", "must be prev or next")
	if err := v.Err(); err != nil {
		s.handleError(w, r, err)
		return
	}

	next := calendar.Navigate(view, current, dir)
	writeJSON(w, http.StatusOK, NavigateResponse{
		View:    view,
		Current: isodate.Format(next),
		Range:   calendar.ResolveRange(view, next, s.now()),
	})
}

// freeSlots lists the start times still open on a date under the saved
// working hours.
func (s *Server) freeSlots(w http.ResponseWriter, r *http.Request) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		date = isodate.Format(s.now())
	}
	if !isodate.Valid(date) {
		var v apperror.Validator
		v.Add("date", "must be YYYY-MM-DD")
		s.handleError(w, r, v.Err())
		return
	}

	cfg, err := s.settings.Get(r.Context())
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	opts := cfg.SlotOptions()
	var v apperror.Validator
	opts.Duration = queryInt(r, "duration", opts.Duration, &v)
	if err := v.Err(); err != nil {
		s.handleError(w, r, err)
		return
	}

	items, err := s.appointments.List(r.Context(), appointment.Filters{StartDate: date, EndDate: date}, appointment.DefaultSort)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	slots, err := calendar.FreeSlots(date, opts, calendar.Busy(date, items))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if slots == nil {
		slots = []string{}
	}
	writeJSON(w, http.StatusOK, SlotsResponse{Date: date, Slots: slots})
}
