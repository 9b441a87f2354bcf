package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/hackgods/practice-scheduling-billing/internal/apperror"
	"github.com/hackgods/practice-scheduling-billing/internal/appointment"
	"github.com/hackgods/practice-scheduling-billing/internal/isodate"
	"github.com/hackgods/practice-scheduling-billing/internal/query"
	"github.com/hackgods/practice-scheduling-billing/internal/report"
)

// appointmentQuery reads filters and sort from the query string:
// status (repeated or comma separated), modality, paymentStatus, type,
// patientId, startDate, endDate, search, sort and order.
func appointmentQuery(r *http.Request) (appointment.Filters, appointment.Sort, error) {
	var v apperror.Validator
	q := r.URL.Query()

	var f appointment.Filters
	for _, s := range queryList(r, "status") {
		f.Statuses = append(f.Statuses, appointment.Status(s))
	}
	f.Modality = queryOptional[appointment.Modality](r, "modality")
	f.PaymentStatus = queryOptional[appointment.PaymentStatus](r, "paymentStatus")
	f.Type = queryOptional[appointment.Type](r, "type")
	f.PatientID = queryInt64(r, "patientId", &v)
	f.StartDate = strings.TrimSpace(q.Get("startDate"))
	f.EndDate = strings.TrimSpace(q.Get("endDate"))
	f.Search = q.Get("search")

	sortBy := appointment.DefaultSort
	if key := q.Get("sort"); key != "" {
		sortBy.Key = appointment.SortKey(key)
		v.Check(sortBy.Key.Valid(), "sort", "unknown sort key "+key)
	}
	order, ok := query.ParseOrder(q.Get("order"))
	v.Check(ok, "order", "must be asc or desc")
	if q.Get("order") != "" {
		sortBy.Order = order
	}

	if err := v.Err(); err != nil {
		return f, sortBy, err
	}
	return f, sortBy, f.Validate()
}

func (s *Server) listAppointments(w http.ResponseWriter, r *http.Request) {
	f, sortBy, err := appointmentQuery(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	items, err := s.appointments.List(r.Context(), f, sortBy)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if items == nil {
		items = []appointment.Appointment{}
	}
	writeJSON(w, http.StatusOK, ListResponse[appointment.Appointment]{Items: items, Total: len(items)})
}

func (s *Server) appointmentStats(w http.ResponseWriter, r *http.Request) {
	f, sortBy, err := appointmentQuery(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	items, err := s.appointments.List(r.Context(), f, sortBy)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, appointment.ComputeStats(items))
}

func (s *Server) exportAppointments(w http.ResponseWriter, r *http.Request) {
	f, sortBy, err := appointmentQuery(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	items, err := s.appointments.List(r.Context(), f, sortBy)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	data, err := report.AppointmentsXLSX(items)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	name := fmt.Sprintf("appointments-%s.xlsx", isodate.Format(s.now()))
	attachment(w, report.ContentType, name, data)
}

func (s *Server) createAppointment(w http.ResponseWriter, r *http.Request) {
	var req appointment.NewAppointment
	if !decodeOrReject(w, r, &req) {
		return
	}
	a, err := s.appointments.Create(r.Context(), req)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) getAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	a, err := s.appointments.Get(r.Context(), id)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) updateAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var patch appointment.Patch
	if !decodeOrReject(w, r, &patch) {
		return
	}
	a, err := s.appointments.Update(r.Context(), id, patch)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

type appointmentAction func(*appointment.Store, context.Context, int64) (*appointment.Appointment, error)

func (s *Server) appointmentTransition(action appointmentAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		a, err := action(s.appointments, r.Context(), id)
		if err != nil {
			s.handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

func (s *Server) cancelAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req ReasonRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	a, err := s.appointments.Cancel(r.Context(), id, req.Reason)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) setPaymentStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req PaymentStatusRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	a, err := s.appointments.SetPaymentStatus(r.Context(), id, req.PaymentStatus, req.PaymentID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) checkout(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req CheckoutRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	res, err := s.billing.Checkout(r.Context(), id, req.PaymentMethod)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) reconcile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := s.billing.Reconcile(r.Context(), id)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) refund(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req ReasonRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	res, err := s.billing.Refund(r.Context(), id, req.Reason)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
