package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/hackgods/practice-scheduling-billing/internal/apperror"
	"github.com/hackgods/practice-scheduling-billing/internal/isodate"
	"github.com/hackgods/practice-scheduling-billing/internal/query"
	"github.com/hackgods/practice-scheduling-billing/internal/report"
	"github.com/hackgods/practice-scheduling-billing/internal/transaction"
)

func transactionQuery(r *http.Request) (transaction.Filters, transaction.Sort, error) {
	var v apperror.Validator
	q := r.URL.Query()

	var f transaction.Filters
	f.Type = queryOptional[transaction.Type](r, "type")
	f.Category = queryOptional[transaction.Category](r, "category")
	for _, s := range queryList(r, "status") {
		f.Statuses = append(f.Statuses, transaction.Status(s))
	}
	f.StartDate = strings.TrimSpace(q.Get("startDate"))
	f.EndDate = strings.TrimSpace(q.Get("endDate"))
	f.Search = q.Get("search")
	f.Tags = queryList(r, "tags")
	f.AppointmentID = queryInt64(r, "appointmentId", &v)

	sortBy := transaction.DefaultSort
	if key := q.Get("sort"); key != "" {
		sortBy.Key = transaction.SortKey(key)
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

func (s *Server) queryTransactions(r *http.Request) ([]transaction.Transaction, error) {
	f, sortBy, err := transactionQuery(r)
	if err != nil {
		return nil, err
	}
	return s.transactions.List(r.Context(), f, sortBy)
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	items, err := s.queryTransactions(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if items == nil {
		items = []transaction.Transaction{}
	}
	writeJSON(w, http.StatusOK, TransactionListResponse{
		Items:   items,
		Total:   len(items),
		Summary: transaction.Summarize(items),
	})
}

func (s *Server) transactionSummary(w http.ResponseWriter, r *http.Request) {
	items, err := s.queryTransactions(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transaction.Summarize(items))
}

func (s *Server) exportTransactions(w http.ResponseWriter, r *http.Request) {
	items, err := s.queryTransactions(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	data, err := report.TransactionsXLSX(items)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	name := fmt.Sprintf("transactions-%s.xlsx", isodate.Format(s.now()))
	attachment(w, report.ContentType, name, data)
}

func (s *Server) transactionCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[transaction.Type][]transaction.Category{
		transaction.TypeIncome:  transaction.CategoriesFor(transaction.TypeIncome),
		transaction.TypeExpense: transaction.CategoriesFor(transaction.TypeExpense),
	})
}

func (s *Server) previewRecurrence(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	start := s.now()
	if req.StartDate != "" {
		parsed, err := isodate.Parse(req.StartDate)
		if err != nil {
			var v apperror.Validator
			v.Add("startDate", "must be YYYY-MM-DD")
			s.handleError(w, r, v.Err())
			return
		}
		start = parsed
	}
	dates, err := transaction.Preview(req.Recurrence, start, req.Limit)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if dates == nil {
		dates = []string{}
	}
	writeJSON(w, http.StatusOK, PreviewResponse{Dates: dates})
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req transaction.NewTransaction
	if !decodeOrReject(w, r, &req) {
		return
	}
	t, err := s.transactions.Create(r.Context(), req)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) getTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	t, err := s.transactions.Get(r.Context(), id)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) updateTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var patch transaction.Patch
	if !decodeOrReject(w, r, &patch) {
		return
	}
	t, err := s.transactions.Update(r.Context(), id, patch)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.transactions.Delete(r.Context(), id); err != nil {
		s.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) completeTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	t, err := s.transactions.Complete(r.Context(), id)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type transactionAction func(*transaction.Store, context.Context, int64, string) (*transaction.Transaction, error)

func (s *Server) transactionWithReason(action transactionAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		var req ReasonRequest
		if !decodeOrReject(w, r, &req) {
			return
		}
		t, err := action(s.transactions, r.Context(), id, req.Reason)
		if err != nil {
			s.handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}
