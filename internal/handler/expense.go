package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/monetra/backend/internal/domain"
	"github.com/monetra/backend/internal/service"
)

// ExpenseHandler handles expense and balance endpoints.
type ExpenseHandler struct {
	svc *service.ExpenseService
}

// NewExpenseHandler creates a new ExpenseHandler.
func NewExpenseHandler(svc *service.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{svc: svc}
}

// Add handles POST /user/add-expense.
func (h *ExpenseHandler) Add(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		Fail(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req domain.AddExpenseRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		Error(w, err)
		return
	}

	expense, err := h.svc.Add(r.Context(), uid, &req)
	if err != nil {
		Error(w, err)
		return
	}
	Success(w, http.StatusCreated, expense)
}

// List handles GET /user/my-expenses.
func (h *ExpenseHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		Fail(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	q := r.URL.Query()
	filter := domain.ExpenseFilter{
		Query:       q.Get("q"),
		CategoryKey: q.Get("category"),
	}
	var err error
	if filter.Page, err = intParam(q, "page"); err != nil {
		Error(w, err)
		return
	}
	if filter.Limit, err = intParam(q, "limit"); err != nil {
		Error(w, err)
		return
	}
	if filter.From, filter.To, err = dateRange(q); err != nil {
		Error(w, err)
		return
	}

	list, err := h.svc.List(r.Context(), uid, filter)
	if err != nil {
		Error(w, err)
		return
	}
	Success(w, http.StatusOK, list)
}

// Update handles PUT /user/expenses/{id}.
func (h *ExpenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		Fail(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req domain.UpdateExpenseRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		Error(w, err)
		return
	}

	expense, err := h.svc.Update(r.Context(), uid, chi.URLParam(r, "id"), &req)
	if err != nil {
		Error(w, err)
		return
	}
	Success(w, http.StatusOK, expense)
}

// Delete handles DELETE /user/delete-expense/{id}.
func (h *ExpenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		Fail(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.svc.Delete(r.Context(), uid, chi.URLParam(r, "id")); err != nil {
		Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Summary handles GET /user/expenses/summary.
func (h *ExpenseHandler) Summary(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		Fail(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	from, to, err := dateRange(r.URL.Query())
	if err != nil {
		Error(w, err)
		return
	}

	summary, err := h.svc.Summary(r.Context(), uid, from, to)
	if err != nil {
		Error(w, err)
		return
	}
	Success(w, http.StatusOK, summary)
}

// GetBalance handles GET /user/balance.
func (h *ExpenseHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		Fail(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	bal, err := h.svc.Balance(r.Context(), uid)
	if err != nil {
		Error(w, err)
		return
	}
	Success(w, http.StatusOK, bal)
}

// SetBalance handles PUT /user/balance.
func (h *ExpenseHandler) SetBalance(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		Fail(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req domain.SetBalanceRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		Error(w, err)
		return
	}

	bal, err := h.svc.SetBalance(r.Context(), uid, &req)
	if err != nil {
		Error(w, err)
		return
	}
	Success(w, http.StatusOK, bal)
}

func intParam(q url.Values, key string) (int, error) {
	raw := q.Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, domain.ErrBadRequest("invalid " + key)
	}
	return n, nil
}

// dateRange parses the from/to query parameters. Both accept RFC 3339 or a
// plain date; a plain "to" date includes that whole day.
func dateRange(q url.Values) (*time.Time, *time.Time, error) {
	from, err := parseDate(q.Get("from"), false)
	if err != nil {
		return nil, nil, domain.ErrBadRequest("invalid from date")
	}
	to, err := parseDate(q.Get("to"), true)
	if err != nil {
		return nil, nil, domain.ErrBadRequest("invalid to date")
	}
	return from, to, nil
}

func parseDate(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
