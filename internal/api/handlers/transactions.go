package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/baharkarakas/coursepay/internal/api/httpx"
)

const defaultRevenueWindow = 30 * 24 * time.Hour

// MyTransactions: GET /transactions
func (h *Handlers) MyTransactions(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(r)
	if !ok {
		unauthorized(w)
		return
	}
	list, err := h.Txns.ListByBuyer(r.Context(), a.UserID, page(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

// GetTransaction: GET /transactions/{id}
func (h *Handlers) GetTransaction(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(r)
	if !ok {
		unauthorized(w)
		return
	}
	t, err := h.Txns.Get(r.Context(), a, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, t)
}

// AllTransactions: GET /admin/transactions
func (h *Handlers) AllTransactions(w http.ResponseWriter, r *http.Request) {
	list, err := h.Txns.ListAll(r.Context(), page(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

// CourseTransactions: GET /admin/courses/{courseID}/transactions
func (h *Handlers) CourseTransactions(w http.ResponseWriter, r *http.Request) {
	list, err := h.Txns.ListByCourse(r.Context(), chi.URLParam(r, "courseID"), page(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

// Revenue: GET /admin/revenue?from=&to=
// Bounds accept RFC3339 or a plain date; the window defaults to the last 30 days.
func (h *Handlers) Revenue(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	to := time.Now().UTC()
	if v := q.Get("to"); v != "" {
		t, ok := parseTime(v)
		if !ok {
			httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid 'to' time", nil)
			return
		}
		to = t
	}
	from := to.Add(-defaultRevenueWindow)
	if v := q.Get("from"); v != "" {
		t, ok := parseTime(v)
		if !ok {
			httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid 'from' time", nil)
			return
		}
		from = t
	}
	rep, err := h.Txns.Revenue(r.Context(), from, to)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rep)
}

func parseTime(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
