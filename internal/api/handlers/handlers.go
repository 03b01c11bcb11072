package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/baharkarakas/coursepay/internal/api/httpx"
	"github.com/baharkarakas/coursepay/internal/api/validate"
	"github.com/baharkarakas/coursepay/internal/gateway"
	"github.com/baharkarakas/coursepay/internal/middleware"
	"github.com/baharkarakas/coursepay/internal/services"
)

// Handlers holds every HTTP endpoint of the service.
type Handlers struct {
	Checkout  *services.CheckoutService
	Callbacks *services.CallbackProcessor
	Enroll    *services.EnrollmentEngine
	Txns      *services.TransactionService
	Teardown  *services.CourseTeardown
	Gateway   services.CallbackVerifier
	Log       *slog.Logger
}

func actor(r *http.Request) (services.Actor, bool) {
	u, ok := middleware.FromCtx(r.Context())
	if !ok {
		return services.Actor{}, false
	}
	return services.Actor{UserID: u.UserID, Admin: u.IsAdmin()}, true
}

// decode reads and validates a JSON body, writing the 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body", nil)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var errs validate.Errs
		if errors.As(err, &errs) {
			httpx.WriteError(w, http.StatusBadRequest, "validation_error", "invalid request", errs)
			return false
		}
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return false
	}
	return true
}

func page(r *http.Request) services.Page {
	var p services.Page
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		p.Limit = n
	}
	if n, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil {
		p.Offset = n
	}
	return p
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, services.ErrEmptyCart):
		httpx.WriteError(w, http.StatusBadRequest, "empty_cart", err.Error(), nil)
	case errors.Is(err, services.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, services.ErrAlreadyEnrolled):
		httpx.WriteError(w, http.StatusConflict, "already_enrolled", err.Error(), nil)
	case errors.Is(err, services.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, "forbidden", "not allowed", nil)
	case errors.Is(err, gateway.ErrNotConfigured):
		h.Log.Error("payment gateway not configured")
		httpx.WriteError(w, http.StatusServiceUnavailable, "gateway_unavailable", "payment gateway unavailable", nil)
	default:
		h.Log.Error("request failed", "path", r.URL.Path, "request_id", middleware.RequestIDFrom(r.Context()), "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error", nil)
	}
}

func unauthorized(w http.ResponseWriter) {
	httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
}
