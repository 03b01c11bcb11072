package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/baharkarakas/coursepay/internal/api/httpx"
	"github.com/baharkarakas/coursepay/internal/models"
	"github.com/baharkarakas/coursepay/internal/services"
)

type paymentRequest struct {
	Gateway   string `json:"paymentGateway" validate:"omitempty,oneof=VNPAY MOMO BANK_TRANSFER vnpay momo bank_transfer"`
	ReturnURL string `json:"returnUrl" validate:"omitempty,url"`
	BankCode  string `json:"bankCode" validate:"omitempty,max=20"`
}

func (p paymentRequest) options() services.PaymentOptions {
	gw, ok := models.ParseGateway(p.Gateway)
	if !ok {
		gw = models.GatewayVNPay
	}
	return services.PaymentOptions{Gateway: gw, ReturnURL: p.ReturnURL, BankCode: p.BankCode}
}

// PurchaseCourse: POST /payments/courses/{courseID}
func (h *Handlers) PurchaseCourse(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(r)
	if !ok {
		unauthorized(w)
		return
	}
	var req paymentRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.Checkout.PurchaseCourse(r.Context(), a.UserID, chi.URLParam(r, "courseID"), req.options())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, res)
}

// CheckoutCart: POST /cart/checkout
func (h *Handlers) CheckoutCart(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(r)
	if !ok {
		unauthorized(w)
		return
	}
	var req paymentRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.Checkout.CheckoutCart(r.Context(), a.UserID, req.options())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, res)
}

type mockCallbackRequest struct {
	TxnCode string `json:"txnCode" validate:"required"`
	Status  string `json:"status" validate:"required"`
}

// MockCallback settles a checkout without the gateway. Only mounted when enabled.
func (h *Handlers) MockCallback(w http.ResponseWriter, r *http.Request) {
	var req mockCallbackRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.Callbacks.Settle(r.Context(), req.TxnCode, req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	status := http.StatusOK
	if res.Outcome == services.OutcomeNotFound {
		status = http.StatusNotFound
	}
	httpx.WriteJSON(w, status, res)
}
