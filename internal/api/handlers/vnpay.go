package handlers

import (
	"net/http"

	"github.com/baharkarakas/coursepay/internal/api/httpx"
	"github.com/baharkarakas/coursepay/internal/gateway"
	"github.com/baharkarakas/coursepay/internal/services"
)

type ipnResponse struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

// gateway acknowledgement codes
var ipnCodes = map[services.Outcome]ipnResponse{
	services.OutcomeProcessed:        {"00", "Confirm Success"},
	services.OutcomeAlreadyProcessed: {"02", "Order already confirmed"},
	services.OutcomeNotFound:         {"01", "Order not found"},
	services.OutcomeInvalidAmount:    {"04", "Invalid amount"},
	services.OutcomeBadSignature:     {"97", "Invalid Checksum"},
	services.OutcomeError:            {"99", "Unknown error"},
}

func flatten(r *http.Request) (map[string]string, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(r.Form))
	for k, vs := range r.Form {
		if len(vs) > 0 {
			out[k] = vs[0]
		}
	}
	return out, nil
}

// VNPayReturn shows the buyer the result of the redirect. It never changes state.
func (h *Handlers) VNPayReturn(w http.ResponseWriter, r *http.Request) {
	params, err := flatten(r)
	if err != nil || len(params) == 0 || !h.Gateway.VerifyCallback(params) {
		httpx.WriteJSON(w, http.StatusBadRequest, gateway.ReturnSummary{Success: false, Message: "Invalid signature"})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, gateway.Summarize(params))
}

// VNPayIPN is the authoritative server-to-server payment notification.
// The gateway always gets a 200 with a result code.
func (h *Handlers) VNPayIPN(w http.ResponseWriter, r *http.Request) {
	params, err := flatten(r)
	if err != nil {
		httpx.WriteJSON(w, http.StatusOK, ipnCodes[services.OutcomeError])
		return
	}
	res := h.Callbacks.HandleNotification(r.Context(), params)
	resp, ok := ipnCodes[res.Outcome]
	if !ok {
		resp = ipnCodes[services.OutcomeError]
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
