package gateway

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/baharkarakas/coursepay/internal/config"
)

var ErrNotConfigured = errors.New("payment gateway not configured")

const (
	ParamTxnRef        = "vnp_TxnRef"
	ParamAmount        = "vnp_Amount"
	ParamResponseCode  = "vnp_ResponseCode"
	ParamTransactionNo = "vnp_TransactionNo"
	ParamBankCode      = "vnp_BankCode"
	ParamPayDate       = "vnp_PayDate"

	// ResponseSuccess is the result code the gateway sends for a paid order.
	ResponseSuccess = "00"

	paymentTTL = 15 * time.Minute
	dateLayout = "20060102150405"
)

// gateway timestamps are wall-clock GMT+7
var vnpZone = time.FixedZone("GMT+7", 7*60*60)

// VNPay builds signed payment URLs and checks signed callbacks.
type VNPay struct {
	cfg config.VNPay
	now func() time.Time
}

func NewVNPay(cfg config.VNPay) *VNPay {
	return &VNPay{cfg: cfg, now: time.Now}
}

// PaymentRequest describes one outbound payment. BankCode is optional; empty lets the
// buyer pick a method on the gateway page.
type PaymentRequest struct {
	CorrelationCode string
	Amount          decimal.Decimal
	Description     string
	ReturnURL       string
	BankCode        string
}

// MinorUnits scales a decimal amount to the gateway's integer convention (amount times 100).
func MinorUnits(amount decimal.Decimal) string {
	return strconv.FormatInt(amount.Shift(2).IntPart(), 10)
}

func (g *VNPay) CreatePaymentURL(req PaymentRequest) (string, error) {
	if g.cfg.URL == "" || g.cfg.HashSecret == "" {
		return "", ErrNotConfigured
	}
	if req.CorrelationCode == "" {
		return "", errors.New("correlation code required")
	}
	if !req.Amount.IsPositive() {
		return "", fmt.Errorf("amount must be > 0, got %s", req.Amount)
	}

	returnURL := req.ReturnURL
	if returnURL == "" {
		returnURL = g.cfg.ReturnURL
	}
	created := g.now().In(vnpZone)

	params := map[string]string{
		"vnp_Version":    "2.1.0",
		"vnp_Command":    "pay",
		"vnp_TmnCode":    g.cfg.TmnCode,
		ParamAmount:      MinorUnits(req.Amount),
		"vnp_CurrCode":   "VND",
		ParamTxnRef:      req.CorrelationCode,
		"vnp_OrderInfo":  req.Description,
		"vnp_OrderType":  "other",
		"vnp_Locale":     "vn",
		"vnp_ReturnUrl":  returnURL,
		"vnp_IpAddr":     "127.0.0.1",
		"vnp_CreateDate": created.Format(dateLayout),
		"vnp_ExpireDate": created.Add(paymentTTL).Format(dateLayout),
	}
	if req.BankCode != "" {
		params[ParamBankCode] = req.BankCode
	}

	query := Canonical(params)
	return g.cfg.URL + "?" + query + "&" + ParamSecureHash + "=" + Sign(g.cfg.HashSecret, query), nil
}

// VerifyCallback checks the signature of a return redirect or server notification.
func (g *VNPay) VerifyCallback(params map[string]string) bool {
	if g.cfg.HashSecret == "" {
		return false
	}
	return Verify(g.cfg.HashSecret, params)
}

// ReturnSummary is the display-only result shown to a buyer coming back from the gateway.
type ReturnSummary struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	ResponseCode    string `json:"responseCode"`
	TransactionCode string `json:"transactionCode"`
	TransactionNo   string `json:"transactionNo"`
	Amount          string `json:"amount"`
	BankCode        string `json:"bankCode"`
	PayDate         string `json:"payDate"`
}

func Summarize(params map[string]string) ReturnSummary {
	ok := params[ParamResponseCode] == ResponseSuccess
	msg := "Payment failed"
	if ok {
		msg = "Payment successful"
	}
	return ReturnSummary{
		Success:         ok,
		Message:         msg,
		ResponseCode:    params[ParamResponseCode],
		TransactionCode: params[ParamTxnRef],
		TransactionNo:   params[ParamTransactionNo],
		Amount:          params[ParamAmount],
		BankCode:        params[ParamBankCode],
		PayDate:         params[ParamPayDate],
	}
}
