package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TxnPending TransactionStatus = "PENDING"
	TxnSuccess TransactionStatus = "SUCCESS"
	TxnFailed  TransactionStatus = "FAILED"
)

// Terminal reports whether no further transition is allowed.
func (s TransactionStatus) Terminal() bool { return s == TxnSuccess || s == TxnFailed }

// ParseSettlementStatus accepts the two target statuses of a settlement, case-insensitively.
func ParseSettlementStatus(token string) (TransactionStatus, error) {
	switch TransactionStatus(strings.ToUpper(strings.TrimSpace(token))) {
	case TxnSuccess:
		return TxnSuccess, nil
	case TxnFailed:
		return TxnFailed, nil
	}
	return "", fmt.Errorf("invalid status %q: must be SUCCESS or FAILED", token)
}

type PaymentGateway string

const (
	GatewayVNPay        PaymentGateway = "VNPAY"
	GatewayMoMo         PaymentGateway = "MOMO"
	GatewayBankTransfer PaymentGateway = "BANK_TRANSFER"
)

func ParseGateway(s string) (PaymentGateway, bool) {
	switch g := PaymentGateway(strings.ToUpper(s)); g {
	case GatewayVNPay, GatewayMoMo, GatewayBankTransfer:
		return g, true
	}
	return "", false
}

// Transaction is one payment attempt for exactly one course.
type Transaction struct {
	ID              string            `json:"id"`
	BuyerID         string            `json:"buyer_id"`
	CourseID        string            `json:"course_id"`
	Amount          decimal.Decimal   `json:"amount"`
	Gateway         PaymentGateway    `json:"payment_gateway"`
	Status          TransactionStatus `json:"status"`
	CorrelationCode string            `json:"transaction_code"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}
