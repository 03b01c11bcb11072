package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Checkout groups every transaction created by one purchase under a correlation code.
type Checkout struct {
	CorrelationCode string          `json:"transaction_code"`
	BuyerID         string          `json:"buyer_id"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Gateway         PaymentGateway  `json:"payment_gateway"`
	CartID          *string         `json:"cart_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// LineItem is a course priced at checkout time.
type LineItem struct {
	CourseID string
	Title    string
	Price    decimal.Decimal
}
