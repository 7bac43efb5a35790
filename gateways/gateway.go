package gateways

import (
	"github.com/shopspring/decimal"

	"github.com/yeremiapane/payment-hub/models"
)

// PaymentInfo is the normalized view of a payment passed to adapters.
type PaymentInfo struct {
	PaymentID  uint                   `json:"payment_id"`
	Amount     decimal.Decimal        `json:"amount"`
	Currency   string                 `json:"currency"`
	Token      string                 `json:"token"`
	CustomerID string                 `json:"customer_id"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

// Response is the normalized result every adapter must return.
type Response struct {
	IsSuccess      bool                   `json:"is_success"`
	Kind           models.TransactionKind `json:"kind"`
	Amount         decimal.Decimal        `json:"amount"`
	Currency       string                 `json:"currency"`
	TransactionID  string                 `json:"transaction_id"`
	Error          string                 `json:"error,omitempty"`
	RawResponse    map[string]interface{} `json:"raw_response,omitempty"`
	ActionRequired bool                   `json:"action_required"`
	CustomerID     string                 `json:"customer_id,omitempty"`
}

// Adapter is the contract every payment provider implements. An error
// return means the call itself failed (network, malformed reply); a
// provider-side rejection comes back as a Response with IsSuccess false.
type Adapter interface {
	AuthorizePayment(info PaymentInfo) (*Response, error)
	CapturePayment(info PaymentInfo) (*Response, error)
	RefundPayment(info PaymentInfo) (*Response, error)
	VoidPayment(info PaymentInfo) (*Response, error)
	ConfirmPayment(info PaymentInfo) (*Response, error)
	ProcessPayment(info PaymentInfo) (*Response, error)
}
