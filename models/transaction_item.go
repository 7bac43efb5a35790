package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionEventType classifies entries in the transaction event log.
type TransactionEventType string

const (
	EventAuthorizationSuccess TransactionEventType = "authorization_success"
	EventAuthorizationFailure TransactionEventType = "authorization_failure"
	EventChargeRequest        TransactionEventType = "charge_request"
	EventChargeSuccess        TransactionEventType = "charge_success"
	EventChargeFailure        TransactionEventType = "charge_failure"
	EventRefundRequest        TransactionEventType = "refund_request"
	EventRefundSuccess        TransactionEventType = "refund_success"
	EventRefundFailure        TransactionEventType = "refund_failure"
	EventCancelRequest        TransactionEventType = "cancel_request"
	EventCancelSuccess        TransactionEventType = "cancel_success"
	EventCancelFailure        TransactionEventType = "cancel_failure"
)

// ValidTransactionEventTypes is the set of event types a reporter may
// submit.
var ValidTransactionEventTypes = map[TransactionEventType]bool{
	EventAuthorizationSuccess: true,
	EventAuthorizationFailure: true,
	EventChargeRequest:        true,
	EventChargeSuccess:        true,
	EventChargeFailure:        true,
	EventRefundRequest:        true,
	EventRefundSuccess:        true,
	EventRefundFailure:        true,
	EventCancelRequest:        true,
	EventCancelSuccess:        true,
	EventCancelFailure:        true,
}

// IsRequest reports whether the event records an outstanding action
// request rather than a confirmed result.
func (t TransactionEventType) IsRequest() bool {
	switch t {
	case EventChargeRequest, EventRefundRequest, EventCancelRequest:
		return true
	}
	return false
}

// TransactionItem tracks the running totals of a payment held by an
// external app or provider, keyed by its PSP reference. Totals are
// recomputed from the full event log, never adjusted in place.
//
// AuthorizedAmount is the remaining authorization hold; the charged,
// refunded and canceled amounts are cumulative.
type TransactionItem struct {
	ID               uint               `json:"id" gorm:"primaryKey"`
	Name             string             `json:"name"`
	PSPReference     string             `json:"psp_reference" gorm:"index"`
	Currency         string             `json:"currency" gorm:"size:3"`
	AuthorizedAmount decimal.Decimal    `json:"authorized_amount" gorm:"type:decimal(12,2)"`
	ChargedAmount    decimal.Decimal    `json:"charged_amount" gorm:"type:decimal(12,2)"`
	RefundedAmount   decimal.Decimal    `json:"refunded_amount" gorm:"type:decimal(12,2)"`
	CanceledAmount   decimal.Decimal    `json:"canceled_amount" gorm:"type:decimal(12,2)"`
	OrderID          *uint              `json:"order_id"`
	CheckoutID       *uint              `json:"checkout_id" gorm:"index"`
	Events           []TransactionEvent `json:"events,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// AvailableCharged is the charged value still available for refunds.
func (t *TransactionItem) AvailableCharged() decimal.Decimal {
	return t.ChargedAmount.Sub(t.RefundedAmount)
}

// TransactionEvent is an append-only record of a requested or confirmed
// state change of a transaction item. The idempotency key is unique per
// item so a replayed event can never be applied twice.
type TransactionEvent struct {
	ID                uint                 `json:"id" gorm:"primaryKey"`
	TransactionItemID uint                 `json:"transaction_item_id" gorm:"uniqueIndex:idx_event_idempotency"`
	Type              TransactionEventType `json:"type"`
	Amount            decimal.Decimal      `json:"amount" gorm:"type:decimal(12,2)"`
	Currency          string               `json:"currency" gorm:"size:3"`
	IdempotencyKey    string               `json:"idempotency_key" gorm:"size:255;uniqueIndex:idx_event_idempotency"`
	PSPReference      string               `json:"psp_reference"`
	Message           string               `json:"message"`
	CreatedAt         time.Time            `json:"created_at"`
}
