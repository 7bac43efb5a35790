package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentHoldStatus summarizes whether a checkout currently holds funds.
type PaymentHoldStatus string

const (
	HoldStatusNone    PaymentHoldStatus = "none"
	HoldStatusPartial PaymentHoldStatus = "partial"
	HoldStatusFull    PaymentHoldStatus = "full"
)

// Checkout is the minimal owner record for pre-order transaction items.
// AuthorizeStatus/ChargeStatus are recomputed from the checkout's
// transaction items; LastChangeAt feeds the stale-funds sweeper.
type Checkout struct {
	ID                      uint              `json:"id" gorm:"primaryKey"`
	ChannelSlug             string            `json:"channel_slug"`
	Currency                string            `json:"currency" gorm:"size:3"`
	Total                   decimal.Decimal   `json:"total" gorm:"type:decimal(12,2)"`
	AuthorizeStatus         PaymentHoldStatus `json:"authorize_status" gorm:"default:'none'"`
	ChargeStatus            PaymentHoldStatus `json:"charge_status" gorm:"default:'none'"`
	AutomaticallyRefundable bool              `json:"automatically_refundable"`
	LastChangeAt            time.Time         `json:"last_change_at"`
	CreatedAt               time.Time         `json:"created_at"`
	UpdatedAt               time.Time         `json:"updated_at"`
}
