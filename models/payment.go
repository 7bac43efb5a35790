package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ChargeStatus enumerates how much of a payment's total has been
// collected. It is always derived from the payment's transaction
// history, never set directly by callers.
type ChargeStatus string

const (
	ChargeStatusNotCharged        ChargeStatus = "not-charged"
	ChargeStatusPending           ChargeStatus = "pending"
	ChargeStatusPartiallyCharged  ChargeStatus = "partially-charged"
	ChargeStatusFullyCharged      ChargeStatus = "fully-charged"
	ChargeStatusPartiallyRefunded ChargeStatus = "partially-refunded"
	ChargeStatusFullyRefunded     ChargeStatus = "fully-refunded"
	ChargeStatusRefused           ChargeStatus = "refused"
	ChargeStatusCancelled         ChargeStatus = "cancelled"
)

// Payment represents one payment attempt against an order or checkout.
// Amount fields are only mutated by recomputation from the full
// transaction history; the row itself is never deleted.
type Payment struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	Gateway        string          `json:"gateway"`
	Currency       string          `json:"currency" gorm:"size:3"`
	Total          decimal.Decimal `json:"total" gorm:"type:decimal(12,2)"`
	CapturedAmount decimal.Decimal `json:"captured_amount" gorm:"type:decimal(12,2)"`
	ChargeStatus   ChargeStatus    `json:"charge_status" gorm:"default:'not-charged'"`
	IsActive       bool            `json:"is_active" gorm:"default:true"`
	ToConfirm      bool            `json:"to_confirm"`
	Token          string          `json:"token"`
	CustomerID     string          `json:"customer_id"`
	OrderID        *uint           `json:"order_id"`
	CheckoutID     *uint           `json:"checkout_id"`
	Transactions   []Transaction   `json:"transactions,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ChargeAmount is the part of the total that has not been captured yet.
func (p *Payment) ChargeAmount() decimal.Decimal {
	return p.Total.Sub(p.CapturedAmount)
}

// IsFullyCharged reports whether the captured amount covers the total.
func (p *Payment) IsFullyCharged() bool {
	return p.CapturedAmount.GreaterThanOrEqual(p.Total)
}
