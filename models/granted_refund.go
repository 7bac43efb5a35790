package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// GrantedRefundStatus tracks the lifecycle of a staff refund decision.
type GrantedRefundStatus string

const (
	GrantedRefundStatusNone    GrantedRefundStatus = "none"
	GrantedRefundStatusPending GrantedRefundStatus = "pending"
	GrantedRefundStatusSuccess GrantedRefundStatus = "success"
	GrantedRefundStatusFailure GrantedRefundStatus = "failure"
)

// OrderGrantedRefund records a staff or policy decision to refund a
// specific amount of an order. It moves to pending the moment a refund
// request event is created against the linked transaction item;
// success and failure are terminal.
type OrderGrantedRefund struct {
	ID                uint                `json:"id" gorm:"primaryKey"`
	OrderID           uint                `json:"order_id" gorm:"index"`
	Amount            decimal.Decimal     `json:"amount" gorm:"type:decimal(12,2)"`
	Currency          string              `json:"currency" gorm:"size:3"`
	Reason            string              `json:"reason"`
	Status            GrantedRefundStatus `json:"status" gorm:"default:'none'"`
	TransactionItemID *uint               `json:"transaction_item_id"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}
