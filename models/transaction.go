package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// TransactionKind classifies a single gateway operation attempt.
type TransactionKind string

const (
	TransactionKindAuth            TransactionKind = "auth"
	TransactionKindPending         TransactionKind = "pending"
	TransactionKindActionToConfirm TransactionKind = "action_to_confirm"
	TransactionKindCapture         TransactionKind = "capture"
	TransactionKindCaptureFailed   TransactionKind = "capture_failed"
	TransactionKindConfirm         TransactionKind = "confirm"
	TransactionKindVoid            TransactionKind = "void"
	TransactionKindRefund          TransactionKind = "refund"
	TransactionKindRefundOngoing   TransactionKind = "refund_ongoing"
	TransactionKindRefundFailed    TransactionKind = "refund_failed"
	TransactionKindCancel          TransactionKind = "cancel"
)

// ValidTransactionKinds is the set of kinds a gateway response may carry.
var ValidTransactionKinds = map[TransactionKind]bool{
	TransactionKindAuth:            true,
	TransactionKindPending:         true,
	TransactionKindActionToConfirm: true,
	TransactionKindCapture:         true,
	TransactionKindCaptureFailed:   true,
	TransactionKindConfirm:         true,
	TransactionKindVoid:            true,
	TransactionKindRefund:          true,
	TransactionKindRefundOngoing:   true,
	TransactionKindRefundFailed:    true,
	TransactionKindCancel:          true,
}

// Transaction is one row of the payment ledger: a single attempted
// gateway operation and its outcome. Rows are immutable once created.
type Transaction struct {
	ID              uint            `json:"id" gorm:"primaryKey"`
	PaymentID       uint            `json:"payment_id" gorm:"index"`
	Kind            TransactionKind `json:"kind"`
	Amount          decimal.Decimal `json:"amount" gorm:"type:decimal(12,2)"`
	Currency        string          `json:"currency" gorm:"size:3"`
	IsSuccess       bool            `json:"is_success"`
	Error           string          `json:"error"`
	Token           string          `json:"token"`
	ActionRequired  bool            `json:"action_required"`
	GatewayResponse datatypes.JSON  `json:"gateway_response"`
	CreatedAt       time.Time       `json:"created_at"`
}
