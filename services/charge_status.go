package services

import (
	"github.com/shopspring/decimal"

	"github.com/yeremiapane/payment-hub/models"
)

// DeriveChargeStatus computes the captured amount and charge status of
// a payment from its ordered transaction history. It is a pure
// function: the same transaction list always yields the same result,
// regardless of when or how often it is recomputed.
//
// Captures and confirms add their amount, refunds subtract, a void
// cancels the authorization. Failed transactions carry no weight.
func DeriveChargeStatus(total decimal.Decimal, txns []models.Transaction) (decimal.Decimal, models.ChargeStatus) {
	captured := decimal.Zero
	refunded := decimal.Zero
	voided := false
	pending := false

	for _, txn := range txns {
		if !txn.IsSuccess {
			continue
		}
		switch txn.Kind {
		case models.TransactionKindCapture, models.TransactionKindConfirm:
			captured = captured.Add(txn.Amount)
		case models.TransactionKindRefund:
			captured = captured.Sub(txn.Amount)
			refunded = refunded.Add(txn.Amount)
		case models.TransactionKindVoid, models.TransactionKindCancel:
			voided = true
		case models.TransactionKindPending, models.TransactionKindActionToConfirm:
			pending = true
		}
	}

	if captured.IsNegative() {
		captured = decimal.Zero
	}

	switch {
	case captured.IsZero() && refunded.GreaterThan(decimal.Zero):
		return captured, models.ChargeStatusFullyRefunded
	case captured.IsZero() && voided:
		return captured, models.ChargeStatusCancelled
	case captured.IsZero() && pending:
		return captured, models.ChargeStatusPending
	case captured.IsZero():
		return captured, models.ChargeStatusNotCharged
	case refunded.GreaterThan(decimal.Zero):
		return captured, models.ChargeStatusPartiallyRefunded
	case captured.GreaterThanOrEqual(total):
		return captured, models.ChargeStatusFullyCharged
	default:
		return captured, models.ChargeStatusPartiallyCharged
	}
}
