package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/yeremiapane/payment-hub/models"
)

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func txn(kind models.TransactionKind, amount string, success bool) models.Transaction {
	return models.Transaction{Kind: kind, Amount: d(amount), IsSuccess: success}
}

func TestDeriveChargeStatus(t *testing.T) {
	total := d("100.00")

	tests := []struct {
		name     string
		txns     []models.Transaction
		captured string
		status   models.ChargeStatus
	}{
		{
			name:     "no transactions",
			captured: "0",
			status:   models.ChargeStatusNotCharged,
		},
		{
			name: "auth only",
			txns: []models.Transaction{
				txn(models.TransactionKindAuth, "100.00", true),
			},
			captured: "0",
			status:   models.ChargeStatusNotCharged,
		},
		{
			name: "full capture",
			txns: []models.Transaction{
				txn(models.TransactionKindAuth, "100.00", true),
				txn(models.TransactionKindCapture, "100.00", true),
			},
			captured: "100.00",
			status:   models.ChargeStatusFullyCharged,
		},
		{
			name: "partial capture",
			txns: []models.Transaction{
				txn(models.TransactionKindAuth, "100.00", true),
				txn(models.TransactionKindCapture, "40.00", true),
			},
			captured: "40.00",
			status:   models.ChargeStatusPartiallyCharged,
		},
		{
			name: "partial refund",
			txns: []models.Transaction{
				txn(models.TransactionKindCapture, "100.00", true),
				txn(models.TransactionKindRefund, "30.00", true),
			},
			captured: "70.00",
			status:   models.ChargeStatusPartiallyRefunded,
		},
		{
			name: "full refund",
			txns: []models.Transaction{
				txn(models.TransactionKindCapture, "100.00", true),
				txn(models.TransactionKindRefund, "100.00", true),
			},
			captured: "0",
			status:   models.ChargeStatusFullyRefunded,
		},
		{
			name: "void after auth",
			txns: []models.Transaction{
				txn(models.TransactionKindAuth, "100.00", true),
				txn(models.TransactionKindVoid, "100.00", true),
			},
			captured: "0",
			status:   models.ChargeStatusCancelled,
		},
		{
			name: "pending settlement",
			txns: []models.Transaction{
				txn(models.TransactionKindPending, "100.00", true),
			},
			captured: "0",
			status:   models.ChargeStatusPending,
		},
		{
			name: "failed capture carries no weight",
			txns: []models.Transaction{
				txn(models.TransactionKindAuth, "100.00", true),
				txn(models.TransactionKindCaptureFailed, "100.00", false),
			},
			captured: "0",
			status:   models.ChargeStatusNotCharged,
		},
		{
			name: "refund beyond capture floors at zero",
			txns: []models.Transaction{
				txn(models.TransactionKindCapture, "50.00", true),
				txn(models.TransactionKindRefund, "80.00", true),
			},
			captured: "0",
			status:   models.ChargeStatusFullyRefunded,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			captured, status := DeriveChargeStatus(total, tc.txns)
			assert.True(t, captured.Equal(d(tc.captured)), "captured = %s, want %s", captured, tc.captured)
			assert.Equal(t, tc.status, status)
		})
	}
}

func TestDeriveChargeStatusIsDeterministic(t *testing.T) {
	total := d("100.00")
	history := []models.Transaction{
		txn(models.TransactionKindAuth, "100.00", true),
		txn(models.TransactionKindCapture, "60.00", true),
		txn(models.TransactionKindRefund, "20.00", true),
	}

	captured1, status1 := DeriveChargeStatus(total, history)
	captured2, status2 := DeriveChargeStatus(total, history)
	assert.True(t, captured1.Equal(captured2))
	assert.Equal(t, status1, status2)
	assert.Equal(t, models.ChargeStatusPartiallyRefunded, status1)
}
