package gateways

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/payment-hub/models"
)

func TestDummyIsDeterministicAtZeroFailureRate(t *testing.T) {
	dummy := NewDummy(0)
	info := PaymentInfo{
		PaymentID: 1,
		Amount:    decimal.RequireFromString("100.00"),
		Currency:  "USD",
	}

	for i := 0; i < 50; i++ {
		resp, err := dummy.CapturePayment(info)
		require.NoError(t, err)
		assert.True(t, resp.IsSuccess)
		assert.Equal(t, models.TransactionKindCapture, resp.Kind)
		assert.True(t, resp.Amount.Equal(info.Amount))
	}
}

func TestDummyAlwaysFailsAtFullFailureRate(t *testing.T) {
	dummy := NewDummy(1)
	info := PaymentInfo{Amount: decimal.RequireFromString("10.00"), Currency: "USD"}

	resp, err := dummy.AuthorizePayment(info)
	require.NoError(t, err)
	assert.False(t, resp.IsSuccess)
	assert.NotEmpty(t, resp.Error)
}

func TestDummyKeepsExistingToken(t *testing.T) {
	dummy := NewDummy(0)
	resp, err := dummy.RefundPayment(PaymentInfo{
		Amount:   decimal.RequireFromString("10.00"),
		Currency: "USD",
		Token:    "tok-existing",
	})
	require.NoError(t, err)
	assert.Equal(t, "tok-existing", resp.TransactionID)
}

func TestRegistryResolvesAdapters(t *testing.T) {
	registry := NewRegistry()
	dummy := NewDummy(0)
	registry.Register("dummy", dummy)

	adapter, err := registry.Resolve("dummy")
	require.NoError(t, err)
	assert.Equal(t, dummy, adapter)

	_, err = registry.Resolve("unknown")
	require.Error(t, err)

	assert.True(t, registry.Known("dummy"))
	assert.True(t, registry.Known(ManualGatewayID), "manual is always known")
	assert.False(t, registry.Known("unknown"))
	assert.Equal(t, []string{"dummy", ManualGatewayID}, registry.IDs())
}

func TestMapTransactionStatus(t *testing.T) {
	tests := []struct {
		status  string
		kind    models.TransactionKind
		success bool
	}{
		{"authorize", models.TransactionKindAuth, true},
		{"capture", models.TransactionKindCapture, true},
		{"settlement", models.TransactionKindCapture, true},
		{"pending", models.TransactionKindPending, true},
		{"refund", models.TransactionKindRefund, true},
		{"partial_refund", models.TransactionKindRefund, true},
		{"cancel", models.TransactionKindVoid, true},
		{"deny", models.TransactionKindCapture, false},
		{"expire", models.TransactionKindCapture, false},
		{"failure", models.TransactionKindCapture, false},
		{"something-new", models.TransactionKindPending, false},
	}

	for _, tc := range tests {
		kind, success := mapTransactionStatus(tc.status)
		assert.Equal(t, tc.kind, kind, tc.status)
		assert.Equal(t, tc.success, success, tc.status)
	}
}
