package services

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/payment-hub/models"
)

func TestWebhookPluginManagerDeliversSignedPayload(t *testing.T) {
	var gotBody []byte
	var gotSignature, gotEventType, gotChannel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSignature = r.Header.Get("X-Signature")
		gotEventType = r.Header.Get("X-Event-Type")
		gotChannel = r.Header.Get("X-Channel-Slug")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	manager := NewWebhookPluginManager(server.URL, "test-secret", []string{
		SyncEventTransactionChargeRequested,
	})
	assert.True(t, manager.IsEventActiveForAnyPlugin(SyncEventTransactionChargeRequested, "default"))
	assert.False(t, manager.IsEventActiveForAnyPlugin(SyncEventTransactionRefundRequested, "default"))

	item := &models.TransactionItem{
		ID:               7,
		PSPReference:     "psp-7",
		Currency:         "USD",
		AuthorizedAmount: d("50.00"),
	}
	event := &models.TransactionEvent{
		TransactionItemID: item.ID,
		Type:              models.EventChargeRequest,
		Amount:            d("30.00"),
		Currency:          "USD",
	}

	err := manager.TransactionChargeRequested(TransactionActionData{
		Transaction: item,
		Event:       event,
		ActionType:  "charge",
		ActionValue: d("30.00"),
	}, "default")
	require.NoError(t, err)

	assert.Equal(t, SyncEventTransactionChargeRequested, gotEventType)
	assert.Equal(t, "default", gotChannel)
	assert.Equal(t, SignPayload(gotBody, "test-secret"), gotSignature)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	transaction := payload["transaction"].(map[string]interface{})
	assert.Equal(t, "psp-7", transaction["pspReference"])
	action := payload["action"].(map[string]interface{})
	assert.Equal(t, "charge", action["actionType"])
}

func TestWebhookPluginManagerReportsEndpointErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	manager := NewWebhookPluginManager(server.URL, "test-secret", []string{
		SyncEventTransactionRefundRequested,
	})

	err := manager.TransactionRefundRequested(TransactionActionData{
		Transaction: &models.TransactionItem{ID: 1, Currency: "USD"},
		Event:       &models.TransactionEvent{},
		ActionType:  "refund",
		ActionValue: d("10.00"),
	}, "default")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestNoopPluginManagerHasNoSubscribers(t *testing.T) {
	manager := NoopPluginManager{}
	assert.False(t, manager.IsEventActiveForAnyPlugin(SyncEventTransactionChargeRequested, "default"))
	assert.NoError(t, manager.TransactionChargeRequested(TransactionActionData{}, "default"))
}
