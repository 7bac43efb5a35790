package services

import (
	"bytes"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yeremiapane/payment-hub/models"
	"github.com/yeremiapane/payment-hub/utils"
)

// Sync event names apps can subscribe to.
const (
	SyncEventTransactionChargeRequested      = "transaction_charge_requested"
	SyncEventTransactionRefundRequested      = "transaction_refund_requested"
	SyncEventTransactionCancelationRequested = "transaction_cancelation_requested"
)

// TransactionActionData is handed to the dispatch hook for every
// accepted transaction action request.
type TransactionActionData struct {
	Transaction   *models.TransactionItem
	Event         *models.TransactionEvent
	ActionType    string
	ActionValue   decimal.Decimal
	GrantedRefund *models.OrderGrantedRefund
	RefundData    *models.RefundData
}

// PluginManager routes transaction action requests to whatever app or
// plugin handles them. The core's responsibility ends once the request
// event is durably recorded and handed over.
type PluginManager interface {
	IsEventActiveForAnyPlugin(eventName, channelSlug string) bool
	TransactionChargeRequested(data TransactionActionData, channelSlug string) error
	TransactionRefundRequested(data TransactionActionData, channelSlug string) error
	TransactionCancelationRequested(data TransactionActionData, channelSlug string) error
}

// NoopPluginManager reports no subscribers for any event. It is the
// default when no webhook endpoint is configured.
type NoopPluginManager struct{}

func (NoopPluginManager) IsEventActiveForAnyPlugin(eventName, channelSlug string) bool { return false }

func (NoopPluginManager) TransactionChargeRequested(data TransactionActionData, channelSlug string) error {
	return nil
}

func (NoopPluginManager) TransactionRefundRequested(data TransactionActionData, channelSlug string) error {
	return nil
}

func (NoopPluginManager) TransactionCancelationRequested(data TransactionActionData, channelSlug string) error {
	return nil
}

// WebhookPluginManager delivers action requests to a single configured
// endpoint as signed JSON webhooks.
type WebhookPluginManager struct {
	endpoint   string
	secret     string
	events     map[string]bool
	httpClient *http.Client
}

func NewWebhookPluginManager(endpoint, secret string, events []string) *WebhookPluginManager {
	subscribed := make(map[string]bool, len(events))
	for _, e := range events {
		subscribed[e] = true
	}
	return &WebhookPluginManager{
		endpoint: endpoint,
		secret:   secret,
		events:   subscribed,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (m *WebhookPluginManager) IsEventActiveForAnyPlugin(eventName, channelSlug string) bool {
	return m.endpoint != "" && m.events[eventName]
}

func (m *WebhookPluginManager) TransactionChargeRequested(data TransactionActionData, channelSlug string) error {
	return m.deliver(SyncEventTransactionChargeRequested, data, channelSlug)
}

func (m *WebhookPluginManager) TransactionRefundRequested(data TransactionActionData, channelSlug string) error {
	return m.deliver(SyncEventTransactionRefundRequested, data, channelSlug)
}

func (m *WebhookPluginManager) TransactionCancelationRequested(data TransactionActionData, channelSlug string) error {
	return m.deliver(SyncEventTransactionCancelationRequested, data, channelSlug)
}

func (m *WebhookPluginManager) deliver(eventName string, data TransactionActionData, channelSlug string) error {
	payload := buildActionPayload(data)
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", eventName)
	req.Header.Set("X-Channel-Slug", channelSlug)
	req.Header.Set("X-Signature", SignPayload(body, m.secret))

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook delivery failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode)
	}
	utils.InfoLogger.Printf("Delivered %s webhook for transaction %d", eventName, data.Transaction.ID)
	return nil
}

// buildActionPayload shapes the outbound webhook body: the transaction
// with its running totals and events, plus the requested action.
func buildActionPayload(data TransactionActionData) map[string]interface{} {
	item := data.Transaction
	payload := map[string]interface{}{
		"transaction": map[string]interface{}{
			"id":               item.ID,
			"createdAt":        item.CreatedAt.Format(time.RFC3339),
			"pspReference":     item.PSPReference,
			"authorizedAmount": amountPayload(item.AuthorizedAmount, item.Currency),
			"chargedAmount":    amountPayload(item.ChargedAmount, item.Currency),
			"refundedAmount":   amountPayload(item.RefundedAmount, item.Currency),
			"canceledAmount":   amountPayload(item.CanceledAmount, item.Currency),
			"events":           item.Events,
			"order":            item.OrderID,
			"checkout":         item.CheckoutID,
		},
		"action": map[string]interface{}{
			"actionType": data.ActionType,
			"amount":     data.ActionValue,
			"currency":   item.Currency,
		},
	}
	if data.GrantedRefund != nil {
		payload["grantedRefund"] = map[string]interface{}{
			"id":     data.GrantedRefund.ID,
			"amount": amountPayload(data.GrantedRefund.Amount, data.GrantedRefund.Currency),
			"reason": data.GrantedRefund.Reason,
		}
	}
	if data.RefundData != nil {
		payload["refundData"] = data.RefundData
	}
	return payload
}

func amountPayload(amount decimal.Decimal, currency string) map[string]interface{} {
	return map[string]interface{}{
		"amount":   amount,
		"currency": currency,
	}
}

// SignPayload computes the hex SHA512 signature of body+secret, the
// same scheme inbound gateway notifications are validated with.
func SignPayload(body []byte, secret string) string {
	h := sha512.New()
	h.Write(body)
	h.Write([]byte(secret))
	return hex.EncodeToString(h.Sum(nil))
}
