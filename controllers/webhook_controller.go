package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/yeremiapane/payment-hub/models"
	"github.com/yeremiapane/payment-hub/services"
	"github.com/yeremiapane/payment-hub/utils"
)

// WebhookController receives transaction result events reported back by
// apps and providers. Payloads are signature-checked before any of them
// touch the ledger.
type WebhookController struct {
	actions *services.TransactionActionService
	secret  string
}

func NewWebhookController(actions *services.TransactionActionService, secret string) *WebhookController {
	return &WebhookController{
		actions: actions,
		secret:  secret,
	}
}

type eventNotification struct {
	TransactionItemID uint                        `json:"transaction_item_id"`
	PSPReference      string                      `json:"psp_reference"`
	Type              models.TransactionEventType `json:"type"`
	Amount            decimal.Decimal             `json:"amount"`
	IdempotencyKey    string                      `json:"idempotency_key"`
	Message           string                      `json:"message"`
}

// HandleTransactionEvent validates the signature, then applies the
// reported event exactly once. Replays of an already-applied key get a
// 200 with applied=false so the sender stops retrying.
func (wc *WebhookController) HandleTransactionEvent(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if wc.secret != "" {
		signature := c.GetHeader("X-Signature")
		if signature != services.SignPayload(body, wc.secret) {
			utils.ErrorLogger.Printf("Rejected transaction event with invalid signature from %s", c.ClientIP())
			utils.RespondError(c, http.StatusUnauthorized, errors.New("invalid signature"))
			return
		}
	}

	var notification eventNotification
	if err := json.Unmarshal(body, &notification); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if notification.TransactionItemID == 0 && notification.PSPReference == "" {
		utils.RespondError(c, http.StatusBadRequest, errors.New("transaction_item_id or psp_reference is required"))
		return
	}
	if _, ok := models.ValidTransactionEventTypes[notification.Type]; !ok {
		utils.RespondError(c, http.StatusBadRequest, errors.New("unknown event type"))
		return
	}

	event, applied, err := wc.actions.RecordEvent(services.EventReport{
		TransactionItemID: notification.TransactionItemID,
		PSPReference:      notification.PSPReference,
		Type:              notification.Type,
		Amount:            notification.Amount,
		IdempotencyKey:    notification.IdempotencyKey,
		Message:           notification.Message,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Event received", gin.H{
		"applied": applied,
		"event":   event,
	})
}
