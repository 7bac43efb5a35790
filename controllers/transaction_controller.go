package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yeremiapane/payment-hub/models"
	"github.com/yeremiapane/payment-hub/services"
	"github.com/yeremiapane/payment-hub/utils"
)

// TransactionController exposes app-held transactions and their action
// requests over HTTP.
type TransactionController struct {
	db      *gorm.DB
	actions *services.TransactionActionService
}

func NewTransactionController(db *gorm.DB, actions *services.TransactionActionService) *TransactionController {
	return &TransactionController{
		db:      db,
		actions: actions,
	}
}

// CreateTransactionRequest registers a transaction item. Optional
// initial events let the caller backfill state already confirmed by the
// provider, e.g. an authorization taken before the item was recorded.
type CreateTransactionRequest struct {
	Name          string              `json:"name"`
	PSPReference  string              `json:"psp_reference"`
	Currency      string              `json:"currency" binding:"required"`
	OrderID       *uint               `json:"order_id"`
	CheckoutID    *uint               `json:"checkout_id"`
	InitialEvents []initialEventInput `json:"initial_events"`
}

type initialEventInput struct {
	Type           models.TransactionEventType `json:"type" binding:"required"`
	Amount         decimal.Decimal             `json:"amount" binding:"required"`
	IdempotencyKey string                      `json:"idempotency_key"`
	Message        string                      `json:"message"`
}

type actionRequestInput struct {
	Amount          *decimal.Decimal   `json:"amount"`
	GrantedRefundID *uint              `json:"granted_refund_id"`
	RefundData      *models.RefundData `json:"refund_data"`
	ChannelSlug     string             `json:"channel_slug"`
}

func (tc *TransactionController) CreateTransaction(c *gin.Context) {
	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	for _, e := range req.InitialEvents {
		if !models.ValidTransactionEventTypes[e.Type] {
			utils.RespondError(c, http.StatusBadRequest, errors.New("unknown event type"))
			return
		}
	}

	item := models.TransactionItem{
		Name:         req.Name,
		PSPReference: req.PSPReference,
		Currency:     req.Currency,
		OrderID:      req.OrderID,
		CheckoutID:   req.CheckoutID,
	}
	if err := tc.actions.CreateTransactionItem(&item); err != nil {
		respondServiceError(c, err)
		return
	}

	for _, e := range req.InitialEvents {
		_, _, err := tc.actions.RecordEvent(services.EventReport{
			TransactionItemID: item.ID,
			Type:              e.Type,
			Amount:            e.Amount,
			IdempotencyKey:    e.IdempotencyKey,
			Message:           e.Message,
		})
		if err != nil {
			respondServiceError(c, err)
			return
		}
	}

	created, err := tc.actions.GetTransactionItem(item.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.InfoLogger.Printf("Created transaction %d (%s)", created.ID, created.PSPReference)
	utils.RespondJSON(c, http.StatusCreated, "Transaction created", created)
}

func (tc *TransactionController) GetTransaction(c *gin.Context) {
	item, err := tc.actions.GetTransactionItem(paramID(c, "id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Transaction detail", item)
}

func (tc *TransactionController) RequestCharge(c *gin.Context) {
	var req actionRequestInput
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	event, err := tc.actions.RequestCharge(paramID(c, "id"), req.Amount, req.ChannelSlug)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Charge requested", event)
}

func (tc *TransactionController) RequestRefund(c *gin.Context) {
	var req actionRequestInput
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	event, err := tc.actions.RequestRefund(paramID(c, "id"), req.Amount, req.GrantedRefundID, req.RefundData, req.ChannelSlug)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Refund requested", event)
}

func (tc *TransactionController) RequestCancel(c *gin.Context) {
	var req actionRequestInput
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	event, err := tc.actions.RequestCancel(paramID(c, "id"), req.ChannelSlug)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Cancelation requested", event)
}
