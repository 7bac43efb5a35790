package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yeremiapane/payment-hub/models"
	"github.com/yeremiapane/payment-hub/services"
	"github.com/yeremiapane/payment-hub/utils"
)

// PaymentController exposes the gateway operation dispatcher over HTTP.
type PaymentController struct {
	db       *gorm.DB
	payments *services.PaymentService
}

func NewPaymentController(db *gorm.DB, payments *services.PaymentService) *PaymentController {
	return &PaymentController{
		db:       db,
		payments: payments,
	}
}

// CreatePaymentRequest is the payload for registering a payment attempt.
type CreatePaymentRequest struct {
	Gateway    string          `json:"gateway" binding:"required"`
	Currency   string          `json:"currency" binding:"required"`
	Total      decimal.Decimal `json:"total" binding:"required"`
	CustomerID string          `json:"customer_id"`
	OrderID    *uint           `json:"order_id"`
	CheckoutID *uint           `json:"checkout_id"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type amountRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

func (pc *PaymentController) CreatePayment(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	payment := models.Payment{
		Gateway:    req.Gateway,
		Currency:   req.Currency,
		Total:      req.Total,
		CustomerID: req.CustomerID,
		OrderID:    req.OrderID,
		CheckoutID: req.CheckoutID,
	}
	if err := pc.payments.CreatePayment(&payment); err != nil {
		respondServiceError(c, err)
		return
	}

	utils.InfoLogger.Printf("Created payment %d on gateway %s, total %s %s",
		payment.ID, payment.Gateway, payment.Total, payment.Currency)
	utils.RespondJSON(c, http.StatusCreated, "Payment created", payment)
}

func (pc *PaymentController) GetPayments(c *gin.Context) {
	var payments []models.Payment
	query := pc.db.Order("created_at DESC")
	if orderID := c.Query("order_id"); orderID != "" {
		query = query.Where("order_id = ?", orderID)
	}
	if err := query.Find(&payments).Error; err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment list", payments)
}

func (pc *PaymentController) GetPayment(c *gin.Context) {
	payment, err := pc.payments.GetPayment(paramID(c, "id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment detail", payment)
}

func (pc *PaymentController) ProcessPayment(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	txn, err := pc.payments.ProcessPayment(paramID(c, "id"), req.Token)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment processed", txn)
}

func (pc *PaymentController) Authorize(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	txn, err := pc.payments.Authorize(paramID(c, "id"), req.Token)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment authorized", txn)
}

func (pc *PaymentController) Capture(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	txn, err := pc.payments.Capture(paramID(c, "id"), req.Amount)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment captured", txn)
}

func (pc *PaymentController) Refund(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	txn, err := pc.payments.Refund(paramID(c, "id"), req.Amount)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment refunded", txn)
}

func (pc *PaymentController) Void(c *gin.Context) {
	txn, err := pc.payments.Void(paramID(c, "id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment voided", txn)
}

func (pc *PaymentController) Confirm(c *gin.Context) {
	txn, err := pc.payments.Confirm(paramID(c, "id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment confirmed", txn)
}
