package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yeremiapane/payment-hub/models"
	"github.com/yeremiapane/payment-hub/utils"
)

// GrantedRefundController manages staff refund grants on orders.
type GrantedRefundController struct {
	db *gorm.DB
}

func NewGrantedRefundController(db *gorm.DB) *GrantedRefundController {
	return &GrantedRefundController{db: db}
}

type grantRefundRequest struct {
	Amount   decimal.Decimal `json:"amount" binding:"required"`
	Currency string          `json:"currency" binding:"required"`
	Reason   string          `json:"reason"`
}

func (gc *GrantedRefundController) GrantRefund(c *gin.Context) {
	var req grantRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		utils.RespondError(c, http.StatusBadRequest, errors.New("amount should be a positive number"))
		return
	}

	orderID := paramID(c, "id")
	var order models.Order
	if err := gc.db.First(&order, orderID).Error; err != nil {
		respondServiceError(c, err)
		return
	}

	granted := models.OrderGrantedRefund{
		OrderID:  orderID,
		Amount:   req.Amount,
		Currency: req.Currency,
		Reason:   req.Reason,
		Status:   models.GrantedRefundStatusNone,
	}
	if err := gc.db.Create(&granted).Error; err != nil {
		respondServiceError(c, err)
		return
	}

	utils.InfoLogger.Printf("Granted refund %d of %s %s on order %d",
		granted.ID, granted.Amount, granted.Currency, granted.OrderID)
	utils.RespondJSON(c, http.StatusCreated, "Refund granted", granted)
}

func (gc *GrantedRefundController) ListGrantedRefunds(c *gin.Context) {
	var grants []models.OrderGrantedRefund
	if err := gc.db.Where("order_id = ?", paramID(c, "id")).Order("id ASC").Find(&grants).Error; err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Granted refund list", grants)
}
