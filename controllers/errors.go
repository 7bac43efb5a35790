package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yeremiapane/payment-hub/services"
	"github.com/yeremiapane/payment-hub/utils"
)

// respondServiceError maps service errors onto the response envelope.
// PaymentErrors keep their code so clients can branch on it.
func respondServiceError(c *gin.Context, err error) {
	var pe *services.PaymentError
	if errors.As(err, &pe) {
		utils.RespondErrorCode(c, http.StatusBadRequest, pe.Code, pe)
		return
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.RespondError(c, http.StatusNotFound, errors.New("record not found"))
		return
	}
	utils.RespondError(c, http.StatusInternalServerError, err)
}
