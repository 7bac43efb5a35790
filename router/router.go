package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yeremiapane/payment-hub/controllers"
	"github.com/yeremiapane/payment-hub/middlewares"
	"github.com/yeremiapane/payment-hub/services"
)

// SetupRouter wires the HTTP surface: payment gateway operations,
// transaction action requests, the inbound event webhook, and
// staff-only refund grants.
func SetupRouter(db *gorm.DB, payments *services.PaymentService, actions *services.TransactionActionService, webhookSecret string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.LoggerMiddleware())

	paymentCtrl := controllers.NewPaymentController(db, payments)
	transactionCtrl := controllers.NewTransactionController(db, actions)
	grantedRefundCtrl := controllers.NewGrantedRefundController(db)
	webhookCtrl := controllers.NewWebhookController(actions, webhookSecret)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	r.POST("/payments", paymentCtrl.CreatePayment)
	r.GET("/payments", paymentCtrl.GetPayments)
	r.GET("/payments/:id", paymentCtrl.GetPayment)
	r.POST("/payments/:id/process", paymentCtrl.ProcessPayment)
	r.POST("/payments/:id/authorize", paymentCtrl.Authorize)
	r.POST("/payments/:id/capture", paymentCtrl.Capture)
	r.POST("/payments/:id/refund", paymentCtrl.Refund)
	r.POST("/payments/:id/void", paymentCtrl.Void)
	r.POST("/payments/:id/confirm", paymentCtrl.Confirm)

	r.POST("/transactions", transactionCtrl.CreateTransaction)
	r.GET("/transactions/:id", transactionCtrl.GetTransaction)
	r.POST("/transactions/:id/request-charge", transactionCtrl.RequestCharge)
	r.POST("/transactions/:id/request-refund", transactionCtrl.RequestRefund)
	r.POST("/transactions/:id/request-cancel", transactionCtrl.RequestCancel)

	// Event reports are signature-validated inside the handler.
	r.POST("/transactions/events", webhookCtrl.HandleTransactionEvent)

	staff := r.Group("/orders")
	staff.Use(middlewares.AuthMiddleware(), middlewares.RequireRole("staff", "admin"))
	staff.POST("/:id/granted-refunds", grantedRefundCtrl.GrantRefund)
	staff.GET("/:id/granted-refunds", grantedRefundCtrl.ListGrantedRefunds)

	return r
}
