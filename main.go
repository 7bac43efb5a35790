package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/yeremiapane/payment-hub/config"
	"github.com/yeremiapane/payment-hub/gateways"
	"github.com/yeremiapane/payment-hub/models"
	"github.com/yeremiapane/payment-hub/router"
	"github.com/yeremiapane/payment-hub/services"
	"github.com/yeremiapane/payment-hub/utils"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or error loading: %v", err)
	}
	utils.InitLogger()
}

func main() {
	db, err := config.InitDB()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	utils.InitDB(db)

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	autoMigrate(db)

	registry := gateways.NewRegistry()
	registry.Register("dummy", gateways.NewDummy(0))
	if serverKey := config.MidtransServerKey(); serverKey != "" {
		registry.Register("midtrans", gateways.NewMidtrans(serverKey, config.MidtransProduction()))
	}

	var manager services.PluginManager = services.NoopPluginManager{}
	if endpoint := config.WebhookEndpoint(); endpoint != "" {
		manager = services.NewWebhookPluginManager(endpoint, config.WebhookSecret(), []string{
			services.SyncEventTransactionChargeRequested,
			services.SyncEventTransactionRefundRequested,
			services.SyncEventTransactionCancelationRequested,
		})
	}

	payments := services.NewPaymentService(db, registry)
	actions := services.NewTransactionActionService(db, manager)

	sweeper := services.NewFundReleaseService(db, manager, config.FundReleaseTTL())
	sweeper.Interval = config.FundReleaseInterval()
	sweeper.Start()
	defer sweeper.Stop()

	r := router.SetupRouter(db, payments, actions, config.WebhookSecret())
	r.Use(func(c *gin.Context) {
		utils.InfoLogger.Printf("Incoming request: %s %s from %s", c.Request.Method, c.Request.URL.Path, c.ClientIP())
		c.Next()
	})
	r.SetTrustedProxies([]string{"127.0.0.1", "localhost"})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	utils.InfoLogger.Printf("Listening on port %s, gateways: %v", port, registry.IDs())
	if err := r.Run(":" + port); err != nil {
		utils.ErrorLogger.Fatal(err)
	}
}

func autoMigrate(db *gorm.DB) {
	err := db.AutoMigrate(
		&models.Order{},
		&models.Checkout{},
		&models.Payment{},
		&models.Transaction{},
		&models.TransactionItem{},
		&models.TransactionEvent{},
		&models.OrderGrantedRefund{},
	)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
}
