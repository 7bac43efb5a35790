package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// InitDB opens the postgres connection described by the environment.
func InitDB() (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", ""),
		getEnv("DB_NAME", "payment_hub"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_SSLMODE", "disable"),
		getEnv("DB_TIMEZONE", "UTC"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// WebhookEndpoint is the app endpoint action requests are delivered to.
// Empty means no app is configured.
func WebhookEndpoint() string {
	return os.Getenv("WEBHOOK_ENDPOINT")
}

// WebhookSecret signs outbound action requests and validates inbound
// event reports.
func WebhookSecret() string {
	return os.Getenv("WEBHOOK_SECRET")
}

// MidtransServerKey is empty when the midtrans gateway is disabled.
func MidtransServerKey() string {
	return os.Getenv("MIDTRANS_SERVER_KEY")
}

// MidtransProduction reports whether to use the production midtrans
// environment instead of the sandbox.
func MidtransProduction() bool {
	return os.Getenv("MIDTRANS_ENV") == "production"
}

// FundReleaseTTL is how long an untouched checkout keeps its funds
// before the sweeper releases them.
func FundReleaseTTL() time.Duration {
	return getDurationEnv("FUND_RELEASE_TTL_HOURS", 6) * time.Hour
}

// FundReleaseInterval is the sweep period.
func FundReleaseInterval() time.Duration {
	return getDurationEnv("FUND_RELEASE_INTERVAL_MINUTES", 30) * time.Minute
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback int64) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil && parsed > 0 {
			return time.Duration(parsed)
		}
	}
	return time.Duration(fallback)
}
