package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the minimal owner record payments and granted refunds hang
// off. Pricing, lines and fulfillment live in the upstream commerce
// system; only what the reconciliation core needs is kept here.
type Order struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	Number    string          `json:"number"`
	Currency  string          `json:"currency" gorm:"size:3"`
	Total     decimal.Decimal `json:"total" gorm:"type:decimal(12,2)"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
