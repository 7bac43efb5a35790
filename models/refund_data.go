package models

import "github.com/shopspring/decimal"

// RefundLine points at an order or fulfillment line included in a refund.
type RefundLine struct {
	LineID   uint `json:"line_id"`
	Quantity int  `json:"quantity"`
}

// RefundData describes what a refund covers. It is a plain value object
// carried in dispatch payloads; it has no lifecycle of its own.
type RefundData struct {
	OrderLines       []RefundLine     `json:"order_lines,omitempty"`
	FulfillmentLines []RefundLine     `json:"fulfillment_lines,omitempty"`
	IncludeShipping  bool             `json:"include_shipping"`
	Amount           *decimal.Decimal `json:"amount,omitempty"`
	AutomaticAmount  bool             `json:"automatic_amount"`
}
