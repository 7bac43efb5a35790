package gateways

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/yeremiapane/payment-hub/models"
)

// Dummy is a stand-in gateway for development and load testing. With a
// zero failure rate every operation succeeds deterministically.
type Dummy struct {
	FailureRate float64 // 0.0 - 1.0
}

func NewDummy(failureRate float64) *Dummy {
	return &Dummy{FailureRate: failureRate}
}

func (d *Dummy) respond(info PaymentInfo, kind models.TransactionKind) (*Response, error) {
	if rand.Float64() < d.FailureRate {
		return &Response{
			IsSuccess: false,
			Kind:      kind,
			Amount:    info.Amount,
			Currency:  info.Currency,
			Error:     "Insufficient funds",
			RawResponse: map[string]interface{}{
				"simulated": true,
				"time":      time.Now().Format(time.RFC3339),
			},
		}, nil
	}

	token := info.Token
	if token == "" {
		token = fmt.Sprintf("TXN-%s", uuid.New().String()[:8])
	}
	return &Response{
		IsSuccess:     true,
		Kind:          kind,
		Amount:        info.Amount,
		Currency:      info.Currency,
		TransactionID: token,
		CustomerID:    info.CustomerID,
		RawResponse: map[string]interface{}{
			"simulated": true,
			"time":      time.Now().Format(time.RFC3339),
		},
	}, nil
}

func (d *Dummy) AuthorizePayment(info PaymentInfo) (*Response, error) {
	return d.respond(info, models.TransactionKindAuth)
}

func (d *Dummy) CapturePayment(info PaymentInfo) (*Response, error) {
	return d.respond(info, models.TransactionKindCapture)
}

func (d *Dummy) RefundPayment(info PaymentInfo) (*Response, error) {
	return d.respond(info, models.TransactionKindRefund)
}

func (d *Dummy) VoidPayment(info PaymentInfo) (*Response, error) {
	return d.respond(info, models.TransactionKindVoid)
}

func (d *Dummy) ConfirmPayment(info PaymentInfo) (*Response, error) {
	return d.respond(info, models.TransactionKindConfirm)
}

func (d *Dummy) ProcessPayment(info PaymentInfo) (*Response, error) {
	return d.respond(info, models.TransactionKindCapture)
}
