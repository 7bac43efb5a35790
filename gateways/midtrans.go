package gateways

import (
	"fmt"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/shopspring/decimal"

	"github.com/yeremiapane/payment-hub/models"
)

// Midtrans adapts the Midtrans Core API to the gateway contract.
// Payments are charged as QRIS transactions; the payment token carries
// the Midtrans order id between operations.
type Midtrans struct {
	client coreapi.Client
}

func NewMidtrans(serverKey string, production bool) *Midtrans {
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}
	m := &Midtrans{}
	m.client.New(serverKey, env)
	return m
}

// mapTransactionStatus translates a Midtrans transaction status into a
// ledger transaction kind plus success flag.
func mapTransactionStatus(status string) (models.TransactionKind, bool) {
	switch status {
	case "authorize":
		return models.TransactionKindAuth, true
	case "capture", "settlement":
		return models.TransactionKindCapture, true
	case "pending":
		return models.TransactionKindPending, true
	case "refund", "partial_refund":
		return models.TransactionKindRefund, true
	case "cancel":
		return models.TransactionKindVoid, true
	case "deny", "expire", "failure":
		return models.TransactionKindCapture, false
	}
	return models.TransactionKindPending, false
}

func rawFromStatus(statusCode, statusMessage, transactionID, transactionStatus string) map[string]interface{} {
	return map[string]interface{}{
		"status_code":        statusCode,
		"status_message":     statusMessage,
		"transaction_id":     transactionID,
		"transaction_status": transactionStatus,
	}
}

func (m *Midtrans) charge(info PaymentInfo, kind models.TransactionKind) (*Response, error) {
	orderID := info.Token
	if orderID == "" {
		orderID = fmt.Sprintf("payment-%d", info.PaymentID)
	}
	req := &coreapi.ChargeReq{
		PaymentType: coreapi.PaymentTypeQris,
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: info.Amount.IntPart(),
		},
	}

	res, mErr := m.client.ChargeTransaction(req)
	if mErr != nil {
		return nil, fmt.Errorf("midtrans charge: %w", mErr)
	}

	respKind, success := mapTransactionStatus(res.TransactionStatus)
	if respKind == models.TransactionKindPending {
		// QRIS settles asynchronously; the charge is confirmed later
		// via ConfirmPayment or the notification webhook.
		respKind = kind
		success = res.StatusCode == "200" || res.StatusCode == "201"
	}
	return &Response{
		IsSuccess:      success,
		Kind:           respKind,
		Amount:         info.Amount,
		Currency:       info.Currency,
		TransactionID:  orderID,
		Error:          errorFromStatus(res.StatusCode, res.StatusMessage),
		RawResponse:    rawFromStatus(res.StatusCode, res.StatusMessage, res.TransactionID, res.TransactionStatus),
		ActionRequired: res.TransactionStatus == "pending",
		CustomerID:     info.CustomerID,
	}, nil
}

func errorFromStatus(statusCode, statusMessage string) string {
	switch statusCode {
	case "200", "201":
		return ""
	}
	return statusMessage
}

func (m *Midtrans) AuthorizePayment(info PaymentInfo) (*Response, error) {
	return m.charge(info, models.TransactionKindAuth)
}

func (m *Midtrans) ProcessPayment(info PaymentInfo) (*Response, error) {
	return m.charge(info, models.TransactionKindCapture)
}

func (m *Midtrans) CapturePayment(info PaymentInfo) (*Response, error) {
	amt, _ := info.Amount.Float64()
	res, mErr := m.client.CaptureTransaction(&coreapi.CaptureReq{
		TransactionID: info.Token,
		GrossAmt:      amt,
	})
	if mErr != nil {
		return nil, fmt.Errorf("midtrans capture: %w", mErr)
	}
	return &Response{
		IsSuccess:     res.StatusCode == "200",
		Kind:          models.TransactionKindCapture,
		Amount:        info.Amount,
		Currency:      info.Currency,
		TransactionID: info.Token,
		Error:         errorFromStatus(res.StatusCode, res.StatusMessage),
		RawResponse:   rawFromStatus(res.StatusCode, res.StatusMessage, res.TransactionID, res.TransactionStatus),
	}, nil
}

func (m *Midtrans) RefundPayment(info PaymentInfo) (*Response, error) {
	res, mErr := m.client.RefundTransaction(info.Token, &coreapi.RefundReq{
		Amount: info.Amount.IntPart(),
		Reason: "requested by operator",
	})
	if mErr != nil {
		return nil, fmt.Errorf("midtrans refund: %w", mErr)
	}
	return &Response{
		IsSuccess:     res.StatusCode == "200",
		Kind:          models.TransactionKindRefund,
		Amount:        info.Amount,
		Currency:      info.Currency,
		TransactionID: info.Token,
		Error:         errorFromStatus(res.StatusCode, res.StatusMessage),
		RawResponse:   rawFromStatus(res.StatusCode, res.StatusMessage, res.TransactionID, res.TransactionStatus),
	}, nil
}

func (m *Midtrans) VoidPayment(info PaymentInfo) (*Response, error) {
	res, mErr := m.client.CancelTransaction(info.Token)
	if mErr != nil {
		return nil, fmt.Errorf("midtrans cancel: %w", mErr)
	}
	return &Response{
		IsSuccess:     res.StatusCode == "200",
		Kind:          models.TransactionKindVoid,
		Amount:        info.Amount,
		Currency:      info.Currency,
		TransactionID: info.Token,
		Error:         errorFromStatus(res.StatusCode, res.StatusMessage),
		RawResponse:   rawFromStatus(res.StatusCode, res.StatusMessage, res.TransactionID, res.TransactionStatus),
	}, nil
}

func (m *Midtrans) ConfirmPayment(info PaymentInfo) (*Response, error) {
	res, mErr := m.client.CheckTransaction(info.Token)
	if mErr != nil {
		return nil, fmt.Errorf("midtrans status: %w", mErr)
	}

	kind, success := mapTransactionStatus(res.TransactionStatus)
	amount := info.Amount
	if res.GrossAmount != "" {
		if parsed, err := decimal.NewFromString(res.GrossAmount); err == nil {
			amount = parsed
		}
	}
	if success && kind == models.TransactionKindCapture {
		kind = models.TransactionKindConfirm
	}
	return &Response{
		IsSuccess:      success,
		Kind:           kind,
		Amount:         amount,
		Currency:       info.Currency,
		TransactionID:  info.Token,
		Error:          errorFromStatus(res.StatusCode, res.StatusMessage),
		RawResponse:    rawFromStatus(res.StatusCode, res.StatusMessage, res.TransactionID, res.TransactionStatus),
		ActionRequired: res.TransactionStatus == "pending",
	}, nil
}
