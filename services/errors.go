package services

import (
	"errors"
	"fmt"
)

// Error codes client code is expected to branch on. Messages are for
// humans; codes are the contract.
const (
	ErrCodePaymentInactive            = "payment-inactive"
	ErrCodeInvalidAmount              = "invalid-amount"
	ErrCodeExceedsAvailable           = "exceeds-available"
	ErrCodeMissingTransaction         = "missing-transaction"
	ErrCodeGateway                    = "gateway-error"
	ErrCodeInvalidGatewayResponse     = "invalid-gateway-response"
	ErrCodeAmountGreaterThanAvailable = "AMOUNT_GREATER_THAN_AVAILABLE"
	ErrCodeRefundAlreadyProcessed     = "REFUND_ALREADY_PROCESSED"
	ErrCodeMissingActionWebhook       = "MISSING_TRANSACTION_ACTION_REQUEST_WEBHOOK"
)

// PaymentError is the operator-facing error for operations that are
// illegal in the current state or rejected by the gateway.
type PaymentError struct {
	Code    string
	Message string
}

func (e *PaymentError) Error() string {
	return e.Message
}

func NewPaymentError(code, message string) *PaymentError {
	return &PaymentError{Code: code, Message: message}
}

// GatewayError marks a malformed or invalid gateway response. Its
// detail is logged, never surfaced; callers see a generic message.
type GatewayError struct {
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// ErrorCode extracts the machine-readable code from an error chain.
func ErrorCode(err error) string {
	var pe *PaymentError
	if errors.As(err, &pe) {
		return pe.Code
	}
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ErrCodeInvalidGatewayResponse
	}
	return ""
}
