package services

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yeremiapane/payment-hub/gateways"
	"github.com/yeremiapane/payment-hub/models"
	"github.com/yeremiapane/payment-hub/utils"
)

// PaymentService dispatches gateway operations over the payment ledger.
// Every mutating operation runs the same pipeline: lock the payment
// row, check preconditions, call the adapter, validate the response,
// append an immutable transaction, recompute the aggregate fields.
type PaymentService struct {
	db       *gorm.DB
	registry *gateways.Registry
}

func NewPaymentService(db *gorm.DB, registry *gateways.Registry) *PaymentService {
	return &PaymentService{
		db:       db,
		registry: registry,
	}
}

// operation describes one pipeline run. prepare validates the
// operation-specific preconditions under the row lock and returns the
// normalized payment info handed to the adapter.
type operation struct {
	name          string
	requireActive bool
	manualKind    models.TransactionKind
	failureKind   models.TransactionKind
	prepare       func(tx *gorm.DB, payment *models.Payment) (*gateways.PaymentInfo, error)
	call          func(adapter gateways.Adapter, info gateways.PaymentInfo) (*gateways.Response, error)
}

// CreatePayment records a new payment attempt.
func (s *PaymentService) CreatePayment(payment *models.Payment) error {
	if payment.Total.LessThanOrEqual(decimal.Zero) {
		return NewPaymentError(ErrCodeInvalidAmount, "Amount should be a positive number.")
	}
	if !s.registry.Known(payment.Gateway) {
		return NewPaymentError(ErrCodeGateway, fmt.Sprintf("Unknown payment gateway %q.", payment.Gateway))
	}
	payment.CapturedAmount = decimal.Zero
	payment.ChargeStatus = models.ChargeStatusNotCharged
	payment.IsActive = true
	return s.db.Create(payment).Error
}

// GetPayment loads a payment with its transaction history.
func (s *PaymentService) GetPayment(paymentID uint) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.Preload("Transactions").First(&payment, paymentID).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// Authorize places a hold for the payment's total.
func (s *PaymentService) Authorize(paymentID uint, token string) (*models.Transaction, error) {
	return s.runOperation(paymentID, operation{
		name:          "authorize",
		requireActive: true,
		manualKind:    models.TransactionKindAuth,
		failureKind:   models.TransactionKindAuth,
		prepare: func(tx *gorm.DB, payment *models.Payment) (*gateways.PaymentInfo, error) {
			return &gateways.PaymentInfo{
				PaymentID:  payment.ID,
				Amount:     payment.Total,
				Currency:   payment.Currency,
				Token:      token,
				CustomerID: payment.CustomerID,
			}, nil
		},
		call: func(adapter gateways.Adapter, info gateways.PaymentInfo) (*gateways.Response, error) {
			return adapter.AuthorizePayment(info)
		},
	})
}

// ProcessPayment runs the gateway's default flow for the full total.
func (s *PaymentService) ProcessPayment(paymentID uint, token string) (*models.Transaction, error) {
	return s.runOperation(paymentID, operation{
		name:          "process_payment",
		requireActive: true,
		manualKind:    models.TransactionKindCapture,
		failureKind:   models.TransactionKindCaptureFailed,
		prepare: func(tx *gorm.DB, payment *models.Payment) (*gateways.PaymentInfo, error) {
			return &gateways.PaymentInfo{
				PaymentID:  payment.ID,
				Amount:     payment.Total,
				Currency:   payment.Currency,
				Token:      token,
				CustomerID: payment.CustomerID,
			}, nil
		},
		call: func(adapter gateways.Adapter, info gateways.PaymentInfo) (*gateways.Response, error) {
			return adapter.ProcessPayment(info)
		},
	})
}

// Confirm finalizes a transaction that required an extra confirmation
// step (3DS, asynchronous settlement).
func (s *PaymentService) Confirm(paymentID uint) (*models.Transaction, error) {
	return s.runOperation(paymentID, operation{
		name:          "confirm",
		requireActive: true,
		manualKind:    models.TransactionKindConfirm,
		failureKind:   models.TransactionKindConfirm,
		prepare: func(tx *gorm.DB, payment *models.Payment) (*gateways.PaymentInfo, error) {
			prior, err := lastSuccessfulTransaction(tx, payment.ID,
				models.TransactionKindActionToConfirm, models.TransactionKindPending, models.TransactionKindAuth)
			if err != nil {
				return nil, err
			}
			if prior == nil {
				return nil, NewPaymentError(ErrCodeMissingTransaction,
					"Cannot confirm a payment without a transaction awaiting confirmation.")
			}
			return &gateways.PaymentInfo{
				PaymentID:  payment.ID,
				Amount:     payment.Total,
				Currency:   payment.Currency,
				Token:      prior.Token,
				CustomerID: payment.CustomerID,
			}, nil
		},
		call: func(adapter gateways.Adapter, info gateways.PaymentInfo) (*gateways.Response, error) {
			return adapter.ConfirmPayment(info)
		},
	})
}

// Capture collects part or all of a previously authorized amount.
// The default amount is the payment's outstanding charge amount.
func (s *PaymentService) Capture(paymentID uint, amount *decimal.Decimal) (*models.Transaction, error) {
	return s.runOperation(paymentID, operation{
		name:        "capture",
		manualKind:  models.TransactionKindCapture,
		failureKind: models.TransactionKindCaptureFailed,
		prepare: func(tx *gorm.DB, payment *models.Payment) (*gateways.PaymentInfo, error) {
			authTxn, err := lastSuccessfulTransaction(tx, payment.ID, models.TransactionKindAuth)
			if err != nil {
				return nil, err
			}
			if authTxn == nil && payment.Gateway != gateways.ManualGatewayID {
				return nil, NewPaymentError(ErrCodeMissingTransaction,
					"Cannot capture a payment without a successful authorization.")
			}

			amt := payment.ChargeAmount()
			if amount != nil {
				amt = *amount
			}
			if amt.LessThanOrEqual(decimal.Zero) {
				return nil, NewPaymentError(ErrCodeInvalidAmount, "Amount should be a positive number.")
			}
			if amt.GreaterThan(payment.ChargeAmount()) {
				return nil, NewPaymentError(ErrCodeExceedsAvailable, "Unable to charge more than un-captured amount.")
			}

			info := &gateways.PaymentInfo{
				PaymentID:  payment.ID,
				Amount:     amt,
				Currency:   payment.Currency,
				CustomerID: payment.CustomerID,
			}
			if authTxn != nil {
				info.Token = authTxn.Token
			}
			return info, nil
		},
		call: func(adapter gateways.Adapter, info gateways.PaymentInfo) (*gateways.Response, error) {
			return adapter.CapturePayment(info)
		},
	})
}

// Refund returns part or all of the captured amount. Manual payments
// are marked refunded directly; gateway payments require a successful
// capture or confirm transaction to refund against.
func (s *PaymentService) Refund(paymentID uint, amount *decimal.Decimal) (*models.Transaction, error) {
	return s.runOperation(paymentID, operation{
		name:        "refund",
		manualKind:  models.TransactionKindRefund,
		failureKind: models.TransactionKindRefundFailed,
		prepare: func(tx *gorm.DB, payment *models.Payment) (*gateways.PaymentInfo, error) {
			amt := payment.CapturedAmount
			if amount != nil {
				amt = *amount
			}
			if amt.LessThanOrEqual(decimal.Zero) {
				return nil, NewPaymentError(ErrCodeInvalidAmount, "Amount should be a positive number.")
			}
			if amt.GreaterThan(payment.CapturedAmount) {
				return nil, NewPaymentError(ErrCodeExceedsAvailable, "Cannot refund more than captured.")
			}

			info := &gateways.PaymentInfo{
				PaymentID:  payment.ID,
				Amount:     amt,
				Currency:   payment.Currency,
				CustomerID: payment.CustomerID,
			}
			if payment.Gateway != gateways.ManualGatewayID {
				captureTxn, err := lastSuccessfulTransaction(tx, payment.ID,
					models.TransactionKindCapture, models.TransactionKindConfirm)
				if err != nil {
					return nil, err
				}
				if captureTxn == nil {
					return nil, NewPaymentError(ErrCodeMissingTransaction,
						"Cannot refund a payment without a successful capture.")
				}
				info.Token = captureTxn.Token
			}
			return info, nil
		},
		call: func(adapter gateways.Adapter, info gateways.PaymentInfo) (*gateways.Response, error) {
			return adapter.RefundPayment(info)
		},
	})
}

// Void releases an authorization hold.
func (s *PaymentService) Void(paymentID uint) (*models.Transaction, error) {
	return s.runOperation(paymentID, operation{
		name:        "void",
		manualKind:  models.TransactionKindVoid,
		failureKind: models.TransactionKindVoid,
		prepare: func(tx *gorm.DB, payment *models.Payment) (*gateways.PaymentInfo, error) {
			info := &gateways.PaymentInfo{
				PaymentID:  payment.ID,
				Amount:     payment.Total,
				Currency:   payment.Currency,
				CustomerID: payment.CustomerID,
			}
			if payment.Gateway != gateways.ManualGatewayID {
				authTxn, err := lastSuccessfulTransaction(tx, payment.ID, models.TransactionKindAuth)
				if err != nil {
					return nil, err
				}
				if authTxn == nil {
					return nil, NewPaymentError(ErrCodeMissingTransaction,
						"Cannot void a payment without a successful authorization.")
				}
				info.Token = authTxn.Token
			}
			return info, nil
		},
		call: func(adapter gateways.Adapter, info gateways.PaymentInfo) (*gateways.Response, error) {
			return adapter.VoidPayment(info)
		},
	})
}

// runOperation executes the dispatcher pipeline for one operation.
// Precondition failures roll everything back; a failing gateway call
// still commits a failed transaction for audit before the error is
// raised to the caller.
func (s *PaymentService) runOperation(paymentID uint, op operation) (*models.Transaction, error) {
	var result *models.Transaction
	var raised error

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var payment models.Payment
		if err := utils.LockForUpdate(tx).First(&payment, paymentID).Error; err != nil {
			return err
		}
		if op.requireActive && !payment.IsActive {
			return NewPaymentError(ErrCodePaymentInactive, "This payment is no longer active.")
		}

		info, err := op.prepare(tx, &payment)
		if err != nil {
			return err
		}

		var resp *gateways.Response
		if payment.Gateway == gateways.ManualGatewayID {
			resp = manualResponse(op.manualKind, *info)
		} else {
			adapter, err := s.registry.Resolve(payment.Gateway)
			if err != nil {
				return NewPaymentError(ErrCodeGateway, err.Error())
			}

			resp, err = op.call(adapter, *info)
			if err != nil {
				utils.ErrorLogger.Printf("Gateway %s failed during %s of payment %d: %v",
					payment.Gateway, op.name, payment.ID, err)
				result = s.appendFailedTransaction(tx, &payment, op, *info, err.Error())
				raised = NewPaymentError(ErrCodeGateway, "Unable to process the payment request.")
				return nil
			}
			if err := validateResponse(resp, &payment); err != nil {
				utils.ErrorLogger.Printf("Invalid gateway response during %s of payment %d: %v",
					op.name, payment.ID, err)
				result = s.appendFailedTransaction(tx, &payment, op, *info, "invalid gateway response")
				raised = NewPaymentError(ErrCodeGateway, "Unable to process the payment request.")
				return nil
			}
		}

		txn := transactionFromResponse(&payment, resp, op.failureKind)
		if err := tx.Create(txn).Error; err != nil {
			return err
		}
		result = txn

		if !resp.IsSuccess {
			message := resp.Error
			if message == "" {
				message = "The payment request was refused by the gateway."
			}
			raised = NewPaymentError(ErrCodeGateway, message)
			return nil
		}

		return s.recalculate(tx, &payment)
	})
	if err != nil {
		return nil, err
	}
	if raised != nil {
		utils.InfoLogger.Printf("Payment %d %s failed: %v", paymentID, op.name, raised)
		return result, raised
	}
	utils.InfoLogger.Printf("Payment %d %s recorded transaction %d", paymentID, op.name, result.ID)
	return result, nil
}

// recalculate is the post-process hook keeping the payment's aggregate
// fields consistent with the full transaction history. It runs after
// every transaction creation, tolerating out-of-order confirmations.
func (s *PaymentService) recalculate(tx *gorm.DB, payment *models.Payment) error {
	var txns []models.Transaction
	if err := tx.Where("payment_id = ?", payment.ID).Order("id ASC").Find(&txns).Error; err != nil {
		return err
	}

	captured, status := DeriveChargeStatus(payment.Total, txns)
	payment.CapturedAmount = captured
	payment.ChargeStatus = status
	if status == models.ChargeStatusFullyRefunded || status == models.ChargeStatusCancelled {
		payment.IsActive = false
	}
	return tx.Save(payment).Error
}

func (s *PaymentService) appendFailedTransaction(tx *gorm.DB, payment *models.Payment, op operation, info gateways.PaymentInfo, message string) *models.Transaction {
	txn := &models.Transaction{
		PaymentID: payment.ID,
		Kind:      op.failureKind,
		Amount:    info.Amount,
		Currency:  payment.Currency,
		IsSuccess: false,
		Error:     message,
		Token:     info.Token,
	}
	if err := tx.Create(txn).Error; err != nil {
		utils.ErrorLogger.Printf("Failed to record failed transaction for payment %d: %v", payment.ID, err)
	}
	return txn
}

// validateResponse is the schema check on adapter output. Failures are
// internal GatewayErrors; callers only ever see a generic message.
func validateResponse(resp *gateways.Response, payment *models.Payment) error {
	if resp == nil {
		return &GatewayError{Message: "gateway returned no response"}
	}
	if !models.ValidTransactionKinds[resp.Kind] {
		return &GatewayError{Message: fmt.Sprintf("gateway returned unknown transaction kind %q", resp.Kind)}
	}
	if resp.Currency != "" && resp.Currency != payment.Currency {
		return &GatewayError{Message: fmt.Sprintf("gateway returned currency %s, payment is in %s", resp.Currency, payment.Currency)}
	}
	return nil
}

func transactionFromResponse(payment *models.Payment, resp *gateways.Response, failureKind models.TransactionKind) *models.Transaction {
	kind := resp.Kind
	if !resp.IsSuccess && failureKind != "" {
		kind = failureKind
	}

	var raw []byte
	if resp.RawResponse != nil {
		raw, _ = json.Marshal(resp.RawResponse)
	}
	return &models.Transaction{
		PaymentID:       payment.ID,
		Kind:            kind,
		Amount:          resp.Amount,
		Currency:        payment.Currency,
		IsSuccess:       resp.IsSuccess,
		Error:           resp.Error,
		Token:           resp.TransactionID,
		ActionRequired:  resp.ActionRequired,
		GatewayResponse: raw,
	}
}

func manualResponse(kind models.TransactionKind, info gateways.PaymentInfo) *gateways.Response {
	token := info.Token
	if token == "" {
		token = "manual-" + uuid.New().String()[:8]
	}
	return &gateways.Response{
		IsSuccess:     true,
		Kind:          kind,
		Amount:        info.Amount,
		Currency:      info.Currency,
		TransactionID: token,
	}
}

func lastSuccessfulTransaction(tx *gorm.DB, paymentID uint, kinds ...models.TransactionKind) (*models.Transaction, error) {
	var txn models.Transaction
	err := tx.Where("payment_id = ? AND is_success = ? AND kind IN ?", paymentID, true, kinds).
		Order("id DESC").First(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}
