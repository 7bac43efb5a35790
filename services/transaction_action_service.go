package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yeremiapane/payment-hub/models"
	"github.com/yeremiapane/payment-hub/utils"
)

// TransactionActionService handles charge/refund/cancel requests against
// transaction items held by external apps, and reconciles the result
// events those apps report back. Request events are persisted before any
// outward dispatch so a crash leaves a durable, auditable record instead
// of a lost intent.
type TransactionActionService struct {
	db      *gorm.DB
	manager PluginManager
}

func NewTransactionActionService(db *gorm.DB, manager PluginManager) *TransactionActionService {
	return &TransactionActionService{
		db:      db,
		manager: manager,
	}
}

// CreateTransactionItem registers a new externally-held transaction.
func (s *TransactionActionService) CreateTransactionItem(item *models.TransactionItem) error {
	if item.PSPReference == "" {
		item.PSPReference = uuid.New().String()
	}
	item.AuthorizedAmount = decimal.Zero
	item.ChargedAmount = decimal.Zero
	item.RefundedAmount = decimal.Zero
	item.CanceledAmount = decimal.Zero
	return s.db.Create(item).Error
}

// GetTransactionItem loads a transaction item with its event log.
func (s *TransactionActionService) GetTransactionItem(itemID uint) (*models.TransactionItem, error) {
	var item models.TransactionItem
	if err := s.db.Preload("Events").First(&item, itemID).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// RequestCharge asks the owning app to charge part of the authorized
// amount. The default amount is the remaining authorization.
func (s *TransactionActionService) RequestCharge(itemID uint, amount *decimal.Decimal, channelSlug string) (*models.TransactionEvent, error) {
	return s.request(requestParams{
		itemID:      itemID,
		amount:      amount,
		channelSlug: channelSlug,
		actionType:  "charge",
		requestType: models.EventChargeRequest,
		failureType: models.EventChargeFailure,
		syncEvent:   SyncEventTransactionChargeRequested,
		available: func(item *models.TransactionItem) decimal.Decimal {
			return item.AuthorizedAmount
		},
		dispatch: s.manager.TransactionChargeRequested,
	})
}

// RequestRefund asks the owning app to refund part of the charged
// amount, optionally fulfilling a granted refund.
func (s *TransactionActionService) RequestRefund(itemID uint, amount *decimal.Decimal, grantedRefundID *uint, refundData *models.RefundData, channelSlug string) (*models.TransactionEvent, error) {
	return s.request(requestParams{
		itemID:          itemID,
		amount:          amount,
		grantedRefundID: grantedRefundID,
		refundData:      refundData,
		channelSlug:     channelSlug,
		actionType:      "refund",
		requestType:     models.EventRefundRequest,
		failureType:     models.EventRefundFailure,
		syncEvent:       SyncEventTransactionRefundRequested,
		available: func(item *models.TransactionItem) decimal.Decimal {
			return item.AvailableCharged()
		},
		dispatch: s.manager.TransactionRefundRequested,
	})
}

// RequestCancel asks the owning app to release the authorization hold.
func (s *TransactionActionService) RequestCancel(itemID uint, channelSlug string) (*models.TransactionEvent, error) {
	return s.request(requestParams{
		itemID:      itemID,
		channelSlug: channelSlug,
		actionType:  "cancel",
		requestType: models.EventCancelRequest,
		failureType: models.EventCancelFailure,
		syncEvent:   SyncEventTransactionCancelationRequested,
		available: func(item *models.TransactionItem) decimal.Decimal {
			return item.AuthorizedAmount
		},
		dispatch: s.manager.TransactionCancelationRequested,
	})
}

type requestParams struct {
	itemID          uint
	amount          *decimal.Decimal
	grantedRefundID *uint
	refundData      *models.RefundData
	channelSlug     string
	actionType      string
	requestType     models.TransactionEventType
	failureType     models.TransactionEventType
	syncEvent       string
	available       func(item *models.TransactionItem) decimal.Decimal
	dispatch        func(data TransactionActionData, channelSlug string) error
}

// request runs the shared action-request state machine: validate under
// the row lock, durably record the request event, then check for a
// subscriber and dispatch. A missing subscriber turns the request into
// a failure immediately instead of leaving it stuck pending.
func (s *TransactionActionService) request(p requestParams) (*models.TransactionEvent, error) {
	var item models.TransactionItem
	var event models.TransactionEvent
	var granted *models.OrderGrantedRefund
	var amt decimal.Decimal

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := utils.LockForUpdate(tx).First(&item, p.itemID).Error; err != nil {
			return err
		}

		if p.grantedRefundID != nil {
			granted = &models.OrderGrantedRefund{}
			if err := utils.LockForUpdate(tx).First(granted, *p.grantedRefundID).Error; err != nil {
				return err
			}
			switch granted.Status {
			case models.GrantedRefundStatusPending, models.GrantedRefundStatusSuccess:
				return NewPaymentError(ErrCodeRefundAlreadyProcessed,
					"This granted refund already has a refund in progress or processed.")
			}
			amt = granted.Amount
		} else {
			amt = p.available(&item)
			if p.amount != nil {
				amt = *p.amount
			}
		}

		if amt.LessThanOrEqual(decimal.Zero) {
			return NewPaymentError(ErrCodeInvalidAmount, "Amount should be a positive number.")
		}
		if amt.GreaterThan(p.available(&item)) {
			return NewPaymentError(ErrCodeAmountGreaterThanAvailable,
				fmt.Sprintf("Cannot %s more than the available amount.", p.actionType))
		}

		event = models.TransactionEvent{
			TransactionItemID: item.ID,
			Type:              p.requestType,
			Amount:            amt,
			Currency:          item.Currency,
			IdempotencyKey:    uuid.New().String(),
			PSPReference:      item.PSPReference,
		}
		if err := tx.Create(&event).Error; err != nil {
			return err
		}

		if granted != nil {
			granted.Status = models.GrantedRefundStatusPending
			granted.TransactionItemID = &item.ID
			if err := tx.Save(granted).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The request is durably recorded; eligibility is decided after.
	if !s.manager.IsEventActiveForAnyPlugin(p.syncEvent, p.channelSlug) {
		s.failRequest(&item, &event, p.failureType, granted)
		return &event, NewPaymentError(ErrCodeMissingActionWebhook,
			"No app or plugin is configured to handle payment action requests.")
	}

	data := TransactionActionData{
		Transaction:   &item,
		Event:         &event,
		ActionType:    p.actionType,
		ActionValue:   amt,
		GrantedRefund: granted,
		RefundData:    p.refundData,
	}
	if err := p.dispatch(data, p.channelSlug); err != nil {
		utils.ErrorLogger.Printf("Failed to dispatch %s request for transaction %d: %v",
			p.actionType, item.ID, err)
		return &event, fmt.Errorf("failed to dispatch %s request: %w", p.actionType, err)
	}
	utils.InfoLogger.Printf("Dispatched %s request for transaction %d, amount %s %s",
		p.actionType, item.ID, amt, item.Currency)
	return &event, nil
}

// failRequest records the failure of a request no app can handle. A
// linked granted refund goes back to none so it can be re-requested
// once an app is configured.
func (s *TransactionActionService) failRequest(item *models.TransactionItem, requestEvent *models.TransactionEvent, failureType models.TransactionEventType, granted *models.OrderGrantedRefund) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		failure := models.TransactionEvent{
			TransactionItemID: item.ID,
			Type:              failureType,
			Amount:            requestEvent.Amount,
			Currency:          requestEvent.Currency,
			IdempotencyKey:    requestEvent.IdempotencyKey + "-failure",
			PSPReference:      item.PSPReference,
			Message:           "No app or plugin is configured to handle payment action requests.",
		}
		if err := tx.Create(&failure).Error; err != nil {
			return err
		}
		if granted != nil {
			granted.Status = models.GrantedRefundStatusNone
			if err := tx.Save(granted).Error; err != nil {
				return err
			}
		}
		if item.CheckoutID != nil {
			return s.recalculateCheckout(tx, *item.CheckoutID)
		}
		return nil
	})
	if err != nil {
		utils.ErrorLogger.Printf("Failed to record missing-handler failure for transaction %d: %v",
			item.ID, err)
	}
}

// EventReport is an inbound result event, typically delivered by an
// app or gateway webhook.
type EventReport struct {
	TransactionItemID uint
	PSPReference      string
	Type              models.TransactionEventType
	Amount            decimal.Decimal
	IdempotencyKey    string
	Message           string
}

// RecordEvent applies a reported event to the ledger exactly once. A
// previously seen idempotency key returns the stored event without
// touching any totals. The boolean result reports whether the event
// was newly applied.
func (s *TransactionActionService) RecordEvent(report EventReport) (*models.TransactionEvent, bool, error) {
	var event models.TransactionEvent
	applied := false

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var item models.TransactionItem
		query := utils.LockForUpdate(tx)
		var err error
		if report.TransactionItemID != 0 {
			err = query.First(&item, report.TransactionItemID).Error
		} else {
			err = query.Where("psp_reference = ?", report.PSPReference).First(&item).Error
		}
		if err != nil {
			return err
		}

		if report.IdempotencyKey != "" {
			var existing models.TransactionEvent
			err := tx.Where("transaction_item_id = ? AND idempotency_key = ?", item.ID, report.IdempotencyKey).
				First(&existing).Error
			if err == nil {
				event = existing
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		} else {
			report.IdempotencyKey = uuid.New().String()
		}

		if err := checkConservation(&item, report); err != nil {
			return err
		}

		event = models.TransactionEvent{
			TransactionItemID: item.ID,
			Type:              report.Type,
			Amount:            report.Amount,
			Currency:          item.Currency,
			IdempotencyKey:    report.IdempotencyKey,
			PSPReference:      item.PSPReference,
			Message:           report.Message,
		}
		if err := tx.Create(&event).Error; err != nil {
			return err
		}
		applied = true

		if err := s.advanceGrantedRefund(tx, &item, report.Type); err != nil {
			return err
		}
		if err := s.recalculateItem(tx, &item); err != nil {
			return err
		}
		if item.CheckoutID != nil {
			return s.recalculateCheckout(tx, *item.CheckoutID)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if applied {
		utils.InfoLogger.Printf("Applied %s event to transaction %d", event.Type, event.TransactionItemID)
	}
	return &event, applied, nil
}

// checkConservation rejects result events that would drive a running
// total negative. The request-side guards normally prevent this; the
// check holds the line against misbehaving reporters.
func checkConservation(item *models.TransactionItem, report EventReport) error {
	switch report.Type {
	case models.EventRefundSuccess:
		if report.Amount.GreaterThan(item.AvailableCharged()) {
			return NewPaymentError(ErrCodeExceedsAvailable, "Cannot refund more than the charged amount.")
		}
	case models.EventCancelSuccess:
		if report.Amount.GreaterThan(item.AuthorizedAmount) {
			return NewPaymentError(ErrCodeExceedsAvailable, "Cannot cancel more than the authorized amount.")
		}
	}
	return nil
}

// advanceGrantedRefund moves a pending granted refund to its terminal
// state when the refund result arrives.
func (s *TransactionActionService) advanceGrantedRefund(tx *gorm.DB, item *models.TransactionItem, eventType models.TransactionEventType) error {
	var target models.GrantedRefundStatus
	switch eventType {
	case models.EventRefundSuccess:
		target = models.GrantedRefundStatusSuccess
	case models.EventRefundFailure:
		target = models.GrantedRefundStatusFailure
	default:
		return nil
	}

	var granted models.OrderGrantedRefund
	err := utils.LockForUpdate(tx).
		Where("transaction_item_id = ? AND status = ?", item.ID, models.GrantedRefundStatusPending).
		First(&granted).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	granted.Status = target
	return tx.Save(&granted).Error
}

// recalculateItem rebuilds the item's running totals from its full
// event log. Events are never mutated; only their aggregate effect is.
func (s *TransactionActionService) recalculateItem(tx *gorm.DB, item *models.TransactionItem) error {
	var events []models.TransactionEvent
	if err := tx.Where("transaction_item_id = ?", item.ID).Order("id ASC").Find(&events).Error; err != nil {
		return err
	}

	authorizedTotal := decimal.Zero
	charged := decimal.Zero
	refunded := decimal.Zero
	canceled := decimal.Zero
	for _, e := range events {
		switch e.Type {
		case models.EventAuthorizationSuccess:
			authorizedTotal = authorizedTotal.Add(e.Amount)
		case models.EventChargeSuccess:
			charged = charged.Add(e.Amount)
		case models.EventRefundSuccess:
			refunded = refunded.Add(e.Amount)
		case models.EventCancelSuccess:
			canceled = canceled.Add(e.Amount)
		}
	}

	authorized := authorizedTotal.Sub(charged).Sub(canceled)
	if authorized.IsNegative() {
		authorized = decimal.Zero
	}
	item.AuthorizedAmount = authorized
	item.ChargedAmount = charged
	item.RefundedAmount = refunded
	item.CanceledAmount = canceled
	return tx.Save(item).Error
}

// recalculateCheckout refreshes the checkout's hold statuses and the
// automatically-refundable flag from its transaction items.
func (s *TransactionActionService) recalculateCheckout(tx *gorm.DB, checkoutID uint) error {
	var checkout models.Checkout
	if err := tx.First(&checkout, checkoutID).Error; err != nil {
		return err
	}
	var items []models.TransactionItem
	if err := tx.Where("checkout_id = ?", checkoutID).Find(&items).Error; err != nil {
		return err
	}

	authorized := decimal.Zero
	charged := decimal.Zero
	refundable := true
	for i := range items {
		authorized = authorized.Add(items[i].AuthorizedAmount)
		charged = charged.Add(items[i].AvailableCharged())

		last, err := latestEvent(tx, items[i].ID)
		if err != nil {
			return err
		}
		if last != nil {
			switch last.Type {
			case models.EventChargeFailure, models.EventRefundFailure, models.EventCancelFailure:
				refundable = false
			}
		}
	}

	checkout.AuthorizeStatus = holdStatus(authorized, checkout.Total)
	checkout.ChargeStatus = holdStatus(charged, checkout.Total)
	checkout.AutomaticallyRefundable = refundable && (authorized.GreaterThan(decimal.Zero) || charged.GreaterThan(decimal.Zero))
	return tx.Save(&checkout).Error
}

func holdStatus(amount, total decimal.Decimal) models.PaymentHoldStatus {
	switch {
	case amount.LessThanOrEqual(decimal.Zero):
		return models.HoldStatusNone
	case amount.GreaterThanOrEqual(total) && total.GreaterThan(decimal.Zero):
		return models.HoldStatusFull
	default:
		return models.HoldStatusPartial
	}
}

func latestEvent(tx *gorm.DB, itemID uint) (*models.TransactionEvent, error) {
	var event models.TransactionEvent
	err := tx.Where("transaction_item_id = ?", itemID).Order("id DESC").First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}
