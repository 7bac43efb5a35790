package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yeremiapane/payment-hub/models"
)

// recordingManager captures dispatched action requests for assertions.
type recordingManager struct {
	active      bool
	dispatchErr error
	deliveries  []TransactionActionData
}

func (m *recordingManager) IsEventActiveForAnyPlugin(eventName, channelSlug string) bool {
	return m.active
}

func (m *recordingManager) TransactionChargeRequested(data TransactionActionData, channelSlug string) error {
	m.deliveries = append(m.deliveries, data)
	return m.dispatchErr
}

func (m *recordingManager) TransactionRefundRequested(data TransactionActionData, channelSlug string) error {
	m.deliveries = append(m.deliveries, data)
	return m.dispatchErr
}

func (m *recordingManager) TransactionCancelationRequested(data TransactionActionData, channelSlug string) error {
	m.deliveries = append(m.deliveries, data)
	return m.dispatchErr
}

func createTestItem(t *testing.T, db *gorm.DB, svc *TransactionActionService, checkoutID *uint) *models.TransactionItem {
	t.Helper()
	item := &models.TransactionItem{
		Name:       "Test transaction",
		Currency:   "USD",
		CheckoutID: checkoutID,
	}
	require.NoError(t, svc.CreateTransactionItem(item))
	return item
}

func authorizeItem(t *testing.T, svc *TransactionActionService, itemID uint, amount string) {
	t.Helper()
	_, applied, err := svc.RecordEvent(EventReport{
		TransactionItemID: itemID,
		Type:              models.EventAuthorizationSuccess,
		Amount:            d(amount),
		IdempotencyKey:    "auth-" + amount,
	})
	require.NoError(t, err)
	require.True(t, applied)
}

func TestChargeRequestLifecycle(t *testing.T) {
	db := setupTestDB(t)
	manager := &recordingManager{active: true}
	svc := NewTransactionActionService(db, manager)

	item := createTestItem(t, db, svc, nil)
	authorizeItem(t, svc, item.ID, "50.00")

	got, err := svc.GetTransactionItem(item.ID)
	require.NoError(t, err)
	assert.True(t, got.AuthorizedAmount.Equal(d("50.00")))

	amount := d("30.00")
	event, err := svc.RequestCharge(item.ID, &amount, "default")
	require.NoError(t, err)
	assert.Equal(t, models.EventChargeRequest, event.Type)
	require.Len(t, manager.deliveries, 1)
	assert.Equal(t, "charge", manager.deliveries[0].ActionType)
	assert.True(t, manager.deliveries[0].ActionValue.Equal(amount))

	_, applied, err := svc.RecordEvent(EventReport{
		TransactionItemID: item.ID,
		Type:              models.EventChargeSuccess,
		Amount:            d("30.00"),
		IdempotencyKey:    "charge-1",
	})
	require.NoError(t, err)
	require.True(t, applied)

	got, err = svc.GetTransactionItem(item.ID)
	require.NoError(t, err)
	assert.True(t, got.AuthorizedAmount.Equal(d("20.00")), "charge consumes the hold")
	assert.True(t, got.ChargedAmount.Equal(d("30.00")))
}

func TestRecordEventIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTransactionActionService(db, &recordingManager{active: true})

	item := createTestItem(t, db, svc, nil)
	authorizeItem(t, svc, item.ID, "50.00")

	report := EventReport{
		TransactionItemID: item.ID,
		Type:              models.EventChargeSuccess,
		Amount:            d("30.00"),
		IdempotencyKey:    "psp-evt-42",
	}

	first, applied, err := svc.RecordEvent(report)
	require.NoError(t, err)
	require.True(t, applied)

	second, applied, err := svc.RecordEvent(report)
	require.NoError(t, err)
	assert.False(t, applied, "a replayed key must not re-apply")
	assert.Equal(t, first.ID, second.ID)

	got, err := svc.GetTransactionItem(item.ID)
	require.NoError(t, err)
	assert.True(t, got.ChargedAmount.Equal(d("30.00")), "totals must count the event once")

	var count int64
	require.NoError(t, db.Model(&models.TransactionEvent{}).
		Where("transaction_item_id = ? AND idempotency_key = ?", item.ID, "psp-evt-42").
		Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRequestWithoutHandlerFailsImmediately(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTransactionActionService(db, &recordingManager{active: false})

	item := createTestItem(t, db, svc, nil)
	authorizeItem(t, svc, item.ID, "50.00")

	amount := d("30.00")
	_, err := svc.RequestCharge(item.ID, &amount, "default")
	require.Error(t, err)
	assert.Equal(t, ErrCodeMissingActionWebhook, ErrorCode(err))

	got, err := svc.GetTransactionItem(item.ID)
	require.NoError(t, err)
	var types []models.TransactionEventType
	for _, e := range got.Events {
		types = append(types, e.Type)
	}
	assert.Contains(t, types, models.EventChargeRequest, "the request must stay on record")
	assert.Contains(t, types, models.EventChargeFailure, "the failure must be recorded, not silent")
}

func TestRequestExceedingAvailableRejected(t *testing.T) {
	db := setupTestDB(t)
	manager := &recordingManager{active: true}
	svc := NewTransactionActionService(db, manager)

	item := createTestItem(t, db, svc, nil)
	authorizeItem(t, svc, item.ID, "50.00")

	amount := d("80.00")
	_, err := svc.RequestCharge(item.ID, &amount, "default")
	require.Error(t, err)
	assert.Equal(t, ErrCodeAmountGreaterThanAvailable, ErrorCode(err))
	assert.Empty(t, manager.deliveries, "nothing may be dispatched for a rejected request")

	got, err := svc.GetTransactionItem(item.ID)
	require.NoError(t, err)
	assert.Len(t, got.Events, 1, "only the authorization must be on record")
}

func TestGrantedRefundLifecycle(t *testing.T) {
	db := setupTestDB(t)
	manager := &recordingManager{active: true}
	svc := NewTransactionActionService(db, manager)

	order := models.Order{}
	require.NoError(t, db.Create(&order).Error)

	item := createTestItem(t, db, svc, nil)
	item.OrderID = &order.ID
	require.NoError(t, db.Save(item).Error)
	authorizeItem(t, svc, item.ID, "100.00")
	_, _, err := svc.RecordEvent(EventReport{
		TransactionItemID: item.ID,
		Type:              models.EventChargeSuccess,
		Amount:            d("100.00"),
		IdempotencyKey:    "charge-1",
	})
	require.NoError(t, err)

	granted := models.OrderGrantedRefund{
		OrderID:  order.ID,
		Amount:   d("25.00"),
		Currency: "USD",
		Reason:   "damaged item",
		Status:   models.GrantedRefundStatusNone,
	}
	require.NoError(t, db.Create(&granted).Error)

	event, err := svc.RequestRefund(item.ID, nil, &granted.ID, nil, "default")
	require.NoError(t, err)
	assert.True(t, event.Amount.Equal(d("25.00")), "the grant fixes the refund amount")

	require.NoError(t, db.First(&granted, granted.ID).Error)
	assert.Equal(t, models.GrantedRefundStatusPending, granted.Status)
	require.NotNil(t, granted.TransactionItemID)
	assert.Equal(t, item.ID, *granted.TransactionItemID)

	// A second request against the same grant must be rejected.
	_, err = svc.RequestRefund(item.ID, nil, &granted.ID, nil, "default")
	require.Error(t, err)
	assert.Equal(t, ErrCodeRefundAlreadyProcessed, ErrorCode(err))

	_, _, err = svc.RecordEvent(EventReport{
		TransactionItemID: item.ID,
		Type:              models.EventRefundSuccess,
		Amount:            d("25.00"),
		IdempotencyKey:    "refund-1",
	})
	require.NoError(t, err)

	require.NoError(t, db.First(&granted, granted.ID).Error)
	assert.Equal(t, models.GrantedRefundStatusSuccess, granted.Status)

	got, err := svc.GetTransactionItem(item.ID)
	require.NoError(t, err)
	assert.True(t, got.RefundedAmount.Equal(d("25.00")))
	assert.True(t, got.AvailableCharged().Equal(d("75.00")))
}

func TestGrantedRefundExceedingChargedRejected(t *testing.T) {
	db := setupTestDB(t)
	manager := &recordingManager{active: true}
	svc := NewTransactionActionService(db, manager)

	order := models.Order{}
	require.NoError(t, db.Create(&order).Error)

	item := createTestItem(t, db, svc, nil)
	authorizeItem(t, svc, item.ID, "20.00")
	_, _, err := svc.RecordEvent(EventReport{
		TransactionItemID: item.ID,
		Type:              models.EventChargeSuccess,
		Amount:            d("20.00"),
		IdempotencyKey:    "charge-1",
	})
	require.NoError(t, err)

	granted := models.OrderGrantedRefund{
		OrderID:  order.ID,
		Amount:   d("25.00"),
		Currency: "USD",
		Status:   models.GrantedRefundStatusNone,
	}
	require.NoError(t, db.Create(&granted).Error)

	_, err = svc.RequestRefund(item.ID, nil, &granted.ID, nil, "default")
	require.Error(t, err)
	assert.Equal(t, ErrCodeAmountGreaterThanAvailable, ErrorCode(err))
	assert.Empty(t, manager.deliveries)

	var count int64
	require.NoError(t, db.Model(&models.TransactionEvent{}).
		Where("transaction_item_id = ? AND type = ?", item.ID, models.EventRefundRequest).
		Count(&count).Error)
	assert.Zero(t, count, "a rejected grant must not leave a request event")

	require.NoError(t, db.First(&granted, granted.ID).Error)
	assert.Equal(t, models.GrantedRefundStatusNone, granted.Status)
	assert.Nil(t, granted.TransactionItemID)
}

func TestFailedGrantedRefundCanBeRequestedAgain(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTransactionActionService(db, &recordingManager{active: true})

	order := models.Order{}
	require.NoError(t, db.Create(&order).Error)

	item := createTestItem(t, db, svc, nil)
	authorizeItem(t, svc, item.ID, "100.00")
	_, _, err := svc.RecordEvent(EventReport{
		TransactionItemID: item.ID,
		Type:              models.EventChargeSuccess,
		Amount:            d("100.00"),
		IdempotencyKey:    "charge-1",
	})
	require.NoError(t, err)

	// A previous refund attempt against this grant was reported failed.
	granted := models.OrderGrantedRefund{
		OrderID:  order.ID,
		Amount:   d("25.00"),
		Currency: "USD",
		Status:   models.GrantedRefundStatusFailure,
	}
	require.NoError(t, db.Create(&granted).Error)

	event, err := svc.RequestRefund(item.ID, nil, &granted.ID, nil, "default")
	require.NoError(t, err)
	assert.True(t, event.Amount.Equal(d("25.00")))

	require.NoError(t, db.First(&granted, granted.ID).Error)
	assert.Equal(t, models.GrantedRefundStatusPending, granted.Status)
}

func TestGrantedRefundRevertsWhenNoHandler(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTransactionActionService(db, &recordingManager{active: false})

	order := models.Order{}
	require.NoError(t, db.Create(&order).Error)

	item := createTestItem(t, db, svc, nil)
	authorizeItem(t, svc, item.ID, "100.00")
	_, _, err := svc.RecordEvent(EventReport{
		TransactionItemID: item.ID,
		Type:              models.EventChargeSuccess,
		Amount:            d("100.00"),
		IdempotencyKey:    "charge-1",
	})
	require.NoError(t, err)

	granted := models.OrderGrantedRefund{
		OrderID:  order.ID,
		Amount:   d("25.00"),
		Currency: "USD",
		Status:   models.GrantedRefundStatusNone,
	}
	require.NoError(t, db.Create(&granted).Error)

	_, err = svc.RequestRefund(item.ID, nil, &granted.ID, nil, "default")
	require.Error(t, err)
	assert.Equal(t, ErrCodeMissingActionWebhook, ErrorCode(err))

	require.NoError(t, db.First(&granted, granted.ID).Error)
	assert.Equal(t, models.GrantedRefundStatusNone, granted.Status,
		"the grant must be requestable again once a handler exists")
}

func TestConservationGuards(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTransactionActionService(db, &recordingManager{active: true})

	item := createTestItem(t, db, svc, nil)
	authorizeItem(t, svc, item.ID, "50.00")
	_, _, err := svc.RecordEvent(EventReport{
		TransactionItemID: item.ID,
		Type:              models.EventChargeSuccess,
		Amount:            d("30.00"),
		IdempotencyKey:    "charge-1",
	})
	require.NoError(t, err)

	_, _, err = svc.RecordEvent(EventReport{
		TransactionItemID: item.ID,
		Type:              models.EventRefundSuccess,
		Amount:            d("40.00"),
		IdempotencyKey:    "refund-over",
	})
	require.Error(t, err)
	assert.Equal(t, ErrCodeExceedsAvailable, ErrorCode(err))

	_, _, err = svc.RecordEvent(EventReport{
		TransactionItemID: item.ID,
		Type:              models.EventCancelSuccess,
		Amount:            d("30.00"),
		IdempotencyKey:    "cancel-over",
	})
	require.Error(t, err)
	assert.Equal(t, ErrCodeExceedsAvailable, ErrorCode(err))

	got, err := svc.GetTransactionItem(item.ID)
	require.NoError(t, err)
	assert.True(t, got.ChargedAmount.Equal(d("30.00")))
	assert.True(t, got.RefundedAmount.IsZero())
	assert.True(t, got.CanceledAmount.IsZero())
}

func TestRecordEventByPSPReference(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTransactionActionService(db, &recordingManager{active: true})

	item := createTestItem(t, db, svc, nil)

	_, applied, err := svc.RecordEvent(EventReport{
		PSPReference:   item.PSPReference,
		Type:           models.EventAuthorizationSuccess,
		Amount:         d("10.00"),
		IdempotencyKey: "by-psp-ref",
	})
	require.NoError(t, err)
	assert.True(t, applied)

	got, err := svc.GetTransactionItem(item.ID)
	require.NoError(t, err)
	assert.True(t, got.AuthorizedAmount.Equal(d("10.00")))
}

func TestCheckoutHoldStatusRecalculated(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTransactionActionService(db, &recordingManager{active: true})

	checkout := models.Checkout{
		ChannelSlug: "default",
		Currency:    "USD",
		Total:       d("100.00"),
	}
	require.NoError(t, db.Create(&checkout).Error)

	item := createTestItem(t, db, svc, &checkout.ID)
	authorizeItem(t, svc, item.ID, "40.00")

	require.NoError(t, db.First(&checkout, checkout.ID).Error)
	assert.Equal(t, models.HoldStatusPartial, checkout.AuthorizeStatus)
	assert.Equal(t, models.HoldStatusNone, checkout.ChargeStatus)
	assert.True(t, checkout.AutomaticallyRefundable)

	authorizeItem(t, svc, item.ID, "60.00")
	require.NoError(t, db.First(&checkout, checkout.ID).Error)
	assert.Equal(t, models.HoldStatusFull, checkout.AuthorizeStatus)

	_, _, err := svc.RecordEvent(EventReport{
		TransactionItemID: item.ID,
		Type:              models.EventChargeFailure,
		Amount:            d("100.00"),
		IdempotencyKey:    "charge-fail",
	})
	require.NoError(t, err)

	require.NoError(t, db.First(&checkout, checkout.ID).Error)
	assert.False(t, checkout.AutomaticallyRefundable,
		"a trailing failure event blocks automatic release")
}
