package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yeremiapane/payment-hub/models"
	"github.com/yeremiapane/payment-hub/utils"
)

// FundReleaseService is the periodic sweep that releases funds held by
// abandoned checkouts: authorizations get a cancel request, charges a
// refund request. All request events for a batch are inserted together
// before any dispatch is attempted, and each dispatch failure is logged
// without blocking the rest of the batch.
type FundReleaseService struct {
	db       *gorm.DB
	manager  PluginManager
	TTL      time.Duration
	Interval time.Duration
	stop     chan struct{}
}

func NewFundReleaseService(db *gorm.DB, manager PluginManager, ttl time.Duration) *FundReleaseService {
	return &FundReleaseService{
		db:       db,
		manager:  manager,
		TTL:      ttl,
		Interval: 30 * time.Minute,
		stop:     make(chan struct{}),
	}
}

// Start launches the sweep loop.
func (s *FundReleaseService) Start() {
	go s.loop()
	utils.InfoLogger.Println("Fund release sweeper started")
}

// Stop terminates the sweep loop.
func (s *FundReleaseService) Stop() {
	close(s.stop)
}

func (s *FundReleaseService) loop() {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.ReleaseStaleCheckoutFunds(); err != nil {
				utils.ErrorLogger.Printf("Fund release sweep failed: %v", err)
			}
		case <-s.stop:
			return
		}
	}
}

type pendingRelease struct {
	item        models.TransactionItem
	event       *models.TransactionEvent
	actionType  string
	channelSlug string
}

// ReleaseStaleCheckoutFunds runs one sweep and returns the number of
// request events created.
func (s *FundReleaseService) ReleaseStaleCheckoutFunds() (int, error) {
	cutoff := time.Now().Add(-s.TTL)

	var checkouts []models.Checkout
	err := s.db.
		Where("automatically_refundable = ?", true).
		Where("(authorize_status <> ? OR charge_status <> ?)", models.HoldStatusNone, models.HoldStatusNone).
		Where("last_change_at < ?", cutoff).
		Find(&checkouts).Error
	if err != nil {
		return 0, err
	}

	var events []*models.TransactionEvent
	var releases []pendingRelease
	for _, checkout := range checkouts {
		var items []models.TransactionItem
		err := s.db.
			Where("checkout_id = ? AND order_id IS NULL AND updated_at < ?", checkout.ID, cutoff).
			Find(&items).Error
		if err != nil {
			return 0, err
		}

		for _, item := range items {
			last, err := latestEvent(s.db, item.ID)
			if err != nil {
				return 0, err
			}
			// A transaction already mid-request is excluded so duplicate
			// action requests are never issued.
			if last != nil && last.Type.IsRequest() {
				continue
			}

			if item.AuthorizedAmount.GreaterThan(decimal.Zero) {
				event := releaseEvent(&item, models.EventCancelRequest, item.AuthorizedAmount)
				events = append(events, event)
				releases = append(releases, pendingRelease{item: item, event: event, actionType: "cancel", channelSlug: checkout.ChannelSlug})
			}
			if item.AvailableCharged().GreaterThan(decimal.Zero) {
				event := releaseEvent(&item, models.EventRefundRequest, item.AvailableCharged())
				events = append(events, event)
				releases = append(releases, pendingRelease{item: item, event: event, actionType: "refund", channelSlug: checkout.ChannelSlug})
			}
		}
	}

	if len(events) == 0 {
		return 0, nil
	}

	// Durably record the whole batch before any dispatch.
	if err := s.db.Create(&events).Error; err != nil {
		return 0, err
	}
	utils.InfoLogger.Printf("Fund release sweep recorded %d request events", len(events))

	for _, release := range releases {
		s.dispatch(release)
	}
	return len(events), nil
}

// dispatch attempts delivery of a single release request. Failures are
// logged, never raised: the sweep must not stall on one transaction.
func (s *FundReleaseService) dispatch(release pendingRelease) {
	var syncEvent string
	var deliver func(data TransactionActionData, channelSlug string) error
	switch release.actionType {
	case "cancel":
		syncEvent = SyncEventTransactionCancelationRequested
		deliver = s.manager.TransactionCancelationRequested
	case "refund":
		syncEvent = SyncEventTransactionRefundRequested
		deliver = s.manager.TransactionRefundRequested
	default:
		return
	}

	if !s.manager.IsEventActiveForAnyPlugin(syncEvent, release.channelSlug) {
		utils.ErrorLogger.Printf("No app configured for %s, transaction %d left with a pending request",
			syncEvent, release.item.ID)
		return
	}

	data := TransactionActionData{
		Transaction: &release.item,
		Event:       release.event,
		ActionType:  release.actionType,
		ActionValue: release.event.Amount,
	}
	if err := deliver(data, release.channelSlug); err != nil {
		utils.ErrorLogger.Printf("Failed to dispatch %s for transaction %d: %v",
			release.actionType, release.item.ID, err)
	}
}

func releaseEvent(item *models.TransactionItem, eventType models.TransactionEventType, amount decimal.Decimal) *models.TransactionEvent {
	return &models.TransactionEvent{
		TransactionItemID: item.ID,
		Type:              eventType,
		Amount:            amount,
		Currency:          item.Currency,
		IdempotencyKey:    uuid.New().String(),
		PSPReference:      item.PSPReference,
	}
}
