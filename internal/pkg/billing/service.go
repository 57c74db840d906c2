package billing

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/MartinHaas/LokalMarkt/internal/pkg/notify"
)

// Provider event types the pipeline routes. Everything else is
// acknowledged and dropped.
const (
	EventCheckoutCompleted         = "checkout.session.completed"
	EventInvoicePaymentSucceeded   = "invoice.payment_succeeded"
	EventInvoicePaymentFailed      = "invoice.payment_failed"
	EventSubscriptionUpdated       = "customer.subscription.updated"
	EventSubscriptionDeleted       = "customer.subscription.deleted"
	EventSetupIntentRequiresAction = "setup_intent.requires_action"
	EventSetupIntentSetupFailed    = "setup_intent.setup_failed"
	EventSetupIntentCanceled       = "setup_intent.canceled"
	EventChargeDisputeCreated      = "charge.dispute.created"
)

// HandlerFunc applies one event type's business effect. Handler errors
// never fail the delivery; the service absorbs them after admission.
type HandlerFunc func(ev *Event) error

// Service is the webhook pipeline: signature verification, idempotency
// admission, routing and the subscription lifecycle handlers.
type Service struct {
	repo      Repository
	directory CustomerDirectory
	notifier  notify.Notifier
	cfg       Config

	routes map[string]HandlerFunc
	now    func() time.Time
}

// NewService wires the pipeline. The clock is injectable for tests.
func NewService(repo Repository, directory CustomerDirectory, notifier notify.Notifier, cfg Config) *Service {
	s := &Service{
		repo:      repo,
		directory: directory,
		notifier:  notifier,
		cfg:       cfg,
		now:       time.Now,
	}

	s.routes = map[string]HandlerFunc{
		EventCheckoutCompleted:         s.handleCheckoutCompleted,
		EventInvoicePaymentSucceeded:   s.handleInvoicePaymentSucceeded,
		EventInvoicePaymentFailed:      s.handleInvoicePaymentFailed,
		EventSubscriptionUpdated:       s.handleSubscriptionUpdated,
		EventSubscriptionDeleted:       s.handleSubscriptionDeleted,
		EventSetupIntentRequiresAction: s.handleSetupIntentRequiresAction,
		EventSetupIntentSetupFailed:    s.handleSetupIntentFailed,
		EventSetupIntentCanceled:       s.handleSetupIntentFailed,
		EventChargeDisputeCreated:      s.handleChargeDisputeCreated,
	}

	return s
}

// NewServiceFromDB builds the production service on the GORM store.
func NewServiceFromDB(db *gorm.DB, notifier notify.Notifier, cfg Config) *Service {
	store := NewStore(db)
	return NewService(store, store, notifier, cfg)
}

// ProcessEvent runs one verified event through admission, routing and
// the matching handler.
//
// The returned error is non-nil only when the dedup record could not be
// written; that is the single case the sender must retry. Handler
// failures are recorded in the Result and acknowledged, because the
// event is already admitted and a redelivery would be rejected as a
// duplicate anyway.
func (s *Service) ProcessEvent(ev *Event) (Result, error) {
	result := Result{EventID: ev.ID, EventType: ev.Type}

	inserted, err := s.repo.InsertProcessedEvent(ev.ID, ev.Type, s.now().UTC())
	if err != nil {
		result.Outcome = OutcomeFailed
		return result, fmt.Errorf("webhook admission failed: %w", err)
	}
	if !inserted {
		log.Infof("[Billing] Duplicate webhook event %s (%s), skipping", ev.ID, ev.Type)
		result.Outcome = OutcomeDuplicate
		return result, nil
	}

	handler, ok := s.routes[ev.Type]
	if !ok {
		log.Infof("[Billing] Ignoring unhandled webhook event type %s (%s)", ev.Type, ev.ID)
		result.Outcome = OutcomeIgnored
		return result, nil
	}

	if err := handler(ev); err != nil {
		log.Errorf("[Billing] Handler for event %s (%s) failed: %v", ev.ID, ev.Type, err)
		result.Outcome = OutcomeFailed
		result.HandlerErr = err
		return result, nil
	}

	log.Infof("[Billing] Processed webhook event %s (%s)", ev.ID, ev.Type)
	result.Outcome = OutcomeProcessed
	return result, nil
}

// BillingHistory returns the newest audit records for a user, for the
// ops endpoint.
func (s *Service) BillingHistory(userID uint, limit int) ([]BillingHistoryEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	events, err := s.repo.ListBillingEvents(userID, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]BillingHistoryEntry, 0, len(events))
	for _, ev := range events {
		entries = append(entries, BillingHistoryEntry{
			ID:        ev.ID,
			EventType: ev.EventType,
			Timestamp: ev.Timestamp.UTC(),
			Details:   ev.Details(),
		})
	}
	return entries, nil
}

// BillingHistoryEntry is one audit record as served by the ops API.
type BillingHistoryEntry struct {
	ID        uint                   `json:"id"`
	EventType string                 `json:"event_type"`
	Timestamp time.Time              `json:"timestamp"`
	Details   map[string]interface{} `json:"details"`
}
