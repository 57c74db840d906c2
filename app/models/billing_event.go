package models

import (
	"encoding/json"
	"time"
)

// Billing event type tags. These are internal audit tags, not provider
// event types.
const (
	BillingEventCheckoutCompleted         = "checkout_completed"
	BillingEventTrialPeriodUpdated        = "trial_period_updated"
	BillingEventPaymentSucceeded          = "payment_succeeded"
	BillingEventSubscriptionExtended      = "subscription_extended"
	BillingEventPaymentFailed             = "payment_failed"
	BillingEventSubscriptionCanceled      = "subscription_canceled"
	BillingEventSetupIntentRequiresAction = "setup_intent_requires_action"
	BillingEventPaymentMethodSetupFailed  = "payment_method_setup_failed"
	BillingEventChargeDisputeCreated      = "charge_dispute_created"
)

// BillingEvent is an append-only audit record. It doubles as a read
// source: the extension debounce queries recent subscription_extended
// rows, so rows must never be mutated after insert.
type BillingEvent struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index:idx_billing_events_user_type_time,priority:1" json:"user_id"`
	EventType   string    `gorm:"type:varchar(100);not null;index:idx_billing_events_user_type_time,priority:2" json:"event_type"`
	Timestamp   time.Time `gorm:"type:timestamp;not null;index:idx_billing_events_user_type_time,priority:3" json:"timestamp"`
	DetailsJSON string    `gorm:"type:text" json:"details_json"`
}

// NewBillingEvent builds an audit record with the details map serialized
// to JSON. Unserializable values are dropped rather than failing the
// append.
func NewBillingEvent(userID uint, eventType string, at time.Time, details map[string]interface{}) *BillingEvent {
	detailsJSON := ""
	if len(details) > 0 {
		if b, err := json.Marshal(details); err == nil {
			detailsJSON = string(b)
		}
	}
	return &BillingEvent{
		UserID:      userID,
		EventType:   eventType,
		Timestamp:   at,
		DetailsJSON: detailsJSON,
	}
}

// Details deserializes the stored details map.
func (e *BillingEvent) Details() map[string]interface{} {
	if e.DetailsJSON == "" {
		return map[string]interface{}{}
	}
	out := map[string]interface{}{}
	if err := json.Unmarshal([]byte(e.DetailsJSON), &out); err != nil {
		return map[string]interface{}{}
	}
	return out
}
