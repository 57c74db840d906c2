package models

import "time"

// ProcessedWebhookEvent is the idempotency ledger. One row per provider
// event id, ever; the unique index is what turns "insert" into a
// distributed admission check across service instances. Rows are written
// before the handler runs and are never updated or deleted here.
type ProcessedWebhookEvent struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	EventID     string    `gorm:"type:varchar(191);not null;uniqueIndex:ux_processed_webhook_events_event_id" json:"event_id"`
	EventType   string    `gorm:"type:varchar(100);not null;index" json:"event_type"`
	ProcessedAt time.Time `gorm:"type:timestamp;not null" json:"processed_at"`
}
