package models

import (
	"time"
)

const (
	WebhookStatusProcessing = "processing"
	WebhookStatusCompleted  = "completed"
	WebhookStatusRetrying   = "retrying"
	WebhookStatusFailed     = "failed"
)

// WebhookEvent stores payment gateway notifications with deduplication
// metadata for idempotent processing. GatewayEventID carries a unique index
// as a second line of defense beyond the application-level check.
type WebhookEvent struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	GatewayEventID     string     `gorm:"type:varchar(191);not null;uniqueIndex" json:"gateway_event_id"`
	EventType          string     `gorm:"type:varchar(100);not null;index" json:"event_type"`
	PayloadJSON        string     `gorm:"type:longtext;not null" json:"payload_json"`
	Status             string     `gorm:"type:varchar(20);not null;default:'processing';index" json:"status"`
	ProcessingAttempts int        `gorm:"default:0" json:"processing_attempts"`
	MaxRetries         int        `gorm:"default:3" json:"max_retries"`
	NextRetryAt        *time.Time `gorm:"type:timestamp;default:null;index" json:"next_retry_at,omitempty"`
	SessionID          *uint      `gorm:"default:null" json:"session_id,omitempty"`
	OrderID            *uint      `gorm:"default:null;index" json:"order_id,omitempty"`
	LastError          string     `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt          time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminal reports whether the event has reached a final state.
func (e *WebhookEvent) IsTerminal() bool {
	return e.Status == WebhookStatusCompleted || e.Status == WebhookStatusFailed
}
