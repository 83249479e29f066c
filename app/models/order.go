package models

import (
	"time"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
	OrderStatusFailed    = "failed"
)

// Order records a purchase attempt. It is created pending before the gateway
// checkout is requested and only the webhook processor (or a verified
// synchronous confirmation) moves it to completed.
type Order struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	UUID             string         `gorm:"type:varchar(36);uniqueIndex;not null" json:"uuid"`
	SessionID        uint           `gorm:"not null;index" json:"session_id"`
	Session          GallerySession `gorm:"foreignKey:SessionID" json:"-"`
	ClientKey        string         `gorm:"type:varchar(64);not null;index" json:"client_key"`
	AmountCents      int64          `gorm:"not null" json:"amount_cents"`
	Currency         string         `gorm:"type:varchar(8);not null" json:"currency"`
	Mode             PolicyMode     `gorm:"type:varchar(20);not null" json:"mode"`
	Items            []OrderItem    `gorm:"foreignKey:OrderID" json:"items"`
	PaymentReference string         `gorm:"type:varchar(191);default:null;index" json:"payment_reference,omitempty"`
	Status           string         `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	WebhookEventID   *uint          `gorm:"default:null" json:"webhook_event_id,omitempty"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	CompletedAt      *time.Time     `gorm:"type:timestamp;default:null" json:"completed_at,omitempty"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// OrderItem freezes the price of one photo at checkout time. Entitlement
// materialization always works from this snapshot, never from the live
// policy, so a later policy edit cannot drift a paid order.
type OrderItem struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	OrderID    uint      `gorm:"not null;index" json:"order_id"`
	PhotoID    uint      `gorm:"not null;index" json:"photo_id"`
	PriceCents int64     `gorm:"not null" json:"price_cents"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}
