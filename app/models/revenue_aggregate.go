package models

import (
	"time"
)

// RevenueAggregate accumulates completed order revenue per session. Updated
// inside the same transaction that completes the order; the Redis counters in
// internal/pkg/metrics/counter only buffer download counts, never money.
type RevenueAggregate struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	SessionID       uint      `gorm:"uniqueIndex;not null" json:"session_id"`
	TotalCents      int64     `gorm:"default:0" json:"total_cents"`
	Currency        string    `gorm:"type:varchar(8);not null;default:'EUR'" json:"currency"`
	CompletedOrders int64     `gorm:"default:0" json:"completed_orders"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
