package models

import (
	"time"
)

// DownloadHistory records every successful token consumption for auditing.
type DownloadHistory struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	SessionID     uint      `gorm:"not null;index" json:"session_id"`
	PhotoID       uint      `gorm:"not null;index" json:"photo_id"`
	ClientKey     string    `gorm:"type:varchar(64);not null;index" json:"client_key"`
	EntitlementID uint      `gorm:"not null" json:"entitlement_id"`
	TokenID       uint      `gorm:"not null" json:"token_id"`
	ClientIP      string    `gorm:"type:varchar(45)" json:"client_ip"`
	UserAgent     string    `gorm:"type:varchar(255)" json:"user_agent"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
