package models

import (
	"time"
)

const (
	SuspicionRateLimit = "rate_limit_exceeded"
	SuspicionBotAgent  = "bot_user_agent"
)

// SuspiciousActivity logs abuse-guard findings. Rows are advisory; they
// never gate a download on their own.
type SuspiciousActivity struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID uint      `gorm:"not null;index" json:"session_id"`
	ClientIP  string    `gorm:"type:varchar(45);not null;index" json:"client_ip"`
	Kind      string    `gorm:"type:varchar(50);not null" json:"kind"`
	UserAgent string    `gorm:"type:varchar(255)" json:"user_agent"`
	Detail    string    `gorm:"type:text" json:"detail"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
