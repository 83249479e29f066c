package models

import (
	"time"
)

// DownloadToken is a short-lived, single-use secret authorizing retrieval of
// one photo's bytes. Consumption is an atomic conditional update on IsUsed.
type DownloadToken struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Value         string     `gorm:"type:varchar(191);uniqueIndex;not null" json:"-"`
	SessionID     uint       `gorm:"not null;index" json:"session_id"`
	PhotoID       uint       `gorm:"not null;index" json:"photo_id"`
	ClientKey     string     `gorm:"type:varchar(64);not null;index" json:"client_key"`
	EntitlementID uint       `gorm:"not null" json:"entitlement_id"`
	IsUsed        bool       `gorm:"default:false" json:"is_used"`
	MaxUses       int        `gorm:"default:1" json:"max_uses"`
	ExpiresAt     time.Time  `gorm:"type:timestamp;not null" json:"expires_at"`
	UsedAt        *time.Time `gorm:"type:timestamp;default:null" json:"used_at,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// IsExpired reports whether the token has passed its expiry.
func (t *DownloadToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
