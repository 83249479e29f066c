package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"gorm.io/gorm"
)

const (
	SessionStatusActive   = "active"
	SessionStatusExpired  = "expired"
	SessionStatusArchived = "archived"
)

// GallerySession is a protected client gallery. Clients gain access with a
// shared access code; only its SHA-256 hash is stored.
type GallerySession struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Slug           string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"slug"`
	OwnerID        uint           `gorm:"not null;index" json:"owner_id"`
	Owner          User           `gorm:"foreignKey:OwnerID" json:"-"`
	Title          string         `gorm:"type:varchar(200);not null" json:"title"`
	AccessCodeHash string         `gorm:"type:varchar(64);not null;index" json:"-"`
	Status         string         `gorm:"type:varchar(20);default:'active';index" json:"status"`
	ExpiresAt      *time.Time     `gorm:"type:timestamp;default:null" json:"expires_at,omitempty"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// HashAccessCode hashes a raw gallery access code for storage and lookup.
func HashAccessCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// IsExpired reports whether the session has passed its expiry at the given time.
func (s *GallerySession) IsExpired(now time.Time) bool {
	return s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}
