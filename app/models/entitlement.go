package models

import (
	"time"
)

// Entitlement is a durable grant permitting a client to download a photo.
// PhotoID nil denotes a pool entitlement usable against any photo of the
// session. Unlimited replaces the old "remaining >= 999999" sentinel with an
// explicit discriminator.
type Entitlement struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	SessionID uint           `gorm:"not null;index:idx_entitlements_session_client,priority:1" json:"session_id"`
	Session   GallerySession `gorm:"foreignKey:SessionID" json:"-"`
	ClientKey string         `gorm:"type:varchar(64);not null;index:idx_entitlements_session_client,priority:2" json:"client_key"`
	PhotoID   *uint          `gorm:"default:null;index" json:"photo_id,omitempty"`
	Remaining int            `gorm:"default:0" json:"remaining"`
	Unlimited bool           `gorm:"default:false" json:"unlimited"`
	OrderID   *uint          `gorm:"default:null;index" json:"order_id,omitempty"`
	ExpiresAt *time.Time     `gorm:"type:timestamp;default:null" json:"expires_at,omitempty"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsFreeGrant reports whether the entitlement came from the free tier rather
// than a paid order.
func (e *Entitlement) IsFreeGrant() bool {
	return e.OrderID == nil
}

// IsLive reports whether the entitlement can still authorize a download of
// the given photo at the given time.
func (e *Entitlement) IsLive(photoID uint, now time.Time) bool {
	if e.ExpiresAt != nil && now.After(*e.ExpiresAt) {
		return false
	}
	if e.PhotoID != nil && *e.PhotoID != photoID {
		return false
	}
	return e.Unlimited || e.Remaining > 0
}
