package models

import (
	"time"
)

// PolicyMode is the closed set of pricing strategies for a gallery session.
type PolicyMode string

const (
	ModeFree     PolicyMode = "free"
	ModeFreemium PolicyMode = "freemium"
	ModePerPhoto PolicyMode = "per_photo"
	ModeFixed    PolicyMode = "fixed"
	ModeBulk     PolicyMode = "bulk"
)

// KnownModes lists every valid policy mode, in display order.
var KnownModes = []PolicyMode{ModeFree, ModeFreemium, ModePerPhoto, ModeFixed, ModeBulk}

func (m PolicyMode) Valid() bool {
	switch m {
	case ModeFree, ModeFreemium, ModePerPhoto, ModeFixed, ModeBulk:
		return true
	}
	return false
}

// BulkTier maps a minimum quantity to a total price in cents.
type BulkTier struct {
	Qty        int   `json:"qty"`
	PriceCents int64 `json:"price_cents"`
}

// PricingPolicy is the single active policy for a gallery session. Mutations
// replace the whole row inside a serializable transaction; there is no
// partial patch path.
type PricingPolicy struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	SessionID          uint           `gorm:"uniqueIndex;not null" json:"session_id"`
	Session            GallerySession `gorm:"foreignKey:SessionID" json:"-"`
	Mode               PolicyMode     `gorm:"type:varchar(20);not null;default:'free'" json:"mode"`
	PricePerPhotoCents int64          `gorm:"default:0" json:"price_per_photo_cents"`
	FreeCount          int            `gorm:"default:0" json:"free_count"`
	BulkTiers          []BulkTier     `gorm:"serializer:json" json:"bulk_tiers,omitempty"`
	MaxPerClient       int            `gorm:"default:0" json:"max_per_client"`
	MaxGlobal          int            `gorm:"default:0" json:"max_global"`
	Currency           string         `gorm:"type:varchar(8);not null;default:'EUR'" json:"currency"`
	UpdatedBy          uint           `gorm:"default:0" json:"updated_by"`
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// DefaultPolicy returns the lazily created free policy for a session.
func DefaultPolicy(sessionID uint) *PricingPolicy {
	return &PricingPolicy{
		SessionID: sessionID,
		Mode:      ModeFree,
		Currency:  "EUR",
	}
}
