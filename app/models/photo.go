package models

import (
	"time"

	"gorm.io/gorm"
)

// Photo is a downloadable asset inside a gallery session. The original bytes
// live in object storage; StorageKey locates them there.
type Photo struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	UUID          string         `gorm:"type:varchar(36);uniqueIndex;not null" json:"uuid"`
	SessionID     uint           `gorm:"not null;index" json:"session_id"`
	Session       GallerySession `gorm:"foreignKey:SessionID" json:"-"`
	FileName      string         `gorm:"type:varchar(255);not null" json:"file_name"`
	StorageKey    string         `gorm:"type:varchar(512);not null" json:"-"`
	ContentType   string         `gorm:"type:varchar(100)" json:"content_type"`
	FileSize      int64          `gorm:"default:0" json:"file_size"`
	DownloadCount int64          `gorm:"default:0" json:"download_count"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}
