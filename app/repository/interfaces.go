package repository

import (
	"time"

	"github.com/photoflare/galleria/app/models"
)

// UserRepository defines owner account database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
}

// GallerySessionRepository defines session-related database operations
type GallerySessionRepository interface {
	Create(session *models.GallerySession) error
	GetByID(id uint) (*models.GallerySession, error)
	GetBySlug(slug string) (*models.GallerySession, error)
	GetByOwnerID(ownerID uint) ([]models.GallerySession, error)
	Update(session *models.GallerySession) error
	Delete(id uint) error
}

// PhotoRepository defines photo-related database operations
type PhotoRepository interface {
	Create(photo *models.Photo) error
	GetByID(id uint) (*models.Photo, error)
	GetByUUID(uuid string) (*models.Photo, error)
	GetBySessionID(sessionID uint) ([]models.Photo, error)
	CountBySessionID(sessionID uint) (int64, error)
	Update(photo *models.Photo) error
	Delete(id uint) error
}

// OrderRepository defines order-related database operations
type OrderRepository interface {
	Create(order *models.Order) error
	GetByID(id uint) (*models.Order, error)
	GetByUUID(uuid string) (*models.Order, error)
	GetByPaymentReference(ref string) (*models.Order, error)
	GetCompletedBySessionAndClient(sessionID uint, clientKey string) ([]models.Order, error)
	Update(order *models.Order) error
}

// WebhookEventRepository defines webhook event database operations
type WebhookEventRepository interface {
	CreateIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	GetByGatewayEventID(gatewayEventID string) (*models.WebhookEvent, error)
	Update(event *models.WebhookEvent) error
	GetDueRetries(now time.Time, limit int) ([]models.WebhookEvent, error)
}

// DownloadHistoryRepository defines audit log database operations
type DownloadHistoryRepository interface {
	Create(entry *models.DownloadHistory) error
	GetBySessionID(sessionID uint, offset, limit int) ([]models.DownloadHistory, error)
	CountBySessionID(sessionID uint) (int64, error)
}

// SuspiciousActivityRepository defines abuse log database operations
type SuspiciousActivityRepository interface {
	Create(entry *models.SuspiciousActivity) error
	GetRecent(limit int) ([]models.SuspiciousActivity, error)
}
