package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Repositories bundles all repository implementations.
type Repositories struct {
	User       UserRepository
	Session    GallerySessionRepository
	Photo      PhotoRepository
	Order      OrderRepository
	Webhook    WebhookEventRepository
	History    DownloadHistoryRepository
	Suspicious SuspiciousActivityRepository
}

// NewRepositories wires every repository to the given DB handle.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:       NewUserRepository(db),
		Session:    NewGallerySessionRepository(db),
		Photo:      NewPhotoRepository(db),
		Order:      NewOrderRepository(db),
		Webhook:    NewWebhookEventRepository(db),
		History:    NewDownloadHistoryRepository(db),
		Suspicious: NewSuspiciousActivityRepository(db),
	}
}

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{db: db}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// Global factory instance
var globalFactory *Factory
var factoryOnce sync.Once

// InitializeFactory initializes the global repository factory
func InitializeFactory(db *gorm.DB) {
	factoryOnce.Do(func() {
		globalFactory = NewFactory(db)
	})
}

// GetGlobalFactory returns the global repository factory instance
func GetGlobalFactory() *Factory {
	if globalFactory == nil {
		panic("Repository factory not initialized. Call InitializeFactory first.")
	}
	return globalFactory
}

// GetGlobalRepositories returns the global repositories instance
func GetGlobalRepositories() *Repositories {
	return GetGlobalFactory().GetRepositories()
}

// ResetGlobalFactory clears the global factory; used by tests.
func ResetGlobalFactory() {
	globalFactory = nil
	factoryOnce = sync.Once{}
}
