package repository

import (
	"gorm.io/gorm"

	"github.com/photoflare/galleria/app/models"
)

type gallerySessionRepository struct {
	db *gorm.DB
}

// NewGallerySessionRepository creates a session repository backed by GORM
func NewGallerySessionRepository(db *gorm.DB) GallerySessionRepository {
	return &gallerySessionRepository{db: db}
}

func (r *gallerySessionRepository) Create(session *models.GallerySession) error {
	return r.db.Create(session).Error
}

func (r *gallerySessionRepository) GetByID(id uint) (*models.GallerySession, error) {
	var session models.GallerySession
	if err := r.db.First(&session, id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *gallerySessionRepository) GetBySlug(slug string) (*models.GallerySession, error) {
	var session models.GallerySession
	if err := r.db.Where("slug = ?", slug).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *gallerySessionRepository) GetByOwnerID(ownerID uint) ([]models.GallerySession, error) {
	var sessions []models.GallerySession
	err := r.db.Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&sessions).Error
	return sessions, err
}

func (r *gallerySessionRepository) Update(session *models.GallerySession) error {
	return r.db.Save(session).Error
}

func (r *gallerySessionRepository) Delete(id uint) error {
	return r.db.Delete(&models.GallerySession{}, id).Error
}
