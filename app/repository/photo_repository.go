package repository

import (
	"gorm.io/gorm"

	"github.com/photoflare/galleria/app/models"
)

type photoRepository struct {
	db *gorm.DB
}

// NewPhotoRepository creates a photo repository backed by GORM
func NewPhotoRepository(db *gorm.DB) PhotoRepository {
	return &photoRepository{db: db}
}

func (r *photoRepository) Create(photo *models.Photo) error {
	return r.db.Create(photo).Error
}

func (r *photoRepository) GetByID(id uint) (*models.Photo, error) {
	var photo models.Photo
	if err := r.db.First(&photo, id).Error; err != nil {
		return nil, err
	}
	return &photo, nil
}

func (r *photoRepository) GetByUUID(uuid string) (*models.Photo, error) {
	var photo models.Photo
	if err := r.db.Where("uuid = ?", uuid).First(&photo).Error; err != nil {
		return nil, err
	}
	return &photo, nil
}

func (r *photoRepository) GetBySessionID(sessionID uint) ([]models.Photo, error) {
	var photos []models.Photo
	err := r.db.Where("session_id = ?", sessionID).Order("file_name").Find(&photos).Error
	return photos, err
}

func (r *photoRepository) CountBySessionID(sessionID uint) (int64, error) {
	var n int64
	err := r.db.Model(&models.Photo{}).Where("session_id = ?", sessionID).Count(&n).Error
	return n, err
}

func (r *photoRepository) Update(photo *models.Photo) error {
	return r.db.Save(photo).Error
}

func (r *photoRepository) Delete(id uint) error {
	return r.db.Delete(&models.Photo{}, id).Error
}
