package repository

import (
	"gorm.io/gorm"

	"github.com/photoflare/galleria/app/models"
)

type downloadHistoryRepository struct {
	db *gorm.DB
}

// NewDownloadHistoryRepository creates a download history repository backed by GORM
func NewDownloadHistoryRepository(db *gorm.DB) DownloadHistoryRepository {
	return &downloadHistoryRepository{db: db}
}

func (r *downloadHistoryRepository) Create(entry *models.DownloadHistory) error {
	return r.db.Create(entry).Error
}

func (r *downloadHistoryRepository) GetBySessionID(sessionID uint, offset, limit int) ([]models.DownloadHistory, error) {
	var entries []models.DownloadHistory
	err := r.db.Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (r *downloadHistoryRepository) CountBySessionID(sessionID uint) (int64, error) {
	var n int64
	err := r.db.Model(&models.DownloadHistory{}).Where("session_id = ?", sessionID).Count(&n).Error
	return n, err
}

type suspiciousActivityRepository struct {
	db *gorm.DB
}

// NewSuspiciousActivityRepository creates an abuse log repository backed by GORM
func NewSuspiciousActivityRepository(db *gorm.DB) SuspiciousActivityRepository {
	return &suspiciousActivityRepository{db: db}
}

func (r *suspiciousActivityRepository) Create(entry *models.SuspiciousActivity) error {
	return r.db.Create(entry).Error
}

func (r *suspiciousActivityRepository) GetRecent(limit int) ([]models.SuspiciousActivity, error) {
	var entries []models.SuspiciousActivity
	err := r.db.Order("created_at DESC").Limit(limit).Find(&entries).Error
	return entries, err
}
