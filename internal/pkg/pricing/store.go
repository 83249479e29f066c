package pricing

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/photoflare/galleria/app/models"
	"github.com/photoflare/galleria/internal/pkg/txruntime"
)

// Store is the pricing policy store. Reads lazily create the default free
// policy; writes replace the whole row under SERIALIZABLE isolation so
// concurrent edits cannot interleave into a lost update.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// GetPolicy returns the active policy for a session, creating the free
// default idempotently when none exists yet.
func (s *Store) GetPolicy(ctx context.Context, sessionID uint) (*models.PricingPolicy, error) {
	var policy models.PricingPolicy
	err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&policy).Error
	if err == nil {
		return &policy, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// Upsert-on-read: two concurrent first reads race on the unique
	// session_id index, DoNothing makes the loser fall through to the
	// re-read below.
	def := models.DefaultPolicy(sessionID)
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoNothing: true,
	}).Create(def).Error; err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&policy).Error; err != nil {
		return nil, err
	}
	return &policy, nil
}

// SetPolicy validates and replaces the policy for a session. The owning
// session row is locked first to assert ownership, then the policy row, so
// concurrent edits serialize on the database rather than racing.
func (s *Store) SetPolicy(ctx context.Context, sessionID, ownerID uint, newPolicy *models.PricingPolicy) (*models.PricingPolicy, error) {
	if err := ValidatePolicy(newPolicy); err != nil {
		return nil, err
	}

	var stored models.PricingPolicy
	_, err := txruntime.Run(ctx, s.db, txruntime.Options{
		Isolation:  sql.LevelSerializable,
		Timeout:    5 * time.Second,
		MaxRetries: 3,
		Retryable:  txruntime.ContentionRetryable,
		Label:      "pricing.set-policy",
	}, func(tx *gorm.DB) error {
		var session models.GallerySession
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", sessionID).First(&session).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSessionNotFound
			}
			return err
		}
		if session.OwnerID != ownerID {
			return ErrPolicyNotOwned
		}

		var existing models.PricingPolicy
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("session_id = ?", sessionID).First(&existing).Error
		switch {
		case err == nil:
			stored = *newPolicy
			stored.ID = existing.ID
			stored.SessionID = sessionID
			stored.UpdatedBy = ownerID
			stored.CreatedAt = existing.CreatedAt
			return tx.Save(&stored).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			stored = *newPolicy
			stored.ID = 0
			stored.SessionID = sessionID
			stored.UpdatedBy = ownerID
			return tx.Create(&stored).Error
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}
