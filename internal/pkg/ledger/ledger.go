package ledger

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/photoflare/galleria/app/models"
)

var (
	ErrAlreadyGranted = errors.New("ledger: free entitlement already exists for this photo")
	ErrNoRemaining    = errors.New("ledger: entitlement has no remaining downloads")
	ErrNotFound       = errors.New("ledger: entitlement not found")
)

// FindLive returns the best live entitlement covering a photo: an exact
// photo grant wins over a pool grant. Returns gorm.ErrRecordNotFound when
// nothing covers it.
func FindLive(db *gorm.DB, sessionID uint, clientKey string, photoID uint, now time.Time) (*models.Entitlement, error) {
	var candidates []models.Entitlement
	err := db.
		Where("session_id = ? AND client_key = ?", sessionID, clientKey).
		Where("photo_id = ? OR photo_id IS NULL", photoID).
		Order("photo_id IS NULL, created_at").
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		if candidates[i].IsLive(photoID, now) {
			return &candidates[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// CountFreeGrants counts free-tier entitlements (order_id IS NULL) for a
// client on a session. This is the freemium quota usage.
func CountFreeGrants(db *gorm.DB, sessionID uint, clientKey string) (int64, error) {
	var n int64
	err := db.Model(&models.Entitlement{}).
		Where("session_id = ? AND client_key = ? AND order_id IS NULL", sessionID, clientKey).
		Count(&n).Error
	return n, err
}

// GrantFree creates a free-tier entitlement inside the caller's transaction.
// The pre-insert existence check runs in the same transaction as the insert;
// paired with a session row lock it prevents duplicate grants under
// concurrent retries. A unique constraint cannot enforce this because
// photo_id is NULL for pool grants.
func GrantFree(tx *gorm.DB, sessionID uint, clientKey string, photoID *uint, unlimited bool) (*models.Entitlement, error) {
	query := tx.Model(&models.Entitlement{}).
		Where("session_id = ? AND client_key = ? AND order_id IS NULL", sessionID, clientKey)
	if photoID != nil {
		query = query.Where("photo_id = ?", *photoID)
	} else {
		query = query.Where("photo_id IS NULL")
	}
	var existing int64
	if err := query.Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrAlreadyGranted
	}

	ent := &models.Entitlement{
		SessionID: sessionID,
		ClientKey: clientKey,
		PhotoID:   photoID,
		Unlimited: unlimited,
	}
	if !unlimited {
		ent.Remaining = 1
	}
	if err := tx.Create(ent).Error; err != nil {
		return nil, err
	}
	return ent, nil
}

// GrantFromOrder materializes one entitlement per frozen order item. Paid
// entitlements allow unlimited re-downloads of the purchased photo.
func GrantFromOrder(tx *gorm.DB, order *models.Order) ([]models.Entitlement, error) {
	granted := make([]models.Entitlement, 0, len(order.Items))
	for _, item := range order.Items {
		photoID := item.PhotoID
		ent := models.Entitlement{
			SessionID: order.SessionID,
			ClientKey: order.ClientKey,
			PhotoID:   &photoID,
			OrderID:   &order.ID,
			Unlimited: true,
		}
		if err := tx.Create(&ent).Error; err != nil {
			return nil, err
		}
		granted = append(granted, ent)
	}
	return granted, nil
}

// Consume decrements a limited entitlement's remaining count. Unlimited
// grants pass through untouched. The decrement is a conditional update so
// two concurrent consumers cannot both spend the last slot.
func Consume(tx *gorm.DB, entitlementID uint) error {
	var ent models.Entitlement
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", entitlementID).First(&ent).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if ent.Unlimited {
		return nil
	}

	res := tx.Model(&models.Entitlement{}).
		Where("id = ? AND unlimited = ? AND remaining > 0", entitlementID, false).
		UpdateColumn("remaining", gorm.Expr("remaining - 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNoRemaining
	}
	return nil
}
