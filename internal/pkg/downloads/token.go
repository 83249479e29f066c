package downloads

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"gorm.io/gorm"

	"github.com/photoflare/galleria/app/models"
)

// DefaultTokenTTL bounds how long an issued download token stays valid.
const DefaultTokenTTL = 15 * time.Minute

// newTokenValue mints an opaque 256-bit secret. The database row is the
// source of truth for validity; the value only has to be unguessable.
func newTokenValue() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// issueToken creates a single-use download token inside the caller's
// transaction, bound to the entitlement that authorized it.
func issueToken(tx *gorm.DB, sessionID, photoID uint, clientKey string, entitlementID uint, ttl time.Duration, now time.Time) (*models.DownloadToken, error) {
	value, err := newTokenValue()
	if err != nil {
		return nil, err
	}
	token := &models.DownloadToken{
		Value:         value,
		SessionID:     sessionID,
		PhotoID:       photoID,
		ClientKey:     clientKey,
		EntitlementID: entitlementID,
		MaxUses:       1,
		ExpiresAt:     now.Add(ttl),
	}
	if err := tx.Create(token).Error; err != nil {
		return nil, err
	}
	return token, nil
}
