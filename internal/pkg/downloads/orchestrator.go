package downloads

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/photoflare/galleria/app/models"
	"github.com/photoflare/galleria/internal/pkg/ledger"
	"github.com/photoflare/galleria/internal/pkg/metrics/counter"
	"github.com/photoflare/galleria/internal/pkg/pricing"
	"github.com/photoflare/galleria/internal/pkg/storage"
	"github.com/photoflare/galleria/internal/pkg/txruntime"
)

// Request identifies one download attempt. Access resolution (credential →
// session + client key) happens in the middleware before this point.
type Request struct {
	Session   *models.GallerySession
	Photo     *models.Photo
	ClientKey string
	ClientIP  string
	UserAgent string
}

// Grant is the successful outcome: a single-use token plus quota context.
type Grant struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	Quota     *QuotaStatus `json:"quota,omitempty"`
}

// Orchestrator routes a download request through policy evaluation and the
// entitlement ledger, issuing a token on success. All database work funnels
// through the transaction runtime; the orchestrator itself never retries.
type Orchestrator struct {
	db       *gorm.DB
	policies *pricing.Store
	locator  storage.AssetLocator
	tokenTTL time.Duration
	now      func() time.Time
}

func NewOrchestrator(db *gorm.DB, policies *pricing.Store, locator storage.AssetLocator) *Orchestrator {
	return &Orchestrator{
		db:       db,
		policies: policies,
		locator:  locator,
		tokenTTL: DefaultTokenTTL,
		now:      time.Now,
	}
}

// SetClock injects a deterministic clock; used by tests.
func (o *Orchestrator) SetClock(now func() time.Time) {
	o.now = now
}

// RequestDownload runs the per-request state machine: entitlement fast path,
// then mode dispatch, then token issuance.
func (o *Orchestrator) RequestDownload(ctx context.Context, req Request) (*Grant, error) {
	policy, err := o.policies.GetPolicy(ctx, req.Session.ID)
	if err != nil {
		return nil, o.internalError("policy lookup failed", err)
	}

	var grant *Grant
	_, err = txruntime.Run(ctx, o.db, txruntime.Options{
		MaxRetries: 3,
		Retryable:  txruntime.ContentionRetryable,
		Label:      "downloads.request",
	}, func(tx *gorm.DB) error {
		now := o.now()

		// Fast path: a live entitlement already covers this photo, e.g. a
		// repeat download of a purchased photo. No pricing involved.
		ent, err := ledger.FindLive(tx, req.Session.ID, req.ClientKey, req.Photo.ID, now)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if ent == nil {
			ent, err = o.dispatchMode(tx, policy, req, now)
			if err != nil {
				return err
			}
		}

		token, err := issueToken(tx, req.Session.ID, req.Photo.ID, req.ClientKey, ent.ID, o.tokenTTL, now)
		if err != nil {
			return err
		}

		grant = &Grant{Token: token.Value, ExpiresAt: token.ExpiresAt}
		if policy.Mode == models.ModeFreemium {
			quota, err := freemiumQuota(tx, policy, req.Session.ID, req.ClientKey)
			if err != nil {
				return err
			}
			grant.Quota = quota
		}
		return nil
	})
	if err != nil {
		return nil, o.mapError(err)
	}
	return grant, nil
}

// dispatchMode is the tagged-union dispatch over the policy mode. The switch
// is exhaustive; Valid() guards creation so no other value can be stored.
func (o *Orchestrator) dispatchMode(tx *gorm.DB, policy *models.PricingPolicy, req Request, now time.Time) (*models.Entitlement, error) {
	// Serialize concurrent grants against the same quota on the session row.
	var session models.GallerySession
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", req.Session.ID).First(&session).Error; err != nil {
		return nil, err
	}

	photoID := req.Photo.ID

	switch policy.Mode {
	case models.ModeFree:
		ent, err := ledger.GrantFree(tx, req.Session.ID, req.ClientKey, &photoID, true)
		if errors.Is(err, ledger.ErrAlreadyGranted) {
			return ledger.FindLive(tx, req.Session.ID, req.ClientKey, photoID, now)
		}
		return ent, err

	case models.ModeFreemium:
		used, err := ledger.CountFreeGrants(tx, req.Session.ID, req.ClientKey)
		if err != nil {
			return nil, err
		}
		if used < int64(policy.FreeCount) {
			ent, err := ledger.GrantFree(tx, req.Session.ID, req.ClientKey, &photoID, false)
			if errors.Is(err, ledger.ErrAlreadyGranted) {
				return ledger.FindLive(tx, req.Session.ID, req.ClientKey, photoID, now)
			}
			return ent, err
		}
		return nil, o.paymentRequired(tx, policy, req)

	case models.ModePerPhoto, models.ModeFixed, models.ModeBulk:
		// Paid modes require a completed order; those entitlements are
		// materialized by the webhook processor and found by the fast path.
		return nil, o.paymentRequired(tx, policy, req)
	}

	return nil, NewCodedError(CodeInternal, "unknown pricing mode", pricing.ErrUnknownMode)
}

func (o *Orchestrator) paymentRequired(tx *gorm.DB, policy *models.PricingPolicy, req Request) error {
	price, err := pricing.PricePerItem(policy)
	if err != nil {
		return err
	}
	perr := &PaymentRequiredError{
		AmountCents: price,
		Currency:    policy.Currency,
		Mode:        string(policy.Mode),
	}
	if policy.Mode == models.ModeFreemium {
		quota, err := freemiumQuota(tx, policy, req.Session.ID, req.ClientKey)
		if err != nil {
			return err
		}
		perr.Quota = quota
	}
	return perr
}

func freemiumQuota(tx *gorm.DB, policy *models.PricingPolicy, sessionID uint, clientKey string) (*QuotaStatus, error) {
	used, err := ledger.CountFreeGrants(tx, sessionID, clientKey)
	if err != nil {
		return nil, err
	}
	remaining := int64(policy.FreeCount) - used
	if remaining < 0 {
		remaining = 0
	}
	return &QuotaStatus{FreeCount: policy.FreeCount, Used: used, Remaining: remaining}, nil
}

// QuotaStatus answers the read-only quota endpoint without transaction
// machinery.
func (o *Orchestrator) QuotaStatus(ctx context.Context, sessionID uint, clientKey string) (*QuotaStatus, error) {
	policy, err := o.policies.GetPolicy(ctx, sessionID)
	if err != nil {
		return nil, o.internalError("policy lookup failed", err)
	}

	var quota *QuotaStatus
	err = txruntime.RunReadOnly(ctx, o.db, 3*time.Second, func(db *gorm.DB) error {
		var qerr error
		quota, qerr = freemiumQuota(db, policy, sessionID, clientKey)
		return qerr
	})
	if err != nil {
		return nil, o.mapError(err)
	}
	return quota, nil
}

// ConsumeToken atomically spends a token and returns the asset location.
// The conditional update on is_used closes the check-then-act race: of two
// concurrent consumers exactly one wins.
func (o *Orchestrator) ConsumeToken(ctx context.Context, tokenValue, clientIP, userAgent string) (string, error) {
	var consumed models.DownloadToken
	_, err := txruntime.Run(ctx, o.db, txruntime.Options{
		MaxRetries: 2,
		Retryable:  txruntime.ContentionRetryable,
		Label:      "downloads.consume-token",
	}, func(tx *gorm.DB) error {
		var token models.DownloadToken
		if err := tx.Where("value = ?", tokenValue).First(&token).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewCodedError(CodeTokenInvalid, "unknown download token", err)
			}
			return err
		}
		now := o.now()
		if token.IsExpired(now) {
			return NewCodedError(CodeTokenExpired, "download token expired", nil)
		}

		res := tx.Model(&models.DownloadToken{}).
			Where("id = ? AND is_used = ?", token.ID, false).
			Updates(map[string]interface{}{"is_used": true, "used_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return NewCodedError(CodeTokenAlreadyUsed, "download token already used", nil)
		}

		if err := ledger.Consume(tx, token.EntitlementID); err != nil {
			if errors.Is(err, ledger.ErrNoRemaining) {
				return NewCodedError(CodeTokenAlreadyUsed, "entitlement exhausted", err)
			}
			return err
		}

		if err := tx.Create(&models.DownloadHistory{
			SessionID:     token.SessionID,
			PhotoID:       token.PhotoID,
			ClientKey:     token.ClientKey,
			EntitlementID: token.EntitlementID,
			TokenID:       token.ID,
			ClientIP:      clientIP,
			UserAgent:     userAgent,
		}).Error; err != nil {
			return err
		}

		consumed = token
		return nil
	})
	if err != nil {
		return "", o.mapError(err)
	}

	// Best-effort download counter; never part of the transaction.
	if err := counter.AddPhotoDownload(consumed.PhotoID); err != nil {
		log.Warnf("[Downloads] could not buffer download counter for photo %d: %v", consumed.PhotoID, err)
	}

	location, err := o.locator.LocateAsset(ctx, o.photoStorageKey(ctx, consumed.PhotoID), 5*time.Minute)
	if err != nil {
		return "", o.internalError("could not locate asset", err)
	}
	return location, nil
}

func (o *Orchestrator) photoStorageKey(ctx context.Context, photoID uint) string {
	var photo models.Photo
	if err := o.db.WithContext(ctx).First(&photo, photoID).Error; err != nil {
		log.Errorf("[Downloads] photo %d vanished after token consumption: %v", photoID, err)
		return ""
	}
	return photo.StorageKey
}

// mapError keeps coded and payment-required outcomes, and collapses
// everything else to a fixed code chosen by the classified kind.
func (o *Orchestrator) mapError(err error) error {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded
	}
	var paymentErr *PaymentRequiredError
	if errors.As(err, &paymentErr) {
		return paymentErr
	}

	kind := txruntime.KindOf(err)
	switch kind {
	case txruntime.KindPoolExhausted, txruntime.KindTimeout, txruntime.KindConnection:
		return NewCodedError(CodeUnavailable, "service temporarily unavailable", err)
	}
	return o.internalError("download request failed", err)
}

func (o *Orchestrator) internalError(message string, err error) error {
	log.Errorf("[Downloads] %s: %v", message, err)
	return NewCodedError(CodeInternal, message, err)
}
