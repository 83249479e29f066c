package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/photoflare/galleria/app/models"
	"github.com/photoflare/galleria/internal/pkg/ledger"
	"github.com/photoflare/galleria/internal/pkg/pricing"
	"github.com/photoflare/galleria/internal/pkg/txruntime"
)

// Gateway is the payment gateway surface the checkout service depends on.
// Production uses *GatewayClient; tests inject a fake.
type Gateway interface {
	CreateCheckout(ctx context.Context, orderUUID string, amountCents int64, currency, description string) (*GatewayCheckout, error)
	VerifyPayment(ctx context.Context, paymentRef string) (*GatewayPaymentStatus, error)
}

// CheckoutService turns a validated item list into either free entitlements
// or a pending order plus a gateway checkout URL.
type CheckoutService struct {
	db       *gorm.DB
	policies *pricing.Store
	gateway  Gateway
}

func NewCheckoutService(db *gorm.DB, policies *pricing.Store, gateway Gateway) *CheckoutService {
	return &CheckoutService{db: db, policies: policies, gateway: gateway}
}

// CreateCheckout recomputes every price server-side, grants whatever the
// free tier covers, and creates a pending order plus gateway checkout for
// the rest. Quota counting, free grants and the order row share one
// transaction under the session row lock, so two concurrent checkouts cannot
// both spend the same free slots. The order row exists before the gateway is
// called so a crashed process never loses track of a checkout the gateway
// may have created.
func (s *CheckoutService) CreateCheckout(ctx context.Context, in CheckoutInput) (*CheckoutResult, error) {
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: empty item list", pricing.ErrNothingPayable)
	}

	policy, err := s.policies.GetPolicy(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}

	var (
		order       *models.Order
		freeGranted int
	)
	_, err = txruntime.Run(ctx, s.db, txruntime.Options{
		MaxRetries: 2,
		Retryable:  txruntime.ContentionRetryable,
		Label:      "checkout.create-order",
	}, func(tx *gorm.DB) error {
		order = nil
		freeGranted = 0

		// The session row lock serializes quota readers: the free-grant
		// count below stays true until this transaction commits.
		var session models.GallerySession
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", in.SessionID).First(&session).Error; err != nil {
			return err
		}

		var used int64
		if policy.Mode == models.ModeFreemium {
			var countErr error
			used, countErr = ledger.CountFreeGrants(tx, in.SessionID, in.ClientKey)
			if countErr != nil {
				return countErr
			}
		}

		freeEligible, payable, err := splitByFreeTier(policy, in.Items, used)
		if err != nil {
			return err
		}

		// Tamper check happens before any row is written. Items pushed out
		// of a quota that filled up since the client last looked fail here
		// and roll everything back for re-submission at the real price.
		if err := validateSubmittedPrices(policy, payable); err != nil {
			return err
		}

		freeGranted, err = s.grantFreeItems(tx, in, freeEligible, policy.Mode == models.ModeFree)
		if err != nil {
			return err
		}

		if len(payable) == 0 {
			return nil
		}

		total, err := pricing.TotalForQuantity(policy, len(payable))
		if err != nil {
			return err
		}

		order = &models.Order{
			UUID:        uuid.NewString(),
			SessionID:   in.SessionID,
			ClientKey:   in.ClientKey,
			AmountCents: total,
			Currency:    policy.Currency,
			Mode:        policy.Mode,
			Status:      models.OrderStatusPending,
		}
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		perItem := total / int64(len(payable))
		for i, item := range payable {
			price := perItem
			if i == len(payable)-1 {
				// Last item absorbs the rounding remainder so the frozen
				// items always sum to the order total.
				price = total - perItem*int64(len(payable)-1)
			}
			oi := models.OrderItem{OrderID: order.ID, PhotoID: item.PhotoID, PriceCents: price}
			if err := tx.Create(&oi).Error; err != nil {
				return err
			}
			order.Items = append(order.Items, oi)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if order == nil {
		return &CheckoutResult{
			FreeItemsProcessed: freeGranted,
			Message:            "all items covered by free tier, no checkout needed",
		}, nil
	}

	checkout, err := s.gateway.CreateCheckout(ctx, order.UUID, order.AmountCents, policy.Currency,
		fmt.Sprintf("%d photo(s), session %d", len(order.Items), in.SessionID))
	if err != nil {
		s.failOrder(ctx, order.ID)
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", order.ID).
		UpdateColumn("payment_reference", checkout.CheckoutID).Error; err != nil {
		log.Errorf("[Checkout] could not store payment reference for order %s: %v", order.UUID, err)
	}

	return &CheckoutResult{
		CheckoutURL:        checkout.CheckoutURL,
		OrderUUID:          order.UUID,
		FreeItemsProcessed: freeGranted,
	}, nil
}

// splitByFreeTier decides which requested items the free tier still covers
// given the client's current free-grant count. The count must come from the
// same transaction, after the session row lock, as the grants that follow.
func splitByFreeTier(policy *models.PricingPolicy, items []CheckoutItem, used int64) (free, payable []CheckoutItem, err error) {
	switch policy.Mode {
	case models.ModeFree:
		return items, nil, nil
	case models.ModeFreemium:
		slots := int64(policy.FreeCount) - used
		if slots < 0 {
			slots = 0
		}
		if int64(len(items)) <= slots {
			return items, nil, nil
		}
		return items[:slots], items[slots:], nil
	case models.ModePerPhoto, models.ModeFixed, models.ModeBulk:
		return nil, items, nil
	}
	return nil, nil, fmt.Errorf("%w: %q", pricing.ErrUnknownMode, policy.Mode)
}

// validateSubmittedPrices rejects any payable item whose submitted price
// drifts more than the tolerance from the server-computed price. Bulk orders
// are validated on the summed total since tier pricing is not per-item.
func validateSubmittedPrices(policy *models.PricingPolicy, payable []CheckoutItem) error {
	if len(payable) == 0 {
		return nil
	}

	if policy.Mode == models.ModeBulk {
		var submitted int64
		for _, item := range payable {
			submitted += item.PriceCents
		}
		computed, err := pricing.TotalForQuantity(policy, len(payable))
		if err != nil {
			return err
		}
		if !pricing.WithinTolerance(submitted, computed) {
			return fmt.Errorf("%w: submitted %d, computed %d", pricing.ErrPriceMismatch, submitted, computed)
		}
		return nil
	}

	computed, err := pricing.PricePerItem(policy)
	if err != nil {
		return err
	}
	for _, item := range payable {
		if !pricing.WithinTolerance(item.PriceCents, computed) {
			return fmt.Errorf("%w: photo %d submitted %d, computed %d", pricing.ErrPriceMismatch, item.PhotoID, item.PriceCents, computed)
		}
	}
	return nil
}

// grantFreeItems inserts free entitlements inside the caller's transaction,
// which must already hold the session row lock. Photos the client already
// holds a free grant for are skipped and not counted.
func (s *CheckoutService) grantFreeItems(tx *gorm.DB, in CheckoutInput, items []CheckoutItem, unlimited bool) (int, error) {
	granted := 0
	for _, item := range items {
		photoID := item.PhotoID
		if _, err := ledger.GrantFree(tx, in.SessionID, in.ClientKey, &photoID, unlimited); err != nil {
			if errors.Is(err, ledger.ErrAlreadyGranted) {
				continue
			}
			return granted, err
		}
		granted++
	}
	return granted, nil
}

func (s *CheckoutService) failOrder(ctx context.Context, orderID uint) {
	if err := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, models.OrderStatusPending).
		UpdateColumn("status", models.OrderStatusFailed).Error; err != nil {
		log.Errorf("[Checkout] could not mark order %d failed: %v", orderID, err)
	}
}
