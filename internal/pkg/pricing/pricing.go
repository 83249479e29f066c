package pricing

import (
	"errors"
	"fmt"
	"sort"

	"github.com/photoflare/galleria/app/models"
)

// PriceToleranceCents is the maximum accepted difference between a client
// submitted price and the server-computed one.
const PriceToleranceCents = 1

var (
	ErrUnknownMode     = errors.New("pricing: unknown policy mode")
	ErrInvalidPolicy   = errors.New("pricing: invalid policy")
	ErrNothingPayable  = errors.New("pricing: no payable items")
	ErrPriceMismatch   = errors.New("pricing: submitted price differs from computed price")
	ErrPolicyNotOwned  = errors.New("pricing: session not owned by caller")
	ErrSessionNotFound = errors.New("pricing: session not found")
)

// ValidatePolicy rejects mode-inconsistent policies before they reach the
// store. Free policies ignore all pricing fields.
func ValidatePolicy(p *models.PricingPolicy) error {
	switch p.Mode {
	case models.ModeFree:
		return nil
	case models.ModeFixed, models.ModePerPhoto:
		if p.PricePerPhotoCents <= 0 {
			return fmt.Errorf("%w: mode %s requires price_per_photo_cents > 0", ErrInvalidPolicy, p.Mode)
		}
		return nil
	case models.ModeFreemium:
		if p.FreeCount <= 0 {
			return fmt.Errorf("%w: freemium requires free_count > 0", ErrInvalidPolicy)
		}
		if p.PricePerPhotoCents <= 0 {
			return fmt.Errorf("%w: freemium requires price_per_photo_cents > 0", ErrInvalidPolicy)
		}
		return nil
	case models.ModeBulk:
		if len(p.BulkTiers) == 0 {
			return fmt.Errorf("%w: bulk requires at least one tier", ErrInvalidPolicy)
		}
		for _, tier := range p.BulkTiers {
			if tier.Qty <= 0 || tier.PriceCents <= 0 {
				return fmt.Errorf("%w: bulk tier qty and price must be > 0", ErrInvalidPolicy)
			}
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownMode, p.Mode)
}

// PricePerItem returns the server-computed price of a single photo under the
// policy. Free-tier eligibility is decided by the orchestrator, not here.
func PricePerItem(p *models.PricingPolicy) (int64, error) {
	switch p.Mode {
	case models.ModeFree:
		return 0, nil
	case models.ModeFreemium, models.ModePerPhoto, models.ModeFixed:
		return p.PricePerPhotoCents, nil
	case models.ModeBulk:
		return priceForQuantity(p.BulkTiers, 1), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, p.Mode)
}

// TotalForQuantity computes the full order price for n photos.
func TotalForQuantity(p *models.PricingPolicy, n int) (int64, error) {
	if n <= 0 {
		return 0, nil
	}
	switch p.Mode {
	case models.ModeFree:
		return 0, nil
	case models.ModeFreemium, models.ModePerPhoto, models.ModeFixed:
		return p.PricePerPhotoCents * int64(n), nil
	case models.ModeBulk:
		return priceForQuantity(p.BulkTiers, n), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, p.Mode)
}

// priceForQuantity resolves the best bulk tier: the largest tier whose qty
// does not exceed n, charged once, plus the per-remainder price of the
// smallest tier for anything above the tier quantity.
func priceForQuantity(tiers []models.BulkTier, n int) int64 {
	if len(tiers) == 0 || n <= 0 {
		return 0
	}

	sorted := make([]models.BulkTier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Qty < sorted[j].Qty })

	best := sorted[0]
	for _, tier := range sorted {
		if tier.Qty <= n {
			best = tier
		}
	}

	if n <= best.Qty {
		return best.PriceCents
	}

	// Above the best tier, the remainder is charged at the smallest tier's
	// effective unit price.
	unit := sorted[0].PriceCents / int64(sorted[0].Qty)
	if unit <= 0 {
		unit = sorted[0].PriceCents
	}
	return best.PriceCents + unit*int64(n-best.Qty)
}

// WithinTolerance reports whether the submitted price matches the computed
// one within PriceToleranceCents.
func WithinTolerance(submitted, computed int64) bool {
	diff := submitted - computed
	if diff < 0 {
		diff = -diff
	}
	return diff <= PriceToleranceCents
}
