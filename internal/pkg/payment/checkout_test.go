package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photoflare/galleria/app/models"
	"github.com/photoflare/galleria/internal/pkg/pricing"
)

func TestSplitByFreeTier_Freemium(t *testing.T) {
	policy := &models.PricingPolicy{Mode: models.ModeFreemium, FreeCount: 2, PricePerPhotoCents: 500}
	items := []CheckoutItem{{PhotoID: 1}, {PhotoID: 2}, {PhotoID: 3}}

	free, payable, err := splitByFreeTier(policy, items, 0)
	require.NoError(t, err)
	assert.Len(t, free, 2)
	assert.Len(t, payable, 1)

	// A grant recorded by a concurrent request shrinks the remaining slots.
	free, payable, err = splitByFreeTier(policy, items, 1)
	require.NoError(t, err)
	assert.Len(t, free, 1)
	assert.Len(t, payable, 2)

	free, payable, err = splitByFreeTier(policy, items, 2)
	require.NoError(t, err)
	assert.Empty(t, free)
	assert.Len(t, payable, 3)

	// Usage above the quota clamps to zero slots instead of going negative.
	free, payable, err = splitByFreeTier(policy, items, 5)
	require.NoError(t, err)
	assert.Empty(t, free)
	assert.Len(t, payable, 3)
}

func TestSplitByFreeTier_Modes(t *testing.T) {
	items := []CheckoutItem{{PhotoID: 1}, {PhotoID: 2}}

	free, payable, err := splitByFreeTier(&models.PricingPolicy{Mode: models.ModeFree}, items, 0)
	require.NoError(t, err)
	assert.Len(t, free, 2)
	assert.Empty(t, payable)

	free, payable, err = splitByFreeTier(&models.PricingPolicy{Mode: models.ModePerPhoto, PricePerPhotoCents: 500}, items, 0)
	require.NoError(t, err)
	assert.Empty(t, free)
	assert.Len(t, payable, 2)

	_, _, err = splitByFreeTier(&models.PricingPolicy{Mode: "mystery"}, items, 0)
	assert.ErrorIs(t, err, pricing.ErrUnknownMode)
}

func TestSplitByFreeTier_StaleQuotaPushesItemsIntoValidation(t *testing.T) {
	// Two clients both saw two open slots. The loser's count, taken under
	// the session lock, comes back full: its items land in the payable set
	// and the zero prices it submitted fail validation, rolling the whole
	// checkout back for re-submission at the real price.
	policy := &models.PricingPolicy{Mode: models.ModeFreemium, FreeCount: 2, PricePerPhotoCents: 500}
	items := []CheckoutItem{{PhotoID: 7, PriceCents: 0}, {PhotoID: 8, PriceCents: 0}}

	free, payable, err := splitByFreeTier(policy, items, 2)
	require.NoError(t, err)
	assert.Empty(t, free)
	assert.ErrorIs(t, validateSubmittedPrices(policy, payable), pricing.ErrPriceMismatch)
}

func TestValidateSubmittedPrices_PerItem(t *testing.T) {
	policy := &models.PricingPolicy{Mode: models.ModePerPhoto, PricePerPhotoCents: 500}

	assert.NoError(t, validateSubmittedPrices(policy, []CheckoutItem{
		{PhotoID: 1, PriceCents: 500},
		{PhotoID: 2, PriceCents: 501}, // within tolerance
		{PhotoID: 3, PriceCents: 499},
	}))

	err := validateSubmittedPrices(policy, []CheckoutItem{
		{PhotoID: 1, PriceCents: 500},
		{PhotoID: 2, PriceCents: 400},
	})
	assert.ErrorIs(t, err, pricing.ErrPriceMismatch)

	// A zero submitted price on a paid policy is a tamper attempt.
	err = validateSubmittedPrices(policy, []CheckoutItem{{PhotoID: 1, PriceCents: 0}})
	assert.ErrorIs(t, err, pricing.ErrPriceMismatch)
}

func TestValidateSubmittedPrices_BulkUsesSummedTotal(t *testing.T) {
	policy := &models.PricingPolicy{Mode: models.ModeBulk, BulkTiers: []models.BulkTier{
		{Qty: 2, PriceCents: 900},
		{Qty: 5, PriceCents: 2000},
	}}

	// Five photos at the tier price: individual splits do not matter as long
	// as the sum matches.
	assert.NoError(t, validateSubmittedPrices(policy, []CheckoutItem{
		{PhotoID: 1, PriceCents: 400},
		{PhotoID: 2, PriceCents: 400},
		{PhotoID: 3, PriceCents: 400},
		{PhotoID: 4, PriceCents: 400},
		{PhotoID: 5, PriceCents: 400},
	}))

	err := validateSubmittedPrices(policy, []CheckoutItem{
		{PhotoID: 1, PriceCents: 100},
		{PhotoID: 2, PriceCents: 100},
		{PhotoID: 3, PriceCents: 100},
		{PhotoID: 4, PriceCents: 100},
		{PhotoID: 5, PriceCents: 100},
	})
	assert.ErrorIs(t, err, pricing.ErrPriceMismatch)
}

func TestValidateSubmittedPrices_EmptyPayableList(t *testing.T) {
	policy := &models.PricingPolicy{Mode: models.ModePerPhoto, PricePerPhotoCents: 500}
	assert.NoError(t, validateSubmittedPrices(policy, nil))
}

func TestGatewayPaymentStatus_IsPaid(t *testing.T) {
	assert.True(t, (&GatewayPaymentStatus{Status: "succeeded"}).IsPaid())
	assert.True(t, (&GatewayPaymentStatus{Status: "paid"}).IsPaid())
	assert.False(t, (&GatewayPaymentStatus{Status: "pending"}).IsPaid())
	assert.False(t, (&GatewayPaymentStatus{Status: "failed"}).IsPaid())
}
