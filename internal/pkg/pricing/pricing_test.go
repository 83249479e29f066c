package pricing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photoflare/galleria/app/models"
)

func TestValidatePolicy(t *testing.T) {
	tests := []struct {
		name    string
		policy  models.PricingPolicy
		wantErr error
	}{
		{
			name:   "free ignores pricing fields",
			policy: models.PricingPolicy{Mode: models.ModeFree},
		},
		{
			name:   "per_photo with price",
			policy: models.PricingPolicy{Mode: models.ModePerPhoto, PricePerPhotoCents: 500},
		},
		{
			name:    "per_photo without price",
			policy:  models.PricingPolicy{Mode: models.ModePerPhoto},
			wantErr: ErrInvalidPolicy,
		},
		{
			name:    "fixed with zero price",
			policy:  models.PricingPolicy{Mode: models.ModeFixed, PricePerPhotoCents: 0},
			wantErr: ErrInvalidPolicy,
		},
		{
			name:   "freemium complete",
			policy: models.PricingPolicy{Mode: models.ModeFreemium, FreeCount: 3, PricePerPhotoCents: 200},
		},
		{
			name:    "freemium without free count",
			policy:  models.PricingPolicy{Mode: models.ModeFreemium, PricePerPhotoCents: 200},
			wantErr: ErrInvalidPolicy,
		},
		{
			name:    "freemium without price",
			policy:  models.PricingPolicy{Mode: models.ModeFreemium, FreeCount: 3},
			wantErr: ErrInvalidPolicy,
		},
		{
			name: "bulk with tiers",
			policy: models.PricingPolicy{Mode: models.ModeBulk, BulkTiers: []models.BulkTier{
				{Qty: 5, PriceCents: 2000},
			}},
		},
		{
			name:    "bulk without tiers",
			policy:  models.PricingPolicy{Mode: models.ModeBulk},
			wantErr: ErrInvalidPolicy,
		},
		{
			name: "bulk with zero qty tier",
			policy: models.PricingPolicy{Mode: models.ModeBulk, BulkTiers: []models.BulkTier{
				{Qty: 0, PriceCents: 2000},
			}},
			wantErr: ErrInvalidPolicy,
		},
		{
			name:    "unknown mode",
			policy:  models.PricingPolicy{Mode: "pay_what_you_want"},
			wantErr: ErrUnknownMode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePolicy(&tt.policy)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestPricePerItem(t *testing.T) {
	free := models.PricingPolicy{Mode: models.ModeFree}
	price, err := PricePerItem(&free)
	require.NoError(t, err)
	assert.Equal(t, int64(0), price)

	perPhoto := models.PricingPolicy{Mode: models.ModePerPhoto, PricePerPhotoCents: 350}
	price, err = PricePerItem(&perPhoto)
	require.NoError(t, err)
	assert.Equal(t, int64(350), price)

	unknown := models.PricingPolicy{Mode: "mystery"}
	_, err = PricePerItem(&unknown)
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestTotalForQuantity_PerPhoto(t *testing.T) {
	policy := models.PricingPolicy{Mode: models.ModePerPhoto, PricePerPhotoCents: 250}

	total, err := TotalForQuantity(&policy, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), total)

	total, err = TotalForQuantity(&policy, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestTotalForQuantity_BulkTiers(t *testing.T) {
	policy := models.PricingPolicy{Mode: models.ModeBulk, BulkTiers: []models.BulkTier{
		{Qty: 5, PriceCents: 2000},
		{Qty: 10, PriceCents: 3500},
		{Qty: 2, PriceCents: 900},
	}}

	tests := []struct {
		n    int
		want int64
	}{
		{n: 1, want: 900},   // below smallest tier, charged at smallest tier
		{n: 2, want: 900},   // exact smallest tier
		{n: 5, want: 2000},  // exact mid tier
		{n: 7, want: 2000 + 2*450}, // mid tier plus remainder at smallest unit price
		{n: 10, want: 3500}, // exact top tier
		{n: 12, want: 3500 + 2*450}, // top tier plus remainder at smallest unit price
	}

	for _, tt := range tests {
		total, err := TotalForQuantity(&policy, tt.n)
		require.NoError(t, err)
		assert.Equal(t, tt.want, total, "quantity %d", tt.n)
	}
}

func TestWithinTolerance(t *testing.T) {
	assert.True(t, WithinTolerance(100, 100))
	assert.True(t, WithinTolerance(101, 100))
	assert.True(t, WithinTolerance(99, 100))
	assert.False(t, WithinTolerance(102, 100))
	assert.False(t, WithinTolerance(98, 100))
}

func TestErrorsAreDistinct(t *testing.T) {
	assert.False(t, errors.Is(ErrPriceMismatch, ErrInvalidPolicy))
	assert.False(t, errors.Is(ErrUnknownMode, ErrInvalidPolicy))
}
