package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEntitlementIsLive(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	photoA := uint(10)

	tests := []struct {
		name        string
		entitlement Entitlement
		photoID     uint
		want        bool
	}{
		{
			name:        "unlimited photo grant",
			entitlement: Entitlement{PhotoID: &photoA, Unlimited: true},
			photoID:     10,
			want:        true,
		},
		{
			name:        "limited grant with remaining",
			entitlement: Entitlement{PhotoID: &photoA, Remaining: 1},
			photoID:     10,
			want:        true,
		},
		{
			name:        "exhausted limited grant",
			entitlement: Entitlement{PhotoID: &photoA, Remaining: 0},
			photoID:     10,
			want:        false,
		},
		{
			name:        "wrong photo",
			entitlement: Entitlement{PhotoID: &photoA, Unlimited: true},
			photoID:     11,
			want:        false,
		},
		{
			name:        "pool grant covers any photo",
			entitlement: Entitlement{PhotoID: nil, Remaining: 2},
			photoID:     99,
			want:        true,
		},
		{
			name:        "expired grant",
			entitlement: Entitlement{PhotoID: &photoA, Unlimited: true, ExpiresAt: &past},
			photoID:     10,
			want:        false,
		},
		{
			name:        "future expiry still live",
			entitlement: Entitlement{PhotoID: &photoA, Remaining: 1, ExpiresAt: &future},
			photoID:     10,
			want:        true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.entitlement.IsLive(tt.photoID, now))
		})
	}
}

func TestEntitlementIsFreeGrant(t *testing.T) {
	orderID := uint(5)
	assert.True(t, (&Entitlement{}).IsFreeGrant())
	assert.False(t, (&Entitlement{OrderID: &orderID}).IsFreeGrant())
}

func TestPolicyModeValid(t *testing.T) {
	for _, mode := range KnownModes {
		assert.True(t, mode.Valid(), "mode %s", mode)
	}
	assert.False(t, PolicyMode("").Valid())
	assert.False(t, PolicyMode("donation").Valid())
}
