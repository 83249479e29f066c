package rateguard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestSlidingWindow_AllowsUpToMax(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	guard := NewSlidingWindow(time.Minute, 5, clock.Now)

	for i := 0; i < 5; i++ {
		decision := guard.Check("10.0.0.1", 1)
		assert.True(t, decision.Allowed, "request %d should pass", i+1)
	}

	decision := guard.Check("10.0.0.1", 1)
	assert.False(t, decision.Allowed)
	assert.Greater(t, decision.RetryAfterSeconds, 0)
	assert.LessOrEqual(t, decision.RetryAfterSeconds, 61)
}

func TestSlidingWindow_WindowResets(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	guard := NewSlidingWindow(time.Minute, 2, clock.Now)

	assert.True(t, guard.Check("ip", 7).Allowed)
	assert.True(t, guard.Check("ip", 7).Allowed)
	assert.False(t, guard.Check("ip", 7).Allowed)

	clock.Advance(61 * time.Second)
	assert.True(t, guard.Check("ip", 7).Allowed)
}

func TestSlidingWindow_KeysAreScoped(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	guard := NewSlidingWindow(time.Minute, 1, clock.Now)

	assert.True(t, guard.Check("ip-a", 1).Allowed)
	assert.False(t, guard.Check("ip-a", 1).Allowed)

	// Other IPs and other sessions keep their own budget.
	assert.True(t, guard.Check("ip-b", 1).Allowed)
	assert.True(t, guard.Check("ip-a", 2).Allowed)
}

func TestSlidingWindow_PrunesExpiredEntries(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	guard := NewSlidingWindow(time.Minute, 10, clock.Now)

	guard.Check("a", 1)
	guard.Check("b", 1)
	assert.Len(t, guard.entries, 2)

	clock.Advance(2 * time.Minute)
	guard.Check("c", 1)
	assert.Len(t, guard.entries, 1)
}

func TestSlidingWindow_FullTableFailsOpen(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	guard := NewSlidingWindow(time.Minute, 1, clock.Now)
	guard.maxKeys = 1

	assert.True(t, guard.Check("first", 1).Allowed)
	// Table is full; an unknown key passes untracked instead of blocking.
	assert.True(t, guard.Check("second", 1).Allowed)
	assert.True(t, guard.Check("second", 1).Allowed)
}

func TestLooksLikeBot(t *testing.T) {
	tests := []struct {
		userAgent string
		want      bool
	}{
		{userAgent: "", want: true},
		{userAgent: "   ", want: true},
		{userAgent: "curl/8.4.0", want: true},
		{userAgent: "python-requests/2.31", want: true},
		{userAgent: "Go-http-client/1.1", want: true},
		{userAgent: "Googlebot/2.1", want: true},
		{userAgent: "Scrapy/2.11", want: true},
		{userAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) Safari/605.1.15", want: false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, LooksLikeBot(tt.userAgent), "user agent %q", tt.userAgent)
	}
}
