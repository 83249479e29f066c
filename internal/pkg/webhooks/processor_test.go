package webhooks

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photoflare/galleria/app/models"
	"github.com/photoflare/galleria/internal/pkg/payment"
)

type fakeEventRepo struct {
	byGatewayID map[string]*models.WebhookEvent
	updates     int
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{byGatewayID: make(map[string]*models.WebhookEvent)}
}

func (r *fakeEventRepo) CreateIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	if existing, ok := r.byGatewayID[event.GatewayEventID]; ok {
		return false, existing, nil
	}
	stored := *event
	stored.ID = uint(len(r.byGatewayID) + 1)
	r.byGatewayID[event.GatewayEventID] = &stored
	return true, &stored, nil
}

func (r *fakeEventRepo) GetByGatewayEventID(gatewayEventID string) (*models.WebhookEvent, error) {
	return r.byGatewayID[gatewayEventID], nil
}

func (r *fakeEventRepo) Update(event *models.WebhookEvent) error {
	r.updates++
	r.byGatewayID[event.GatewayEventID] = event
	return nil
}

func (r *fakeEventRepo) GetDueRetries(now time.Time, limit int) ([]models.WebhookEvent, error) {
	var due []models.WebhookEvent
	for _, event := range r.byGatewayID {
		if event.Status == models.WebhookStatusRetrying && event.NextRetryAt != nil && !now.Before(*event.NextRetryAt) {
			due = append(due, *event)
		}
		if len(due) == limit {
			break
		}
	}
	return due, nil
}

const testSecret = "whsec_unit"

func newTestProcessor(t *testing.T, repo *fakeEventRepo) *Processor {
	t.Helper()
	p := NewProcessor(nil, repo, testSecret, DefaultRetryConfig())
	p.SetClock(func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}, func() float64 { return 0 })
	return p
}

func signedPayload(t *testing.T, event payment.GatewayEvent) ([]byte, string) {
	t.Helper()
	payloadBytes, err := json.Marshal(event)
	require.NoError(t, err)
	return payloadBytes, payment.SignWebhookPayload(payloadBytes, testSecret)
}

func TestHandleDelivery_RejectsBadSignature(t *testing.T) {
	repo := newFakeEventRepo()
	p := newTestProcessor(t, repo)

	outcome, err := p.HandleDelivery(context.Background(), []byte(`{"id":"evt_1","type":"x"}`), "deadbeef")
	assert.Equal(t, OutcomeIgnored, outcome)
	assert.ErrorIs(t, err, ErrBadSignature)
	assert.Empty(t, repo.byGatewayID, "no state before signature verification")
}

func TestHandleDelivery_RejectsBadPayload(t *testing.T) {
	repo := newFakeEventRepo()
	p := newTestProcessor(t, repo)

	payloadBytes := []byte(`{"not":"an event"}`)
	sig := payment.SignWebhookPayload(payloadBytes, testSecret)

	outcome, err := p.HandleDelivery(context.Background(), payloadBytes, sig)
	assert.Equal(t, OutcomeIgnored, outcome)
	assert.ErrorIs(t, err, ErrBadPayload)
	assert.Empty(t, repo.byGatewayID)
}

func TestHandleDelivery_UnhandledTypeCompletesWithoutSideEffects(t *testing.T) {
	repo := newFakeEventRepo()
	p := newTestProcessor(t, repo)

	payloadBytes, sig := signedPayload(t, payment.GatewayEvent{ID: "evt_1", Type: "refund.created"})

	outcome, err := p.HandleDelivery(context.Background(), payloadBytes, sig)
	assert.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)

	stored := repo.byGatewayID["evt_1"]
	require.NotNil(t, stored)
	assert.Equal(t, models.WebhookStatusCompleted, stored.Status)
	assert.Equal(t, 1, stored.ProcessingAttempts)
}

func TestHandleDelivery_DuplicateOfCompletedEvent(t *testing.T) {
	repo := newFakeEventRepo()
	p := newTestProcessor(t, repo)

	payloadBytes, sig := signedPayload(t, payment.GatewayEvent{ID: "evt_dup", Type: "connected_account.updated"})

	outcome, err := p.HandleDelivery(context.Background(), payloadBytes, sig)
	require.NoError(t, err)
	require.Equal(t, OutcomeProcessed, outcome)

	// Redelivery of the same gateway event is acknowledged without running
	// the handler again.
	updatesBefore := repo.updates
	outcome, err = p.HandleDelivery(context.Background(), payloadBytes, sig)
	assert.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)
	assert.Equal(t, updatesBefore, repo.updates)
}

func TestHandleDelivery_TerminallyFailedEvent(t *testing.T) {
	repo := newFakeEventRepo()
	p := newTestProcessor(t, repo)

	repo.byGatewayID["evt_dead"] = &models.WebhookEvent{
		ID:             1,
		GatewayEventID: "evt_dead",
		Status:         models.WebhookStatusFailed,
	}

	payloadBytes, sig := signedPayload(t, payment.GatewayEvent{ID: "evt_dead", Type: "payment.succeeded"})
	outcome, err := p.HandleDelivery(context.Background(), payloadBytes, sig)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.Error(t, err)
}

func TestHandleDelivery_RetryingEventNotYetDue(t *testing.T) {
	repo := newFakeEventRepo()
	p := newTestProcessor(t, repo)

	due := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC) // clock is fixed at 12:00
	repo.byGatewayID["evt_retry"] = &models.WebhookEvent{
		ID:             1,
		GatewayEventID: "evt_retry",
		Status:         models.WebhookStatusRetrying,
		NextRetryAt:    &due,
	}

	payloadBytes, sig := signedPayload(t, payment.GatewayEvent{ID: "evt_retry", Type: "payment.succeeded"})
	outcome, err := p.HandleDelivery(context.Background(), payloadBytes, sig)
	assert.Equal(t, OutcomeRetrying, outcome)
	assert.ErrorIs(t, err, ErrNotYetDue)
}

func TestHandleDelivery_FailTwiceThenSucceed(t *testing.T) {
	repo := newFakeEventRepo()
	p := NewProcessor(nil, repo, testSecret, DefaultRetryConfig())
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p.SetClock(func() time.Time { return now }, func() float64 { return 0 })

	calls := 0
	p.dispatchFn = func(ctx context.Context, stored *models.WebhookEvent, event *payment.GatewayEvent) error {
		calls++
		if calls <= 2 {
			return assert.AnError
		}
		return nil
	}

	payloadBytes, sig := signedPayload(t, payment.GatewayEvent{
		ID: "evt_flaky", Type: payment.EventPaymentSucceeded, OrderRef: "ord_1",
	})

	// First delivery fails and schedules a retry.
	outcome, err := p.HandleDelivery(context.Background(), payloadBytes, sig)
	assert.Equal(t, OutcomeRetrying, outcome)
	assert.Error(t, err)
	stored := repo.byGatewayID["evt_flaky"]
	require.NotNil(t, stored)
	require.NotNil(t, stored.NextRetryAt)
	firstRetry := *stored.NextRetryAt
	assert.True(t, firstRetry.After(now))

	// Redelivery before the scheduled retry is deferred without a new attempt.
	outcome, err = p.HandleDelivery(context.Background(), payloadBytes, sig)
	assert.Equal(t, OutcomeRetrying, outcome)
	assert.ErrorIs(t, err, ErrNotYetDue)
	assert.Equal(t, 1, calls)

	// Second attempt fails again and backs off further out.
	now = firstRetry
	outcome, err = p.HandleDelivery(context.Background(), payloadBytes, sig)
	assert.Equal(t, OutcomeRetrying, outcome)
	assert.Error(t, err)
	require.NotNil(t, stored.NextRetryAt)
	secondRetry := *stored.NextRetryAt
	assert.True(t, secondRetry.After(firstRetry))

	// Third attempt succeeds and completes the event.
	now = secondRetry
	outcome, err = p.HandleDelivery(context.Background(), payloadBytes, sig)
	assert.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)
	assert.Equal(t, 3, calls)
	assert.Equal(t, models.WebhookStatusCompleted, stored.Status)
	assert.Equal(t, 3, stored.ProcessingAttempts)
	assert.Nil(t, stored.NextRetryAt)
}

func TestRetryDelay_ExponentialWithCap(t *testing.T) {
	p := NewProcessor(nil, newFakeEventRepo(), testSecret, RetryConfig{
		MaxRetries:   5,
		Base:         30 * time.Second,
		Multiplier:   2.0,
		Cap:          30 * time.Minute,
		JitterFactor: 0.2,
	})
	p.SetClock(time.Now, func() float64 { return 0 })

	assert.Equal(t, 30*time.Second, p.retryDelay(0))
	assert.Equal(t, 60*time.Second, p.retryDelay(1))
	assert.Equal(t, 120*time.Second, p.retryDelay(2))
	assert.Equal(t, 240*time.Second, p.retryDelay(3))

	// Way past the doubling range the cap holds.
	assert.Equal(t, 30*time.Minute, p.retryDelay(20))
}

func TestRetryDelay_JitterIsProportional(t *testing.T) {
	cfg := RetryConfig{
		MaxRetries:   3,
		Base:         30 * time.Second,
		Multiplier:   2.0,
		Cap:          30 * time.Minute,
		JitterFactor: 0.2,
	}
	p := NewProcessor(nil, newFakeEventRepo(), testSecret, cfg)
	p.SetClock(time.Now, func() float64 { return 1.0 })

	// Full jitter adds exactly JitterFactor on top of the base delay.
	assert.Equal(t, 36*time.Second, p.retryDelay(0))
	assert.Equal(t, 72*time.Second, p.retryDelay(1))
}

func TestScheduleRetry_SetsBackoffState(t *testing.T) {
	repo := newFakeEventRepo()
	p := newTestProcessor(t, repo)

	stored := &models.WebhookEvent{
		GatewayEventID:     "evt_backoff",
		Status:             models.WebhookStatusProcessing,
		ProcessingAttempts: 1,
		MaxRetries:         3,
	}
	repo.byGatewayID[stored.GatewayEventID] = stored

	outcome, err := p.scheduleRetry(stored, assert.AnError)
	assert.Equal(t, OutcomeRetrying, outcome)
	assert.Error(t, err)

	assert.Equal(t, models.WebhookStatusRetrying, stored.Status)
	require.NotNil(t, stored.NextRetryAt)
	// Attempt 1 with zero jitter: base * multiplier^1 = 60s after the clock.
	expected := time.Date(2025, 6, 1, 12, 1, 0, 0, time.UTC)
	assert.Equal(t, expected, *stored.NextRetryAt)
	assert.Equal(t, assert.AnError.Error(), stored.LastError)
}

func TestScheduleRetry_SuccessiveDelaysIncrease(t *testing.T) {
	repo := newFakeEventRepo()
	p := newTestProcessor(t, repo)

	stored := &models.WebhookEvent{
		GatewayEventID: "evt_grow",
		MaxRetries:     5,
	}
	repo.byGatewayID[stored.GatewayEventID] = stored

	var previous time.Time
	for attempt := 1; attempt <= 3; attempt++ {
		stored.ProcessingAttempts = attempt
		_, _ = p.scheduleRetry(stored, assert.AnError)
		require.NotNil(t, stored.NextRetryAt)
		if attempt > 1 {
			assert.True(t, stored.NextRetryAt.After(previous),
				"attempt %d retry %s should be later than %s", attempt, stored.NextRetryAt, previous)
		}
		previous = *stored.NextRetryAt
	}
}
