package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/photoflare/galleria/app/models"
	"github.com/photoflare/galleria/app/repository"
	"github.com/photoflare/galleria/internal/pkg/ledger"
	"github.com/photoflare/galleria/internal/pkg/metrics/counter"
	"github.com/photoflare/galleria/internal/pkg/payment"
	"github.com/photoflare/galleria/internal/pkg/txruntime"
)

var (
	ErrBadSignature = errors.New("webhooks: invalid signature")
	ErrBadPayload   = errors.New("webhooks: malformed payload")
	ErrNotYetDue    = errors.New("webhooks: retry not yet due")
)

// Outcome tells the controller what happened without leaking internals.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeRetrying  Outcome = "retrying"
	OutcomeFailed    Outcome = "failed"
)

// RetryConfig shapes the exponential backoff between processing attempts.
// Jitter spreads redeliveries so a burst of failures does not thunder back
// in lockstep.
type RetryConfig struct {
	MaxRetries   int
	Base         time.Duration
	Multiplier   float64
	Cap          time.Duration
	JitterFactor float64
}

// DefaultRetryConfig matches the gateway's own redelivery pacing.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		Base:         30 * time.Second,
		Multiplier:   2.0,
		Cap:          30 * time.Minute,
		JitterFactor: 0.2,
	}
}

// Processor consumes at-least-once gateway notifications and materializes
// their economic effects exactly once.
type Processor struct {
	db     *gorm.DB
	events repository.WebhookEventRepository
	secret string
	cfg    RetryConfig

	// now, randFloat and dispatchFn are injectable for deterministic tests.
	now        func() time.Time
	randFloat  func() float64
	dispatchFn func(ctx context.Context, stored *models.WebhookEvent, event *payment.GatewayEvent) error
}

func NewProcessor(db *gorm.DB, events repository.WebhookEventRepository, secret string, cfg RetryConfig) *Processor {
	if cfg.MaxRetries <= 0 {
		cfg = DefaultRetryConfig()
	}
	p := &Processor{
		db:        db,
		events:    events,
		secret:    secret,
		cfg:       cfg,
		now:       time.Now,
		randFloat: rand.Float64,
	}
	p.dispatchFn = p.dispatch
	return p
}

// SetClock injects a deterministic clock and jitter source; used by tests.
func (p *Processor) SetClock(now func() time.Time, randFloat func() float64) {
	p.now = now
	p.randFloat = randFloat
}

// HandleDelivery is the webhook intake path. Signature verification happens
// before any state is touched; deduplication happens before any handler runs.
func (p *Processor) HandleDelivery(ctx context.Context, payload []byte, signature string) (Outcome, error) {
	if !payment.VerifyWebhookSignature(payload, signature, p.secret) {
		return OutcomeIgnored, ErrBadSignature
	}

	var event payment.GatewayEvent
	if err := json.Unmarshal(payload, &event); err != nil || event.ID == "" || event.Type == "" {
		return OutcomeIgnored, ErrBadPayload
	}

	created, stored, err := p.events.CreateIfNotExists(&models.WebhookEvent{
		GatewayEventID: event.ID,
		EventType:      event.Type,
		PayloadJSON:    string(payload),
		Status:         models.WebhookStatusProcessing,
		MaxRetries:     p.cfg.MaxRetries,
	})
	if err != nil {
		return OutcomeFailed, err
	}

	if !created {
		switch stored.Status {
		case models.WebhookStatusCompleted:
			// At-least-once delivery: success without reprocessing.
			return OutcomeDuplicate, nil
		case models.WebhookStatusFailed:
			return OutcomeFailed, fmt.Errorf("event %s is terminally failed", event.ID)
		case models.WebhookStatusRetrying:
			if stored.NextRetryAt != nil && p.now().Before(*stored.NextRetryAt) {
				return OutcomeRetrying, ErrNotYetDue
			}
		}
	}

	return p.process(ctx, stored, &event)
}

// Reprocess re-runs a stored event; the sweeper uses it for due retries.
func (p *Processor) Reprocess(ctx context.Context, stored *models.WebhookEvent) (Outcome, error) {
	var event payment.GatewayEvent
	if err := json.Unmarshal([]byte(stored.PayloadJSON), &event); err != nil {
		return OutcomeIgnored, ErrBadPayload
	}
	return p.process(ctx, stored, &event)
}

func (p *Processor) process(ctx context.Context, stored *models.WebhookEvent, event *payment.GatewayEvent) (Outcome, error) {
	stored.ProcessingAttempts++
	stored.Status = models.WebhookStatusProcessing
	if err := p.events.Update(stored); err != nil {
		return OutcomeFailed, err
	}

	handlerErr := p.dispatchFn(ctx, stored, event)
	if handlerErr == nil {
		now := p.now()
		stored.Status = models.WebhookStatusCompleted
		stored.NextRetryAt = nil
		stored.LastError = ""
		stored.UpdatedAt = now
		if err := p.events.Update(stored); err != nil {
			return OutcomeFailed, err
		}
		return OutcomeProcessed, nil
	}

	return p.scheduleRetry(stored, handlerErr)
}

// dispatch routes an event to its handler. The switch is exhaustive over
// HandledEventTypes; anything else completes as ignored.
func (p *Processor) dispatch(ctx context.Context, stored *models.WebhookEvent, event *payment.GatewayEvent) error {
	switch event.Type {
	case payment.EventCheckoutCompleted, payment.EventPaymentSucceeded, payment.EventInvoiceSucceeded:
		return p.completeOrder(ctx, stored, event)
	case payment.EventPaymentFailed, payment.EventInvoiceFailed:
		return p.failOrder(ctx, stored, event)
	case payment.EventConnectedAccountUpdated:
		// Account state lives with the gateway; nothing local to change.
		log.Infof("[Webhooks] connected account %s updated", event.AccountID)
		return nil
	default:
		log.Infof("[Webhooks] ignoring unhandled event type %s", event.Type)
		return nil
	}
}

// completeOrder transitions the order and materializes entitlements from the
// order's frozen item list in one atomic transaction. Completing twice is a
// no-op because the order status check runs under the same row lock.
func (p *Processor) completeOrder(ctx context.Context, stored *models.WebhookEvent, event *payment.GatewayEvent) error {
	_, err := txruntime.Run(ctx, p.db, txruntime.Options{
		MaxRetries: 2,
		Retryable:  txruntime.ContentionRetryable,
		Label:      "webhooks.complete-order",
	}, func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Items").
			Where("uuid = ?", event.OrderRef).First(&order).Error; err != nil {
			return fmt.Errorf("order %q not found: %w", event.OrderRef, err)
		}

		if order.Status == models.OrderStatusCompleted {
			return nil
		}

		now := p.now()
		order.Status = models.OrderStatusCompleted
		order.CompletedAt = &now
		order.WebhookEventID = &stored.ID
		if event.PaymentID != "" {
			order.PaymentReference = event.PaymentID
		}
		if err := tx.Omit("Items").Save(&order).Error; err != nil {
			return err
		}

		if _, err := ledger.GrantFromOrder(tx, &order); err != nil {
			return err
		}

		if err := bumpRevenue(tx, order.SessionID, order.Currency, order.AmountCents); err != nil {
			return err
		}

		stored.SessionID = &order.SessionID
		stored.OrderID = &order.ID
		return nil
	})
	return err
}

func (p *Processor) failOrder(ctx context.Context, stored *models.WebhookEvent, event *payment.GatewayEvent) error {
	_, err := txruntime.Run(ctx, p.db, txruntime.Options{
		MaxRetries: 2,
		Retryable:  txruntime.ContentionRetryable,
		Label:      "webhooks.fail-order",
	}, func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("uuid = ? AND status = ?", event.OrderRef, models.OrderStatusPending).
			UpdateColumn("status", models.OrderStatusFailed)
		if res.Error != nil {
			return res.Error
		}
		// Already completed or failed: nothing to undo, payment failure
		// events after completion are gateway noise.
		return nil
	})
	return err
}

// scheduleRetry applies exponential backoff with jitter, or parks the event
// as terminally failed once attempts are exhausted.
func (p *Processor) scheduleRetry(stored *models.WebhookEvent, handlerErr error) (Outcome, error) {
	stored.LastError = handlerErr.Error()

	if stored.ProcessingAttempts > stored.MaxRetries {
		stored.Status = models.WebhookStatusFailed
		stored.NextRetryAt = nil
		if err := p.events.Update(stored); err != nil {
			return OutcomeFailed, err
		}
		// Alert signal: operators watch this counter and the error log.
		counter.AddWebhookDeadEvent()
		log.Errorf("[Webhooks] event %s terminally failed after %d attempts: %v",
			stored.GatewayEventID, stored.ProcessingAttempts, handlerErr)
		return OutcomeFailed, handlerErr
	}

	next := p.now().Add(p.retryDelay(stored.ProcessingAttempts))
	stored.Status = models.WebhookStatusRetrying
	stored.NextRetryAt = &next
	if err := p.events.Update(stored); err != nil {
		return OutcomeFailed, err
	}
	log.Warnf("[Webhooks] event %s attempt %d failed, next retry at %s: %v",
		stored.GatewayEventID, stored.ProcessingAttempts, next.Format(time.RFC3339), handlerErr)
	return OutcomeRetrying, handlerErr
}

// retryDelay computes min(base*multiplier^attempt, cap) plus proportional
// jitter.
func (p *Processor) retryDelay(attempt int) time.Duration {
	delay := float64(p.cfg.Base)
	for i := 0; i < attempt; i++ {
		delay *= p.cfg.Multiplier
		if delay >= float64(p.cfg.Cap) {
			delay = float64(p.cfg.Cap)
			break
		}
	}
	jitter := delay * p.cfg.JitterFactor * p.randFloat()
	return time.Duration(delay + jitter)
}

func bumpRevenue(tx *gorm.DB, sessionID uint, currency string, amountCents int64) error {
	res := tx.Model(&models.RevenueAggregate{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]interface{}{
			"total_cents":      gorm.Expr("total_cents + ?", amountCents),
			"completed_orders": gorm.Expr("completed_orders + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	return tx.Create(&models.RevenueAggregate{
		SessionID:       sessionID,
		TotalCents:      amountCents,
		Currency:        currency,
		CompletedOrders: 1,
	}).Error
}
