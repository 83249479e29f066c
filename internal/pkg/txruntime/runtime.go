package txruntime

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

const (
	DefaultTimeout     = 5 * time.Second
	DefaultMaxRetries  = 3
	DefaultBackoffBase = 50 * time.Millisecond
	DefaultBackoffCap  = 2 * time.Second

	// poolHighWaterMark is the in-use/max-open ratio above which acquisition
	// pressure is logged.
	poolHighWaterMark = 0.85
)

// Options configures one unit of work.
type Options struct {
	Isolation   sql.IsolationLevel
	Timeout     time.Duration
	MaxRetries  int
	Retryable   []Kind
	Label       string
	BackoffBase time.Duration
	BackoffCap  time.Duration
}

// Result reports how a successful unit of work went.
type Result struct {
	Attempts int
	Duration time.Duration
}

func (o *Options) withDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = DefaultBackoffBase
	}
	if o.BackoffCap <= 0 {
		o.BackoffCap = DefaultBackoffCap
	}
	if o.Label == "" {
		o.Label = "unit-of-work"
	}
	if o.Isolation == sql.LevelDefault {
		o.Isolation = sql.LevelReadCommitted
	}
}

// ContentionRetryable is the usual retryable set for write paths.
var ContentionRetryable = []Kind{KindDeadlock, KindSerialization, KindLockNotAvailable, KindConnection, KindPoolExhausted}

// Run executes fn inside a database transaction with classification-driven
// retry. Only this layer retries transparently; everything above maps the
// returned *Error to a fixed response code.
func Run(ctx context.Context, db *gorm.DB, opts Options, fn func(tx *gorm.DB) error) (Result, error) {
	opts.withDefaults()
	start := time.Now()

	var lastErr error
	var lastKind Kind
	attempts := 0

	for attempt := 1; attempt <= opts.MaxRetries+1; attempt++ {
		attempts = attempt
		samplePoolPressure(db, opts.Label)

		err := runOnce(ctx, db, opts, fn)
		if err == nil {
			return Result{Attempts: attempt, Duration: time.Since(start)}, nil
		}

		lastErr = err
		lastKind = Classify(err)

		if attempt > opts.MaxRetries || !retryWanted(lastKind, opts.Retryable) || !GloballyRetryable(lastKind) {
			break
		}

		delay := backoffDelay(opts.BackoffBase, opts.BackoffCap, attempt)
		log.Warnf("[TxRuntime] %s attempt %d failed (%s), retrying in %s", opts.Label, attempt, lastKind, delay)
		select {
		case <-ctx.Done():
			lastErr = ctx.Err()
			lastKind = KindTimeout
		case <-time.After(delay):
		}
		if ctx.Err() != nil {
			break
		}
	}

	return Result{Attempts: attempts, Duration: time.Since(start)}, &Error{
		Kind:      lastKind,
		Attempts:  attempts,
		Label:     opts.Label,
		Retryable: GloballyRetryable(lastKind),
		Err:       lastErr,
	}
}

func runOnce(ctx context.Context, db *gorm.DB, opts Options, fn func(tx *gorm.DB) error) error {
	attemptCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	tx := db.WithContext(attemptCtx).Begin(&sql.TxOptions{Isolation: opts.Isolation})
	if tx.Error != nil {
		return tx.Error
	}

	// Scope the lock wait budget to this transaction so a contended row
	// cannot hold the connection past the declared timeout.
	lockSeconds := int(opts.Timeout / time.Second)
	if lockSeconds < 1 {
		lockSeconds = 1
	}
	if err := tx.Exec("SET innodb_lock_wait_timeout = ?", lockSeconds).Error; err != nil {
		tx.Rollback()
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- fn(tx)
	}()

	select {
	case <-attemptCtx.Done():
		tx.Rollback()
		return attemptCtx.Err()
	case err := <-done:
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return err
	}
	return nil
}

// RunReadOnly executes fn without transaction machinery but still enforces
// the timeout race. Used for quota/status queries.
func RunReadOnly(ctx context.Context, db *gorm.DB, timeout time.Duration, fn func(db *gorm.DB) error) error {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(db.WithContext(queryCtx))
	}()

	select {
	case <-queryCtx.Done():
		return queryCtx.Err()
	case err := <-done:
		return err
	}
}

func retryWanted(kind Kind, retryable []Kind) bool {
	for _, k := range retryable {
		if k == kind {
			return true
		}
	}
	return false
}

// backoffDelay computes min(base * 2^(attempt-1), cap). Jitter lives in the
// webhook processor, not here.
func backoffDelay(base, cap time.Duration, attempt int) time.Duration {
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= cap {
			return cap
		}
	}
	if delay > cap {
		return cap
	}
	return delay
}

func samplePoolPressure(db *gorm.DB, label string) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	stats := sqlDB.Stats()
	if stats.MaxOpenConnections <= 0 {
		return
	}
	utilization := float64(stats.InUse) / float64(stats.MaxOpenConnections)
	if utilization > poolHighWaterMark {
		log.Warnf("[TxRuntime] connection pool pressure during %s: %d/%d in use, %d waiting",
			label, stats.InUse, stats.MaxOpenConnections, stats.WaitCount)
	}
}
