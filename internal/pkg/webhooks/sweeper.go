package webhooks

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/photoflare/galleria/internal/pkg/cache"
)

const (
	// sweepLockKey keeps multiple app processes from draining the retry
	// backlog at the same time.
	sweepLockKey = "webhooks:sweep_lock"

	// DefaultSweepBatch bounds how many due events one sweep re-invokes, so
	// a backlog cannot thundering-herd the transaction runtime.
	DefaultSweepBatch = 10
)

// Sweeper periodically re-invokes the processor for events whose retry is
// due. Retry state lives in the webhook_events rows, not in memory, so it
// survives process restarts.
type Sweeper struct {
	processor *Processor
	interval  time.Duration
	batch     int

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

func NewSweeper(processor *Processor, interval time.Duration, batch int) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if batch <= 0 {
		batch = DefaultSweepBatch
	}
	return &Sweeper{
		processor: processor,
		interval:  interval,
		batch:     batch,
		stopCh:    make(chan struct{}),
	}
}

// Start launches the sweep loop.
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true

	log.Infof("[Webhooks] Starting retry sweeper (interval=%s, batch=%d)", s.interval, s.batch)
	s.wg.Add(1)
	go s.loop()
}

// Stop halts the sweep loop and waits for the in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	close(s.stopCh)
	s.running = false
	s.wg.Wait()
	log.Info("[Webhooks] Retry sweeper stopped")
}

func (s *Sweeper) loop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.SweepOnce(context.Background())
		}
	}
}

// SweepOnce processes one batch of due retries. Exported so tests and the
// admin endpoint can trigger a sweep deterministically.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	locked, err := cache.AcquireLock(sweepLockKey, s.interval)
	if err != nil {
		log.Warnf("[Webhooks] Sweep lock error, sweeping anyway: %v", err)
	} else if !locked {
		return
	}
	defer func() {
		if locked {
			if err := cache.ReleaseLock(sweepLockKey); err != nil {
				log.Warnf("[Webhooks] Could not release sweep lock: %v", err)
			}
		}
	}()

	due, err := s.processor.events.GetDueRetries(s.processor.now(), s.batch)
	if err != nil {
		log.Errorf("[Webhooks] Could not load due retries: %v", err)
		return
	}

	for i := range due {
		event := due[i]
		outcome, err := s.processor.Reprocess(ctx, &event)
		if err != nil {
			log.Warnf("[Webhooks] Sweep reprocess of %s ended %s: %v", event.GatewayEventID, outcome, err)
		} else {
			log.Infof("[Webhooks] Sweep reprocessed %s: %s", event.GatewayEventID, outcome)
		}
	}
}
