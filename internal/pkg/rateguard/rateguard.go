package rateguard

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// Decision is the guard's verdict for one request. Suspicious user agents
// only warn; they never block on their own.
type Decision struct {
	Allowed           bool
	RetryAfterSeconds int
	BotSuspected      bool
}

// Limiter is the swappable rate-limiting surface. Construction injects the
// clock so tests run deterministically.
type Limiter interface {
	Check(clientIP string, sessionID uint) Decision
}

const (
	DefaultWindow         = time.Minute
	DefaultMaxPerWindow   = 60
	DefaultMaxTrackedKeys = 100_000
)

type windowEntry struct {
	count       int
	windowStart time.Time
}

// SlidingWindow counts requests per (clientIP, sessionID) within a rolling
// window. Counters are process-local and best-effort: a restart loses at
// most rate-limiting state, never economic state.
type SlidingWindow struct {
	mu      sync.Mutex
	entries map[string]*windowEntry

	window  time.Duration
	max     int
	maxKeys int
	now     func() time.Time
}

func NewSlidingWindow(window time.Duration, maxPerWindow int, now func() time.Time) *SlidingWindow {
	if window <= 0 {
		window = DefaultWindow
	}
	if maxPerWindow <= 0 {
		maxPerWindow = DefaultMaxPerWindow
	}
	if now == nil {
		now = time.Now
	}
	return &SlidingWindow{
		entries: make(map[string]*windowEntry),
		window:  window,
		max:     maxPerWindow,
		maxKeys: DefaultMaxTrackedKeys,
		now:     now,
	}
}

// Check counts the request and decides. It fails open: an internal panic is
// swallowed and the request allowed, because download availability must
// never depend on the guard's health.
func (w *SlidingWindow) Check(clientIP string, sessionID uint) (decision Decision) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("[RateGuard] internal error, failing open: %v", r)
			decision = Decision{Allowed: true}
		}
	}()

	key := fmt.Sprintf("%s|%d", clientIP, sessionID)
	now := w.now()

	w.mu.Lock()
	defer w.mu.Unlock()

	w.pruneLocked(now)

	entry, ok := w.entries[key]
	if !ok || now.Sub(entry.windowStart) >= w.window {
		if !ok && len(w.entries) >= w.maxKeys {
			// Table full: drop tracking rather than block downloads.
			return Decision{Allowed: true}
		}
		w.entries[key] = &windowEntry{count: 1, windowStart: now}
		return Decision{Allowed: true}
	}

	entry.count++
	if entry.count > w.max {
		remaining := w.window - now.Sub(entry.windowStart)
		retryAfter := int(remaining/time.Second) + 1
		return Decision{Allowed: false, RetryAfterSeconds: retryAfter}
	}
	return Decision{Allowed: true}
}

// pruneLocked lazily drops entries whose window has fully passed.
func (w *SlidingWindow) pruneLocked(now time.Time) {
	for key, entry := range w.entries {
		if now.Sub(entry.windowStart) >= w.window {
			delete(w.entries, key)
		}
	}
}

// botAgentPatterns are lowercase substrings of known script/bot agents.
var botAgentPatterns = []string{
	"bot", "spider", "crawler", "scrapy",
	"curl/", "wget/", "python-requests", "go-http-client", "httpclient",
}

// LooksLikeBot flags script-like user agents. Heuristic only: it feeds the
// suspicious-activity log and a warning flag, never a block.
func LooksLikeBot(userAgent string) bool {
	ua := strings.ToLower(strings.TrimSpace(userAgent))
	if ua == "" {
		return true
	}
	for _, pattern := range botAgentPatterns {
		if strings.Contains(ua, pattern) {
			return true
		}
	}
	return false
}
