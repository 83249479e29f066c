package middleware

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/photoflare/galleria/app/models"
	"github.com/photoflare/galleria/app/repository"
	"github.com/photoflare/galleria/internal/pkg/metrics/counter"
	"github.com/photoflare/galleria/internal/pkg/rateguard"
)

// RateGuardMiddleware consults the abuse guard before any download or
// checkout flow. Must run after GalleryAccessMiddleware. Internal guard
// failures fail open; a broken limiter must never block downloads.
func RateGuardMiddleware(limiter rateguard.Limiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session := SessionFromLocals(c)
		if session == nil {
			return c.Next()
		}

		decision := limiter.Check(c.IP(), session.ID)
		botSuspected := rateguard.LooksLikeBot(c.Get(fiber.HeaderUserAgent))

		if !decision.Allowed {
			counter.AddRateLimitTripped()
			logSuspicious(session.ID, c.IP(), models.SuspicionRateLimit, c.Get(fiber.HeaderUserAgent))
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(decision.RetryAfterSeconds))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":               "RATE_LIMIT_EXCEEDED",
				"message":             "Too many requests, slow down",
				"retry_after_seconds": decision.RetryAfterSeconds,
			})
		}

		if botSuspected {
			logSuspicious(session.ID, c.IP(), models.SuspicionBotAgent, c.Get(fiber.HeaderUserAgent))
			c.Locals("bot_suspected", true)
		}

		return c.Next()
	}
}

func logSuspicious(sessionID uint, clientIP, kind, userAgent string) {
	err := repository.GetGlobalRepositories().Suspicious.Create(&models.SuspiciousActivity{
		SessionID: sessionID,
		ClientIP:  clientIP,
		Kind:      kind,
		UserAgent: userAgent,
	})
	if err != nil {
		log.Warnf("[RateGuard] could not log suspicious activity: %v", err)
	}
}
