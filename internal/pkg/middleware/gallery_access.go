package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/photoflare/galleria/app/models"
	"github.com/photoflare/galleria/app/repository"
	"github.com/photoflare/galleria/internal/pkg/clientkey"
	"github.com/photoflare/galleria/internal/pkg/env"
)

// Locals keys set by GalleryAccessMiddleware.
const (
	LocalSession   = "gallery_session"
	LocalClientKey = "client_key"
)

// GalleryAccessMiddleware resolves the :slug route parameter and the access
// code header to a gallery session and a derived client key. It fails
// closed: no valid credential, no handler.
func GalleryAccessMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		slug := strings.TrimSpace(c.Params("slug"))
		if slug == "" {
			return accessError(c, fiber.StatusNotFound, "SESSION_NOT_FOUND", "Unknown gallery")
		}

		repo := repository.GetGlobalRepositories().Session
		session, err := repo.GetBySlug(slug)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return accessError(c, fiber.StatusNotFound, "SESSION_NOT_FOUND", "Unknown gallery")
			}
			log.Errorf("[Access] session lookup failed: %v", err)
			return accessError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Gallery lookup failed")
		}

		if session.Status != models.SessionStatusActive || session.IsExpired(time.Now()) {
			return accessError(c, fiber.StatusForbidden, "EXPIRED_ACCESS", "Gallery access has expired")
		}

		accessCode := extractAccessCode(c)
		if accessCode == "" || models.HashAccessCode(accessCode) != session.AccessCodeHash {
			return accessError(c, fiber.StatusForbidden, "INVALID_TOKEN", "Invalid access code")
		}

		key, err := clientkey.Derive(accessCode, session.ID, env.GetEnv("CLIENT_KEY_SECRET", ""))
		if err != nil {
			log.Errorf("[Access] client key derivation failed: %v", err)
			return accessError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Access resolution failed")
		}

		c.Locals(LocalSession, session)
		c.Locals(LocalClientKey, key)
		return c.Next()
	}
}

func extractAccessCode(c *fiber.Ctx) string {
	if code := strings.TrimSpace(c.Get("X-Gallery-Access-Code")); code != "" {
		return code
	}
	return strings.TrimSpace(c.Query("access_code"))
}

func accessError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}

// SessionFromLocals returns the resolved session or nil.
func SessionFromLocals(c *fiber.Ctx) *models.GallerySession {
	session, _ := c.Locals(LocalSession).(*models.GallerySession)
	return session
}

// ClientKeyFromLocals returns the derived client key or empty.
func ClientKeyFromLocals(c *fiber.Ctx) string {
	key, _ := c.Locals(LocalClientKey).(string)
	return key
}
