package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/photoflare/galleria/app/repository"
	"github.com/photoflare/galleria/internal/pkg/downloads"
	"github.com/photoflare/galleria/internal/pkg/middleware"
)

type downloadRequestBody struct {
	PhotoUUID string `json:"photo_uuid"`
}

// HandleRequestDownload issues a download token for one photo, or a
// structured payment-required response when the policy demands payment.
func HandleRequestDownload(c *fiber.Ctx) error {
	session := middleware.SessionFromLocals(c)
	clientKey := middleware.ClientKeyFromLocals(c)

	var body downloadRequestBody
	if err := c.BodyParser(&body); err != nil || strings.TrimSpace(body.PhotoUUID) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "BAD_REQUEST", "message": "photo_uuid is required",
		})
	}

	photo, err := repository.GetGlobalRepositories().Photo.GetByUUID(body.PhotoUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": string(downloads.CodePhotoNotFound), "message": "Unknown photo",
			})
		}
		log.Errorf("[Downloads] photo lookup failed: %v", err)
		return respondDownloadError(c, err)
	}
	if photo.SessionID != session.ID {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": string(downloads.CodePhotoNotFound), "message": "Photo is not part of this gallery",
		})
	}

	grant, err := orchestrator.RequestDownload(c.Context(), downloads.Request{
		Session:   session,
		Photo:     photo,
		ClientKey: clientKey,
		ClientIP:  c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	})
	if err != nil {
		return respondDownloadError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"token":      grant.Token,
		"expires_at": grant.ExpiresAt,
		"quota":      grant.Quota,
	})
}

// HandleConsumeToken spends a download token and redirects to the asset
// location. Exactly one of two concurrent calls on the same token wins.
func HandleConsumeToken(c *fiber.Ctx) error {
	tokenValue := strings.TrimSpace(c.Params("token"))
	if tokenValue == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": string(downloads.CodeTokenInvalid), "message": "Token is required",
		})
	}

	location, err := orchestrator.ConsumeToken(c.Context(), tokenValue, c.IP(), c.Get(fiber.HeaderUserAgent))
	if err != nil {
		return respondDownloadError(c, err)
	}

	return c.Redirect(location, fiber.StatusFound)
}

// HandleQuotaStatus reports free-tier usage for the requesting client.
func HandleQuotaStatus(c *fiber.Ctx) error {
	session := middleware.SessionFromLocals(c)
	clientKey := middleware.ClientKeyFromLocals(c)

	quota, err := orchestrator.QuotaStatus(c.Context(), session.ID, clientKey)
	if err != nil {
		return respondDownloadError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(quota)
}
