package controllers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/photoflare/galleria/app/models"
	"github.com/photoflare/galleria/app/repository"
	"github.com/photoflare/galleria/internal/pkg/middleware"
	"github.com/photoflare/galleria/internal/pkg/shortener"
)

type createGalleryBody struct {
	Title      string     `json:"title"`
	AccessCode string     `json:"access_code"`
	ExpiresAt  *time.Time `json:"expires_at"`
}

type registerPhotoBody struct {
	FileName    string `json:"file_name"`
	StorageKey  string `json:"storage_key"`
	ContentType string `json:"content_type"`
	FileSize    int64  `json:"file_size"`
}

// HandleCreateGallery creates a new gallery session for the authenticated
// owner. The slug is generated server-side and never derived from the title.
func HandleCreateGallery(c *fiber.Ctx) error {
	owner := middleware.OwnerFromLocals(c)
	if owner == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "UNAUTHORIZED", "message": "Owner credentials required",
		})
	}

	var body createGalleryBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "BAD_REQUEST", "message": "malformed gallery body",
		})
	}
	body.Title = strings.TrimSpace(body.Title)
	if body.Title == "" || len(body.AccessCode) < 6 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "BAD_REQUEST", "message": "title and an access code of at least 6 characters are required",
		})
	}

	slug, err := shortener.GenerateSecureSlug(shortener.DefaultSlugLength)
	if err != nil {
		log.Errorf("[Gallery] slug generation failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "INTERNAL_ERROR", "message": "Could not create gallery",
		})
	}

	session := &models.GallerySession{
		Slug:           slug,
		OwnerID:        owner.ID,
		Title:          body.Title,
		AccessCodeHash: models.HashAccessCode(body.AccessCode),
		Status:         models.SessionStatusActive,
		ExpiresAt:      body.ExpiresAt,
	}
	if err := repository.GetGlobalRepositories().Session.Create(session); err != nil {
		log.Errorf("[Gallery] could not create session: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "INTERNAL_ERROR", "message": "Could not create gallery",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(session)
}

// HandleRegisterPhoto records a photo's metadata after its bytes were placed
// in object storage. Byte upload itself is not this service's concern.
func HandleRegisterPhoto(c *fiber.Ctx) error {
	session, _, err := resolveOwnedSession(c)
	if err != nil {
		return responseError(err)
	}

	var body registerPhotoBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "BAD_REQUEST", "message": "malformed photo body",
		})
	}
	if strings.TrimSpace(body.FileName) == "" || strings.TrimSpace(body.StorageKey) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "BAD_REQUEST", "message": "file_name and storage_key are required",
		})
	}

	photo := &models.Photo{
		UUID:        uuid.NewString(),
		SessionID:   session.ID,
		FileName:    body.FileName,
		StorageKey:  body.StorageKey,
		ContentType: body.ContentType,
		FileSize:    body.FileSize,
	}
	if err := repository.GetGlobalRepositories().Photo.Create(photo); err != nil {
		log.Errorf("[Gallery] could not register photo: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "INTERNAL_ERROR", "message": "Could not register photo",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(photo)
}

// HandleListPhotos lists a gallery's photos for the accessing client.
func HandleListPhotos(c *fiber.Ctx) error {
	session := middleware.SessionFromLocals(c)

	photos, err := repository.GetGlobalRepositories().Photo.GetBySessionID(session.ID)
	if err != nil {
		log.Errorf("[Gallery] photo listing failed for session %d: %v", session.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "INTERNAL_ERROR", "message": "Could not list photos",
		})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"gallery": fiber.Map{"slug": session.Slug, "title": session.Title},
		"photos":  photos,
	})
}
