package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/photoflare/galleria/app/models"
	"github.com/photoflare/galleria/app/repository"
	"github.com/photoflare/galleria/internal/pkg/middleware"
	"github.com/photoflare/galleria/internal/pkg/pricing"
)

type policyRequestBody struct {
	Mode               string            `json:"mode"`
	PricePerPhotoCents int64             `json:"price_per_photo_cents"`
	FreeCount          int               `json:"free_count"`
	BulkTiers          []models.BulkTier `json:"bulk_tiers"`
	MaxPerClient       int               `json:"max_per_client"`
	MaxGlobal          int               `json:"max_global"`
	Currency           string            `json:"currency"`
}

// HandleGetPolicy returns the session's active policy, creating the free
// default if none was ever set.
func HandleGetPolicy(c *fiber.Ctx) error {
	session, _, err := resolveOwnedSession(c)
	if err != nil {
		return responseError(err)
	}

	policy, err := policyStore.GetPolicy(c.Context(), session.ID)
	if err != nil {
		log.Errorf("[Policy] lookup failed for session %d: %v", session.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "INTERNAL_ERROR", "message": "Could not load policy",
		})
	}
	return c.Status(fiber.StatusOK).JSON(policy)
}

// HandleSetPolicy replaces the session's policy. The whole policy is
// submitted every time; there is no partial patch path.
func HandleSetPolicy(c *fiber.Ctx) error {
	session, owner, err := resolveOwnedSession(c)
	if err != nil {
		return responseError(err)
	}

	var body policyRequestBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "BAD_REQUEST", "message": "malformed policy body",
		})
	}

	currency := strings.ToUpper(strings.TrimSpace(body.Currency))
	if currency == "" {
		currency = "EUR"
	}

	newPolicy := &models.PricingPolicy{
		Mode:               models.PolicyMode(body.Mode),
		PricePerPhotoCents: body.PricePerPhotoCents,
		FreeCount:          body.FreeCount,
		BulkTiers:          body.BulkTiers,
		MaxPerClient:       body.MaxPerClient,
		MaxGlobal:          body.MaxGlobal,
		Currency:           currency,
	}
	if !newPolicy.Mode.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "INVALID_POLICY", "message": "unknown policy mode " + body.Mode,
		})
	}

	stored, err := policyStore.SetPolicy(c.Context(), session.ID, owner.ID, newPolicy)
	if err != nil {
		return respondPolicyError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(stored)
}

func respondPolicyError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, pricing.ErrInvalidPolicy), errors.Is(err, pricing.ErrUnknownMode):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "INVALID_POLICY", "message": err.Error(),
		})
	case errors.Is(err, pricing.ErrPolicyNotOwned):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "FORBIDDEN", "message": "You do not own this gallery",
		})
	case errors.Is(err, pricing.ErrSessionNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "SESSION_NOT_FOUND", "message": "Unknown gallery",
		})
	}
	log.Errorf("[Policy] update failed: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "INTERNAL_ERROR", "message": "Could not store policy",
	})
}

// errResponded marks failures where resolveOwnedSession already wrote the
// response; handlers must return nil so fiber does not double-render.
var errResponded = errors.New("controllers: response already written")

func responseError(err error) error {
	if errors.Is(err, errResponded) {
		return nil
	}
	return err
}

// resolveOwnedSession loads the slug's session for an owner-authenticated
// route and asserts ownership. On errResponded the response is already on
// the wire.
func resolveOwnedSession(c *fiber.Ctx) (*models.GallerySession, *models.User, error) {
	owner := middleware.OwnerFromLocals(c)
	if owner == nil {
		_ = c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "UNAUTHORIZED", "message": "Owner credentials required",
		})
		return nil, nil, errResponded
	}

	slug := strings.TrimSpace(c.Params("slug"))
	session, err := repository.GetGlobalRepositories().Session.GetBySlug(slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "SESSION_NOT_FOUND", "message": "Unknown gallery",
			})
			return nil, nil, errResponded
		}
		log.Errorf("[Policy] session lookup failed: %v", err)
		_ = c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "INTERNAL_ERROR", "message": "Gallery lookup failed",
		})
		return nil, nil, errResponded
	}
	if session.OwnerID != owner.ID && owner.Role != models.ROLE_ADMIN {
		_ = c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "FORBIDDEN", "message": "You do not own this gallery",
		})
		return nil, nil, errResponded
	}
	return session, owner, nil
}
