package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/photoflare/galleria/app/repository"
	"github.com/photoflare/galleria/internal/pkg/middleware"
	"github.com/photoflare/galleria/internal/pkg/payment"
	"github.com/photoflare/galleria/internal/pkg/pricing"
)

type checkoutRequestBody struct {
	Items []struct {
		PhotoUUID  string `json:"photo_uuid"`
		PriceCents int64  `json:"price_cents"`
	} `json:"items"`
}

// HandleCreateCheckout turns a client item selection into free grants, a
// gateway checkout URL, or both. Prices are recomputed server-side; the
// submitted ones are only checked for tampering.
func HandleCreateCheckout(c *fiber.Ctx) error {
	session := middleware.SessionFromLocals(c)
	clientKey := middleware.ClientKeyFromLocals(c)

	var body checkoutRequestBody
	if err := c.BodyParser(&body); err != nil || len(body.Items) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "BAD_REQUEST", "message": "items is required",
		})
	}

	photos := repository.GetGlobalRepositories().Photo
	items := make([]payment.CheckoutItem, 0, len(body.Items))
	for _, item := range body.Items {
		photo, err := photos.GetByUUID(item.PhotoUUID)
		if err != nil || photo.SessionID != session.ID {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "PHOTO_NOT_FOUND", "message": "Unknown photo " + item.PhotoUUID,
			})
		}
		items = append(items, payment.CheckoutItem{PhotoID: photo.ID, PriceCents: item.PriceCents})
	}

	result, err := checkoutService.CreateCheckout(c.Context(), payment.CheckoutInput{
		SessionID: session.ID,
		ClientKey: clientKey,
		Items:     items,
	})
	if err != nil {
		return respondCheckoutError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

func respondCheckoutError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, pricing.ErrPriceMismatch):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "PRICE_MISMATCH", "message": "Submitted prices do not match the current policy",
		})
	case errors.Is(err, pricing.ErrNothingPayable):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "NOTHING_PAYABLE", "message": "Nothing to check out",
		})
	case errors.Is(err, pricing.ErrUnknownMode), errors.Is(err, pricing.ErrInvalidPolicy):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "POLICY_INVALID", "message": "The gallery's pricing policy cannot be checked out against",
		})
	}
	log.Errorf("[Checkout] checkout failed: %v", err)
	return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
		"error": "CHECKOUT_FAILED", "message": "Could not create checkout, try again later",
	})
}
