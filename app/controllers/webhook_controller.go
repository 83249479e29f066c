package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/photoflare/galleria/internal/pkg/webhooks"
)

// SignatureHeader carries the gateway's HMAC over the raw request body.
const SignatureHeader = "X-Webhook-Signature"

// HandlePaymentWebhook is the gateway notification intake. The processor owns
// dedup and retry state; this handler only translates outcomes to statuses.
// Returning non-2xx makes the gateway redeliver, which is the desired signal
// for transient failures.
func HandlePaymentWebhook(c *fiber.Ctx) error {
	outcome, err := webhookProc.HandleDelivery(c.Context(), c.Body(), c.Get(SignatureHeader))

	switch {
	case errors.Is(err, webhooks.ErrBadSignature):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "INVALID_SIGNATURE", "message": "Signature verification failed",
		})
	case errors.Is(err, webhooks.ErrBadPayload):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "INVALID_PAYLOAD", "message": "Payload could not be decoded",
		})
	case errors.Is(err, webhooks.ErrNotYetDue):
		// Already scheduled; acknowledge so the gateway stops redelivering
		// ahead of our own backoff.
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": string(outcome)})
	}

	switch outcome {
	case webhooks.OutcomeProcessed, webhooks.OutcomeDuplicate, webhooks.OutcomeIgnored:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": string(outcome)})
	case webhooks.OutcomeRetrying:
		log.Warnf("[Webhooks] delivery deferred for retry: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": string(outcome)})
	default:
		log.Errorf("[Webhooks] delivery failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": string(webhooks.OutcomeFailed)})
	}
}
