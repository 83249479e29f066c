package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/photoflare/galleria/internal/pkg/downloads"
	"github.com/photoflare/galleria/internal/pkg/payment"
	"github.com/photoflare/galleria/internal/pkg/pricing"
	"github.com/photoflare/galleria/internal/pkg/webhooks"
)

var (
	orchestrator    *downloads.Orchestrator
	checkoutService *payment.CheckoutService
	webhookProc     *webhooks.Processor
	policyStore     *pricing.Store
)

// Setup wires the controller package to its services. Called once from the
// application bootstrap before routes are installed.
func Setup(o *downloads.Orchestrator, c *payment.CheckoutService, w *webhooks.Processor, p *pricing.Store) {
	orchestrator = o
	checkoutService = c
	webhookProc = w
	policyStore = p
}

// statusForCode maps orchestrator failure codes to HTTP statuses.
func statusForCode(code downloads.Code) int {
	switch code {
	case downloads.CodeSessionNotFound, downloads.CodePhotoNotFound:
		return fiber.StatusNotFound
	case downloads.CodeInvalidToken, downloads.CodeExpiredAccess:
		return fiber.StatusForbidden
	case downloads.CodeTokenInvalid, downloads.CodeTokenExpired, downloads.CodeTokenAlreadyUsed:
		return fiber.StatusGone
	case downloads.CodeRateLimitExceeded:
		return fiber.StatusTooManyRequests
	case downloads.CodeUnavailable:
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

// respondDownloadError renders the fixed error codes, including the
// structured payment-required response which is an outcome, not a fault.
func respondDownloadError(c *fiber.Ctx, err error) error {
	var paymentErr *downloads.PaymentRequiredError
	if errors.As(err, &paymentErr) {
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"error":        string(downloads.CodePaymentRequired),
			"message":      "Payment is required for this download",
			"amount_cents": paymentErr.AmountCents,
			"currency":     paymentErr.Currency,
			"mode":         paymentErr.Mode,
			"quota":        paymentErr.Quota,
		})
	}

	var coded *downloads.CodedError
	if errors.As(err, &coded) {
		return c.Status(statusForCode(coded.Code)).JSON(fiber.Map{
			"error":   string(coded.Code),
			"message": coded.Message,
		})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":   string(downloads.CodeInternal),
		"message": "Internal error",
	})
}
