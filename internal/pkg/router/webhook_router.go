package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/photoflare/galleria/app/controllers"
	"github.com/photoflare/galleria/internal/pkg/constants"
)

type WebhookRouter struct {
}

func NewWebhookRouter() *WebhookRouter {
	return &WebhookRouter{}
}

func (h *WebhookRouter) InstallRouter(app *fiber.App) {
	// Signature verification is the only auth on this route.
	app.Post(constants.PaymentWebhookRoute, controllers.HandlePaymentWebhook)
}
