package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/photoflare/galleria/internal/pkg/rateguard"
)

// Router installs a group of routes on the fiber app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// InstallRouter wires every route group. The webhook router comes first so
// gateway deliveries never pass through client middleware.
func InstallRouter(app *fiber.App, guard rateguard.Limiter) {
	setup(app, NewWebhookRouter(), NewApiRouter(guard))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
