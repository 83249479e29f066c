package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/photoflare/galleria/app/controllers"
	"github.com/photoflare/galleria/internal/pkg/constants"
	"github.com/photoflare/galleria/internal/pkg/middleware"
	"github.com/photoflare/galleria/internal/pkg/rateguard"
)

type ApiRouter struct {
	guard rateguard.Limiter
}

func NewApiRouter(guard rateguard.Limiter) *ApiRouter {
	return &ApiRouter{guard: guard}
}

func (h *ApiRouter) InstallRouter(app *fiber.App) {
	// Coarse per-IP limiter on the whole API group; the per-session sliding
	// window guard runs behind gallery access resolution.
	api := app.Group(constants.APIRoute, limiter.New(limiter.Config{Max: 300}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "galleria api",
		})
	})

	v1 := api.Group(constants.APIV1Route)

	// Client surface: access code resolves the gallery and the client key.
	gallery := v1.Group(constants.GalleryGroupRoute,
		middleware.GalleryAccessMiddleware(),
		middleware.RateGuardMiddleware(h.guard),
	)
	gallery.Get("/photos", controllers.HandleListPhotos)
	gallery.Post("/downloads", controllers.HandleRequestDownload)
	gallery.Post("/checkout", controllers.HandleCreateCheckout)
	gallery.Get("/quota", controllers.HandleQuotaStatus)

	// Token consumption is a bearer operation; the token itself is the
	// credential.
	v1.Get(constants.ConsumeTokenRoute, controllers.HandleConsumeToken)

	// Owner surface: basic auth against the users table, no access code.
	owner := v1.Group(constants.OwnerGalleryRoute, middleware.OwnerAuthMiddleware())
	owner.Post("/", controllers.HandleCreateGallery)
	owner.Post("/:slug/photos", controllers.HandleRegisterPhoto)
	owner.Get("/:slug/policy", controllers.HandleGetPolicy)
	owner.Put("/:slug/policy", controllers.HandleSetPolicy)
	owner.Get("/:slug/history", controllers.HandleDownloadHistory)
	owner.Get("/:slug/revenue", controllers.HandleRevenueSummary)
}
