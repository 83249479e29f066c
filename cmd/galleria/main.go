package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/photoflare/galleria/app/controllers"
	"github.com/photoflare/galleria/app/repository"
	"github.com/photoflare/galleria/internal/pkg/cache"
	"github.com/photoflare/galleria/internal/pkg/database"
	"github.com/photoflare/galleria/internal/pkg/downloads"
	"github.com/photoflare/galleria/internal/pkg/env"
	"github.com/photoflare/galleria/internal/pkg/metrics/counter"
	"github.com/photoflare/galleria/internal/pkg/payment"
	"github.com/photoflare/galleria/internal/pkg/pricing"
	"github.com/photoflare/galleria/internal/pkg/rateguard"
	"github.com/photoflare/galleria/internal/pkg/router"
	"github.com/photoflare/galleria/internal/pkg/storage"
	"github.com/photoflare/galleria/internal/pkg/webhooks"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	db := database.GetDB()
	repository.InitializeFactory(db)
	repos := repository.GetGlobalRepositories()

	locator, err := storage.NewS3LocatorFromEnv(context.Background())
	if err != nil {
		log.Fatalf("could not initialize asset storage: %v", err)
	}

	policies := pricing.NewStore(db)
	gateway := payment.NewGatewayClientFromEnv()
	checkoutService := payment.NewCheckoutService(db, policies, gateway)
	orchestrator := downloads.NewOrchestrator(db, policies, locator)
	processor := webhooks.NewProcessor(db, repos.Webhook,
		env.GetEnv("PAYMENT_WEBHOOK_SECRET", ""), webhooks.DefaultRetryConfig())

	controllers.Setup(orchestrator, checkoutService, processor, policies)

	// Background workers: webhook retry sweeper and download counter flusher.
	sweeper := webhooks.NewSweeper(processor, 30*time.Second, webhooks.DefaultSweepBatch)
	sweeper.Start()
	counter.StartFlusher(60*time.Second, make(chan struct{}))

	app := fiber.New(fiber.Config{
		BodyLimit: 1 << 20, // JSON API only, uploads go straight to storage
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "admin"),
		},
	}), monitor.New())

	// ROUTER
	router.InstallRouter(app, rateguard.NewSlidingWindow(rateguard.DefaultWindow, rateguard.DefaultMaxPerWindow, nil))

	return app
}
