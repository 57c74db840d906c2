package main

import (
	"fmt"
	"log"

	"github.com/gofiber/contrib/swagger"

	"github.com/MartinHaas/LokalMarkt/app/controllers"
	"github.com/MartinHaas/LokalMarkt/internal/pkg/billing"
	"github.com/MartinHaas/LokalMarkt/internal/pkg/cache"
	"github.com/MartinHaas/LokalMarkt/internal/pkg/database"
	"github.com/MartinHaas/LokalMarkt/internal/pkg/env"
	"github.com/MartinHaas/LokalMarkt/internal/pkg/jobqueue"
	"github.com/MartinHaas/LokalMarkt/internal/pkg/notify"
	"github.com/MartinHaas/LokalMarkt/internal/pkg/router"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
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

	// Notification workers
	jobqueue.GetManager().Start()

	// BILLING
	notifier := notify.NewQueueNotifier(jobqueue.GetManager().GetQueue())
	billingService := billing.NewServiceFromDB(database.GetDB(), notifier, billing.NewConfigFromEnv())
	controllers.InitializeBillingController(billingService)

	app := fiber.New(fiber.Config{
		BodyLimit: 1048576, // 1 MiB, webhook payloads are small
	})
	app.Use(recover.New(), logger.New())
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASS", "admin"),
		},
	}), monitor.New())

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: "./public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app)

	return app
}
