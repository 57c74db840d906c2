package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/MartinHaas/LokalMarkt/app/controllers"
	"github.com/MartinHaas/LokalMarkt/internal/pkg/database"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// Webhook endpoint. No auth middleware here: the signature check in
	// the billing service is the authentication.
	app.Post("/webhooks/stripe", controllers.HandleStripeWebhook)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		if db := database.GetDB(); db != nil {
			if sqlDB, err := db.DB(); err != nil || sqlDB.Ping() != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded"})
			}
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
