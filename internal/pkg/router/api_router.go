package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	apiv1 "github.com/MartinHaas/LokalMarkt/internal/api/v1"
	"github.com/MartinHaas/LokalMarkt/internal/pkg/env"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())

	// API v1 routes, basic auth for support tooling
	v1 := api.Group("/v1", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("API_BASIC_AUTH_USER", "admin"): env.GetEnv("API_BASIC_AUTH_PASS", "admin"),
		},
	}))
	apiServer := apiv1.NewAPIServer()
	apiv1.RegisterHandlers(v1, apiServer)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
