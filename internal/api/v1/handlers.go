package apiv1

import (
	"github.com/gofiber/fiber/v2"

	// Delegate to existing controllers to keep behavior consistent
	"github.com/MartinHaas/LokalMarkt/app/controllers"
)

// APIServer carries the v1 API handlers.
type APIServer struct{}

// NewAPIServer creates a new API server instance
func NewAPIServer() *APIServer {
	return &APIServer{}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"ping": "pong",
	})
}

// GetBillingEvents returns the billing audit trail of one user.
// Security is enforced via basic auth middleware attached in the router.
func (s *APIServer) GetBillingEvents(c *fiber.Ctx) error {
	return controllers.HandleListBillingEvents(c)
}

// RegisterHandlers attaches the v1 routes to the given group.
func RegisterHandlers(v1 fiber.Router, s *APIServer) {
	v1.Get("/ping", s.GetPing)
	v1.Get("/billing/events/:userID", s.GetBillingEvents)
}
