package v1

import (
	"oncology-assist-backend/internal/handlers"

	"github.com/gofiber/fiber/v2"
)

// Handlers is everything the routes need. RequireAuth guards the per-user
// endpoints.
type Handlers struct {
	Chat        *handlers.ChatHandler
	Reports     *handlers.ReportHandler
	Predict     *handlers.PredictHandler
	Auth        *handlers.AuthHandler
	RequireAuth fiber.Handler
}

func RegisterRoutes(r fiber.Router, h *Handlers) {
	registerPublic(r, h)
	registerChat(r, h)
	registerReports(r, h)
}
