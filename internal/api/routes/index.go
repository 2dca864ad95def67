package routes

import (
	v1 "oncology-assist-backend/internal/api/routes/v1"

	"github.com/gofiber/fiber/v2"
)

// Register mounts the API at the root, where existing clients call it, and
// under /api/v1.
func Register(app *fiber.App, h *v1.Handlers) {
	v1.RegisterRoutes(app, h)

	api := app.Group("/api")
	v1.RegisterRoutes(api.Group("/v1"), h)
}
