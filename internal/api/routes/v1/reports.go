package v1

import (
	"github.com/gofiber/fiber/v2"
)

func registerReports(r fiber.Router, h *Handlers) {
	r.Post("/upload", h.RequireAuth, h.Reports.Upload)
	r.Get("/reports", h.RequireAuth, h.Reports.List)
	r.Get("/reports/:id", h.RequireAuth, h.Reports.Get)
}
