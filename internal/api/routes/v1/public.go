package v1

import (
	"oncology-assist-backend/internal/handlers"

	"github.com/gofiber/fiber/v2"
)

func registerPublic(r fiber.Router, h *Handlers) {
	r.Get("/health", handlers.Health)
	r.Post("/login", h.Auth.Login)
	r.Post("/predict", h.Predict.Predict)
}
