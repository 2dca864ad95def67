package v1

import (
	"github.com/gofiber/fiber/v2"
)

func registerChat(r fiber.Router, h *Handlers) {
	r.Post("/chat", h.RequireAuth, h.Chat.Chat)
	r.Get("/chat/history", h.RequireAuth, h.Chat.History)
}
