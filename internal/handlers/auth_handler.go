package handlers

import (
	"context"
	"strings"

	"oncology-assist-backend/internal/libraries"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type LoginService interface {
	Login(ctx context.Context, email, password string) (string, error)
}

type AuthHandler struct {
	login LoginService
	log   *logrus.Logger
}

// NewAuthHandler builds the login handler. A nil service disables login.
func NewAuthHandler(login LoginService, log *logrus.Logger) *AuthHandler {
	return &AuthHandler{login: login, log: log}
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	if h.login == nil {
		return detail(c, fiber.StatusServiceUnavailable, "Login is not configured")
	}

	var dto struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&dto); err != nil {
		return detail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	email := strings.TrimSpace(dto.Email)
	if email == "" || dto.Password == "" {
		return detail(c, fiber.StatusBadRequest, "Email and password are required")
	}

	token, err := h.login.Login(c.UserContext(), email, dto.Password)
	if err != nil {
		if !errors.Is(err, libraries.ErrInvalidCredentials) {
			h.log.WithError(err).Error("login request failed")
		}
		return detail(c, fiber.StatusUnauthorized, "Invalid email or password")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"access_token": token,
	})
}
