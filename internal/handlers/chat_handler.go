package handlers

import (
	"context"
	"strings"

	"oncology-assist-backend/internal/auth"
	"oncology-assist-backend/internal/models"
	"oncology-assist-backend/internal/oncology/prompts"
	"oncology-assist-backend/internal/oncology/supervisor"
	"oncology-assist-backend/internal/repo"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type QueryRouter interface {
	Route(ctx context.Context, req supervisor.Request) (*supervisor.Result, error)
}

type ChatHandler struct {
	router   QueryRouter
	chatRepo repo.ChatHistoryRepoInterface
	log      *logrus.Logger
}

func NewChatHandler(router QueryRouter, chatRepo repo.ChatHistoryRepoInterface, log *logrus.Logger) *ChatHandler {
	return &ChatHandler{router: router, chatRepo: chatRepo, log: log}
}

type chatRequest struct {
	Query          string   `json:"query"`
	AuxiliaryScore *float64 `json:"auxiliary_score"`
	ImageReference string   `json:"image_reference"`
}

// Chat answers a query through the supervisor and records the exchange.
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	identity, ok := auth.FromCtx(c)
	if !ok {
		return detail(c, fiber.StatusUnauthorized, "Missing bearer token")
	}

	var dto chatRequest
	if err := c.BodyParser(&dto); err != nil {
		return detail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	query := strings.TrimSpace(dto.Query)
	if query == "" {
		return detail(c, fiber.StatusBadRequest, "Query cannot be empty")
	}

	entry := h.log.WithField("user_id", identity.ID)
	result, err := h.router.Route(c.UserContext(), supervisor.Request{
		Query:          query,
		AuxiliaryScore: dto.AuxiliaryScore,
		ImageReference: strings.TrimSpace(dto.ImageReference),
		Role:           identity.Role,
	})
	if err != nil {
		entry.WithError(err).Error("chat failed")
		return detail(c, fiber.StatusInternalServerError, errorDetail(err))
	}

	_, err = h.chatRepo.CreateExchange(c.UserContext(), identity.ID, query, result.Text, models.ChatMetadata{
		Route:          result.Route,
		AuxiliaryScore: dto.AuxiliaryScore,
		ImageReference: strings.TrimSpace(dto.ImageReference),
	})
	if err != nil {
		entry.WithError(err).Error("failed to save chat history")
		return detail(c, fiber.StatusInternalServerError, "Failed to save chat history")
	}

	entry.WithField("route", result.Route).Info("chat answered")
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"response":   result.Text,
		"disclaimer": prompts.Disclaimer,
	})
}

// History returns the caller's latest exchanges, newest first.
func (h *ChatHandler) History(c *fiber.Ctx) error {
	identity, ok := auth.FromCtx(c)
	if !ok {
		return detail(c, fiber.StatusUnauthorized, "Missing bearer token")
	}

	limit := c.QueryInt("limit", repo.DefaultHistoryLimit)
	rows, err := h.chatRepo.GetLatestByUser(c.UserContext(), identity.ID, limit)
	if err != nil {
		h.log.WithError(err).Error("failed to get chat history")
		return detail(c, fiber.StatusInternalServerError, "Failed to get chat history")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"history": rows,
	})
}
