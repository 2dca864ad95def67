package handlers

import (
	"context"

	"oncology-assist-backend/internal/inference"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Predictor interface {
	Predict(ctx context.Context, req inference.PredictRequest) (interface{}, error)
}

type PredictHandler struct {
	predictor Predictor
	log       *logrus.Logger
}

func NewPredictHandler(predictor Predictor, log *logrus.Logger) *PredictHandler {
	return &PredictHandler{predictor: predictor, log: log}
}

func (h *PredictHandler) Predict(c *fiber.Ctx) error {
	var req inference.PredictRequest
	if err := c.BodyParser(&req); err != nil {
		return detail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	prediction, err := h.predictor.Predict(c.UserContext(), req)
	if errors.Is(err, inference.ErrInvalidRequest) {
		return detail(c, fiber.StatusUnprocessableEntity, err.Error())
	}
	if err != nil {
		h.log.WithError(err).Error("prediction failed")
		return detail(c, fiber.StatusInternalServerError, errorDetail(err))
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"prediction": prediction,
	})
}
