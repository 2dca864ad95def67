package handlers

import (
	"oncology-assist-backend/internal/oncology/agents"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
)

func detail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{
		"detail": msg,
	})
}

// errorDetail renders an analysis failure by its cause, without the stage.
func errorDetail(err error) string {
	var ae *agents.AnalysisError
	if errors.As(err, &ae) {
		return ae.Err.Error()
	}
	return err.Error()
}
