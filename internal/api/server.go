package api

import (
	"context"
	"time"

	"oncology-assist-backend/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// multipart framing on top of the largest accepted file
const bodyLimitSlack = 1 << 20

func NewServer(cfg *config.Config, log *logrus.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          customErrorHandler(log),
		AppName:               "Oncology Assist Backend",
		BodyLimit:             int(cfg.MaxUploadBytes) + bodyLimitSlack,
		DisableStartupMessage: true,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Output: log.Writer(),
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	return app
}

func customErrorHandler(log *logrus.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := "Internal server error"

		var e *fiber.Error
		if errors.As(err, &e) {
			code = e.Code
			msg = e.Message
		}
		// fasthttp rejects bodies over BodyLimit before any handler runs
		if code == fiber.StatusRequestEntityTooLarge {
			code = fiber.StatusBadRequest
			msg = "File too large"
		}

		log.WithError(err).WithFields(logrus.Fields{
			"method": c.Method(),
			"path":   c.Path(),
			"status": code,
		}).Error("request failed")

		return c.Status(code).JSON(fiber.Map{
			"detail": msg,
		})
	}
}

// StartServer listens on port until ctx is cancelled, then shuts the server
// down, giving in-flight requests up to grace to finish.
func StartServer(ctx context.Context, app *fiber.App, port string, grace time.Duration, log *logrus.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", port).Info("server starting")
		errCh <- app.Listen(":" + port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	if err := app.ShutdownWithTimeout(grace); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return nil
}
