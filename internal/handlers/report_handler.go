package handlers

import (
	"context"
	"io"

	"oncology-assist-backend/internal/auth"
	"oncology-assist-backend/internal/models"
	"oncology-assist-backend/internal/reports"
	"oncology-assist-backend/internal/repo"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type ReportService interface {
	Upload(ctx context.Context, userID string, role models.UserRole, up reports.Upload) (*reports.UploadResult, error)
	List(ctx context.Context, userID string) ([]models.Report, error)
	Get(ctx context.Context, userID string, id uint) (*models.Report, error)
}

type ReportHandler struct {
	service ReportService
	log     *logrus.Logger
}

func NewReportHandler(service ReportService, log *logrus.Logger) *ReportHandler {
	return &ReportHandler{service: service, log: log}
}

// Upload accepts a multipart "file" and starts its analysis in the background.
func (h *ReportHandler) Upload(c *fiber.Ctx) error {
	identity, ok := auth.FromCtx(c)
	if !ok {
		return detail(c, fiber.StatusUnauthorized, "Missing bearer token")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return detail(c, fiber.StatusBadRequest, "No file provided")
	}

	result, err := h.service.Upload(c.UserContext(), identity.ID, identity.Role, reports.Upload{
		FileName:    file.Filename,
		ContentType: file.Header.Get(fiber.HeaderContentType),
		Size:        file.Size,
		Open: func() (io.ReadCloser, error) {
			return file.Open()
		},
	})
	switch {
	case errors.Is(err, reports.ErrInvalidFileType):
		return detail(c, fiber.StatusBadRequest, "Invalid file type. Only PDF, JPEG, and PNG are allowed.")
	case errors.Is(err, reports.ErrFileTooLarge):
		return detail(c, fiber.StatusBadRequest, "File too large")
	case err != nil:
		h.log.WithError(err).WithField("user_id", identity.ID).Error("upload failed")
		return detail(c, fiber.StatusInternalServerError, "Failed to upload report")
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *ReportHandler) List(c *fiber.Ctx) error {
	identity, ok := auth.FromCtx(c)
	if !ok {
		return detail(c, fiber.StatusUnauthorized, "Missing bearer token")
	}

	list, err := h.service.List(c.UserContext(), identity.ID)
	if err != nil {
		h.log.WithError(err).Error("failed to list reports")
		return detail(c, fiber.StatusInternalServerError, "Failed to get reports")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"reports": list,
	})
}

// Get returns one of the caller's reports. Other users' reports are reported
// as missing.
func (h *ReportHandler) Get(c *fiber.Ctx) error {
	identity, ok := auth.FromCtx(c)
	if !ok {
		return detail(c, fiber.StatusUnauthorized, "Missing bearer token")
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return detail(c, fiber.StatusBadRequest, "Invalid report ID")
	}

	report, err := h.service.Get(c.UserContext(), identity.ID, uint(id))
	if errors.Is(err, repo.ErrReportNotFound) {
		return detail(c, fiber.StatusNotFound, "Report not found")
	}
	if err != nil {
		h.log.WithError(err).Error("failed to get report")
		return detail(c, fiber.StatusInternalServerError, "Failed to get report")
	}
	return c.Status(fiber.StatusOK).JSON(report)
}
