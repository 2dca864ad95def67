package repo

import (
	"context"
	"time"

	"oncology-assist-backend/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var ErrReportNotFound = errors.New("report not found")

// ReportRepo represents the repository for uploaded reports
type ReportRepo struct {
	db *gorm.DB
}

type ReportRepoInterface interface {
	CreateProcessing(ctx context.Context, report *models.Report) (uint, error)
	FinishAnalysis(ctx context.Context, id uint, status models.ReportStatus, result string) (bool, error)
	GetForUser(ctx context.Context, userID string, id uint) (*models.Report, error)
	ListForUser(ctx context.Context, userID string) ([]models.Report, error)
}

func NewReportRepository(db *gorm.DB) ReportRepoInterface {
	return &ReportRepo{db: db}
}

// CreateProcessing inserts the report with status processing and returns its id.
func (r *ReportRepo) CreateProcessing(ctx context.Context, report *models.Report) (uint, error) {
	report.ID = 0
	report.Status = models.ReportProcessing
	report.AIResult = nil
	report.CreatedAt = time.Now()
	report.UpdatedAt = report.CreatedAt
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		return 0, errors.Wrap(err, "insert report")
	}
	return report.ID, nil
}

// FinishAnalysis moves a processing report to a terminal status. It reports
// false when the row was not processing anymore, so a report is finished at
// most once.
func (r *ReportRepo) FinishAnalysis(ctx context.Context, id uint, status models.ReportStatus, result string) (bool, error) {
	if !status.Terminal() {
		return false, errors.Errorf("status %q is not terminal", status)
	}
	res := r.db.WithContext(ctx).
		Model(&models.Report{}).
		Where("id = ? AND status = ?", id, models.ReportProcessing).
		Updates(map[string]interface{}{
			"status":     status,
			"ai_result":  result,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, errors.Wrapf(res.Error, "finish report %d", id)
	}
	return res.RowsAffected == 1, nil
}

func (r *ReportRepo) GetForUser(ctx context.Context, userID string, id uint) (*models.Report, error) {
	var report models.Report
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get report %d", id)
	}
	return &report, nil
}

// ListForUser returns the caller's reports, newest first.
func (r *ReportRepo) ListForUser(ctx context.Context, userID string) ([]models.Report, error) {
	var reports []models.Report
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc").Find(&reports).Error
	if err != nil {
		return nil, errors.Wrap(err, "list reports")
	}
	return reports, nil
}
