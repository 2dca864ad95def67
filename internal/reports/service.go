// Package reports runs the upload pipeline: validate, store, record and hand
// the document to the background analysis worker.
package reports

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"unicode"

	"oncology-assist-backend/internal/extractor"
	"oncology-assist-backend/internal/libraries"
	"oncology-assist-backend/internal/models"
	"oncology-assist-backend/internal/oncology/agents"
	"oncology-assist-backend/internal/repo"
	"oncology-assist-backend/internal/worker"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidFileType = errors.New("invalid file type")
	ErrFileTooLarge    = errors.New("file too large")
)

const (
	MockReportID      = 999
	MockUploadMessage = "Report uploaded successfully. (Mock Response)"
	MockSummary       = "This is a dummy AI summary generated in mock testing mode. MOCK_ABNORMALITIES_DETECTED."

	uploadMessage       = "Report uploaded. AI analysis started."
	notScheduledMessage = "Report uploaded. AI analysis could not be started."
)

var allowedContentTypes = map[string]bool{
	extractor.ContentTypePDF:  true,
	extractor.ContentTypeJPEG: true,
	extractor.ContentTypePNG:  true,
}

// Upload is a file received from a client. Open is called at most once.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

type UploadResult struct {
	Message         string              `json:"message"`
	ReportID        uint                `json:"report_id"`
	Status          models.ReportStatus `json:"status"`
	Summary         string              `json:"summary,omitempty"`
	AbnormalMarkers []string            `json:"abnormalMarkers,omitempty"`
}

func MockUploadResult() *UploadResult {
	return &UploadResult{
		Message:         MockUploadMessage,
		ReportID:        MockReportID,
		Status:          models.ReportAnalyzed,
		Summary:         MockSummary,
		AbnormalMarkers: []string{"Elevated dummy marker X"},
	}
}

type TextExtractor interface {
	Extract(ctx context.Context, contentType string, data []byte) (string, error)
}

type Analyzer interface {
	AnalyzeCase(ctx context.Context, in agents.CaseInput) (string, error)
}

type JobQueue interface {
	Enqueue(job worker.Job) error
}

type Deps struct {
	Repo       repo.ReportRepoInterface
	Store      libraries.FileStore
	Extractor  TextExtractor
	Analyzer   Analyzer
	Queue      JobQueue
	MaxBytes   int64
	MockUserID string
	Log        *logrus.Logger
}

type Service struct {
	repo       repo.ReportRepoInterface
	store      libraries.FileStore
	extractor  TextExtractor
	analyzer   Analyzer
	queue      JobQueue
	maxBytes   int64
	mockUserID string
	log        *logrus.Logger
}

func NewService(d Deps) *Service {
	return &Service{
		repo:       d.Repo,
		store:      d.Store,
		extractor:  d.Extractor,
		analyzer:   d.Analyzer,
		queue:      d.Queue,
		maxBytes:   d.MaxBytes,
		mockUserID: d.MockUserID,
		log:        d.Log,
	}
}

// Upload validates and stores the file, records a processing report and
// schedules its analysis. The analysis outcome is only visible through the
// report row.
func (s *Service) Upload(ctx context.Context, userID string, role models.UserRole, up Upload) (*UploadResult, error) {
	contentType := NormaliseContentType(up.ContentType)
	if !allowedContentTypes[contentType] {
		return nil, ErrInvalidFileType
	}
	if up.Size > s.maxBytes {
		return nil, ErrFileTooLarge
	}
	if s.mockUserID != "" && userID == s.mockUserID {
		return MockUploadResult(), nil
	}

	data, err := s.read(up)
	if err != nil {
		return nil, err
	}

	name := SanitizeFileName(up.FileName)
	location, err := s.store.Save(ctx, StorageKey(userID, uuid.NewString(), name), data, contentType)
	if err != nil {
		return nil, errors.Wrap(err, "store upload")
	}

	id, err := s.repo.CreateProcessing(ctx, &models.Report{
		UserID:      userID,
		Role:        role,
		FilePath:    location,
		FileName:    name,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
	})
	if err != nil {
		if derr := s.store.Delete(context.Background(), location); derr != nil {
			s.log.WithError(derr).WithField("location", location).Error("failed to remove orphaned upload")
		}
		return nil, err
	}

	task := Task{ReportID: id, Location: location, ContentType: contentType, Role: role}
	if err := s.queue.Enqueue(func(ctx context.Context) { s.Analyze(ctx, task) }); err != nil {
		s.log.WithError(err).WithField("report_id", id).Error("failed to schedule analysis")
		s.finish(context.Background(), id, models.ReportFailed, "analysis could not be scheduled: "+err.Error())
		return &UploadResult{Message: notScheduledMessage, ReportID: id, Status: models.ReportFailed}, nil
	}

	s.log.WithFields(logrus.Fields{"report_id": id, "user_id": userID}).Info("report uploaded")
	return &UploadResult{Message: uploadMessage, ReportID: id, Status: models.ReportProcessing}, nil
}

// read enforces the size limit on the bytes actually received, the declared
// size can be wrong.
func (s *Service) read(up Upload) ([]byte, error) {
	rc, err := up.Open()
	if err != nil {
		return nil, errors.Wrap(err, "open upload")
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(rc, s.maxBytes+1)); err != nil {
		return nil, errors.Wrap(err, "read upload")
	}
	if int64(buf.Len()) > s.maxBytes {
		return nil, ErrFileTooLarge
	}
	return buf.Bytes(), nil
}

// Task is one scheduled report analysis.
type Task struct {
	ReportID    uint
	Location    string
	ContentType string
	Role        models.UserRole
}

// Analyze runs the analysis for a processing report and records the outcome.
// It never returns an error: every failure, panics included, ends as a failed
// report.
func (s *Service) Analyze(ctx context.Context, task Task) {
	entry := s.log.WithField("report_id", task.ReportID)
	defer func() {
		if r := recover(); r != nil {
			entry.WithField("panic", r).Error("report analysis panicked")
			s.finish(ctx, task.ReportID, models.ReportFailed, fmt.Sprintf("analysis failed: %v", r))
		}
	}()

	result, err := s.analyze(ctx, task)
	if err != nil {
		entry.WithError(err).Warn("report analysis failed")
		s.finish(ctx, task.ReportID, models.ReportFailed, err.Error())
		return
	}
	entry.Info("report analyzed")
	s.finish(ctx, task.ReportID, models.ReportAnalyzed, result)
}

func (s *Service) analyze(ctx context.Context, task Task) (string, error) {
	rc, err := s.store.Open(ctx, task.Location)
	if err != nil {
		return "", agents.NewAnalysisError(agents.StageExtraction, err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return "", agents.NewAnalysisError(agents.StageExtraction, err)
	}

	text, err := s.extractor.Extract(ctx, task.ContentType, data)
	if err != nil {
		return "", agents.NewAnalysisError(agents.StageExtraction, err)
	}

	return s.analyzer.AnalyzeCase(ctx, agents.CaseInput{Text: text, Role: task.Role})
}

func (s *Service) finish(ctx context.Context, id uint, status models.ReportStatus, result string) {
	ok, err := s.repo.FinishAnalysis(ctx, id, status, result)
	if err != nil {
		s.log.WithError(err).WithField("report_id", id).Error("failed to record analysis result")
		return
	}
	if !ok {
		s.log.WithField("report_id", id).Warn("report was already finished")
	}
}

func (s *Service) List(ctx context.Context, userID string) ([]models.Report, error) {
	return s.repo.ListForUser(ctx, userID)
}

func (s *Service) Get(ctx context.Context, userID string, id uint) (*models.Report, error) {
	return s.repo.GetForUser(ctx, userID, id)
}

// NormaliseContentType drops parameters and case from a Content-Type value.
func NormaliseContentType(raw string) string {
	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(raw))
	}
	return mediaType
}

// SanitizeFileName keeps only the base name and replaces whitespace with
// underscores.
func SanitizeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." || name == "/" {
		return "upload"
	}
	return name
}

// StorageKey is unique per upload, so a later upload with the same name never
// replaces a file that is still waiting for analysis.
func StorageKey(userID, uploadID, sanitizedName string) string {
	return userID + "_" + uploadID + "_" + sanitizedName
}
