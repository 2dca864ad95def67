package reports

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"oncology-assist-backend/internal/libraries"
	"oncology-assist-backend/internal/models"
	"oncology-assist-backend/internal/oncology/agents"
	"oncology-assist-backend/internal/repo"
	"oncology-assist-backend/internal/testutil"
	"oncology-assist-backend/internal/worker"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) Extract(_ context.Context, _ string, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.text != "" {
		return f.text, nil
	}
	return string(data), nil
}

type fakeAnalyzer struct {
	calls  int32
	result string
	err    error
	panics bool
	last   agents.CaseInput
}

func (f *fakeAnalyzer) AnalyzeCase(_ context.Context, in agents.CaseInput) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	f.last = in
	if f.panics {
		panic("model exploded")
	}
	return f.result, f.err
}

// recordingAnalyzer keeps the text of every analysis.
type recordingAnalyzer struct {
	mu    sync.Mutex
	texts []string
}

func (r *recordingAnalyzer) AnalyzeCase(_ context.Context, in agents.CaseInput) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, in.Text)
	return "analysis of " + in.Text, nil
}

// heldQueue keeps jobs until the test runs them.
type heldQueue struct{ jobs []worker.Job }

func (q *heldQueue) Enqueue(job worker.Job) error {
	q.jobs = append(q.jobs, job)
	return nil
}

type failingReportRepo struct {
	repo.ReportRepoInterface
}

func (failingReportRepo) CreateProcessing(context.Context, *models.Report) (uint, error) {
	return 0, errors.New("database is down")
}

type rejectingQueue struct{}

func (rejectingQueue) Enqueue(worker.Job) error { return worker.ErrQueueFull }

type fixture struct {
	svc      *Service
	repo     repo.ReportRepoInterface
	queue    *worker.Queue
	dir      string
	analyzer *fakeAnalyzer
}

func newFixture(t *testing.T, ex *fakeExtractor, an *fakeAnalyzer) *fixture {
	t.Helper()
	log := testutil.QuietLogger()
	dir := t.TempDir()
	store, err := libraries.NewLocalStore(dir)
	require.NoError(t, err)

	reports := repo.NewReportRepository(testutil.NewDB(t))
	queue := worker.NewQueue(8, log)
	t.Cleanup(func() { _ = queue.Close(context.Background()) })

	svc := NewService(Deps{
		Repo:       reports,
		Store:      store,
		Extractor:  ex,
		Analyzer:   an,
		Queue:      queue,
		MaxBytes:   1024,
		MockUserID: "mock-user",
		Log:        log,
	})
	return &fixture{svc: svc, repo: reports, queue: queue, dir: dir, analyzer: an}
}

func upload(name, contentType string, body []byte) Upload {
	return Upload{
		FileName:    name,
		ContentType: contentType,
		Size:        int64(len(body)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		},
	}
}

func (f *fixture) drain(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.queue.Close(ctx))
}

func TestUploadAnalyzesReport(t *testing.T) {
	f := newFixture(t, &fakeExtractor{}, &fakeAnalyzer{result: "Risk Level: moderate"})
	ctx := context.Background()

	res, err := f.svc.Upload(ctx, "user-1", models.RoleDoctor, upload("blood panel.pdf", "application/pdf", []byte("WBC 14.2")))
	require.NoError(t, err)
	assert.Equal(t, "Report uploaded. AI analysis started.", res.Message)
	assert.Equal(t, models.ReportProcessing, res.Status)
	require.NotZero(t, res.ReportID)

	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "user-1_"))
	assert.True(t, strings.HasSuffix(entries[0].Name(), "_blood_panel.pdf"))
	stored, err := os.ReadFile(filepath.Join(f.dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, "WBC 14.2", string(stored))

	f.drain(t)

	report, err := f.svc.Get(ctx, "user-1", res.ReportID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportAnalyzed, report.Status)
	require.NotNil(t, report.AIResult)
	assert.Equal(t, "Risk Level: moderate", *report.AIResult)
	assert.Equal(t, "WBC 14.2", f.analyzer.last.Text)
	assert.Equal(t, models.RoleDoctor, f.analyzer.last.Role)

	_, err = f.svc.Get(ctx, "user-2", res.ReportID)
	assert.ErrorIs(t, err, repo.ErrReportNotFound)
}

func TestUploadRejectsInvalidFiles(t *testing.T) {
	f := newFixture(t, &fakeExtractor{}, &fakeAnalyzer{})
	ctx := context.Background()

	_, err := f.svc.Upload(ctx, "user-1", models.RolePatient, upload("notes.txt", "text/plain", []byte("hi")))
	assert.ErrorIs(t, err, ErrInvalidFileType)

	big := bytes.Repeat([]byte("a"), 1025)
	_, err = f.svc.Upload(ctx, "user-1", models.RolePatient, upload("scan.png", "image/png", big))
	assert.ErrorIs(t, err, ErrFileTooLarge)

	// declared size lies
	lying := upload("scan.png", "image/png", big)
	lying.Size = 10
	_, err = f.svc.Upload(ctx, "user-1", models.RolePatient, lying)
	assert.ErrorIs(t, err, ErrFileTooLarge)

	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	list, err := f.svc.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUploadMockUser(t *testing.T) {
	f := newFixture(t, &fakeExtractor{}, &fakeAnalyzer{})
	ctx := context.Background()

	res, err := f.svc.Upload(ctx, "mock-user", models.RolePatient, upload("cbc.pdf", "application/pdf", []byte("x")))
	require.NoError(t, err)
	assert.Equal(t, MockUploadResult(), res)
	assert.EqualValues(t, 999, res.ReportID)

	f.drain(t)
	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	list, err := f.svc.List(ctx, "mock-user")
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Zero(t, atomic.LoadInt32(&f.analyzer.calls))

	// file type is still checked for the mock user
	_, err = f.svc.Upload(ctx, "mock-user", models.RolePatient, upload("a.gif", "image/gif", []byte("x")))
	assert.ErrorIs(t, err, ErrInvalidFileType)
}

func TestAnalysisFailuresMarkReportFailed(t *testing.T) {
	cases := []struct {
		name     string
		ex       *fakeExtractor
		an       *fakeAnalyzer
		contains string
	}{
		{"extraction", &fakeExtractor{err: errors.New("no text could be extracted")}, &fakeAnalyzer{}, "extraction"},
		{"generation", &fakeExtractor{}, &fakeAnalyzer{err: agents.NewAnalysisError(agents.StageGeneration, errors.New("quota"))}, "quota"},
		{"panic", &fakeExtractor{}, &fakeAnalyzer{panics: true}, "model exploded"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, tc.ex, tc.an)
			ctx := context.Background()

			res, err := f.svc.Upload(ctx, "user-1", models.RolePatient, upload("scan.jpg", "image/jpeg; charset=binary", []byte("img")))
			require.NoError(t, err)
			f.drain(t)

			report, err := f.svc.Get(ctx, "user-1", res.ReportID)
			require.NoError(t, err)
			assert.Equal(t, models.ReportFailed, report.Status)
			require.NotNil(t, report.AIResult)
			assert.Contains(t, *report.AIResult, tc.contains)
		})
	}
}

func TestUploadWhenQueueRejects(t *testing.T) {
	f := newFixture(t, &fakeExtractor{}, &fakeAnalyzer{})
	f.svc.queue = rejectingQueue{}
	ctx := context.Background()

	res, err := f.svc.Upload(ctx, "user-1", models.RolePatient, upload("cbc.pdf", "application/pdf", []byte("x")))
	require.NoError(t, err)
	assert.Equal(t, models.ReportFailed, res.Status)

	report, err := f.svc.Get(ctx, "user-1", res.ReportID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportFailed, report.Status)
}

func TestAnalyzeFinishesOnce(t *testing.T) {
	f := newFixture(t, &fakeExtractor{}, &fakeAnalyzer{result: "first"})
	ctx := context.Background()

	res, err := f.svc.Upload(ctx, "user-1", models.RolePatient, upload("cbc.pdf", "application/pdf", []byte("x")))
	require.NoError(t, err)
	f.drain(t)

	report, err := f.svc.Get(ctx, "user-1", res.ReportID)
	require.NoError(t, err)

	f.analyzer.result = "second"
	f.svc.Analyze(ctx, Task{ReportID: report.ID, Location: report.FilePath, ContentType: report.ContentType})

	report, err = f.svc.Get(ctx, "user-1", res.ReportID)
	require.NoError(t, err)
	assert.Equal(t, "first", *report.AIResult)
}

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "blood_panel_v2.pdf", SanitizeFileName("blood panel\tv2.pdf"))
	assert.Equal(t, "passwd", SanitizeFileName("../../etc/passwd"))
	assert.Equal(t, "scan.png", SanitizeFileName(`C:\Users\me\scan.png`))
	assert.Equal(t, "upload", SanitizeFileName(""))
	assert.Equal(t, "u1_9f2c_a.pdf", StorageKey("u1", "9f2c", "a.pdf"))
}

func TestNormaliseContentType(t *testing.T) {
	assert.Equal(t, "image/jpeg", NormaliseContentType("IMAGE/JPEG"))
	assert.Equal(t, "application/pdf", NormaliseContentType("application/pdf; name=x.pdf"))
}

func TestSameNameUploadsKeepTheirOwnContent(t *testing.T) {
	f := newFixture(t, &fakeExtractor{}, &fakeAnalyzer{})
	analyzer := &recordingAnalyzer{}
	held := &heldQueue{}
	f.svc.analyzer = analyzer
	f.svc.queue = held
	ctx := context.Background()

	first, err := f.svc.Upload(ctx, "user-1", models.RolePatient, upload("lab.pdf", "application/pdf", []byte("FIRST REPORT")))
	require.NoError(t, err)
	second, err := f.svc.Upload(ctx, "user-1", models.RolePatient, upload("lab.pdf", "application/pdf", []byte("SECOND REPORT")))
	require.NoError(t, err)

	// both analyses run only after the second upload was stored
	require.Len(t, held.jobs, 2)
	for _, job := range held.jobs {
		job(ctx)
	}

	r1, err := f.svc.Get(ctx, "user-1", first.ReportID)
	require.NoError(t, err)
	r2, err := f.svc.Get(ctx, "user-1", second.ReportID)
	require.NoError(t, err)
	assert.NotEqual(t, r1.FilePath, r2.FilePath)
	assert.Equal(t, "lab.pdf", r1.FileName)
	assert.Equal(t, "analysis of FIRST REPORT", *r1.AIResult)
	assert.Equal(t, "analysis of SECOND REPORT", *r2.AIResult)
	assert.Equal(t, []string{"FIRST REPORT", "SECOND REPORT"}, analyzer.texts)
}

func TestUploadRemovesFileWhenRowFails(t *testing.T) {
	f := newFixture(t, &fakeExtractor{}, &fakeAnalyzer{})
	f.svc.repo = failingReportRepo{}

	_, err := f.svc.Upload(context.Background(), "user-1", models.RolePatient, upload("cbc.pdf", "application/pdf", []byte("x")))
	require.Error(t, err)

	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
