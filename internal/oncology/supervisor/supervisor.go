package supervisor

import (
	"context"
	"strings"

	"oncology-assist-backend/internal/models"
	"oncology-assist-backend/internal/oncology/agents"
	"oncology-assist-backend/internal/oncology/classifier"
	"oncology-assist-backend/internal/oncology/helpers"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var DefaultImagingMarkers = []string{
	"imaging model",
	"analyze image",
	"analyze this scan",
	"x-ray",
	"mri",
	"ct scan",
	"mammogram",
}

var errImagingUnavailable = errors.New("imaging model is not available")

type CaseAnalyzer interface {
	AnalyzeCase(ctx context.Context, in agents.CaseInput) (string, error)
}

type KnowledgeTeam interface {
	Answer(ctx context.Context, query string) (string, error)
}

type ImagingModel interface {
	Infer(ctx context.Context, imageRef, query string) (string, error)
}

type Request struct {
	Query          string
	AuxiliaryScore *float64
	ImageReference string
	Role           models.UserRole
}

type Result struct {
	Text  string
	Route models.Route
}

type Deps struct {
	Classifier     classifier.Classifier
	CaseAnalyzer   CaseAnalyzer
	Team           KnowledgeTeam
	Imaging        ImagingModel
	ImagingMarkers []string
	Log            *logrus.Logger
}

// Supervisor routes a chat query. It holds no per-request state and is
// shared by all handlers.
type Supervisor struct {
	classifier   classifier.Classifier
	caseAnalyzer CaseAnalyzer
	team         KnowledgeTeam
	imaging      ImagingModel
	markers      []string
	log          *logrus.Logger
}

func New(d Deps) *Supervisor {
	markers := d.ImagingMarkers
	if len(markers) == 0 {
		markers = DefaultImagingMarkers
	}
	return &Supervisor{
		classifier:   d.Classifier,
		caseAnalyzer: d.CaseAnalyzer,
		team:         d.Team,
		imaging:      d.Imaging,
		markers:      markers,
		log:          d.Log,
	}
}

// WantsImaging reports whether the request goes through the imaging model first.
func (s *Supervisor) WantsImaging(req Request) bool {
	return strings.TrimSpace(req.ImageReference) != "" || helpers.ContainsAny(req.Query, s.markers)
}

// Route answers req. Collaborator failures come back as *agents.AnalysisError
// and are never replaced by fallback text.
func (s *Supervisor) Route(ctx context.Context, req Request) (*Result, error) {
	if !s.WantsImaging(req) {
		return s.general(ctx, req)
	}

	if s.imaging == nil {
		return nil, agents.NewAnalysisError(agents.StageImaging, errImagingUnavailable)
	}
	imaging, err := s.imaging.Infer(ctx, req.ImageReference, req.Query)
	if err != nil {
		return nil, agents.NewAnalysisError(agents.StageImaging, err)
	}

	general, err := s.general(ctx, req)
	if err != nil {
		return nil, err
	}

	route := models.RouteImagingTeam
	if general.Route == models.RouteCase {
		route = models.RouteImagingCase
	}
	return &Result{
		Text: helpers.JoinSections(
			helpers.Section("Imaging Insights", imaging),
			helpers.Section("General Knowledge/RAG", general.Text),
		),
		Route: route,
	}, nil
}

func (s *Supervisor) general(ctx context.Context, req Request) (*Result, error) {
	if s.classifier.IsDiagnostic(req.Query) {
		s.log.WithField("route", models.RouteCase).Debug("routing query")
		text, err := s.caseAnalyzer.AnalyzeCase(ctx, agents.CaseInput{
			Text:           req.Query,
			AuxiliaryScore: req.AuxiliaryScore,
			Role:           req.Role,
		})
		if err != nil {
			return nil, agents.NewAnalysisError(agents.StageGeneration, err)
		}
		return &Result{Text: text, Route: models.RouteCase}, nil
	}

	s.log.WithField("route", models.RouteTeam).Debug("routing query")
	text, err := s.team.Answer(ctx, req.Query)
	if err != nil {
		return nil, agents.NewAnalysisError(agents.StageKnowledge, err)
	}
	return &Result{Text: text, Route: models.RouteTeam}, nil
}
