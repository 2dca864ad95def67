package agents

import (
	"context"
	"strings"

	llmHandlers "oncology-assist-backend/internal/llm_handlers"
	"oncology-assist-backend/internal/models"
	"oncology-assist-backend/internal/oncology/knowledge"
	"oncology-assist-backend/internal/oncology/prompts"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Retriever looks up reference passages for a query.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]knowledge.Passage, error)
}

type CaseInput struct {
	Text           string
	AuxiliaryScore *float64
	Role           models.UserRole
}

// CaseAnalyzer answers diagnostic queries and analyses uploaded reports with
// retrieval-augmented generation.
type CaseAnalyzer struct {
	llmClient llmHandlers.Client
	retriever Retriever
	topK      int
	log       *logrus.Logger
}

// NewCaseAnalyzer builds the analyzer. retriever may be nil, in which case
// prompts carry no reference passages.
func NewCaseAnalyzer(llmClient llmHandlers.Client, retriever Retriever, topK int, log *logrus.Logger) *CaseAnalyzer {
	return &CaseAnalyzer{
		llmClient: llmClient,
		retriever: retriever,
		topK:      topK,
		log:       log,
	}
}

func (a *CaseAnalyzer) AnalyzeCase(ctx context.Context, in CaseInput) (string, error) {
	if strings.TrimSpace(in.Text) == "" {
		return "", NewAnalysisError(StageGeneration, errors.New("nothing to analyze"))
	}

	references := a.references(ctx, in.Text)
	userPrompt := prompts.CasePrompt(in.Role, in.Text, in.AuxiliaryScore, references)

	response, err := a.llmClient.Chat(ctx, prompts.CASE_ANALYSIS_PROMPT, llmHandlers.UserMessage(userPrompt))
	if err != nil {
		return "", NewAnalysisError(StageGeneration, err)
	}
	response = strings.TrimSpace(response)
	if response == "" {
		return "", NewAnalysisError(StageGeneration, errors.New("model returned an empty answer"))
	}
	return response, nil
}

// references never fails the analysis, a retrieval problem only costs context.
func (a *CaseAnalyzer) references(ctx context.Context, text string) []string {
	if a.retriever == nil || a.topK <= 0 {
		return nil
	}
	passages, err := a.retriever.Search(ctx, text, a.topK)
	if err != nil {
		a.log.WithError(err).Warn("reference retrieval failed, continuing without context")
		return nil
	}
	out := make([]string, 0, len(passages))
	for _, p := range passages {
		out = append(out, p.Content)
	}
	return out
}
