package agents

import (
	"context"
	"strings"

	llmHandlers "oncology-assist-backend/internal/llm_handlers"
	"oncology-assist-backend/internal/oncology/helpers"
	"oncology-assist-backend/internal/oncology/prompts"
	"oncology-assist-backend/internal/oncology/tools"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// WebSearchAgent runs the web search tool and condenses the raw results.
type WebSearchAgent struct {
	llmClient llmHandlers.Client
	registry  *llmHandlers.ToolRegistry
	log       *logrus.Logger
}

func NewWebSearchAgent(llmClient llmHandlers.Client, registry *llmHandlers.ToolRegistry, log *logrus.Logger) *WebSearchAgent {
	return &WebSearchAgent{llmClient: llmClient, registry: registry, log: log}
}

// Search returns condensed findings, or "" when the search found nothing usable.
func (a *WebSearchAgent) Search(ctx context.Context, query string) (string, error) {
	raw, err := a.registry.Call(ctx, tools.WebSearchToolName, query)
	if err != nil {
		return "", NewAnalysisError(StageWebSearch, err)
	}
	if tools.IsEmptyResult(raw) {
		a.log.WithField("query", query).Debug("web search returned no results")
		return "", nil
	}

	findings, err := a.llmClient.Chat(ctx, prompts.WEB_SEARCH_PROMPT, llmHandlers.UserMessage(prompts.SearchPrompt(query, raw)))
	if err != nil {
		return "", NewAnalysisError(StageWebSearch, err)
	}
	findings = strings.TrimSpace(findings)
	if findings == prompts.NoFindings {
		return "", nil
	}
	return findings, nil
}

// KnowledgeAgent writes the structured topic explanation.
type KnowledgeAgent struct {
	llmClient llmHandlers.Client
}

func NewKnowledgeAgent(llmClient llmHandlers.Client) *KnowledgeAgent {
	return &KnowledgeAgent{llmClient: llmClient}
}

func (a *KnowledgeAgent) Explain(ctx context.Context, topic, findings string) (string, error) {
	answer, err := a.llmClient.Chat(ctx, prompts.KNOWLEDGE_PROMPT, llmHandlers.UserMessage(prompts.TopicPrompt(topic, findings)))
	if err != nil {
		return "", NewAnalysisError(StageKnowledge, err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", NewAnalysisError(StageKnowledge, errors.New("model returned an empty answer"))
	}
	return answer, nil
}

type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

type Explainer interface {
	Explain(ctx context.Context, topic, findings string) (string, error)
}

// Team answers general questions: search first, then an explanation that
// builds on what the search found.
type Team struct {
	searcher  Searcher
	explainer Explainer
}

func NewTeam(searcher Searcher, explainer Explainer) *Team {
	return &Team{searcher: searcher, explainer: explainer}
}

func (t *Team) Answer(ctx context.Context, query string) (string, error) {
	findings, err := t.searcher.Search(ctx, query)
	if err != nil {
		return "", NewAnalysisError(StageWebSearch, err)
	}

	explanation, err := t.explainer.Explain(ctx, query, findings)
	if err != nil {
		return "", NewAnalysisError(StageKnowledge, err)
	}

	if findings == "" {
		return explanation, nil
	}
	return helpers.JoinSections(
		helpers.Section("Web Search Findings", findings),
		helpers.Section("Knowledge Explanation", explanation),
	), nil
}
