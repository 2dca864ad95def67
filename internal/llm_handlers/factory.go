package llmHandlers

import (
	"context"

	"oncology-assist-backend/internal/config"
	"oncology-assist-backend/internal/libraries"

	"github.com/pkg/errors"
)

type Provider string

const (
	ProviderGroq            Provider = "groq"
	ProviderOpenAI          Provider = "openai"
	ProviderGemini          Provider = "gemini"
	ProviderVertexAnthropic Provider = "vertex_anthropic"
)

// NewLLMClient builds the chat client for LLM_PROVIDER.
func NewLLMClient(ctx context.Context, cfg *config.Config) (Client, error) {
	switch Provider(cfg.LLMProvider) {
	case ProviderGroq:
		return NewLangChainClient(LangChainConfig{
			Model:       cfg.GroqModelName,
			BaseURL:     cfg.GroqBaseURL,
			APIKey:      cfg.GroqAPIKey,
			Temperature: 0.2,
		})
	case ProviderOpenAI:
		return NewLangChainClient(LangChainConfig{
			Model:       cfg.OpenAIModel,
			APIKey:      cfg.OpenAIAPIKey,
			Temperature: 0.2,
		})
	case ProviderGemini:
		return NewGenaiGeminiClient(ctx, GeminiConfig{
			APIKey:         cfg.GeminiAPIKey,
			ModelID:        cfg.GeminiModelID,
			EmbeddingModel: cfg.EmbeddingModel,
		})
	case ProviderVertexAnthropic:
		creds, err := libraries.GoogleCredentials(ctx, cfg.GCPCredentialsB64)
		if err != nil {
			return nil, err
		}
		projectID := cfg.GCPProjectID
		if projectID == "" {
			projectID = creds.ProjectID
		}
		return NewVertexClaudeClient(ctx, creds, projectID, cfg.GCPVertexLocation, cfg.ClaudeVertexModel)
	default:
		return nil, errors.Errorf("unknown provider %s (valid: groq, openai, gemini, vertex_anthropic)", cfg.LLMProvider)
	}
}
