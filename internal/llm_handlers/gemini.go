package llmHandlers

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"google.golang.org/genai"
)

// GenaiGeminiClient implements Client for Gemini via Google AI API. It also
// serves embeddings for the knowledge store and image transcription.
type GenaiGeminiClient struct {
	client         *genai.Client
	modelID        string
	embeddingModel string

	Temperature float32
	MaxTokens   int32
}

type GeminiConfig struct {
	APIKey         string
	ModelID        string
	EmbeddingModel string
}

func NewGenaiGeminiClient(ctx context.Context, cfg GeminiConfig) (*GenaiGeminiClient, error) {
	if cfg.APIKey == "" || cfg.ModelID == "" {
		return nil, errors.New("GEMINI_API_KEY and GEMINI_MODEL_ID must be set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "genai.NewClient")
	}

	return &GenaiGeminiClient{
		client:         client,
		modelID:        cfg.ModelID,
		embeddingModel: cfg.EmbeddingModel,
		Temperature:    0.2,
		MaxTokens:      2048,
	}, nil
}

// convertMessagesToGenaiContent converts our Message format to genai.Content.
// System messages are folded into the returned system text.
func convertMessagesToGenaiContent(messages []Message) (string, []*genai.Content) {
	systemParts := []string{}
	contents := []*genai.Content{}

	for _, m := range messages {
		if m.Role == RoleSystem {
			systemParts = append(systemParts, m.Content)
			continue
		}

		role := genai.RoleUser
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, genai.Role(role)))
	}

	return strings.Join(systemParts, "\n"), contents
}

func (v *GenaiGeminiClient) Chat(ctx context.Context, systemMessage string, messages []Message) (string, error) {
	extraSystem, contents := convertMessagesToGenaiContent(messages)
	if extraSystem != "" {
		systemMessage = strings.TrimSpace(systemMessage + "\n" + extraSystem)
	}
	return v.generate(ctx, systemMessage, contents)
}

// Transcribe asks the model to read an image and return its text.
func (v *GenaiGeminiClient) Transcribe(ctx context.Context, image []byte, mimeType, instruction string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(instruction),
			genai.NewPartFromBytes(image, mimeType),
		}, genai.RoleUser),
	}
	return v.generate(ctx, "", contents)
}

// Embed returns the embedding vector for text.
func (v *GenaiGeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if v.embeddingModel == "" {
		return nil, errors.New("gemini embedding model is not configured")
	}
	resp, err := v.client.Models.EmbedContent(ctx, v.embeddingModel, genai.Text(text), nil)
	if err != nil {
		return nil, errors.Wrap(err, "gemini EmbedContent")
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, errors.New("gemini returned no embeddings")
	}
	return resp.Embeddings[0].Values, nil
}

func (v *GenaiGeminiClient) generate(ctx context.Context, systemMessage string, contents []*genai.Content) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 90*time.Second)
	defer cancel()

	genConfig := &genai.GenerateContentConfig{
		Temperature:     &v.Temperature,
		MaxOutputTokens: v.MaxTokens,
	}
	if systemMessage != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(systemMessage, genai.RoleUser)
	}

	resp, err := v.client.Models.GenerateContent(ctx, v.modelID, contents, genConfig)
	if err != nil {
		return "", errors.Wrap(err, "gemini GenerateContent")
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("gemini returned no candidates")
	}

	// Collect output text from parts
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				sb.WriteString(part.Text)
			}
		}
	}
	return sb.String(), nil
}
