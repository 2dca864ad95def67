package llmHandlers

import (
	"context"

	"github.com/pkg/errors"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangChainClient serves OpenAI and any OpenAI-compatible API such as Groq.
type LangChainClient struct {
	llm         llms.Model
	temperature float64
}

type LangChainConfig struct {
	Model       string // e.g. "gpt-4.1", "qwen/qwen3-32b"
	BaseURL     string // optional: for Groq or other OpenAI-compatible APIs
	APIKey      string
	Temperature float64
}

func NewLangChainClient(cfg LangChainConfig) (*LangChainClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("langchain client: api key is required")
	}
	opts := []openai.Option{
		openai.WithModel(cfg.Model),
		openai.WithToken(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "create langchain openai client")
	}

	return &LangChainClient{llm: llm, temperature: cfg.Temperature}, nil
}

func (c *LangChainClient) Chat(ctx context.Context, systemMessage string, messages []Message) (string, error) {
	resp, err := c.llm.GenerateContent(ctx, toMessageContents(systemMessage, messages), llms.WithTemperature(c.temperature))
	if err != nil {
		return "", errors.Wrap(err, "langchain generate")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices returned from LLM")
	}
	return resp.Choices[0].Content, nil
}

func toMessageContents(systemMessage string, messages []Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(messages)+1)
	if systemMessage != "" {
		out = append(out, llms.TextParts(llms.ChatMessageTypeSystem, systemMessage))
	}
	for _, m := range messages {
		var msgType llms.ChatMessageType
		switch m.Role {
		case RoleSystem:
			msgType = llms.ChatMessageTypeSystem
		case RoleAssistant:
			msgType = llms.ChatMessageTypeAI
		default:
			msgType = llms.ChatMessageTypeHuman
		}
		out = append(out, llms.TextParts(msgType, m.Content))
	}
	return out
}
