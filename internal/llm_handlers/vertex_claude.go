package llmHandlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// VertexClaudeClient calls Claude models published on Vertex AI through rawPredict.
type VertexClaudeClient struct {
	httpClient *http.Client
	url        string
	MaxTokens  int
}

func NewVertexClaudeClient(ctx context.Context, creds *google.Credentials, projectID, location, modelID string) (*VertexClaudeClient, error) {
	if projectID == "" || location == "" || modelID == "" {
		return nil, errors.New("vertex claude: project, location and model are required")
	}
	url := fmt.Sprintf(
		"https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/anthropic/models/%s:rawPredict",
		location, projectID, location, modelID,
	)
	return &VertexClaudeClient{
		httpClient: oauth2.NewClient(ctx, creds.TokenSource),
		url:        url,
		MaxTokens:  2048,
	}, nil
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	System           string          `json:"system,omitempty"`
	Messages         []claudeMessage `json:"messages"`
	MaxTokens        int             `json:"max_tokens"`
	Stream           bool            `json:"stream"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func (c *VertexClaudeClient) Chat(ctx context.Context, systemMessage string, messages []Message) (string, error) {
	body := claudeRequest{
		AnthropicVersion: "vertex-2023-10-16",
		System:           systemMessage,
		MaxTokens:        c.MaxTokens,
	}
	for _, m := range messages {
		// Claude takes the system prompt separately
		if m.Role == RoleSystem {
			body.System = strings.TrimSpace(body.System + "\n" + m.Content)
			continue
		}
		body.Messages = append(body.Messages, claudeMessage{Role: string(m.Role), Content: m.Content})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", errors.Wrap(err, "marshal body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "http do")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(resp.Body)
		return "", errors.Errorf("vertex error %d: %s", resp.StatusCode, buf.String())
	}

	var out claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errors.Wrap(err, "decode response")
	}

	texts := make([]string, 0, len(out.Content))
	for _, block := range out.Content {
		if block.Type == "text" && block.Text != "" {
			texts = append(texts, block.Text)
		}
	}
	if len(texts) == 0 {
		return "", errors.Errorf("vertex claude returned no text (stop_reason=%s)", out.StopReason)
	}
	return strings.Join(texts, "\n\n"), nil
}
