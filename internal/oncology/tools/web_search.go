package tools

import (
	"strings"

	llmHandlers "oncology-assist-backend/internal/llm_handlers"

	"github.com/pkg/errors"
	"github.com/tmc/langchaingo/tools/duckduckgo"
)

const WebSearchToolName = "web_search"

const (
	defaultMaxResults = 5
	userAgent         = "oncology-assist-backend/1.0"
)

// duckduckgo answers with this sentence instead of an error when nothing matched
const noResultsMessage = "No good DuckDuckGo Search Results was found"

// RegisterAllTools registers the tools agents may call.
func RegisterAllTools(registry *llmHandlers.ToolRegistry, maxResults int) error {
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	search, err := duckduckgo.New(maxResults, userAgent)
	if err != nil {
		return errors.Wrap(err, "create duckduckgo tool")
	}
	registry.Register(WebSearchToolName, search)
	return nil
}

// IsEmptyResult reports whether a search returned nothing usable.
func IsEmptyResult(raw string) bool {
	raw = strings.TrimSpace(raw)
	return raw == "" || strings.HasPrefix(raw, noResultsMessage)
}
