package llmHandlers

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/tmc/langchaingo/tools"
)

var ErrToolNotFound = errors.New("tool not found")

// ToolRegistry maps tool name -> langchaingo tool. Agents look tools up by
// name so tests can swap in fakes.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]tools.Tool
}

func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]tools.Tool)}
}

// Register stores a tool under name. If a tool already exists, it will be overwritten.
func (r *ToolRegistry) Register(name string, t tools.Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = t
}

func (r *ToolRegistry) Get(name string) (tools.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names lists registered tools in sorted order.
func (r *ToolRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call runs the named tool with a plain text input.
func (r *ToolRegistry) Call(ctx context.Context, name, input string) (string, error) {
	t, ok := r.Get(name)
	if !ok {
		return "", errors.Wrap(ErrToolNotFound, name)
	}
	out, err := t.Call(ctx, input)
	if err != nil {
		return "", errors.Wrapf(err, "tool %s", name)
	}
	return out, nil
}
