package mock

import (
	"context"
	"sync"

	"github.com/harunnryd/tutorcast/pkg/llm"
)

type LLMConfig struct {
	// ResponseText is returned for every Generate call when Responses is empty.
	ResponseText string
	// Responses are returned in order; the last one repeats.
	Responses []string
	// Err, when set, is returned instead of a response.
	Err error
}

// LLMAdapter is a deterministic in-memory LLM used by tests and the demo.
type LLMAdapter struct {
	cfg   LLMConfig
	mu    sync.Mutex
	calls int
}

func NewLLMAdapter(cfg LLMConfig) *LLMAdapter {
	if cfg.ResponseText == "" && len(cfg.Responses) == 0 {
		cfg.ResponseText = "{}"
	}
	return &LLMAdapter{cfg: cfg}
}

func (a *LLMAdapter) Name() string { return "mock_llm" }

func (a *LLMAdapter) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.cfg.Err != nil {
		return llm.Response{}, a.cfg.Err
	}
	text := a.cfg.ResponseText
	if len(a.cfg.Responses) > 0 {
		idx := a.calls - 1
		if idx >= len(a.cfg.Responses) {
			idx = len(a.cfg.Responses) - 1
		}
		text = a.cfg.Responses[idx]
	}
	return llm.Response{Text: text, FinishReason: "stop"}, nil
}

// Ping reports the configured error, if any.
func (a *LLMAdapter) Ping(ctx context.Context) error {
	return a.cfg.Err
}

// Calls returns how many Generate calls were made.
func (a *LLMAdapter) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

var _ llm.Adapter = (*LLMAdapter)(nil)
