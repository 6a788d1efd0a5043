// Package llm defines the contract a language-model vendor must satisfy.
// Vendors live under pkg/providers.
package llm

import "context"

// Request is one prompt round trip. The system prompt may be empty.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Usage reports token accounting when the vendor provides it.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response is the vendor's text reply. Text may be wrapped in a markdown
// code fence; callers own fence stripping and parsing.
type Response struct {
	Text         string
	Usage        Usage
	FinishReason string
}

// Adapter is the vendor-agnostic LLM contract.
type Adapter interface {
	// Name returns the adapter name for logging/metrics.
	Name() string
	// Generate performs a single blocking prompt/response round trip.
	Generate(ctx context.Context, req Request) (Response, error)
}
