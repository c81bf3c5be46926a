// Package fallback wraps the generative text models used when the knowledge base has no
// confident answer.
package fallback

import "context"

// CompletionRequest is a single prompt sent to a provider.
type CompletionRequest struct {
	Model       string
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// CompletionResponse is the raw provider output.
type CompletionResponse struct {
	Content string
	Model   string
}

// Provider generates text from a prompt.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	Name() string
}

// Acquirer is implemented by providers that must fetch their model before first use.
type Acquirer interface {
	Acquire(ctx context.Context) error
}

// Locality is implemented by providers that run on the worker's own infrastructure.
type Locality interface {
	Local() bool
}
