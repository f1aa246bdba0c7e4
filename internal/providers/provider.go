package providers

import (
	"context"
	"time"
)

// Generator is a remote text-generation backend.
// Each Generate call is exactly one attempt against the service; retries,
// timeouts and concurrency limits are applied by the caller.
type Generator interface {
	// Generate sends one completion request and waits for the full response.
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error)

	// Name returns the backend identifier (e.g., "ollama").
	Name() string

	// Close releases the pooled connections held by the generator.
	Close() error
}

// Factory opens a Generator for the duration of one translation run.
// The caller owns the returned Generator and must Close it.
type Factory func(ctx context.Context) (Generator, error)

// GenerateRequest is a single non-streaming completion request.
type GenerateRequest struct {
	// Model selection (uses generator default if empty)
	Model string `json:"model,omitempty"`

	// Fully built prompt
	Prompt string `json:"prompt"`

	// Generation length cap (uses generator default if zero)
	MaxTokens int `json:"max_tokens,omitempty"`

	// Request tracking
	RequestID string `json:"-"`
}

// GenerateResult is the complete response from one Generate call.
type GenerateResult struct {
	// Generated text, untrimmed. Empty when the service omitted it.
	Text string `json:"text"`

	// Token counts (zero when the backend does not report them)
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`

	ExecutionTime time.Duration `json:"execution_time"`

	Provider  string `json:"provider"`
	ModelUsed string `json:"model_used"`
	RequestID string `json:"request_id"`
}

// Default generation parameters shared by all backends.
const (
	DefaultMaxTokens = 2048
	DefaultTimeout   = 120 * time.Second
)
