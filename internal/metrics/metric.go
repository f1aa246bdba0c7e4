// Package metrics provides per-run usage tracking for translation requests.
package metrics

import "time"

// Unit states as recorded in metrics.
const (
	StateSucceeded = "succeeded"
	StateFailed    = "failed"
	StateCancelled = "cancelled"
)

// Metric represents the recorded outcome of a single translation unit.
type Metric struct {
	// Attribution
	RunID   string `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Index   int    `json:"index" yaml:"index"`
	ItemKey string `json:"item_key,omitempty" yaml:"item_key,omitempty"` // e.g., "ch01#3"

	// Provider info
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty"`
	Model    string `json:"model,omitempty" yaml:"model,omitempty"`

	// Tokens
	PromptTokens     int `json:"prompt_tokens,omitempty" yaml:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty" yaml:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty" yaml:"total_tokens,omitempty"`

	// Attempts made, zero for whitespace-only input and cancelled units.
	Attempts int `json:"attempts" yaml:"attempts"`

	// Timing
	QueueSeconds     float64 `json:"queue_seconds,omitempty" yaml:"queue_seconds,omitempty"`
	ExecutionSeconds float64 `json:"execution_seconds,omitempty" yaml:"execution_seconds,omitempty"`
	TotalSeconds     float64 `json:"total_seconds,omitempty" yaml:"total_seconds,omitempty"`

	// Status
	State     string `json:"state" yaml:"state"`
	Empty     bool   `json:"empty,omitempty" yaml:"empty,omitempty"`
	ErrorType string `json:"error_type,omitempty" yaml:"error_type,omitempty"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Success reports whether the unit produced a translation.
func (m *Metric) Success() bool {
	return m.State == StateSucceeded
}
