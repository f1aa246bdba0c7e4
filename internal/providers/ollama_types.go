package providers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Ollama API types (internal)

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	NumPredict int `json:"num_predict,omitempty"`
}

type ollamaGenerateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	DoneReason      string `json:"done_reason,omitempty"`
	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`
	Error           string `json:"error,omitempty"`
}

type ollamaTagsResponse struct {
	Models []OllamaModel `json:"models"`
}

// OllamaModel describes an installed model reported by /api/tags.
type OllamaModel struct {
	Name       string    `json:"name" yaml:"name"`
	Size       int64     `json:"size" yaml:"size"`
	Digest     string    `json:"digest" yaml:"digest"`
	ModifiedAt time.Time `json:"modified_at" yaml:"modified_at"`
}

// ollamaGenerateSchema describes the envelope we accept from /api/generate.
// "response" is optional: a missing field is an empty generation.
const ollamaGenerateSchema = `{
  "type": "object",
  "properties": {
    "model": {"type": "string"},
    "response": {"type": "string"},
    "done": {"type": "boolean"},
    "done_reason": {"type": "string"},
    "prompt_eval_count": {"type": "integer", "minimum": 0},
    "eval_count": {"type": "integer", "minimum": 0},
    "error": {"type": "string"}
  }
}`

var ollamaGenerateValidator = jsonschema.MustCompileString("ollama_generate.json", ollamaGenerateSchema)

// decodeOllamaGenerate validates and decodes a /api/generate response body.
func decodeOllamaGenerate(body []byte) (*ollamaGenerateResponse, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if err := ollamaGenerateValidator.Validate(doc); err != nil {
		return nil, fmt.Errorf("unexpected response shape: %w", err)
	}

	var resp ollamaGenerateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &resp, nil
}
