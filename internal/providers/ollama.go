package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	OllamaName           = "ollama"
	OllamaBaseURL        = "http://localhost:11434"
	ollamaDefaultModel   = "gemma3:4b-it-qat"
	ollamaGeneratePath   = "/api/generate"
	ollamaTagsPath       = "/api/tags"
	maxResponseBodyBytes = 32 << 20
)

// ErrGeneratorClosed is returned by Generate after Close.
var ErrGeneratorClosed = errors.New("generator is closed")

// OllamaConfig holds configuration for the Ollama client.
type OllamaConfig struct {
	BaseURL      string
	DefaultModel string
	MaxTokens    int // num_predict cap (default: 2048)
	Connection   ConnectionConfig
	HTTPClient   *http.Client // Optional (tests)
}

// OllamaClient implements Generator against an Ollama server's /api/generate.
type OllamaClient struct {
	baseURL      string
	defaultModel string
	maxTokens    int
	client       *http.Client
	closed       atomic.Bool
}

// NewOllamaClient creates a new Ollama client with its own connection pool.
func NewOllamaClient(cfg OllamaConfig) (*OllamaClient, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = OllamaBaseURL
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = ollamaDefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base URL %q: %w", cfg.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid ollama base URL %q: scheme must be http or https", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = newPooledHTTPClient(cfg.Connection)
	}

	return &OllamaClient{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		defaultModel: cfg.DefaultModel,
		maxTokens:    cfg.MaxTokens,
		client:       httpClient,
	}, nil
}

// Name returns the client identifier.
func (c *OllamaClient) Name() string {
	return OllamaName
}

// Model returns the configured default model.
func (c *OllamaClient) Model() string {
	return c.defaultModel
}

// Close releases pooled connections. Safe to call more than once.
func (c *OllamaClient) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	closeHTTPClient(c.client)
	return nil
}

// Generate sends one non-streaming generate request.
func (c *OllamaClient) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
	if c.closed.Load() {
		return nil, ErrGeneratorClosed
	}
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}

	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	body, err := json.Marshal(ollamaGenerateRequest{
		Model:  model,
		Prompt: req.Prompt,
		Stream: false,
		Options: ollamaOptions{
			NumPredict: maxTokens,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	respBody, err := c.do(ctx, http.MethodPost, ollamaGeneratePath, body)
	if err != nil {
		return nil, err
	}

	parsed, err := decodeOllamaGenerate(respBody)
	if err != nil {
		return nil, err
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("ollama error: %s", parsed.Error)
	}

	modelUsed := parsed.Model
	if modelUsed == "" {
		modelUsed = model
	}

	return &GenerateResult{
		Text:             parsed.Response,
		PromptTokens:     parsed.PromptEvalCount,
		CompletionTokens: parsed.EvalCount,
		ExecutionTime:    time.Since(start),
		Provider:         OllamaName,
		ModelUsed:        modelUsed,
		RequestID:        requestID,
	}, nil
}

// ListModels returns the models installed on the Ollama server.
func (c *OllamaClient) ListModels(ctx context.Context) ([]OllamaModel, error) {
	respBody, err := c.do(ctx, http.MethodGet, ollamaTagsPath, nil)
	if err != nil {
		return nil, err
	}

	var tags ollamaTagsResponse
	if err := json.Unmarshal(respBody, &tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model list: %w", err)
	}
	return tags.Models, nil
}

// HealthCheck verifies the Ollama server is reachable.
func (c *OllamaClient) HealthCheck(ctx context.Context) error {
	if _, err := c.ListModels(ctx); err != nil {
		return fmt.Errorf("ollama health check failed: %w", err)
	}
	return nil
}

// do performs a single HTTP round trip and returns the body of a 2xx response.
func (c *OllamaClient) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, NewRemoteError(resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return respBody, nil
}
