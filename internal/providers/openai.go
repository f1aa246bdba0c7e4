package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	OpenAIName         = "openai"
	openAIDefaultModel = "gpt-4o-mini"

	OpenRouterName         = "openrouter"
	OpenRouterBaseURL      = "https://openrouter.ai/api/v1"
	openRouterDefaultModel = "anthropic/claude-sonnet-4"
)

// OpenAIConfig holds configuration for an OpenAI-compatible chat endpoint
// (OpenAI, vLLM, llama.cpp server, LM Studio, Ollama's /v1 shim).
type OpenAIConfig struct {
	Name         string // Reported provider name (default: "openai")
	APIKey       string
	BaseURL      string // Optional; SDK default when empty
	DefaultModel string
	MaxTokens    int
	Connection   ConnectionConfig
	HTTPClient   *http.Client // Optional (tests)
	// Headers are added to every request.
	Headers map[string]string
}

// OpenAIClient implements Generator using the official OpenAI SDK.
type OpenAIClient struct {
	name         string
	defaultModel string
	maxTokens    int
	httpClient   *http.Client
	client       openai.Client
	closed       atomic.Bool
}

// NewOpenAIClient creates a new OpenAI-compatible client.
// SDK-level retries are disabled; the translation client owns the retry policy.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Name == "" {
		cfg.Name = OpenAIName
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = openAIDefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = newPooledHTTPClient(cfg.Connection)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	for k, v := range cfg.Headers {
		opts = append(opts, option.WithHeader(k, v))
	}

	return &OpenAIClient{
		name:         cfg.Name,
		defaultModel: cfg.DefaultModel,
		maxTokens:    cfg.MaxTokens,
		httpClient:   httpClient,
		client:       openai.NewClient(opts...),
	}
}

// Name returns the client identifier.
func (c *OpenAIClient) Name() string {
	return c.name
}

// Model returns the configured default model.
func (c *OpenAIClient) Model() string {
	return c.defaultModel
}

// Close releases pooled connections. Safe to call more than once.
func (c *OpenAIClient) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	closeHTTPClient(c.httpClient)
	return nil
}

// Generate sends the prompt as a single user message and returns the first choice.
func (c *OpenAIClient) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
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

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
		MaxCompletionTokens: openai.Int(int64(maxTokens)),
	})
	if err != nil {
		return nil, mapOpenAIError(err)
	}

	text := ""
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}

	modelUsed := resp.Model
	if modelUsed == "" {
		modelUsed = model
	}

	return &GenerateResult{
		Text:             text,
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		ExecutionTime:    time.Since(start),
		Provider:         c.name,
		ModelUsed:        modelUsed,
		RequestID:        requestID,
	}, nil
}

// NewOpenRouterClient creates a client for OpenRouter's OpenAI-compatible API.
func NewOpenRouterClient(cfg OpenAIConfig) *OpenAIClient {
	cfg.Name = OpenRouterName
	if cfg.BaseURL == "" {
		cfg.BaseURL = OpenRouterBaseURL
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = openRouterDefaultModel
	}
	headers := map[string]string{
		"HTTP-Referer": "https://github.com/jackzampolin/folio",
		"X-Title":      "Folio",
	}
	for k, v := range cfg.Headers {
		headers[k] = v
	}
	cfg.Headers = headers
	return NewOpenAIClient(cfg)
}

// mapOpenAIError converts SDK API errors into RequestErrors carrying the status.
func mapOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		reqErr := NewRemoteError(apiErr.StatusCode, apiErr.Message)
		reqErr.Err = err
		return reqErr
	}
	return err
}
