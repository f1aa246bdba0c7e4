package translate

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"

	"github.com/jackzampolin/folio/internal/providers"
)

// Client defaults.
const (
	DefaultMaxRetries    = 3
	DefaultRetryDelay    = 500 * time.Millisecond
	DefaultMaxRetryDelay = 10 * time.Second
	DefaultTimeout       = providers.DefaultTimeout
)

// PromptBuilder turns source text into the prompt sent to the generator.
type PromptBuilder func(text string) string

// ClientConfig configures a Client.
type ClientConfig struct {
	Model     string
	MaxTokens int

	// MaxRetries is the total number of attempts per unit.
	MaxRetries int
	// RetryDelay is multiplied by the attempt number before each retry.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
	// Timeout bounds each attempt independently of cancellation.
	Timeout time.Duration

	// RequestsPerMinute enables client-side rate limiting when > 0.
	RequestsPerMinute int

	Prompt PromptBuilder
	Logger *slog.Logger
}

func (c ClientConfig) withDefaults() ClientConfig {
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	} else if c.RetryDelay == 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.MaxRetryDelay <= 0 {
		c.MaxRetryDelay = DefaultMaxRetryDelay
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = providers.DefaultMaxTokens
	}
	if c.Prompt == nil {
		c.Prompt = func(text string) string { return text }
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Translation is the outcome of one Client call.
type Translation struct {
	Text             string
	Attempts         int
	PromptTokens     int
	CompletionTokens int
	Duration         time.Duration
	Provider         string
	Model            string
	// Empty is true when the input was blank (no request was made) or the
	// model answered with only whitespace.
	Empty bool
}

// Client sends translation requests through a Generator, retrying failed
// attempts with linear backoff.
type Client struct {
	gen     providers.Generator
	cfg     ClientConfig
	limiter *providers.RateLimiter
	logger  *slog.Logger
}

// NewClient creates a client over gen. The client does not own gen.
func NewClient(gen providers.Generator, cfg ClientConfig) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		gen:     gen,
		cfg:     cfg,
		limiter: providers.NewRateLimiter(cfg.RequestsPerMinute),
		logger:  cfg.Logger,
	}
}

// Translate returns the translation of text with surrounding whitespace
// trimmed. Blank input returns "" without contacting the generator.
func (c *Client) Translate(ctx context.Context, text string) (string, error) {
	tr, err := c.TranslateDetailed(ctx, text)
	if err != nil {
		return "", err
	}
	return tr.Text, nil
}

// TranslateDetailed is Translate with attempt, token and timing details.
// On failure the returned Translation still carries the attempt count.
//
// Request failures are returned as *providers.RequestError after the last
// attempt. If ctx ends first, ctx.Err() is returned instead.
func (c *Client) TranslateDetailed(ctx context.Context, text string) (*Translation, error) {
	if strings.TrimSpace(text) == "" {
		return &Translation{Empty: true}, nil
	}

	start := time.Now()
	req := &providers.GenerateRequest{
		Model:     c.cfg.Model,
		Prompt:    c.cfg.Prompt(text),
		MaxTokens: c.cfg.MaxTokens,
		RequestID: uuid.New().String(),
	}
	logger := c.logger.With("request_id", req.RequestID)

	var (
		result   *providers.GenerateResult
		lastErr  *providers.RequestError
		attempts int
	)

	err := retry.Do(
		func() error {
			attempts++
			if err := c.limiter.Wait(ctx); err != nil {
				return retry.Unrecoverable(err)
			}

			res, err := c.attempt(ctx, req)
			if err != nil {
				if ctx.Err() != nil {
					return retry.Unrecoverable(ctx.Err())
				}
				lastErr = providers.Classify(err)
				if lastErr.StatusCode == http.StatusTooManyRequests {
					c.limiter.Record429(0)
				}
				return lastErr
			}
			result = res
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.cfg.MaxRetries)),
		retry.DelayType(c.backoff),
		retry.MaxDelay(c.cfg.MaxRetryDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Debug("translation attempt failed",
				"attempt", n+1,
				"max_attempts", c.cfg.MaxRetries,
				"error", err)
		}),
	)

	tr := &Translation{
		Attempts: attempts,
		Duration: time.Since(start),
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return tr, ctxErr
		}
		if lastErr == nil {
			lastErr = providers.Classify(err)
		}
		final := *lastErr
		final.Attempts = attempts
		logger.Warn("translation failed",
			"attempts", attempts,
			"kind", final.Kind.String(),
			"error", final.Err)
		return tr, &final
	}

	tr.Text = strings.TrimSpace(result.Text)
	tr.Empty = tr.Text == ""
	tr.PromptTokens = result.PromptTokens
	tr.CompletionTokens = result.CompletionTokens
	tr.Provider = result.Provider
	tr.Model = result.ModelUsed
	return tr, nil
}

// attempt runs one request under the per-attempt timeout.
func (c *Client) attempt(ctx context.Context, req *providers.GenerateRequest) (*providers.GenerateResult, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	res, err := c.gen.Generate(attemptCtx, req)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("generator %s returned no result", c.gen.Name())
	}
	return res, nil
}

// backoff waits n*RetryDelay before attempt n+1. retry-go counts n from 1.
func (c *Client) backoff(n uint, _ error, _ *retry.Config) time.Duration {
	return time.Duration(n) * c.cfg.RetryDelay
}
