package translate

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jackzampolin/folio/internal/providers"
)

func fastClientConfig() ClientConfig {
	return ClientConfig{
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
		Timeout:    time.Second,
	}
}

func TestClient_Translate(t *testing.T) {
	t.Run("trims surrounding whitespace", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.ResponseText = "  \n안녕하세요\t \n"
		client := NewClient(mock, fastClientConfig())

		got, err := client.Translate(context.Background(), "Hello")
		if err != nil {
			t.Fatalf("Translate() error = %v", err)
		}
		if got != "안녕하세요" {
			t.Errorf("Translate() = %q", got)
		}
	})

	t.Run("blank input makes no request", func(t *testing.T) {
		mock := providers.NewMockClient()
		client := NewClient(mock, fastClientConfig())

		for _, in := range []string{"", "   ", "\n\t "} {
			tr, err := client.TranslateDetailed(context.Background(), in)
			if err != nil {
				t.Fatalf("TranslateDetailed(%q) error = %v", in, err)
			}
			if tr.Text != "" || !tr.Empty || tr.Attempts != 0 {
				t.Errorf("TranslateDetailed(%q) = %+v", in, tr)
			}
		}
		if mock.Calls() != 0 {
			t.Errorf("Calls() = %d, want 0", mock.Calls())
		}
	})

	t.Run("whitespace reply is an empty translation", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.ResponseText = " \n\t"
		client := NewClient(mock, fastClientConfig())

		tr, err := client.TranslateDetailed(context.Background(), "Hello")
		if err != nil {
			t.Fatalf("TranslateDetailed() error = %v", err)
		}
		if tr.Text != "" || !tr.Empty || tr.Attempts != 1 {
			t.Errorf("TranslateDetailed() = %+v", tr)
		}
	})

	t.Run("applies prompt builder and request settings", func(t *testing.T) {
		var got *providers.GenerateRequest
		mock := providers.NewMockClient()
		mock.Respond = func(ctx context.Context, call int, req *providers.GenerateRequest) (*providers.GenerateResult, error) {
			got = req
			return &providers.GenerateResult{Text: "ok", PromptTokens: 7, CompletionTokens: 2, ModelUsed: req.Model}, nil
		}
		cfg := fastClientConfig()
		cfg.Model = "llama3"
		cfg.MaxTokens = 99
		cfg.Prompt = func(text string) string { return "Translate: " + text }
		client := NewClient(mock, cfg)

		tr, err := client.TranslateDetailed(context.Background(), "Hi")
		if err != nil {
			t.Fatalf("TranslateDetailed() error = %v", err)
		}
		if got.Prompt != "Translate: Hi" || got.Model != "llama3" || got.MaxTokens != 99 {
			t.Errorf("request = %+v", got)
		}
		if got.RequestID == "" {
			t.Error("expected request id")
		}
		if tr.Attempts != 1 || tr.PromptTokens != 7 || tr.CompletionTokens != 2 || tr.Model != "llama3" {
			t.Errorf("translation = %+v", tr)
		}
	})

	t.Run("succeeds after max_retries-1 failures", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.FailTimes = 2
		mock.ResponseText = "bonjour"
		client := NewClient(mock, fastClientConfig())

		tr, err := client.TranslateDetailed(context.Background(), "hello")
		if err != nil {
			t.Fatalf("TranslateDetailed() error = %v", err)
		}
		if tr.Text != "bonjour" {
			t.Errorf("Text = %q", tr.Text)
		}
		if mock.Calls() != 3 || tr.Attempts != 3 {
			t.Errorf("calls = %d attempts = %d, want 3", mock.Calls(), tr.Attempts)
		}
	})

	t.Run("remote error after exhausting attempts", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.FailTimes = 100
		client := NewClient(mock, fastClientConfig())

		_, err := client.Translate(context.Background(), "hello")
		if !providers.IsRemote(err) {
			t.Fatalf("expected remote error, got %v", err)
		}
		if providers.StatusCode(err) != http.StatusServiceUnavailable {
			t.Errorf("StatusCode = %d", providers.StatusCode(err))
		}
		var reqErr *providers.RequestError
		if !errors.As(err, &reqErr) || reqErr.Attempts != 3 {
			t.Errorf("attempts = %v", reqErr)
		}
		if mock.Calls() != 3 {
			t.Errorf("Calls() = %d, want 3", mock.Calls())
		}
	})

	t.Run("repeated timeouts surface as timeout with backoff", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.Latency = time.Second
		client := NewClient(mock, ClientConfig{
			MaxRetries: 3,
			RetryDelay: 40 * time.Millisecond,
			Timeout:    10 * time.Millisecond,
		})

		start := time.Now()
		_, err := client.Translate(context.Background(), "hello")
		elapsed := time.Since(start)

		if !providers.IsTimeout(err) {
			t.Fatalf("expected timeout, got %v", err)
		}
		var reqErr *providers.RequestError
		if errors.As(err, &reqErr) && reqErr.Attempts != 3 {
			t.Errorf("Attempts = %d, want 3", reqErr.Attempts)
		}
		if mock.Calls() != 3 {
			t.Errorf("Calls() = %d, want 3", mock.Calls())
		}
		// 40ms before attempt 2 and 80ms before attempt 3.
		if elapsed < 120*time.Millisecond {
			t.Errorf("elapsed %v, want at least the configured backoff", elapsed)
		}
	})

	t.Run("nil result is an unknown error", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.Respond = func(ctx context.Context, call int, req *providers.GenerateRequest) (*providers.GenerateResult, error) {
			return nil, nil
		}
		client := NewClient(mock, fastClientConfig())
		_, err := client.Translate(context.Background(), "hello")
		if !providers.IsUnknown(err) {
			t.Errorf("expected unknown error, got %v", err)
		}
	})

	t.Run("caller cancellation stops retrying", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.FailTimes = 100
		client := NewClient(mock, ClientConfig{MaxRetries: 10, RetryDelay: time.Second, Timeout: time.Second})

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := client.Translate(ctx, "hello")
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected context error, got %v", err)
		}
		if mock.Calls() != 1 {
			t.Errorf("Calls() = %d, want 1", mock.Calls())
		}
	})
}

func TestClient_Backoff(t *testing.T) {
	c := NewClient(providers.NewMockClient(), ClientConfig{RetryDelay: 500 * time.Millisecond})
	tests := []struct {
		n    uint
		want time.Duration
	}{
		{1, 500 * time.Millisecond},
		{2, time.Second},
		{3, 1500 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := c.backoff(tt.n, nil, nil); got != tt.want {
			t.Errorf("backoff(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}
