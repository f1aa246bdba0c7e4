package providers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockClient is a scriptable Generator for testing.
type MockClient struct {
	// Configurable behavior
	Latency      time.Duration
	ResponseText string // returned when Respond is nil
	FailTimes    int    // first N calls fail with FailErr
	FailErr      error  // defaults to a remote 503

	// Respond, when set, computes the result for each call (1-based).
	Respond func(ctx context.Context, call int, req *GenerateRequest) (*GenerateResult, error)

	// Started receives the prompt of every call as it begins (optional, must be buffered).
	Started chan string

	// Gate, when set, holds every call until it is closed or ctx ends.
	Gate chan struct{}

	// State
	calls    atomic.Int64
	inFlight atomic.Int64
	peak     atomic.Int64
	closed   atomic.Int64

	mu      sync.Mutex
	prompts []string
}

// NewMockClient creates a new mock client with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{
		Latency:      time.Millisecond,
		ResponseText: "mock translation",
	}
}

// Factory returns a Factory that always hands out this mock.
func (c *MockClient) Factory() Factory {
	return func(ctx context.Context) (Generator, error) {
		return c, nil
	}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// Close records the close; the mock can still be reused afterwards.
func (c *MockClient) Close() error {
	c.closed.Add(1)
	return nil
}

// Generate simulates one request.
func (c *MockClient) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
	call := int(c.calls.Add(1))

	c.mu.Lock()
	c.prompts = append(c.prompts, req.Prompt)
	c.mu.Unlock()

	current := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		peak := c.peak.Load()
		if current <= peak || c.peak.CompareAndSwap(peak, current) {
			break
		}
	}

	if c.Started != nil {
		c.Started <- req.Prompt
	}

	if c.Gate != nil {
		select {
		case <-c.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if c.Latency > 0 {
		timer := time.NewTimer(c.Latency)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}

	if call <= c.FailTimes {
		if c.FailErr != nil {
			return nil, c.FailErr
		}
		return nil, NewRemoteError(503, fmt.Sprintf("mock failure %d", call))
	}

	if c.Respond != nil {
		return c.Respond(ctx, call, req)
	}

	return &GenerateResult{
		Text:      c.ResponseText,
		Provider:  MockClientName,
		ModelUsed: req.Model,
		RequestID: fmt.Sprintf("mock-%d", call),
	}, nil
}

// Calls returns the number of Generate calls made.
func (c *MockClient) Calls() int {
	return int(c.calls.Load())
}

// PeakInFlight returns the highest number of concurrent Generate calls observed.
func (c *MockClient) PeakInFlight() int {
	return int(c.peak.Load())
}

// CloseCount returns how many times Close was called.
func (c *MockClient) CloseCount() int {
	return int(c.closed.Load())
}

// Prompts returns the prompts received, in call order.
func (c *MockClient) Prompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.prompts))
	copy(out, c.prompts)
	return out
}
