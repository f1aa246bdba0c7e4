package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

type fakeNetErr struct{ timeout bool }

func (e fakeNetErr) Error() string   { return "net error" }
func (e fakeNetErr) Timeout() bool   { return e.timeout }
func (e fakeNetErr) Temporary() bool { return false }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"deadline", fmt.Errorf("request failed: %w", context.DeadlineExceeded), KindTimeout},
		{"net timeout", fakeNetErr{timeout: true}, KindTimeout},
		{"net non-timeout", fakeNetErr{timeout: false}, KindUnknown},
		{"remote", NewRemoteError(500, "boom"), KindRemote},
		{"wrapped remote", fmt.Errorf("outer: %w", NewRemoteError(429, "")), KindRemote},
		{"plain", errors.New("connection refused"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if got.Kind != tt.want {
				t.Errorf("Classify() kind = %v, want %v", got.Kind, tt.want)
			}
			if !errors.Is(got, tt.err) && got.Err != tt.err && !errors.Is(tt.err, got) {
				t.Errorf("classified error lost its cause: %v", got)
			}
		})
	}

	if Classify(nil) != nil {
		t.Error("Classify(nil) should be nil")
	}
}

func TestRequestError_Message(t *testing.T) {
	err := NewRemoteError(502, "bad gateway")
	err.Attempts = 3
	msg := err.Error()
	if !strings.Contains(msg, "502") || !strings.Contains(msg, "after 3 attempts") {
		t.Errorf("unexpected message: %s", msg)
	}

	timeout := &RequestError{Kind: KindTimeout, Err: context.DeadlineExceeded}
	if !strings.Contains(timeout.Error(), "timed out") {
		t.Errorf("unexpected message: %s", timeout.Error())
	}
	if !errors.Is(timeout, context.DeadlineExceeded) {
		t.Error("expected Unwrap to expose the cause")
	}
}

func TestNewRemoteError_TruncatesBody(t *testing.T) {
	err := NewRemoteError(500, strings.Repeat("x", 2000))
	if len(err.Body) > 600 {
		t.Errorf("body not truncated: %d bytes", len(err.Body))
	}
}

func TestNewRemoteError_TruncatesOnRuneBoundary(t *testing.T) {
	// 511 ASCII bytes then 3-byte runes: byte 512 falls inside a rune.
	body := strings.Repeat("a", 511) + strings.Repeat("한", 10)
	err := NewRemoteError(500, body)
	if !utf8.ValidString(err.Body) {
		t.Fatalf("truncated body is not valid UTF-8: %q", err.Body[500:])
	}
	if want := strings.Repeat("a", 511) + "...[truncated]"; err.Body != want {
		t.Errorf("Body tail = %q", err.Body[505:])
	}
}

func TestErrorHelpers(t *testing.T) {
	if IsTimeout(errors.New("x")) || IsRemote(errors.New("x")) || IsUnknown(errors.New("x")) {
		t.Error("plain errors should not match any kind")
	}
	if !IsUnknown(&RequestError{Kind: KindUnknown}) {
		t.Error("expected IsUnknown")
	}
	if StatusCode(errors.New("x")) != 0 {
		t.Error("expected zero status")
	}
}
