package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"unicode/utf8"
)

// ErrorKind classifies a failed generation request.
type ErrorKind int

const (
	// KindUnknown covers transport and parsing failures.
	KindUnknown ErrorKind = iota
	// KindTimeout means the service did not answer within the request timeout.
	KindTimeout
	// KindRemote means the service answered with a non-success status.
	KindRemote
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindRemote:
		return "remote_error"
	default:
		return "unknown"
	}
}

// RequestError is the typed failure surfaced for a generation request.
type RequestError struct {
	Kind       ErrorKind
	StatusCode int    // set for KindRemote
	Body       string // response body excerpt for KindRemote
	Attempts   int    // attempts made before giving up (0 if unknown)
	Err        error  // underlying cause
}

func (e *RequestError) Error() string {
	var msg string
	switch e.Kind {
	case KindTimeout:
		msg = "request timed out"
	case KindRemote:
		msg = fmt.Sprintf("remote error (status %d)", e.StatusCode)
		if e.Body != "" {
			msg += ": " + e.Body
		}
	default:
		msg = "request failed"
	}
	if e.Err != nil && e.Kind != KindRemote {
		msg += ": " + e.Err.Error()
	}
	if e.Attempts > 1 {
		msg = fmt.Sprintf("%s (after %d attempts)", msg, e.Attempts)
	}
	return msg
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

const maxErrorBody = 512

// NewRemoteError builds a KindRemote error for a non-success response.
func NewRemoteError(status int, body string) *RequestError {
	if len(body) > maxErrorBody {
		cut := maxErrorBody
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut] + "...[truncated]"
	}
	return &RequestError{
		Kind:       KindRemote,
		StatusCode: status,
		Body:       body,
		Err:        fmt.Errorf("status %d", status),
	}
}

// Classify converts any generation failure into a *RequestError.
// Existing RequestErrors are returned as-is; deadline and network timeouts
// become KindTimeout; everything else is KindUnknown.
func Classify(err error) *RequestError {
	if err == nil {
		return nil
	}

	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &RequestError{Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &RequestError{Kind: KindTimeout, Err: err}
	}

	return &RequestError{Kind: KindUnknown, Err: err}
}

// IsTimeout reports whether err is a timeout-class request failure.
func IsTimeout(err error) bool {
	return kindOf(err) == KindTimeout
}

// IsRemote reports whether err is a non-success response from the service.
func IsRemote(err error) bool {
	return kindOf(err) == KindRemote
}

// IsUnknown reports whether err is a transport or parse failure.
func IsUnknown(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr) && reqErr.Kind == KindUnknown
}

// StatusCode returns the HTTP status of a remote error, or 0.
func StatusCode(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode
	}
	return 0
}

func kindOf(err error) ErrorKind {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Kind
	}
	return -1
}
