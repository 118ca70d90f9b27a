// ABOUTME: Error taxonomy for API calls: transport, server-reported, and validation failures.
// ABOUTME: Callers classify with errors.Is(err, ErrTransport) and errors.As(*APIError).
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrTransport wraps network failures, client timeouts, and an open circuit
// breaker. Cancellation by the caller is returned as the context error instead.
var ErrTransport = errors.New("transport failure")

// APIError is a failure reported by the server, either through a 4xx/5xx
// status or a success=false envelope.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("remote API returned %d: %s", e.StatusCode, msg)
}

// ValidationError reports a request rejected before it was sent.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + strings.Join(e.Fields, "; ")
}

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// countsAsFailure decides what trips the circuit breaker: transport errors
// and 5xx responses. Client errors and requests the caller gave up on say
// nothing about the server's health.
func countsAsFailure(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return false
	}
	if errors.Is(err, ErrTransport) {
		return true
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
