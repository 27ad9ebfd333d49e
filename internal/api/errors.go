package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Sentinel errors for the common API failure classes. APIError values
// unwrap to these, so callers can match with errors.Is.
var (
	ErrValidation   = errors.New("invalid request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrRateLimited  = errors.New("rate limited")
	ErrServer       = errors.New("server error")
)

// APIError is a non-2xx response from the FlowMaestro API.
type APIError struct {
	// StatusCode is the HTTP status of the response.
	StatusCode int

	// Code is the machine-readable error code from the response body.
	Code string

	// Message is the human-readable error description.
	Message string

	// RetryAfter is the server-suggested wait before retrying, taken from
	// the Retry-After header on 429 responses. Zero when absent.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api: %s (%s, status %d)", e.Message, e.Code, e.StatusCode)
	}
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.StatusCode)
}

// Unwrap maps the status code to the matching sentinel error.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusBadRequest:
		return ErrValidation
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case e.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.StatusCode >= 500:
		return ErrServer
	}
	return nil
}

// Transient reports whether the failure is a retryable rate-limit signal.
// The batch orchestrator uses this to decide between backoff-and-retry and
// terminal failure.
func (e *APIError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests
}
