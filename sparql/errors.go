package sparql

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for invalid client usage.
var (
	// ErrEmptyEndpoint is returned when no endpoint URL is configured.
	ErrEmptyEndpoint = errors.New("sparql endpoint is required")

	// ErrEmptyQuery is returned when a request carries no query text.
	ErrEmptyQuery = errors.New("sparql query is required")

	// ErrResponseTooLarge is returned when a response body exceeds the
	// configured size limit.
	ErrResponseTooLarge = errors.New("sparql response too large")
)

// TransientError represents a temporary error that may succeed on retry.
type TransientError struct {
	err error
}

func (e *TransientError) Error() string {
	return e.err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.err
}

// NewTransientError wraps an error as transient (retryable).
func NewTransientError(err error) error {
	return &TransientError{err: err}
}

// FatalError represents a permanent error that should not be retried.
type FatalError struct {
	err error
}

func (e *FatalError) Error() string {
	return e.err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.err
}

// NewFatalError wraps an error as fatal (non-retryable).
func NewFatalError(err error) error {
	return &FatalError{err: err}
}

// IsTransient returns true if the error is transient and should be retried.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// IsFatal returns true if the error is fatal and should not be retried.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

// classifyHTTPError determines if an endpoint HTTP error is transient or fatal.
func classifyHTTPError(statusCode int, body []byte) error {
	bodyStr := string(body)
	if len(bodyStr) > 200 {
		bodyStr = bodyStr[:200] + "..."
	}

	err := fmt.Errorf("sparql endpoint error (status %d): %s", statusCode, bodyStr)

	switch {
	case statusCode == http.StatusTooManyRequests:
		return NewTransientError(err)
	case statusCode >= 500:
		return NewTransientError(err)
	default:
		// 4xx means the query or the endpoint URL is wrong.
		return NewFatalError(err)
	}
}
