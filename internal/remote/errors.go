package remote

import (
	"errors"
	"fmt"
)

// ErrNotAuthorized indicates the remote service rejected our credentials.
// The cached-valid flag is cleared before this is returned, so the next
// HasValidCredentials call re-validates from scratch.
var ErrNotAuthorized = errors.New("remote service credentials rejected")

// ErrNotFound indicates the requested remote record does not exist. Per-item
// and non-fatal: callers map it to a disposition or skip.
var ErrNotFound = errors.New("remote record not found")

// NetworkError wraps a transport-level failure (connection refused, timeout).
// Unlike the HTTP-level classifications it is retryable with backoff.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("remote transport failure: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// UnexpectedStatusError represents a non-2xx status outside the mapped set.
// Treated as fatal and never retried.
type UnexpectedStatusError struct {
	StatusCode int
	Body       string
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("remote service returned unexpected status %d: %s", e.StatusCode, e.Body)
}

// ParseError wraps a malformed response body. The page fails loudly rather
// than being silently ignored; field-level parse failures inside the
// extraction engine are handled there by dropping the field.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("remote response parse failure: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the error is transient and worth retrying
// with backoff.
func IsRetryable(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}
