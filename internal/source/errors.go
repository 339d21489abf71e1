// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by source clients. The aggregator's fallback
// policy keys off these: ErrRateLimited and ErrUnavailable cause a fall
// through to the next provider, ErrNotFound means the provider answered but
// has no record.
var (
	// ErrRateLimited indicates the provider's rate limit was exceeded and
	// bounded retries were exhausted.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrUnavailable indicates a network failure or a 5xx response.
	ErrUnavailable = errors.New("source unavailable")

	// ErrNotFound indicates the provider has no record for the identifier.
	ErrNotFound = errors.New("not found")

	// ErrNoUsableID indicates none of a paper's identifiers is in a scheme
	// the provider understands. The aggregator treats this as a skip, not
	// a failure.
	ErrNoUsableID = errors.New("no usable identifier for provider")
)

// APIError carries provider context for an HTTP-level failure. It wraps one
// of the sentinel errors so callers can classify with errors.Is.
type APIError struct {
	Provider   string
	StatusCode int
	Kind       error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %v", e.Provider, e.StatusCode, e.Kind)
}

func (e *APIError) Unwrap() error { return e.Kind }

// IsRetryable reports whether the error should cause the aggregator to fall
// through to the next provider rather than fail the operation.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUnavailable)
}
