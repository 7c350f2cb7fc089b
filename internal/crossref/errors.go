package crossref

import (
	"errors"
	"fmt"
)

// Common errors returned by the metadata client.
var (
	// ErrNotFound indicates the DOI did not resolve to a metadata document.
	ErrNotFound = errors.New("metadata not found")

	// ErrRateLimited indicates the registry rate limit has been exceeded.
	ErrRateLimited = errors.New("registry rate limit exceeded")

	// ErrNetworkError indicates a network connectivity issue or timeout.
	ErrNetworkError = errors.New("network error communicating with registry")

	// ErrInvalidResponse indicates an unexpected registry response.
	ErrInvalidResponse = errors.New("invalid response from registry")
)

// APIError represents a non-2xx response from a metadata registry.
type APIError struct {
	StatusCode int
	URL        string
	DOI        string // For context in DOI lookups
}

func (e *APIError) Error() string {
	if e.DOI != "" {
		return fmt.Sprintf("registry error (status %d): %s (doi: %s)", e.StatusCode, e.URL, e.DOI)
	}
	return fmt.Sprintf("registry error (status %d): %s", e.StatusCode, e.URL)
}

// IsNotFound returns true if the error indicates a missing document.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 404
	}
	return false
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}
