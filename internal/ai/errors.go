package ai

import (
	"errors"
	"fmt"
	"net/http"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"google.golang.org/genai"
)

// ProviderError carries a machine-checkable status code so callers can route
// on rate limits without matching error strings.
type ProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider call failed (status %d): %v", e.Provider, e.StatusCode, e.Err)
}

// Unwrap exposes the underlying SDK error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// RateLimited reports whether the provider rejected the call with HTTP 429.
func (e *ProviderError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsRateLimited reports whether err is a rate-limited ProviderError.
func IsRateLimited(err error) bool {
	var perr *ProviderError
	return errors.As(err, &perr) && perr.RateLimited()
}

// classify wraps an SDK error into a ProviderError, extracting the HTTP
// status code where the SDK exposes one.
func classify(provider string, err error) error {
	if err == nil {
		return nil
	}
	status := 0
	var anthropicErr *anthropic.Error
	if errors.As(err, &anthropicErr) {
		status = anthropicErr.StatusCode
	}
	var genaiErr genai.APIError
	if errors.As(err, &genaiErr) {
		status = genaiErr.Code
	}
	return &ProviderError{Provider: provider, StatusCode: status, Err: err}
}
