package persist

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrUnresolved indicates a redirect URL that did not lead anywhere new.
var ErrUnresolved = errors.New("redirect url did not resolve")

// Resolver follows indirection-service URLs to their final destination
// using a short-timeout HEAD request.
type Resolver struct {
	client  *http.Client
	timeout time.Duration
}

// NewResolver builds a Resolver. The client follows redirects; only the
// timeout is overridden per request.
func NewResolver(timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Resolver{
		client:  &http.Client{},
		timeout: timeout,
	}
}

// Resolve issues a HEAD request following redirects and returns the final
// URL. A final URL equal to the input counts as a failed resolution: the
// caller drops the item rather than persist a dead reference.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build resolve request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("resolve head request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	final := resp.Request.URL.String()
	if final == "" || final == rawURL {
		return "", ErrUnresolved
	}
	return final, nil
}
