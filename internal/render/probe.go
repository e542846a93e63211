package render

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

// CollyProbe implements Probe with a single plain GET through Colly.
type CollyProbe struct {
	userAgent     string
	timeout       time.Duration
	baseCollector *colly.Collector
}

// NewCollyProbe builds a probe fetcher.
func NewCollyProbe(userAgent string, timeout time.Duration) *CollyProbe {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	c.WithTransport(newHTTPTransport())
	return &CollyProbe{
		userAgent:     userAgent,
		timeout:       timeout,
		baseCollector: c,
	}
}

// Fetch executes one GET and captures the status, headers, and body.
func (p *CollyProbe) Fetch(ctx context.Context, rawURL string) (ProbeResult, error) {
	var (
		result   ProbeResult
		fetchErr error
	)
	collector := p.baseCollector.Clone()
	if p.userAgent != "" {
		collector.UserAgent = p.userAgent
	}
	collector.SetRequestTimeout(p.timeout)

	collector.OnResponse(func(r *colly.Response) {
		result = ProbeResult{
			StatusCode: r.StatusCode,
			Headers:    r.Headers.Clone(),
			Body:       append([]byte(nil), r.Body...),
		}
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		return ProbeResult{}, fmt.Errorf("probe canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return ProbeResult{}, fmt.Errorf("probe visit failed: %w", err)
		}
		if fetchErr != nil {
			return ProbeResult{}, fmt.Errorf("probe response failed: %w", fetchErr)
		}
		return result, nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
