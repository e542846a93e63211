package render

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rootsofthevalley/content-collector/internal/collector"
)

// StaticFetcher implements collector.Renderer over a plain HTTP GET for
// pages that do not need browser rendering. It reuses the probe transport and
// the same text/link extraction as the headless path.
type StaticFetcher struct {
	probe      Probe
	maxTextLen int
}

// NewStaticFetcher builds a StaticFetcher.
func NewStaticFetcher(probe Probe, maxTextLen int) *StaticFetcher {
	if maxTextLen <= 0 {
		maxTextLen = 15000
	}
	return &StaticFetcher{probe: probe, maxTextLen: maxTextLen}
}

// Render fetches the page without a browser and extracts text and links.
func (s *StaticFetcher) Render(ctx context.Context, rawURL string) (collector.RenderedPage, error) {
	result, err := s.probe.Fetch(ctx, rawURL)
	if err != nil {
		return collector.RenderedPage{URL: rawURL}, fmt.Errorf("static fetch: %w", err)
	}
	if result.StatusCode >= http.StatusBadRequest {
		return collector.RenderedPage{URL: rawURL}, fmt.Errorf("static fetch: status %d", result.StatusCode)
	}
	return buildPage(rawURL, "", string(result.Body), s.maxTextLen)
}
