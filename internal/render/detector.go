package render

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ProbeResult is the outcome of a plain HTTP fetch used to sniff for
// client-side rendering.
type ProbeResult struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Probe performs a bounded-time HTTP fetch of a page.
type Probe interface {
	Fetch(ctx context.Context, rawURL string) (ProbeResult, error)
}

// DetectorConfig controls the heavy-JS heuristic.
type DetectorConfig struct {
	// AllowDomains always render without probing.
	AllowDomains []string
	// ProbeEnabled turns on the HTTP probe for unknown domains.
	ProbeEnabled bool
	ProbeTimeout time.Duration
}

// Detector decides whether a page needs browser rendering before extraction.
type Detector struct {
	cfg    DetectorConfig
	probe  Probe
	logger *zap.Logger
}

// frameworkMarkers are body signatures of client-rendered frameworks.
var frameworkMarkers = [][]byte{
	[]byte("__NEXT_DATA__"),
	[]byte("data-reactroot"),
	[]byte(`id="root"`),
	[]byte(`id="app"`),
	[]byte("ng-version"),
	[]byte("data-v-app"),
	[]byte("__NUXT__"),
}

// NewDetector creates a Detector.
func NewDetector(cfg DetectorConfig, probe Probe, logger *zap.Logger) *Detector {
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 8 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{cfg: cfg, probe: probe, logger: logger}
}

// NeedsRendering reports whether the page should go through the headless
// renderer. A failed probe counts as "needs rendering": when in doubt,
// render.
func (d *Detector) NeedsRendering(ctx context.Context, rawURL string) bool {
	if d == nil {
		return false
	}
	if d.domainAllowed(rawURL) {
		return true
	}
	if !d.cfg.ProbeEnabled || d.probe == nil {
		return false
	}

	probeCtx, cancel := context.WithTimeout(ctx, d.cfg.ProbeTimeout)
	defer cancel()

	result, err := d.probe.Fetch(probeCtx, rawURL)
	if err != nil {
		d.logger.Debug("probe failed, assuming heavy js", zap.String("url", rawURL), zap.Error(err))
		return true
	}
	return probeSignalsJS(result)
}

func (d *Detector) domainAllowed(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
	for _, domain := range d.cfg.AllowDomains {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain == "" {
			continue
		}
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

func probeSignalsJS(result ProbeResult) bool {
	if powered := result.Headers.Get("X-Powered-By"); powered != "" {
		lower := strings.ToLower(powered)
		if strings.Contains(lower, "next.js") || strings.Contains(lower, "nuxt") {
			return true
		}
	}
	if len(result.Body) == 0 {
		return true
	}
	for _, marker := range frameworkMarkers {
		if bytes.Contains(result.Body, marker) {
			return true
		}
	}
	return false
}
