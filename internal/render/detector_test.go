package render

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeProbe struct {
	result ProbeResult
	err    error
	calls  int
}

func (f *fakeProbe) Fetch(_ context.Context, _ string) (ProbeResult, error) {
	f.calls++
	return f.result, f.err
}

func TestDetectorAllowListSkipsProbe(t *testing.T) {
	t.Parallel()

	probe := &fakeProbe{}
	d := NewDetector(DetectorConfig{
		AllowDomains: []string{"cityofgreenriver.gov"},
		ProbeEnabled: true,
	}, probe, nil)

	require.True(t, d.NeedsRendering(context.Background(), "https://www.cityofgreenriver.gov/events"))
	require.Zero(t, probe.calls)
}

func TestDetectorProbeFindsFrameworkMarker(t *testing.T) {
	t.Parallel()

	probe := &fakeProbe{result: ProbeResult{
		StatusCode: http.StatusOK,
		Headers:    http.Header{},
		Body:       []byte(`<html><body><div id="root"></div></body></html>`),
	}}
	d := NewDetector(DetectorConfig{ProbeEnabled: true}, probe, nil)

	require.True(t, d.NeedsRendering(context.Background(), "https://example.org/news"))
}

func TestDetectorProbeHeaderSignal(t *testing.T) {
	t.Parallel()

	probe := &fakeProbe{result: ProbeResult{
		StatusCode: http.StatusOK,
		Headers:    http.Header{"X-Powered-By": {"Next.js"}},
		Body:       []byte("<html><body>static looking</body></html>"),
	}}
	d := NewDetector(DetectorConfig{ProbeEnabled: true}, probe, nil)

	require.True(t, d.NeedsRendering(context.Background(), "https://example.org/"))
}

func TestDetectorStaticPageNeedsNoRender(t *testing.T) {
	t.Parallel()

	probe := &fakeProbe{result: ProbeResult{
		StatusCode: http.StatusOK,
		Headers:    http.Header{},
		Body:       []byte("<html><body><h1>Plain page</h1><p>No frameworks here.</p></body></html>"),
	}}
	d := NewDetector(DetectorConfig{ProbeEnabled: true}, probe, nil)

	require.False(t, d.NeedsRendering(context.Background(), "https://example.org/"))
}

func TestDetectorFailedProbeFailsOpen(t *testing.T) {
	t.Parallel()

	probe := &fakeProbe{err: errors.New("connection refused")}
	d := NewDetector(DetectorConfig{ProbeEnabled: true}, probe, nil)

	require.True(t, d.NeedsRendering(context.Background(), "https://example.org/"))
}

func TestDetectorProbeDisabled(t *testing.T) {
	t.Parallel()

	probe := &fakeProbe{}
	d := NewDetector(DetectorConfig{}, probe, nil)

	require.False(t, d.NeedsRendering(context.Background(), "https://example.org/"))
	require.Zero(t, probe.calls)
}
