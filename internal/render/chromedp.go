// Package render performs headless page rendering and link-candidate
// extraction for JS-heavy destination pages.
package render

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rootsofthevalley/content-collector/internal/collector"
	"github.com/rootsofthevalley/content-collector/internal/metrics"
)

// ErrRendererDisabled indicates rendering has been disabled via configuration.
var ErrRendererDisabled = errors.New("renderer disabled")

// Config controls the chromedp renderer.
type Config struct {
	MaxParallel int
	UserAgent   string
	// HardTimeout is the ceiling on one render regardless of page behavior.
	HardTimeout time.Duration
	// NetworkIdleTimeout bounds the primary wait strategy before falling
	// back to DOM-ready.
	NetworkIdleTimeout time.Duration
	// SettleDelay is a fixed pause after the wait strategy so late dynamic
	// content can land.
	SettleDelay time.Duration
	// MaxTextLen caps the extracted page text.
	MaxTextLen int
	DomainQPS  float64
}

// Renderer implements collector.Renderer using headless Chrome via chromedp.
type Renderer struct {
	cfg            Config
	logger         *zap.Logger
	sem            chan struct{}
	allocator      context.Context
	allocCancel    context.CancelFunc
	domainLimiters sync.Map
}

// NewRenderer creates a renderer. Certificate errors are ignored so expired
// park-district certs do not fail the render.
func NewRenderer(cfg Config, logger *zap.Logger) (*Renderer, error) {
	if cfg.MaxParallel <= 0 {
		return nil, ErrRendererDisabled
	}
	if cfg.HardTimeout <= 0 {
		cfg.HardTimeout = 45 * time.Second
	}
	if cfg.NetworkIdleTimeout <= 0 {
		cfg.NetworkIdleTimeout = 10 * time.Second
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = 2 * time.Second
	}
	if cfg.MaxTextLen <= 0 {
		cfg.MaxTextLen = 15000
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Renderer{
		cfg:         cfg,
		logger:      logger,
		sem:         make(chan struct{}, cfg.MaxParallel),
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}, nil
}

// Close cancels the allocator context.
func (r *Renderer) Close() {
	if r == nil {
		return
	}
	r.allocCancel()
}

// Render navigates to the URL and returns the page text, title, and link
// candidates. The primary wait strategy is network idle; on idle timeout it
// falls back to DOM-ready. A hard timeout guarantees forward progress.
func (r *Renderer) Render(ctx context.Context, rawURL string) (collector.RenderedPage, error) {
	if r == nil {
		return collector.RenderedPage{URL: rawURL}, ErrRendererDisabled
	}
	if err := r.acquire(ctx); err != nil {
		return collector.RenderedPage{URL: rawURL}, err
	}
	defer r.release()

	if err := r.waitDomainBudget(ctx, rawURL); err != nil {
		return collector.RenderedPage{URL: rawURL}, fmt.Errorf("render rate limit: %w", err)
	}

	metrics.RendersTotal.Inc()

	tabCtx, cancelTab := chromedp.NewContext(r.allocator)
	defer cancelTab()

	taskCtx, cancelTask := context.WithTimeout(tabCtx, r.cfg.HardTimeout)
	defer cancelTask()

	stopForward := forwardCancel(ctx, cancelTask)
	defer stopForward()

	idle := newIdleWaiter(taskCtx)

	setup := chromedp.Tasks{network.Enable()}
	if r.cfg.UserAgent != "" {
		setup = append(setup, emulation.SetUserAgentOverride(r.cfg.UserAgent))
	}
	setup = append(setup, chromedp.Navigate(rawURL))
	if err := chromedp.Run(taskCtx, setup); err != nil {
		metrics.RenderFailures.Inc()
		return collector.RenderedPage{URL: rawURL}, fmt.Errorf("navigate: %w", err)
	}

	if err := idle.wait(taskCtx, r.cfg.NetworkIdleTimeout); err != nil {
		// Network never went quiet; settle for DOM-ready.
		if err := chromedp.Run(taskCtx, chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
			metrics.RenderFailures.Inc()
			return collector.RenderedPage{URL: rawURL}, fmt.Errorf("wait dom ready: %w", err)
		}
	}

	var (
		title string
		html  string
	)
	finish := chromedp.Tasks{
		chromedp.Sleep(r.cfg.SettleDelay),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(taskCtx, finish); err != nil {
		metrics.RenderFailures.Inc()
		return collector.RenderedPage{URL: rawURL}, fmt.Errorf("extract dom: %w", err)
	}

	page, err := buildPage(rawURL, title, html, r.cfg.MaxTextLen)
	if err != nil {
		metrics.RenderFailures.Inc()
		return collector.RenderedPage{URL: rawURL}, err
	}
	r.logger.Debug("page rendered",
		zap.String("url", rawURL),
		zap.Int("text_len", len(page.Text)),
		zap.Int("links", len(page.Links)),
	)
	return page, nil
}

func buildPage(rawURL, title, html string, maxTextLen int) (collector.RenderedPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return collector.RenderedPage{}, fmt.Errorf("parse rendered html: %w", err)
	}
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	doc.Find("script,style,noscript").Remove()
	text := strings.Join(strings.Fields(doc.Text()), " ")
	if len(text) > maxTextLen {
		text = text[:maxTextLen]
	}
	return collector.RenderedPage{
		URL:     rawURL,
		Title:   title,
		Text:    text,
		Links:   ExtractLinks(doc, rawURL),
		Success: true,
	}, nil
}

func (r *Renderer) acquire(ctx context.Context) error {
	select {
	case r.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("acquire render slot: %w", ctx.Err())
	}
}

func (r *Renderer) release() {
	select {
	case <-r.sem:
	default:
	}
}

func (r *Renderer) waitDomainBudget(ctx context.Context, rawURL string) error {
	if r.cfg.DomainQPS <= 0 {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse render url: %w", err)
	}
	host := strings.ToLower(parsed.Host)
	val, _ := r.domainLimiters.LoadOrStore(host, rate.NewLimiter(rate.Limit(r.cfg.DomainQPS), 1))
	limiter, ok := val.(*rate.Limiter)
	if !ok {
		return fmt.Errorf("unexpected limiter type %T", val)
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait limiter: %w", err)
	}
	return nil
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}

// idleWaiter tracks in-flight document requests and reports when the network
// has been quiet for a short window.
type idleWaiter struct {
	mu       sync.Mutex
	inflight map[network.RequestID]struct{}
	lastSeen time.Time
}

const idleQuietWindow = 500 * time.Millisecond

func newIdleWaiter(tabCtx context.Context) *idleWaiter {
	w := &idleWaiter{
		inflight: make(map[network.RequestID]struct{}),
		lastSeen: time.Now(),
	}
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			w.mu.Lock()
			w.inflight[e.RequestID] = struct{}{}
			w.lastSeen = time.Now()
			w.mu.Unlock()
		case *network.EventLoadingFinished:
			w.done(e.RequestID)
		case *network.EventLoadingFailed:
			w.done(e.RequestID)
		}
	})
	return w
}

func (w *idleWaiter) done(id network.RequestID) {
	w.mu.Lock()
	delete(w.inflight, id)
	w.lastSeen = time.Now()
	w.mu.Unlock()
}

// wait polls until no request has been in flight for idleQuietWindow, or the
// timeout elapses.
func (w *idleWaiter) wait(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("network idle wait: %w", ctx.Err())
		case <-ticker.C:
			w.mu.Lock()
			quiet := len(w.inflight) == 0 && time.Since(w.lastSeen) >= idleQuietWindow
			w.mu.Unlock()
			if quiet {
				return nil
			}
			if time.Now().After(deadline) {
				return errors.New("network idle timeout")
			}
		}
	}
}
