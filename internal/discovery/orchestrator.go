// Package discovery runs the per-destination collection flow: render the
// relevant pages, query the AI search provider, reconcile links, and hand the
// survivors to persistence.
package discovery

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/rootsofthevalley/content-collector/internal/ai"
	"github.com/rootsofthevalley/content-collector/internal/collector"
	"github.com/rootsofthevalley/content-collector/internal/matcher"
	"github.com/rootsofthevalley/content-collector/internal/persist"
	"github.com/rootsofthevalley/content-collector/internal/progress"
)

// Detector decides whether a page needs browser rendering.
type Detector interface {
	NeedsRendering(ctx context.Context, rawURL string) bool
}

// Saver persists discovered items after dedup and temporal filtering.
type Saver interface {
	SaveNews(ctx context.Context, destinationID string, items []collector.DiscoveredItem) (int, error)
	SaveEvents(ctx context.Context, destinationID string, items []collector.DiscoveredItem) (int, error)
}

// Config tunes the orchestrator.
type Config struct {
	// Timezone is the IANA zone all discovered dates are interpreted in.
	Timezone string
	// MaxTokens bounds each provider response.
	MaxTokens int
}

// Orchestrator drives one destination's collection pass. Every internal
// failure is contained: the pass degrades to an empty result and an error
// phase rather than raising.
type Orchestrator struct {
	provider  ai.Provider
	detector  Detector
	headless  collector.Renderer
	static    collector.Renderer
	saver     Saver
	progress  progress.Store
	feed      NewsFeed
	prompts   promptBuilder
	maxTokens int
	logger    *zap.Logger
}

// NewOrchestrator wires the collection flow. The static renderer and the
// news feed may be nil; the headless renderer then covers every page and the
// RSS supplement is skipped.
func NewOrchestrator(
	cfg Config,
	provider ai.Provider,
	detector Detector,
	headless collector.Renderer,
	static collector.Renderer,
	saver Saver,
	progressStore progress.Store,
	feed NewsFeed,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Orchestrator{
		provider:  provider,
		detector:  detector,
		headless:  headless,
		static:    static,
		saver:     saver,
		progress:  progressStore,
		feed:      feed,
		prompts:   newPromptBuilder(cfg.Timezone),
		maxTokens: maxTokens,
		logger:    logger,
	}
}

// Collect runs the full pass for one destination and reports how many rows
// were persisted. It never returns an error; failures are recorded in the
// progress store and reduce the result toward zero.
func (o *Orchestrator) Collect(ctx context.Context, jobID string, dest collector.Destination) collector.CollectionResult {
	log := o.logger.With(zap.String("destination_id", dest.ID), zap.String("destination", dest.Name))
	o.must(o.progress.Begin(ctx, jobID, dest.ID), log, "progress begin")

	eventsURL := firstNonEmpty(dest.EventsPageURL, dest.WebsiteURL)
	newsURL := firstNonEmpty(dest.NewsPageURL, dest.WebsiteURL)
	firstPartyNews := dest.NewsPageURL != ""

	o.setPhase(ctx, dest.ID, progress.PhaseRenderingEvents, log)
	eventsPage := o.renderPage(ctx, eventsURL, log)

	o.setPhase(ctx, dest.ID, progress.PhaseRenderingNews, log)
	var newsPage collector.RenderedPage
	if newsURL == eventsURL {
		newsPage = eventsPage
	} else {
		newsPage = o.renderPage(ctx, newsURL, log)
	}

	o.setPhase(ctx, dest.ID, progress.PhaseAISearch, log)
	text, err := o.provider.Generate(ctx, ai.Request{
		System:    systemPrompt,
		Prompt:    o.prompts.searchPrompt(dest, eventsPage, newsPage),
		MaxTokens: o.maxTokens,
	})
	if err != nil {
		o.fail(ctx, dest.ID, log, "provider call failed", err)
		return collector.CollectionResult{}
	}

	o.setPhase(ctx, dest.ID, progress.PhaseProcessingResults, log)
	news, events, err := parseFindings(text)
	if err != nil {
		o.fail(ctx, dest.ID, log, "response parse failed", err)
		return collector.CollectionResult{}
	}

	o.setPhase(ctx, dest.ID, progress.PhaseMatchingLinks, log)
	reconcileLinks(events, eventsPage, collector.KindEvent)
	reconcileLinks(news, newsPage, collector.KindNews)
	markFirstParty(news, dest)

	if firstPartyNews {
		o.setPhase(ctx, dest.ID, progress.PhaseGoogleNews, log)
		news = o.secondPass(ctx, dest, news, log)
	}

	result, saveErr := o.save(ctx, dest.ID, news, events)
	o.must(o.progress.AddCounts(ctx, dest.ID, result.NewsSaved, result.EventsSaved), log, "progress counts")
	if saveErr != nil {
		o.fail(ctx, dest.ID, log, "save failed", saveErr)
		return result
	}

	o.setPhase(ctx, dest.ID, progress.PhaseComplete, log)
	log.Info("collection pass complete",
		zap.Int("news_saved", result.NewsSaved),
		zap.Int("events_saved", result.EventsSaved),
	)
	return result
}

// renderPage picks the static or headless path for one page. Render failures
// degrade to an unsuccessful page; they never abort the pass.
func (o *Orchestrator) renderPage(ctx context.Context, rawURL string, log *zap.Logger) collector.RenderedPage {
	if rawURL == "" {
		return collector.RenderedPage{}
	}
	renderer := o.headless
	if o.static != nil && (o.detector == nil || !o.detector.NeedsRendering(ctx, rawURL)) {
		renderer = o.static
	}
	if renderer == nil {
		return collector.RenderedPage{URL: rawURL}
	}
	page, err := renderer.Render(ctx, rawURL)
	if err != nil {
		log.Warn("page render failed", zap.String("url", rawURL), zap.Error(err))
		return collector.RenderedPage{URL: rawURL, Error: err.Error()}
	}
	return page
}

// secondPass runs the independent general-news search plus the RSS
// supplement, merging results whose normalized titles are not already taken.
func (o *Orchestrator) secondPass(ctx context.Context, dest collector.Destination, news []collector.DiscoveredItem, log *zap.Logger) []collector.DiscoveredItem {
	seen := make(map[string]struct{}, len(news))
	for _, item := range news {
		seen[persist.NormalizeTitle(item.Title)] = struct{}{}
	}

	text, err := o.provider.Generate(ctx, ai.Request{
		System:    systemPrompt,
		Prompt:    o.prompts.newsPrompt(dest),
		MaxTokens: o.maxTokens,
	})
	if err != nil {
		log.Warn("news pass provider call failed", zap.Error(err))
	} else if extra, _, parseErr := parseFindings(text); parseErr != nil {
		log.Warn("news pass parse failed", zap.Error(parseErr))
	} else {
		news = mergeNews(news, extra, seen)
	}

	if o.feed != nil {
		feedItems, feedErr := o.feed.Search(ctx, dest.Name)
		if feedErr != nil {
			log.Debug("news feed lookup failed", zap.Error(feedErr))
		} else {
			news = mergeNews(news, feedItems, seen)
		}
	}
	return news
}

func (o *Orchestrator) save(ctx context.Context, destinationID string, news, events []collector.DiscoveredItem) (collector.CollectionResult, error) {
	var result collector.CollectionResult
	newsSaved, err := o.saver.SaveNews(ctx, destinationID, news)
	result.NewsSaved = newsSaved
	if err != nil {
		return result, fmt.Errorf("save news: %w", err)
	}
	eventsSaved, err := o.saver.SaveEvents(ctx, destinationID, events)
	result.EventsSaved = eventsSaved
	if err != nil {
		return result, fmt.Errorf("save events: %w", err)
	}
	return result, nil
}

// reconcileLinks replaces missing, redirect, or listing URLs with the best
// matching extracted deep link. Specific URLs are never overwritten.
func reconcileLinks(items []collector.DiscoveredItem, page collector.RenderedPage, kind collector.ItemKind) {
	if !page.Success || len(page.Links) == 0 {
		return
	}
	for i := range items {
		if !matcher.ShouldReplaceURL(items[i], page.URL) {
			continue
		}
		if best := matcher.BestLink(items[i], page.Links, kind); best.Accepted() {
			items[i].SourceURL = best.URL
		}
	}
}

// markFirstParty flags news items whose URL lives on the destination's own
// domain; they bypass the news age cutoff downstream.
func markFirstParty(items []collector.DiscoveredItem, dest collector.Destination) {
	hosts := make(map[string]struct{}, 2)
	for _, raw := range []string{dest.WebsiteURL, dest.NewsPageURL, dest.EventsPageURL} {
		if host := hostOf(raw); host != "" {
			hosts[host] = struct{}{}
		}
	}
	if len(hosts) == 0 {
		return
	}
	for i := range items {
		if _, ok := hosts[hostOf(items[i].SourceURL)]; ok {
			items[i].FirstParty = true
		}
	}
}

func mergeNews(news, extra []collector.DiscoveredItem, seen map[string]struct{}) []collector.DiscoveredItem {
	for _, item := range extra {
		key := persist.NormalizeTitle(item.Title)
		if key == "" {
			continue
		}
		if _, taken := seen[key]; taken {
			continue
		}
		item.Kind = collector.KindNews
		news = append(news, item)
		seen[key] = struct{}{}
	}
	return news
}

func hostOf(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
}

func (o *Orchestrator) setPhase(ctx context.Context, destinationID string, phase progress.Phase, log *zap.Logger) {
	o.must(o.progress.SetPhase(ctx, destinationID, phase), log, "progress update")
}

func (o *Orchestrator) fail(ctx context.Context, destinationID string, log *zap.Logger, msg string, err error) {
	log.Warn(msg, zap.Error(err))
	o.must(o.progress.SetError(ctx, destinationID, fmt.Sprintf("%s: %v", msg, err)), log, "progress error")
}

func (o *Orchestrator) must(err error, log *zap.Logger, what string) {
	if err != nil {
		log.Warn(what+" failed", zap.Error(err))
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
