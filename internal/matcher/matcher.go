// Package matcher reconciles discovered items against link candidates
// extracted from rendered pages. Scoring is pure and does no I/O.
//
// Matching is greedy per item: the same link may be assigned to more than
// one item. There is no global de-confliction of assignments.
package matcher

import (
	"strings"
	"time"

	"github.com/rootsofthevalley/content-collector/internal/collector"
)

// AcceptThreshold is the minimum weighted score at which the best
// candidate's URL is adopted. Empirically tuned; scores below it leave the
// item's URL untouched.
const AcceptThreshold = 2.0

// Weights applied to the individual similarity signals.
const (
	weightTitleText    = 3.0
	weightTitleContext = 2.0
	weightDescContext  = 1.0
	weightDateBonus    = 1.0
	weightClassBonus   = 0.5
)

// Match holds the best-scoring candidate for an item.
type Match struct {
	URL   string
	Score float64
}

// BestLink scores every candidate against the item and returns the single
// highest-scoring one. The caller decides whether to adopt the URL; Accepted
// reports the threshold test.
func BestLink(item collector.DiscoveredItem, candidates []collector.LinkCandidate, kind collector.ItemKind) Match {
	best := Match{}
	for _, cand := range candidates {
		score := scoreCandidate(item, cand, kind)
		if score > best.Score {
			best = Match{URL: cand.URL, Score: score}
		}
	}
	return best
}

// Accepted reports whether the match clears the adoption threshold.
func (m Match) Accepted() bool {
	return m.URL != "" && m.Score >= AcceptThreshold
}

func scoreCandidate(item collector.DiscoveredItem, cand collector.LinkCandidate, kind collector.ItemKind) float64 {
	score := weightTitleText * Similarity(item.Title, cand.Text)
	score += weightTitleContext * Similarity(item.Title, cand.ContainerText)
	if item.Description != "" {
		score += weightDescContext * Similarity(item.Description, cand.ContainerText)
	}
	if item.Summary != "" {
		score += weightDescContext * Similarity(item.Summary, cand.ContainerText)
	}
	if kind == collector.KindEvent && dateAppears(item.StartDate, cand) {
		score += weightDateBonus
	}
	if classMatchesKind(cand.ClassHint, kind) {
		score += weightClassBonus
	}
	return score
}

// Similarity is the Jaccard index over whitespace-tokenized, lowercased,
// punctuation-stripped word sets. Identical normalized strings short-circuit
// to 1.0; either side empty yields 0.
func Similarity(a, b string) float64 {
	na, nb := normalize(a), normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1.0
	}
	setA := tokenSet(na)
	setB := tokenSet(nb)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	intersection := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ', r == '\t', r == '\n':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func tokenSet(normalized string) map[string]struct{} {
	fields := strings.Fields(normalized)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// dateAppears checks whether any textual rendering of the event's start
// date occurs verbatim in the link's text or surrounding context.
func dateAppears(startDate string, cand collector.LinkCandidate) bool {
	if startDate == "" {
		return false
	}
	haystack := strings.ToLower(cand.Text + " " + cand.ContainerText)
	for _, form := range dateRenderings(startDate) {
		if form != "" && strings.Contains(haystack, strings.ToLower(form)) {
			return true
		}
	}
	return false
}

// dateRenderings expands an ISO yyyy-mm-dd date into the spellings pages
// commonly use. The ISO string itself is always included.
func dateRenderings(iso string) []string {
	forms := []string{iso}
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return forms
	}
	forms = append(forms,
		t.Format("January 2, 2006"),
		t.Format("January 2"),
		t.Format("Jan 2, 2006"),
		t.Format("Jan 2"),
		t.Format("1/2/2006"),
		t.Format("01/02/2006"),
		t.Format("1/2"),
	)
	return forms
}

func classMatchesKind(classHint string, kind collector.ItemKind) bool {
	if classHint == "" {
		return false
	}
	hint := strings.ToLower(classHint)
	switch kind {
	case collector.KindEvent:
		return strings.Contains(hint, "event")
	case collector.KindNews:
		return strings.Contains(hint, "news") || strings.Contains(hint, "article")
	default:
		return false
	}
}

// redirectMarkers are URL fragments identifying indirection services whose
// links are not final destinations.
var redirectMarkers = []string{
	"vertexaisearch.cloud.google.com/grounding-api-redirect",
	"google.com/url?",
	"news.google.com/rss/articles",
}

// IsRedirectURL reports whether the URL points at a known indirection
// service rather than a final destination.
func IsRedirectURL(rawURL string) bool {
	if rawURL == "" {
		return false
	}
	for _, marker := range redirectMarkers {
		if strings.Contains(rawURL, marker) {
			return true
		}
	}
	return false
}

// IsListingURL reports whether the URL is a generic index page: equal to the
// page's own listing URL, or ending in /news or /events (trailing slash
// tolerated).
func IsListingURL(rawURL, pageURL string) bool {
	if rawURL == "" {
		return false
	}
	if pageURL != "" && strings.TrimSuffix(rawURL, "/") == strings.TrimSuffix(pageURL, "/") {
		return true
	}
	trimmed := strings.TrimSuffix(rawURL, "/")
	return strings.HasSuffix(trimmed, "/news") || strings.HasSuffix(trimmed, "/events")
}

// ShouldReplaceURL decides whether the matcher may overwrite an item's URL.
// Already-specific deep links are never replaced.
func ShouldReplaceURL(item collector.DiscoveredItem, pageURL string) bool {
	if item.SourceURL == "" {
		return true
	}
	if IsRedirectURL(item.SourceURL) {
		return true
	}
	return IsListingURL(item.SourceURL, pageURL)
}
