package matcher

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rootsofthevalley/content-collector/internal/collector"
)

func TestSimilarityIdenticalStrings(t *testing.T) {
	t.Parallel()

	require.Equal(t, 1.0, Similarity("Trail Day", "Trail Day"))
	require.Equal(t, 1.0, Similarity("Trail Day!", "trail day"))
}

func TestSimilarityEmptyOperand(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0.0, Similarity("", "x"))
	require.Equal(t, 0.0, Similarity("x", ""))
	require.Equal(t, 0.0, Similarity("", ""))
}

func TestSimilarityPartialOverlap(t *testing.T) {
	t.Parallel()

	// {fall, hike} vs {fall, hike, registration}: 2/3.
	got := Similarity("Fall Hike", "Fall Hike Registration")
	require.InDelta(t, 2.0/3.0, got, 1e-9)
}

func TestBestLinkPicksHighestScore(t *testing.T) {
	t.Parallel()

	item := collector.DiscoveredItem{
		Title: "Annual Fall Hike",
		Kind:  collector.KindEvent,
	}
	candidates := []collector.LinkCandidate{
		{URL: "https://example.org/contact", Text: "Contact Us"},
		{URL: "https://example.org/events/fall-hike", Text: "Annual Fall Hike", ContainerText: "Annual Fall Hike join us on the towpath"},
	}

	match := BestLink(item, candidates, collector.KindEvent)
	require.Equal(t, "https://example.org/events/fall-hike", match.URL)
	require.True(t, match.Accepted())
}

func TestMatchThresholdBoundary(t *testing.T) {
	t.Parallel()

	require.True(t, Match{URL: "https://x", Score: 2.0}.Accepted())
	require.False(t, Match{URL: "https://x", Score: 1.99}.Accepted())
	require.False(t, Match{Score: 3.0}.Accepted())
}

func TestEventDateBonus(t *testing.T) {
	t.Parallel()

	item := collector.DiscoveredItem{
		Title:     "Owl Walk",
		StartDate: "2026-01-30",
		Kind:      collector.KindEvent,
	}
	withDate := collector.LinkCandidate{
		URL:           "https://example.org/events/owl-walk",
		Text:          "Owl Walk",
		ContainerText: "Owl Walk January 30, 2026 at the visitor center",
	}
	withoutDate := collector.LinkCandidate{
		URL:  "https://example.org/events/owl-walk",
		Text: "Owl Walk",
	}

	scoreWith := scoreCandidate(item, withDate, collector.KindEvent)
	scoreWithout := scoreCandidate(item, withoutDate, collector.KindEvent)
	require.InDelta(t, weightDateBonus, scoreWith-scoreWithout-weightTitleContext*Similarity(item.Title, withDate.ContainerText), 1e-9)
}

func TestClassHintBonus(t *testing.T) {
	t.Parallel()

	item := collector.DiscoveredItem{Title: "Beaver Marsh Update"}
	newsCand := collector.LinkCandidate{URL: "https://x", Text: "Beaver Marsh Update", ClassHint: "news-card"}
	plainCand := collector.LinkCandidate{URL: "https://x", Text: "Beaver Marsh Update"}

	require.InDelta(t, weightClassBonus,
		scoreCandidate(item, newsCand, collector.KindNews)-scoreCandidate(item, plainCand, collector.KindNews), 1e-9)

	// "event" class hint gives no bonus for news items.
	eventCand := collector.LinkCandidate{URL: "https://x", Text: "Beaver Marsh Update", ClassHint: "event-tile"}
	require.InDelta(t, 0,
		scoreCandidate(item, eventCand, collector.KindNews)-scoreCandidate(item, plainCand, collector.KindNews), 1e-9)
}

func TestShouldReplaceURL(t *testing.T) {
	t.Parallel()

	pageURL := "https://example.org/events"

	require.True(t, ShouldReplaceURL(collector.DiscoveredItem{}, pageURL))
	require.True(t, ShouldReplaceURL(collector.DiscoveredItem{
		SourceURL: "https://vertexaisearch.cloud.google.com/grounding-api-redirect/abc",
	}, pageURL))
	require.True(t, ShouldReplaceURL(collector.DiscoveredItem{
		SourceURL: "https://example.org/events/",
	}, pageURL))
	require.True(t, ShouldReplaceURL(collector.DiscoveredItem{
		SourceURL: "https://example.org/news",
	}, pageURL))

	// A specific deep link is never overwritten.
	require.False(t, ShouldReplaceURL(collector.DiscoveredItem{
		SourceURL: "https://example.org/events/fall-hike",
	}, pageURL))
}

func TestIsListingURLTrailingSlash(t *testing.T) {
	t.Parallel()

	require.True(t, IsListingURL("https://example.org/news/", ""))
	require.True(t, IsListingURL("https://example.org/events", ""))
	require.False(t, IsListingURL("https://example.org/events/owl-walk", ""))
}
