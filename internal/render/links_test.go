package render

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestExtractLinksSkipsNavigationalTargets(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, `<html><body>
		<a href="mailto:info@example.org">Email</a>
		<a href="tel:+13305551234">Call</a>
		<a href="#section">Jump</a>
		<a href="javascript:void(0)">Click</a>
		<a href="https://www.facebook.com/valleypark">Facebook</a>
		<a href="/events/owl-walk">Owl Walk</a>
	</body></html>`)

	links := ExtractLinks(doc, "https://example.org/events")
	require.Len(t, links, 1)
	require.Equal(t, "https://example.org/events/owl-walk", links[0].URL)
	require.Equal(t, "Owl Walk", links[0].Text)
}

func TestExtractLinksContainerClimb(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, `<html><body>
		<div class="event-card">
			<h3>Owl Walk</h3>
			<p>January 30, 2026 at the visitor center.</p>
			<div><span><a href="/events/owl-walk">Details</a></span></div>
		</div>
	</body></html>`)

	links := ExtractLinks(doc, "https://example.org/events")
	require.Len(t, links, 1)
	require.Contains(t, links[0].ContainerText, "Owl Walk")
	require.Contains(t, links[0].ContainerText, "January 30, 2026")
}

func TestExtractLinksFallsBackToParentText(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, `<html><body>
		<div><div><div><div>
			<p>Deeply nested without a card class <a href="/news/story">Story</a></p>
		</div></div></div></div>
	</body></html>`)

	links := ExtractLinks(doc, "https://example.org/news")
	require.Len(t, links, 1)
	require.Contains(t, links[0].ContainerText, "Deeply nested")
}

func TestExtractLinksContainerTextCapped(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x ", 600)
	doc := parseDoc(t, `<html><body>
		<div class="news-item">`+long+`<a href="/news/long">Long</a></div>
	</body></html>`)

	links := ExtractLinks(doc, "https://example.org/news")
	require.Len(t, links, 1)
	require.LessOrEqual(t, len(links[0].ContainerText), containerTextCap)
}

func TestExtractLinksClassHint(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, `<html><body>
		<div class="event-tile"><a class="cta" href="/events/hike">Hike</a></div>
	</body></html>`)

	links := ExtractLinks(doc, "https://example.org/")
	require.Len(t, links, 1)
	require.Contains(t, links[0].ClassHint, "cta")
	require.Contains(t, links[0].ClassHint, "event-tile")
}
