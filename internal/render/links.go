package render

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/rootsofthevalley/content-collector/internal/collector"
)

// containerTextCap bounds the context text carried by a link candidate.
const containerTextCap = 500

// containerClimbLevels is how many ancestors are inspected for a card-like
// container before falling back to the immediate parent.
const containerClimbLevels = 3

var containerClassHints = []string{"event", "article", "card", "news", "item", "tile", "listing"}

var socialHosts = []string{
	"facebook.com",
	"twitter.com",
	"x.com",
	"instagram.com",
	"youtube.com",
	"linkedin.com",
	"tiktok.com",
}

// ExtractLinks pulls deep-link candidates out of a rendered document:
// anchors with real targets, each with its own text, the text of the nearest
// card-like container, and class-name hints for the matcher.
func ExtractLinks(doc *goquery.Document, pageURL string) []collector.LinkCandidate {
	base, _ := url.Parse(pageURL)

	var out []collector.LinkCandidate
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		target := resolveTarget(base, href)
		if target == "" {
			return
		}
		text := squash(sel.Text())
		container := containerText(sel)
		if text == "" && container == "" {
			return
		}
		out = append(out, collector.LinkCandidate{
			URL:           target,
			Text:          text,
			ContainerText: container,
			ClassHint:     classHint(sel),
		})
	})
	return out
}

// resolveTarget returns the absolute URL, or "" for navigational targets
// (mailto/tel/fragment/javascript) and social-network links.
func resolveTarget(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	lower := strings.ToLower(href)
	for _, scheme := range []string{"mailto:", "tel:", "javascript:"} {
		if strings.HasPrefix(lower, scheme) {
			return ""
		}
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		parsed = base.ResolveReference(parsed)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
	for _, social := range socialHosts {
		if host == social || strings.HasSuffix(host, "."+social) {
			return ""
		}
	}
	return parsed.String()
}

// containerText climbs ancestors looking for an event/article/card-like
// class and returns that container's text; otherwise the immediate parent's.
func containerText(sel *goquery.Selection) string {
	node := sel.Parent()
	for level := 0; level < containerClimbLevels && node.Length() > 0; level++ {
		if class, ok := node.Attr("class"); ok && cardLikeClass(class) {
			return capText(squash(node.Text()))
		}
		node = node.Parent()
	}
	return capText(squash(sel.Parent().Text()))
}

func cardLikeClass(class string) bool {
	lower := strings.ToLower(class)
	for _, hint := range containerClassHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

func classHint(sel *goquery.Selection) string {
	own, _ := sel.Attr("class")
	parent, _ := sel.Parent().Attr("class")
	return strings.TrimSpace(own + " " + parent)
}

func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func capText(s string) string {
	if len(s) > containerTextCap {
		return s[:containerTextCap]
	}
	return s
}
