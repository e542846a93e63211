package discovery

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/rootsofthevalley/content-collector/internal/collector"
)

// googleNewsLimit caps how many feed items one supplement pass contributes.
const googleNewsLimit = 10

// NewsFeed supplies supplementary news items for a destination name.
type NewsFeed interface {
	Search(ctx context.Context, query string) ([]collector.DiscoveredItem, error)
}

// GoogleNewsFeed queries the Google News RSS search endpoint. Item links are
// news.google.com indirection URLs; the persistence layer resolves them.
type GoogleNewsFeed struct {
	parser  *gofeed.Parser
	baseURL string
}

// NewGoogleNewsFeed builds a feed client with a bounded-time parser.
func NewGoogleNewsFeed(timeout time.Duration) *GoogleNewsFeed {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	parser := gofeed.NewParser()
	parser.UserAgent = "content-collector/1.0"
	parser.Client = newFeedClient(timeout)
	return &GoogleNewsFeed{
		parser:  parser,
		baseURL: "https://news.google.com/rss/search",
	}
}

// Search fetches the RSS results for a quoted destination-name query.
func (g *GoogleNewsFeed) Search(ctx context.Context, query string) ([]collector.DiscoveredItem, error) {
	params := url.Values{}
	params.Set("q", fmt.Sprintf("%q", query))
	params.Set("hl", "en-US")
	params.Set("gl", "US")
	params.Set("ceid", "US:en")

	feed, err := g.parser.ParseURLWithContext(g.baseURL+"?"+params.Encode(), ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch google news feed: %w", err)
	}

	items := make([]collector.DiscoveredItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if entry == nil || entry.Title == "" {
			continue
		}
		item := collector.DiscoveredItem{
			Title:     entry.Title,
			Summary:   entry.Description,
			SourceURL: entry.Link,
			Kind:      collector.KindNews,
		}
		if entry.PublishedParsed != nil {
			item.Date = entry.PublishedParsed.UTC().Format("2006-01-02")
		}
		if feed.Title != "" {
			item.SourceName = feed.Title
		}
		items = append(items, item)
		if len(items) >= googleNewsLimit {
			break
		}
	}
	return items, nil
}

func newFeedClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
