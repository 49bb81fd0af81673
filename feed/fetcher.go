package feed

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// Item is a feed entry reduced to the fields ingestion looks at.
type Item struct {
	GUID           string
	ID             string
	Link           string
	Title          string
	ContentSnippet string // Plain text, HTML removed
	Published      time.Time
}

// Fetcher downloads and parses a feed.
type Fetcher interface {
	Fetch(ctx context.Context, feedURL string) ([]Item, error)
}

const (
	defaultFetchTimeout = 30 * time.Second
	fetchUserAgent      = "newsdesk/1.0 (+https://github.com/poiesic/newsdesk)"
)

// GofeedFetcher fetches RSS, Atom and JSON feeds with gofeed.
type GofeedFetcher struct {
	parser *gofeed.Parser
}

var _ Fetcher = (*GofeedFetcher)(nil)

// NewGofeedFetcher creates a fetcher. A nil client gets a default timeout.
func NewGofeedFetcher(client *http.Client) *GofeedFetcher {
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = fetchUserAgent
	return &GofeedFetcher{parser: parser}
}

// Fetch downloads feedURL and returns its items in feed order.
func (f *GofeedFetcher) Fetch(ctx context.Context, feedURL string) ([]Item, error) {
	parsed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, err
	}
	return Items(parsed), nil
}

// Items converts parsed feed entries.
func Items(parsed *gofeed.Feed) []Item {
	items := make([]Item, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		if it == nil {
			continue
		}
		item := Item{
			GUID:  it.GUID,
			Link:  strings.TrimSpace(it.Link),
			Title: strings.TrimSpace(it.Title),
		}
		if it.DublinCoreExt != nil && len(it.DublinCoreExt.Identifier) > 0 {
			item.ID = it.DublinCoreExt.Identifier[0]
		}
		snippet := it.Description
		if strings.TrimSpace(snippet) == "" {
			snippet = it.Content
		}
		item.ContentSnippet = stripHTML(snippet)
		if it.PublishedParsed != nil {
			item.Published = it.PublishedParsed.UTC()
		} else if it.UpdatedParsed != nil {
			item.Published = it.UpdatedParsed.UTC()
		}
		items = append(items, item)
	}
	return items
}

// stripHTML returns the text content of an HTML fragment with whitespace collapsed.
func stripHTML(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
