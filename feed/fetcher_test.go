package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/">
<channel>
  <title>Sample</title>
  <link>https://news.example</link>
  <description>Sample feed</description>
  <item>
    <title>First story</title>
    <link>https://news.example/1</link>
    <guid>urn:story:1</guid>
    <description><![CDATA[<p>Hello <b>world</b>,
      again.</p>]]></description>
    <pubDate>Mon, 06 Jan 2025 10:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Second story</title>
    <link>https://news.example/2</link>
    <dc:identifier>story-2</dc:identifier>
    <description>Plain snippet</description>
  </item>
</channel>
</rss>`

func TestGofeedFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "newsdesk")
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	items, err := NewGofeedFetcher(srv.Client()).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, items, 2)

	first := items[0]
	assert.Equal(t, "urn:story:1", first.GUID)
	assert.Equal(t, "First story", first.Title)
	assert.Equal(t, "https://news.example/1", first.Link)
	assert.Equal(t, "Hello world, again.", first.ContentSnippet)
	assert.True(t, first.Published.Equal(time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)))

	second := items[1]
	assert.Empty(t, second.GUID)
	assert.Equal(t, "story-2", second.ID)
	assert.Equal(t, "Plain snippet", second.ContentSnippet)
	assert.True(t, second.Published.IsZero())
}

func TestGofeedFetcher_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	_, err := NewGofeedFetcher(nil).Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "", stripHTML("  "))
	assert.Equal(t, "a b", stripHTML("<div>a</div>\n<div>b</div>"))
	assert.Equal(t, "plain text", stripHTML("plain   text"))
}
