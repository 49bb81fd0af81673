package newsdesk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/newsdesk/ai/mock"
	"github.com/poiesic/newsdesk/core"
	"github.com/poiesic/newsdesk/feed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type feedStub struct{ items []feed.Item }

func (f *feedStub) Fetch(ctx context.Context, feedURL string) ([]feed.Item, error) {
	return f.items, nil
}

type pageStub struct {
	mu    sync.Mutex
	calls int
}

func (p *pageStub) Render(ctx context.Context, url string) (string, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return "Full article text for " + url + ".\nSecond paragraph.", nil
}

func (p *pageStub) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.InMemory = true
	cfg.VectorStore = VectorStoreLocal
	cfg.Renderer = RendererHTTP
	cfg.Throttle = 0
	return cfg
}

func stubItems(n int) []feed.Item {
	items := make([]feed.Item, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, feed.Item{
			GUID:           fmt.Sprintf("g%d", i),
			Link:           fmt.Sprintf("https://news.example/%d", i),
			Title:          fmt.Sprintf("Story %d", i),
			ContentSnippet: "snippet",
		})
	}
	return items
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{name: "missing data dir", modify: func(c *Config) { c.InMemory = false; c.DataDir = "" }},
		{name: "unknown vector store", modify: func(c *Config) { c.VectorStore = "pinecone" }},
		{name: "missing qdrant url", modify: func(c *Config) { c.VectorStore = VectorStoreQdrant; c.Qdrant.URL = "" }},
		{name: "unknown renderer", modify: func(c *Config) { c.Renderer = "lynx" }},
		{name: "zero concurrency", modify: func(c *Config) { c.Concurrency = 0 }},
		{name: "negative throttle", modify: func(c *Config) { c.Throttle = -time.Second }},
		{name: "bad retry policy", modify: func(c *Config) { c.Retry.MaxAttempts = 0 }},
		{name: "missing ai config", modify: func(c *Config) { c.AI = nil }},
		{name: "bad ai config", modify: func(c *Config) { c.AI.ChatModel = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.modify(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	assert.NoError(t, testConfig().Validate())
	assert.NoError(t, DefaultConfig().Validate())
}

func TestConfig_Normalize(t *testing.T) {
	cfg := testConfig()
	cfg.VectorStore = " LOCAL "
	cfg.Renderer = "HTTP"
	cfg.Normalize()
	assert.Equal(t, VectorStoreLocal, cfg.VectorStore)
	assert.Equal(t, RendererHTTP, cfg.Renderer)
}

func TestOpen_InvalidDataDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not_a_dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	cfg := testConfig()
	cfg.InMemory = false
	cfg.DataDir = file
	svc, err := Open(cfg, WithAIProvider(mock.NewMockProvider()))
	assert.ErrorIs(t, err, core.ErrStorageUnavailable)
	assert.Nil(t, svc)
}

func TestOpen_BuildsDefaultCollaborators(t *testing.T) {
	cfg := testConfig()
	cfg.VectorStore = VectorStoreQdrant
	cfg.Renderer = RendererChrome
	svc, err := Open(cfg)
	require.NoError(t, err)
	assert.NotNil(t, svc.Feeds())
	assert.NotNil(t, svc.Chat())
	assert.NotNil(t, svc.Queue())
	assert.NotNil(t, svc.Worker())
	require.NoError(t, svc.Shutdown(context.Background()))
	require.NoError(t, svc.Shutdown(context.Background()))
	assert.ErrorIs(t, svc.Start(context.Background()), ErrServiceStopped)
}

func TestService_IngestThenChat(t *testing.T) {
	chatModel := mock.NewMockChatModel("Here is", " the news.")
	provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder(), chatModel)
	pages := &pageStub{}

	svc, err := Open(testConfig(),
		WithAIProvider(provider),
		WithFetcher(&feedStub{items: stubItems(3)}),
		WithRenderer(pages),
	)
	require.NoError(t, err)
	ctx := context.Background()
	defer svc.Shutdown(ctx)

	result, err := svc.Feeds().IngestSource(ctx, "Wired Business")
	require.NoError(t, err)
	require.Len(t, result.Articles, 3)

	require.NoError(t, svc.Start(ctx))
	require.Eventually(t, func() bool {
		counts, err := svc.Queue().Stats(ctx)
		return err == nil && counts.Completed == 3
	}, 10*time.Second, 20*time.Millisecond)
	assert.Equal(t, 3, pages.count())

	again, err := svc.Feeds().IngestSource(ctx, "wired business")
	require.NoError(t, err)
	assert.Empty(t, again.Articles)

	turn, err := svc.Chat().Chat(ctx, "what is new?", "")
	require.NoError(t, err)
	var answer strings.Builder
	for {
		delta, err := turn.Recv(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		answer.WriteString(delta)
	}
	assert.Equal(t, "Here is the news.", answer.String())

	system := chatModel.LastPrompt()[0].Content
	assert.Contains(t, system, "Full article text for https://news.example/0. Second paragraph.")

	srv, err := svc.NewServer()
	require.NoError(t, err)
	assert.NotNil(t, srv.Handler())
}
