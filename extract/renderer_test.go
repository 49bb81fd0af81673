package extract

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><title>ignored</title><style>body { color: red; }</style></head>
<body>
<h1>Chip makers rally</h1>
<script>window.tracking = true;</script>
<p>Shares rose
sharply on Monday.</p>
<noscript>Enable JavaScript</noscript>
</body>
</html>`

func TestHTTPRenderer_Render(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	text, err := NewHTTPRenderer(srv.Client()).Render(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Contains(t, text, "Chip makers rally")
	assert.Contains(t, text, "Shares rose")
	assert.NotContains(t, text, "tracking")
	assert.NotContains(t, text, "color: red")
	assert.NotContains(t, text, "Enable JavaScript")

	normalized := Normalize(text)
	assert.NotContains(t, normalized, "\n")
	assert.Contains(t, normalized, "Shares rose sharply on Monday.")
}

func TestHTTPRenderer_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewHTTPRenderer(nil).Render(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.True(t, strings.Contains(err.Error(), "403"))
}

func TestHTTPRenderer_Cancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHTTPRenderer(nil).Render(ctx, srv.URL)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChromeRenderer_RelaunchesExitedBrowser(t *testing.T) {
	r := NewChromeRenderer(time.Second)
	defer r.Close()

	var launches int
	r.launch = func(allocCtx context.Context) (context.Context, context.CancelFunc, error) {
		launches++
		ctx, cancel := context.WithCancel(allocCtx)
		return ctx, cancel, nil
	}

	first, err := r.browser()
	require.NoError(t, err)
	again, err := r.browser()
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, 1, launches)

	// Simulate the browser process dying
	r.stopBrowser()
	require.Error(t, first.Err())

	relaunched, err := r.browser()
	require.NoError(t, err)
	assert.NoError(t, relaunched.Err())
	assert.Equal(t, 2, launches)
}

func TestChromeRenderer_LaunchFailure(t *testing.T) {
	r := NewChromeRenderer(time.Second)
	defer r.Close()
	r.launch = func(context.Context) (context.Context, context.CancelFunc, error) {
		return nil, nil, errors.New("chrome not found")
	}

	_, err := r.Render(context.Background(), "https://news.example/a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "launch browser")
	assert.Nil(t, r.browserCtx)
}
