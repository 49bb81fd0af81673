package extract

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
)

// Renderer loads a page and returns its visible body text.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

const (
	defaultRenderTimeout = 60 * time.Second
	defaultUserAgent     = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// ChromeRenderer renders pages in a shared headless Chrome process.
// Each Render call opens its own tab.
type ChromeRenderer struct {
	allocCtx    context.Context
	cancel      context.CancelFunc
	timeout     time.Duration
	logger      *slog.Logger
	mu          sync.Mutex
	browserCtx  context.Context
	stopBrowser context.CancelFunc
	launch      func(allocCtx context.Context) (context.Context, context.CancelFunc, error)
}

var _ Renderer = (*ChromeRenderer)(nil)

// NewChromeRenderer starts a headless browser allocator. The browser
// process itself is launched lazily by the first Render call.
func NewChromeRenderer(timeout time.Duration) *ChromeRenderer {
	if timeout <= 0 {
		timeout = defaultRenderTimeout
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Headless,
		chromedp.UserAgent(defaultUserAgent),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &ChromeRenderer{
		allocCtx: allocCtx,
		cancel:   cancel,
		timeout:  timeout,
		logger:   slog.Default().With("component", "chrome-renderer"),
		launch:   launchBrowser,
	}
}

func launchBrowser(allocCtx context.Context) (context.Context, context.CancelFunc, error) {
	browserCtx, stop := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		stop()
		return nil, nil, err
	}
	return browserCtx, stop, nil
}

// Render navigates to url, waits for the body and reads its innerText.
func (r *ChromeRenderer) Render(ctx context.Context, url string) (string, error) {
	browserCtx, err := r.browser()
	if err != nil {
		return "", err
	}
	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, r.timeout)
	defer cancelTimeout()

	// The tab derives from the allocator, so tie it to the caller as well
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var text string
	err = chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Text("body", &text, chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	r.logger.Debug("rendered page", "url", url, "length", len(text))
	return text, nil
}

// browser returns the shared browser context, launching Chrome on first use
// and again after the previous browser has gone away.
func (r *ChromeRenderer) browser() (context.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browserCtx != nil {
		if r.browserCtx.Err() == nil {
			return r.browserCtx, nil
		}
		r.logger.Warn("browser exited, relaunching", "err", context.Cause(r.browserCtx))
		r.stopBrowser()
		r.browserCtx, r.stopBrowser = nil, nil
	}
	if err := r.allocCtx.Err(); err != nil {
		return nil, err
	}
	browserCtx, stop, err := r.launch(r.allocCtx)
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	r.logger.Info("browser started")
	r.browserCtx, r.stopBrowser = browserCtx, stop
	return browserCtx, nil
}

// Close shuts the browser down.
func (r *ChromeRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopBrowser != nil {
		r.stopBrowser()
		r.browserCtx, r.stopBrowser = nil, nil
	}
	r.cancel()
	return nil
}

// HTTPRenderer fetches static HTML and extracts the body text with goquery.
// It does not run scripts, so it only suits server-rendered pages.
type HTTPRenderer struct {
	client *http.Client
	logger *slog.Logger
}

var _ Renderer = (*HTTPRenderer)(nil)

// NewHTTPRenderer creates a renderer using client, or a client with the
// default timeout when client is nil.
func NewHTTPRenderer(client *http.Client) *HTTPRenderer {
	if client == nil {
		client = &http.Client{Timeout: defaultRenderTimeout}
	}
	return &HTTPRenderer{
		client: client,
		logger: slog.Default().With("component", "http-renderer"),
	}
}

// Render downloads url and returns the text of its body without scripts and styles.
func (r *HTTPRenderer) Render(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}
	return BodyText(doc), nil
}

// BodyText returns the text of the document body with script, style,
// noscript and template elements removed.
func BodyText(doc *goquery.Document) string {
	doc.Find("script, style, noscript, template").Remove()
	return doc.Find("body").Text()
}
