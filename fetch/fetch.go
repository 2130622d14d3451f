// Package fetch acquires the HTML of a review page, either with a plain
// HTTP GET or by rendering it in a headless browser for pages that build
// their comments client-side.
package fetch

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/hazyhaar/ccmark/highlight"
)

// Mode selects how a page is acquired.
type Mode string

const (
	ModeHTTP    Mode = "http"
	ModeBrowser Mode = "browser"
	// ModeAuto tries HTTP and escalates to the browser when the HTTP body
	// holds no comment container.
	ModeAuto Mode = "auto"
)

// ErrNoBrowser is returned for browser mode when no Renderer is configured.
var ErrNoBrowser = errors.New("fetch: no browser configured")

// ParseMode validates a mode name. Empty means auto.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeAuto, nil
	case ModeHTTP, ModeBrowser, ModeAuto:
		return m, nil
	default:
		return "", fmt.Errorf("fetch: unknown mode %q", s)
	}
}

// Renderer loads a page in a browser and returns its final DOM.
type Renderer interface {
	Render(ctx context.Context, pageURL string) ([]byte, error)
}

// Result is the outcome of a fetch.
type Result struct {
	URL        string
	HTML       []byte
	Hash       string // SHA-256 hex of HTML
	Mode       Mode   // mode that produced HTML
	StatusCode int    // 0 for browser results
	ETag       string
	LastMod    string
	Containers int // comment containers found in HTML
}

// Fetcher performs fetches.
type Fetcher struct {
	client       *http.Client
	ua           string
	maxBody      int64
	allowPrivate bool
	browser      Renderer
	containers   *highlight.Containers
	logger       *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient sets a custom HTTP client.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.ua = ua
		}
	}
}

// WithMaxBody caps HTTP bodies. Default: 10 MiB.
func WithMaxBody(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBody = n
		}
	}
}

// WithAllowPrivate disables the private-address check. For tests and
// self-hosted code review servers on the local network.
func WithAllowPrivate(allow bool) Option {
	return func(f *Fetcher) { f.allowPrivate = allow }
}

// WithBrowser enables browser and auto escalation.
func WithBrowser(r Renderer) Option {
	return func(f *Fetcher) { f.browser = r }
}

// WithContainers sets the predicate used to count comment containers.
func WithContainers(c *highlight.Containers) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.containers = c
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// New creates a Fetcher with sensible defaults.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:     &http.Client{Timeout: 30 * time.Second},
		ua:         "Mozilla/5.0 (compatible; ccmark/1.0)",
		maxBody:    10 << 20,
		containers: highlight.DefaultContainers(),
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch acquires pageURL with the given mode.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string, mode Mode) (*Result, error) {
	if err := ValidateURL(pageURL, f.allowPrivate); err != nil {
		return nil, err
	}

	switch mode {
	case ModeHTTP:
		return f.fetchHTTP(ctx, pageURL)
	case ModeBrowser:
		return f.fetchBrowser(ctx, pageURL)
	case ModeAuto, "":
		res, err := f.fetchHTTP(ctx, pageURL)
		if err == nil && res.Containers > 0 {
			return res, nil
		}
		if f.browser == nil {
			return res, err
		}
		f.logger.Info("fetch: escalating to browser", "url", pageURL, "http_error", err)
		return f.fetchBrowser(ctx, pageURL)
	default:
		return nil, fmt.Errorf("fetch: unknown mode %q", mode)
	}
}

func (f *Fetcher) fetchHTTP(ctx context.Context, pageURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: new request: %w", err)
	}
	req.Header.Set("User-Agent", f.ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch: %s: status %d", pageURL, resp.StatusCode)
	}

	body, err := LimitedReadAll(resp.Body, f.maxBody)
	if err != nil {
		return nil, fmt.Errorf("fetch: read body: %w", err)
	}

	res := f.result(pageURL, body, ModeHTTP)
	res.StatusCode = resp.StatusCode
	res.ETag = resp.Header.Get("ETag")
	res.LastMod = resp.Header.Get("Last-Modified")

	f.logger.Debug("fetch: fetched",
		"url", pageURL, "status", resp.StatusCode,
		"size", len(body), "containers", res.Containers)
	return res, nil
}

func (f *Fetcher) fetchBrowser(ctx context.Context, pageURL string) (*Result, error) {
	if f.browser == nil {
		return nil, ErrNoBrowser
	}
	body, err := f.browser.Render(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	res := f.result(pageURL, body, ModeBrowser)
	f.logger.Debug("fetch: rendered", "url", pageURL, "size", len(body), "containers", res.Containers)
	return res, nil
}

func (f *Fetcher) result(pageURL string, body []byte, mode Mode) *Result {
	return &Result{
		URL:        pageURL,
		HTML:       body,
		Hash:       fmt.Sprintf("%x", sha256.Sum256(body)),
		Mode:       mode,
		Containers: f.countContainers(body),
	}
}

func (f *Fetcher) countContainers(body []byte) int {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return 0
	}
	return len(f.containers.QueryAll(doc))
}
