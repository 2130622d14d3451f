package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// BrowserConfig configures a Browser.
type BrowserConfig struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string
	// Headful shows the browser window. Default: headless.
	Headful bool
	// NavTimeout bounds navigation and load. Default: 30s.
	NavTimeout time.Duration
	// WaitStable waits until the DOM stops changing for this long after
	// load, so client-rendered comments are present. Zero skips the wait.
	WaitStable time.Duration
	// ResourceBlocking lists resource types to block (images, fonts, media, stylesheets).
	ResourceBlocking []string
	Logger           *slog.Logger
}

func (c *BrowserConfig) defaults() {
	if c.NavTimeout <= 0 {
		c.NavTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Browser renders pages in Chrome through rod with stealth evasions. Chrome
// is started on first use and shared by all renders.
type Browser struct {
	cfg     BrowserConfig
	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
}

// NewBrowser creates a Browser. Chrome is not started until Render.
func NewBrowser(cfg BrowserConfig) *Browser {
	cfg.defaults()
	return &Browser{cfg: cfg}
}

// Render navigates a fresh stealth tab to pageURL and returns the DOM.
func (b *Browser) Render(ctx context.Context, pageURL string) ([]byte, error) {
	br, err := b.connect()
	if err != nil {
		return nil, err
	}

	page, err := stealth.Page(br)
	if err != nil {
		return nil, fmt.Errorf("fetch: create tab: %w", err)
	}
	defer page.Close()

	if len(b.cfg.ResourceBlocking) > 0 {
		router := applyResourceBlocking(page, b.cfg.ResourceBlocking)
		defer router.Stop()
	}

	navCtx, cancel := context.WithTimeout(ctx, b.cfg.NavTimeout)
	defer cancel()
	p := page.Context(navCtx)

	if err := p.Navigate(pageURL); err != nil {
		return nil, fmt.Errorf("fetch: navigate %s: %w", pageURL, err)
	}
	if err := p.WaitLoad(); err != nil {
		b.cfg.Logger.Warn("fetch: wait load timeout", "url", pageURL, "error", err)
	}
	if b.cfg.WaitStable > 0 {
		if err := p.WaitStable(b.cfg.WaitStable); err != nil {
			b.cfg.Logger.Warn("fetch: wait stable", "url", pageURL, "error", err)
		}
	}

	out, err := p.HTML()
	if err != nil {
		return nil, fmt.Errorf("fetch: get DOM: %w", err)
	}
	return []byte(out), nil
}

// Close shuts Chrome down.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var err error
	if b.browser != nil {
		err = b.browser.Close()
		b.browser = nil
	}
	if b.lnch != nil {
		b.lnch.Cleanup()
		b.lnch = nil
	}
	return err
}

func (b *Browser) connect() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser != nil {
		return b.browser, nil
	}

	log := b.cfg.Logger
	wsURL := b.cfg.RemoteURL
	if wsURL != "" {
		log.Info("fetch: connecting to remote chrome", "url", wsURL)
	} else {
		l := launcher.New().
			Headless(!b.cfg.Headful).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("fetch: launch chrome: %w", err)
		}
		wsURL = u
		b.lnch = l
		log.Info("fetch: launched local chrome", "url", wsURL, "headful", b.cfg.Headful)
	}

	br := rod.New().ControlURL(wsURL)
	if err := br.Connect(); err != nil {
		if b.lnch != nil {
			b.lnch.Cleanup()
			b.lnch = nil
		}
		return nil, fmt.Errorf("fetch: connect chrome: %w", err)
	}
	b.browser = br
	return br, nil
}

// applyResourceBlocking fails requests for the listed resource types.
func applyResourceBlocking(page *rod.Page, types []string) *rod.HijackRouter {
	blockSet := make(map[string]bool, len(types))
	for _, t := range types {
		blockSet[strings.ToLower(t)] = true
	}

	router := page.HijackRequests()
	router.MustAdd("*", func(ctx *rod.Hijack) {
		if shouldBlock(blockSet, string(ctx.Request.Type())) {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
	return router
}

func shouldBlock(blockSet map[string]bool, resType string) bool {
	lower := strings.ToLower(resType)
	switch lower {
	case "image":
		return blockSet["images"]
	case "font":
		return blockSet["fonts"]
	case "media":
		return blockSet["media"]
	case "stylesheet":
		return blockSet["stylesheets"]
	}
	return blockSet[lower]
}
