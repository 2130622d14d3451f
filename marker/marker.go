// Package marker is the ccmark service: it owns the live vocabulary and
// exposes highlighting, extraction and rendering over HTTP and MCP.
package marker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/ccmark/dbopen"
	"github.com/hazyhaar/ccmark/extract"
	"github.com/hazyhaar/ccmark/fetch"
	"github.com/hazyhaar/ccmark/highlight"
	"github.com/hazyhaar/ccmark/mdrender"
	"github.com/hazyhaar/ccmark/vocab"
	"github.com/hazyhaar/ccmark/watch"
)

var (
	// ErrReadOnly is returned by vocabulary edits when no store is configured.
	ErrReadOnly = errors.New("marker: vocabulary is read-only (no db_path)")
	// ErrTooLarge is returned for input above Config.MaxBody.
	ErrTooLarge = errors.New("marker: input too large")
)

// Marker is the service. It is safe for concurrent use: every call parses
// its own tree and reads the vocabulary through an atomic snapshot.
type Marker struct {
	cfg        *Config
	store      *vocab.Store
	containers *highlight.Containers
	policy     *bluemonday.Policy
	md         *mdrender.Renderer
	fetcher    *fetch.Fetcher
	browser    *fetch.Browser
	logger     *slog.Logger

	hl atomic.Pointer[highlight.Highlighter]

	mu        sync.Mutex
	listeners []func(*vocab.Snapshot)
}

// Option configures a Marker.
type Option func(*Marker)

// WithStore persists vocabulary edits in s.
func WithStore(s *vocab.Store) Option {
	return func(m *Marker) { m.store = s }
}

// WithFetcher replaces the fetcher built from Config.Fetch.
func WithFetcher(f *fetch.Fetcher) Option {
	return func(m *Marker) { m.fetcher = f }
}

// New builds a Marker and loads the initial vocabulary.
func New(ctx context.Context, cfg *Config, opts ...Option) (*Marker, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	containers := highlight.DefaultContainers()
	if len(cfg.Selectors) > 0 {
		c, err := highlight.NewContainers(cfg.Selectors)
		if err != nil {
			return nil, fmt.Errorf("marker: selectors: %w", err)
		}
		containers = c
	}

	m := &Marker{
		cfg:        cfg,
		containers: containers,
		policy:     newPolicy(),
		md:         mdrender.New(mdrender.Options{}),
		logger:     cfg.Logger,
	}
	for _, o := range opts {
		o(m)
	}
	if m.fetcher == nil {
		m.fetcher = m.newFetcher()
	}
	m.hl.Store(highlight.New(highlight.Config{
		Vocabulary: vocab.New(cfg.Vocabulary),
		Containers: containers,
		Logger:     m.logger,
	}))
	if err := m.Reload(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Marker) newFetcher() *fetch.Fetcher {
	fc := m.cfg.Fetch
	opts := []fetch.Option{
		fetch.WithClient(&http.Client{Timeout: fc.Timeout}),
		fetch.WithUserAgent(fc.UserAgent),
		fetch.WithMaxBody(m.cfg.MaxBody),
		fetch.WithContainers(m.containers),
		fetch.WithLogger(m.logger),
	}
	if fc.Mode != string(fetch.ModeHTTP) {
		m.browser = fetch.NewBrowser(fetch.BrowserConfig{
			RemoteURL:        fc.Browser.Remote,
			Headful:          fc.Browser.Headful,
			NavTimeout:       fc.Timeout,
			WaitStable:       fc.Browser.WaitStable,
			ResourceBlocking: fc.Browser.ResourceBlocking,
			Logger:           m.logger,
		})
		opts = append(opts, fetch.WithBrowser(m.browser))
	}
	return fetch.New(opts...)
}

// newPolicy keeps the user-generated-content subset plus the class and
// data attributes the container selectors rely on.
func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Globally()
	p.AllowDataAttributes()
	return p
}

// Close releases the browser and the store.
func (m *Marker) Close() error {
	var errs []error
	if m.browser != nil {
		errs = append(errs, m.browser.Close())
	}
	if m.store != nil {
		errs = append(errs, m.store.Close())
	}
	return errors.Join(errs...)
}

// Config returns the effective configuration.
func (m *Marker) Config() *Config { return m.cfg }

// Containers returns the container predicate in use.
func (m *Marker) Containers() *highlight.Containers { return m.containers }

// Highlighter returns the current highlighter.
func (m *Marker) Highlighter() *highlight.Highlighter { return m.hl.Load() }

// Vocabulary returns the current snapshot.
func (m *Marker) Vocabulary() *vocab.Snapshot { return m.hl.Load().Vocabulary() }

// OnReload registers fn to receive every new snapshot.
func (m *Marker) OnReload(fn func(*vocab.Snapshot)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// Reload rebuilds the snapshot from the configured and stored vocabulary.
func (m *Marker) Reload(ctx context.Context) error {
	custom := m.cfg.Vocabulary
	if m.store != nil {
		stored, err := m.store.Custom(ctx)
		if err != nil {
			return fmt.Errorf("marker: reload: %w", err)
		}
		custom = custom.Merge(stored)
	}
	snap := vocab.New(custom)
	m.hl.Store(m.hl.Load().WithVocabulary(snap))

	m.mu.Lock()
	listeners := append([]func(*vocab.Snapshot){}, m.listeners...)
	m.mu.Unlock()
	for _, fn := range listeners {
		fn(snap)
	}
	m.logger.Info("marker: vocabulary loaded",
		"labels", len(snap.Labels()), "decorations", len(snap.Decorations()))
	return nil
}

// Watch reloads the vocabulary whenever another process writes to the
// store's database, until ctx ends. Without a store it returns at once.
func (m *Marker) Watch(ctx context.Context) error {
	if m.store == nil || m.cfg.DBPath == "" {
		return nil
	}
	// data_version is per connection: poll through a dedicated one.
	db, err := dbopen.Open(m.cfg.DBPath, dbopen.WithReadOnly(), dbopen.WithMaxConns(1))
	if err != nil {
		return fmt.Errorf("marker: watch: %w", err)
	}
	defer db.Close()

	w := watch.New(db, watch.Options{
		Interval: m.cfg.WatchInterval,
		Debounce: m.cfg.WatchDebounce,
		Logger:   m.logger,
	})
	w.OnChange(ctx, m.Reload)
	return nil
}

// HighlightOptions tune HighlightHTML.
type HighlightOptions struct {
	// Fragment treats input as body content and returns body content
	// instead of a full document.
	Fragment bool
	// Trusted skips sanitising.
	Trusted bool
}

// HighlightResult is the output of HighlightHTML.
type HighlightResult struct {
	HTML       string `json:"html"`
	Highlights int    `json:"highlights"`
}

// HighlightHTML highlights every comment container of input.
func (m *Marker) HighlightHTML(ctx context.Context, input []byte, opts HighlightOptions) (*HighlightResult, error) {
	if err := m.checkSize(input); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sanitize := m.cfg.SanitizeEnabled() && !opts.Trusted
	hl := m.hl.Load()

	if opts.Fragment {
		if sanitize {
			input = m.policy.SanitizeBytes(input)
		}
		root, err := parseFragment(input)
		if err != nil {
			return nil, err
		}
		n := hl.HighlightDocument(root)
		out, err := renderChildren(root)
		if err != nil {
			return nil, err
		}
		return &HighlightResult{HTML: out, Highlights: n}, nil
	}

	doc, err := html.Parse(bytes.NewReader(input))
	if err != nil {
		return nil, fmt.Errorf("marker: parse HTML: %w", err)
	}
	if sanitize {
		if doc, err = m.sanitizeDocument(doc); err != nil {
			return nil, err
		}
	}
	n := hl.HighlightDocument(doc)
	var b strings.Builder
	if err := html.Render(&b, doc); err != nil {
		return nil, fmt.Errorf("marker: render HTML: %w", err)
	}
	return &HighlightResult{HTML: b.String(), Highlights: n}, nil
}

// Extract reports the conventional comments of input.
func (m *Marker) Extract(ctx context.Context, input []byte, domain string) (*extract.Report, error) {
	if err := m.checkSize(input); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return extract.Extract(input, extract.Options{
		Vocabulary: m.Vocabulary(),
		Containers: m.containers,
		Domain:     domain,
	})
}

// RenderMarkdown renders a Markdown comment source to comment-body HTML
// and highlights it, previewing the comment as reviewers will see it.
func (m *Marker) RenderMarkdown(ctx context.Context, src []byte) (*HighlightResult, error) {
	if err := m.checkSize(src); err != nil {
		return nil, err
	}
	out, err := m.md.Render(src)
	if err != nil {
		return nil, err
	}
	// The renderer drops raw HTML, so its output needs no sanitising.
	return m.HighlightHTML(ctx, []byte(out), HighlightOptions{Fragment: true, Trusted: true})
}

// FetchResult is the output of FetchAndHighlight.
type FetchResult struct {
	URL        string          `json:"url"`
	Mode       fetch.Mode      `json:"mode"`
	Hash       string          `json:"hash"`
	HTML       string          `json:"html"`
	Highlights int             `json:"highlights"`
	Report     *extract.Report `json:"report"`
}

// FetchAndHighlight retrieves a review page, highlights it and reports its
// comments. An empty mode uses the configured one.
func (m *Marker) FetchAndHighlight(ctx context.Context, pageURL, mode string) (*FetchResult, error) {
	if mode == "" {
		mode = m.cfg.Fetch.Mode
	}
	md, err := fetch.ParseMode(mode)
	if err != nil {
		return nil, err
	}
	res, err := m.fetcher.Fetch(ctx, pageURL, md)
	if err != nil {
		return nil, err
	}
	report, err := m.Extract(ctx, res.HTML, pageURL)
	if err != nil {
		return nil, err
	}
	hl, err := m.HighlightHTML(ctx, res.HTML, HighlightOptions{})
	if err != nil {
		return nil, err
	}
	return &FetchResult{
		URL:        res.URL,
		Mode:       res.Mode,
		Hash:       res.Hash,
		HTML:       hl.HTML,
		Highlights: hl.Highlights,
		Report:     report,
	}, nil
}

// sanitizeDocument rebuilds doc from its title and sanitised body. The
// policy works on fragments and would otherwise flatten the document.
func (m *Marker) sanitizeDocument(doc *html.Node) (*html.Node, error) {
	var title string
	var body *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Title:
				if title == "" && n.FirstChild != nil {
					title = n.FirstChild.Data
				}
			case atom.Body:
				if body == nil {
					body = n
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	var inner string
	if body != nil {
		var err error
		if inner, err = renderChildren(body); err != nil {
			return nil, err
		}
	}
	clean := m.policy.Sanitize(inner)
	page := "<!DOCTYPE html><html><head><title>" + html.EscapeString(title) +
		"</title></head><body>" + clean + "</body></html>"
	out, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("marker: parse sanitised HTML: %w", err)
	}
	return out, nil
}

func (m *Marker) checkSize(b []byte) error {
	if int64(len(b)) > m.cfg.MaxBody {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrTooLarge, len(b), m.cfg.MaxBody)
	}
	return nil
}

func parseFragment(input []byte) (*html.Node, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(bytes.NewReader(input), body)
	if err != nil {
		return nil, fmt.Errorf("marker: parse fragment: %w", err)
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}
	return body, nil
}

func renderChildren(n *html.Node) (string, error) {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			return "", fmt.Errorf("marker: render HTML: %w", err)
		}
	}
	return b.String(), nil
}
