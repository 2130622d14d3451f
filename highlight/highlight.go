// Package highlight finds conventional-comment prefixes ("issue (blocking):")
// in comment containers of an HTML tree and wraps them in styled spans
// without disturbing the rest of the comment's markup.
//
// The package is not safe for concurrent use on the same tree: the caller
// owns the tree (see package monitor for the single-owner loop).
package highlight

import (
	"log/slog"

	"golang.org/x/net/html"

	"github.com/hazyhaar/ccmark/vocab"
)

// Config configures a Highlighter.
type Config struct {
	// Vocabulary defaults to vocab.Builtin().
	Vocabulary *vocab.Snapshot
	// Containers defaults to DefaultContainers().
	Containers *Containers
	Logger     *slog.Logger
}

// Highlighter runs the match-then-annotate pass. It is immutable; use
// WithVocabulary to derive one for a new vocabulary.
type Highlighter struct {
	vocab      *vocab.Snapshot
	matcher    *Matcher
	containers *Containers
	logger     *slog.Logger
}

// New builds a Highlighter from cfg.
func New(cfg Config) *Highlighter {
	if cfg.Vocabulary == nil {
		cfg.Vocabulary = vocab.Builtin()
	}
	if cfg.Containers == nil {
		cfg.Containers = DefaultContainers()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Highlighter{
		vocab:      cfg.Vocabulary,
		matcher:    NewMatcher(cfg.Vocabulary.Labels()),
		containers: cfg.Containers,
		logger:     cfg.Logger,
	}
}

// WithVocabulary returns a copy of h using snap.
func (h *Highlighter) WithVocabulary(snap *vocab.Snapshot) *Highlighter {
	if snap == nil {
		snap = vocab.Builtin()
	}
	return &Highlighter{
		vocab:      snap,
		matcher:    NewMatcher(snap.Labels()),
		containers: h.containers,
		logger:     h.logger,
	}
}

// Vocabulary returns the snapshot in use.
func (h *Highlighter) Vocabulary() *vocab.Snapshot { return h.vocab }

// Containers returns the container predicate in use.
func (h *Highlighter) Containers() *Containers { return h.containers }

// Find returns the first match in container without changing anything.
func (h *Highlighter) Find(container *html.Node) *Match {
	return h.matcher.FindFirst(container)
}

// Scan highlights at most one prefix in container. A panic while scanning
// is logged and reported as no change so one broken container does not
// stop the others.
func (h *Highlighter) Scan(container *html.Node) (applied bool) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("highlight: scan failed", "panic", r, "tag", container.Data)
			applied = false
		}
	}()

	m := h.matcher.FindFirst(container)
	if m == nil {
		return false
	}
	if !Apply(m, h.vocab) {
		h.logger.Debug("highlight: stale match skipped", "label", m.Label)
		return false
	}
	h.logger.Debug("highlight: applied", "label", m.Label, "decorations", m.DecorationRaw)
	return true
}

// HighlightContainers scans each node that is a comment container and
// returns how many highlights were applied.
func (h *Highlighter) HighlightContainers(nodes []*html.Node) int {
	n := 0
	for _, c := range nodes {
		if !h.containers.Match(c) {
			continue
		}
		if h.Scan(c) {
			n++
		}
	}
	return n
}

// HighlightDocument scans every comment container under root once.
func (h *Highlighter) HighlightDocument(root *html.Node) int {
	if root == nil {
		return 0
	}
	return h.HighlightContainers(h.containers.QueryAll(root))
}
