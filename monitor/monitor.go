// Package monitor keeps a live *html.Node tree highlighted while it changes.
//
// One goroutine owns the tree. Host code edits it through Edit, which runs on
// that goroutine and reports what it changed as mutation records; the monitor
// rescans the comment containers those records touch, then schedules a
// debounced full rescan as a safety net for anything the targeted pass
// missed.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/html"

	"github.com/hazyhaar/ccmark/highlight"
	"github.com/hazyhaar/ccmark/mutation"
	"github.com/hazyhaar/ccmark/vocab"
)

var (
	// ErrStopped is returned by calls made after Stop.
	ErrStopped = errors.New("monitor: stopped")
	// ErrNotStarted is returned by calls made before Start.
	ErrNotStarted = errors.New("monitor: not started")
)

// Config configures a Monitor.
type Config struct {
	// Highlighter defaults to highlight.New with built-in vocabulary.
	Highlighter *highlight.Highlighter
	// RescanDelay is the quiet period before a full rescan. Default: 50ms.
	RescanDelay time.Duration
	// RescanMaxWait bounds how long continuous edits can delay it. Default: 1s.
	RescanMaxWait time.Duration
	// OnBatch, if set, sees every batch. Called on the monitor goroutine.
	OnBatch func(*mutation.Batch)
	// AfterRescan, if set, runs after every full rescan on the monitor
	// goroutine, with read access to the tree.
	//
	// Hooks must not wait on the Monitor: Edit, View, SetVocabulary, Rescan
	// and Stop called from a hook block until their context expires (or
	// forever for Stop). Start them in a new goroutine instead.
	AfterRescan func(root *html.Node, highlights int)
	Logger      *slog.Logger
}

// Stats are cumulative counters.
type Stats struct {
	Batches       int64 `json:"batches"`
	Records       int64 `json:"records"`
	TargetedScans int64 `json:"targeted_scans"`
	FullRescans   int64 `json:"full_rescans"`
	Highlights    int64 `json:"highlights"`
}

type request struct {
	fn   func() error
	errc chan error
}

// Monitor is the change monitor for one tree.
type Monitor struct {
	root   *html.Node
	cfg    Config
	logger *slog.Logger

	// Owned by the loop goroutine.
	h   *highlight.Highlighter
	deb *debouncer

	reqs     chan request
	stopCh   chan struct{}
	done     chan struct{}
	mu       sync.Mutex
	started  bool
	stopOnce sync.Once

	seq           atomic.Uint64
	batches       atomic.Int64
	records       atomic.Int64
	targetedScans atomic.Int64
	fullRescans   atomic.Int64
	highlights    atomic.Int64
}

// New creates a Monitor for root, usually an *html.Node of type
// DocumentNode. The tree must not be touched outside Edit and View once
// Start has been called.
func New(root *html.Node, cfg Config) *Monitor {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Highlighter == nil {
		cfg.Highlighter = highlight.New(highlight.Config{Logger: cfg.Logger})
	}
	return &Monitor{
		root:   root,
		cfg:    cfg,
		logger: cfg.Logger,
		h:      cfg.Highlighter,
		deb:    newDebouncer(debounceConfig{Delay: cfg.RescanDelay, MaxWait: cfg.RescanMaxWait}),
		reqs:   make(chan request),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start runs the initial full pass on the calling goroutine, then hands the
// tree to the monitor loop. The loop ends when ctx is cancelled or Stop is
// called.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	select {
	case <-m.stopCh:
		m.mu.Unlock()
		return ErrStopped
	default:
	}
	if m.started {
		m.mu.Unlock()
		return fmt.Errorf("monitor: already started")
	}
	m.started = true
	m.mu.Unlock()

	// Unlocked: hooks run here and callers may reach for the Monitor.
	m.fullRescan()
	go m.loop(ctx)
	return nil
}

// Stop ends the loop and waits for it. Pending rescans are dropped.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		close(m.stopCh)
		if !m.started {
			close(m.done)
		}
	})
	<-m.done
}

// Done is closed when the loop has exited.
func (m *Monitor) Done() <-chan struct{} { return m.done }

// Edit runs fn on the monitor goroutine. fn may change the tree and must
// return records for what it changed, built with the mutation helpers. The
// records form one batch: affected containers are rescanned before Edit
// returns and the full rescan timer is restarted.
func (m *Monitor) Edit(ctx context.Context, fn func(root *html.Node) []mutation.Record) error {
	return m.do(ctx, func() error {
		m.handleBatch(fn(m.root))
		return nil
	})
}

// View runs fn on the monitor goroutine with read access to the tree.
func (m *Monitor) View(ctx context.Context, fn func(root *html.Node) error) error {
	return m.do(ctx, func() error { return fn(m.root) })
}

// SetVocabulary swaps the vocabulary and schedules a full rescan.
func (m *Monitor) SetVocabulary(ctx context.Context, snap *vocab.Snapshot) error {
	return m.do(ctx, func() error {
		m.h = m.h.WithVocabulary(snap)
		m.logger.Info("monitor: vocabulary updated", "labels", len(m.h.Vocabulary().Labels()))
		m.deb.touch(time.Now())
		return nil
	})
}

// Rescan schedules a full rescan.
func (m *Monitor) Rescan(ctx context.Context) error {
	return m.do(ctx, func() error {
		m.deb.touch(time.Now())
		return nil
	})
}

// Stats returns a copy of the counters.
func (m *Monitor) Stats() Stats {
	return Stats{
		Batches:       m.batches.Load(),
		Records:       m.records.Load(),
		TargetedScans: m.targetedScans.Load(),
		FullRescans:   m.fullRescans.Load(),
		Highlights:    m.highlights.Load(),
	}
}

func (m *Monitor) do(ctx context.Context, fn func() error) error {
	m.mu.Lock()
	started := m.started
	m.mu.Unlock()

	select {
	case <-m.done:
		return ErrStopped
	default:
	}
	if !started {
		return ErrNotStarted
	}

	r := request{fn: fn, errc: make(chan error, 1)}
	select {
	case m.reqs <- r:
	case <-m.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-r.errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Monitor) loop(ctx context.Context) {
	defer close(m.done)
	defer m.deb.reset()

	for {
		select {
		case <-ctx.Done():
			return

		case <-m.stopCh:
			return

		case r := <-m.reqs:
			r.errc <- m.run(r.fn)

		case <-m.deb.timerC():
			m.deb.reset()
			m.fullRescan()
		}
	}
}

// run calls fn, turning a panic into an error so host code cannot kill the loop.
func (m *Monitor) run(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("monitor: request panicked", "panic", r)
			err = fmt.Errorf("monitor: request panicked: %v", r)
		}
	}()
	return fn()
}

func (m *Monitor) handleBatch(records []mutation.Record) {
	if len(records) == 0 {
		return
	}
	records = mutation.Compress(records)
	b := mutation.NewBatch(m.seq.Add(1), records)
	m.batches.Add(1)
	m.records.Add(int64(len(records)))

	if m.cfg.OnBatch != nil {
		m.cfg.OnBatch(b)
	}

	affected := m.affected(b.Records)
	n := 0
	for _, c := range affected {
		if m.h.Scan(c) {
			n++
		}
	}
	m.targetedScans.Add(int64(len(affected)))
	m.highlights.Add(int64(n))

	m.logger.Debug("monitor: batch",
		"id", b.ID, "seq", b.Seq, "records", len(records),
		"containers", len(affected), "highlights", n)

	m.deb.touch(time.Now())
}

// affected lists the attached containers a batch touched, in first-seen
// order, without duplicates.
func (m *Monitor) affected(records []mutation.Record) []*html.Node {
	cs := m.h.Containers()
	seen := make(map[*html.Node]bool)
	var out []*html.Node
	add := func(n *html.Node) {
		if n == nil || seen[n] || !m.attached(n) {
			return
		}
		seen[n] = true
		out = append(out, n)
	}

	for _, r := range records {
		switch r.Op {
		case mutation.OpInsert:
			for _, n := range r.Added {
				switch {
				case n.Type == html.TextNode:
					add(cs.Closest(n))
				case cs.Match(n):
					add(n)
				default:
					for _, c := range cs.QueryAll(n) {
						add(c)
					}
				}
			}
		case mutation.OpText:
			add(cs.Closest(r.Target))
		case mutation.OpAttr:
			if cs.Match(r.Target) {
				add(r.Target)
			}
		case mutation.OpDocReset:
			for _, c := range cs.QueryAll(m.root) {
				add(c)
			}
		}
	}
	return out
}

func (m *Monitor) attached(n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == m.root {
			return true
		}
	}
	return false
}

func (m *Monitor) fullRescan() {
	start := time.Now()
	n := m.h.HighlightDocument(m.root)
	m.fullRescans.Add(1)
	m.highlights.Add(int64(n))
	m.logger.Debug("monitor: full rescan", "highlights", n, "duration", time.Since(start))
	if m.cfg.AfterRescan != nil {
		m.cfg.AfterRescan(m.root, n)
	}
}
