package monitor

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/ccmark/highlight"
	"github.com/hazyhaar/ccmark/mutation"
	"github.com/hazyhaar/ccmark/vocab"
)

func parse(t *testing.T, body string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader("<html><head></head><body>" + body + "</body></html>"))
	require.NoError(t, err)
	return doc
}

func find(n *html.Node, pred func(*html.Node) bool) *html.Node {
	if pred(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if f := find(c, pred); f != nil {
			return f
		}
	}
	return nil
}

func byID(id string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val == id {
				return true
			}
		}
		return false
	}
}

func isTag(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool { return n.Type == html.ElementNode && n.Data == tag }
}

func fragment(t *testing.T, s string) []*html.Node {
	t.Helper()
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(s), ctx)
	require.NoError(t, err)
	return nodes
}

// wrappers counts highlight wrappers under the tree, read on the loop.
func wrappers(t *testing.T, m *Monitor) int {
	t.Helper()
	n := 0
	require.NoError(t, m.View(context.Background(), func(root *html.Node) error {
		var walk func(*html.Node)
		walk = func(x *html.Node) {
			if x.Type == html.ElementNode {
				for _, a := range x.Attr {
					if a.Key == "class" && a.Val == highlight.WrapperClass {
						n++
					}
				}
			}
			for c := x.FirstChild; c != nil; c = c.NextSibling {
				walk(c)
			}
		}
		walk(root)
		return nil
	}))
	return n
}

func start(t *testing.T, doc *html.Node, cfg Config) *Monitor {
	t.Helper()
	m := New(doc, cfg)
	require.NoError(t, m.Start(context.Background()))
	t.Cleanup(m.Stop)
	return m
}

// slow keeps the full rescan out of the way so only targeted scans run.
var slow = Config{RescanDelay: time.Hour, RescanMaxWait: time.Hour}

func TestStart_InitialPass(t *testing.T) {
	doc := parse(t, `<div class="comment-body"><p>praise: hi</p></div><div class="comment-body"><p>hello</p></div>`)
	m := start(t, doc, slow)

	s := m.Stats()
	assert.Equal(t, int64(1), s.FullRescans)
	assert.Equal(t, int64(1), s.Highlights)
	assert.Equal(t, 1, wrappers(t, m))
}

func TestStart_HookCallsMonitor(t *testing.T) {
	doc := parse(t, `<div class="comment-body"><p>praise: hi</p></div>`)
	var hookErr error
	calls := 0
	cfg := slow
	var m *Monitor
	cfg.AfterRescan = func(*html.Node, int) {
		calls++
		if calls > 1 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		hookErr = m.Rescan(ctx)
	}
	m = New(doc, cfg)

	started := make(chan error, 1)
	go func() { started <- m.Start(context.Background()) }()
	select {
	case err := <-started:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start blocked on a hook calling the monitor")
	}
	t.Cleanup(m.Stop)

	assert.ErrorIs(t, hookErr, context.DeadlineExceeded)
	assert.Equal(t, 1, wrappers(t, m))
}

func TestEdit_InsertedContainer(t *testing.T) {
	doc := parse(t, `<div id="thread"></div>`)
	m := start(t, doc, slow)

	err := m.Edit(context.Background(), func(root *html.Node) []mutation.Record {
		thread := find(root, byID("thread"))
		var recs []mutation.Record
		for _, n := range fragment(t, `<div class="comment-body"><p>issue (blocking): broken</p></div>`) {
			recs = append(recs, mutation.AppendChild(thread, n))
		}
		return recs
	})
	require.NoError(t, err)

	assert.Equal(t, 1, wrappers(t, m))
	s := m.Stats()
	assert.Equal(t, int64(1), s.Batches)
	assert.Equal(t, int64(1), s.TargetedScans)
	assert.Equal(t, int64(1), s.FullRescans)
}

func TestEdit_InsertedDescendantContainers(t *testing.T) {
	doc := parse(t, `<div id="thread"></div>`)
	m := start(t, doc, slow)

	require.NoError(t, m.Edit(context.Background(), func(root *html.Node) []mutation.Record {
		thread := find(root, byID("thread"))
		var recs []mutation.Record
		for _, n := range fragment(t, `<section><div class="comment-body"><p>todo: a</p></div><div class="comment-body"><p>note: b</p></div></section>`) {
			recs = append(recs, mutation.AppendChild(thread, n))
		}
		return recs
	}))

	assert.Equal(t, 2, wrappers(t, m))
	assert.Equal(t, int64(2), m.Stats().TargetedScans)
}

func TestEdit_TextChange(t *testing.T) {
	doc := parse(t, `<div class="comment-body"><p id="p">draft</p></div>`)
	m := start(t, doc, slow)
	require.Equal(t, 0, wrappers(t, m))

	require.NoError(t, m.Edit(context.Background(), func(root *html.Node) []mutation.Record {
		p := find(root, byID("p"))
		return []mutation.Record{
			mutation.SetText(p.FirstChild, "sugg"),
			mutation.SetText(p.FirstChild, "suggestion: use a map"),
		}
	}))

	assert.Equal(t, 1, wrappers(t, m))
	s := m.Stats()
	assert.Equal(t, int64(1), s.Records, "consecutive text records compress")
	assert.Equal(t, int64(1), s.TargetedScans)
}

func TestEdit_DedupesContainers(t *testing.T) {
	doc := parse(t, `<div class="comment-body"><p id="a">x</p><p id="b">y</p></div>`)
	m := start(t, doc, slow)

	require.NoError(t, m.Edit(context.Background(), func(root *html.Node) []mutation.Record {
		return []mutation.Record{
			mutation.SetText(find(root, byID("a")).FirstChild, "praise: one"),
			mutation.SetText(find(root, byID("b")).FirstChild, "issue: two"),
		}
	}))

	assert.Equal(t, int64(1), m.Stats().TargetedScans)
	assert.Equal(t, 1, wrappers(t, m), "one match per container per pass")
}

func TestEdit_AttrMakesContainer(t *testing.T) {
	doc := parse(t, `<div id="c"><p>question: why?</p></div>`)
	m := start(t, doc, slow)

	require.NoError(t, m.Edit(context.Background(), func(root *html.Node) []mutation.Record {
		return []mutation.Record{mutation.SetAttr(find(root, byID("c")), "class", "comment-body")}
	}))
	assert.Equal(t, 1, wrappers(t, m))
}

func TestEdit_DocReset(t *testing.T) {
	doc := parse(t, `<p>loading</p>`)
	m := start(t, doc, slow)

	next := parse(t, `<div class="comment-body"><p>chore: bump deps</p></div><div class="comment-body"><p>thought: hmm</p></div>`)
	require.NoError(t, m.Edit(context.Background(), func(root *html.Node) []mutation.Record {
		var kids []*html.Node
		for c := next.FirstChild; c != nil; {
			nx := c.NextSibling
			next.RemoveChild(c)
			kids = append(kids, c)
			c = nx
		}
		return append(mutation.ReplaceChildren(root, kids...), mutation.DocReset(root))
	}))

	assert.Equal(t, 2, wrappers(t, m))
}

func TestFullRescan_CatchesMissedContainers(t *testing.T) {
	doc := parse(t, `<div class="comment-body" id="c"><p>hello</p></div>`)
	m := start(t, doc, Config{RescanDelay: 20 * time.Millisecond})

	// A paragraph added inside a container is not targeted.
	require.NoError(t, m.Edit(context.Background(), func(root *html.Node) []mutation.Record {
		c := find(root, byID("c"))
		p := fragment(t, `<p>nitpick: spacing</p>`)[0]
		return []mutation.Record{mutation.AppendChild(c, p)}
	}))
	assert.Equal(t, int64(0), m.Stats().TargetedScans)

	require.Eventually(t, func() bool { return wrappers(t, m) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(2), m.Stats().FullRescans)
}

func TestFullRescan_Debounced(t *testing.T) {
	doc := parse(t, `<div id="thread"></div>`)
	m := start(t, doc, Config{RescanDelay: 100 * time.Millisecond, RescanMaxWait: 10 * time.Second})

	for i := 0; i < 5; i++ {
		require.NoError(t, m.Edit(context.Background(), func(root *html.Node) []mutation.Record {
			thread := find(root, byID("thread"))
			return []mutation.Record{mutation.AppendChild(thread, &html.Node{Type: html.ElementNode, Data: "span"})}
		}))
	}

	require.Eventually(t, func() bool { return m.Stats().FullRescans == 2 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, int64(2), m.Stats().FullRescans, "a burst produces one rescan")
	assert.Equal(t, int64(5), m.Stats().Batches)
}

func TestFullRescan_MaxWait(t *testing.T) {
	doc := parse(t, `<p>x</p>`)
	m := start(t, doc, Config{RescanDelay: time.Hour, RescanMaxWait: 30 * time.Millisecond})

	require.NoError(t, m.Rescan(context.Background()))
	require.Eventually(t, func() bool { return m.Stats().FullRescans == 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestSetVocabulary(t *testing.T) {
	doc := parse(t, `<div class="comment-body"><p>risk (security): token in logs</p></div>`)
	var after atomic.Int64
	m := start(t, doc, Config{
		RescanDelay: 10 * time.Millisecond,
		AfterRescan: func(_ *html.Node, n int) { after.Add(int64(n)) },
	})
	require.Equal(t, 0, wrappers(t, m))

	snap := vocab.New(vocab.Custom{Labels: []string{"risk"}})
	require.NoError(t, m.SetVocabulary(context.Background(), snap))
	require.Eventually(t, func() bool { return wrappers(t, m) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(1), after.Load())
}

func TestOnBatch(t *testing.T) {
	doc := parse(t, `<p id="p">x</p>`)
	var got []*mutation.Batch
	m := start(t, doc, Config{RescanDelay: time.Hour, OnBatch: func(b *mutation.Batch) { got = append(got, b) }})

	edit := func(root *html.Node) []mutation.Record {
		return []mutation.Record{mutation.SetText(find(root, byID("p")).FirstChild, "y")}
	}
	require.NoError(t, m.Edit(context.Background(), edit))
	require.NoError(t, m.Edit(context.Background(), edit))
	require.NoError(t, m.Edit(context.Background(), func(*html.Node) []mutation.Record { return nil }))

	// got is written on the loop goroutine; View orders the read after it.
	require.NoError(t, m.View(context.Background(), func(*html.Node) error { return nil }))
	require.Len(t, got, 2)
	assert.Equal(t, uint64(1), got[0].Seq)
	assert.Equal(t, uint64(2), got[1].Seq)
	assert.NotEqual(t, got[0].ID, got[1].ID)
}

func TestEdit_PanicIsolated(t *testing.T) {
	doc := parse(t, `<div class="comment-body"><p>praise: ok</p></div>`)
	m := start(t, doc, slow)

	err := m.Edit(context.Background(), func(*html.Node) []mutation.Record { panic("boom") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	assert.Equal(t, 1, wrappers(t, m))
}

func TestView_Error(t *testing.T) {
	m := start(t, parse(t, ""), slow)
	want := errors.New("nope")
	assert.ErrorIs(t, m.View(context.Background(), func(*html.Node) error { return want }), want)
}

func TestLifecycle(t *testing.T) {
	doc := parse(t, "")
	m := New(doc, slow)
	assert.ErrorIs(t, m.Rescan(context.Background()), ErrNotStarted)

	require.NoError(t, m.Start(context.Background()))
	assert.Error(t, m.Start(context.Background()))

	m.Stop()
	m.Stop()
	<-m.Done()
	assert.ErrorIs(t, m.Rescan(context.Background()), ErrStopped)
	assert.ErrorIs(t, m.Edit(context.Background(), func(*html.Node) []mutation.Record { return nil }), ErrStopped)

	m2 := New(parse(t, ""), slow)
	m2.Stop()
	assert.ErrorIs(t, m2.Start(context.Background()), ErrStopped)
}

func TestContextCancelStopsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := New(parse(t, ""), slow)
	require.NoError(t, m.Start(ctx))
	cancel()

	select {
	case <-m.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit")
	}
	assert.ErrorIs(t, m.Rescan(context.Background()), ErrStopped)
	m.Stop()
}
