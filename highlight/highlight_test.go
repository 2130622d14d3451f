package highlight

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/ccmark/vocab"
)

func TestHighlightDocument_Scenarios(t *testing.T) {
	h := New(Config{})

	t.Run("praise", func(t *testing.T) {
		doc, c := container(t, "<p>praise: Great job!</p>")
		assert.Equal(t, 1, h.HighlightDocument(doc))
		labels := byClass(c, "cc-highlight-praise")
		require.Len(t, labels, 1)
		assert.Equal(t, "praise", textOf(labels[0]))
		assert.Equal(t, "praise: Great job!", textOf(c.FirstChild))
	})

	t.Run("decorations", func(t *testing.T) {
		doc, c := container(t, "<p>issue (blocking, security): Fix this</p>")
		assert.Equal(t, 1, h.HighlightDocument(doc))
		require.Len(t, byClass(c, "cc-highlight-issue"), 1)
		chips := byClass(c, DecorationChipClass)
		require.Len(t, chips, 2)
		assert.Equal(t, "blocking", textOf(chips[0]))
		assert.Equal(t, "security", textOf(chips[1]))
		assert.Equal(t, "Fix this", c.FirstChild.LastChild.Data)
	})

	t.Run("code block", func(t *testing.T) {
		doc, c := container(t, "<pre><code>praise: fake</code></pre>")
		before := render(t, doc)
		for i := 0; i < 3; i++ {
			assert.Equal(t, 0, h.HighlightDocument(doc))
		}
		assert.Empty(t, byClass(c, WrapperClass))
		assert.Equal(t, before, render(t, doc))
	})

	t.Run("strong sibling", func(t *testing.T) {
		doc, c := container(t, "<p><strong>Note</strong> praise: Good</p>")
		strong := byTag(c, "strong")[0]
		assert.Equal(t, 1, h.HighlightDocument(doc))
		assert.Same(t, strong, c.FirstChild.FirstChild)
		assert.Equal(t, "<strong>Note</strong>", render(t, strong))
		require.Len(t, byClass(c, "cc-highlight-praise"), 1)
	})

	t.Run("upper case", func(t *testing.T) {
		doc, c := container(t, "<p>PRAISE: Case test</p>")
		assert.Equal(t, 1, h.HighlightDocument(doc))
		labels := byClass(c, "cc-highlight-praise")
		require.Len(t, labels, 1)
		assert.Equal(t, "PRAISE", textOf(labels[0]))
		assert.Equal(t, "praise", attr(labels[0], LabelAttr))
	})
}

func fiftyParagraphs() string {
	var b strings.Builder
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&b, "<p>praise: Comment %d</p>", i)
	}
	return b.String()
}

func TestHighlight_Bulk(t *testing.T) {
	h := New(Config{})

	t.Run("one pass per container", func(t *testing.T) {
		doc, c := container(t, fiftyParagraphs())
		assert.Equal(t, 1, h.HighlightDocument(doc))
		assert.Len(t, byClass(c, WrapperClass), 1)

		// Each later pass picks up the next paragraph.
		for i := 2; i <= 50; i++ {
			require.True(t, h.Scan(c))
		}
		assert.False(t, h.Scan(c))
		assert.Len(t, byClass(c, WrapperClass), 50)
	})

	t.Run("per node pass", func(t *testing.T) {
		_, c := container(t, fiftyParagraphs())
		m := NewMatcher(vocab.BuiltinLabels)
		start := time.Now()
		n := 0
		for _, p := range byTag(c, "p") {
			if Apply(m.FindFirst(p), vocab.Builtin()) {
				n++
			}
		}
		assert.Less(t, time.Since(start), time.Second)
		assert.Equal(t, 50, n)
		assert.Len(t, byClass(c, WrapperClass), 50)
	})
}

func TestScan_Idempotent(t *testing.T) {
	h := New(Config{})
	doc, c := container(t, "<p>suggestion (non-blocking): rename</p>")
	require.True(t, h.Scan(c))
	once := render(t, doc)
	assert.False(t, h.Scan(c))
	assert.Equal(t, once, render(t, doc))
	assert.Len(t, byClass(c, WrapperClass), 1)
}

func TestHighlightContainers_SkipsNonContainers(t *testing.T) {
	h := New(Config{})
	doc := parse(t, `<article class="markdown-body"><p>praise: readme</p></article><div class="comment-body"><p>praise: yes</p></div>`)
	nodes := append(byTag(doc, "article"), byClass(doc, "comment-body")...)
	assert.Equal(t, 1, h.HighlightContainers(nodes))
	assert.Empty(t, byClass(byTag(doc, "article")[0], WrapperClass))
	assert.Equal(t, 0, h.HighlightContainers(nil))
}

func TestHighlighter_EmptyVocabulary(t *testing.T) {
	h := New(Config{Vocabulary: vocab.Empty()})
	doc, c := container(t, "<p>praise: x</p>")
	assert.Equal(t, 0, h.HighlightDocument(doc))
	assert.Empty(t, byClass(c, WrapperClass))
}

func TestHighlighter_WithVocabulary(t *testing.T) {
	h := New(Config{})
	doc, _ := container(t, "<p>risk: x</p>")
	assert.Equal(t, 0, h.HighlightDocument(doc))

	h2 := h.WithVocabulary(vocab.New(vocab.Custom{Labels: []string{"risk"}}))
	assert.Same(t, h.Containers(), h2.Containers())
	assert.Equal(t, 1, h2.HighlightDocument(doc))
	assert.Equal(t, 0, h.HighlightDocument(nil))
}

func TestHighlightDocument_CustomSelectors(t *testing.T) {
	cs, err := NewContainers([]string{".note-body"})
	require.NoError(t, err)
	h := New(Config{Containers: cs})
	doc := parse(t, `<div class="note-body"><p>note: x</p></div><div class="comment-body"><p>note: y</p></div>`)
	assert.Equal(t, 1, h.HighlightDocument(doc))
	assert.Len(t, byClass(doc, WrapperClass), 1)
}
