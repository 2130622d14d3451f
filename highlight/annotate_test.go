package highlight

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/hazyhaar/ccmark/vocab"
)

func container(t *testing.T, body string) (*html.Node, *html.Node) {
	t.Helper()
	doc := parse(t, `<div class="comment-body">`+body+`</div>`)
	return doc, byClass(doc, "comment-body")[0]
}

func TestApply_Markup(t *testing.T) {
	_, c := container(t, "<p>praise: Great job!</p>")
	m := NewMatcher(vocab.BuiltinLabels).FindFirst(c)
	require.NotNil(t, m)
	require.True(t, Apply(m, vocab.Builtin()))

	want := `<p><span class="cc-highlight-wrapper">` +
		`<span class="cc-highlight-praise" data-cc-label="praise" style="background-color:#d9f1ed;color:#000000">praise</span>` +
		`: </span>Great job!</p>`
	assert.Equal(t, want, render(t, c.FirstChild))
}

func TestApply_DecorationChips(t *testing.T) {
	_, c := container(t, "<p>issue (blocking, Non Blocking, perf): Fix this</p>")
	m := NewMatcher(vocab.BuiltinLabels).FindFirst(c)
	require.NotNil(t, m)
	require.True(t, Apply(m, vocab.Builtin()))

	group := byClass(c, DecorationGroupClass)
	require.Len(t, group, 1)
	assert.Equal(t, "(blocking, Non Blocking, perf)", textOf(group[0]))

	chips := byClass(c, DecorationChipClass)
	require.Len(t, chips, 3)
	assert.Equal(t, "blocking", attr(chips[0], DecorationAttr))
	assert.Equal(t, "cc-highlight-blocking cc-decoration-chip", attr(chips[0], "class"))
	assert.Equal(t, "background-color:#fbe0e0;color:#000000", attr(chips[0], "style"))

	assert.Equal(t, "non-blocking", attr(chips[1], DecorationAttr))
	assert.Equal(t, "Non Blocking", textOf(chips[1]))
	assert.Equal(t, "background-color:#e4f3e8;color:#000000", attr(chips[1], "style"))

	assert.Equal(t, "perf", attr(chips[2], DecorationAttr))
	assert.Empty(t, attr(chips[2], "style"))

	assert.Equal(t, "issue (blocking, Non Blocking, perf): Fix this", textOf(c))
}

func TestApply_CustomLabelAndColors(t *testing.T) {
	snap := vocab.New(vocab.Custom{
		Labels:      []string{"risk", "kudos"},
		LabelColors: map[string]string{"risk": "#7f1d1d", "praise": "red"},
	})
	labels := snap.Labels()

	_, c := container(t, "<p>Risk: data loss</p>")
	require.True(t, Apply(NewMatcher(labels).FindFirst(c), snap))
	el := byClass(c, DefaultLabelClass)
	require.Len(t, el, 1)
	assert.Equal(t, "risk", attr(el[0], LabelAttr))
	assert.Equal(t, "Risk", textOf(el[0]))
	assert.Equal(t, "background-color:#7f1d1d;color:#FFFFFF", attr(el[0], "style"))

	_, c = container(t, "<p>kudos: thanks</p>")
	require.True(t, Apply(NewMatcher(labels).FindFirst(c), snap))
	el = byClass(c, DefaultLabelClass)
	require.Len(t, el, 1)
	assert.Empty(t, attr(el[0], "style"))

	// Only built-in decorations get their own chip class.
	decos := vocab.New(vocab.Custom{Decorations: []string{"perf"}})
	_, c = container(t, "<p>issue (perf, if-minor, non blocking): slow</p>")
	require.True(t, Apply(NewMatcher(decos.Labels()).FindFirst(c), decos))
	chips := byClass(c, DecorationChipClass)
	require.Len(t, chips, 3)
	assert.Equal(t, "cc-highlight-default cc-decoration-chip", attr(chips[0], "class"))
	assert.Equal(t, "cc-highlight-default cc-decoration-chip", attr(chips[1], "class"))
	assert.Equal(t, "cc-highlight-non-blocking cc-decoration-chip", attr(chips[2], "class"))
	assert.Equal(t, "if-minor", attr(chips[1], DecorationAttr))
	assert.Equal(t, "background-color:#ece3f7;color:#000000", attr(chips[1], "style"))

	// Malformed colour: highlighted, unstyled.
	_, c = container(t, "<p>praise: ok</p>")
	require.True(t, Apply(NewMatcher(labels).FindFirst(c), snap))
	el = byClass(c, "cc-highlight-praise")
	require.Len(t, el, 1)
	assert.Empty(t, attr(el[0], "style"))
}

func TestApply_PreservesSiblings(t *testing.T) {
	_, c := container(t, `<p><strong>Note</strong> praise: see <a href="/x">this</a> and <em>that</em></p>`)
	p := c.FirstChild
	strong := byTag(c, "strong")[0]
	a := byTag(c, "a")[0]
	em := byTag(c, "em")[0]

	require.True(t, Apply(NewMatcher(vocab.BuiltinLabels).FindFirst(c), vocab.Builtin()))

	assert.Same(t, p, strong.Parent)
	assert.Same(t, strong, p.FirstChild)
	assert.Equal(t, "Note", strong.FirstChild.Data)
	require.NotNil(t, strong.NextSibling)
	assert.Equal(t, " ", strong.NextSibling.Data)

	wrapper := strong.NextSibling.NextSibling
	require.NotNil(t, wrapper)
	assert.True(t, hasClass(wrapper, WrapperClass))
	assert.Equal(t, "see ", wrapper.NextSibling.Data)
	assert.Same(t, a, wrapper.NextSibling.NextSibling)
	assert.Same(t, p, a.Parent)
	assert.Same(t, p, em.Parent)
	assert.Equal(t, "/x", attr(a, "href"))
	assert.Same(t, em, p.LastChild)
	assert.Equal(t, "Note praise: see this and that", textOf(p))
}

func TestApply_OmitsEmptyText(t *testing.T) {
	_, c := container(t, "<p>todo:</p>")
	require.True(t, Apply(NewMatcher(vocab.BuiltinLabels).FindFirst(c), vocab.Builtin()))
	p := c.FirstChild
	assert.Same(t, p.FirstChild, p.LastChild)
	assert.True(t, hasClass(p.FirstChild, WrapperClass))
}

func TestApply_Stale(t *testing.T) {
	labels := vocab.BuiltinLabels

	assert.False(t, Apply(nil, vocab.Builtin()))

	_, c := container(t, "<p>praise: x</p>")
	m := NewMatcher(labels).FindFirst(c)
	require.NotNil(t, m)
	m.Node.Data = "praise: edited"
	assert.False(t, Apply(m, vocab.Builtin()))
	assert.Empty(t, byClass(c, WrapperClass))

	_, c = container(t, "<p>praise: x</p>")
	m = NewMatcher(labels).FindFirst(c)
	require.NotNil(t, m)
	p := c.FirstChild
	p.RemoveChild(m.Node)
	assert.False(t, Apply(m, vocab.Builtin()))

	// Moved out of the container.
	_, c = container(t, "<p>praise: x</p>")
	m = NewMatcher(labels).FindFirst(c)
	require.NotNil(t, m)
	other := &html.Node{Type: html.ElementNode, Data: "div"}
	m.Node.Parent.RemoveChild(m.Node)
	other.AppendChild(m.Node)
	assert.False(t, Apply(m, vocab.Builtin()))
	assert.Equal(t, "praise: x", other.FirstChild.Data)
}

func TestBuildWrapper_NoDecorations(t *testing.T) {
	w := BuildWrapper("Question", nil, vocab.Builtin())
	assert.Empty(t, byClass(w, DecorationGroupClass))
	assert.Equal(t, "Question: ", textOf(w))
}
