package highlight

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/ccmark/vocab"
)

// Class names and data attributes written into the tree.
const (
	WrapperClass         = "cc-highlight-wrapper"
	DecorationGroupClass = "cc-decoration-group"
	DecorationChipClass  = "cc-decoration-chip"
	DefaultLabelClass    = "cc-highlight-default"
	ClassPrefix          = "cc-highlight-"

	LabelAttr      = "data-cc-label"
	DecorationAttr = "data-cc-decoration"
)

// Apply replaces the matched prefix with a highlight wrapper, keeping the
// text before and after it. The text node is swapped in one splice so the
// container is never seen half-edited.
//
// Apply returns false, leaving the tree untouched, when the match is stale:
// the node was detached or its text changed after FindFirst.
func Apply(m *Match, snap *vocab.Snapshot) bool {
	if !fresh(m) {
		return false
	}
	if snap == nil {
		snap = vocab.Builtin()
	}

	before := m.text[:m.Start]
	after := m.text[m.End:]

	repl := make([]*html.Node, 0, 3)
	if before != "" {
		repl = append(repl, textNode(before))
	}
	repl = append(repl, BuildWrapper(m.Label, m.Decorations, snap))
	if after != "" {
		repl = append(repl, textNode(after))
	}
	replaceWith(m.Node, repl)
	return true
}

func fresh(m *Match) bool {
	if m == nil || m.Node == nil || m.Node.Type != html.TextNode || m.Node.Parent == nil {
		return false
	}
	if m.Node.Data != m.text || m.Start < 0 || m.Start >= m.End || m.End > len(m.text) {
		return false
	}
	if m.Container == nil {
		return true
	}
	for p := m.Node.Parent; p != nil; p = p.Parent {
		if p == m.Container {
			return true
		}
	}
	return false
}

// BuildWrapper renders the highlight element for a label and its decorations:
//
//	<span class="cc-highlight-wrapper">
//	  <span class="cc-highlight-issue" data-cc-label="issue">issue</span>
//	  " " <span class="cc-decoration-group">(<chip>, <chip>)</span>
//	  ": "
//	</span>
func BuildWrapper(label string, decorations []string, snap *vocab.Snapshot) *html.Node {
	wrapper := element("span", WrapperClass)

	key := vocab.Key(label)
	labelClass := DefaultLabelClass
	if snap.IsBuiltinLabel(key) {
		labelClass = ClassPrefix + key
	}
	labelEl := element("span", labelClass)
	labelEl.Attr = append(labelEl.Attr, html.Attribute{Key: LabelAttr, Val: key})
	if c, ok := snap.LabelColor(key); ok {
		setColors(labelEl, c)
	}
	labelEl.AppendChild(textNode(label))
	wrapper.AppendChild(labelEl)

	if len(decorations) > 0 {
		wrapper.AppendChild(textNode(" "))
		group := element("span", DecorationGroupClass)
		group.AppendChild(textNode("("))
		for i, d := range decorations {
			if i > 0 {
				group.AppendChild(textNode(", "))
			}
			group.AppendChild(chip(d, snap))
		}
		group.AppendChild(textNode(")"))
		wrapper.AppendChild(group)
	}

	wrapper.AppendChild(textNode(": "))
	return wrapper
}

func chip(name string, snap *vocab.Snapshot) *html.Node {
	slug := vocab.Slug(name)
	class := DefaultLabelClass
	if snap.IsBuiltinDecoration(slug) {
		class = ClassPrefix + slug
	}
	el := element("span", class+" "+DecorationChipClass)
	el.Attr = append(el.Attr, html.Attribute{Key: DecorationAttr, Val: slug})
	if c, ok := snap.DecorationColor(name); ok {
		setColors(el, c)
	}
	el.AppendChild(textNode(name))
	return el
}

// setColors writes an inline style. Colours that are not #rgb or #rrggbb
// are ignored.
func setColors(n *html.Node, bg string) {
	if vocab.ValidateColor(bg) != nil {
		return
	}
	style := "background-color:" + bg + ";color:" + ReadableTextColor(bg)
	n.Attr = append(n.Attr, html.Attribute{Key: "style", Val: style})
}

func element(tag, class string) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
		Attr:     []html.Attribute{{Key: "class", Val: strings.TrimSpace(class)}},
	}
}

func textNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// replaceWith swaps old for repl in old's parent in a single relink.
func replaceWith(old *html.Node, repl []*html.Node) {
	parent := old.Parent
	for i, n := range repl {
		n.Parent = parent
		n.PrevSibling, n.NextSibling = nil, nil
		if i > 0 {
			repl[i-1].NextSibling = n
			n.PrevSibling = repl[i-1]
		}
	}
	first, last := repl[0], repl[len(repl)-1]
	first.PrevSibling = old.PrevSibling
	last.NextSibling = old.NextSibling
	if old.PrevSibling != nil {
		old.PrevSibling.NextSibling = first
	} else {
		parent.FirstChild = first
	}
	if old.NextSibling != nil {
		old.NextSibling.PrevSibling = last
	} else {
		parent.LastChild = last
	}
	old.Parent, old.PrevSibling, old.NextSibling = nil, nil, nil
}
