// Package extract reports the conventional comments found in a page: one
// entry per comment container, with the label, decorations and the subject
// converted to Markdown.
//
// Extraction never changes the input tree. It works on a deep copy and
// understands both raw comments ("issue (blocking): ...") and comments that
// were already highlighted.
package extract

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/ccmark/highlight"
	"github.com/hazyhaar/ccmark/mutation"
	"github.com/hazyhaar/ccmark/vocab"
)

// Comment is one conventional comment.
type Comment struct {
	Label       string   `json:"label"`       // as written
	Key         string   `json:"key"`         // lower-cased label
	Custom      bool     `json:"custom"`      // label is not built in
	Decorations []string `json:"decorations"` // in order, as written
	Blocking    bool     `json:"blocking"`
	Subject     string   `json:"subject"` // Markdown
	Text        string   `json:"text"`    // plain text of the subject
	XPath       string   `json:"xpath"`   // of the container
	Hash        string   `json:"hash"`    // SHA-256 of Text
}

// Summary counts comments.
type Summary struct {
	Total    int            `json:"total"`
	Blocking int            `json:"blocking"`
	ByLabel  map[string]int `json:"by_label"`
}

// Report is the result of Extract.
type Report struct {
	Title    string    `json:"title,omitempty"`
	Comments []Comment `json:"comments"`
	Summary  Summary   `json:"summary"`
}

// Options controls extraction.
type Options struct {
	// Vocabulary defaults to vocab.Builtin().
	Vocabulary *vocab.Snapshot
	// Containers defaults to highlight.DefaultContainers().
	Containers *highlight.Containers
	// Domain resolves relative links in the Markdown subject.
	Domain string
}

func (o *Options) defaults() {
	if o.Vocabulary == nil {
		o.Vocabulary = vocab.Builtin()
	}
	if o.Containers == nil {
		o.Containers = highlight.DefaultContainers()
	}
}

var mdConverter = sync.OnceValue(func() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
})

// Extract parses rawHTML and reports its conventional comments.
func Extract(rawHTML []byte, opts Options) (*Report, error) {
	doc, err := html.Parse(bytes.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("extract: parse HTML: %w", err)
	}
	return ExtractNode(doc, opts)
}

// ExtractNode reports the conventional comments under root.
func ExtractNode(root *html.Node, opts Options) (*Report, error) {
	comments, err := Comments(root, opts)
	if err != nil {
		return nil, err
	}
	return &Report{
		Title:    findTitle(root),
		Comments: comments,
		Summary:  Summarize(comments),
	}, nil
}

// Comments returns the first conventional comment of every container under
// root, in document order. Containers without one are skipped.
func Comments(root *html.Node, opts Options) ([]Comment, error) {
	opts.defaults()
	if root == nil {
		return nil, nil
	}
	clone := cloneTree(root)
	matcher := highlight.NewMatcher(opts.Vocabulary.Labels())

	comments := []Comment{}
	for _, c := range opts.Containers.QueryAll(clone) {
		cm, ok := fromWrapper(c)
		if !ok {
			cm, ok = fromText(c, matcher)
		}
		if !ok {
			continue
		}
		cm.Key = vocab.Key(cm.Label)
		cm.Custom = !opts.Vocabulary.IsBuiltinLabel(cm.Key)
		for _, d := range cm.Decorations {
			if vocab.Slug(d) == "blocking" {
				cm.Blocking = true
			}
		}
		cm.XPath = mutation.XPath(c)

		md, err := toMarkdown(c, opts.Domain)
		if err != nil {
			return nil, fmt.Errorf("extract: %s: %w", cm.XPath, err)
		}
		cm.Subject = md
		cm.Text = collectText(c)
		cm.Hash = hashText(cm.Text)
		comments = append(comments, cm)
	}
	return comments, nil
}

// Summarize counts comments per lower-cased label.
func Summarize(comments []Comment) Summary {
	s := Summary{Total: len(comments), ByLabel: make(map[string]int)}
	for _, c := range comments {
		s.ByLabel[c.Key]++
		if c.Blocking {
			s.Blocking++
		}
	}
	return s
}

// fromText finds a raw prefix and strips it from the clone.
func fromText(c *html.Node, m *highlight.Matcher) (Comment, bool) {
	match := m.FindFirst(c)
	if match == nil {
		return Comment{}, false
	}
	match.Node.Data = match.Node.Data[:match.Start] + match.Node.Data[match.End:]
	return Comment{Label: match.Label, Decorations: match.Decorations}, true
}

// fromWrapper reads a comment that was already highlighted and removes the
// wrapper from the clone.
func fromWrapper(c *html.Node) (Comment, bool) {
	w := findFirst(c, func(n *html.Node) bool { return hasClass(n, highlight.WrapperClass) })
	if w == nil {
		return Comment{}, false
	}
	var cm Comment
	if l := findFirst(w, func(n *html.Node) bool { return hasAttr(n, highlight.LabelAttr) }); l != nil {
		cm.Label = textOf(l)
	}
	if cm.Label == "" {
		return Comment{}, false
	}
	walk(w, func(n *html.Node) {
		if hasClass(n, highlight.DecorationChipClass) {
			cm.Decorations = append(cm.Decorations, textOf(n))
		}
	})
	w.Parent.RemoveChild(w)
	return cm, true
}

func toMarkdown(c *html.Node, domain string) (string, error) {
	md, err := mdConverter().ConvertString(renderChildren(c), converter.WithDomain(domain))
	if err != nil {
		return "", fmt.Errorf("markdown: %w", err)
	}
	return strings.TrimSpace(md), nil
}

// findTitle extracts the page <title> text.
func findTitle(doc *html.Node) string {
	t := findFirst(doc, func(n *html.Node) bool { return n.DataAtom == atom.Title })
	if t == nil || t.FirstChild == nil {
		return ""
	}
	return strings.TrimSpace(t.FirstChild.Data)
}

// hashText returns the SHA-256 hex digest of text.
func hashText(text string) string {
	h := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%x", h)
}

func renderChildren(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		html.Render(&buf, c)
	}
	return buf.String()
}

// collectText extracts all visible text from a node subtree.
func collectText(n *html.Node) string {
	var sb strings.Builder
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
		}
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)
	return sb.String()
}
