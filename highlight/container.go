package highlight

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// DefaultSelectors identify rendered review-comment bodies, as opposed to
// other rendered markdown on the page (READMEs, issue descriptions).
var DefaultSelectors = []string{
	".comment-body",
	".js-comment-body",
	".review-comment-body",
	".review-comment-contents .comment-body",
	"[class*='ReviewThreadComment-module__SafeHTMLBox']",
	"[class*='ReviewThreadComment-module__BodyHTMLContainer'] .markdown-body",
	"[class*='ReviewThreadComment-module__ReviewThreadContainer'] .markdown-body",
	".markdown-body[data-testid='comment-body']",
	"[data-testid='comment-body']",
	"[data-testid='review-thread-comment-body']",
	"[data-testid*='comment-body']",
	".markdown-body.js-comment-body",
	".js-inline-comments-container .markdown-body",
	".js-inline-comments-container .comment-body",
}

// Containers is the comment-container predicate: an element qualifies when
// it matches any of the selectors.
type Containers struct {
	selectors []string
	compiled  []cascadia.Selector
}

// NewContainers compiles selectors. Empty selectors are ignored.
func NewContainers(selectors []string) (*Containers, error) {
	c := &Containers{}
	for _, s := range selectors {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		sel, err := cascadia.Compile(s)
		if err != nil {
			return nil, fmt.Errorf("highlight: selector %q: %w", s, err)
		}
		c.selectors = append(c.selectors, s)
		c.compiled = append(c.compiled, sel)
	}
	if len(c.compiled) == 0 {
		return nil, fmt.Errorf("highlight: no container selectors")
	}
	return c, nil
}

// DefaultContainers returns the predicate built from DefaultSelectors.
func DefaultContainers() *Containers {
	c, err := NewContainers(DefaultSelectors)
	if err != nil {
		panic(err)
	}
	return c
}

// Selectors returns the source selectors.
func (c *Containers) Selectors() []string { return c.selectors }

// Match reports whether n is a comment container.
func (c *Containers) Match(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	for _, sel := range c.compiled {
		if sel.Match(n) {
			return true
		}
	}
	return false
}

// Closest returns n or its nearest ancestor that is a comment container.
// For a text node the search starts at its parent.
func (c *Containers) Closest(n *html.Node) *html.Node {
	for ; n != nil; n = n.Parent {
		if c.Match(n) {
			return n
		}
	}
	return nil
}

// QueryAll returns every container strictly below root, in document order.
// Nested containers are all returned.
func (c *Containers) QueryAll(root *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			if c.Match(ch) {
				out = append(out, ch)
			}
			walk(ch)
		}
	}
	if root != nil {
		walk(root)
	}
	return out
}
