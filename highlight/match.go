package highlight

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// Match is the first conventional-comment prefix found in a container.
// Start and End are byte offsets into the text node's Data.
type Match struct {
	Container     *html.Node
	Node          *html.Node
	Label         string   // as written in the text
	DecorationRaw string   // text between the parentheses, "" if none
	Decorations   []string // DecorationRaw split on commas, trimmed, empties dropped
	Start         int      // first byte of the label
	End           int      // byte after the colon and trailing whitespace

	text string
}

// HasDecorations reports whether the prefix carried a parenthesised group.
func (m *Match) HasDecorations() bool { return len(m.Decorations) > 0 }

// Matcher finds comment prefixes for a fixed label set.
type Matcher struct {
	re *regexp.Regexp
}

// skipTags are never descended into.
var skipTags = map[string]bool{
	"code":     true,
	"pre":      true,
	"script":   true,
	"style":    true,
	"textarea": true,
}

// NewMatcher compiles the prefix pattern for labels. An empty label set
// yields a Matcher that never matches.
func NewMatcher(labels []string) *Matcher {
	alts := make([]string, 0, len(labels))
	for _, l := range labels {
		if l = strings.TrimSpace(l); l != "" {
			alts = append(alts, l)
		}
	}
	if len(alts) == 0 {
		return &Matcher{}
	}
	// Longest first so "suggestion-ish" is not cut to "suggestion".
	sort.SliceStable(alts, func(i, j int) bool { return len(alts[i]) > len(alts[j]) })
	for i, a := range alts {
		alts[i] = regexp.QuoteMeta(a)
	}
	// \s is ASCII only in RE2; &nbsp; decodes to U+00A0.
	pat := `(?i)(^|[\s\x{00A0}])(` + strings.Join(alts, "|") + `)([\s\x{00A0}]*\(([^)]*)\))?:[\s\x{00A0}]*`
	return &Matcher{re: regexp.MustCompile(pat)}
}

// FindFirst returns the first prefix in container, walking text nodes in
// document order. Code blocks, scripts and existing highlights are skipped.
func (m *Matcher) FindFirst(container *html.Node) *Match {
	if m == nil || m.re == nil || container == nil || skipped(container) {
		return nil
	}
	var found *Match
	walkText(container, func(n *html.Node) bool {
		if strings.TrimSpace(n.Data) == "" {
			return true
		}
		loc := m.re.FindStringSubmatchIndex(n.Data)
		if loc == nil {
			return true
		}
		found = &Match{
			Container: container,
			Node:      n,
			Label:     n.Data[loc[4]:loc[5]],
			Start:     loc[4],
			End:       loc[1],
			text:      n.Data,
		}
		if loc[8] >= 0 {
			found.DecorationRaw = n.Data[loc[8]:loc[9]]
			found.Decorations = ParseDecorations(found.DecorationRaw)
		}
		return false
	})
	return found
}

// ParseDecorations splits a decoration group on commas.
func ParseDecorations(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func skipped(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	return skipTags[n.Data] || hasClass(n, WrapperClass)
}

// walkText visits text nodes under n until visit returns false.
func walkText(n *html.Node, visit func(*html.Node) bool) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			if !visit(c) {
				return false
			}
		case html.ElementNode:
			if skipped(c) {
				continue
			}
			if !walkText(c, visit) {
				return false
			}
		}
	}
	return true
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}
