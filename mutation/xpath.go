package mutation

import (
	"fmt"

	"golang.org/x/net/html"
)

// XPath locates n for logs and reports. Element steps carry a 1-based index
// only when the parent has several children with the same tag. Detached
// subtrees are rooted at their topmost ancestor.
func XPath(n *html.Node) string {
	if n == nil {
		return ""
	}
	switch n.Type {
	case html.DocumentNode:
		return ""
	case html.DoctypeNode:
		return XPath(n.Parent)
	case html.TextNode:
		return XPath(n.Parent) + "/text()"
	case html.CommentNode:
		return XPath(n.Parent) + "/comment()"
	case html.ElementNode:
	default:
		return XPath(n.Parent)
	}

	parentPath := XPath(n.Parent)
	switch n.Data {
	case "html":
		return "/html"
	case "head", "body":
		if n.Parent != nil && n.Parent.Data == "html" {
			return "/html/" + n.Data
		}
	}
	if n.Parent == nil {
		return "/" + n.Data
	}

	idx, total := 0, 0
	for s := n.Parent.FirstChild; s != nil; s = s.NextSibling {
		if s.Type != html.ElementNode || s.Data != n.Data {
			continue
		}
		total++
		if s == n {
			idx = total
		}
	}
	if total > 1 {
		return fmt.Sprintf("%s/%s[%d]", parentPath, n.Data, idx)
	}
	return parentPath + "/" + n.Data
}
