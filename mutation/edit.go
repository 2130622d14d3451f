package mutation

import (
	"golang.org/x/net/html"
)

// AppendChild adds child, which must be detached, as the last child of parent.
func AppendChild(parent, child *html.Node) Record {
	parent.AppendChild(child)
	return Record{Op: OpInsert, Target: parent, Added: []*html.Node{child}}
}

// InsertBefore adds child before ref. A nil ref appends.
func InsertBefore(parent, child, ref *html.Node) Record {
	parent.InsertBefore(child, ref)
	return Record{Op: OpInsert, Target: parent, Added: []*html.Node{child}}
}

// RemoveChild detaches child from parent.
func RemoveChild(parent, child *html.Node) Record {
	parent.RemoveChild(child)
	return Record{Op: OpRemove, Target: parent, Removed: []*html.Node{child}}
}

// SetText replaces the Data of a text node.
func SetText(n *html.Node, text string) Record {
	old := n.Data
	n.Data = text
	return Record{Op: OpText, Target: n, Value: text, OldValue: old}
}

// SetAttr sets or adds the attribute key on n.
func SetAttr(n *html.Node, key, val string) Record {
	rec := Record{Op: OpAttr, Target: n, Name: key, Value: val}
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == key {
			rec.OldValue = n.Attr[i].Val
			n.Attr[i].Val = val
			return rec
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
	return rec
}

// RemoveAttr deletes the attribute key from n. The record's OldValue is
// empty when the attribute was absent.
func RemoveAttr(n *html.Node, key string) Record {
	rec := Record{Op: OpAttrDel, Target: n, Name: key}
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == key {
			rec.OldValue = n.Attr[i].Val
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			break
		}
	}
	return rec
}

// ReplaceChildren swaps every child of parent for nodes, like setting
// innerHTML. It returns a remove record (if parent had children) followed by
// an insert record (if nodes is not empty).
func ReplaceChildren(parent *html.Node, nodes ...*html.Node) []Record {
	var recs []Record
	var removed []*html.Node
	for c := parent.FirstChild; c != nil; {
		next := c.NextSibling
		parent.RemoveChild(c)
		removed = append(removed, c)
		c = next
	}
	if len(removed) > 0 {
		recs = append(recs, Record{Op: OpRemove, Target: parent, Removed: removed})
	}
	if len(nodes) > 0 {
		for _, n := range nodes {
			parent.AppendChild(n)
		}
		recs = append(recs, Record{Op: OpInsert, Target: parent, Added: nodes})
	}
	return recs
}

// DocReset reports that the whole tree under root was replaced.
func DocReset(root *html.Node) Record {
	return Record{Op: OpDocReset, Target: root}
}
