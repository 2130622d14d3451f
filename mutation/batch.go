// Package mutation describes changes made to an *html.Node tree. Edits go
// through the helpers in this package, which perform the change and return
// the Record describing it, so a consumer (the change monitor) learns
// exactly which nodes moved without diffing the tree.
package mutation

import (
	"time"

	"golang.org/x/net/html"

	"github.com/hazyhaar/ccmark/idgen"
)

// Op is the type of tree mutation.
type Op string

const (
	OpInsert   Op = "insert"    // children added under Target
	OpRemove   Op = "remove"    // children removed from Target
	OpText     Op = "text"      // text node Data changed
	OpAttr     Op = "attr"      // attribute set
	OpAttrDel  Op = "attr_del"  // attribute removed
	OpDocReset Op = "doc_reset" // whole tree replaced
)

// Record is a single mutation. Node fields point into the live tree.
type Record struct {
	Op       Op
	Target   *html.Node   // parent for insert/remove, the node itself otherwise
	Added    []*html.Node // insert
	Removed  []*html.Node // remove
	Name     string       // attribute name for attr/attr_del
	Value    string       // new value
	OldValue string       // previous value
}

// Batch is the unit handed to the monitor: every record produced by one edit.
type Batch struct {
	ID        string // UUIDv7
	Seq       uint64 // monotonically increasing per monitor
	Records   []Record
	Timestamp int64 // epoch milliseconds
}

// NewBatch stamps records with a fresh ID and the current time.
func NewBatch(seq uint64, records []Record) *Batch {
	return &Batch{
		ID:        idgen.New(),
		Seq:       seq,
		Records:   records,
		Timestamp: time.Now().UnixMilli(),
	}
}
