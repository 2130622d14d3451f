package mutation

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"time"

	"golang.org/x/net/html"

	"github.com/hazyhaar/ccmark/idgen"
)

// Snapshot is a rendered copy of the whole tree.
type Snapshot struct {
	ID        string `json:"id"` // UUIDv7
	HTML      []byte `json:"html"`
	HTMLHash  string `json:"html_hash"` // SHA-256 hex
	Timestamp int64  `json:"timestamp"` // epoch milliseconds
}

// TakeSnapshot renders root.
func TakeSnapshot(root *html.Node) (*Snapshot, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return nil, fmt.Errorf("mutation: render snapshot: %w", err)
	}
	return &Snapshot{
		ID:        idgen.New(),
		HTML:      buf.Bytes(),
		HTMLHash:  HashHTML(buf.Bytes()),
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// HashHTML returns the SHA-256 hex digest of raw HTML bytes.
func HashHTML(b []byte) string {
	h := sha256.Sum256(b)
	return fmt.Sprintf("%x", h)
}
