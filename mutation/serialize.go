package mutation

import "encoding/json"

// WireRecord is the JSON form of a Record: nodes are replaced by XPaths
// and inserted subtrees by their tag.
type WireRecord struct {
	Op       Op       `json:"op"`
	XPath    string   `json:"xpath"`
	Added    []string `json:"added,omitempty"`
	Removed  int      `json:"removed,omitempty"`
	Name     string   `json:"name,omitempty"`
	Value    string   `json:"value,omitempty"`
	OldValue string   `json:"old_value,omitempty"`
}

// WireBatch is the JSON form of a Batch.
type WireBatch struct {
	ID        string       `json:"id"`
	Seq       uint64       `json:"seq"`
	Records   []WireRecord `json:"records"`
	Timestamp int64        `json:"timestamp"`
}

// MarshalBatch serialises b for traces. Node identity is lost.
func MarshalBatch(b *Batch) ([]byte, error) {
	w := WireBatch{ID: b.ID, Seq: b.Seq, Timestamp: b.Timestamp, Records: make([]WireRecord, 0, len(b.Records))}
	for _, r := range b.Records {
		wr := WireRecord{
			Op:       r.Op,
			XPath:    XPath(r.Target),
			Removed:  len(r.Removed),
			Name:     r.Name,
			Value:    r.Value,
			OldValue: r.OldValue,
		}
		for _, n := range r.Added {
			wr.Added = append(wr.Added, XPath(n))
		}
		w.Records = append(w.Records, wr)
	}
	return json.Marshal(w)
}

// UnmarshalBatch decodes a trace produced by MarshalBatch.
func UnmarshalBatch(data []byte) (*WireBatch, error) {
	var w WireBatch
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	return &w, nil
}
