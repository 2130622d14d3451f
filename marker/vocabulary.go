package marker

import (
	"context"

	"github.com/hazyhaar/ccmark/vocab"
)

// VocabularyView is the JSON form of a snapshot.
type VocabularyView struct {
	Labels      []TermView `json:"labels"`
	Decorations []TermView `json:"decorations"`
}

// TermView is one label or decoration.
type TermView struct {
	Name    string `json:"name"`
	Color   string `json:"color,omitempty"`
	Builtin bool   `json:"builtin"`
}

// ViewVocabulary describes the current vocabulary.
func (m *Marker) ViewVocabulary() VocabularyView {
	snap := m.Vocabulary()
	v := VocabularyView{
		Labels:      make([]TermView, 0, len(snap.Labels())),
		Decorations: make([]TermView, 0, len(snap.Decorations())),
	}
	for _, l := range snap.Labels() {
		c, _ := snap.LabelColor(l)
		v.Labels = append(v.Labels, TermView{Name: l, Color: c, Builtin: snap.IsBuiltinLabel(l)})
	}
	for _, d := range snap.Decorations() {
		c, _ := snap.DecorationColor(d)
		v.Decorations = append(v.Decorations, TermView{Name: d, Color: c, Builtin: snap.IsBuiltinDecoration(d)})
	}
	return v
}

// AddTerm adds a custom label or decoration, then reloads.
func (m *Marker) AddTerm(ctx context.Context, kind vocab.Kind, name, color string) error {
	return m.edit(ctx, func(s *vocab.Store) error { return s.Add(ctx, kind, name, color) })
}

// RemoveTerm removes a custom label or decoration, then reloads.
func (m *Marker) RemoveTerm(ctx context.Context, kind vocab.Kind, name string) error {
	return m.edit(ctx, func(s *vocab.Store) error { return s.Remove(ctx, kind, name) })
}

// SetColor overrides a colour, then reloads.
func (m *Marker) SetColor(ctx context.Context, kind vocab.Kind, name, color string) error {
	return m.edit(ctx, func(s *vocab.Store) error { return s.SetColor(ctx, kind, name, color) })
}

// ResetColors drops every stored colour override, then reloads.
func (m *Marker) ResetColors(ctx context.Context) error {
	return m.edit(ctx, func(s *vocab.Store) error { return s.ResetColors(ctx) })
}

func (m *Marker) edit(ctx context.Context, fn func(*vocab.Store) error) error {
	if m.store == nil {
		return ErrReadOnly
	}
	if err := fn(m.store); err != nil {
		return err
	}
	return m.Reload(ctx)
}
