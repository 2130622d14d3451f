// Package vocab holds the conventional-comment vocabulary: the built-in and
// custom labels and decorations, and their display colours.
//
// A Snapshot is immutable. Consumers (matcher, annotator, monitor) receive a
// Snapshot at call time and never read shared mutable state; when the
// vocabulary changes a new Snapshot is built and handed over.
package vocab

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// BuiltinLabels are the labels of the conventionalcomments.org convention,
// in display order.
var BuiltinLabels = []string{
	"praise",
	"nitpick",
	"suggestion",
	"issue",
	"todo",
	"question",
	"thought",
	"chore",
	"note",
}

// BuiltinDecorations are the decorations offered out of the box.
var BuiltinDecorations = []string{
	"non-blocking",
	"blocking",
	"typo",
	"security",
	"test",
}

// BuiltinLabelColors are the default label backgrounds.
var BuiltinLabelColors = map[string]string{
	"praise":     "#d9f1ed",
	"nitpick":    "#fff0d9",
	"suggestion": "#e3f4e8",
	"issue":      "#fbe4e4",
	"todo":       "#e9e2f7",
	"question":   "#e3ecff",
	"thought":    "#f4e7f6",
	"chore":      "#fff5dd",
	"note":       "#e6f2ff",
}

// BuiltinDecorationColors are the default decoration backgrounds. The table
// also covers if-minor and ux, which are common but not offered by default.
var BuiltinDecorationColors = map[string]string{
	"non-blocking": "#e4f3e8",
	"blocking":     "#fbe0e0",
	"if-minor":     "#ece3f7",
	"ux":           "#e6f0ff",
	"security":     "#fbe0e0",
	"test":         "#e9e2f7",
	"typo":         "#ececec",
}

// MaxNameLen bounds label and decoration names.
const MaxNameLen = 64

var (
	// ErrInvalidName is returned for names that would break the
	// "label (decorations): subject" grammar.
	ErrInvalidName = errors.New("vocab: invalid name")
	// ErrInvalidColor is returned for colours that are not #rgb or #rrggbb.
	ErrInvalidColor = errors.New("vocab: invalid color")
)

var colorRe = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Custom is the user-defined part of the vocabulary.
type Custom struct {
	Labels           []string          `yaml:"labels" json:"labels"`
	Decorations      []string          `yaml:"decorations" json:"decorations"`
	LabelColors      map[string]string `yaml:"label_colors" json:"label_colors"`
	DecorationColors map[string]string `yaml:"decoration_colors" json:"decoration_colors"`
}

// Snapshot is an immutable, merged view of built-in and custom vocabulary.
type Snapshot struct {
	labels           []string
	decorations      []string
	labelColors      map[string]string
	decorationColors map[string]string
	builtinLabels    map[string]bool
	builtinDecos     map[string]bool
}

// Builtin returns a Snapshot with only the built-in vocabulary.
func Builtin() *Snapshot {
	return New(Custom{})
}

// New merges c over the built-in vocabulary. Built-in names come first;
// duplicates are dropped case-insensitively, keeping the first spelling.
// Custom colours override built-in colours.
func New(c Custom) *Snapshot {
	s := &Snapshot{
		labelColors:      make(map[string]string, len(BuiltinLabelColors)+len(c.LabelColors)),
		decorationColors: make(map[string]string, len(BuiltinDecorationColors)+len(c.DecorationColors)),
		builtinLabels:    make(map[string]bool, len(BuiltinLabels)),
		builtinDecos:     make(map[string]bool, len(BuiltinDecorations)),
	}
	for _, l := range BuiltinLabels {
		s.builtinLabels[l] = true
	}
	for _, d := range BuiltinDecorations {
		s.builtinDecos[d] = true
	}

	s.labels = dedup(BuiltinLabels, c.Labels)
	s.decorations = dedup(BuiltinDecorations, c.Decorations)

	for k, v := range BuiltinLabelColors {
		s.labelColors[k] = v
	}
	for k, v := range c.LabelColors {
		s.labelColors[Key(k)] = v
	}
	for k, v := range BuiltinDecorationColors {
		s.decorationColors[k] = v
	}
	for k, v := range c.DecorationColors {
		s.decorationColors[Key(k)] = v
	}
	return s
}

// Empty returns a Snapshot with no labels at all. Matching against it never
// scans anything.
func Empty() *Snapshot {
	return &Snapshot{
		labelColors:      map[string]string{},
		decorationColors: map[string]string{},
		builtinLabels:    map[string]bool{},
		builtinDecos:     map[string]bool{},
	}
}

// Labels returns the merged label list. The slice must not be modified.
func (s *Snapshot) Labels() []string { return s.labels }

// Decorations returns the merged decoration list. The slice must not be modified.
func (s *Snapshot) Decorations() []string { return s.decorations }

// LabelColor looks up the background colour of a label.
func (s *Snapshot) LabelColor(name string) (string, bool) {
	c, ok := s.labelColors[Key(name)]
	return c, ok && c != ""
}

// DecorationColor looks up the background colour of a decoration. Names
// with inner whitespace also match their hyphenated form.
func (s *Snapshot) DecorationColor(name string) (string, bool) {
	key := Key(name)
	if c, ok := s.decorationColors[key]; ok && c != "" {
		return c, true
	}
	c, ok := s.decorationColors[Slug(name)]
	return c, ok && c != ""
}

// IsBuiltinLabel reports whether name is one of BuiltinLabels.
func (s *Snapshot) IsBuiltinLabel(name string) bool {
	return s.builtinLabels[Key(name)]
}

// IsBuiltinDecoration reports whether name (or its slug) is one of
// BuiltinDecorations.
func (s *Snapshot) IsBuiltinDecoration(name string) bool {
	return s.builtinDecos[Slug(name)]
}

// Key is the lookup key of a name: trimmed and lower-cased.
func Key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Slug lower-cases name and joins whitespace runs with '-'.
func Slug(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

// ValidateName rejects names the grammar cannot carry.
func ValidateName(name string) error {
	n := strings.TrimSpace(name)
	if n == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if len(n) > MaxNameLen {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidName, MaxNameLen)
	}
	if i := strings.IndexAny(n, "():,\n\r"); i >= 0 {
		return fmt.Errorf("%w: %q contains %q", ErrInvalidName, n, n[i])
	}
	return nil
}

// ValidateColor accepts #rgb and #rrggbb.
func ValidateColor(color string) error {
	if !colorRe.MatchString(color) {
		return fmt.Errorf("%w: %q", ErrInvalidColor, color)
	}
	return nil
}

func dedup(builtin, custom []string) []string {
	seen := make(map[string]bool, len(builtin)+len(custom))
	out := make([]string, 0, len(builtin)+len(custom))
	for _, list := range [][]string{builtin, custom} {
		for _, n := range list {
			n = strings.TrimSpace(n)
			k := strings.ToLower(n)
			if n == "" || seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, n)
		}
	}
	return out
}
