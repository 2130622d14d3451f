package vocab

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a YAML custom vocabulary:
//
//	labels: [risk, kudos]
//	decorations: [perf]
//	label_colors: {risk: "#ffcccc"}
//	decoration_colors: {perf: "#ccddff"}
func LoadFile(path string) (Custom, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Custom{}, fmt.Errorf("vocab: read %s: %w", path, err)
	}
	var c Custom
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Custom{}, fmt.Errorf("vocab: parse %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return Custom{}, fmt.Errorf("vocab: %s: %w", path, err)
	}
	return c, nil
}

// Validate checks every name and colour in c.
func (c Custom) Validate() error {
	for _, n := range c.Labels {
		if err := ValidateName(n); err != nil {
			return err
		}
	}
	for _, n := range c.Decorations {
		if err := ValidateName(n); err != nil {
			return err
		}
	}
	for _, m := range []map[string]string{c.LabelColors, c.DecorationColors} {
		for n, col := range m {
			if err := ValidateName(n); err != nil {
				return err
			}
			if err := ValidateColor(col); err != nil {
				return err
			}
		}
	}
	return nil
}

// Merge returns c with other's entries appended; other's colours win.
func (c Custom) Merge(other Custom) Custom {
	out := Custom{
		Labels:           append(append([]string(nil), c.Labels...), other.Labels...),
		Decorations:      append(append([]string(nil), c.Decorations...), other.Decorations...),
		LabelColors:      make(map[string]string, len(c.LabelColors)+len(other.LabelColors)),
		DecorationColors: make(map[string]string, len(c.DecorationColors)+len(other.DecorationColors)),
	}
	for _, src := range []map[string]string{c.LabelColors, other.LabelColors} {
		for k, v := range src {
			out.LabelColors[Key(k)] = v
		}
	}
	for _, src := range []map[string]string{c.DecorationColors, other.DecorationColors} {
		for k, v := range src {
			out.DecorationColors[Key(k)] = v
		}
	}
	return out
}
