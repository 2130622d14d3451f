package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/ccmark/marker"
	"github.com/hazyhaar/ccmark/vocab"
)

var (
	vocabJSON  bool
	vocabColor string
)

var vocabCmd = &cobra.Command{
	Use:   "vocab",
	Short: "Inspect and edit the label and decoration vocabulary",
}

// withMarker runs fn against a marker opened from the global flags.
func withMarker(cmd *cobra.Command, fn func(ctx context.Context, m *marker.Marker) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	m, err := openMarker(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer m.Close()
	return fn(cmd.Context(), m)
}

var vocabListCmd = &cobra.Command{
	Use:   "list",
	Short: "List labels and decorations with their colours",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMarker(cmd, func(_ context.Context, m *marker.Marker) error {
			view := m.ViewVocabulary()
			if vocabJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KIND\tNAME\tCOLOR\tBUILTIN")
			for _, l := range view.Labels {
				fmt.Fprintf(tw, "label\t%s\t%s\t%v\n", l.Name, l.Color, l.Builtin)
			}
			for _, d := range view.Decorations {
				fmt.Fprintf(tw, "decoration\t%s\t%s\t%v\n", d.Name, d.Color, d.Builtin)
			}
			return tw.Flush()
		})
	},
}

func addCmd(kind vocab.Kind) *cobra.Command {
	return &cobra.Command{
		Use:   fmt.Sprintf("add-%s <name>", kind),
		Short: fmt.Sprintf("Add a custom %s", kind),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMarker(cmd, func(ctx context.Context, m *marker.Marker) error {
				return m.AddTerm(ctx, kind, args[0], vocabColor)
			})
		},
	}
}

func removeCmd(kind vocab.Kind) *cobra.Command {
	return &cobra.Command{
		Use:   fmt.Sprintf("remove-%s <name>", kind),
		Short: fmt.Sprintf("Remove a custom %s", kind),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMarker(cmd, func(ctx context.Context, m *marker.Marker) error {
				return m.RemoveTerm(ctx, kind, args[0])
			})
		},
	}
}

var vocabSetColorCmd = &cobra.Command{
	Use:   "set-color <label|decoration> <name> <#rrggbb>",
	Short: "Override the background colour of a label or decoration",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMarker(cmd, func(ctx context.Context, m *marker.Marker) error {
			return m.SetColor(ctx, vocab.Kind(args[0]), args[1], args[2])
		})
	},
}

var vocabResetColorsCmd = &cobra.Command{
	Use:   "reset-colors",
	Short: "Drop every colour override",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMarker(cmd, func(ctx context.Context, m *marker.Marker) error {
			return m.ResetColors(ctx)
		})
	},
}

var vocabImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Store the labels, decorations and colours of a YAML vocabulary file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := vocab.LoadFile(args[0])
		if err != nil {
			return err
		}
		return withMarker(cmd, func(ctx context.Context, m *marker.Marker) error {
			for _, l := range c.Labels {
				if err := m.AddTerm(ctx, vocab.KindLabel, l, ""); err != nil {
					return err
				}
			}
			for _, d := range c.Decorations {
				if err := m.AddTerm(ctx, vocab.KindDecoration, d, ""); err != nil {
					return err
				}
			}
			for n, col := range c.LabelColors {
				if err := m.SetColor(ctx, vocab.KindLabel, n, col); err != nil {
					return err
				}
			}
			for n, col := range c.DecorationColors {
				if err := m.SetColor(ctx, vocab.KindDecoration, n, col); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(vocabCmd)
	vocabListCmd.Flags().BoolVar(&vocabJSON, "json", false, "print as JSON")
	vocabCmd.AddCommand(vocabListCmd, vocabSetColorCmd, vocabResetColorsCmd, vocabImportCmd)
	for _, kind := range []vocab.Kind{vocab.KindLabel, vocab.KindDecoration} {
		add := addCmd(kind)
		add.Flags().StringVar(&vocabColor, "color", "", "background colour (#rgb or #rrggbb)")
		vocabCmd.AddCommand(add, removeCmd(kind))
	}
}
