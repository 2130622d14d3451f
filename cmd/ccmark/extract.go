package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/ccmark/extract"
)

var (
	extractDomain string
	extractJSON   bool
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "List the conventional comments of an HTML review page",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := readInput(cmd, args)
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		m, err := openMarker(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer m.Close()

		report, err := m.Extract(cmd.Context(), input, extractDomain)
		if err != nil {
			return err
		}
		if extractJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), formatReport(report))
		return err
	},
}

func formatReport(r *extract.Report) string {
	var b strings.Builder
	for _, c := range r.Comments {
		b.WriteString(c.Label)
		if len(c.Decorations) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(c.Decorations, ", "))
		}
		fmt.Fprintf(&b, ": %s\n", firstLine(c.Subject))
	}
	fmt.Fprintf(&b, "%d comments, %d blocking\n", r.Summary.Total, r.Summary.Blocking)
	return b.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringVar(&extractDomain, "domain", "", "base URL for relative links")
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "print the full report as JSON")
}
