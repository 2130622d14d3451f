package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/ccmark/marker"
)

var (
	highlightFragment bool
	highlightTrusted  bool
	highlightOut      string
	highlightJSON     bool
)

var highlightCmd = &cobra.Command{
	Use:   "highlight [file]",
	Short: "Highlight conventional comments in an HTML file (stdin by default)",
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

		res, err := m.HighlightHTML(cmd.Context(), input, marker.HighlightOptions{
			Fragment: highlightFragment,
			Trusted:  highlightTrusted,
		})
		if err != nil {
			return err
		}
		if highlightJSON {
			data, err := json.MarshalIndent(res, "", "  ")
			if err != nil {
				return err
			}
			return writeOutput(cmd, highlightOut, append(data, '\n'))
		}
		return writeOutput(cmd, highlightOut, []byte(res.HTML))
	},
}

func init() {
	rootCmd.AddCommand(highlightCmd)
	f := highlightCmd.Flags()
	f.BoolVar(&highlightFragment, "fragment", false, "input is body content, not a full document")
	f.BoolVar(&highlightTrusted, "trusted", false, "skip HTML sanitising")
	f.StringVarP(&highlightOut, "out", "o", "", "output file (default stdout)")
	f.BoolVar(&highlightJSON, "json", false, "print {html, highlights} as JSON")
}
