package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

var (
	fetchMode   string
	fetchOut    string
	fetchReport bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <url>",
	Short: "Fetch a review page and highlight its conventional comments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		m, err := openMarker(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer m.Close()

		res, err := m.FetchAndHighlight(cmd.Context(), args[0], fetchMode)
		if err != nil {
			return err
		}
		if fetchReport {
			data, err := json.MarshalIndent(res.Report, "", "  ")
			if err != nil {
				return err
			}
			return writeOutput(cmd, fetchOut, append(data, '\n'))
		}
		return writeOutput(cmd, fetchOut, []byte(res.HTML))
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	f := fetchCmd.Flags()
	f.StringVar(&fetchMode, "mode", "", "http, browser or auto (default from config)")
	f.StringVarP(&fetchOut, "out", "o", "", "output file (default stdout)")
	f.BoolVar(&fetchReport, "report", false, "print the comment report instead of the page")
}
