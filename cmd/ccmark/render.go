package main

import (
	"github.com/spf13/cobra"
)

var renderOut string

var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Render a Markdown comment to highlighted comment HTML",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := readInput(cmd, args)
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

		res, err := m.RenderMarkdown(cmd.Context(), src)
		if err != nil {
			return err
		}
		return writeOutput(cmd, renderOut, []byte(res.HTML+"\n"))
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "output file (default stdout)")
}
