package main

import (
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server on stdin/stdout",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		m, err := openMarker(ctx, cfg)
		if err != nil {
			return err
		}
		defer m.Close()

		go func() {
			if err := m.Watch(ctx); err != nil {
				slog.Error("vocabulary watch", "error", err)
			}
		}()

		srv := mcp.NewServer(&mcp.Implementation{Name: "ccmark", Version: version}, nil)
		m.RegisterMCP(srv)
		return srv.Run(ctx, &mcp.StdioTransport{})
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
