package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/ccmark/marker"
	"github.com/hazyhaar/ccmark/vocab"
)

var (
	configPath string
	dbPath     string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "ccmark",
	Short: "Highlight and extract conventional comments in code-review pages",
	Long: `ccmark finds "label (decorations): subject" prefixes in rendered review
comments and wraps them in styled markup, leaving the rest of the comment intact.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger, err := newLogger(cmd.ErrOrStderr(), logLevel, logFormat)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", env("CCMARK_CONFIG", ""), "YAML config file")
	pf.StringVar(&dbPath, "db", env("CCMARK_DB", ""), "custom vocabulary database (overrides db_path)")
	pf.StringVar(&logLevel, "log-level", env("CCMARK_LOG_LEVEL", "info"), "debug, info, warn or error")
	pf.StringVar(&logFormat, "log-format", "text", "text or json")
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info", "":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// loadConfig reads --config (if any) and applies flag and env overrides.
func loadConfig() (*marker.Config, error) {
	cfg := &marker.Config{}
	if configPath != "" {
		c, err := marker.LoadConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		cfg = c
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if v := os.Getenv("CCMARK_LISTEN"); v != "" {
		cfg.Listen = v
	}
	cfg.Logger = slog.Default()
	return cfg, nil
}

// openMarker builds the service, with the vocabulary store when a database
// is configured.
func openMarker(ctx context.Context, cfg *marker.Config) (*marker.Marker, error) {
	if cfg.DBPath == "" {
		return marker.New(ctx, cfg)
	}
	store, err := vocab.OpenStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	m, err := marker.New(ctx, cfg, marker.WithStore(store))
	if err != nil {
		store.Close()
		return nil, err
	}
	return m, nil
}

// readInput reads the named file, or stdin for "" and "-".
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(args[0])
}

// writeOutput writes data to path, or stdout when path is empty.
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
