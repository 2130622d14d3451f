package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/net/html"

	"github.com/hazyhaar/ccmark/marker"
	"github.com/hazyhaar/ccmark/monitor"
	"github.com/hazyhaar/ccmark/mutation"
	"github.com/hazyhaar/ccmark/vocab"
)

var (
	watchOut   string
	watchTrace string
)

var watchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Keep an HTML file highlighted as it changes",
	Long: `watch loads an HTML file into a live tree, highlights it, and applies every
later edit of the file to the tree as a mutation batch. The highlighted page
is written after each full rescan. Vocabulary changes made with
"ccmark vocab" are picked up while watching.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
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

		var trace io.Writer
		if watchTrace != "" {
			f, err := os.OpenFile(watchTrace, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return err
			}
			defer f.Close()
			trace = f
		}

		var out io.Writer = cmd.OutOrStdout()
		lf, err := newLiveFile(args[0], watchOut, out, m, trace)
		if err != nil {
			return err
		}
		go func() {
			if err := m.Watch(ctx); err != nil {
				slog.Error("vocabulary watch", "error", err)
			}
		}()
		return lf.run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVarP(&watchOut, "out", "o", "", "output file (default stdout)")
	watchCmd.Flags().StringVar(&watchTrace, "trace", "", "append every mutation batch as a JSON line to this file")
}

// liveFile mirrors an HTML file into a monitored tree.
type liveFile struct {
	path    string
	outPath string
	stdout  io.Writer
	trace   io.Writer
	mon     *monitor.Monitor
	logger  *slog.Logger

	lastInput string // hash of the last loaded file; run goroutine only
	lastOut   string // hash of the last written page; monitor goroutine only
}

func newLiveFile(path, outPath string, stdout io.Writer, m *marker.Marker, trace io.Writer) (*liveFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg := m.Config()
	lf := &liveFile{
		path:      filepath.Clean(path),
		outPath:   outPath,
		stdout:    stdout,
		trace:     trace,
		logger:    cfg.Logger,
		lastInput: mutation.HashHTML(data),
	}
	lf.mon = monitor.New(root, monitor.Config{
		Highlighter:   m.Highlighter(),
		RescanDelay:   cfg.RescanDelay,
		RescanMaxWait: cfg.RescanMaxWait,
		OnBatch:       lf.traceBatch,
		AfterRescan:   lf.write,
		Logger:        cfg.Logger,
	})
	m.OnReload(func(snap *vocab.Snapshot) {
		if err := lf.mon.SetVocabulary(context.Background(), snap); err != nil {
			lf.logger.Debug("watch: vocabulary not applied", "error", err)
		}
	})
	return lf, nil
}

// run watches the file until ctx ends. The directory is watched so editors
// that save by renaming are followed.
func (lf *liveFile) run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(lf.path)); err != nil {
		return fmt.Errorf("watch %s: %w", lf.path, err)
	}

	if err := lf.mon.Start(ctx); err != nil {
		return err
	}
	defer lf.mon.Stop()
	lf.logger.Info("watch: started", "file", lf.path)

	for {
		select {
		case <-ctx.Done():
			st := lf.mon.Stats()
			lf.logger.Info("watch: stopped", "batches", st.Batches, "highlights", st.Highlights)
			return nil
		case <-lf.mon.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != lf.path || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			if err := lf.reload(ctx); err != nil {
				lf.logger.Warn("watch: reload failed", "file", lf.path, "error", err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			lf.logger.Warn("watch: fsnotify", "error", err)
		}
	}
}

// reload replaces the tree's content with the file's as one batch.
func (lf *liveFile) reload(ctx context.Context) error {
	data, err := os.ReadFile(lf.path)
	if err != nil {
		return err
	}
	hash := mutation.HashHTML(data)
	if hash == lf.lastInput {
		return nil
	}
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return err
	}
	var kids []*html.Node
	for c := doc.FirstChild; c != nil; {
		next := c.NextSibling
		doc.RemoveChild(c)
		kids = append(kids, c)
		c = next
	}
	if err := lf.mon.Edit(ctx, func(root *html.Node) []mutation.Record {
		return mutation.ReplaceChildren(root, kids...)
	}); err != nil {
		return err
	}
	lf.lastInput = hash
	return nil
}

func (lf *liveFile) write(root *html.Node, _ int) {
	snap, err := mutation.TakeSnapshot(root)
	if err != nil {
		lf.logger.Error("watch: snapshot", "error", err)
		return
	}
	if snap.HTMLHash == lf.lastOut {
		return
	}
	if lf.outPath == "" {
		if _, err := lf.stdout.Write(append(snap.HTML, '\n')); err != nil {
			lf.logger.Warn("watch: write output", "error", err)
			return
		}
	} else if err := os.WriteFile(lf.outPath, snap.HTML, 0o644); err != nil {
		lf.logger.Error("watch: write output", "file", lf.outPath, "error", err)
		return
	}
	lf.lastOut = snap.HTMLHash
}

func (lf *liveFile) traceBatch(b *mutation.Batch) {
	if lf.trace == nil {
		return
	}
	data, err := mutation.MarshalBatch(b)
	if err != nil {
		lf.logger.Warn("watch: trace", "error", err)
		return
	}
	if _, err := lf.trace.Write(append(data, '\n')); err != nil {
		lf.logger.Warn("watch: trace", "batch", b.ID, "error", err)
	}
}
