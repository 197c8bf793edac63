/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: watch.go
Description: Watch command. Follows a directory with fsnotify and decodes files as they are
created or rewritten. Bursts of events for the same file are debounced into one decode
and content seen before is not decoded again.
*/

package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/kleascm/protodec/pkg/capture"
	"github.com/kleascm/protodec/pkg/core"
	"github.com/kleascm/protodec/pkg/logging"
	"github.com/spf13/cobra"
)

// fileWatcher calls handle once per changed file after writes settle
type fileWatcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	handle   func(ctx context.Context, path string)
	logger   *logging.Logger
}

func newFileWatcher(dir string, debounce time.Duration, logger *logging.Logger, handle func(context.Context, string)) (*fileWatcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	return &fileWatcher{watcher: watcher, debounce: debounce, handle: handle, logger: logger}, nil
}

// Run dispatches settled files until ctx is done, then closes the watcher.
func (w *fileWatcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(max(w.debounce/2, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if ignored(event.Name) {
				continue
			}
			pending[event.Name] = time.Now()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warning("Watcher error", map[string]interface{}{"error": err.Error()})
		case now := <-ticker.C:
			for path, last := range pending {
				if now.Sub(last) < w.debounce {
					continue
				}
				delete(pending, path)
				if info, err := os.Stat(path); err != nil || info.IsDir() {
					continue
				}
				w.handle(ctx, path)
			}
		}
	}
}

// ignored skips hidden and editor temporary files.
func ignored(path string) bool {
	name := filepath.Base(path)
	return strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") || strings.HasSuffix(name, ".swp")
}

// RunWatch decodes files dropped into a directory until interrupted
func RunWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	engine, err := sess.engine()
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	debounce, _ := cmd.Flags().GetDuration("debounce")
	out := cmd.OutOrStdout()
	status := newConsole(cmd.ErrOrStderr())

	handle := func(ctx context.Context, path string) {
		decodeFile(ctx, engine, sess, path, out, status)
	}
	w, err := newFileWatcher(args[0], debounce, sess.logger, handle)
	if err != nil {
		return err
	}

	status.Heading("👀 protodec - Watching " + args[0])
	status.Muted("mode=%s, press Ctrl+C to stop", engine.Config().Mode)

	if err := w.Run(ctx); err != nil {
		return err
	}
	printStats(status, engine.Stats())
	return nil
}

// decodeFile reads one file as captures and prints each result. Content the
// engine has already decoded is skipped, so rewrites that change nothing stay quiet.
func decodeFile(ctx context.Context, engine *core.Engine, sess *session, path string, out io.Writer, status *console) {
	cfg := sess.cfg.Capture
	caps, err := capture.NewFileSource(path, cfg.Format, cfg.Timeout, cfg.MaxSize).Fetch(ctx)
	if err != nil {
		status.Fail("%s: %v", path, err)
		return
	}
	for _, c := range caps {
		if prev := engine.Seen(c.Digest); prev != nil {
			status.Muted("%s: same content as %s, skipped", c.Origin, prev.Origin)
			continue
		}
		sess.logger.LogCapture(c.ID.String(), c.Source, c.Size(), map[string]interface{}{"origin": c.Origin})
		r, err := engine.Process(ctx, c, "")
		if err != nil {
			return
		}
		if r.Err != nil {
			status.Fail("%s: %s", r.Origin, r.Error)
			continue
		}
		fmt.Fprintf(out, "# %s\n", r.Origin)
		fmt.Fprint(out, r.Dump)
	}
}
