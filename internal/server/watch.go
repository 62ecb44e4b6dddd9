package server

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/inkpot/weave/internal/parser"
)

// Watch rebuilds the book when chapter sources or the config file
// change. Events are debounced so an editor's save burst triggers a
// single rebuild. Blocks until ctx is done.
func Watch(ctx context.Context, sourceDir, cfgPath string, debounce time.Duration, log *slog.Logger, rebuild func(context.Context)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(sourceDir); err != nil {
		return fmt.Errorf("watch %s: %w", sourceDir, err)
	}
	// The config usually lives outside the source dir.
	if dir := filepath.Dir(cfgPath); dir != filepath.Clean(sourceDir) {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	cfgName := filepath.Base(cfgPath)

	log.Info("watching for changes", "dir", sourceDir, "config", cfgPath)

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !relevant(ev, cfgName) {
				continue
			}
			log.Debug("source changed", "file", ev.Name, "op", ev.Op.String())
			if pending && !timer.Stop() {
				<-timer.C
			}
			timer.Reset(debounce)
			pending = true

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", "error", err)

		case <-timer.C:
			pending = false
			rebuild(ctx)
		}
	}
}

// relevant filters watcher noise down to chapter edits and config changes.
func relevant(ev fsnotify.Event, cfgName string) bool {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return parser.IsChapterFile(ev.Name) || filepath.Base(ev.Name) == cfgName
}
