// Package watch re-runs the pipeline when source files change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/assetrev/internal/logfields"
)

// TriggerFunc is called after a quiet period with the changed paths, sorted.
type TriggerFunc func(ctx context.Context, changed []string) error

// Watcher monitors directory trees and calls a trigger once changes settle.
type Watcher struct {
	roots    []string
	ignore   []string
	debounce time.Duration
	trigger  TriggerFunc
	watcher  *fsnotify.Watcher
}

// Option customizes a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before the trigger fires.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithIgnore skips events below the given paths (e.g. the dist directory).
func WithIgnore(paths ...string) Option {
	return func(w *Watcher) {
		for _, p := range paths {
			if abs, err := filepath.Abs(p); err == nil {
				w.ignore = append(w.ignore, abs)
			}
		}
	}
}

// New creates a watcher for roots. Missing roots are skipped; files may be
// given as roots too (their directory is watched and events filtered).
func New(roots []string, trigger TriggerFunc, opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w := &Watcher{debounce: 300 * time.Millisecond, trigger: trigger, watcher: fw}
	for _, opt := range opts {
		opt(w)
	}
	for _, r := range roots {
		abs, err := filepath.Abs(r)
		if err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("failed to resolve %s: %w", r, err)
		}
		w.roots = append(w.roots, abs)
	}
	return w, nil
}

// Run watches until ctx is done. Trigger errors are logged and watching
// continues.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.watcher.Close() }()
	for _, root := range w.roots {
		if err := w.add(root); err != nil {
			return err
		}
	}
	slog.Info("Watching for changes", slog.Any("roots", w.roots))

	pending := make(map[string]struct{})
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.add(event.Name); err != nil {
						slog.Warn("Cannot watch new directory", logfields.Path(event.Name), logfields.Error(err))
					}
				}
			}
			slog.Debug("Change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))
			pending[event.Name] = struct{}{}
			timer.Reset(w.debounce)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("Watcher error", logfields.Error(err))
		case <-timer.C:
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			clear(pending)
			if err := w.trigger(ctx, changed); err != nil && ctx.Err() == nil {
				slog.Error("Rebuild failed", logfields.Error(err), logfields.Files(len(changed)))
			}
		}
	}
}

// add watches dir and every directory below it. A file root watches its
// parent directory.
func (w *Watcher) add(root string) error {
	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return w.watcher.Add(filepath.Dir(root))
	}
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && (strings.HasPrefix(d.Name(), ".") || w.ignored(p)) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
		return nil
	})
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	if w.ignored(event.Name) {
		return false
	}
	for _, root := range w.roots {
		if event.Name == root || strings.HasPrefix(event.Name, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) ignored(p string) bool {
	for _, ig := range w.ignore {
		if p == ig || strings.HasPrefix(p, ig+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
