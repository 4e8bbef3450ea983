// Package watch re-runs a callback when files under a directory tree change.
// Events are coalesced per path over a quiet period, and the callback runs on
// the event loop so that writes made by the callback itself are seen as new
// events and can be filtered out on the next round.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 300 * time.Millisecond

var defaultIgnores = []string{
	"**/.git/**",
	"**/build/**",
	"**/.gradle/**",
	"**/.idea/**",
	"**/*~",
	"**/*.swp",
}

var ErrRunning = errors.New("watch: Run called more than once")

type Config struct {
	// BaseDir is the root of the watched tree. Empty means the working
	// directory.
	BaseDir string
	// Ignore holds extra doublestar patterns, relative to BaseDir.
	Ignore   []string
	Debounce time.Duration
	// Filter is consulted when the quiet period ends, not when the event
	// arrives. Paths it rejects are dropped. Nil accepts everything.
	Filter func(path string) bool
	// OnChange receives absolute paths in lexical order.
	OnChange func(ctx context.Context, changed []string) error
	Logger   *log.Logger
}

type Watcher struct {
	cfg      Config
	fsw      *fsnotify.Watcher
	ignores  []string
	baseDir  string
	debounce time.Duration
	logger   *log.Logger
	started  atomic.Bool
}

func New(cfg Config) (*Watcher, error) {
	baseDir := cfg.BaseDir
	if baseDir == "" {
		baseDir = "."
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve %s: %w", baseDir, err)
	}
	st, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("watch: %s is not a directory", abs)
	}
	for _, pat := range cfg.Ignore {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("watch: invalid ignore pattern %q", pat)
		}
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}
	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		ignores:  append(slices.Clone(defaultIgnores), cfg.Ignore...),
		baseDir:  abs,
		debounce: debounce,
		logger:   logger,
	}
	if err := w.addTree(abs); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Dirs lists the directories currently watched.
func (w *Watcher) Dirs() []string {
	dirs := w.fsw.WatchList()
	slices.Sort(dirs)
	return dirs
}

// Run processes events until ctx is done and closes the watcher on return.
// It must be called once.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer w.fsw.Close()

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: event channel closed")
			}
			if !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Write) {
				continue
			}
			if w.ignored(evt.Name) {
				continue
			}
			if evt.Has(fsnotify.Create) {
				if st, err := os.Stat(evt.Name); err == nil && st.IsDir() {
					if err := w.addTree(evt.Name); err != nil {
						w.logger.Warn("cannot watch new directory", "dir", evt.Name, "err", err)
					}
					continue
				}
			}
			pending[evt.Name] = struct{}{}
			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: error channel closed")
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.logger.Warn("events dropped", "err", err)
				continue
			}
			return fmt.Errorf("watch: %w", err)

		case <-timer.C:
			w.fire(ctx, pending)
		}
	}
}

func (w *Watcher) fire(ctx context.Context, pending map[string]struct{}) {
	changed := make([]string, 0, len(pending))
	for path := range pending {
		if w.cfg.Filter == nil || w.cfg.Filter(path) {
			changed = append(changed, path)
		}
	}
	clear(pending)
	if len(changed) == 0 || w.cfg.OnChange == nil || ctx.Err() != nil {
		return
	}
	slices.Sort(changed)
	w.logger.Debug("change detected", "files", len(changed))
	if err := w.cfg.OnChange(ctx, changed); err != nil {
		w.logger.Error("callback failed", "err", err)
	}
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("skipping inaccessible path", "path", path, "err", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.baseDir && (w.ignored(path) || w.ignoredDir(path)) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) ignored(path string) bool {
	rel, err := filepath.Rel(w.baseDir, path)
	if err != nil {
		return false
	}
	return w.matchIgnore(filepath.ToSlash(rel))
}

func (w *Watcher) ignoredDir(path string) bool {
	rel, err := filepath.Rel(w.baseDir, path)
	if err != nil {
		return false
	}
	return w.matchIgnore(filepath.ToSlash(rel) + "/")
}

func (w *Watcher) matchIgnore(rel string) bool {
	for _, pat := range w.ignores {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}
