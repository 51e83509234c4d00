// Package watch re-runs the build when one of its inputs changes.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/adnsv/go-utils/fs"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/adnsv/latexmlsuite/logfields"
	"github.com/adnsv/latexmlsuite/model"
)

const DefaultDebounce = 500 * time.Millisecond

// RunFunc performs one build.
type RunFunc func(ctx context.Context) error

// Watcher watches a set of files and directories. Events on a watched file,
// or on any entry of a watched directory, schedule a run once no further
// event arrived for Debounce. Runs never overlap; file events that arrive
// while a run is in progress are folded into a single follow-up run.
//
// Directory entries change while the build runs its scripts in them, so
// directory events during a run, and for Debounce after it, are dropped.
type Watcher struct {
	Debounce time.Duration
	Logger   *slog.Logger

	files map[string]bool
	dirs  map[string]bool

	mu       sync.Mutex
	building bool
	builtAt  time.Time
}

// New creates a Watcher for absolute paths. Paths that are directories are
// watched as a whole, anything else as a single file.
func New(paths []string, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Watcher{
		Debounce: DefaultDebounce,
		Logger:   logger,
		files:    map[string]bool{},
		dirs:     map[string]bool{},
	}
	for _, p := range paths {
		p = filepath.Clean(p)
		if fs.DirExists(p) {
			w.dirs[p] = true
		} else {
			w.files[p] = true
		}
	}
	return w
}

// Targets lists the build inputs of cfg: the main document, the
// bibliography and the auxiliary script directories.
func Targets(cfg *model.BuildConfig) []string {
	out := []string{cfg.Abs(cfg.MainFile)}
	if cfg.Bibliography != "" {
		out = append(out, cfg.Abs(cfg.Bibliography))
	}
	if cfg.RunScripts {
		for _, d := range cfg.ScriptDirs {
			out = append(out, cfg.Abs(d))
		}
	}
	return out
}

// Run watches until ctx is cancelled, calling run after every settled burst
// of changes. A failing run is logged and watching continues.
func (w *Watcher) Run(ctx context.Context, run RunFunc) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create file watcher")
	}
	defer fw.Close()

	// files are watched through their parent directory
	added := map[string]bool{}
	add := func(dir string) error {
		if added[dir] {
			return nil
		}
		added[dir] = true
		return errors.Wrapf(fw.Add(dir), "watch %s", dir)
	}
	for f := range w.files {
		if err := add(filepath.Dir(f)); err != nil {
			return err
		}
	}
	for d := range w.dirs {
		if err := add(d); err != nil {
			return err
		}
	}
	w.Logger.Info("watching for changes", "paths", len(w.files)+len(w.dirs))
	return w.loop(ctx, fw.Events, fw.Errors, run)
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Clean(ev.Name)
	return w.files[name] || w.dirs[filepath.Dir(name)]
}

func (w *Watcher) setBuilding(b bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.building = b
	if !b {
		w.builtAt = time.Now()
	}
}

// buildOutput reports whether an event on name is likely written by the
// build itself: an entry of a watched directory during or right after a run.
func (w *Watcher) buildOutput(name string) bool {
	name = filepath.Clean(name)
	if w.files[name] || !w.dirs[filepath.Dir(name)] {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.building || time.Since(w.builtAt) < w.Debounce
}

func (w *Watcher) loop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error, run RunFunc) error {
	ctx, cancel := context.WithCancel(ctx)
	requests := make(chan struct{}, 1)
	done := make(chan struct{})
	defer func() {
		cancel()
		<-done
	}()

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-requests:
				w.Logger.Info("change detected, rebuilding")
				w.setBuilding(true)
				err := run(ctx)
				w.setBuilding(false)
				if err != nil && ctx.Err() == nil {
					w.Logger.Error("rebuild failed", logfields.Error(err))
				}
			}
		}
	}()

	var settle <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			if w.buildOutput(ev.Name) {
				w.Logger.Debug("ignoring build output", logfields.Path(ev.Name))
				continue
			}
			w.Logger.Debug("file changed", logfields.Path(ev.Name), "op", ev.Op.String())
			settle = time.After(w.Debounce)
		case <-settle:
			settle = nil
			select {
			case requests <- struct{}{}:
			default:
			}
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			w.Logger.Warn("watcher error", logfields.Error(err))
		}
	}
}
