package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adnsv/latexmlsuite/model"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type harness struct {
	w      *Watcher
	events chan fsnotify.Event
	errs   chan error
	cancel context.CancelFunc
	done   chan error
}

func start(t *testing.T, w *Watcher, run RunFunc) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{
		w:      w,
		events: make(chan fsnotify.Event),
		errs:   make(chan error),
		cancel: cancel,
		done:   make(chan error, 1),
	}
	go func() { h.done <- w.loop(ctx, h.events, h.errs, run) }()
	t.Cleanup(func() {
		cancel()
		<-h.done
	})
	return h
}

func newTestWatcher(t *testing.T) (*Watcher, string, string) {
	dir := t.TempDir()
	main := filepath.Join(dir, "report.tex")
	require.NoError(t, os.WriteFile(main, []byte("x"), 0o644))
	figures := filepath.Join(dir, "figures")
	require.NoError(t, os.Mkdir(figures, 0o755))

	w := New([]string{main, figures}, quietLogger())
	w.Debounce = 20 * time.Millisecond
	return w, main, figures
}

func TestNewClassifiesPaths(t *testing.T) {
	w, main, figures := newTestWatcher(t)
	assert.True(t, w.files[main])
	assert.True(t, w.dirs[figures])

	missing := filepath.Join(filepath.Dir(main), "refs.bib")
	w = New([]string{missing}, nil)
	assert.True(t, w.files[missing])
	assert.Equal(t, DefaultDebounce, w.Debounce)
}

func TestRelevant(t *testing.T) {
	w, main, figures := newTestWatcher(t)
	dir := filepath.Dir(main)

	tests := []struct {
		name string
		ev   fsnotify.Event
		want bool
	}{
		{"main written", fsnotify.Event{Name: main, Op: fsnotify.Write}, true},
		{"main replaced", fsnotify.Event{Name: main, Op: fsnotify.Rename}, true},
		{"main chmod", fsnotify.Event{Name: main, Op: fsnotify.Chmod}, false},
		{"main removed", fsnotify.Event{Name: main, Op: fsnotify.Remove}, false},
		{"sibling written", fsnotify.Event{Name: filepath.Join(dir, "notes.txt"), Op: fsnotify.Write}, false},
		{"script dir entry", fsnotify.Event{Name: filepath.Join(figures, "plot.py"), Op: fsnotify.Create}, true},
		{"nested entry", fsnotify.Event{Name: filepath.Join(figures, "sub", "plot.py"), Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.relevant(tt.ev))
		})
	}
}

func TestBurstTriggersOneRun(t *testing.T) {
	w, main, _ := newTestWatcher(t)
	var runs atomic.Int32
	h := start(t, w, func(context.Context) error {
		runs.Add(1)
		return nil
	})

	for i := 0; i < 5; i++ {
		h.events <- fsnotify.Event{Name: main, Op: fsnotify.Write}
	}
	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(5 * w.Debounce)
	assert.Equal(t, int32(1), runs.Load())
}

func TestIrrelevantEventsAreIgnored(t *testing.T) {
	w, main, _ := newTestWatcher(t)
	var runs atomic.Int32
	h := start(t, w, func(context.Context) error {
		runs.Add(1)
		return nil
	})

	h.events <- fsnotify.Event{Name: filepath.Join(filepath.Dir(main), "other.tex"), Op: fsnotify.Write}
	h.errs <- os.ErrClosed
	time.Sleep(5 * w.Debounce)
	assert.Zero(t, runs.Load())
}

func TestChangesDuringRunCoalesce(t *testing.T) {
	w, main, _ := newTestWatcher(t)
	var runs atomic.Int32
	started := make(chan struct{}, 10)
	release := make(chan struct{})
	h := start(t, w, func(ctx context.Context) error {
		runs.Add(1)
		started <- struct{}{}
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	})

	h.events <- fsnotify.Event{Name: main, Op: fsnotify.Write}
	<-started

	// three settled bursts while the first run is blocked
	for i := 0; i < 3; i++ {
		h.events <- fsnotify.Event{Name: main, Op: fsnotify.Write}
		time.Sleep(3 * w.Debounce)
	}
	close(release)

	assert.Eventually(t, func() bool { return runs.Load() == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(5 * w.Debounce)
	assert.Equal(t, int32(2), runs.Load())
}

func TestScriptOutputDoesNotRetrigger(t *testing.T) {
	w, _, figures := newTestWatcher(t)
	plot := fsnotify.Event{Name: filepath.Join(figures, "plot.pdf"), Op: fsnotify.Create}
	var runs atomic.Int32
	started := make(chan struct{}, 10)
	release := make(chan struct{})
	finished := make(chan struct{}, 10)
	h := start(t, w, func(ctx context.Context) error {
		runs.Add(1)
		started <- struct{}{}
		select {
		case <-release:
		case <-ctx.Done():
		}
		finished <- struct{}{}
		return nil
	})

	h.events <- fsnotify.Event{Name: filepath.Join(figures, "plot.py"), Op: fsnotify.Write}
	<-started

	// make writing into the script directory during the run
	h.events <- plot
	close(release)
	<-finished
	// and its late events right after the run
	h.events <- plot

	time.Sleep(5 * w.Debounce)
	assert.Equal(t, int32(1), runs.Load())

	// a later edit in the directory is a real change
	h.events <- fsnotify.Event{Name: filepath.Join(figures, "plot.py"), Op: fsnotify.Write}
	assert.Eventually(t, func() bool { return runs.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestBuildOutput(t *testing.T) {
	w, main, figures := newTestWatcher(t)
	entry := filepath.Join(figures, "plot.pdf")
	assert.False(t, w.buildOutput(entry))

	w.setBuilding(true)
	assert.True(t, w.buildOutput(entry))
	assert.False(t, w.buildOutput(main))

	w.setBuilding(false)
	assert.True(t, w.buildOutput(entry))
	w.mu.Lock()
	w.builtAt = time.Now().Add(-2 * w.Debounce)
	w.mu.Unlock()
	assert.False(t, w.buildOutput(entry))
}

func TestFailedRunKeepsWatching(t *testing.T) {
	w, main, _ := newTestWatcher(t)
	var runs atomic.Int32
	h := start(t, w, func(context.Context) error {
		runs.Add(1)
		return os.ErrNotExist
	})

	h.events <- fsnotify.Event{Name: main, Op: fsnotify.Write}
	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	h.events <- fsnotify.Event{Name: main, Op: fsnotify.Write}
	assert.Eventually(t, func() bool { return runs.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestCancelStops(t *testing.T) {
	w, _, _ := newTestWatcher(t)
	h := start(t, w, func(context.Context) error { return nil })

	h.cancel()
	select {
	case err := <-h.done:
		assert.NoError(t, err)
		h.done <- err
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestRunWithFilesystem(t *testing.T) {
	w, main, _ := newTestWatcher(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(context.Context) error {
			runs.Add(1)
			return nil
		})
	}()

	// the watch is registered asynchronously; keep touching until noticed
	assert.Eventually(t, func() bool {
		_ = os.WriteFile(main, []byte(time.Now().String()), 0o644)
		return runs.Load() > 0
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestTargets(t *testing.T) {
	dir := t.TempDir()
	s := &model.Settings{
		General:   model.GeneralSettings{LatexMain: "report", BibtexFile: "refs.bib"},
		Makefiles: []string{"figures"},
	}
	cfg, err := model.NewBuildConfig(dir, s, model.Options{RunScripts: true})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "report.tex"),
		filepath.Join(dir, "refs.bib"),
		filepath.Join(dir, "figures"),
	}, Targets(cfg))

	cfg, err = model.NewBuildConfig(dir, s, model.Options{})
	require.NoError(t, err)
	assert.Len(t, Targets(cfg), 2)
}
