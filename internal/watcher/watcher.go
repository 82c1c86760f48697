// Package watcher re-runs the transform when bundles in a dist directory
// change on disk.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/DeusData/lazycode/internal/discover"
)

const (
	baseInterval = 1 * time.Second
	maxInterval  = 60 * time.Second
	debounce     = 100 * time.Millisecond
)

type fileSnapshot struct {
	modTime time.Time
	size    int64
}

// TransformFunc is called with the absolute path of each changed bundle.
type TransformFunc func(ctx context.Context, path string) error

// Watcher polls the bundles discover selects under a dist directory. The
// poll interval doubles while nothing changes and resets on change.
type Watcher struct {
	distDir  string
	opts     *discover.Options
	fn       TransformFunc
	base     time.Duration
	max      time.Duration
	interval time.Duration
	snapshot map[string]fileSnapshot // keyed by absolute path
}

// New creates a Watcher for distDir. opts selects the bundles as in a build.
func New(distDir string, opts *discover.Options, fn TransformFunc) *Watcher {
	return &Watcher{
		distDir:  distDir,
		opts:     opts,
		fn:       fn,
		base:     baseInterval,
		max:      maxInterval,
		interval: baseInterval,
	}
}

// SetIntervals overrides the base and maximum poll intervals.
func (w *Watcher) SetIntervals(base, limit time.Duration) {
	if base <= 0 || limit < base {
		return
	}
	w.base, w.max, w.interval = base, limit, base
}

// Interval returns the delay before the next poll.
func (w *Watcher) Interval() time.Duration { return w.interval }

// Run blocks until ctx is cancelled. The first poll records a baseline and
// transforms nothing. When filesystem notifications are available, a write
// under the dist directory schedules a poll after a short debounce instead of
// waiting for the interval.
func (w *Watcher) Run(ctx context.Context) {
	slog.Info("watcher.start", "dir", w.distDir, "interval", w.interval)
	w.Poll(ctx)

	var events <-chan fsnotify.Event
	var errs <-chan error
	if fsw, err := newNotifier(w.distDir); err != nil {
		slog.Debug("watcher.notify.unavailable", "err", err)
	} else {
		defer fsw.Close()
		events, errs = fsw.Events, fsw.Errors
	}

	timer := time.NewTimer(w.interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("watcher.stop", "dir", w.distDir)
			return
		case <-timer.C:
			w.Poll(ctx)
			timer.Reset(w.interval)
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			timer.Reset(debounce)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			slog.Warn("watcher.notify", "err", err)
		}
	}
}

// newNotifier watches distDir and its subdirectories, skipping the
// directories discovery ignores.
func newNotifier(distDir string) (*fsnotify.Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	err = filepath.WalkDir(distDir, func(p string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() {
			return nil
		}
		if p != distDir && discover.IgnoreDirs[d.Name()] {
			return filepath.SkipDir
		}
		return fsw.Add(p)
	})
	if err != nil {
		fsw.Close()
		return nil, err
	}
	return fsw, nil
}

// Poll takes one snapshot, calls the transform for every new or modified
// bundle, and adjusts the interval. It returns the number of bundles that
// changed.
func (w *Watcher) Poll(ctx context.Context) int {
	snap, err := captureSnapshot(ctx, w.distDir, w.opts)
	if err != nil {
		slog.Warn("watcher.snapshot", "dir", w.distDir, "err", err)
		w.backoff()
		return 0
	}

	if w.snapshot == nil {
		slog.Debug("watcher.baseline", "dir", w.distDir, "files", len(snap))
		w.snapshot = snap
		return 0
	}

	changed := changedPaths(w.snapshot, snap)
	next := make(map[string]fileSnapshot, len(snap))
	for p, s := range snap {
		next[p] = s
	}

	for _, p := range changed {
		if ctx.Err() != nil {
			break
		}
		slog.Info("watcher.changed", "path", p)
		if err := w.fn(ctx, p); err != nil {
			slog.Warn("watcher.transform", "path", p, "err", err)
			// Keep the old entry so the file is retried next cycle.
			if old, ok := w.snapshot[p]; ok {
				next[p] = old
			} else {
				delete(next, p)
			}
			continue
		}
		// The transform may rewrite the file in place; record its new state so
		// our own write does not count as a change.
		if s, ok := statSnapshot(p); ok {
			next[p] = s
		}
	}
	w.snapshot = next

	if len(changed) > 0 {
		w.interval = w.base
	} else {
		w.backoff()
	}
	return len(changed)
}

func (w *Watcher) backoff() {
	w.interval *= 2
	if w.interval > w.max {
		w.interval = w.max
	}
}

// captureSnapshot runs discovery and records mtime+size for each bundle.
func captureSnapshot(ctx context.Context, distDir string, opts *discover.Options) (map[string]fileSnapshot, error) {
	files, err := discover.Discover(ctx, distDir, opts)
	if err != nil {
		return nil, err
	}

	snap := make(map[string]fileSnapshot, len(files))
	for _, f := range files {
		if s, ok := statSnapshot(f.Path); ok {
			snap[f.Path] = s
		}
	}
	return snap, nil
}

func statSnapshot(path string) (fileSnapshot, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return fileSnapshot{}, false
	}
	return fileSnapshot{modTime: info.ModTime(), size: info.Size()}, true
}

// changedPaths returns the paths in cur that are new or differ from prev, in
// sorted order. Removed files are not reported.
func changedPaths(prev, cur map[string]fileSnapshot) []string {
	var out []string
	for path, c := range cur {
		p, ok := prev[path]
		if !ok || !p.modTime.Equal(c.modTime) || p.size != c.size {
			out = append(out, path)
		}
	}
	slices.Sort(out)
	return out
}
