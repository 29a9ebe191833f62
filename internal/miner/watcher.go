package miner

import (
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const rescanDebounce = 2 * time.Second

// dirWatcher watches plot directories and schedules a debounced rescan when
// files appear or disappear. A burst of events (a plotter writing many files)
// collapses into one rescan.
type dirWatcher struct {
	miner   *Miner
	watcher *fsnotify.Watcher

	mu    sync.Mutex
	timer *time.Timer

	done      chan struct{}
	closeOnce sync.Once
}

func newDirWatcher(m *Miner) (*dirWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &dirWatcher{
		miner:   m,
		watcher: fsw,
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *dirWatcher) watch(dir string) {
	if err := w.watcher.Add(dir); err != nil {
		slog.Warn("Failed to watch plot directory", "dir", dir, "error", err)
	}
}

func (w *dirWatcher) unwatch(dir string) {
	if err := w.watcher.Remove(dir); err != nil {
		slog.Debug("Failed to unwatch plot directory", "dir", dir, "error", err)
	}
}

func (w *dirWatcher) run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.scheduleRescan()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("Plot directory watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

func (w *dirWatcher) scheduleRescan() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(rescanDebounce, func() {
		slog.Info("Plot directory changed, rescanning")
		w.miner.RescanPlotfiles()
	})
}

func (w *dirWatcher) close() {
	w.closeOnce.Do(func() {
		close(w.done)
		_ = w.watcher.Close()

		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
	})
}
