// Package miner holds the server's view of the mining process: the plot
// directory list, enumerated plot files, cached mining info, and the
// background rescan and integrity-check workers. Status changes are pushed
// to the web UI through a broadcaster.
package miner

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/zhzsx/creepMiner/internal/metrics"
)

// Broadcaster receives status-change payloads for fan-out to connected
// operator browsers.
type Broadcaster interface {
	Broadcast(payload []byte)
}

// MiningInfo is the cached upstream mining state. It is set by whoever polls
// the upstream and only ever read by handlers.
type MiningInfo struct {
	Height              uint64 `json:"height"`
	BaseTarget          uint64 `json:"baseTarget"`
	GenerationSignature string `json:"generationSignature"`
	TargetDeadline      uint64 `json:"targetDeadline"`
}

// Miner is the collaborator consumed by the web server's action handlers.
type Miner struct {
	broadcaster Broadcaster

	mu         sync.RWMutex
	plotDirs   []string
	plotFiles  []PlotFile
	miningInfo MiningInfo

	jobs     sync.WaitGroup
	watcher  *dirWatcher
	pollStop chan struct{}

	closeOnce sync.Once
}

// New creates a miner over the given plot directories and performs an
// initial synchronous enumeration.
func New(plotDirs []string, broadcaster Broadcaster) *Miner {
	m := &Miner{
		broadcaster: broadcaster,
		plotDirs:    append([]string(nil), plotDirs...),
	}
	m.rescan()
	return m
}

// StartWatching begins watching the plot directories for changes; a change
// schedules a debounced automatic rescan.
func (m *Miner) StartWatching() error {
	watcher, err := newDirWatcher(m)
	if err != nil {
		return err
	}
	m.watcher = watcher

	m.mu.RLock()
	dirs := append([]string(nil), m.plotDirs...)
	m.mu.RUnlock()

	for _, dir := range dirs {
		watcher.watch(dir)
	}
	return nil
}

// Close stops the watcher and the poll loop and waits for background jobs
// to finish.
func (m *Miner) Close() {
	m.closeOnce.Do(func() {
		if m.watcher != nil {
			m.watcher.close()
		}
		if m.pollStop != nil {
			close(m.pollStop)
		}
		m.jobs.Wait()
	})
}

// PlotDirs returns a copy of the current plot directory list.
func (m *Miner) PlotDirs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.plotDirs...)
}

// PlotFiles returns a copy of the enumerated plot files.
func (m *Miner) PlotFiles() []PlotFile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]PlotFile(nil), m.plotFiles...)
}

// MiningInfo returns the cached mining info. Never recomputed here.
func (m *Miner) MiningInfo() MiningInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.miningInfo
}

// SetMiningInfo replaces the cached mining info. Only a changed block is
// pushed, so a steady poll loop stays silent between blocks.
func (m *Miner) SetMiningInfo(info MiningInfo) {
	m.mu.Lock()
	changed := m.miningInfo != info
	m.miningInfo = info
	m.mu.Unlock()

	if changed {
		m.broadcast(map[string]any{"type": "new block", "miningInfo": info})
	}
}

// RescanPlotfiles triggers an asynchronous re-enumeration of all plot
// directories. It returns immediately; completion is broadcast.
func (m *Miner) RescanPlotfiles() {
	m.jobs.Add(1)
	go func() {
		defer m.jobs.Done()
		m.rescan()
	}()
}

// AddPlotDir adds a directory to the live configuration, triggers a rescan
// and broadcasts the configuration delta.
func (m *Miner) AddPlotDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%q is not a directory", dir)
	}

	m.mu.Lock()
	for _, existing := range m.plotDirs {
		if existing == dir {
			m.mu.Unlock()
			return fmt.Errorf("plot directory %q already configured", dir)
		}
	}
	m.plotDirs = append(m.plotDirs, dir)
	dirs := append([]string(nil), m.plotDirs...)
	m.mu.Unlock()

	if m.watcher != nil {
		m.watcher.watch(dir)
	}

	m.RescanPlotfiles()
	m.broadcast(map[string]any{"type": "plotdirs-changed", "plotDirs": dirs})
	return nil
}

// RemovePlotDir removes a directory from the live configuration, triggers a
// rescan and broadcasts the configuration delta.
func (m *Miner) RemovePlotDir(dir string) error {
	m.mu.Lock()
	idx := -1
	for i, existing := range m.plotDirs {
		if existing == dir {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.mu.Unlock()
		return fmt.Errorf("plot directory %q not configured", dir)
	}
	m.plotDirs = append(m.plotDirs[:idx], m.plotDirs[idx+1:]...)
	dirs := append([]string(nil), m.plotDirs...)
	m.mu.Unlock()

	if m.watcher != nil {
		m.watcher.unwatch(dir)
	}

	m.RescanPlotfiles()
	m.broadcast(map[string]any{"type": "plotdirs-changed", "plotDirs": dirs})
	return nil
}

// rescan enumerates every configured directory and replaces the plot file
// list. Synchronous; callers decide whether to run it on a worker.
func (m *Miner) rescan() {
	m.mu.RLock()
	dirs := append([]string(nil), m.plotDirs...)
	m.mu.RUnlock()

	var files []PlotFile
	var totalBytes int64
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			slog.Warn("Failed to read plot directory", "dir", dir, "error", err)
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			plot, err := parsePlotFileName(path)
			if err != nil {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			plot.Size = info.Size()
			files = append(files, plot)
			totalBytes += plot.Size
		}
	}

	m.mu.Lock()
	m.plotFiles = files
	m.mu.Unlock()

	metrics.PlotfilesTotal.Set(float64(len(files)))
	metrics.PlotRescansTotal.Inc()
	slog.Info("Plot rescan finished", "plotfiles", len(files), "totalBytes", totalBytes)

	m.broadcast(map[string]any{
		"type":       "plotdirs-rescan",
		"plotfiles":  len(files),
		"totalBytes": totalBytes,
	})
}

func (m *Miner) broadcast(payload map[string]any) {
	if m.broadcaster == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal broadcast payload", "error", err)
		return
	}
	m.broadcaster.Broadcast(data)
}
