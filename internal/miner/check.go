package miner

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/zhzsx/creepMiner/internal/metrics"
)

const (
	checkResultOK      = "ok"
	checkResultCorrupt = "corrupt"
	checkResultError   = "error"
)

// CheckPlotfile triggers a background integrity check of one plot file. The
// path must name an enumerated plot file; the check itself never blocks the
// caller and its result is broadcast.
func (m *Miner) CheckPlotfile(path string) error {
	var target *PlotFile
	m.mu.RLock()
	for i := range m.plotFiles {
		if m.plotFiles[i].Path == path {
			target = &m.plotFiles[i]
			break
		}
	}
	m.mu.RUnlock()

	if target == nil {
		return fmt.Errorf("unknown plot file %q", path)
	}

	plot := *target
	m.jobs.Add(1)
	go func() {
		defer m.jobs.Done()
		m.checkOne(plot)
	}()
	return nil
}

// CheckAllPlotfiles triggers a background integrity check of every
// enumerated plot file.
func (m *Miner) CheckAllPlotfiles() {
	plots := m.PlotFiles()

	m.jobs.Add(1)
	go func() {
		defer m.jobs.Done()
		for _, plot := range plots {
			m.checkOne(plot)
		}
		m.broadcast(map[string]any{"type": "plotcheck-finished", "checked": len(plots)})
	}()
}

// checkOne runs the structural integrity check for a single plot file:
// the on-disk size must match the nonce count and both ends of the file must
// be readable. Scoop-level verification belongs to the mining process.
func (m *Miner) checkOne(plot PlotFile) {
	result := verifyPlot(plot)

	metrics.PlotChecksTotal.WithLabelValues(result).Inc()
	slog.Info("Plot check finished", "path", plot.Path, "result", result)
	m.broadcast(map[string]any{
		"type":   "plotcheck",
		"path":   plot.Path,
		"result": result,
	})
}

func verifyPlot(plot PlotFile) string {
	info, err := os.Stat(plot.Path)
	if err != nil {
		return checkResultError
	}
	if info.Size() != plot.ExpectedSize() {
		return checkResultCorrupt
	}

	f, err := os.Open(plot.Path)
	if err != nil {
		return checkResultError
	}
	defer f.Close()

	// Probe the first and last nonce-sized block for readability.
	buf := make([]byte, 4096)
	if _, err := f.ReadAt(buf, 0); err != nil && err != io.EOF {
		return checkResultCorrupt
	}
	if info.Size() > int64(len(buf)) {
		if _, err := f.ReadAt(buf, info.Size()-int64(len(buf))); err != nil && err != io.EOF {
			return checkResultCorrupt
		}
	}
	return checkResultOK
}
