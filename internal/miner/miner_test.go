package miner

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureBroadcaster records broadcast payloads on a channel.
type captureBroadcaster struct {
	payloads chan map[string]any
}

func newCaptureBroadcaster() *captureBroadcaster {
	return &captureBroadcaster{payloads: make(chan map[string]any, 64)}
}

func (b *captureBroadcaster) Broadcast(payload []byte) {
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return
	}
	b.payloads <- decoded
}

// next waits for the next payload of the given type, skipping others.
func (b *captureBroadcaster) next(t *testing.T, payloadType string) map[string]any {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case payload := <-b.payloads:
			if payload["type"] == payloadType {
				return payload
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q broadcast", payloadType)
			return nil
		}
	}
}

// writePlot creates a well-formed plot file with the canonical name.
func writePlot(t *testing.T, dir, name string, size int64) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	return path
}

func TestParsePlotFileName(t *testing.T) {
	plot, err := parsePlotFileName("/plots/12345_0_8192_4096")
	require.NoError(t, err)
	assert.Equal(t, uint64(12345), plot.AccountID)
	assert.Equal(t, uint64(0), plot.StartNonce)
	assert.Equal(t, uint64(8192), plot.Nonces)
	assert.Equal(t, uint64(4096), plot.Stagger)

	for _, name := range []string{"readme.txt", "1_2_3", "1_2_3_4_5", "a_b_c_d"} {
		_, err := parsePlotFileName(name)
		assert.Error(t, err, "name %q must not parse", name)
	}
}

func TestNew_EnumeratesPlotfiles(t *testing.T) {
	dir := t.TempDir()
	writePlot(t, dir, "111_0_1_1", nonceSize)
	writePlot(t, dir, "111_1_1_1", nonceSize)
	writePlot(t, dir, "notes.txt", 10) // skipped

	m := New([]string{dir}, nil)
	defer m.Close()

	files := m.PlotFiles()
	assert.Len(t, files, 2)
}

func TestRescanPlotfiles_Broadcasts(t *testing.T) {
	dir := t.TempDir()
	writePlot(t, dir, "111_0_1_1", nonceSize)

	b := newCaptureBroadcaster()
	m := New([]string{dir}, b)
	defer m.Close()

	// Initial synchronous scan already broadcast once.
	b.next(t, "plotdirs-rescan")

	writePlot(t, dir, "111_1_1_1", nonceSize)
	m.RescanPlotfiles()

	payload := b.next(t, "plotdirs-rescan")
	assert.Equal(t, float64(2), payload["plotfiles"])
}

func TestAddAndRemovePlotDir(t *testing.T) {
	dir1 := t.TempDir()
	dir2 := t.TempDir()
	writePlot(t, dir2, "222_0_1_1", nonceSize)

	b := newCaptureBroadcaster()
	m := New([]string{dir1}, b)
	defer m.Close()

	require.NoError(t, m.AddPlotDir(dir2))
	payload := b.next(t, "plotdirs-changed")
	assert.Len(t, payload["plotDirs"], 2)

	// Duplicate and bogus directories are rejected.
	assert.Error(t, m.AddPlotDir(dir2))
	assert.Error(t, m.AddPlotDir(filepath.Join(dir1, "missing")))

	require.NoError(t, m.RemovePlotDir(dir2))
	payload = b.next(t, "plotdirs-changed")
	assert.Len(t, payload["plotDirs"], 1)

	assert.Error(t, m.RemovePlotDir(dir2))
}

func TestCheckPlotfile(t *testing.T) {
	dir := t.TempDir()
	okPath := writePlot(t, dir, "111_0_1_1", nonceSize)
	corruptPath := writePlot(t, dir, "111_1_1_1", nonceSize-100)

	b := newCaptureBroadcaster()
	m := New([]string{dir}, b)
	defer m.Close()

	require.NoError(t, m.CheckPlotfile(okPath))
	payload := b.next(t, "plotcheck")
	assert.Equal(t, okPath, payload["path"])
	assert.Equal(t, "ok", payload["result"])

	require.NoError(t, m.CheckPlotfile(corruptPath))
	payload = b.next(t, "plotcheck")
	assert.Equal(t, "corrupt", payload["result"])

	assert.Error(t, m.CheckPlotfile("/nowhere/1_2_3_4"))
}

func TestCheckAllPlotfiles(t *testing.T) {
	dir := t.TempDir()
	writePlot(t, dir, "111_0_1_1", nonceSize)
	writePlot(t, dir, "111_1_1_1", nonceSize)

	b := newCaptureBroadcaster()
	m := New([]string{dir}, b)
	defer m.Close()

	m.CheckAllPlotfiles()

	payload := b.next(t, "plotcheck-finished")
	assert.Equal(t, float64(2), payload["checked"])
}

func TestMiningInfoCache(t *testing.T) {
	b := newCaptureBroadcaster()
	m := New(nil, b)
	defer m.Close()

	info := MiningInfo{
		Height:              123456,
		BaseTarget:          70000,
		GenerationSignature: "abcdef",
		TargetDeadline:      86400,
	}
	m.SetMiningInfo(info)

	assert.Equal(t, info, m.MiningInfo())
	b.next(t, "new block")
}

func TestSetMiningInfo_BroadcastsOnlyOnChange(t *testing.T) {
	b := newCaptureBroadcaster()
	m := New(nil, b)
	defer m.Close()

	info := MiningInfo{Height: 1, BaseTarget: 70000}
	m.SetMiningInfo(info)
	b.next(t, "new block")

	// The same block again must stay silent.
	m.SetMiningInfo(info)
	select {
	case payload := <-b.payloads:
		t.Fatalf("unexpected broadcast for unchanged mining info: %v", payload)
	case <-time.After(200 * time.Millisecond):
	}

	m.SetMiningInfo(MiningInfo{Height: 2, BaseTarget: 70000})
	payload := b.next(t, "new block")
	assert.Equal(t, float64(2), payload["miningInfo"].(map[string]any)["height"])
}

func TestStartPolling_UpdatesCacheAndBroadcastsNewBlocks(t *testing.T) {
	b := newCaptureBroadcaster()
	m := New(nil, b)
	defer m.Close()

	var mu sync.Mutex
	height := uint64(100)
	fetch := func(ctx context.Context) (MiningInfo, error) {
		mu.Lock()
		defer mu.Unlock()
		return MiningInfo{Height: height, BaseTarget: 70000}, nil
	}

	m.StartPolling(10*time.Millisecond, fetch)

	b.next(t, "new block")
	assert.Equal(t, uint64(100), m.MiningInfo().Height)

	mu.Lock()
	height = 101
	mu.Unlock()

	payload := b.next(t, "new block")
	assert.Equal(t, float64(101), payload["miningInfo"].(map[string]any)["height"])
}

func TestStartPolling_KeepsCacheOnFetchFailure(t *testing.T) {
	b := newCaptureBroadcaster()
	m := New(nil, b)
	defer m.Close()

	m.SetMiningInfo(MiningInfo{Height: 5})
	b.next(t, "new block")

	m.StartPolling(10*time.Millisecond, func(ctx context.Context) (MiningInfo, error) {
		return MiningInfo{}, errors.New("upstream down")
	})

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, uint64(5), m.MiningInfo().Height)
}

func TestWatcher_AutoRescanOnNewPlot(t *testing.T) {
	dir := t.TempDir()

	b := newCaptureBroadcaster()
	m := New([]string{dir}, b)
	defer m.Close()
	require.NoError(t, m.StartWatching())

	b.next(t, "plotdirs-rescan") // initial scan

	writePlot(t, dir, "333_0_1_1", nonceSize)

	// Debounce is 2s; the watcher-triggered rescan lands after that.
	payload := b.next(t, "plotdirs-rescan")
	assert.Equal(t, float64(1), payload["plotfiles"])
}
