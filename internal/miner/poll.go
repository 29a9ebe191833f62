package miner

import (
	"context"
	"log/slog"
	"time"
)

// FetchMiningInfo retrieves the current mining info from an upstream.
type FetchMiningInfo func(ctx context.Context) (MiningInfo, error)

// StartPolling fetches mining info on every tick and updates the cache; a
// changed block is pushed to the web UI through SetMiningInfo. Polling stops
// when the miner is closed.
func (m *Miner) StartPolling(interval time.Duration, fetch FetchMiningInfo) {
	m.pollStop = make(chan struct{})
	m.jobs.Add(1)

	go func() {
		defer m.jobs.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			m.pollOnce(interval, fetch)
			select {
			case <-ticker.C:
			case <-m.pollStop:
				return
			}
		}
	}()
}

func (m *Miner) pollOnce(timeout time.Duration, fetch FetchMiningInfo) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	info, err := fetch(ctx)
	if err != nil {
		slog.Warn("Mining info poll failed", "error", err)
		return
	}
	m.SetMiningInfo(info)
}
