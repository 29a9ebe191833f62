package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/zhzsx/creepMiner/internal/config"
	"github.com/zhzsx/creepMiner/internal/forward"
	"github.com/zhzsx/creepMiner/internal/hub"
	"github.com/zhzsx/creepMiner/internal/miner"
	"github.com/zhzsx/creepMiner/internal/platform/logging"
	"github.com/zhzsx/creepMiner/internal/session"
	"github.com/zhzsx/creepMiner/internal/webserver"
)

// exitRestart tells the process supervisor (systemd unit, wrapper script) to
// relaunch the miner instead of letting it stay down.
const exitRestart = 10

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupSessions(cfg *config.Config, clock clockwork.Clock) session.Store {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := session.NewStore(ctx, cfg.RedisURL, cfg.SessionTTL, clock)
	if err != nil {
		slog.Error("Failed to create session store", "error", err)
		os.Exit(1)
	}
	return store
}

// runShutdownListener waits for either an OS signal or a stop request issued
// through the web UI and drains everything in order.
func runShutdownListener(
	srv *webserver.Server,
	h *hub.Hub,
	m *miner.Miner,
	sessions session.Store,
	stopCh <-chan webserver.StopRequest,
) <-chan webserver.StopRequest {
	done := make(chan webserver.StopRequest, 1)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		var req webserver.StopRequest
		select {
		case <-sigChan:
			slog.Info("Shutdown signal received, cleaning up...")
		case req = <-stopCh:
			slog.Info("Stop requested via web UI", "restart", req.Restart)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		h.Stop()
		m.Close()
		if err := sessions.Close(); err != nil {
			slog.Error("Failed to close session store", "error", err)
		}

		done <- req
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.Init(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	sessions := setupSessions(cfg, clock)

	h := hub.New(cfg.MaxWebSocketConnections)

	m := miner.New(cfg.PlotDirList(), h)
	if err := m.StartWatching(); err != nil {
		slog.Error("Failed to watch plot directories", "error", err)
		os.Exit(1)
	}

	forwarder, err := forward.New(forward.Upstreams{
		Pool:       cfg.PoolURL,
		Wallet:     cfg.WalletURL,
		MiningInfo: cfg.MiningInfoURL,
	})
	if err != nil {
		slog.Error("Failed to create forwarder", "error", err)
		os.Exit(1)
	}

	m.StartPolling(cfg.MiningInfoPollInterval, forwarder.FetchMiningInfo)

	stopCh := make(chan webserver.StopRequest, 1)
	srv := webserver.New(cfg, config.NewSettings(cfg), sessions, h, m, forwarder, stopCh)

	done := runShutdownListener(srv, h, m, sessions, stopCh)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	req := <-done
	if req.Restart {
		slog.Info("Exiting for relaunch")
		os.Exit(exitRestart)
	}
	slog.Info("Shutdown complete")
}
