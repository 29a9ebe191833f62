package webserver

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "github.com/zhzsx/creepMiner/internal/errors"
	"github.com/zhzsx/creepMiner/internal/forward"
	"github.com/zhzsx/creepMiner/internal/metrics"
	"github.com/zhzsx/creepMiner/internal/platform/version"
)

func (s *Server) handleRescanPlotfiles(c echo.Context) error {
	s.miner.RescanPlotfiles()
	metrics.ActionsTotal.WithLabelValues("rescanPlotfiles", "ok").Inc()

	// Acknowledge immediately; completion is broadcast on the push channel.
	return c.JSON(http.StatusOK, map[string]string{"status": "rescan started"})
}

func (s *Server) handleCheckPlotfile(c echo.Context) error {
	path := c.QueryParam("path")
	if path == "" {
		metrics.ActionsTotal.WithLabelValues("checkPlotfile", "bad_request").Inc()
		return apperrors.ValidationError("missing path parameter")
	}

	if err := s.miner.CheckPlotfile(path); err != nil {
		metrics.ActionsTotal.WithLabelValues("checkPlotfile", "not_found").Inc()
		return apperrors.NotFoundError("unknown plot file").WithField("path", path)
	}

	metrics.ActionsTotal.WithLabelValues("checkPlotfile", "ok").Inc()
	return c.JSON(http.StatusOK, map[string]string{"status": "check started", "path": path})
}

func (s *Server) handleCheckAllPlotfiles(c echo.Context) error {
	s.miner.CheckAllPlotfiles()
	metrics.ActionsTotal.WithLabelValues("checkAllPlotfiles", "ok").Inc()
	return c.JSON(http.StatusOK, map[string]string{"status": "check started"})
}

func (s *Server) handleChangeSettings(c echo.Context) error {
	form, err := c.FormParams()
	if err != nil {
		return apperrors.ValidationError("malformed form body")
	}
	if len(form) == 0 {
		return apperrors.ValidationError("no settings submitted")
	}

	changes := make(map[string]string, len(form))
	for key, values := range form {
		if len(values) > 0 {
			changes[key] = values[0]
		}
	}

	// All-or-nothing: the first violation rejects the whole batch.
	if err := s.settings.ChangeSettings(changes); err != nil {
		metrics.ActionsTotal.WithLabelValues("changeSettings", "bad_request").Inc()
		return apperrors.ValidationError(err.Error())
	}

	metrics.ActionsTotal.WithLabelValues("changeSettings", "ok").Inc()
	slog.InfoContext(c.Request().Context(), "Settings changed", "count", len(changes))
	return c.JSON(http.StatusOK, map[string]any{"status": "ok", "settings": s.settings.Snapshot()})
}

func (s *Server) handleAddPlotDir(c echo.Context) error {
	return s.changePlotDirs(c, false)
}

func (s *Server) handleRemovePlotDir(c echo.Context) error {
	return s.changePlotDirs(c, true)
}

func (s *Server) changePlotDirs(c echo.Context, remove bool) error {
	dir := c.FormValue("dir")
	if dir == "" {
		return apperrors.ValidationError("missing dir parameter")
	}

	action := "addPlotDir"
	var err error
	if remove {
		action = "removePlotDir"
		err = s.miner.RemovePlotDir(dir)
	} else {
		err = s.miner.AddPlotDir(dir)
	}
	if err != nil {
		metrics.ActionsTotal.WithLabelValues(action, "bad_request").Inc()
		return apperrors.ValidationError(err.Error()).WithField("dir", dir)
	}

	metrics.ActionsTotal.WithLabelValues(action, "ok").Inc()
	return c.JSON(http.StatusOK, map[string]any{"status": "ok", "plotDirs": s.miner.PlotDirs()})
}

func (s *Server) handleShutdown(c echo.Context) error {
	return s.stop(c, false)
}

func (s *Server) handleRestart(c echo.Context) error {
	return s.stop(c, true)
}

func (s *Server) stop(c echo.Context, restart bool) error {
	action := "shutdown"
	if restart {
		action = "restart"
	}
	slog.InfoContext(c.Request().Context(), "Stop requested via web UI", "action", action)
	metrics.ActionsTotal.WithLabelValues(action, "ok").Inc()

	// Answer first, then close the push channels and hand control to the
	// process owner. Only the first request wins; repeats are acknowledged
	// without signaling again.
	err := c.JSON(http.StatusOK, map[string]string{"status": action})

	s.stopOnce.Do(func() {
		go func() {
			s.hub.Stop()
			s.stopCh <- StopRequest{Restart: restart}
		}()
	})

	return err
}

func (s *Server) handleVersion(c echo.Context) error {
	return c.JSON(http.StatusOK, version.Get())
}

func (s *Server) handleOnlineVersion(c echo.Context) error {
	online := forward.FetchOnlineVersion(c.Request().Context(), s.config.VersionURL)
	return c.JSON(http.StatusOK, map[string]string{
		"running": version.Get().Version,
		"online":  online,
	})
}
