package webserver

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/zhzsx/creepMiner/internal/assets"
	"github.com/zhzsx/creepMiner/internal/config"
	apperrors "github.com/zhzsx/creepMiner/internal/errors"
	"github.com/zhzsx/creepMiner/internal/forward"
	"github.com/zhzsx/creepMiner/internal/hub"
	"github.com/zhzsx/creepMiner/internal/miner"
	"github.com/zhzsx/creepMiner/internal/platform/correlation"
	"github.com/zhzsx/creepMiner/internal/platform/version"
	"github.com/zhzsx/creepMiner/internal/session"
	"github.com/zhzsx/creepMiner/internal/webtemplate"
)

// StopRequest asks the process owner to stop or relaunch the process after
// the server has drained.
type StopRequest struct {
	Restart bool
}

type Server struct {
	echo      *echo.Echo
	config    *config.Config
	settings  *config.Settings
	creds     session.Credentials
	sessions  session.Store
	loader    *assets.Loader
	hub       *hub.Hub
	miner     *miner.Miner
	forwarder *forward.Forwarder
	stopCh    chan<- StopRequest
	stopOnce  sync.Once
}

// New wires the server. stopCh receives shutdown/restart requests issued by
// the corresponding control actions.
func New(
	cfg *config.Config,
	settings *config.Settings,
	sessions session.Store,
	h *hub.Hub,
	m *miner.Miner,
	f *forward.Forwarder,
	stopCh chan<- StopRequest,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(correlationMiddleware())
	e.Use(middleware.Logger())
	e.Use(apperrors.Middleware())

	srv := &Server{
		echo:      e,
		config:    cfg,
		settings:  settings,
		creds:     session.Credentials{User: cfg.WebUser, Pass: cfg.WebPass},
		sessions:  sessions,
		loader:    assets.NewLoader(cfg.WebRoot),
		hub:       h,
		miner:     m,
		forwarder: f,
		stopCh:    stopCh,
	}

	srv.registerRoutes()
	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting web server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// correlationMiddleware tags every request context with a correlation ID so
// all log lines of one request can be tied together.
func correlationMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := correlation.WithID(c.Request().Context(), correlation.NewID())
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// baseVariables is the variable set shared by every rendered page.
func (s *Server) baseVariables() webtemplate.Variables {
	return webtemplate.Variables{
		"%VERSION%": webtemplate.Static(version.Get().Version),
		"%HEIGHT%": func() string {
			return strconv.FormatUint(s.miner.MiningInfo().Height, 10)
		},
		"%BASE_TARGET%": func() string {
			return strconv.FormatUint(s.miner.MiningInfo().BaseTarget, 10)
		},
		"%GENSIG%": func() string {
			return s.miner.MiningInfo().GenerationSignature
		},
		"%TARGET_DEADLINE%": func() string {
			return strconv.FormatUint(s.settings.TargetDeadline(), 10)
		},
		"%PLOTFILES%": func() string {
			return strconv.Itoa(len(s.miner.PlotFiles()))
		},
		"%CONNECTED%": func() string {
			return strconv.Itoa(s.hub.ClientCount())
		},
	}
}
