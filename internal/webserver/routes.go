package webserver

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability (no auth required)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.GET("/version", s.handleVersion)
	s.echo.GET("/version/online", s.handleOnlineVersion)

	// Auth
	s.echo.GET("/login", s.handleLoginPage)
	s.echo.POST("/login", s.handleLogin)
	s.echo.GET("/logout", s.handleLogout)

	// Dashboard pages (secured templates)
	s.echo.GET("/", s.handleDashboard)
	s.echo.GET("/plotfiles", s.handlePlotfilesPage)
	s.echo.GET("/settings", s.handleSettingsPage)

	// Control actions
	s.echo.GET("/rescanPlotfiles", s.handleRescanPlotfiles, s.requireAuth)
	s.echo.GET("/checkPlotfile", s.handleCheckPlotfile, s.requireAuth)
	s.echo.GET("/checkAllPlotfiles", s.handleCheckAllPlotfiles, s.requireAuth)
	s.echo.POST("/settings/change", s.handleChangeSettings, s.requireAuth)
	s.echo.POST("/plotdir/add", s.handleAddPlotDir, s.requireAuth)
	s.echo.POST("/plotdir/remove", s.handleRemovePlotDir, s.requireAuth)
	s.echo.GET("/shutdown", s.handleShutdown, s.requireAuth)
	s.echo.GET("/restart", s.handleRestart, s.requireAuth)

	// Pool protocol surface: submitNonce / getMiningInfo, everything else
	// is forwarded to the pool.
	s.echo.GET("/burst", s.handleBurst)
	s.echo.POST("/burst", s.handleBurst)

	// Push channel
	s.echo.GET("/ws", s.handleWebSocket)

	// Static assets; unknown paths end in 404 here.
	s.echo.GET("/*", s.handleAsset)
}
