package webserver

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	apperrors "github.com/zhzsx/creepMiner/internal/errors"
	"github.com/zhzsx/creepMiner/internal/webtemplate"
)

// renderSecuredPage renders a content page inside the frame template, but
// only for an authenticated operator; everyone else is redirected to the
// login page without leaking the content.
func (s *Server) renderSecuredPage(c echo.Context, contentPage string, extra webtemplate.Variables) error {
	if !s.isLoggedIn(c) {
		return c.Redirect(http.StatusFound, "/login")
	}

	vars := s.baseVariables().Merge(extra)
	page, err := s.loader.RenderPage("index.html", contentPage, vars)
	if err != nil {
		return apperrors.InternalError("failed to render page", err).WithField("page", contentPage)
	}
	return c.HTML(http.StatusOK, page)
}

func (s *Server) handleDashboard(c echo.Context) error {
	return s.renderSecuredPage(c, "block.html", nil)
}

func (s *Server) handlePlotfilesPage(c echo.Context) error {
	var rows strings.Builder
	for _, plot := range s.miner.PlotFiles() {
		rows.WriteString("<tr><td>")
		rows.WriteString(plot.Path)
		rows.WriteString("</td><td>")
		rows.WriteString(formatBytes(plot.Size))
		rows.WriteString("</td></tr>")
	}

	return s.renderSecuredPage(c, "plotfiles.html", webtemplate.Variables{
		"%PLOT_ROWS%": webtemplate.Static(rows.String()),
	})
}

func (s *Server) handleSettingsPage(c echo.Context) error {
	snapshot := s.settings.Snapshot()
	vars := make(webtemplate.Variables, len(snapshot))
	for key, value := range snapshot {
		vars["%SETTING_"+strings.ToUpper(key)+"%"] = webtemplate.Static(value)
	}
	return s.renderSecuredPage(c, "settings.html", vars)
}

// handleAsset serves static files under the web root. Traversal attempts and
// misses both end in a plain 404.
func (s *Server) handleAsset(c echo.Context) error {
	data, mimeType, ok := s.loader.Open(c.Request().URL.Path)
	if !ok {
		return apperrors.NotFoundError("no such resource").WithField("path", c.Request().URL.Path)
	}
	return c.Blob(http.StatusOK, mimeType, data)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	suffix := []string{"KiB", "MiB", "GiB", "TiB", "PiB"}[exp]
	return fmt.Sprintf("%.2f %s", float64(n)/float64(div), suffix)
}
