package webserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/zhzsx/creepMiner/internal/metrics"
	"github.com/zhzsx/creepMiner/internal/session"
	"github.com/zhzsx/creepMiner/internal/webtemplate"
)

// isLoggedIn reports whether the request carries a valid session token. A hit
// slides the session deadline; with no credentials configured every request
// counts as logged in.
func (s *Server) isLoggedIn(c echo.Context) bool {
	if !s.creds.Enabled() {
		return true
	}

	cookie, err := c.Cookie(session.CookieName)
	if err != nil || cookie.Value == "" {
		return false
	}
	return s.sessions.Valid(c.Request().Context(), cookie.Value)
}

// requireAuth guards the control actions. Browsers are redirected to the
// login page; the session cookie is the only accepted credential.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.isLoggedIn(c) {
			return c.Redirect(http.StatusFound, "/login")
		}
		return next(c)
	}
}

func (s *Server) handleLoginPage(c echo.Context) error {
	return s.renderLogin(c, "")
}

func (s *Server) handleLogin(c echo.Context) error {
	user := c.FormValue("username")
	pass := c.FormValue("password")

	if !s.creds.Check(user, pass) {
		metrics.SessionLoginsTotal.WithLabelValues("failure").Inc()
		return s.renderLogin(c, "Wrong username or password!")
	}

	token, err := s.sessions.Create(c.Request().Context())
	if err != nil {
		return err
	}

	c.SetCookie(&http.Cookie{
		Name:     session.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	metrics.SessionLoginsTotal.WithLabelValues("success").Inc()
	return c.Redirect(http.StatusFound, "/")
}

func (s *Server) handleLogout(c echo.Context) error {
	if cookie, err := c.Cookie(session.CookieName); err == nil && cookie.Value != "" {
		s.sessions.Destroy(c.Request().Context(), cookie.Value)
	}

	c.SetCookie(&http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return c.Redirect(http.StatusFound, "/")
}

func (s *Server) renderLogin(c echo.Context, errorMessage string) error {
	vars := s.baseVariables().Merge(webtemplate.Variables{
		"%ERROR%": webtemplate.Static(errorMessage),
	})

	page, err := s.loader.RenderPage("index.html", "login.html", vars)
	if err != nil {
		return err
	}
	return c.HTML(http.StatusOK, page)
}
