package webserver

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/zhzsx/creepMiner/internal/config"
	"github.com/zhzsx/creepMiner/internal/forward"
	"github.com/zhzsx/creepMiner/internal/hub"
	"github.com/zhzsx/creepMiner/internal/miner"
	"github.com/zhzsx/creepMiner/internal/session"
)

type testEnv struct {
	server   *Server
	sessions session.Store
	miner    *miner.Miner
	hub      *hub.Hub
	stopCh   chan StopRequest
	poolURL  string
}

// newTestEnv builds a fully wired server over temp directories and a fake
// pool upstream.
func newTestEnv(t *testing.T, pool http.HandlerFunc) *testEnv {
	t.Helper()

	webRoot := t.TempDir()
	writeWebFile(t, webRoot, "index.html", "<html>%CONTENTPAGE%</html>")
	writeWebFile(t, webRoot, "login.html", "<form>%ERROR%</form>")
	writeWebFile(t, webRoot, "block.html", "<p>height %HEIGHT%</p>")
	writeWebFile(t, webRoot, "plotfiles.html", "<table>%PLOT_ROWS%</table>")
	writeWebFile(t, webRoot, "settings.html", "<p>%SETTING_TARGETDEADLINE%</p>")
	writeWebFile(t, webRoot, "public/style.css", "body{}")

	poolURL := ""
	if pool != nil {
		upstream := httptest.NewServer(pool)
		t.Cleanup(upstream.Close)
		poolURL = upstream.URL
	}

	cfg := &config.Config{
		Port:                    "0",
		WebUser:                 "operator",
		WebPass:                 "s3cret",
		SessionTTL:              30 * time.Minute,
		WebRoot:                 webRoot,
		PoolURL:                 poolURL,
		SubmissionMaxRetry:      1,
		MaxWebSocketConnections: 8,
		LogLevel:                "info",
	}

	settings := config.NewSettings(cfg)
	sessions := session.NewMemoryStore(cfg.SessionTTL, clockwork.NewFakeClock())
	t.Cleanup(func() { sessions.Close() })

	h := hub.New(cfg.MaxWebSocketConnections)
	t.Cleanup(h.Stop)

	m := miner.New(nil, h)
	t.Cleanup(m.Close)

	f, err := forward.New(forward.Upstreams{Pool: poolURL})
	require.NoError(t, err)

	stopCh := make(chan StopRequest, 1)
	srv := New(cfg, settings, sessions, h, m, f, stopCh)

	return &testEnv{
		server:   srv,
		sessions: sessions,
		miner:    m,
		hub:      h,
		stopCh:   stopCh,
		poolURL:  poolURL,
	}
}

func writeWebFile(t *testing.T, root, name, content string) {
	t.Helper()
	path := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// do runs one request through the full middleware chain.
func (env *testEnv) do(method, target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	env.server.echo.ServeHTTP(rec, req)
	return rec
}

// login performs the login flow and returns the session cookie.
func (env *testEnv) login(t *testing.T) *http.Cookie {
	t.Helper()
	rec := env.do(http.MethodPost, "/login", url.Values{
		"username": {"operator"},
		"password": {"s3cret"},
	})
	require.Equal(t, http.StatusFound, rec.Code)

	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == session.CookieName {
			return cookie
		}
	}
	t.Fatal("no session cookie set on successful login")
	return nil
}
