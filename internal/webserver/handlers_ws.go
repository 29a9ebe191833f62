package webserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The UI is served from the miner itself; origin checks would only
		// lock out operators reaching it through a forwarded port.
		return true
	},
}

// handleWebSocket upgrades the connection and registers it with the hub. The
// read pump consumes operator commands until the socket closes; any failure
// tears down only this connection.
func (s *Server) handleWebSocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade WebSocket: %w", err)
	}

	ctx := c.Request().Context()
	if err := s.hub.Register(conn); err != nil {
		slog.WarnContext(ctx, "Push channel registration rejected", "error", err)
		conn.Close()
		return nil
	}

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}
		s.handleOperatorCommand(ctx, strings.TrimSpace(string(msg)))
	}

	s.hub.Unregister(conn)
	return nil
}

// handleOperatorCommand interprets plain commands sent by the web UI over
// the push channel.
func (s *Server) handleOperatorCommand(ctx context.Context, cmd string) {
	switch cmd {
	case "":
	case "rescan":
		s.miner.RescanPlotfiles()
	default:
		slog.DebugContext(ctx, "Ignoring unknown operator command", "command", cmd)
	}
}
