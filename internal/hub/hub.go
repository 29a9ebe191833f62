// Package hub implements the WebSocket push channel: an actor-style hub
// fanning status updates out to connected operator browsers, with one writer
// goroutine and one outbound queue per connection.
package hub

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/zhzsx/creepMiner/internal/metrics"
)

// ErrStopped is returned by Register once the hub has shut down.
var ErrStopped = errors.New("hub stopped")

type hubCmd interface{ hubCmd() }

type cmdRegister struct {
	conn  *websocket.Conn
	errCh chan error
}

func (cmdRegister) hubCmd() {}

type cmdUnregister struct {
	conn *websocket.Conn
}

func (cmdUnregister) hubCmd() {}

type cmdBroadcast struct {
	data []byte
}

func (cmdBroadcast) hubCmd() {}

type cmdClientCount struct {
	replyCh chan int
}

func (cmdClientCount) hubCmd() {}

type cmdStop struct {
	doneCh chan struct{}
}

func (cmdStop) hubCmd() {}

// Hub owns the set of push-channel connections. All state is confined to the
// run goroutine; producers interact through the command channel, so a
// broadcast can never race a register or teardown.
type Hub struct {
	cmdCh      chan hubCmd
	clients    map[*websocket.Conn]*clientWriter
	maxClients int
	stopOnce   sync.Once
	stopped    chan struct{}
}

// New creates a hub accepting at most maxClients concurrent connections.
func New(maxClients int) *Hub {
	h := &Hub{
		cmdCh:      make(chan hubCmd, 256),
		clients:    make(map[*websocket.Conn]*clientWriter),
		maxClients: maxClients,
		stopped:    make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case cmdRegister:
			h.handleRegister(c)
		case cmdUnregister:
			h.handleUnregister(c.conn)
		case cmdBroadcast:
			h.handleBroadcast(c.data)
		case cmdClientCount:
			c.replyCh <- len(h.clients)
		case cmdStop:
			h.handleStop()
			// Unblocks every current and future caller; commands still
			// queued on cmdCh are abandoned.
			close(h.stopped)
			close(c.doneCh)
			return
		}
	}
}

func (h *Hub) handleRegister(c cmdRegister) {
	if len(h.clients) >= h.maxClients {
		slog.Warn("Rejecting push-channel client: connection limit reached", "limit", h.maxClients)
		_ = c.conn.Close()
		c.errCh <- fmt.Errorf("connection limit (%d) reached", h.maxClients)
		return
	}

	h.clients[c.conn] = newClientWriter(c.conn)
	metrics.HubConnectedClients.Set(float64(len(h.clients)))
	slog.Debug("Push-channel client registered", "total", len(h.clients))
	c.errCh <- nil
}

func (h *Hub) handleUnregister(conn *websocket.Conn) {
	cw, exists := h.clients[conn]
	if !exists {
		return
	}

	cw.stop()
	delete(h.clients, conn)
	metrics.HubConnectedClients.Set(float64(len(h.clients)))
	slog.Debug("Push-channel client unregistered", "remaining", len(h.clients))
}

func (h *Hub) handleBroadcast(data []byte) {
	var slow []*websocket.Conn
	for conn, cw := range h.clients {
		select {
		case cw.sendCh <- data:
		default:
			// Queue full: the client cannot keep up, evict it rather
			// than stall every other connection.
			slow = append(slow, conn)
		}
	}

	for _, conn := range slow {
		slog.Warn("Disconnecting slow push-channel client")
		metrics.HubSlowClientsEvicted.Inc()
		h.handleUnregister(conn)
	}

	metrics.HubMessagesBroadcast.Inc()
}

func (h *Hub) handleStop() {
	for conn, cw := range h.clients {
		cw.stopGraceful("server shutting down")
		delete(h.clients, conn)
	}
	metrics.HubConnectedClients.Set(0)
}

// Register adds a connection and starts its writer. It returns ErrStopped
// after shutdown and an error when the connection limit is reached.
func (h *Hub) Register(conn *websocket.Conn) error {
	errCh := make(chan error, 1)
	select {
	case h.cmdCh <- cmdRegister{conn: conn, errCh: errCh}:
	case <-h.stopped:
		return ErrStopped
	}
	select {
	case err := <-errCh:
		return err
	case <-h.stopped:
		// The command may still have been served right before shutdown.
		select {
		case err := <-errCh:
			return err
		default:
			return ErrStopped
		}
	}
}

// Unregister stops the connection's writer and drops it from the hub.
// A no-op after shutdown.
func (h *Hub) Unregister(conn *websocket.Conn) {
	select {
	case h.cmdCh <- cmdUnregister{conn: conn}:
	case <-h.stopped:
	}
}

// Broadcast enqueues payload on every connection's outbound queue, in
// arrival order. Safe to call from any goroutine; dropped after shutdown.
func (h *Hub) Broadcast(payload []byte) {
	select {
	case h.cmdCh <- cmdBroadcast{data: payload}:
	case <-h.stopped:
	}
}

// ClientCount returns the number of registered connections, zero after
// shutdown.
func (h *Hub) ClientCount() int {
	replyCh := make(chan int, 1)
	select {
	case h.cmdCh <- cmdClientCount{replyCh: replyCh}:
	case <-h.stopped:
		return 0
	}
	select {
	case count := <-replyCh:
		return count
	case <-h.stopped:
		select {
		case count := <-replyCh:
			return count
		default:
			return 0
		}
	}
}

// Stop gracefully closes every connection and terminates the hub. Blocks
// until all writers have exited. Safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		doneCh := make(chan struct{})
		h.cmdCh <- cmdStop{doneCh: doneCh}
		<-doneCh
	})
}
