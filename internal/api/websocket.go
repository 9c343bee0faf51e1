package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-power/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-power/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-power/internal/power"
)

// WebSocket defaults used when the configuration leaves a value at zero.
const (
	defaultPingInterval   = 30 * time.Second
	defaultPongTimeout    = 10 * time.Second
	defaultMaxMessageSize = 8192
)

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// Hub tracks WebSocket connections so they can be counted and closed together.
//
// It does not fan out messages: every client reads the snapshot distributor
// through its own observer.
type Hub struct {
	logger  *logging.Logger
	clients map[*WSClient]struct{}
	closed  bool
	mu      sync.RWMutex
}

// WSClient is one connected WebSocket.
type WSClient struct {
	id       string
	conn     *websocket.Conn
	observer *power.Observer
	cancel   context.CancelFunc
	logger   *logging.Logger
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds a client. It returns false once the hub has been closed.
func (h *Hub) Register(client *WSClient) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.clients[client] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug("websocket client connected", "client_id", client.id, "clients", n)
	return true
}

// Unregister removes a client.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	delete(h.clients, client)
	n := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug("websocket client disconnected", "client_id", client.id, "clients", n)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// closeAll stops every client's pumps and refuses new registrations.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for client := range h.clients {
		client.cancel()
	}
}

// handleWebSocket upgrades the connection and streams snapshots to it.
//
// The current snapshot is sent immediately, then the latest snapshot after
// every change. Messages from the client are read only to process control
// frames and detect disconnects.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(s.ctx)
	client := &WSClient{
		id:       uuid.NewString(),
		conn:     conn,
		observer: s.power.Observe(),
		cancel:   cancel,
		logger:   s.logger,
	}

	if !s.hub.Register(client) {
		cancel()
		conn.Close()
		return
	}

	go client.writePump(ctx, s.wsCfg)
	go client.readPump(s.hub, s.wsCfg)
}

// readPump discards client messages until the connection fails.
func (c *WSClient) readPump(hub *Hub, cfg config.WebSocketConfig) {
	defer func() {
		hub.Unregister(c)
		c.cancel()
		c.conn.Close()
	}()

	maxSize := cfg.MaxMessageSize
	if maxSize <= 0 {
		maxSize = defaultMaxMessageSize
	}
	c.conn.SetReadLimit(int64(maxSize))

	pingInterval, pongWait := wsTimings(cfg)
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read error", "client_id", c.id, "error", err)
			}
			return
		}
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	}
}

// writePump owns all writes to the connection.
//
// It waits on the client's observer with a timeout of one ping interval, so
// a quiet device table still produces keep-alive pings.
func (c *WSClient) writePump(ctx context.Context, cfg config.WebSocketConfig) {
	defer func() {
		c.cancel()
		c.conn.Close()
	}()

	pingInterval, pongWait := wsTimings(cfg)

	if err := c.writeSnapshot(c.observer.Current(), pongWait); err != nil {
		return
	}

	for {
		waitCtx, cancel := context.WithTimeout(ctx, pingInterval)
		snap, err := c.observer.WaitForChange(waitCtx)
		cancel()

		switch {
		case err == nil:
			if err := c.writeSnapshot(snap, pongWait); err != nil {
				c.logger.Debug("websocket write failed", "client_id", c.id, "error", err)
				return
			}
		case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		default:
			// Server shutdown or the actor stopped.
			//nolint:errcheck // Best-effort close frame
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(pongWait))
			return
		}
	}
}

func (c *WSClient) writeSnapshot(snap power.Snapshot, wait time.Duration) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	//nolint:errcheck // Best-effort deadline; write error is returned
	c.conn.SetWriteDeadline(time.Now().Add(wait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func wsTimings(cfg config.WebSocketConfig) (pingInterval, pongWait time.Duration) {
	pingInterval = time.Duration(cfg.PingInterval) * time.Second
	if pingInterval <= 0 {
		pingInterval = defaultPingInterval
	}
	pongWait = time.Duration(cfg.PongTimeout) * time.Second
	if pongWait <= 0 {
		pongWait = defaultPongTimeout
	}
	return pingInterval, pongWait
}
