package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"bizpulse/internal/config"
	"bizpulse/internal/infrastructure"
)

// Maximum message size allowed from peer
const maxMessageSize = 512

// Timings bounds the pumps. Zero values fall back to the defaults.
type Timings struct {
	WriteWait  time.Duration
	PongWait   time.Duration
	PingPeriod time.Duration
}

// TimingsFromConfig maps the websocket config section
func TimingsFromConfig(cfg config.WebSocketConfig) Timings {
	return Timings{
		WriteWait:  cfg.WriteWait,
		PongWait:   cfg.PongWait,
		PingPeriod: cfg.PingPeriod,
	}
}

func (t Timings) withDefaults() Timings {
	if t.WriteWait <= 0 {
		t.WriteWait = 10 * time.Second
	}
	if t.PongWait <= 0 {
		t.PongWait = 60 * time.Second
	}
	if t.PingPeriod <= 0 || t.PingPeriod >= t.PongWait {
		t.PingPeriod = (t.PongWait * 9) / 10
	}
	return t
}

// clientMessage is what clients may send: heartbeats and run subscriptions
type clientMessage struct {
	Type  string `json:"type"`
	RunID string `json:"run_id,omitempty"`
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub  *Hub
	conn Connection

	// Buffered channel of outbound messages
	send chan []byte

	id          string
	traceID     string
	remoteAddr  string
	connectedAt time.Time
	timings     Timings
	logger      *slog.Logger

	// Run IDs the client subscribed to; empty means every run
	subMu sync.RWMutex
	subs  map[string]struct{}
}

// NewClient creates a client for conn. Register it with the hub before
// starting the pumps.
func NewClient(hub *Hub, conn Connection, traceID string, timings Timings, logger *slog.Logger) *Client {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	id := uuid.New().String()
	logger = logger.With(
		slog.String("component", "websocket.client"),
		slog.String("client_id", id),
	)
	if traceID != "" {
		logger = logger.With(slog.String("trace_id", traceID))
	}

	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, 256),
		id:          id,
		traceID:     traceID,
		remoteAddr:  conn.RemoteAddr(),
		connectedAt: time.Now(),
		timings:     timings.withDefaults(),
		logger:      logger,
		subs:        make(map[string]struct{}),
	}
}

// ID returns the client identifier
func (c *Client) ID() string {
	return c.id
}

func (c *Client) context() context.Context {
	ctx := context.Background()
	if c.traceID != "" {
		ctx = infrastructure.WithTraceID(ctx, c.traceID)
	}
	return ctx
}

// wants reports whether events of runID should reach the client. Events
// without a run ID go to everyone.
func (c *Client) wants(runID string) bool {
	if runID == "" {
		return true
	}
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	if len(c.subs) == 0 {
		return true
	}
	_, ok := c.subs[runID]
	return ok
}

func (c *Client) subscribe(runID string) {
	c.subMu.Lock()
	c.subs[runID] = struct{}{}
	c.subMu.Unlock()
}

func (c *Client) unsubscribe(runID string) {
	c.subMu.Lock()
	if runID == "" {
		clear(c.subs)
	} else {
		delete(c.subs, runID)
	}
	c.subMu.Unlock()
}

// ReadPump pumps messages from the websocket connection to the hub
func (c *Client) ReadPump() {
	ctx := c.context()
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
		c.logger.DebugContext(ctx, "read pump stopped")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.timings.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.timings.PongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.WarnContext(ctx, "unexpected websocket close", slog.String("error", err.Error()))
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.hub.metrics.RecordMessageReceived(ctx, "invalid")
			c.logger.DebugContext(ctx, "ignoring malformed client message", slog.String("error", err.Error()))
			continue
		}
		c.hub.metrics.RecordMessageReceived(ctx, msg.Type)

		switch msg.Type {
		case "heartbeat":
			c.conn.SetReadDeadline(time.Now().Add(c.timings.PongWait))
		case "subscribe":
			if msg.RunID != "" {
				c.subscribe(msg.RunID)
				c.logger.DebugContext(ctx, "client subscribed", slog.String("run_id", msg.RunID))
			}
		case "unsubscribe":
			c.unsubscribe(msg.RunID)
		default:
			c.logger.DebugContext(ctx, "ignoring unknown client message", slog.String("type", msg.Type))
		}
	}
}

// WritePump pumps messages from the hub to the websocket connection
func (c *Client) WritePump() {
	ctx := c.context()
	ticker := time.NewTicker(c.timings.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.logger.DebugContext(ctx, "write pump stopped")
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.timings.WriteWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.WarnContext(ctx, "failed to write message", slog.String("error", err.Error()))
				return
			}
			c.hub.metrics.RecordBytesWritten(ctx, len(message))

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.timings.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.DebugContext(ctx, "failed to send ping", slog.String("error", err.Error()))
				return
			}
		}
	}
}

// Handler upgrades HTTP requests to websocket clients of a hub
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	timings  Timings
	logger   *slog.Logger
}

// NewHandler creates the /ws endpoint handler. The upgrader keeps gorilla's
// same-origin check.
func NewHandler(hub *Hub, cfg config.WebSocketConfig, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
		},
		timings: TimingsFromConfig(cfg),
		logger:  logger.With(slog.String("component", "websocket.handler")),
	}
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error
		h.logger.WarnContext(r.Context(), "websocket upgrade failed",
			slog.String("error", err.Error()),
			slog.String("remote_addr", r.RemoteAddr))
		return
	}

	client := NewClient(h.hub, NewConnectionWrapper(conn), infrastructure.GetTraceID(r.Context()), h.timings, h.logger)
	if !h.hub.Register(client) {
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
