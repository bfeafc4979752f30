package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"bizpulse/internal/infrastructure"
)

// Message types the hub emits besides the processing events
const (
	TypeConnection = "connection"
	TypeError      = "error"
)

// Event is the envelope of every message sent to clients
type Event struct {
	Type      string      `json:"type"`
	RunID     string      `json:"run_id,omitempty"`
	Status    string      `json:"status,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// outbound is an encoded event plus what subscribers filter on
type outbound struct {
	eventType string
	runID     string
	payload   []byte
}

// Hub maintains the set of active clients and fans events out to them.
// The client map is only mutated by the Run goroutine.
type Hub struct {
	clients map[*Client]bool

	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	logger  *slog.Logger
	metrics *OTelMetrics

	totalConnections atomic.Int64
	messagesSent     atomic.Int64
	messagesDropped  atomic.Int64

	quit     chan struct{}
	done     chan struct{}
	running  bool
	stopOnce sync.Once
}

// NewHub creates a new Hub. A nil metrics uses no-op instruments.
func NewHub(logger *slog.Logger, metrics *OTelMetrics) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if metrics == nil {
		metrics, _ = NewOTelMetrics(nil)
	}

	return &Hub{
		broadcast:  make(chan outbound, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		metrics:    metrics,
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start runs the hub loop in a goroutine. Calling it twice is a no-op.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	go h.run()
}

func (h *Hub) run() {
	defer close(h.done)

	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Info("hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.totalConnections.Add(1)

			ctx := client.context()
			h.metrics.RecordConnection(ctx)
			h.logger.InfoContext(ctx, "client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			h.sendConnected(client)

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client]
			if ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			if !ok {
				continue
			}

			ctx := client.context()
			h.metrics.RecordDisconnection(ctx, time.Since(client.connectedAt), "closed")
			h.logger.InfoContext(ctx, "client unregistered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.Duration("connection_duration", time.Since(client.connectedAt)))

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *Hub) sendConnected(client *Client) {
	payload, err := json.Marshal(Event{
		Type:   TypeConnection,
		Status: "connected",
		Data: map[string]string{
			"client_id": client.id,
		},
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return
	}

	select {
	case client.send <- payload:
	default:
		h.logger.Warn("client buffer full on connect", slog.String("client_id", client.id))
	}
}

// deliver hands msg to every interested client. A client whose buffer is
// full is disconnected rather than allowed to stall the hub.
func (h *Hub) deliver(msg outbound) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	ctx := context.Background()
	failed := 0
	for _, client := range clients {
		if !client.wants(msg.runID) {
			continue
		}
		select {
		case client.send <- msg.payload:
			h.messagesSent.Add(1)
			h.metrics.RecordMessageSent(ctx, msg.eventType)
		default:
			failed++
			h.messagesDropped.Add(1)
			h.metrics.RecordDroppedMessage(ctx, msg.eventType)

			h.mu.Lock()
			if h.clients[client] {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.metrics.RecordDisconnection(ctx, time.Since(client.connectedAt), "slow_consumer")
			h.logger.WarnContext(client.context(), "client send buffer full, disconnecting",
				slog.String("client_id", client.id))
		}
	}

	h.logger.Debug("broadcast delivered",
		slog.String("type", msg.eventType),
		slog.String("run_id", msg.runID),
		slog.Int("clients", len(clients)),
		slog.Int("failed", failed),
		slog.Int("payload_size", len(msg.payload)))
}

// BroadcastUpdate publishes a processing event. It matches the hub interface
// the job queue broadcasts through.
func (h *Hub) BroadcastUpdate(eventType, runID, status string, metadata interface{}) {
	h.Publish(Event{
		Type:      eventType,
		RunID:     runID,
		Status:    status,
		Data:      metadata,
		Timestamp: time.Now().UTC(),
	})
}

// Publish encodes ev and queues it for delivery. Events published after
// Stop are discarded.
func (h *Hub) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("failed to marshal event",
			slog.String("type", ev.Type),
			slog.String("error", err.Error()))
		return
	}

	select {
	case h.broadcast <- outbound{eventType: ev.Type, runID: ev.RunID, payload: payload}:
	case <-h.quit:
	}
}

// Register adds a client to the hub. After Stop the client is closed instead.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.quit:
		client.conn.Close()
		return false
	}
}

func (h *Hub) remove(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop closes every client and ends the hub loop. It is safe to call more
// than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.quit)
	})

	h.mu.RLock()
	running := h.running
	h.mu.RUnlock()
	if running {
		<-h.done
	}
}

// GetHubMetrics returns current hub counters
func (h *Hub) GetHubMetrics() map[string]interface{} {
	return map[string]interface{}{
		"active_clients":    h.ClientCount(),
		"total_connections": h.totalConnections.Load(),
		"messages_sent":     h.messagesSent.Load(),
		"messages_dropped":  h.messagesDropped.Load(),
	}
}
