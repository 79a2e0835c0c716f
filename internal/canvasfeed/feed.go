// Package canvasfeed pushes catalog changes to open authoring canvases over
// WebSocket, so a promoted or composed component can be placed without a
// page reload.
package canvasfeed

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/uiforge/internal/telemetry"
)

// EventType names a catalog change.
type EventType string

const (
	EventPromoted EventType = "promoted"
	EventComposed EventType = "composed"
	EventDeleted  EventType = "deleted"
)

// Position is where the canvas should place a new element.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Event is sent to every connected canvas.
type Event struct {
	Type     EventType `json:"type"`
	ID       string    `json:"id"`
	Tag      string    `json:"tag,omitempty"`
	Wraps    []string  `json:"wraps,omitempty"`
	Position *Position `json:"position,omitempty"`
}

const writeWait = 5 * time.Second

// Hub manages the canvas connections.
type Hub struct {
	clients  map[*websocket.Conn]bool
	mu       sync.RWMutex
	sendMu   sync.Mutex
	upgrader websocket.Upgrader
	metrics  *telemetry.Metrics
	logger   *slog.Logger
}

// Option configures a Hub.
type Option func(*Hub)

// WithMetrics reports the connected client count.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(h *Hub) {
		h.metrics = m
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHub creates an empty Hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // the canvas dev server runs on another port
			},
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleWebSocket upgrades the request and holds the connection until the
// canvas goes away. Canvases only listen; anything they send is discarded.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := h.upgrader.Upgrade(w, req, nil)
	if err != nil {
		h.logger.Debug("canvas upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	n := len(h.clients)
	h.mu.Unlock()
	h.metrics.FeedClients(n)
	h.logger.Debug("canvas connected", "clients", n)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.remove(conn)
}

// Notify sends ev to every connected canvas. A canvas that cannot be
// written to is dropped.
func (h *Hub) Notify(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	h.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	h.sendMu.Lock()
	defer h.sendMu.Unlock()
	for _, client := range clients {
		_ = client.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			h.remove(client)
		}
	}
	h.logger.Debug("canvas event sent", "type", ev.Type, "id", ev.ID, "clients", len(clients))
	return nil
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	if !h.clients[conn] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, conn)
	n := len(h.clients)
	h.mu.Unlock()

	conn.Close()
	h.metrics.FeedClients(n)
}

// ClientCount returns the number of connected canvases.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every canvas.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
	}
	h.metrics.FeedClients(0)
}
