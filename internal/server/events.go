package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/marketplace/internal/installer"
	"github.com/vango-dev/marketplace/internal/telemetry"
)

// writeWait bounds a single event write to a client.
const writeWait = 5 * time.Second

// EventHub fans installer events out to WebSocket clients.
type EventHub struct {
	clients  map[*websocket.Conn]bool
	mu       sync.RWMutex
	sendMu   sync.Mutex
	upgrader websocket.Upgrader
	logger   *slog.Logger
	metrics  *telemetry.Metrics
}

// NewEventHub creates an empty hub. Pass hub.Publish to
// installer.OnChange to stream installer changes.
func NewEventHub(logger *slog.Logger, metrics *telemetry.Metrics) *EventHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventHub{
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger:  logger,
		metrics: metrics,
	}
}

// ServeHTTP upgrades the request and keeps the connection registered
// until the client goes away. Clients only receive; anything they send is
// discarded.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	conn, err := h.upgrader.Upgrade(w, req, nil)
	if err != nil {
		h.logger.Debug("event stream upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
	h.metrics.EventClientConnected()
	h.logger.Debug("event client connected", "remote", req.RemoteAddr)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.remove(conn)
}

// Publish sends ev to every connected client.
func (h *EventHub) Publish(ev installer.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	h.broadcast(data)
}

func (h *EventHub) broadcast(data []byte) {
	h.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	h.sendMu.Lock()
	defer h.sendMu.Unlock()
	for _, client := range clients {
		client.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Debug("dropping event client", "error", err)
			h.remove(client)
		}
	}
}

// remove unregisters and closes conn. Safe to call more than once.
func (h *EventHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()

	if ok {
		h.metrics.EventClientDisconnected()
	}
	conn.Close()
}

// ClientCount returns the number of connected clients.
func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close closes all client connections.
func (h *EventHub) Close() {
	h.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		h.remove(client)
	}
}
