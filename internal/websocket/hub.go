// Package websocket pushes dataset lifecycle events to connected
// dashboard clients so they can refresh without polling.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"enrolcli/internal/infrastructure"
)

// Message type constants
const (
	TypeConnection      = "connection"
	TypeStatus          = "status"
	TypeDatasetReloaded = "dataset_reloaded"
)

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Inbound messages to fan out
	broadcast chan []byte

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	mu     sync.RWMutex
	logger *slog.Logger

	totalConnections int64
	messagesSent     int64

	quit    chan struct{}
	running bool
}

// NewHub creates a new Hub instance with dependency injection
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger = logger.With(slog.String("component", "websocket.hub"))

	return &Hub{
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		logger:     logger,
		quit:       make(chan struct{}),
	}
}

// Start starts the hub's main loop if it is not already running.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.Run()
}

// Stop terminates the hub's main loop.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			h.logger.Info("Hub shutting down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.totalConnections++
			h.mu.Unlock()

			ctx := context.Background()
			if client.traceID != "" {
				ctx = infrastructure.WithTraceID(ctx, client.traceID)
			}
			h.logger.InfoContext(ctx, "Client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			connMsg := map[string]interface{}{
				"type": TypeConnection,
				"data": map[string]interface{}{
					"status":    "connected",
					"client_id": client.id,
				},
				"timestamp": time.Now().Format(time.RFC3339),
			}
			if client.traceID != "" {
				connMsg["trace_id"] = client.traceID
			}

			jsonData, err := json.Marshal(connMsg)
			if err == nil {
				select {
				case client.send <- jsonData:
				default:
					h.logger.WarnContext(ctx, "Failed to send connection message - client buffer full",
						slog.String("client_id", client.id))
				}
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				count := len(h.clients)
				h.mu.Unlock()

				h.logger.Info("Client unregistered",
					slog.Int("total_clients", count),
					slog.String("client_id", client.id),
					slog.Duration("connection_duration", time.Since(client.connectedAt)))
			} else {
				h.mu.Unlock()
			}

		case message := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			failCount := 0
			for _, client := range clients {
				select {
				case client.send <- message:
					h.mu.Lock()
					h.messagesSent++
					h.mu.Unlock()
				default:
					failCount++
					// Client's send channel is full, close it
					h.mu.Lock()
					close(client.send)
					delete(h.clients, client)
					h.mu.Unlock()

					h.logger.Warn("Client send buffer full, disconnecting",
						slog.String("client_id", client.id))
				}
			}

			if failCount > 0 {
				h.logger.Warn("Some clients failed to receive broadcast",
					slog.Int("client_count", len(clients)),
					slog.Int("fail_count", failCount))
			}
		}
	}
}

// ClientCount returns the number of currently connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastDatasetReloaded notifies all clients that the enrolment
// table was reloaded and charts should be redrawn.
func (h *Hub) BroadcastDatasetReloaded(rows, warnings int, traceID string) {
	message := map[string]interface{}{
		"type": TypeDatasetReloaded,
		"data": map[string]interface{}{
			"rows":     rows,
			"warnings": warnings,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if traceID != "" {
		message["trace_id"] = traceID
	}
	h.broadcastJSON(message)
}

// BroadcastStatus sends a status update message
func (h *Hub) BroadcastStatus(status, message string) {
	update := map[string]interface{}{
		"type": TypeStatus,
		"data": map[string]interface{}{
			"status":  status,
			"message": message,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	}
	h.broadcastJSON(update)
}

// broadcastJSON is a helper method to send JSON messages
func (h *Hub) broadcastJSON(message map[string]interface{}) {
	jsonData, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Error marshaling message",
			slog.String("error", err.Error()))
		return
	}

	// Run is the only drain for this channel; after Stop nothing reads
	// it, so a bare send would block the caller forever.
	select {
	case h.broadcast <- jsonData:
	case <-h.quit:
		h.logger.Debug("Broadcast dropped, hub stopped")
	}
}
