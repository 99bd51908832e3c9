// Package viewer relays caption events from Kafka to browsers over WebSocket.
package viewer

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"ai-speech-captioning-service/internal/observability/logging"
)

// Event is the subset of cue and transcript events the viewer displays.
type Event struct {
	EventType     string `json:"eventType"`
	InteractionID string `json:"interactionId"`
	TenantID      string `json:"tenantId"`
	UtteranceID   string `json:"utteranceId"`
	Sequence      int    `json:"sequence,omitempty"`
	Language      string `json:"language,omitempty"`
	Text          string `json:"text"`
	BeginMs       int64  `json:"beginMs,omitempty"`
	EndMs         int64  `json:"endMs,omitempty"`
	AudioOffsetMs int64  `json:"audioOffsetMs,omitempty"`
	Formatted     string `json:"formatted,omitempty"`
	Timestamp     int64  `json:"timestamp"`
}

// Hub manages WebSocket connections
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan Event
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mu         sync.RWMutex
	logger     zerolog.Logger
}

// NewHub creates a hub. Call Run to start delivering events.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan Event, 100),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     logging.WithComponent("caption-viewer"),
	}
}

// Broadcast queues an event for every connected client.
func (h *Hub) Broadcast(ctx context.Context, ev Event) {
	select {
	case h.broadcast <- ev:
	case <-ctx.Done():
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Run delivers events until ctx is done, then closes every connection.
// Run must be called at most once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for conn := range h.clients {
				conn.Close()
				delete(h.clients, conn)
			}
			h.mu.Unlock()
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info().Int("clients", total).Msg("Client connected")

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info().Int("clients", total).Msg("Client disconnected")

		case event := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				if err := conn.WriteJSON(event); err != nil {
					h.logger.Warn().Err(err).Msg("Write error")
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local dev
	},
}

// ServeWS upgrades the request and registers the connection with the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}
	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
		return
	}

	// Keep connection alive, handle disconnects
	go func() {
		defer func() {
			select {
			case h.unregister <- conn:
			case <-h.done:
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
