package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"cartrack-backend/internal/models"

	"go.uber.org/zap"
)

// Hub maintains active WebSocket connections and fans report events out to them
type Hub struct {
	// Registered clients; a user may hold several connections
	clients map[*Client]struct{}

	// Report events waiting to be delivered
	events chan *Event

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	logger *zap.Logger

	// Guards clients for the read-only accessors; Run is the only writer
	mu sync.RWMutex
}

// Event is a live dashboard message. It goes to the report owner and to every admin.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`

	ownerID string
}

// NewHub creates a new Hub instance
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		events:     make(chan *Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run owns client registration and delivery until ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("✅ [WEBSOCKET] Client connected",
				zap.String("user_id", client.UserID),
				zap.String("role", client.UserRole),
				zap.Int("connected_clients", total),
			)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Info("🔴 [WEBSOCKET] Client disconnected",
					zap.String("user_id", client.UserID),
					zap.Int("connected_clients", len(h.clients)),
				)
			}
			h.mu.Unlock()

		case event := <-h.events:
			h.deliver(event)
		}
	}
}

func (h *Hub) deliver(event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("❌ Failed to marshal event", zap.String("type", event.Type), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		if client.UserID != event.ownerID && client.UserRole != models.RoleAdmin {
			continue
		}
		select {
		case client.send <- data:
		default:
			// Client buffer full, disconnect
			close(client.send)
			delete(h.clients, client)
			h.logger.Warn("⚠️ Client buffer full, disconnecting", zap.String("user_id", client.UserID))
		}
	}
}

func (h *Hub) addClient(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) removeClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// PublishReportEvent queues a report change for the owner and the admins.
// It never blocks the caller; events are dropped when the queue is full.
func (h *Hub) PublishReportEvent(eventType string, report *models.Report) {
	event := &Event{
		Type:    eventType,
		Data:    report.ToReportResponse(),
		ownerID: report.UserID,
	}
	select {
	case h.events <- event:
	default:
		h.logger.Warn("⚠️ Event queue full, dropping event",
			zap.String("type", eventType),
			zap.String("report_id", report.ID),
		)
	}
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
