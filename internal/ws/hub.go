package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Conn is the subset of *websocket.Conn the hub writes to
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one live connection belonging to a tenant
type Client struct {
	Conn     Conn
	TenantID uuid.UUID
}

type message struct {
	tenantID uuid.UUID
	payload  []byte
}

// Event is the JSON frame pushed to clients
type Event struct {
	Type      string      `json:"type"`
	Action    string      `json:"action"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

const (
	EventStockUpdate = "stock_update"

	ActionItemCreated        = "item_created"
	ActionItemUpdated        = "item_updated"
	ActionItemDeleted        = "item_deleted"
	ActionStockAdjusted      = "stock_adjusted"
	ActionTransactionCreated = "transaction_created"
	ActionTransactionDeleted = "transaction_deleted"
)

// Hub fans events out to the connections of a single tenant; events never cross tenants
type Hub struct {
	Clients    map[*Client]bool
	Register   chan *Client
	Unregister chan *Client
	broadcast  chan message
	done       chan struct{}
	mutex      sync.Mutex
	logger     *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		Clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		broadcast:  make(chan message, 256),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mutex.Lock()
			for client := range h.Clients {
				client.Conn.Close()
				delete(h.Clients, client)
			}
			h.mutex.Unlock()
			return

		case client := <-h.Register:
			h.mutex.Lock()
			h.Clients[client] = true
			h.mutex.Unlock()
			h.logger.Debug("ws client connected", zap.String("tenant_id", client.TenantID.String()))

		case client := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.Clients[client]; ok {
				delete(h.Clients, client)
				client.Conn.Close()
			}
			h.mutex.Unlock()

		case msg := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.Clients {
				if client.TenantID != msg.tenantID {
					continue
				}
				if err := client.Conn.WriteMessage(websocket.TextMessage, msg.payload); err != nil {
					client.Conn.Close()
					delete(h.Clients, client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Join registers a client; it returns false once the hub has stopped
func (h *Hub) Join(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Leave unregisters a client without blocking after the hub has stopped
func (h *Hub) Leave(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

// Publish queues an event for the tenant's clients. It never blocks the caller: when the
// queue is full the event is dropped and logged. A nil hub is a no-op.
func (h *Hub) Publish(tenantID uuid.UUID, action, text string, data interface{}) {
	if h == nil {
		return
	}

	payload, err := json.Marshal(Event{
		Type:      EventStockUpdate,
		Action:    action,
		Message:   text,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		h.logger.Error("failed to encode ws event", zap.String("action", action), zap.Error(err))
		return
	}

	select {
	case h.broadcast <- message{tenantID: tenantID, payload: payload}:
	default:
		h.logger.Warn("ws broadcast queue full, dropping event",
			zap.String("tenant_id", tenantID.String()), zap.String("action", action))
	}
}

// ClientCount returns the number of live connections for a tenant
func (h *Hub) ClientCount(tenantID uuid.UUID) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	n := 0
	for client := range h.Clients {
		if client.TenantID == tenantID {
			n++
		}
	}
	return n
}
