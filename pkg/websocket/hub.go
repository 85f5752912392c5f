package websocket

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// MessageHandler is a function that handles incoming messages
type MessageHandler func(*Client, *Message)

// Hub maintains the set of active clients and broadcasts messages.
// Only the Run goroutine closes a client's Send channel.
type Hub struct {
	clients map[string]*Client

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// Broadcast messages to every client
	Broadcast chan *Message

	handlers   map[string]MessageHandler
	onRegister func(*Client)
	logger     *zap.Logger
	done       chan struct{}

	// Protects clients reads from outside Run and the handler maps
	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client, 16),
		Broadcast:  make(chan *Message, 256),
		handlers:   make(map[string]MessageHandler),
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop and returns when ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("WebSocket hub started")
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			h.logger.Info("WebSocket hub stopped")
			return

		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case msg := <-h.Broadcast:
			h.broadcastMessage(msg)
		}
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// OnRegister sets a callback invoked for every newly registered client,
// typically to push the current snapshot.
func (h *Hub) OnRegister(fn func(*Client)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onRegister = fn
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	if existing, ok := h.clients[client.ID]; ok && existing != client {
		close(existing.Send)
	}
	h.clients[client.ID] = client
	onRegister := h.onRegister
	h.mu.Unlock()

	h.logger.Debug("WebSocket client registered", zap.String("client_id", client.ID))

	if onRegister != nil {
		onRegister(client)
	}
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.clients[client.ID]; ok && current == client {
		delete(h.clients, client.ID)
		close(client.Send)
		h.logger.Debug("WebSocket client unregistered", zap.String("client_id", client.ID))
	}
}

// broadcastMessage fans a message out; clients that cannot keep up are dropped
func (h *Hub) broadcastMessage(msg *Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, client := range h.clients {
		if client.trySend(msg) {
			continue
		}
		h.logger.Warn("WebSocket client too slow, disconnecting", zap.String("client_id", id))
		delete(h.clients, id)
		close(client.Send)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		delete(h.clients, id)
		close(client.Send)
	}
}

// HandleMessage routes incoming messages to appropriate handlers
func (h *Hub) HandleMessage(client *Client, msg *Message) {
	h.mu.RLock()
	handler, exists := h.handlers[msg.Type]
	h.mu.RUnlock()

	if !exists {
		h.logger.Debug("No handler for message type", zap.String("type", msg.Type))
		return
	}
	handler(client, msg)
}

// RegisterHandler registers a message handler for a specific type
func (h *Hub) RegisterHandler(msgType string, handler MessageHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[msgType] = handler
}

// SendToAll queues a message for every connected client. It never blocks;
// when the queue is full the message is dropped and false is returned.
func (h *Hub) SendToAll(msg *Message) bool {
	select {
	case h.Broadcast <- msg:
		return true
	default:
		h.logger.Warn("WebSocket broadcast queue full, dropping message", zap.String("type", msg.Type))
		return false
	}
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
