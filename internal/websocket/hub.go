package websocket

import (
	"context"
	"sync"

	"github.com/noyon-ahamed/are-you-okay/internal/logger"
)

// Message defines the generic structure for WS communication
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type Hub struct {
	clients    map[*Client]bool
	byUser     map[string]map[*Client]bool
	broadcast  chan Message
	direct     chan directMessage
	register   chan *Client
	unregister chan *Client
	log        *logger.Logger
	mu         sync.RWMutex
}

type directMessage struct {
	userID string
	msg    Message
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan Message),
		direct:     make(chan directMessage),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		byUser:     make(map[string]map[*Client]bool),
		log:        log,
	}
}

// Run starts the hub logic in a goroutine. It listens for context cancellation for clean shutdown.
func (h *Hub) Run(ctx context.Context) {
	h.log.Info("WebSocket Hub started")
	for {
		select {
		case <-ctx.Done():
			h.log.Info("WebSocket Hub shutting down...")
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			if h.byUser[client.userID] == nil {
				h.byUser[client.userID] = make(map[*Client]bool)
			}
			h.byUser[client.userID][client] = true
			h.mu.Unlock()
			h.log.Info("WS client connected for user %s. Total: %d", client.userID, len(h.clients))
		case client := <-h.unregister:
			h.mu.Lock()
			h.dropClient(client)
			h.mu.Unlock()
		case dm := <-h.direct:
			h.mu.Lock()
			for client := range h.byUser[dm.userID] {
				select {
				case client.send <- dm.msg:
				default:
					h.dropClient(client)
				}
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					h.dropClient(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// dropClient must be called with h.mu held.
func (h *Hub) dropClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	if sessions := h.byUser[client.userID]; sessions != nil {
		delete(sessions, client)
		if len(sessions) == 0 {
			delete(h.byUser, client.userID)
		}
	}
}

// Broadcast sends a message to all connected clients
func (h *Hub) Broadcast(msgType string, payload interface{}) {
	h.broadcast <- Message{
		Type:    msgType,
		Payload: payload,
	}
}

// EmitToUser sends a message to every session of one user. Users with no
// open session are silently skipped.
func (h *Hub) EmitToUser(userID, msgType string, payload interface{}) {
	h.direct <- directMessage{
		userID: userID,
		msg: Message{
			Type:    msgType,
			Payload: payload,
		},
	}
}
