package websocket

import (
	"context"
	"log/slog"
	"sync"

	"github.com/princekumarofficial/impact-stories/internal/types"
)

// Hub maintains the set of active clients and fans story events out to them
type Hub struct {
	// Registered clients; one user may hold several connections
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client

	// Mutex to protect clients map
	mu sync.RWMutex

	broadcast chan *BroadcastMessage

	// Closed when Run returns
	done chan struct{}
}

// BroadcastMessage is an event addressed to the subscribers of one story.
// An empty StoryID reaches every client.
type BroadcastMessage struct {
	StoryID string       `json:"story_id"`
	Event   *types.Event `json:"event"`
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop and closes every connection when ctx ends
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
			slog.Info("WebSocket client connected",
				slog.String("user_id", client.userID),
				slog.String("story_id", client.storyID))

		case client := <-h.unregister:
			h.remove(client)

		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		slog.Info("WebSocket client disconnected", slog.String("user_id", client.userID))
	}
}

// RegisterClient registers a new client
func (h *Hub) RegisterClient(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

// UnregisterClient unregisters a client
func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// BroadcastToStory queues event for clients following storyID and for
// clients following every story. An empty storyID reaches every client.
func (h *Hub) BroadcastToStory(storyID string, event *types.Event) {
	select {
	case h.broadcast <- &BroadcastMessage{StoryID: storyID, Event: event}:
	default:
		slog.Warn("Broadcast channel is full, dropping message",
			slog.String("story_id", storyID),
			slog.String("event", string(event.Type)))
	}
}

func (h *Hub) deliver(message *BroadcastMessage) {
	var failed []*Client

	h.mu.RLock()
	for client := range h.clients {
		if !client.follows(message.StoryID) {
			continue
		}
		if err := client.SendEvent(message.Event); err != nil {
			slog.Error("Failed to send event to client",
				slog.String("user_id", client.userID),
				slog.String("error", err.Error()))
			failed = append(failed, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range failed {
		h.remove(client)
	}
}

// GetConnectedUsers returns the distinct IDs of connected users
func (h *Hub) GetConnectedUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[string]struct{}, len(h.clients))
	users := make([]string, 0, len(h.clients))
	for client := range h.clients {
		if _, ok := seen[client.userID]; ok {
			continue
		}
		seen[client.userID] = struct{}{}
		users = append(users, client.userID)
	}
	return users
}

// GetClientCount returns the number of open connections
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
