package ws

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/chaseparty/chase-backend/internal/types"
)

const sendBuffer = 32

type client struct {
	id   string
	send chan []byte
}

// Hub is the connection registry and fan-out side of the transport. It maps
// connections to room channels and pushes encoded messages into per-client
// send buffers; it never touches session state.
type Hub struct {
	mu      sync.Mutex
	clients map[string]*client
	rooms   map[string]map[string]bool // room code -> set of conn ids
	log     *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*client),
		rooms:   make(map[string]map[string]bool),
		log:     log,
	}
}

// Attach registers a connection and returns the channel its writer goroutine
// drains. The channel is closed on Detach.
func (h *Hub) Attach(connID string) <-chan []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	c := &client{id: connID, send: make(chan []byte, sendBuffer)}
	h.clients[connID] = c
	return c.send
}

// Detach drops the connection from every room and closes its send channel.
func (h *Hub) Detach(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[connID]
	if !ok {
		return
	}
	delete(h.clients, connID)
	for code, members := range h.rooms {
		if members[connID] {
			delete(members, connID)
			if len(members) == 0 {
				delete(h.rooms, code)
			}
		}
	}
	close(c.send)
}

// Subscribe adds the connection to a room's broadcast channel.
func (h *Hub) Subscribe(connID, code string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[connID]; !ok {
		return
	}
	if h.rooms[code] == nil {
		h.rooms[code] = make(map[string]bool)
	}
	h.rooms[code][connID] = true
}

// Unsubscribe removes the connection from a room's broadcast channel.
func (h *Hub) Unsubscribe(connID, code string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[code]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, code)
		}
	}
}

// DropRoom discards a room's broadcast channel once the room is reclaimed.
func (h *Hub) DropRoom(code string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, code)
}

// Send delivers a message to a single connection.
func (h *Hub) Send(connID string, msg types.ServerMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("marshal server message", zap.Error(err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[connID]; ok {
		h.push(c, payload)
	}
}

// ToRoom broadcasts to every connection subscribed to the room.
func (h *Hub) ToRoom(code string, msg types.ServerMessage) {
	h.toRoom(code, "", msg)
}

// ToRoomExcept broadcasts to the room, skipping one connection. Used when the
// sender already received a direct response for the same mutation.
func (h *Hub) ToRoomExcept(code, exceptConnID string, msg types.ServerMessage) {
	h.toRoom(code, exceptConnID, msg)
}

func (h *Hub) toRoom(code, except string, msg types.ServerMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("marshal server message", zap.Error(err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for connID := range h.rooms[code] {
		if connID == except {
			continue
		}
		if c, ok := h.clients[connID]; ok {
			h.push(c, payload)
		}
	}
}

// ToAll broadcasts to every connected client, room member or not. Used for
// the public room listing.
func (h *Hub) ToAll(msg types.ServerMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("marshal server message", zap.Error(err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		h.push(c, payload)
	}
}

// push is non-blocking: a client whose buffer is full misses the message
// rather than stalling the broadcast.
func (h *Hub) push(c *client, payload []byte) {
	select {
	case c.send <- payload:
	default:
		h.log.Warn("client send buffer full, dropping message", zap.String("conn", c.id))
	}
}

// NumClients reports the number of attached connections.
func (h *Hub) NumClients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
