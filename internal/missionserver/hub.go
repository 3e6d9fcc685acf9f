package missionserver

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/skyward/groundlink/internal/protocol"
)

type client struct {
	room string
	user string
	send chan []byte
	conn *websocket.Conn
}

// writePump drains the client's send queue onto the connection. It exits,
// closing the connection, when the hub closes the queue.
func (c *client) writePump() {
	for data := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			break
		}
	}
	c.conn.Close()
}

type roomMessage struct {
	room string
	data []byte
}

// hub fans frames out to every client in a room and broadcasts a
// members_update envelope whenever a room's population changes.
type hub struct {
	clients    map[string]map[*client]bool // room code -> clients
	register   chan *client
	unregister chan *client
	broadcast  chan roomMessage
	mu         sync.RWMutex
}

func newHub() *hub {
	return &hub{
		clients:    make(map[string]map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan roomMessage),
	}
}

func (h *hub) run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if h.clients[c.room] == nil {
				h.clients[c.room] = make(map[*client]bool)
			}
			h.clients[c.room][c] = true
			h.mu.Unlock()
			h.broadcastMembers(c.room)

		case c := <-h.unregister:
			h.mu.Lock()
			removed := false
			if clients, ok := h.clients[c.room]; ok {
				if _, ok := clients[c]; ok {
					delete(clients, c)
					close(c.send)
					removed = true
				}
				if len(clients) == 0 {
					delete(h.clients, c.room)
				}
			}
			h.mu.Unlock()
			if removed {
				h.broadcastMembers(c.room)
			}

		case msg := <-h.broadcast:
			h.fanOut(msg.room, msg.data)
		}
	}
}

func (h *hub) broadcastMembers(room string) {
	h.mu.RLock()
	count := len(h.clients[room])
	h.mu.RUnlock()
	if count == 0 {
		return
	}

	data, err := json.Marshal(protocol.Envelope{Type: protocol.TypeMembersUpdate, Count: count})
	if err != nil {
		log.Printf("missionserver: marshaling members update: %v", err)
		return
	}
	h.fanOut(room, data)
}

func (h *hub) fanOut(room string, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients[room] {
		select {
		case c.send <- data:
		default:
			close(c.send)
			delete(h.clients[room], c)
		}
	}
}
