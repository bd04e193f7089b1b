// Package realtime pushes intervention triggers and session changes to
// connected front ends over websockets.
package realtime

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"forcefocus/internal/models"
)

const (
	pingInterval  = 30 * time.Second
	readDeadline  = 60 * time.Second
	writeDeadline = 10 * time.Second
	sendBuffer    = 64
)

var upgrader = websocket.Upgrader{
	// The front end is a local webview served from a custom scheme.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SessionSource reports the active session for newly connected clients
type SessionSource func() (models.ActiveSessionInfo, bool)

// Hub fans messages out to every connected websocket client
type Hub struct {
	clients   map[*client]bool
	clientsMu sync.RWMutex
	source    SessionSource
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
	once sync.Once
}

// NewHub creates a hub. source may be nil.
func NewHub(source SessionSource) *Hub {
	return &Hub{
		clients: make(map[*client]bool),
		source:  source,
	}
}

// ServeHTTP upgrades the request to a websocket and registers the client
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Websocket upgrade error: %v", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		hub:  h,
	}

	h.clientsMu.Lock()
	h.clients[c] = true
	h.clientsMu.Unlock()

	if h.source != nil {
		info, active := h.source()
		h.sendTo(c, TypeSessionUpdate, sessionPayload(info, active))
	}

	go c.writePump()
	go c.readPump()
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// BroadcastIntervention pushes an intervention-trigger message
func (h *Hub) BroadcastIntervention(p InterventionPayload) {
	h.broadcast(TypeInterventionTrigger, p)
}

// SessionStarted broadcasts the new session
func (h *Hub) SessionStarted(info models.ActiveSessionInfo) {
	h.broadcast(TypeSessionUpdate, sessionPayload(info, true))
}

// SessionEnded broadcasts that no session is active
func (h *Hub) SessionEnded(models.ActiveSessionInfo) {
	h.broadcast(TypeSessionUpdate, sessionPayload(models.ActiveSessionInfo{}, false))
}

// Close disconnects every client
func (h *Hub) Close() {
	h.clientsMu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clientsMu.Unlock()

	for _, c := range clients {
		h.removeClient(c)
	}
}

func encode(msgType string, payload interface{}) ([]byte, bool) {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		log.Printf("Failed to build %s message: %v", msgType, err)
		return nil, false
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to encode %s message: %v", msgType, err)
		return nil, false
	}
	return data, true
}

func (h *Hub) broadcast(msgType string, payload interface{}) {
	data, ok := encode(msgType, payload)
	if !ok {
		return
	}

	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Slow client, drop the message.
		}
	}
}

func (h *Hub) sendTo(c *client, msgType string, payload interface{}) {
	data, ok := encode(msgType, payload)
	if !ok {
		return
	}

	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	if !h.clients[c] {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (h *Hub) removeClient(c *client) {
	h.clientsMu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.clientsMu.Unlock()

	if ok {
		c.once.Do(func() { close(c.send) })
	}
}

// readPump drains client frames so pongs and close frames are processed
func (c *client) readPump() {
	defer func() {
		c.hub.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Websocket read error: %v", err)
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// PublishIntervention broadcasts a stored intervention event
func (h *Hub) PublishIntervention(ev *models.InterventionEvent) {
	h.BroadcastIntervention(InterventionFromEvent(ev))
}
