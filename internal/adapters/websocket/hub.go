package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/trimwell/insight-service/internal/core/domain"
	"github.com/trimwell/insight-service/internal/core/ports"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client represents a websocket connection
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID string
	role   string
}

// Hub maintains the set of active clients and routes summary pushes.
// Summaries go to the clients of the user who owns the data; ADMIN
// connections receive every summary.
type Hub struct {
	clients      map[*Client]bool
	register     chan *Client
	unregister   chan *Client
	mu           sync.RWMutex
	userClients  map[string]map[*Client]bool
	adminClients map[*Client]bool
	connections  *prometheus.GaugeVec
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients:      make(map[*Client]bool),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		userClients:  make(map[string]map[*Client]bool),
		adminClients: make(map[*Client]bool),
	}
}

// SetConnectionsGauge attaches a per-role connection gauge. Must be called
// before Run.
func (h *Hub) SetConnectionsGauge(g *prometheus.GaugeVec) {
	h.connections = g
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			if client.role == "ADMIN" {
				h.adminClients[client] = true
			}
			if h.userClients[client.userID] == nil {
				h.userClients[client.userID] = make(map[*Client]bool)
			}
			h.userClients[client.userID][client] = true
			if h.connections != nil {
				h.connections.WithLabelValues(strings.ToLower(client.role)).Inc()
			}
			log.Printf("WebSocket client connected: user_id=%s role=%s (total: %d)",
				client.userID, client.role, len(h.clients))
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				h.removeClientLocked(client)
				close(client.send)
				log.Printf("WebSocket client disconnected: user_id=%s (total: %d)",
					client.userID, len(h.clients))
			}
			h.mu.Unlock()
		}
	}
}

// removeClientLocked drops a client from every index. Caller holds h.mu.
func (h *Hub) removeClientLocked(client *Client) {
	delete(h.clients, client)
	delete(h.adminClients, client)
	if set, ok := h.userClients[client.userID]; ok {
		delete(set, client)
		if len(set) == 0 {
			delete(h.userClients, client.userID)
		}
	}
	if h.connections != nil {
		h.connections.WithLabelValues(strings.ToLower(client.role)).Dec()
	}
}

// BroadcastSummary pushes a freshly computed daily summary to the owning
// user's clients and to all connected admins
// Implements SummaryBroadcaster interface
func (h *Hub) BroadcastSummary(userID uuid.UUID, summary *domain.DailySummary) {
	message, err := json.Marshal(summary)
	if err != nil {
		log.Printf("Failed to marshal summary for broadcast: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	sent := 0
	deliver := func(client *Client) {
		select {
		case client.send <- message:
			sent++
		default:
			// Slow client, drop it
			close(client.send)
			h.removeClientLocked(client)
		}
	}

	for client := range h.userClients[userID.String()] {
		deliver(client)
	}
	for client := range h.adminClients {
		if client.userID == userID.String() {
			continue // already delivered through the user index
		}
		deliver(client)
	}

	if sent > 0 {
		log.Printf("Broadcasted summary to %d clients: user_id=%s date=%s", sent, userID, summary.Date)
	}
}

// ConnectedClientCount returns the number of connected clients
func (h *Hub) ConnectedClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the HTTP connection and registers the client with the hub
func ServeWS(hub *Hub, w http.ResponseWriter, r *http.Request, userID, role string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		userID: userID,
		role:   role,
	}
	hub.register <- client

	go client.writePump()
	go client.readPump()

	return nil
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Ensure Hub implements SummaryBroadcaster
var _ ports.SummaryBroadcaster = (*Hub)(nil)
