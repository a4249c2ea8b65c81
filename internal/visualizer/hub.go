// Package visualizer is the external "visualizer" collaborator
// described alongside the animation controller: it receives a
// throttled copy of the rendered frame and fans it out to connected
// browser clients over WebSocket, plus status/log events for the
// same dashboard.
package visualizer

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/tiko09/ledctrl/internal/color"
)

// MessageType selects what kind of payload a Message carries.
type MessageType string

const (
	MessageTypeFrame        MessageType = "frame"
	MessageTypeArbiterState MessageType = "arbiter_state"
	MessageTypeLog          MessageType = "log"
	MessageTypeNotification MessageType = "notification"
)

// Message is one envelope sent to every connected dashboard client.
type Message struct {
	Type      MessageType            `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Client is one connected dashboard's WebSocket session.
type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan Message
	Hub  *Hub
}

// Hub maintains the set of connected dashboard clients and fans out
// frames and status events to all of them. It implements
// animation.Visualizer via Publish.
type Hub struct {
	clients    map[string]*Client
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a Hub. Call Run in its own goroutine before serving
// WebSocket connections.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run processes registrations and broadcasts until the caller stops
// calling it (typically for the life of the process).
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)
		close(client.Send)
	}
}

func (h *Hub) broadcastMessage(message Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		select {
		case client.Send <- message:
		default:
			// client's send channel is full; drop rather than block the hub
		}
	}
}

// Broadcast sends an arbitrary message to every connected client.
func (h *Hub) Broadcast(messageType MessageType, data map[string]interface{}) {
	h.broadcast <- Message{
		Type:      messageType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// Publish sends a rendered frame to every connected client. It never
// blocks: if the hub's broadcast channel is full, the frame is
// dropped. This satisfies animation.Visualizer.
func (h *Hub) Publish(frame []color.RGB) {
	packed := make([]uint8, len(frame)*3)
	for i, c := range frame {
		packed[i*3] = clampChannel(c.R)
		packed[i*3+1] = clampChannel(c.G)
		packed[i*3+2] = clampChannel(c.B)
	}

	msg := Message{
		Type:      MessageTypeFrame,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"pixels": packed,
		},
	}

	select {
	case h.broadcast <- msg:
	default:
		// hub is saturated; this frame is dropped, matching the
		// Visualizer contract that slow consumers never apply backpressure
	}
}

func clampChannel(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// ClientCount returns the number of connected dashboard clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket upgrades and services one inbound dashboard connection.
func (h *Hub) HandleWebSocket(c *websocket.Conn) {
	client := &Client{
		ID:   generateClientID(),
		Conn: c,
		Send: make(chan Message, 256),
		Hub:  h,
	}

	h.register <- client

	go client.writePump()
	client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(message)
			if err != nil {
				continue
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func generateClientID() string {
	return fmt.Sprintf("client-%d", time.Now().UnixNano())
}
