package services

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Suggester answers live autocomplete requests
type Suggester interface {
	Suggest(ctx context.Context, prefix string) []string
}

// WebSocketHub manages WebSocket connections for live autocomplete
type WebSocketHub struct {
	// Registered clients
	clients map[*Client]bool

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Stop channel
	stopChan chan struct{}
	stopOnce sync.Once

	suggester Suggester
	logger    *logrus.Logger
	mu        sync.RWMutex
}

// Client represents a WebSocket client connection
type Client struct {
	// The WebSocket connection
	conn *websocket.Conn

	// Buffered channel of outbound messages
	send chan []byte

	// Closed once the connection is torn down
	done      chan struct{}
	closeOnce sync.Once

	clientID string

	// Hub reference
	hub *WebSocketHub

	// Last ping time, unix nanoseconds
	lastPing atomic.Int64
}

// WebSocketMessage represents a message sent over WebSocket
type WebSocketMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// IncomingMessage is a message received from a client
type IncomingMessage struct {
	Type   string `json:"type"`
	Prefix string `json:"prefix"`
}

// SuggestionsPayload is the data of a suggestions message
type SuggestionsPayload struct {
	Prefix      string   `json:"prefixo"`
	Suggestions []string `json:"sugestoes"`
}

const (
	// WebSocket message types
	MessageTypeConnected    = "connected"
	MessageTypeAutocomplete = "autocomplete"
	MessageTypeSuggestions  = "suggestions"
	MessageTypePing         = "ping"
	MessageTypePong         = "pong"
	MessageTypeError        = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewWebSocketHub creates a new WebSocket hub
func NewWebSocketHub(suggester Suggester, logger *logrus.Logger) *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stopChan:   make(chan struct{}),
		suggester:  suggester,
		logger:     logger,
	}
}

// Start runs the WebSocket hub
func (h *WebSocketHub) Start() {
	h.logger.Info("Starting WebSocket hub")

	// Start cleanup routine
	go h.cleanupRoutine()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-h.stopChan:
			h.logger.Info("WebSocket hub stopping")
			return
		}
	}
}

// Stop stops the WebSocket hub and closes every client connection
func (h *WebSocketHub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopChan)

		h.mu.Lock()
		defer h.mu.Unlock()

		for client := range h.clients {
			client.close()
			delete(h.clients, client)
		}
	})
}

// HandleWebSocket upgrades the request and serves the connection
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request, clientID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		conn:     conn,
		send:     make(chan []byte, 256),
		done:     make(chan struct{}),
		clientID: clientID,
		hub:      h,
	}
	client.touch()

	// Register client
	select {
	case h.register <- client:
	case <-h.stopChan:
		conn.Close()
		return
	}

	// Start client goroutines
	go client.writePump()
	go client.readPump()
}

// registerClient registers a new client
func (h *WebSocketHub) registerClient(client *Client) {
	h.mu.Lock()
	select {
	case <-h.stopChan:
		h.mu.Unlock()
		client.close()
		return
	default:
	}
	h.clients[client] = true
	h.mu.Unlock()

	h.logger.Infof("WebSocket client connected: client=%s", client.clientID)

	// Send welcome message
	client.sendMessage(MessageTypeConnected, map[string]interface{}{"client_id": client.clientID})
}

// unregisterClient unregisters a client
func (h *WebSocketHub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		client.close()
		h.logger.Infof("WebSocket client disconnected: client=%s", client.clientID)
	}
}

// cleanupRoutine periodically cleans up inactive connections
func (h *WebSocketHub) cleanupRoutine() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.cleanupInactiveClients(time.Now().Add(-inactiveAfter))
		case <-h.stopChan:
			return
		}
	}
}

// cleanupInactiveClients removes clients that haven't pinged since cutoff
func (h *WebSocketHub) cleanupInactiveClients(cutoff time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	removed := 0
	for client := range h.clients {
		if client.lastSeen().Before(cutoff) {
			h.logger.Infof("Cleaning up inactive WebSocket client: client=%s", client.clientID)
			client.close()
			delete(h.clients, client)
			removed++
		}
	}
	return removed
}

// GetClientCount returns the number of connected clients
func (h *WebSocketHub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Client methods

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512

	// Clients silent for longer are dropped
	inactiveAfter = 5 * time.Minute

	// Upper bound of one live suggestion lookup
	suggestTimeout = 10 * time.Second
)

func (c *Client) touch() {
	c.lastPing.Store(time.Now().UnixNano())
}

func (c *Client) lastSeen() time.Time {
	return time.Unix(0, c.lastPing.Load())
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// enqueue queues data for the write pump. Slow clients lose the message.
func (c *Client) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- data:
		return true
	default:
		c.hub.logger.Warnf("WebSocket send buffer full, dropping message: client=%s", c.clientID)
		return false
	}
}

func (c *Client) sendMessage(msgType string, data interface{}) bool {
	payload, err := json.Marshal(&WebSocketMessage{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		c.hub.logger.Errorf("Failed to marshal WebSocket message: %v", err)
		return false
	}
	return c.enqueue(payload)
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.stopChan:
		}
		c.close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.touch()
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Errorf("WebSocket error: %v", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// handleMessage handles incoming messages from the client
func (c *Client) handleMessage(message []byte) {
	var msg IncomingMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.hub.logger.Warnf("Invalid WebSocket message from client %s: %v", c.clientID, err)
		c.sendMessage(MessageTypeError, map[string]string{"message": "mensagem inválida"})
		return
	}

	c.touch()

	switch msg.Type {
	case MessageTypePing:
		c.sendMessage(MessageTypePong, nil)

	case MessageTypeAutocomplete:
		prefix := strings.ToLower(strings.TrimSpace(msg.Prefix))

		ctx, cancel := context.WithTimeout(context.Background(), suggestTimeout)
		suggestions := c.hub.suggester.Suggest(ctx, prefix)
		cancel()

		c.sendMessage(MessageTypeSuggestions, SuggestionsPayload{
			Prefix:      prefix,
			Suggestions: suggestions,
		})

	default:
		c.hub.logger.Debugf("Ignoring WebSocket message type %q from client %s", msg.Type, c.clientID)
	}
}
