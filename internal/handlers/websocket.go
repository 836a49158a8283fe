package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
)

const (
	// heartbeatInterval is how often a status frame goes out so the popup
	// can show connection state
	heartbeatInterval = 5 * time.Second
	// writeTimeout bounds each client write; a client that cannot keep up
	// is dropped instead of blocking the hub
	writeTimeout = 5 * time.Second
)

// WebSocketHub manages the popup's live-update connections
type WebSocketHub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mutex      sync.RWMutex
	logger     arbor.ILogger
	busy       func() bool
}

// NewWebSocketHub creates a new WebSocket hub. busy reports whether an
// analysis run is in flight and may be nil.
func NewWebSocketHub(logger arbor.ILogger, busy func() bool) *WebSocketHub {
	hub := &WebSocketHub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		logger:     logger,
		busy:       busy,
	}
	go hub.run()
	return hub
}

// run manages client connections and broadcasts
func (h *WebSocketHub) run() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			h.logger.Debug().Int("clients", h.ClientCount()).Msg("WebSocket client connected")

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			h.mutex.Unlock()
			h.logger.Debug().Int("clients", h.ClientCount()).Msg("WebSocket client disconnected")

		case message := <-h.broadcast:
			// Write lock: failed clients are removed while iterating
			h.mutex.Lock()
			for client := range h.clients {
				client.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					h.logger.Warn().Err(err).Msg("Failed to send WebSocket message")
					client.Close()
					delete(h.clients, client)
				}
			}
			h.mutex.Unlock()

		case <-ticker.C:
			h.SendStatus("online")
		}
	}
}

// ClientCount reports how many popup connections are attached
func (h *WebSocketHub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// SendStatus broadcasts a status frame to all clients
func (h *WebSocketHub) SendStatus(status string) {
	busy := false
	if h.busy != nil {
		busy = h.busy()
	}
	msg := map[string]interface{}{
		"type":      "status",
		"status":    status,
		"clients":   h.ClientCount(),
		"busy":      busy,
		"timestamp": time.Now().Unix(),
	}
	data, _ := json.Marshal(msg)
	h.broadcast <- data
}

// SendAnalysisUpdate broadcasts analysis lifecycle events to all clients
func (h *WebSocketHub) SendAnalysisUpdate(eventType string, data interface{}) {
	msg := map[string]interface{}{
		"type":      eventType,
		"data":      data,
		"timestamp": time.Now().Unix(),
	}
	jsonData, _ := json.Marshal(msg)
	h.broadcast <- jsonData
}

// Upgrader for WebSocket connections
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for the extension popup
	},
}

// WebSocketHandler handles WebSocket connection requests
func (h *WebSocketHub) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.register <- conn

	// Keep connection alive and handle messages
	go func() {
		defer func() {
			h.unregister <- conn
		}()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}
