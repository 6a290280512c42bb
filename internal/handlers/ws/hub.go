package ws

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/andy2076/school-chat-system/internal/models"
	"github.com/gofiber/websocket/v2"
)

// WriterConn is the write side of a socket connection as the hub needs
// it. *websocket.Conn satisfies it; tests substitute fakes.
type WriterConn interface {
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
}

// ClientConnection wraps a WebSocket connection with metadata. A user
// may hold several connections (one per device), each with its own id.
type ClientConnection struct {
	ID           string
	UserID       uint
	Role         models.Role
	Conn         WriterConn
	LastPong     time.Time
	SupportsGzip bool
	PingTicker   *time.Ticker
	CloseChan    chan struct{}

	writeMu sync.Mutex
}

func (c *ClientConnection) write(frameType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.Conn.WriteMessage(frameType, data)
}

// Hub manages active connections and the room subscription registry.
// The registry is process-local and rebuilt from scratch on restart:
// every connection re-subscribes after reconnecting. There is no
// persisted delivery queue; a disconnected client misses live events
// and reconciles through message history.
type Hub struct {
	conns map[string]*ClientConnection
	// rooms maps a room id to the set of subscribed connections.
	rooms map[uint]map[string]*ClientConnection
	mu    sync.RWMutex

	pingInterval time.Duration
	pongTimeout  time.Duration
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	hub := &Hub{
		conns:        make(map[string]*ClientConnection),
		rooms:        make(map[uint]map[string]*ClientConnection),
		pingInterval: 30 * time.Second,
		pongTimeout:  90 * time.Second,
	}

	go hub.connectionHealthChecker()

	return hub
}

// Register adds a client connection with health monitoring.
func (h *Hub) Register(connID string, userID uint, role models.Role, conn WriterConn, supportsGzip bool) *ClientConnection {
	client := &ClientConnection{
		ID:           connID,
		UserID:       userID,
		Role:         role,
		Conn:         conn,
		LastPong:     time.Now(),
		SupportsGzip: supportsGzip,
		PingTicker:   time.NewTicker(h.pingInterval),
		CloseChan:    make(chan struct{}),
	}

	h.mu.Lock()
	h.conns[connID] = client
	total := len(h.conns)
	h.mu.Unlock()

	go h.pingRoutine(client)

	log.Printf("Connection %s (user %d) registered (total: %d, gzip: %v)", connID, userID, total, supportsGzip)
	return client
}

// Unregister removes a connection and all of its room subscriptions.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	client, exists := h.conns[connID]
	if exists {
		if client.PingTicker != nil {
			client.PingTicker.Stop()
		}
		close(client.CloseChan)
		delete(h.conns, connID)
	}
	for roomID, members := range h.rooms {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
	total := len(h.conns)
	h.mu.Unlock()

	if exists {
		log.Printf("Connection %s (user %d) unregistered (total: %d)", connID, client.UserID, total)
	}
}

// Subscribe adds the connection to a room's fan-out group. Membership
// is checked by the caller before subscribing. A connection may be
// subscribed to any number of rooms.
func (h *Hub) Subscribe(connID string, roomID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	client, ok := h.conns[connID]
	if !ok {
		return
	}
	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[string]*ClientConnection)
		h.rooms[roomID] = members
	}
	members[connID] = client
}

// Unsubscribe removes the connection from a room's fan-out group.
func (h *Hub) Unsubscribe(connID string, roomID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(h.rooms, roomID)
	}
}

// IsSubscribed reports whether the connection is in the room's fan-out
// group.
func (h *Hub) IsSubscribed(connID string, roomID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[roomID][connID]
	return ok
}

// SubscriberCount returns the number of connections subscribed to a room.
func (h *Hub) SubscriberCount(roomID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// BroadcastToRoom delivers data to every subscribed connection in the
// room except those belonging to excludeUserID, at most once per
// connection. Delivery is best-effort: a failed write drops the
// connection and the event is not retried.
func (h *Hub) BroadcastToRoom(roomID uint, excludeUserID uint, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("Error marshaling broadcast for room %d: %v", roomID, err)
		return
	}

	h.mu.RLock()
	targets := make([]*ClientConnection, 0, len(h.rooms[roomID]))
	for _, client := range h.rooms[roomID] {
		if client.UserID == excludeUserID {
			continue
		}
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	for _, client := range targets {
		if err := h.send(client, jsonData); err != nil {
			log.Printf("Error delivering to connection %s (user %d): %v", client.ID, client.UserID, err)
			h.Unregister(client.ID)
		}
	}
}

// SendTo delivers data to a single connection.
func (h *Hub) SendTo(connID string, data interface{}) error {
	h.mu.RLock()
	client, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return nil
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return h.send(client, jsonData)
}

// SendErrorTo delivers an error frame to a single connection. Shares
// the serialized write path with broadcasts.
func (h *Hub) SendErrorTo(connID, code, message, details string) error {
	return h.SendTo(connID, ErrorResponse{
		Type:    "error",
		Error:   message,
		Code:    code,
		Details: details,
	})
}

func (h *Hub) send(client *ClientConnection, jsonData []byte) error {
	finalData := jsonData
	frameType := websocket.TextMessage
	// Compress if supported and beneficial (> 512 bytes)
	if client.SupportsGzip && len(jsonData) > 512 {
		if compressed, err := compressData(jsonData); err == nil && len(compressed) < len(jsonData) {
			finalData = compressed
			frameType = websocket.BinaryMessage
		}
	}
	return client.write(frameType, finalData)
}

// MarkPong records pong receipt for connection health tracking.
func (h *Hub) MarkPong(connID string) {
	h.mu.Lock()
	if client, ok := h.conns[connID]; ok {
		client.LastPong = time.Now()
	}
	h.mu.Unlock()
}

// pingRoutine sends periodic ping frames to keep the connection alive.
func (h *Hub) pingRoutine(client *ClientConnection) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Ping routine recovered from panic for connection %s: %v", client.ID, r)
		}
	}()

	for {
		select {
		case <-client.CloseChan:
			return
		case <-client.PingTicker.C:
			h.mu.RLock()
			_, exists := h.conns[client.ID]
			h.mu.RUnlock()
			if !exists {
				return
			}

			if err := client.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				log.Printf("Ping failed for connection %s: %v", client.ID, err)
				h.Unregister(client.ID)
				return
			}
		}
	}
}

// connectionHealthChecker removes connections that stopped answering pings.
func (h *Hub) connectionHealthChecker() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		h.mu.RLock()
		dead := make([]string, 0)
		now := time.Now()
		for connID, client := range h.conns {
			if now.Sub(client.LastPong) > h.pongTimeout {
				dead = append(dead, connID)
			}
		}
		h.mu.RUnlock()

		for _, connID := range dead {
			log.Printf("Removing dead connection %s (no pong received)", connID)
			h.Unregister(connID)
		}
	}
}

// compressData compresses data using gzip
func compressData(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)

	if _, err := gzipWriter.Write(data); err != nil {
		return nil, err
	}

	if err := gzipWriter.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
