package handlers

import (
	"log"
	"os"

	"github.com/andy2076/school-chat-system/internal/cache"
	"github.com/andy2076/school-chat-system/internal/handlers/ws"
	"github.com/andy2076/school-chat-system/internal/models"
	"github.com/andy2076/school-chat-system/internal/service"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

type WebSocketHandler struct {
	messageService *service.MessageService
	roomService    *service.RoomService
	hub            *ws.Hub
	userCache      *cache.UserCache
	roomCache      *cache.RoomCache
}

func NewWebSocketHandler(messageService *service.MessageService, roomService *service.RoomService, userCache *cache.UserCache, roomCache *cache.RoomCache) *WebSocketHandler {
	return &WebSocketHandler{
		messageService: messageService,
		roomService:    roomService,
		hub:            ws.NewHub(),
		userCache:      userCache,
		roomCache:      roomCache,
	}
}

// GetHub returns the hub instance (useful for sending messages from other handlers)
func (h *WebSocketHandler) GetHub() *ws.Hub {
	return h.hub
}

func (h *WebSocketHandler) HandleWebSocket(c *websocket.Conn) {
	userID := c.Locals("userID").(uint)
	role, _ := c.Locals("role").(models.Role)
	wsDebug := os.Getenv("WS_DEBUG") == "true"

	// Check if client supports gzip compression (via query param or header)
	supportsGzip := c.Query("gzip") == "1" || c.Headers("X-Supports-Gzip") == "1"

	// Each device gets its own connection id; subscriptions and delivery
	// are per connection, not per user.
	connID := uuid.NewString()
	h.hub.Register(connID, userID, role, c, supportsGzip)

	c.SetPongHandler(func(string) error {
		h.hub.MarkPong(connID)
		if h.userCache != nil {
			_ = h.userCache.RefreshUserOnline(userID)
		}
		return nil
	})

	// Mark user online
	go func() {
		if err := h.userCache.SetUserOnline(userID); err != nil {
			log.Printf("Failed to set user %d online in cache: %v", userID, err)
		}
	}()

	defer func() {
		h.hub.Unregister(connID)
		go func() {
			if err := h.userCache.SetUserOffline(userID); err != nil {
				log.Printf("Failed to set user %d offline in cache: %v", userID, err)
			}
		}()
	}()

	log.Printf("User %d connected via WebSocket (conn %s)", userID, connID)

	// Create message context
	ctx := &ws.MessageContext{
		ConnID:         connID,
		UserID:         userID,
		Role:           role,
		Hub:            h.hub,
		MessageService: h.messageService,
		RoomService:    h.roomService,
		RoomCache:      h.roomCache,
	}

	// Handle incoming messages
	for {
		messageType, messageBytes, err := c.ReadMessage()
		if err != nil {
			log.Printf("Error reading message from user %d: %v", userID, err)
			break
		}

		if wsDebug {
			log.Printf("ws_recv user_id=%d conn=%s frame_type=%d size=%d", userID, connID, messageType, len(messageBytes))
		}

		// Decompress if binary message (gzip compressed)
		if messageType == websocket.BinaryMessage {
			decompressed, err := ws.DecompressMessage(messageBytes)
			if err != nil {
				log.Printf("Error decompressing message from user %d: %v", userID, err)
				h.hub.SendErrorTo(connID, "decompression_failed", "Failed to decompress message", err.Error())
				continue
			}
			messageBytes = decompressed
		}

		// Deserialize message
		msg, err := ws.Deserialize(messageBytes)
		if err != nil {
			log.Printf("Error deserializing message from user %d: %v", userID, err)
			h.hub.SendErrorTo(connID, "invalid_message", "Invalid message format", err.Error())
			continue
		}

		// Process message
		if err := msg.Process(ctx); err != nil {
			log.Printf("Error processing message %s from user %d: %v", msg.GetType(), userID, err)
			h.hub.SendErrorTo(connID, "processing_failed", "Failed to process message", err.Error())
		}
	}

	log.Printf("User %d disconnected from WebSocket (conn %s)", userID, connID)
}
