package handlers

import (
	"strconv"

	"github.com/andy2076/school-chat-system/internal/cache"
	"github.com/andy2076/school-chat-system/internal/handlers/ws"
	"github.com/andy2076/school-chat-system/internal/httpx"
	"github.com/andy2076/school-chat-system/internal/models"
	"github.com/andy2076/school-chat-system/internal/service"
	"github.com/gofiber/fiber/v2"
)

type MessageHandler struct {
	messageService *service.MessageService
	roomService    *service.RoomService
	roomCache      *cache.RoomCache
	hub            *ws.Hub
}

func NewMessageHandler(messageService *service.MessageService, roomService *service.RoomService, roomCache *cache.RoomCache, hub *ws.Hub) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		roomService:    roomService,
		roomCache:      roomCache,
		hub:            hub,
	}
}

type SendMessageInput struct {
	RoomID  uint               `json:"room_id"`
	Content string             `json:"content"`
	Type    models.MessageType `json:"type"`
}

// SendMessage appends a message and fans it out to live subscribers.
// The HTTP response reflects durability only; fan-out is best-effort.
func (h *MessageHandler) SendMessage(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	var input SendMessageInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}
	if input.RoomID == 0 {
		return httpx.BadRequest(c, "missing_room", "room_id is required")
	}

	message, err := h.messageService.Append(input.RoomID, userID, input.Content, input.Type)
	if err != nil {
		return respondServiceError(c, err)
	}
	resp := message.ToResponse()

	// Durable already; live delivery and cache invalidation must not
	// fail the send.
	h.hub.BroadcastToRoom(input.RoomID, userID, ws.NewMessage(resp))
	if memberIDs, err := h.roomService.MemberIDs(input.RoomID); err == nil {
		h.roomCache.InvalidateForRoomMembers(input.RoomID, memberIDs)
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

// GetRoomMessages returns paged history for a room, newest first.
func (h *MessageHandler) GetRoomMessages(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	roomID, err := parseIDParam(c, "roomId")
	if err != nil {
		return httpx.BadRequest(c, "invalid_room_id", "Invalid room id")
	}

	page := 1
	if pageStr := c.Query("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}
	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	messages, err := h.messageService.ListByRoom(roomID, userID, page, limit)
	if err != nil {
		return respondServiceError(c, err)
	}

	responses := make([]models.MessageResponse, 0, len(messages))
	for i := range messages {
		responses = append(responses, messages[i].ToResponse())
	}

	return c.JSON(fiber.Map{
		"messages": responses,
		"page":     page,
		"count":    len(responses),
	})
}

// MarkRead records the caller's read receipt for a message.
func (h *MessageHandler) MarkRead(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	messageID, err := parseIDParam(c, "messageId")
	if err != nil {
		return httpx.BadRequest(c, "invalid_message_id", "Invalid message id")
	}

	if err := h.messageService.MarkRead(messageID, userID); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// GetUnread returns the caller's unread count for one room
// (?room_id=N) or the per-room map across all rooms.
func (h *MessageHandler) GetUnread(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	if roomIDStr := c.Query("room_id"); roomIDStr != "" {
		roomID, err := strconv.ParseUint(roomIDStr, 10, 32)
		if err != nil || roomID == 0 {
			return httpx.BadRequest(c, "invalid_room_id", "Invalid room id")
		}

		if count, ok := h.roomCache.GetUnreadCount(userID, uint(roomID)); ok {
			return c.JSON(fiber.Map{"room_id": roomID, "unread": count})
		}
		count, err := h.messageService.UnreadCount(userID, uint(roomID))
		if err != nil {
			return respondServiceError(c, err)
		}
		_ = h.roomCache.SetUnreadCount(userID, uint(roomID), count)
		return c.JSON(fiber.Map{"room_id": roomID, "unread": count})
	}

	counts, err := h.messageService.UnreadCounts(userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"unread": counts})
}
