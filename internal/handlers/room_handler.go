package handlers

import (
	"strconv"

	"github.com/andy2076/school-chat-system/internal/cache"
	"github.com/andy2076/school-chat-system/internal/httpx"
	"github.com/andy2076/school-chat-system/internal/middleware"
	"github.com/andy2076/school-chat-system/internal/models"
	"github.com/andy2076/school-chat-system/internal/service"
	"github.com/gofiber/fiber/v2"
)

type RoomHandler struct {
	roomService *service.RoomService
	roomCache   *cache.RoomCache
}

func NewRoomHandler(roomService *service.RoomService, roomCache *cache.RoomCache) *RoomHandler {
	return &RoomHandler{
		roomService: roomService,
		roomCache:   roomCache,
	}
}

type CreateRoomInput struct {
	Name      string          `json:"name"`
	Type      models.RoomType `json:"type"`
	MemberIDs []uint          `json:"member_ids"`
}

type UpdateMembersInput struct {
	Action    service.MemberAction `json:"action"`
	MemberIDs []uint               `json:"member_ids"`
}

// GetRooms lists the caller's rooms with previews and unread counts,
// most recent activity first.
func (h *RoomHandler) GetRooms(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	// Try cache first; the room list is derived data with a short TTL.
	if cached, ok := h.roomCache.GetRoomList(userID); ok {
		return c.JSON(fiber.Map{"rooms": cached, "count": len(cached)})
	}

	summaries, err := h.roomService.ListRoomsForUser(userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	_ = h.roomCache.SetRoomList(userID, summaries)

	return c.JSON(fiber.Map{"rooms": summaries, "count": len(summaries)})
}

func (h *RoomHandler) GetRoom(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	roomID, err := parseIDParam(c, "roomId")
	if err != nil {
		return httpx.BadRequest(c, "invalid_room_id", "Invalid room id")
	}
	role, _ := c.Locals("role").(models.Role)

	detail, err := h.roomService.GetRoom(roomID, userID, role)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(detail)
}

// CreateRoom creates a room; teacher or above (enforced by middleware,
// re-checked in the service).
func (h *RoomHandler) CreateRoom(c *fiber.Ctx) error {
	claims, ok := middleware.LocalClaims(c)
	if !ok {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	var input CreateRoomInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	room, err := h.roomService.CreateRoom(input.Name, input.Type, claims, input.MemberIDs)
	if err != nil {
		return respondServiceError(c, err)
	}

	for i := range room.Members {
		_ = h.roomCache.InvalidateRoomList(room.Members[i].UserID)
	}

	return c.Status(fiber.StatusCreated).JSON(room.ToDetail())
}

func (h *RoomHandler) UpdateMembers(c *fiber.Ctx) error {
	claims, ok := middleware.LocalClaims(c)
	if !ok {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	roomID, err := parseIDParam(c, "roomId")
	if err != nil {
		return httpx.BadRequest(c, "invalid_room_id", "Invalid room id")
	}

	var input UpdateMembersInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	if err := h.roomService.UpdateMembers(roomID, input.Action, input.MemberIDs, claims); err != nil {
		return respondServiceError(c, err)
	}

	for _, userID := range input.MemberIDs {
		_ = h.roomCache.InvalidateRoomList(userID)
	}
	if memberIDs, err := h.roomService.MemberIDs(roomID); err == nil {
		h.roomCache.InvalidateForRoomMembers(roomID, memberIDs)
	}

	return c.JSON(fiber.Map{"status": "ok"})
}

// DeleteRoom soft-deletes a room. Admin only (enforced by middleware,
// re-checked in the service).
func (h *RoomHandler) DeleteRoom(c *fiber.Ctx) error {
	claims, ok := middleware.LocalClaims(c)
	if !ok {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	roomID, err := parseIDParam(c, "roomId")
	if err != nil {
		return httpx.BadRequest(c, "invalid_room_id", "Invalid room id")
	}

	memberIDs, _ := h.roomService.MemberIDs(roomID)

	if err := h.roomService.DeleteRoom(roomID, claims); err != nil {
		return respondServiceError(c, err)
	}

	h.roomCache.InvalidateForRoomMembers(roomID, memberIDs)

	return c.JSON(fiber.Map{"status": "ok"})
}

func parseIDParam(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, fiber.ErrBadRequest
	}
	return uint(id), nil
}
