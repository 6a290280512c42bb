package handlers

import (
	"encoding/json"

	"github.com/andy2076/school-chat-system/internal/httpx"
	"github.com/andy2076/school-chat-system/internal/service"
	"github.com/gofiber/fiber/v2"
)

type NotificationHandler struct {
	notificationService *service.NotificationService
}

func NewNotificationHandler(notificationService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

type SubscribeInput struct {
	Endpoint string          `json:"endpoint"`
	Keys     json.RawMessage `json:"keys"`
}

// Subscribe stores the caller's push subscription, replacing any
// previous one wholesale.
func (h *NotificationHandler) Subscribe(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	var input SubscribeInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	sub, err := h.notificationService.Subscribe(userID, input.Endpoint, string(input.Keys))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sub)
}

// GetSubscription returns the caller's current push subscription, or
// 404 when none is registered.
func (h *NotificationHandler) GetSubscription(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	sub, err := h.notificationService.GetSubscription(userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(sub)
}

func (h *NotificationHandler) Unsubscribe(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	if err := h.notificationService.Unsubscribe(userID); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
