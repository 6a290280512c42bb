package handlers

import (
	"time"

	"github.com/andy2076/school-chat-system/internal/httpx"
	"github.com/andy2076/school-chat-system/internal/middleware"
	"github.com/andy2076/school-chat-system/internal/service"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type EnrollInput struct {
	LineUserID  string `json:"line_user_id"`
	DisplayName string `json:"display_name"`
	Code        string `json:"code"`
}

type StaffLoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type IssueCodeInput struct {
	StudentID uint `json:"student_id"`
	TTLHours  int  `json:"ttl_hours"`
}

// Enroll exchanges a LINE identity plus one-time code for a session.
func (h *AuthHandler) Enroll(c *fiber.Ctx) error {
	var input EnrollInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	user, err := h.authService.Enroll(input.LineUserID, input.DisplayName, input.Code)
	if err != nil {
		return respondServiceError(c, err)
	}

	token, err := h.authService.IssueSession(user)
	if err != nil {
		return httpx.Internal(c, "issue_session_failed")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": token,
		"user":  user.ToResponse(),
	})
}

// StaffLogin authenticates a teacher or admin with email and password.
func (h *AuthHandler) StaffLogin(c *fiber.Ctx) error {
	var input StaffLoginInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	user, err := h.authService.StaffLogin(input.Email, input.Password)
	if err != nil {
		return respondServiceError(c, err)
	}

	token, err := h.authService.IssueSession(user)
	if err != nil {
		return httpx.Internal(c, "issue_session_failed")
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user.ToResponse(),
	})
}

// Verify confirms the presented credential is still valid.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	claims, ok := middleware.LocalClaims(c)
	if !ok {
		return httpx.Unauthorized(c, "credential_invalid", "Invalid credential")
	}
	return c.JSON(fiber.Map{
		"user_id":    claims.UserID,
		"role":       claims.Role,
		"student_id": claims.StudentID,
		"expires_at": claims.ExpiresAt,
	})
}

// Logout is stateless: the client discards the credential. The endpoint
// exists so clients have a uniform place to end the session.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// IssueCode mints a one-time enrollment code for a student. Admin only
// (enforced by route middleware).
func (h *AuthHandler) IssueCode(c *fiber.Ctx) error {
	var input IssueCodeInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	code, err := h.authService.IssueEnrollmentCode(input.StudentID, time.Duration(input.TTLHours)*time.Hour)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(code)
}
