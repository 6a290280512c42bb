package testutil

import (
	"os"
	"testing"
	"time"

	"github.com/andy2076/school-chat-system/internal/models"
	"gorm.io/gorm"
)

// TestHelper provides utility functions for tests
type TestHelper struct {
	t *testing.T
}

func NewTestHelper(t *testing.T) *TestHelper {
	return &TestHelper{t: t}
}

// CreateTestUser creates a test user with default values
func (h *TestHelper) CreateTestUser(id uint, lineUserID string, role models.Role) *models.User {
	if id == 0 {
		id = 1
	}
	if lineUserID == "" {
		lineUserID = "U_test_user"
	}
	if role == "" {
		role = models.RoleParent
	}

	return &models.User{
		ID:          id,
		LineUserID:  lineUserID,
		DisplayName: "Test User",
		Role:        role,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
}

// CreateTestRoom creates a test room with default values
func (h *TestHelper) CreateTestRoom(id uint, name string, roomType models.RoomType) *models.Room {
	if id == 0 {
		id = 1
	}
	if name == "" {
		name = "Test Room"
	}
	if roomType == "" {
		roomType = models.GroupRoom
	}

	return &models.Room{
		ID:             id,
		Name:           name,
		Type:           roomType,
		CreatedBy:      1,
		LastActivityAt: time.Now(),
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
}

// CreateTestMessage creates a test message with default values
func (h *TestHelper) CreateTestMessage(id uint, roomID, senderID uint, content string) *models.Message {
	if id == 0 {
		id = 1
	}
	if roomID == 0 {
		roomID = 1
	}
	if senderID == 0 {
		senderID = 1
	}
	if content == "" {
		content = "Test message"
	}

	return &models.Message{
		ID:        id,
		RoomID:    roomID,
		Seq:       uint64(id),
		SenderID:  senderID,
		Content:   content,
		Type:      models.TextMessage,
		CreatedAt: time.Now(),
		Sender: models.User{
			ID:          senderID,
			LineUserID:  "U_sender",
			DisplayName: "Sender",
			Role:        models.RoleTeacher,
		},
	}
}

// SetupTestEnv sets up required environment variables for testing
func (h *TestHelper) SetupTestEnv() {
	os.Setenv("JWT_SECRET", "test-secret-key-for-testing-only")
	os.Setenv("DATABASE_URL", "")
	os.Setenv("MAX_MESSAGE_LENGTH", "1000")
}

// TeardownTestEnv cleans up environment variables after testing
func (h *TestHelper) TeardownTestEnv() {
	os.Unsetenv("JWT_SECRET")
	os.Unsetenv("DATABASE_URL")
	os.Unsetenv("MAX_MESSAGE_LENGTH")
}

// AssertError checks if an error occurred when it should (or shouldn't)
func (h *TestHelper) AssertError(err error, shouldErr bool, testName string) {
	if (err != nil) != shouldErr {
		if shouldErr {
			h.t.Errorf("%s: expected error but got nil", testName)
		} else {
			h.t.Errorf("%s: unexpected error: %v", testName, err)
		}
	}
}

// AssertEqual checks if two values are equal
func (h *TestHelper) AssertEqual(got, want interface{}, testName string) {
	if got != want {
		h.t.Errorf("%s: got %v, want %v", testName, got, want)
	}
}

// GetRecordNotFoundError returns an error that mimics gorm.ErrRecordNotFound
func GetRecordNotFoundError() error {
	return gorm.ErrRecordNotFound
}
