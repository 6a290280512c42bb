package repository

import (
	"time"

	"github.com/andy2076/school-chat-system/internal/models"
)

// UserRepositoryInterface defines the contract for user repository operations
type UserRepositoryInterface interface {
	Create(user *models.User) error
	FindByID(id uint) (*models.User, error)
	FindByLineUserID(lineUserID string) (*models.User, error)
	FindByEmail(email string) (*models.User, error)
	Update(user *models.User) error
}

// EnrollmentCodeRepositoryInterface defines the contract for one-time
// enrollment code operations
type EnrollmentCodeRepositoryInterface interface {
	Create(code *models.EnrollmentCode) error
	FindByCode(code string) (*models.EnrollmentCode, error)
	// Consume marks the code used and creates the user in one
	// transaction. The used_at update is guarded on used_at IS NULL, so
	// exactly one concurrent caller wins; the losers get (false, nil)
	// and no user row.
	Consume(codeID uint, usedAt time.Time, user *models.User) (bool, error)
}

// RoomRepositoryInterface defines the contract for room directory operations
type RoomRepositoryInterface interface {
	// Create persists the room, its memberships and the announcement
	// system message in one transaction.
	Create(room *models.Room, memberIDs []uint, announcement *models.Message) error
	FindByID(id uint) (*models.Room, error)
	FindIndividualByPair(userID1, userID2 uint) (*models.Room, error)
	ListForUser(userID uint) ([]models.Room, error)
	IsMember(roomID, userID uint) (bool, error)
	MemberCount(roomID uint) (int64, error)
	AddMembers(roomID uint, userIDs []uint) error
	RemoveMember(roomID, userID uint) error
	// SoftDelete marks the room deleted and cascades the flag to its
	// messages. History is retained indefinitely.
	SoftDelete(roomID uint) error
}

// MessageRepositoryInterface defines the contract for the per-room
// message log and read receipts
type MessageRepositoryInterface interface {
	// Append assigns the next per-room sequence under a room row lock,
	// persists the message and bumps the room's last activity.
	Append(message *models.Message) error
	FindByID(id uint) (*models.Message, error)
	ListByRoom(roomID uint, offset, limit int) ([]models.Message, error)
	LatestByRooms(roomIDs []uint) (map[uint]*models.Message, error)
	// MarkRead upserts the (message, user) receipt; last write wins on
	// read_at.
	MarkRead(messageID, userID uint, readAt time.Time) error
	UnreadCount(userID, roomID uint) (int64, error)
	UnreadCounts(userID uint) (map[uint]int64, error)
}

// PushSubscriptionRepositoryInterface defines the contract for push
// subscription storage
type PushSubscriptionRepositoryInterface interface {
	Upsert(sub *models.PushSubscription) error
	DeleteForUser(userID uint) error
	FindByUser(userID uint) (*models.PushSubscription, error)
}
