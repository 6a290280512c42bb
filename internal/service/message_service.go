package service

import (
	"errors"
	"log"
	"time"

	"github.com/andy2076/school-chat-system/internal/models"
	"github.com/andy2076/school-chat-system/internal/repository"
	"github.com/andy2076/school-chat-system/internal/validation"
	"gorm.io/gorm"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 100
)

type MessageService struct {
	messageRepo repository.MessageRepositoryInterface
	roomRepo    repository.RoomRepositoryInterface
	now         func() time.Time
}

func NewMessageService(
	messageRepo repository.MessageRepositoryInterface,
	roomRepo repository.RoomRepositoryInterface,
) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		roomRepo:    roomRepo,
		now:         time.Now,
	}
}

// Append validates and persists a message to the room's log. The sender
// must hold active membership. The message is durable when this
// returns; realtime fan-out happens afterwards and its failure never
// fails the send.
func (s *MessageService) Append(roomID, senderID uint, content string, msgType models.MessageType) (*models.Message, error) {
	if !validation.ValidateMessageContent(content) {
		return nil, ErrValidation
	}
	if msgType == "" {
		msgType = models.TextMessage
	}
	if !msgType.Valid() {
		return nil, ErrValidation
	}

	if _, err := s.roomRepo.FindByID(roomID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		log.Printf("append: room %d: %v", roomID, err)
		return nil, ErrUnavailable
	}
	member, err := s.roomRepo.IsMember(roomID, senderID)
	if err != nil {
		log.Printf("append: membership room %d: %v", roomID, err)
		return nil, ErrUnavailable
	}
	if !member {
		return nil, ErrForbidden
	}

	message := &models.Message{
		RoomID:   roomID,
		SenderID: senderID,
		Content:  content,
		Type:     msgType,
	}
	if err := s.messageRepo.Append(message); err != nil {
		log.Printf("append: room %d: %v", roomID, err)
		return nil, ErrUnavailable
	}

	// Reload with sender info for rendering and fan-out.
	persisted, err := s.messageRepo.FindByID(message.ID)
	if err != nil {
		log.Printf("append: reload %d: %v", message.ID, err)
		return nil, ErrUnavailable
	}
	return persisted, nil
}

// ListByRoom returns a page of messages, newest first. Pages are
// 1-indexed; the limit is capped server-side regardless of the request.
func (s *MessageService) ListByRoom(roomID, userID uint, page, limit int) ([]models.Message, error) {
	member, err := s.roomRepo.IsMember(roomID, userID)
	if err != nil {
		log.Printf("list: membership room %d: %v", roomID, err)
		return nil, ErrUnavailable
	}
	if !member {
		return nil, ErrForbidden
	}

	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	messages, err := s.messageRepo.ListByRoom(roomID, (page-1)*limit, limit)
	if err != nil {
		log.Printf("list: room %d: %v", roomID, err)
		return nil, ErrUnavailable
	}
	return messages, nil
}

// MarkRead upserts the caller's read receipt for a message. Idempotent:
// re-marking refreshes read_at and never duplicates the receipt.
func (s *MessageService) MarkRead(messageID, userID uint) error {
	if _, err := s.messageRepo.FindByID(messageID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		log.Printf("mark read: message %d: %v", messageID, err)
		return ErrUnavailable
	}
	if err := s.messageRepo.MarkRead(messageID, userID, s.now()); err != nil {
		log.Printf("mark read: message %d: %v", messageID, err)
		return ErrUnavailable
	}
	return nil
}

// UnreadCount derives the user's unread count for one room. The caller
// must hold active membership.
func (s *MessageService) UnreadCount(userID, roomID uint) (int64, error) {
	member, err := s.roomRepo.IsMember(roomID, userID)
	if err != nil {
		log.Printf("unread: membership room %d: %v", roomID, err)
		return 0, ErrUnavailable
	}
	if !member {
		return 0, ErrForbidden
	}
	count, err := s.messageRepo.UnreadCount(userID, roomID)
	if err != nil {
		log.Printf("unread: room %d: %v", roomID, err)
		return 0, ErrUnavailable
	}
	return count, nil
}

// UnreadCounts derives the per-room unread map across all of the
// user's rooms.
func (s *MessageService) UnreadCounts(userID uint) (map[uint]int64, error) {
	counts, err := s.messageRepo.UnreadCounts(userID)
	if err != nil {
		log.Printf("unread: user %d: %v", userID, err)
		return nil, ErrUnavailable
	}
	return counts, nil
}
