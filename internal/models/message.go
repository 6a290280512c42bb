package models

import (
	"time"

	"gorm.io/gorm"
)

type MessageType string

const (
	TextMessage   MessageType = "text"
	SystemMessage MessageType = "system"
	ImageMessage  MessageType = "image"
	FileMessage   MessageType = "file"
)

// Valid reports whether t is a known message type.
func (t MessageType) Valid() bool {
	switch t {
	case TextMessage, SystemMessage, ImageMessage, FileMessage:
		return true
	}
	return false
}

// Message is an immutable entry in a room's append-only log. Ordering
// within a room is total: (created_at, seq), with seq assigned under the
// room lock at insert time.
type Message struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	RoomID   uint        `gorm:"not null;uniqueIndex:idx_room_seq" json:"room_id"`
	Seq      uint64      `gorm:"not null;uniqueIndex:idx_room_seq" json:"seq"`
	SenderID uint        `gorm:"not null;index" json:"sender_id"`
	Sender   User        `gorm:"foreignKey:SenderID" json:"sender"`
	Content  string      `gorm:"type:text;not null" json:"content"`
	Type     MessageType `gorm:"type:varchar(20);not null;default:'text'" json:"type"`

	Receipts []ReadReceipt `gorm:"foreignKey:MessageID" json:"-"`
}

// ReadReceipt records that a user has read a message. At most one
// receipt exists per (message, user); re-reading refreshes read_at.
type ReadReceipt struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	MessageID uint      `gorm:"not null;uniqueIndex:idx_message_user" json:"message_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_message_user;index" json:"user_id"`
	ReadAt    time.Time `gorm:"not null" json:"read_at"`
}

type MessageResponse struct {
	ID         uint        `json:"id"`
	RoomID     uint        `json:"room_id"`
	Seq        uint64      `json:"seq"`
	SenderID   uint        `json:"sender_id"`
	SenderName string      `json:"sender_name"`
	SenderRole Role        `json:"sender_role"`
	Content    string      `json:"content"`
	Type       MessageType `json:"type"`
	CreatedAt  time.Time   `json:"created_at"`
}

func (m *Message) ToResponse() MessageResponse {
	return MessageResponse{
		ID:         m.ID,
		RoomID:     m.RoomID,
		Seq:        m.Seq,
		SenderID:   m.SenderID,
		SenderName: m.Sender.DisplayName,
		SenderRole: m.Sender.Role,
		Content:    m.Content,
		Type:       m.Type,
		CreatedAt:  m.CreatedAt,
	}
}
