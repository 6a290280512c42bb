package models

import (
	"time"

	"gorm.io/gorm"
)

type RoomType string

const (
	IndividualRoom RoomType = "individual"
	GroupRoom      RoomType = "group"
)

type Room struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name      string   `gorm:"not null" json:"name"`
	Type      RoomType `gorm:"type:varchar(20);not null;default:group" json:"type"`
	CreatedBy uint     `gorm:"not null" json:"created_by"`

	// Bumped by every appended message; never moves backwards.
	LastActivityAt time.Time `gorm:"not null;index" json:"last_activity_at"`

	Members []RoomMember `gorm:"foreignKey:RoomID" json:"members,omitempty"`
}

type RoomMember struct {
	ID       uint      `gorm:"primarykey" json:"id"`
	RoomID   uint      `gorm:"not null;uniqueIndex:idx_room_user" json:"room_id"`
	UserID   uint      `gorm:"not null;uniqueIndex:idx_room_user;index" json:"user_id"`
	User     User      `gorm:"foreignKey:UserID" json:"user"`
	JoinedAt time.Time `gorm:"not null" json:"joined_at"`
}

// RoomSummary is a room list entry: room metadata plus the last message
// preview and the caller's unread count.
type RoomSummary struct {
	ID             uint             `json:"id"`
	Name           string           `json:"name"`
	Type           RoomType         `json:"type"`
	LastActivityAt time.Time        `json:"last_activity_at"`
	LastMessage    *MessageResponse `json:"last_message,omitempty"`
	UnreadCount    int64            `json:"unread_count"`
}

type RoomDetail struct {
	ID             uint           `json:"id"`
	Name           string         `json:"name"`
	Type           RoomType       `json:"type"`
	CreatedBy      uint           `json:"created_by"`
	CreatedAt      time.Time      `json:"created_at"`
	LastActivityAt time.Time      `json:"last_activity_at"`
	Members        []UserResponse `json:"members"`
}

func (r *Room) ToDetail() RoomDetail {
	members := make([]UserResponse, 0, len(r.Members))
	for i := range r.Members {
		members = append(members, r.Members[i].User.ToResponse())
	}
	return RoomDetail{
		ID:             r.ID,
		Name:           r.Name,
		Type:           r.Type,
		CreatedBy:      r.CreatedBy,
		CreatedAt:      r.CreatedAt,
		LastActivityAt: r.LastActivityAt,
		Members:        members,
	}
}
