package models

import "time"

// PushSubscription holds a user's Web Push subscription. One active
// subscription per user; re-subscribing replaces it wholesale.
// Delivery itself is handled by an external push service.
type PushSubscription struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID   uint   `gorm:"not null;uniqueIndex" json:"user_id"`
	Endpoint string `gorm:"type:text;not null" json:"endpoint"`
	Keys     string `gorm:"type:text;not null" json:"keys"`
}
