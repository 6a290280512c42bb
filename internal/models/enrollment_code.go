package models

import "time"

// EnrollmentCode is a one-time code handed out by the school that links
// a LINE identity to a student record. A code moves from unused to used
// exactly once, atomically with the creation of the enrolling user.
type EnrollmentCode struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Code      string     `gorm:"uniqueIndex;not null" json:"code"`
	StudentID uint       `gorm:"not null;index" json:"student_id"`
	Student   Student    `gorm:"foreignKey:StudentID" json:"student"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	UsedAt    *time.Time `json:"used_at"`
}

// Expired reports whether the code is past its expiry at the given time.
func (c *EnrollmentCode) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Used reports whether the code has already been consumed.
func (c *EnrollmentCode) Used() bool {
	return c.UsedAt != nil
}
