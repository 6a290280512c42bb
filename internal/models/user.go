package models

import (
	"time"

	"gorm.io/gorm"
)

// Role is the school-side role of a user. Roles form a total order:
// admin > teacher > parent.
type Role string

const (
	RoleParent  Role = "parent"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

var roleRanks = map[Role]int{
	RoleParent:  1,
	RoleTeacher: 2,
	RoleAdmin:   3,
}

// Rank returns the position of the role in the hierarchy. Unknown
// roles rank below parent.
func (r Role) Rank() int {
	return roleRanks[r]
}

// AtLeast reports whether r ranks at or above min.
func (r Role) AtLeast(min Role) bool {
	return r.Rank() >= min.Rank()
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roleRanks[r]
	return ok
}

type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// LINE user id established by the LIFF login on the frontend.
	LineUserID  string `gorm:"uniqueIndex;not null" json:"line_user_id"`
	DisplayName string `gorm:"not null" json:"display_name"`
	Role        Role   `gorm:"type:varchar(20);not null;default:parent" json:"role"`

	// Staff accounts (teacher/admin) additionally log in with a password.
	Email        *string `gorm:"uniqueIndex" json:"email,omitempty"`
	PasswordHash *string `json:"-"`

	// Parents are linked to the student record their enrollment code named.
	StudentID *uint    `gorm:"index" json:"student_id"`
	Student   *Student `gorm:"foreignKey:StudentID" json:"student,omitempty"`
}

type Student struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	StudentNumber string `gorm:"uniqueIndex;not null" json:"student_number"`
	ClassName     string `json:"class_name"`
	Grade         int    `json:"grade"`
}

type UserResponse struct {
	ID          uint   `json:"id"`
	DisplayName string `json:"display_name"`
	Role        Role   `json:"role"`
	StudentID   *uint  `json:"student_id,omitempty"`
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		StudentID:   u.StudentID,
	}
}
