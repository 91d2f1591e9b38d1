// File: internal/user/model.go
package user

import (
	"time"

	"lostfound_backend/internal/common"

	"github.com/google/uuid"
)

// User is an account known to the service. Identity is owned by Firebase;
// this row carries the role and the active flag that gate every operation.
type User struct {
	common.BaseModel
	FirebaseUID       string  `gorm:"type:varchar(128);uniqueIndex;not null"`
	Email             *string `gorm:"type:varchar(255);index"`
	DisplayName       *string `gorm:"type:varchar(255)"`
	ProfilePictureURL *string `gorm:"type:text"`
	Role              string  `gorm:"type:varchar(20);not null;index"`
	IsActive          bool    `gorm:"not null;index"`
	LastLoginAt       *time.Time
}

// TableName specifies the table name for the User model.
func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the account holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == common.RoleAdmin
}

// UserResponse defines the structure for user data sent in API responses.
type UserResponse struct {
	ID                uuid.UUID  `json:"id"`
	Email             *string    `json:"email,omitempty"`
	DisplayName       *string    `json:"display_name,omitempty"`
	ProfilePictureURL *string    `json:"profile_picture_url,omitempty"`
	Role              string     `json:"role"`
	IsActive          bool       `json:"is_active"`
	CreatedAt         time.Time  `json:"created_at"`
	LastLoginAt       *time.Time `json:"last_login_at,omitempty"`
}

// ToUserResponse converts a User model to a UserResponse DTO.
func ToUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:                u.ID,
		Email:             u.Email,
		DisplayName:       u.DisplayName,
		ProfilePictureURL: u.ProfilePictureURL,
		Role:              u.Role,
		IsActive:          u.IsActive,
		CreatedAt:         u.CreatedAt,
		LastLoginAt:       u.LastLoginAt,
	}
}

// ToUserResponses converts a slice of users.
func ToUserResponses(users []User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, ToUserResponse(&users[i]))
	}
	return out
}
