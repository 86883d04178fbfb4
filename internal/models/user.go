package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Username     string `gorm:"uniqueIndex;not null" json:"username"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	FullName     string `json:"full_name"`
	Role         string `gorm:"not null;default:user" json:"role"`

	Avatar            string     `json:"avatar"`
	AvatarKey         string     `json:"-"`
	AvatarContentType string     `json:"-"`
	AvatarSizeBytes   int64      `json:"-"`
	AvatarETag        string     `json:"-"`
	AvatarUpdatedAt   *time.Time `json:"-"`

	// When false, other users cannot start NEW conversations with this
	// user; existing threads stay accessible.
	ReceiveMessages bool `gorm:"default:true" json:"receive_messages"`

	IsOnline bool       `gorm:"default:false" json:"is_online"`
	LastSeen *time.Time `json:"last_seen"`
}

// UserFavoritePlant is one element of a user's favorite-plant set.
// Adds and removes are single-row operations so concurrent updates
// never overwrite the whole set.
type UserFavoritePlant struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	PlantID   string    `gorm:"primaryKey;type:varchar(64)" json:"plant_id"`
	CreatedAt time.Time `json:"created_at"`
}

type UserResponse struct {
	ID              uint       `json:"id"`
	Username        string     `json:"username"`
	Email           string     `json:"email"`
	FullName        string     `json:"full_name"`
	Avatar          string     `json:"avatar"`
	Role            string     `json:"role"`
	ReceiveMessages bool       `json:"receive_messages"`
	IsOnline        bool       `json:"is_online"`
	LastSeen        *time.Time `json:"last_seen"`
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:              u.ID,
		Username:        u.Username,
		Email:           u.Email,
		FullName:        u.FullName,
		Avatar:          u.Avatar,
		Role:            u.Role,
		ReceiveMessages: u.ReceiveMessages,
		IsOnline:        u.IsOnline,
		LastSeen:        u.LastSeen,
	}
}
