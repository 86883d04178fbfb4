package models

import (
	"time"

	"gorm.io/gorm"
)

type Community struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name        string `gorm:"uniqueIndex;size:64;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Image       string `json:"image"`

	CreatorID uint `gorm:"not null;index" json:"creator_id"`
	Creator   User `gorm:"foreignKey:CreatorID" json:"creator"`

	// Computed at query time.
	MemberCount int64 `gorm:"-" json:"member_count"`
	IsMember    bool  `gorm:"-" json:"is_member"`
}

// CommunityMember is one element of a community's member set.
// Joining is an idempotent single-row insert; membership is derived
// by testing containment.
type CommunityMember struct {
	CommunityID uint      `gorm:"primaryKey;autoIncrement:false" json:"community_id"`
	UserID      uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
}
