package models

import (
	"time"

	"gorm.io/gorm"
)

// Post is an append-only community post. There is no edit operation;
// a post only ever gains likes and replies until it is deleted.
type Post struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"-"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	CommunityID uint `gorm:"not null;index" json:"community_id"`
	AuthorID    uint `gorm:"not null;index" json:"author_id"`
	Author      User `gorm:"foreignKey:AuthorID" json:"author"`

	Parts ContentParts `gorm:"type:jsonb;not null" json:"parts"`
	// Flattened text for LIKE search; derived from Parts at create time.
	Preview string `gorm:"type:varchar(512)" json:"-"`

	// Computed at query time; never stored.
	LikeCount  int64 `gorm:"-" json:"like_count"`
	ReplyCount int64 `gorm:"-" json:"reply_count"`
	Liked      bool  `gorm:"-" json:"liked"`
}

// Reply is scoped under a parent post. One level of nesting only:
// replies do not have replies.
type Reply struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"-"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	PostID   uint `gorm:"not null;index" json:"post_id"`
	AuthorID uint `gorm:"not null;index" json:"author_id"`
	Author   User `gorm:"foreignKey:AuthorID" json:"author"`

	Parts ContentParts `gorm:"type:jsonb;not null" json:"parts"`
}

// PostLike is one element of a post's liked-by set. Likes toggle via
// single-row insert/delete, never by rewriting the set.
type PostLike struct {
	PostID    uint      `gorm:"primaryKey;autoIncrement:false" json:"post_id"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type PostResponse struct {
	ID          uint         `json:"id"`
	CommunityID uint         `json:"community_id"`
	AuthorID    uint         `json:"author_id"`
	Author      UserResponse `json:"author"`
	Parts       ContentParts `json:"parts"`
	LikeCount   int64        `json:"like_count"`
	ReplyCount  int64        `json:"reply_count"`
	Liked       bool         `json:"liked"`
	CreatedAt   time.Time    `json:"created_at"`
}

func (p *Post) ToResponse() PostResponse {
	return PostResponse{
		ID:          p.ID,
		CommunityID: p.CommunityID,
		AuthorID:    p.AuthorID,
		Author:      p.Author.ToResponse(),
		Parts:       p.Parts,
		LikeCount:   p.LikeCount,
		ReplyCount:  p.ReplyCount,
		Liked:       p.Liked,
		CreatedAt:   p.CreatedAt,
	}
}

type ReplyResponse struct {
	ID        uint         `json:"id"`
	PostID    uint         `json:"post_id"`
	AuthorID  uint         `json:"author_id"`
	Author    UserResponse `json:"author"`
	Parts     ContentParts `json:"parts"`
	CreatedAt time.Time    `json:"created_at"`
}

func (r *Reply) ToResponse() ReplyResponse {
	return ReplyResponse{
		ID:        r.ID,
		PostID:    r.PostID,
		AuthorID:  r.AuthorID,
		Author:    r.Author.ToResponse(),
		Parts:     r.Parts,
		CreatedAt: r.CreatedAt,
	}
}
