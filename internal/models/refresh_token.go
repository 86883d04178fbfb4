package models

import (
	"time"

	"gorm.io/gorm"
)

// RefreshToken is one login session. Only a hash of the opaque token
// is stored; the plaintext exists client-side only. Revocation keeps
// the row (audit trail) until expiry prunes it.
type RefreshToken struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID uint `gorm:"index;not null" json:"user_id"`
	User   User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`

	TokenHash string     `gorm:"uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time  `gorm:"index;not null" json:"expires_at"`
	RevokedAt *time.Time `gorm:"index" json:"-"`
}

func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

func (t *RefreshToken) IsExpired(at time.Time) bool {
	return at.After(t.ExpiresAt)
}

// Active reports whether the session can still mint access tokens.
func (t *RefreshToken) Active(at time.Time) bool {
	return !t.IsRevoked() && !t.IsExpired(at)
}
