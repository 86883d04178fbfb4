package models

import (
	"time"

	"gorm.io/gorm"
)

// PendingEvent is a user-addressed realtime event queued while the
// recipient has no active WebSocket connection. Ephemeral events
// (typing, ping) are never queued.
type PendingEvent struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Target user who should receive this event.
	UserID uint `gorm:"not null;index:idx_pending_user_priority" json:"user_id"`

	// Topic the event was published on (thread:..., summaries:...).
	Topic string `gorm:"type:varchar(128);not null" json:"topic"`

	// Delivery tracking for the retry worker.
	Attempts    int        `gorm:"default:0" json:"attempts"`
	LastAttempt *time.Time `json:"last_attempt"`
	NextRetry   *time.Time `gorm:"index" json:"next_retry"` // exponential backoff

	// System events can preempt ordinary ones.
	Priority int `gorm:"default:0;index:idx_pending_user_priority" json:"priority"`

	// Serialized event, cached to avoid joins on delivery.
	Payload string `gorm:"type:text" json:"payload"`
}
