package repository

import (
	"time"

	"github.com/Rawann0m/EcoNest-sub000/internal/models"
	"gorm.io/gorm"
)

type PendingEventRepository struct {
	db *gorm.DB
}

func NewPendingEventRepository(db *gorm.DB) *PendingEventRepository {
	return &PendingEventRepository{db: db}
}

// Enqueue stores a user-addressed event for later delivery.
func (r *PendingEventRepository) Enqueue(userID uint, topic string, payload string, priority int) error {
	pending := &models.PendingEvent{
		UserID:   userID,
		Topic:    topic,
		Payload:  payload,
		Priority: priority,
		Attempts: 0,
	}
	return translateWrite("pending_event.enqueue", r.db.Create(pending).Error)
}

// GetPendingForUser retrieves queued events for a user, ordered by
// priority then age.
func (r *PendingEventRepository) GetPendingForUser(userID uint, limit int) ([]models.PendingEvent, error) {
	var pending []models.PendingEvent
	err := r.db.Where("user_id = ?", userID).
		Order("priority DESC, created_at ASC").
		Limit(limit).
		Find(&pending).Error
	return pending, err
}

// GetRetryable gets events ready for retry (next_retry <= now).
func (r *PendingEventRepository) GetRetryable(limit int) ([]models.PendingEvent, error) {
	var pending []models.PendingEvent
	now := time.Now()
	err := r.db.Where("next_retry IS NOT NULL AND next_retry <= ?", now).
		Order("priority DESC, next_retry ASC").
		Limit(limit).
		Find(&pending).Error
	return pending, err
}

// MarkAttempted updates the attempt count and next retry time.
func (r *PendingEventRepository) MarkAttempted(id uint, attempts int, nextRetry *time.Time) error {
	now := time.Now()
	updates := map[string]interface{}{
		"attempts":     attempts,
		"last_attempt": now,
		"next_retry":   nextRetry,
	}
	return r.db.Model(&models.PendingEvent{}).Where("id = ?", id).Updates(updates).Error
}

// Delete removes a pending event after successful delivery.
func (r *PendingEventRepository) Delete(id uint) error {
	return r.db.Delete(&models.PendingEvent{}, id).Error
}

// DeleteBatch removes multiple pending events.
func (r *PendingEventRepository) DeleteBatch(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Delete(&models.PendingEvent{}, ids).Error
}

// CountPendingForUser returns the queue depth for a user.
func (r *PendingEventRepository) CountPendingForUser(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.PendingEvent{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// CleanupOld removes events older than the given duration.
func (r *PendingEventRepository) CleanupOld(olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)
	return r.db.Where("created_at < ?", cutoff).Delete(&models.PendingEvent{}).Error
}
