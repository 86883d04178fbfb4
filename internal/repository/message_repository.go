package repository

import (
	"context"
	"log"
	"time"

	"github.com/Rawann0m/EcoNest-sub000/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// CreatePair persists one logical message as both participants' copies
// plus the two conversation-summary upserts in a single transaction.
// Either everything lands or nothing does; a partial dual-write is
// never observable.
func (r *MessageRepository) CreatePair(ctx context.Context, senderCopy, recipientCopy *models.Message, summaries []models.ConversationSummary) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(senderCopy).Error; err != nil {
			return err
		}
		if err := tx.Create(recipientCopy).Error; err != nil {
			return err
		}
		for i := range summaries {
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "owner_id"}, {Name: "peer_id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"last_message_id", "last_sender_id", "last_preview",
					"last_sent_at", "peer_username", "peer_avatar", "updated_at",
				}),
			}).Create(&summaries[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return translateWrite("message.create", err)
}

// FindByClientID supports resend deduplication within one inbox.
func (r *MessageRepository) FindByClientID(ctx context.Context, ownerID uint, clientID string) (*models.Message, error) {
	var message models.Message
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND client_id = ?", ownerID, clientID).
		First(&message).Error
	if err != nil {
		return nil, translateRead(err)
	}
	return &message, nil
}

// FindThread returns the owner's copy of a thread, chronological,
// cursor-paginated by row id. Rows whose stored parts fail to decode
// are skipped rather than failing the batch.
func (r *MessageRepository) FindThread(ctx context.Context, ownerID, peerID uint, cursor uint, limit int) ([]models.Message, error) {
	q := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("owner_id = ? AND peer_id = ?", ownerID, peerID)
	if cursor > 0 {
		q = q.Where("id < ?", cursor)
	}

	rows, err := q.Order("sent_at DESC, id DESC").Limit(limit).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := r.db.ScanRows(rows, &m); err != nil {
			log.Printf("skipping undecodable message row in thread %d/%d: %v", ownerID, peerID, err)
			continue
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to chronological order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// HasThread reports whether the owner already has any messages with
// the peer. Used for the receive-messages gate on new conversations.
func (r *MessageRepository) HasThread(ctx context.Context, ownerID, peerID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("owner_id = ? AND peer_id = ?", ownerID, peerID).
		Limit(1).
		Count(&count).Error
	return count > 0, err
}

// MarkThreadRead flips every unread message authored by the peer in
// the owner's copy. Only the owner's rows are touched; the sender's
// copies of those messages are unaffected. Returns rows cleared.
func (r *MessageRepository) MarkThreadRead(ctx context.Context, ownerID, peerID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("owner_id = ? AND peer_id = ? AND sender_id = ? AND is_read = false", ownerID, peerID, peerID).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": time.Now().UTC(),
		})
	return res.RowsAffected, translateWrite("message.mark_thread_read", res.Error)
}

// MarkRead flips a subset of messages by logical id. Idempotent:
// already-read ids match zero rows.
func (r *MessageRepository) MarkRead(ctx context.Context, ownerID, peerID uint, messageIDs []string) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("owner_id = ? AND peer_id = ? AND sender_id = ? AND message_id IN ? AND is_read = false",
			ownerID, peerID, peerID, messageIDs).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": time.Now().UTC(),
		})
	return res.RowsAffected, translateWrite("message.mark_read", res.Error)
}

// CountUnread recomputes the unread count from is_read flags. Never
// maintained as a counter, so it cannot drift.
func (r *MessageRepository) CountUnread(ctx context.Context, ownerID, peerID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("owner_id = ? AND peer_id = ? AND sender_id = ? AND is_read = false", ownerID, peerID, peerID).
		Count(&count).Error
	return count, err
}

// DeleteThread removes the owner's copy of the thread and the owner's
// summary row in one transaction. The counterpart's copy survives.
func (r *MessageRepository) DeleteThread(ctx context.Context, ownerID, peerID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner_id = ? AND peer_id = ?", ownerID, peerID).
			Delete(&models.Message{}).Error; err != nil {
			return err
		}
		return tx.Where("owner_id = ? AND peer_id = ?", ownerID, peerID).
			Delete(&models.ConversationSummary{}).Error
	})
	return translateWrite("message.delete_thread", err)
}
