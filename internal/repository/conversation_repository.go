package repository

import (
	"context"

	"github.com/Rawann0m/EcoNest-sub000/internal/models"
)

// ListSummaries returns one row per conversation for the owner with
// the unread count recomputed inline.
//
// NOTE: unread_count is a correlated subquery over is_read flags, not
// a stored counter — slightly more read work in exchange for a count
// that can never drift. Display order (descending recency) is applied
// here for the HTTP listing; stream subscribers sort client-side.
func (r *MessageRepository) ListSummaries(ctx context.Context, ownerID uint, limit int) ([]models.ConversationSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}

	var summaries []models.ConversationSummary
	err := r.db.WithContext(ctx).Raw(`
SELECT
	s.*,
	(
		SELECT COUNT(*)
		FROM messages m
		WHERE m.owner_id = s.owner_id
		  AND m.peer_id = s.peer_id
		  AND m.sender_id = s.peer_id
		  AND m.is_read = false
		  AND m.deleted_at IS NULL
	) AS unread_count
FROM conversation_summaries s
WHERE s.owner_id = ?
ORDER BY s.last_sent_at DESC
LIMIT ?
`, ownerID, limit).Scan(&summaries).Error
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

// GetSummary fetches a single (owner, peer) summary with its live
// unread count.
func (r *MessageRepository) GetSummary(ctx context.Context, ownerID, peerID uint) (*models.ConversationSummary, error) {
	var summary models.ConversationSummary
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND peer_id = ?", ownerID, peerID).
		First(&summary).Error
	if err != nil {
		return nil, translateRead(err)
	}
	unread, err := r.CountUnread(ctx, ownerID, peerID)
	if err != nil {
		return nil, err
	}
	summary.UnreadCount = unread
	return &summary, nil
}
