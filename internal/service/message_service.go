package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/Rawann0m/EcoNest-sub000/internal/cache"
	"github.com/Rawann0m/EcoNest-sub000/internal/models"
	"github.com/Rawann0m/EcoNest-sub000/internal/notify"
	"github.com/Rawann0m/EcoNest-sub000/internal/repository"
	"github.com/Rawann0m/EcoNest-sub000/internal/stream"
	"github.com/Rawann0m/EcoNest-sub000/internal/validation"
	"github.com/google/uuid"
)

const previewMax = 256

// Presence reports whether a user currently holds a live connection.
// The WebSocket hub implements it.
type Presence interface {
	IsOnline(userID uint) bool
}

// MessageService owns direct-message semantics: the dual-copy write,
// per-side read state, one-sided deletes, and the summary list. Every
// operation takes the requesting user's id and only ever touches that
// user's partition, so callers cannot reach another inbox.
type MessageService struct {
	messageRepo repository.MessageRepositoryInterface
	userRepo    repository.UserRepositoryInterface
	broker      *stream.Broker
	convoCache  *cache.ConvoCache
	notifier    *notify.Dispatcher

	pendingRepo repository.PendingEventRepositoryInterface
	presence    Presence
}

func NewMessageService(
	messageRepo repository.MessageRepositoryInterface,
	userRepo repository.UserRepositoryInterface,
	broker *stream.Broker,
	convoCache *cache.ConvoCache,
	notifier *notify.Dispatcher,
) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		userRepo:    userRepo,
		broker:      broker,
		convoCache:  convoCache,
		notifier:    notifier,
	}
}

// SetOfflineQueue wires the pending-event queue. Events addressed to a
// user with no live connection are persisted and replayed when they
// reconnect.
func (s *MessageService) SetOfflineQueue(pendingRepo repository.PendingEventRepositoryInterface, presence Presence) {
	s.pendingRepo = pendingRepo
	s.presence = presence
}

type SendMessageInput struct {
	RecipientID uint                `json:"recipient_id"`
	ClientID    string              `json:"client_id"`
	Parts       models.ContentParts `json:"parts"`
}

// SendMessage writes one logical message as two rows, one per
// participant, sharing MessageID and SentAt. Both rows plus both
// conversation summaries commit in a single transaction; a partial
// write is never visible.
func (s *MessageService) SendMessage(ctx context.Context, senderID uint, input SendMessageInput) (*models.Message, error) {
	if input.RecipientID == 0 || input.RecipientID == senderID {
		return nil, errors.New("invalid recipient")
	}

	parts, ok := validation.NormalizeParts(input.Parts)
	if !ok {
		return nil, errors.New("invalid message content")
	}

	clientID := input.ClientID
	if clientID == "" {
		clientID = uuid.NewString()
	} else if existing, err := s.messageRepo.FindByClientID(ctx, senderID, clientID); err == nil {
		// Resend of a message we already stored.
		return existing, nil
	}

	sender, err := s.userRepo.FindByID(senderID)
	if err != nil {
		return nil, errors.New("sender not found")
	}
	recipient, err := s.userRepo.FindByID(input.RecipientID)
	if err != nil {
		return nil, models.ErrNotFound
	}

	// The opt-out only blocks conversations that don't exist yet.
	// Once either side has messaged, the thread stays open.
	if !recipient.ReceiveMessages {
		hasThread, err := s.messageRepo.HasThread(ctx, recipient.ID, senderID)
		if err != nil {
			return nil, err
		}
		if !hasThread {
			return nil, models.ErrPermissionDenied
		}
	}

	messageID := uuid.NewString()
	sentAt := time.Now().UTC()
	preview := parts.Preview(previewMax)

	senderCopy := &models.Message{
		MessageID: messageID,
		ClientID:  clientID,
		OwnerID:   senderID,
		PeerID:    recipient.ID,
		SenderID:  senderID,
		Parts:     parts,
		IsRead:    true,
		ReadAt:    &sentAt,
		SentAt:    sentAt,
	}
	recipientCopy := &models.Message{
		MessageID: messageID,
		ClientID:  clientID,
		OwnerID:   recipient.ID,
		PeerID:    senderID,
		SenderID:  senderID,
		Parts:     parts,
		IsRead:    false,
		SentAt:    sentAt,
	}

	summaries := []models.ConversationSummary{
		{
			OwnerID:       senderID,
			PeerID:        recipient.ID,
			LastMessageID: messageID,
			LastSenderID:  senderID,
			LastPreview:   preview,
			LastSentAt:    sentAt,
			PeerUsername:  recipient.Username,
			PeerAvatar:    recipient.Avatar,
		},
		{
			OwnerID:       recipient.ID,
			PeerID:        senderID,
			LastMessageID: messageID,
			LastSenderID:  senderID,
			LastPreview:   preview,
			LastSentAt:    sentAt,
			PeerUsername:  sender.Username,
			PeerAvatar:    sender.Avatar,
		},
	}

	err = withRetry(ctx, func(ctx context.Context) error {
		return s.messageRepo.CreatePair(ctx, senderCopy, recipientCopy, summaries)
	})
	if err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			// Lost a race with our own resend.
			if existing, ferr := s.messageRepo.FindByClientID(ctx, senderID, clientID); ferr == nil {
				return existing, nil
			}
		}
		return nil, err
	}

	s.convoCache.InvalidatePair(senderID, recipient.ID)

	if s.broker != nil {
		s.broker.Publish(stream.ThreadTopic(senderID, recipient.ID), stream.EventAdded, "message", senderCopy.ToResponse())
		s.broker.Publish(stream.ThreadTopic(recipient.ID, senderID), stream.EventAdded, "message", recipientCopy.ToResponse())
		s.broker.Publish(stream.SummariesTopic(senderID), stream.EventModified, "summary", summaries[0])
		s.broker.Publish(stream.SummariesTopic(recipient.ID), stream.EventModified, "summary", summaries[1])
	}

	// An offline recipient gets the event replayed on reconnect.
	s.queueOffline(recipient.ID, stream.ThreadTopic(recipient.ID, senderID), stream.Event{
		Topic:     stream.ThreadTopic(recipient.ID, senderID),
		Type:      stream.EventAdded,
		Entity:    "message",
		Payload:   recipientCopy.ToResponse(),
		Timestamp: sentAt,
	})

	s.notifier.MessageSent(messageID, senderID, recipient.ID, preview, sentAt)

	return senderCopy, nil
}

func (s *MessageService) queueOffline(userID uint, topic string, event stream.Event) {
	if s.pendingRepo == nil || s.presence == nil || s.presence.IsOnline(userID) {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("MessageService: encode pending event for user %d: %v", userID, err)
		return
	}
	if err := s.pendingRepo.Enqueue(userID, topic, string(payload), 0); err != nil {
		log.Printf("MessageService: queue event for user %d: %v", userID, err)
	}
}

// GetThread pages the caller's copy of a conversation, oldest first
// within the page. Cursor is the row id of the oldest message the
// client already has.
func (s *MessageService) GetThread(ctx context.Context, requesterID, peerID uint, cursor uint, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.messageRepo.FindThread(ctx, requesterID, peerID, cursor, limit)
}

// MarkThreadRead clears every unread message from peer in the caller's
// copy. Returns how many rows flipped; zero means it was already clean.
func (s *MessageService) MarkThreadRead(ctx context.Context, requesterID, peerID uint) (int64, error) {
	cleared, err := s.messageRepo.MarkThreadRead(ctx, requesterID, peerID)
	if err != nil {
		return 0, err
	}
	if cleared > 0 {
		s.convoCache.Invalidate(requesterID)
		if s.broker != nil {
			// The peer's open thread shows the read receipt.
			s.broker.Publish(stream.ThreadTopic(peerID, requesterID), stream.EventModified, "read", map[string]uint{"peer_id": requesterID})
			// The caller's summary list drops its badge. The refreshed
			// summary row carries the recomputed unread count so
			// subscribers replace rather than patch.
			if summary, err := s.messageRepo.GetSummary(ctx, requesterID, peerID); err == nil {
				s.broker.Publish(stream.SummariesTopic(requesterID), stream.EventModified, "summary", summary)
			} else {
				s.broker.Publish(stream.SummariesTopic(requesterID), stream.EventModified, "read", map[string]uint{"peer_id": peerID})
			}
		}
	}
	return cleared, nil
}

// MarkRead flips specific messages by MessageID in the caller's copy.
// Unknown ids and already-read messages are ignored.
func (s *MessageService) MarkRead(ctx context.Context, requesterID, peerID uint, messageIDs []string) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}
	cleared, err := s.messageRepo.MarkRead(ctx, requesterID, peerID, messageIDs)
	if err != nil {
		return 0, err
	}
	if cleared > 0 {
		s.convoCache.Invalidate(requesterID)
		if s.broker != nil {
			s.broker.Publish(stream.ThreadTopic(peerID, requesterID), stream.EventModified, "read", map[string]interface{}{
				"peer_id":     requesterID,
				"message_ids": messageIDs,
			})
		}
	}
	return cleared, nil
}

// DeleteThread removes the caller's copy of a conversation. The peer's
// copy is untouched; this is the point of the dual-write layout.
func (s *MessageService) DeleteThread(ctx context.Context, requesterID, peerID uint) error {
	err := withRetry(ctx, func(ctx context.Context) error {
		return s.messageRepo.DeleteThread(ctx, requesterID, peerID)
	})
	if err != nil {
		return err
	}
	s.convoCache.Invalidate(requesterID)
	if s.broker != nil {
		s.broker.Publish(stream.SummariesTopic(requesterID), stream.EventRemoved, "summary", map[string]uint{"peer_id": peerID})
	}
	return nil
}

// ListConversations returns the caller's summary list, newest activity
// first, with unread counts recomputed from the message rows.
func (s *MessageService) ListConversations(ctx context.Context, requesterID uint, limit int) ([]models.ConversationSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if cached := s.convoCache.GetSummaries(requesterID); cached != nil {
		return cached, nil
	}
	summaries, err := s.messageRepo.ListSummaries(ctx, requesterID, limit)
	if err != nil {
		return nil, err
	}
	s.convoCache.SetSummaries(requesterID, summaries)
	return summaries, nil
}

// CountUnread returns the caller's unread count for one thread.
func (s *MessageService) CountUnread(ctx context.Context, requesterID, peerID uint) (int64, error) {
	return s.messageRepo.CountUnread(ctx, requesterID, peerID)
}

// SubscribeThread attaches to the caller's copy of one conversation.
// The topic is derived from the requester's id, so a client can never
// observe another user's partition.
func (s *MessageService) SubscribeThread(requesterID, peerID uint) *stream.Subscription {
	return s.broker.Subscribe(stream.ThreadTopic(requesterID, peerID))
}

// SubscribeSummaries attaches to the caller's conversation list.
func (s *MessageService) SubscribeSummaries(requesterID uint) *stream.Subscription {
	return s.broker.Subscribe(stream.SummariesTopic(requesterID))
}
