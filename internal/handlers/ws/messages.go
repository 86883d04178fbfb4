package ws

import (
	"errors"
	"fmt"

	"github.com/Rawann0m/EcoNest-sub000/internal/models"
	"github.com/Rawann0m/EcoNest-sub000/internal/service"
	"github.com/Rawann0m/EcoNest-sub000/internal/stream"
)

// MessageSubscribe attaches the connection to a live stream. Kind
// selects the stream; the id fields disambiguate. The thread and
// summaries streams are always the caller's own; feed subscriptions
// check membership.
type MessageSubscribe struct {
	Kind        string `json:"kind"` // thread | feed | replycount
	PeerID      uint   `json:"peer_id,omitempty"`
	CommunityID uint   `json:"community_id,omitempty"`
	PostID      uint   `json:"post_id,omitempty"`
}

func (msg *MessageSubscribe) GetType() string { return "subscribe" }

func (msg *MessageSubscribe) Process(ctx *MessageContext) error {
	topic, sub, err := msg.open(ctx)
	if err != nil {
		if errors.Is(err, models.ErrPermissionDenied) {
			return SendError(ctx.Client, "forbidden", "not a member of this community", "")
		}
		return err
	}
	ctx.Hub.AttachSubscription(ctx.Client, topic, sub)
	return ctx.Client.WriteJSON(map[string]string{"type": "subscribed", "topic": topic})
}

func (msg *MessageSubscribe) open(ctx *MessageContext) (string, *stream.Subscription, error) {
	switch msg.Kind {
	case "thread":
		if msg.PeerID == 0 {
			return "", nil, fmt.Errorf("missing peer_id")
		}
		return stream.ThreadTopic(ctx.UserID, msg.PeerID), ctx.MessageService.SubscribeThread(ctx.UserID, msg.PeerID), nil
	case "feed":
		if msg.CommunityID == 0 {
			return "", nil, fmt.Errorf("missing community_id")
		}
		sub, err := ctx.FeedService.SubscribeFeed(ctx.Ctx, ctx.UserID, msg.CommunityID)
		if err != nil {
			return "", nil, err
		}
		return stream.FeedTopic(msg.CommunityID), sub, nil
	case "replycount":
		if msg.PostID == 0 {
			return "", nil, fmt.Errorf("missing post_id")
		}
		return stream.ReplyCountTopic(msg.PostID), ctx.FeedService.SubscribeReplyCount(msg.PostID), nil
	default:
		return "", nil, fmt.Errorf("unknown subscription kind: %s", msg.Kind)
	}
}

// MessageUnsubscribe detaches a stream. After the confirmation frame
// no further events for that topic arrive.
type MessageUnsubscribe struct {
	Kind        string `json:"kind"`
	PeerID      uint   `json:"peer_id,omitempty"`
	CommunityID uint   `json:"community_id,omitempty"`
	PostID      uint   `json:"post_id,omitempty"`
}

func (msg *MessageUnsubscribe) GetType() string { return "unsubscribe" }

func (msg *MessageUnsubscribe) Process(ctx *MessageContext) error {
	var topic string
	switch msg.Kind {
	case "thread":
		topic = stream.ThreadTopic(ctx.UserID, msg.PeerID)
	case "feed":
		topic = stream.FeedTopic(msg.CommunityID)
	case "replycount":
		topic = stream.ReplyCountTopic(msg.PostID)
	default:
		return fmt.Errorf("unknown subscription kind: %s", msg.Kind)
	}
	ctx.Hub.DetachSubscription(ctx.Client, topic)
	return ctx.Client.WriteJSON(map[string]string{"type": "unsubscribed", "topic": topic})
}

// MessageChat sends a direct message over the socket. The ack echoes
// the client id so the app can reconcile its optimistic entry.
type MessageChat struct {
	RecipientID uint                `json:"recipient_id"`
	ClientID    string              `json:"client_id"`
	Parts       models.ContentParts `json:"parts"`
}

func (msg *MessageChat) GetType() string { return "chat" }

func (msg *MessageChat) Process(ctx *MessageContext) error {
	sent, err := ctx.MessageService.SendMessage(ctx.Ctx, ctx.UserID, service.SendMessageInput{
		RecipientID: msg.RecipientID,
		ClientID:    msg.ClientID,
		Parts:       msg.Parts,
	})
	if err != nil {
		if errors.Is(err, models.ErrPermissionDenied) {
			return SendError(ctx.Client, "recipient_closed", "recipient does not accept new conversations", "")
		}
		return err
	}
	return ctx.Client.WriteJSON(map[string]interface{}{
		"type":       "ack",
		"client_id":  sent.ClientID,
		"message_id": sent.MessageID,
		"sent_at":    sent.SentAt,
	})
}

// MessageRead clears read state. With MessageIDs it flips those
// specific messages; without, the whole thread.
type MessageRead struct {
	PeerID     uint     `json:"peer_id"`
	MessageIDs []string `json:"message_ids,omitempty"`
}

func (msg *MessageRead) GetType() string { return "read" }

func (msg *MessageRead) Process(ctx *MessageContext) error {
	var cleared int64
	var err error
	if len(msg.MessageIDs) > 0 {
		cleared, err = ctx.MessageService.MarkRead(ctx.Ctx, ctx.UserID, msg.PeerID, msg.MessageIDs)
	} else {
		cleared, err = ctx.MessageService.MarkThreadRead(ctx.Ctx, ctx.UserID, msg.PeerID)
	}
	if err != nil {
		return err
	}
	return ctx.Client.WriteJSON(map[string]interface{}{
		"type":    "read_ack",
		"peer_id": msg.PeerID,
		"cleared": cleared,
	})
}

// MessageTyping forwards a typing indicator to the peer. Ephemeral:
// dropped when the peer is offline, never queued.
type MessageTyping struct {
	PeerID uint `json:"peer_id"`
	Typing bool `json:"typing"`
}

func (msg *MessageTyping) GetType() string { return "typing" }

func (msg *MessageTyping) Process(ctx *MessageContext) error {
	return ctx.Hub.SendToUser(msg.PeerID, map[string]interface{}{
		"type":    "typing",
		"peer_id": ctx.UserID,
		"typing":  msg.Typing,
	})
}
