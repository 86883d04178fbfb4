package notify

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/nats-io/nats.go"
)

// Dispatcher publishes domain events to NATS for the push-notification
// service. A nil Dispatcher (NATS not configured) drops events silently
// so messaging never depends on the broker being up.
type Dispatcher struct {
	conn *nats.Conn
}

// InitFromEnv connects using NATS_HOST/NATS_PORT. Returns nil without
// error when NATS_HOST is unset.
func InitFromEnv() (*Dispatcher, error) {
	host := os.Getenv("NATS_HOST")
	if host == "" {
		log.Println("notify: NATS_HOST not set, notification dispatch disabled")
		return nil, nil
	}
	port := os.Getenv("NATS_PORT")
	if port == "" {
		port = "4222"
	}
	conn, err := nats.Connect(fmt.Sprintf("nats://%s:%s", host, port),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	log.Println("notify: NATS connected")
	return &Dispatcher{conn: conn}, nil
}

func (d *Dispatcher) publish(subject string, event interface{}) {
	if d == nil || d.conn == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("notify: encode %s: %v", subject, err)
		return
	}
	if err := d.conn.Publish(subject, data); err != nil {
		log.Printf("notify: publish %s: %v", subject, err)
	}
}

type MessageSentEvent struct {
	MessageID   string `json:"message_id"`
	SenderID    uint   `json:"sender_id"`
	RecipientID uint   `json:"recipient_id"`
	Preview     string `json:"preview"`
	Timestamp   string `json:"timestamp"`
}

// MessageSent notifies the push service about a delivered direct message.
func (d *Dispatcher) MessageSent(messageID string, senderID, recipientID uint, preview string, sentAt time.Time) {
	d.publish("message.sent", MessageSentEvent{
		MessageID:   messageID,
		SenderID:    senderID,
		RecipientID: recipientID,
		Preview:     preview,
		Timestamp:   sentAt.UTC().Format(time.RFC3339),
	})
}

type PostCreatedEvent struct {
	PostID      uint   `json:"post_id"`
	CommunityID uint   `json:"community_id"`
	AuthorID    uint   `json:"author_id"`
	Preview     string `json:"preview"`
	Timestamp   string `json:"timestamp"`
}

func (d *Dispatcher) PostCreated(postID, communityID, authorID uint, preview string, createdAt time.Time) {
	d.publish("post.created", PostCreatedEvent{
		PostID:      postID,
		CommunityID: communityID,
		AuthorID:    authorID,
		Preview:     preview,
		Timestamp:   createdAt.UTC().Format(time.RFC3339),
	})
}

type PostLikedEvent struct {
	PostID    uint   `json:"post_id"`
	AuthorID  uint   `json:"author_id"`
	LikerID   uint   `json:"liker_id"`
	LikeCount int64  `json:"like_count"`
	Timestamp string `json:"timestamp"`
}

func (d *Dispatcher) PostLiked(postID, authorID, likerID uint, likeCount int64) {
	d.publish("post.liked", PostLikedEvent{
		PostID:    postID,
		AuthorID:  authorID,
		LikerID:   likerID,
		LikeCount: likeCount,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

type ReplyCreatedEvent struct {
	ReplyID   uint   `json:"reply_id"`
	PostID    uint   `json:"post_id"`
	AuthorID  uint   `json:"author_id"`
	Preview   string `json:"preview"`
	Timestamp string `json:"timestamp"`
}

func (d *Dispatcher) ReplyCreated(replyID, postID, authorID uint, preview string, createdAt time.Time) {
	d.publish("reply.created", ReplyCreatedEvent{
		ReplyID:   replyID,
		PostID:    postID,
		AuthorID:  authorID,
		Preview:   preview,
		Timestamp: createdAt.UTC().Format(time.RFC3339),
	})
}

// Close drains the connection.
func (d *Dispatcher) Close() {
	if d == nil || d.conn == nil {
		return
	}
	d.conn.Close()
}
