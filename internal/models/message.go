package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

type PartKind string

const (
	TextPart  PartKind = "text"
	ImagePart PartKind = "image"
)

// ContentPart is one element of a message or post body. Parts are an
// explicit tagged union; the legacy convention of encoding images as
// bare URL strings is decoded only at the storage edge (PartFromLegacy).
type ContentPart struct {
	Kind PartKind `json:"kind"`
	Text string   `json:"text,omitempty"`
	URL  string   `json:"url,omitempty"`
}

// ContentParts is persisted as a JSONB column.
type ContentParts []ContentPart

func (p ContentParts) Value() (driver.Value, error) {
	if p == nil {
		p = ContentParts{}
	}
	return json.Marshal(p)
}

func (p *ContentParts) Scan(value interface{}) error {
	if value == nil {
		*p = ContentParts{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported content parts type %T", value)
	}
	return json.Unmarshal(data, p)
}

// Preview flattens parts into a short display string for conversation
// summaries and post search.
func (p ContentParts) Preview(max int) string {
	var b strings.Builder
	for _, part := range p {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		switch part.Kind {
		case ImagePart:
			b.WriteString("[photo]")
		default:
			b.WriteString(part.Text)
		}
	}
	s := b.String()
	if max > 0 && len(s) > max {
		return s[:max]
	}
	return s
}

// PartFromLegacy decodes the old string convention: a part beginning
// with the object-store URL prefix is an image reference, anything
// else is plain text.
func PartFromLegacy(s string, imageURLPrefix string) ContentPart {
	if imageURLPrefix != "" && strings.HasPrefix(s, imageURLPrefix) {
		return ContentPart{Kind: ImagePart, URL: s}
	}
	return ContentPart{Kind: TextPart, Text: s}
}

// Message is one copy of a direct message. Every logical message is
// written as two rows sharing MessageID and SentAt: the sender's copy
// (OwnerID=sender) and the recipient's copy (OwnerID=recipient).
// IsRead is owned independently by each side and is the only field
// allowed to diverge between the two copies.
type Message struct {
	ID        uint           `gorm:"primarykey" json:"-"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"-"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Shared across both copies.
	MessageID string    `gorm:"type:varchar(36);not null;index" json:"message_id"`
	SentAt    time.Time `gorm:"not null;index" json:"sent_at"`

	// Client-supplied UUID for resend deduplication.
	ClientID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_owner_client" json:"client_id"`

	// Inbox partition: whose copy this row is, and the counterpart.
	OwnerID uint `gorm:"not null;uniqueIndex:idx_owner_client;index:idx_thread" json:"owner_id"`
	PeerID  uint `gorm:"not null;index:idx_thread" json:"peer_id"`

	SenderID uint `gorm:"not null;index" json:"sender_id"`

	Parts ContentParts `gorm:"type:jsonb;not null" json:"parts"`

	IsRead bool       `gorm:"default:false;index" json:"is_read"`
	ReadAt *time.Time `json:"read_at"`
}

type MessageResponse struct {
	MessageID string       `json:"message_id"`
	ClientID  string       `json:"client_id"`
	SenderID  uint         `json:"sender_id"`
	PeerID    uint         `json:"peer_id"`
	Parts     ContentParts `json:"parts"`
	IsRead    bool         `json:"is_read"`
	SentAt    time.Time    `json:"sent_at"`
}

func (m *Message) ToResponse() MessageResponse {
	return MessageResponse{
		MessageID: m.MessageID,
		ClientID:  m.ClientID,
		SenderID:  m.SenderID,
		PeerID:    m.PeerID,
		Parts:     m.Parts,
		IsRead:    m.IsRead,
		SentAt:    m.SentAt,
	}
}

// ConversationSummary is one row per (owner, peer) pair holding the
// most recent message plus a snapshot of the peer's profile taken at
// send time. The snapshot goes stale if the peer later changes their
// profile; the next send refreshes it.
type ConversationSummary struct {
	OwnerID   uint      `gorm:"primaryKey;autoIncrement:false" json:"owner_id"`
	PeerID    uint      `gorm:"primaryKey;autoIncrement:false" json:"peer_id"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`

	LastMessageID string    `gorm:"type:varchar(36);not null" json:"last_message_id"`
	LastSenderID  uint      `gorm:"not null" json:"last_sender_id"`
	LastPreview   string    `gorm:"type:varchar(256)" json:"last_preview"`
	LastSentAt    time.Time `gorm:"not null;index" json:"last_sent_at"`

	PeerUsername string `json:"peer_username"`
	PeerAvatar   string `json:"peer_avatar"`

	// Computed per request from is_read=false rows, never stored.
	UnreadCount int64 `gorm:"-" json:"unread_count"`
}
