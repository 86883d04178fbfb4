package models

import (
	"errors"
	"testing"
	"time"
)

func TestContentPartsPreview(t *testing.T) {
	tests := []struct {
		name  string
		parts ContentParts
		max   int
		want  string
	}{
		{
			name:  "Text only",
			parts: ContentParts{{Kind: TextPart, Text: "Hello"}},
			max:   0,
			want:  "Hello",
		},
		{
			name: "Text and image",
			parts: ContentParts{
				{Kind: TextPart, Text: "Look at this"},
				{Kind: ImagePart, URL: "https://cdn.econest.app/media/p1.jpg"},
			},
			max:  0,
			want: "Look at this [photo]",
		},
		{
			name:  "Truncated",
			parts: ContentParts{{Kind: TextPart, Text: "A very long message body"}},
			max:   6,
			want:  "A very",
		},
		{
			name:  "Empty",
			parts: ContentParts{},
			max:   0,
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.parts.Preview(tt.max); got != tt.want {
				t.Errorf("Preview() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContentPartsScanRoundTrip(t *testing.T) {
	parts := ContentParts{
		{Kind: TextPart, Text: "Nice plant"},
		{Kind: ImagePart, URL: "https://cdn.econest.app/media/monstera.jpg"},
	}

	val, err := parts.Value()
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}

	var decoded ContentParts
	if err := decoded.Scan(val); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(decoded) != len(parts) {
		t.Fatalf("Scan() returned %d parts, want %d", len(decoded), len(parts))
	}
	if decoded[0].Text != "Nice plant" || decoded[1].URL != parts[1].URL {
		t.Errorf("Scan() round trip mismatch: %+v", decoded)
	}

	var fromNil ContentParts
	if err := fromNil.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) error = %v", err)
	}
	if fromNil == nil || len(fromNil) != 0 {
		t.Errorf("Scan(nil) = %v, want empty parts", fromNil)
	}
}

func TestPartFromLegacy(t *testing.T) {
	prefix := "https://cdn.econest.app/media/"

	tests := []struct {
		name string
		in   string
		want PartKind
	}{
		{"Image URL", prefix + "plants/fern.jpg", ImagePart},
		{"Plain text", "How often should I water this?", TextPart},
		{"Other URL is text", "https://example.com/page", TextPart},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			part := PartFromLegacy(tt.in, prefix)
			if part.Kind != tt.want {
				t.Errorf("PartFromLegacy(%q) kind = %q, want %q", tt.in, part.Kind, tt.want)
			}
			if tt.want == ImagePart && part.URL != tt.in {
				t.Errorf("PartFromLegacy image URL = %q, want %q", part.URL, tt.in)
			}
			if tt.want == TextPart && part.Text != tt.in {
				t.Errorf("PartFromLegacy text = %q, want %q", part.Text, tt.in)
			}
		})
	}
}

func TestMessageToResponse(t *testing.T) {
	sentAt := time.Now().UTC()
	message := &Message{
		ID:        10,
		MessageID: "6b7a2f44-9e4d-4c37-8f9f-000000000001",
		ClientID:  "client-123",
		OwnerID:   1,
		PeerID:    2,
		SenderID:  1,
		Parts:     ContentParts{{Kind: TextPart, Text: "Hello"}},
		IsRead:    false,
		SentAt:    sentAt,
	}

	response := message.ToResponse()

	if response.MessageID != message.MessageID {
		t.Errorf("ToResponse MessageID = %q, want %q", response.MessageID, message.MessageID)
	}
	if response.ClientID != message.ClientID {
		t.Errorf("ToResponse ClientID = %q, want %q", response.ClientID, message.ClientID)
	}
	if response.SenderID != message.SenderID {
		t.Errorf("ToResponse SenderID = %d, want %d", response.SenderID, message.SenderID)
	}
	if response.PeerID != message.PeerID {
		t.Errorf("ToResponse PeerID = %d, want %d", response.PeerID, message.PeerID)
	}
	if !response.SentAt.Equal(sentAt) {
		t.Errorf("ToResponse SentAt = %v, want %v", response.SentAt, sentAt)
	}
	if response.IsRead {
		t.Errorf("ToResponse IsRead = true, want false")
	}
}

func TestUserToResponse(t *testing.T) {
	now := time.Now()
	user := &User{
		ID:              1,
		Username:        "plantlover",
		Email:           "plantlover@example.com",
		FullName:        "Plant Lover",
		Avatar:          "https://cdn.econest.app/media/avatars/1.jpg",
		Role:            "user",
		ReceiveMessages: true,
		IsOnline:        true,
		LastSeen:        &now,
	}

	response := user.ToResponse()

	if response.ID != user.ID {
		t.Errorf("ToResponse ID = %d, want %d", response.ID, user.ID)
	}
	if response.Username != user.Username {
		t.Errorf("ToResponse Username = %q, want %q", response.Username, user.Username)
	}
	if !response.ReceiveMessages {
		t.Errorf("ToResponse ReceiveMessages = false, want true")
	}
	if response.LastSeen == nil {
		t.Errorf("ToResponse LastSeen is nil")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"Plain write error", &WriteError{Op: "messages.create", Err: errors.New("connection reset")}, true},
		{"Duplicate write", &WriteError{Op: "messages.create", Err: ErrDuplicate}, false},
		{"Permission write", &WriteError{Op: "posts.delete", Err: ErrPermissionDenied}, false},
		{"Not found write", &WriteError{Op: "threads.read", Err: ErrNotFound}, false},
		{"Not a write error", errors.New("boom"), false},
		{"Bare not found", ErrNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRefreshTokenActive(t *testing.T) {
	now := time.Now().UTC()
	revoked := now.Add(-time.Minute)

	tests := []struct {
		name  string
		token RefreshToken
		want  bool
	}{
		{"Live session", RefreshToken{ExpiresAt: now.Add(time.Hour)}, true},
		{"Expired session", RefreshToken{ExpiresAt: now.Add(-time.Hour)}, false},
		{"Revoked session", RefreshToken{ExpiresAt: now.Add(time.Hour), RevokedAt: &revoked}, false},
		{"Revoked and expired", RefreshToken{ExpiresAt: now.Add(-time.Hour), RevokedAt: &revoked}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.token.Active(now); got != tt.want {
				t.Errorf("Active() = %v, want %v", got, tt.want)
			}
		})
	}
}
