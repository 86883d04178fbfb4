package testutil

import (
	"os"
	"testing"
	"time"

	"github.com/Rawann0m/EcoNest-sub000/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TestHelper provides utility functions for tests
type TestHelper struct {
	t *testing.T
}

func NewTestHelper(t *testing.T) *TestHelper {
	return &TestHelper{t: t}
}

// CreateTestUser creates a test user with default values
func (h *TestHelper) CreateTestUser(id uint, username, email string) *models.User {
	if id == 0 {
		id = 1
	}
	if username == "" {
		username = "testuser"
	}
	if email == "" {
		email = "test@example.com"
	}

	return &models.User{
		ID:              id,
		Username:        username,
		Email:           email,
		PasswordHash:    "hashed_password_123",
		Avatar:          "https://example.com/avatar.jpg",
		Role:            "user",
		ReceiveMessages: true,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
}

// CreateTestMessagePair creates both partition copies of a direct
// message, the way a send writes them.
func (h *TestHelper) CreateTestMessagePair(senderID, recipientID uint, text string) (models.Message, models.Message) {
	if text == "" {
		text = "Test message"
	}
	messageID := uuid.NewString()
	sentAt := time.Now().UTC()
	parts := models.ContentParts{{Kind: models.TextPart, Text: text}}

	senderCopy := models.Message{
		MessageID: messageID,
		OwnerID:   senderID,
		PeerID:    recipientID,
		SenderID:  senderID,
		Parts:     parts,
		IsRead:    true,
		SentAt:    sentAt,
	}
	recipientCopy := models.Message{
		MessageID: messageID,
		OwnerID:   recipientID,
		PeerID:    senderID,
		SenderID:  senderID,
		Parts:     parts,
		IsRead:    false,
		SentAt:    sentAt,
	}
	return senderCopy, recipientCopy
}

// CreateTestPost creates a community post with default values
func (h *TestHelper) CreateTestPost(id, communityID, authorID uint, text string) *models.Post {
	if text == "" {
		text = "Test post"
	}
	return &models.Post{
		ID:          id,
		CommunityID: communityID,
		AuthorID:    authorID,
		Parts:       models.ContentParts{{Kind: models.TextPart, Text: text}},
		Preview:     text,
		CreatedAt:   time.Now(),
	}
}

// SetupTestEnv sets up required environment variables for testing
func (h *TestHelper) SetupTestEnv() {
	os.Setenv("JWT_SECRET", "test-secret-key-for-testing-only")
	os.Setenv("DATABASE_URL", "")
	os.Setenv("PASSWORD_MIN_LENGTH", "10")
}

// TeardownTestEnv cleans up environment variables after testing
func (h *TestHelper) TeardownTestEnv() {
	os.Unsetenv("JWT_SECRET")
	os.Unsetenv("DATABASE_URL")
	os.Unsetenv("PASSWORD_MIN_LENGTH")
}

// AssertError checks if an error occurred when it should (or shouldn't)
func (h *TestHelper) AssertError(err error, shouldErr bool, testName string) {
	if (err != nil) != shouldErr {
		if shouldErr {
			h.t.Errorf("%s: expected error but got nil", testName)
		} else {
			h.t.Errorf("%s: unexpected error: %v", testName, err)
		}
	}
}

// AssertEqual checks if two values are equal
func (h *TestHelper) AssertEqual(got, want interface{}, testName string) {
	if got != want {
		h.t.Errorf("%s: got %v, want %v", testName, got, want)
	}
}

// AssertNotNil checks if a value is not nil
func (h *TestHelper) AssertNotNil(value interface{}, testName string) {
	if value == nil {
		h.t.Errorf("%s: expected non-nil value", testName)
	}
}

// GetRecordNotFoundError returns gorm's not-found sentinel for mocks
func GetRecordNotFoundError() error {
	return gorm.ErrRecordNotFound
}
