package repository

import (
	"context"
	"time"

	"github.com/Rawann0m/EcoNest-sub000/internal/models"
)

// UserRepositoryInterface defines the contract for user repository operations
type UserRepositoryInterface interface {
	Create(user *models.User) error
	FindByEmail(email string) (*models.User, error)
	FindByUsername(username string) (*models.User, error)
	FindByID(id uint) (*models.User, error)
	Update(user *models.User) error
	UpdateOnlineStatus(userID uint, isOnline bool) error
	SearchUsers(query string, limit int) ([]models.User, error)
	AddFavoritePlant(ctx context.Context, userID uint, plantID string) error
	RemoveFavoritePlant(ctx context.Context, userID uint, plantID string) error
	ListFavoritePlants(ctx context.Context, userID uint) ([]string, error)
}

// MessageRepositoryInterface defines the contract for the conversation store
type MessageRepositoryInterface interface {
	CreatePair(ctx context.Context, senderCopy, recipientCopy *models.Message, summaries []models.ConversationSummary) error
	FindByClientID(ctx context.Context, ownerID uint, clientID string) (*models.Message, error)
	FindThread(ctx context.Context, ownerID, peerID uint, cursor uint, limit int) ([]models.Message, error)
	HasThread(ctx context.Context, ownerID, peerID uint) (bool, error)
	MarkThreadRead(ctx context.Context, ownerID, peerID uint) (int64, error)
	MarkRead(ctx context.Context, ownerID, peerID uint, messageIDs []string) (int64, error)
	CountUnread(ctx context.Context, ownerID, peerID uint) (int64, error)
	DeleteThread(ctx context.Context, ownerID, peerID uint) error
	ListSummaries(ctx context.Context, ownerID uint, limit int) ([]models.ConversationSummary, error)
	GetSummary(ctx context.Context, ownerID, peerID uint) (*models.ConversationSummary, error)
}

// PostRepositoryInterface defines the contract for feed post operations
type PostRepositoryInterface interface {
	Create(ctx context.Context, post *models.Post) error
	FindByID(ctx context.Context, id uint) (*models.Post, error)
	FindFeed(ctx context.Context, communityID uint, cursor uint, limit int) ([]models.Post, error)
	Hydrate(ctx context.Context, posts []models.Post, viewerID uint) error
	Search(ctx context.Context, communityID uint, query string, limit int) ([]models.Post, error)
	DeleteCascade(ctx context.Context, postID uint) error
	AddLike(ctx context.Context, postID, userID uint) (bool, error)
	RemoveLike(ctx context.Context, postID, userID uint) (bool, error)
	HasLiked(ctx context.Context, postID, userID uint) (bool, error)
	CountLikes(ctx context.Context, postID uint) (int64, error)
	LikedBy(ctx context.Context, postID uint) ([]uint, error)
	CountReplies(ctx context.Context, postID uint) (int64, error)
}

// ReplyRepositoryInterface defines the contract for reply operations
type ReplyRepositoryInterface interface {
	Create(ctx context.Context, reply *models.Reply) error
	FindByID(ctx context.Context, id uint) (*models.Reply, error)
	FindByPost(ctx context.Context, postID uint, limit int) ([]models.Reply, error)
	Delete(ctx context.Context, id uint) error
}

// CommunityRepositoryInterface defines the contract for community operations
type CommunityRepositoryInterface interface {
	Create(ctx context.Context, community *models.Community) error
	FindByID(ctx context.Context, id uint) (*models.Community, error)
	FindByName(ctx context.Context, name string) (*models.Community, error)
	AddMember(ctx context.Context, communityID, userID uint) error
	RemoveMember(ctx context.Context, communityID, userID uint) error
	GetMembers(ctx context.Context, communityID uint) ([]models.User, error)
	IsMember(ctx context.Context, communityID, userID uint) (bool, error)
	CountMembers(ctx context.Context, communityID uint) (int64, error)
	GetUserCommunities(ctx context.Context, userID uint) ([]models.Community, error)
	Search(ctx context.Context, query string, limit int) ([]models.Community, error)
}

// RefreshTokenRepositoryInterface defines the contract for refresh token repository operations
type RefreshTokenRepositoryInterface interface {
	Create(token *models.RefreshToken) error
	FindValidByHash(tokenHash string) (*models.RefreshToken, error)
	RevokeByHash(tokenHash string) error
	RevokeAllForUser(userID uint) error
}

// PendingEventRepositoryInterface defines the contract for the offline event queue
type PendingEventRepositoryInterface interface {
	Enqueue(userID uint, topic string, payload string, priority int) error
	GetPendingForUser(userID uint, limit int) ([]models.PendingEvent, error)
	GetRetryable(limit int) ([]models.PendingEvent, error)
	MarkAttempted(id uint, attempts int, nextRetry *time.Time) error
	Delete(id uint) error
	DeleteBatch(ids []uint) error
	CountPendingForUser(userID uint) (int64, error)
	CleanupOld(olderThan time.Duration) error
}
