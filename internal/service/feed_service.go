package service

import (
	"context"
	"errors"

	"github.com/Rawann0m/EcoNest-sub000/internal/cache"
	"github.com/Rawann0m/EcoNest-sub000/internal/models"
	"github.com/Rawann0m/EcoNest-sub000/internal/notify"
	"github.com/Rawann0m/EcoNest-sub000/internal/repository"
	"github.com/Rawann0m/EcoNest-sub000/internal/stream"
	"github.com/Rawann0m/EcoNest-sub000/internal/validation"
)

// FeedService owns the community feed: posts, one-level replies, and
// the like set. Posting and subscribing require membership, checked
// here so no caller below this layer re-checks.
type FeedService struct {
	postRepo      repository.PostRepositoryInterface
	replyRepo     repository.ReplyRepositoryInterface
	communityRepo repository.CommunityRepositoryInterface
	broker        *stream.Broker
	feedCache     *cache.FeedCache
	notifier      *notify.Dispatcher
}

func NewFeedService(
	postRepo repository.PostRepositoryInterface,
	replyRepo repository.ReplyRepositoryInterface,
	communityRepo repository.CommunityRepositoryInterface,
	broker *stream.Broker,
	feedCache *cache.FeedCache,
	notifier *notify.Dispatcher,
) *FeedService {
	return &FeedService{
		postRepo:      postRepo,
		replyRepo:     replyRepo,
		communityRepo: communityRepo,
		broker:        broker,
		feedCache:     feedCache,
		notifier:      notifier,
	}
}

type CreatePostInput struct {
	CommunityID uint                `json:"community_id"`
	Parts       models.ContentParts `json:"parts"`
}

// CreatePost appends a post to a community feed. Only members post.
func (s *FeedService) CreatePost(ctx context.Context, authorID uint, input CreatePostInput) (*models.Post, error) {
	parts, ok := validation.NormalizeParts(input.Parts)
	if !ok {
		return nil, errors.New("invalid post content")
	}

	isMember, err := s.communityRepo.IsMember(ctx, input.CommunityID, authorID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, models.ErrPermissionDenied
	}

	post := &models.Post{
		CommunityID: input.CommunityID,
		AuthorID:    authorID,
		Parts:       parts,
		Preview:     parts.Preview(512),
	}
	err = withRetry(ctx, func(ctx context.Context) error {
		return s.postRepo.Create(ctx, post)
	})
	if err != nil {
		return nil, err
	}

	s.feedCache.InvalidateFeed(input.CommunityID)

	hydrated, err := s.postRepo.FindByID(ctx, post.ID)
	if err == nil {
		post = hydrated
	}

	if s.broker != nil {
		s.broker.Publish(stream.FeedTopic(input.CommunityID), stream.EventAdded, "post", post.ToResponse())
	}
	s.notifier.PostCreated(post.ID, input.CommunityID, authorID, post.Preview, post.CreatedAt)

	return post, nil
}

// GetFeed pages a community feed newest first. Like counts, reply
// counts, and the viewer's liked flag are recomputed per request from
// the underlying sets, so stale stored counters cannot exist.
func (s *FeedService) GetFeed(ctx context.Context, viewerID, communityID uint, cursor uint, limit int) ([]models.Post, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	// The first page is the hot path. Raw rows are cached and shared
	// across viewers; the per-viewer fields (liked flag, live counts)
	// are attached afterwards, so a cache hit never leaks another
	// viewer's state.
	// A cached page shorter than the request cannot satisfy it and
	// falls through to a refresh.
	if cursor == 0 {
		if cached := s.feedCache.GetFirstPage(communityID); len(cached) >= limit {
			cached = cached[:limit]
			if err := s.postRepo.Hydrate(ctx, cached, viewerID); err != nil {
				return nil, err
			}
			return cached, nil
		}
	}

	posts, err := s.postRepo.FindFeed(ctx, communityID, cursor, limit)
	if err != nil {
		return nil, err
	}
	if cursor == 0 {
		s.feedCache.SetFirstPage(communityID, posts)
	}
	if err := s.postRepo.Hydrate(ctx, posts, viewerID); err != nil {
		return nil, err
	}
	return posts, nil
}

// GetPost returns one hydrated post.
func (s *FeedService) GetPost(ctx context.Context, viewerID, postID uint) (*models.Post, error) {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	posts := []models.Post{*post}
	if err := s.postRepo.Hydrate(ctx, posts, viewerID); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

// DeletePost removes a post with its replies and likes. Author only.
func (s *FeedService) DeletePost(ctx context.Context, requesterID, postID uint) error {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != requesterID {
		return models.ErrPermissionDenied
	}
	err = withRetry(ctx, func(ctx context.Context) error {
		return s.postRepo.DeleteCascade(ctx, postID)
	})
	if err != nil {
		return err
	}
	s.feedCache.InvalidateFeed(post.CommunityID)
	s.feedCache.InvalidateReplyCount(postID)
	if s.broker != nil {
		s.broker.Publish(stream.FeedTopic(post.CommunityID), stream.EventRemoved, "post", map[string]uint{"post_id": postID})
	}
	return nil
}

type CreateReplyInput struct {
	PostID uint                `json:"post_id"`
	Parts  models.ContentParts `json:"parts"`
}

// CreateReply adds a reply under a post. Replies nest one level only.
func (s *FeedService) CreateReply(ctx context.Context, authorID uint, input CreateReplyInput) (*models.Reply, error) {
	parts, ok := validation.NormalizeParts(input.Parts)
	if !ok {
		return nil, errors.New("invalid reply content")
	}

	post, err := s.postRepo.FindByID(ctx, input.PostID)
	if err != nil {
		return nil, err
	}
	isMember, err := s.communityRepo.IsMember(ctx, post.CommunityID, authorID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, models.ErrPermissionDenied
	}

	reply := &models.Reply{
		PostID:   input.PostID,
		AuthorID: authorID,
		Parts:    parts,
	}
	err = withRetry(ctx, func(ctx context.Context) error {
		return s.replyRepo.Create(ctx, reply)
	})
	if err != nil {
		return nil, err
	}

	s.feedCache.InvalidateReplyCount(input.PostID)
	s.feedCache.InvalidateFeed(post.CommunityID)

	count, _ := s.postRepo.CountReplies(ctx, input.PostID)
	s.feedCache.SetReplyCount(input.PostID, count)

	if s.broker != nil {
		s.broker.Publish(stream.ReplyCountTopic(input.PostID), stream.EventModified, "reply_count", map[string]interface{}{
			"post_id": input.PostID,
			"count":   count,
		})
		s.broker.Publish(stream.FeedTopic(post.CommunityID), stream.EventModified, "post", map[string]interface{}{
			"post_id":     input.PostID,
			"reply_count": count,
		})
	}
	s.notifier.ReplyCreated(reply.ID, input.PostID, authorID, parts.Preview(previewMax), reply.CreatedAt)

	return reply, nil
}

// GetReplies lists a post's replies oldest first.
func (s *FeedService) GetReplies(ctx context.Context, postID uint, limit int) ([]models.Reply, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	return s.replyRepo.FindByPost(ctx, postID, limit)
}

// DeleteReply removes a reply. The reply's author or the post's author
// may delete.
func (s *FeedService) DeleteReply(ctx context.Context, requesterID, replyID uint) error {
	reply, err := s.replyRepo.FindByID(ctx, replyID)
	if err != nil {
		return err
	}
	if reply.AuthorID != requesterID {
		post, err := s.postRepo.FindByID(ctx, reply.PostID)
		if err != nil {
			return err
		}
		if post.AuthorID != requesterID {
			return models.ErrPermissionDenied
		}
	}
	if err := s.replyRepo.Delete(ctx, replyID); err != nil {
		return err
	}
	s.feedCache.InvalidateReplyCount(reply.PostID)

	count, _ := s.postRepo.CountReplies(ctx, reply.PostID)
	if s.broker != nil {
		s.broker.Publish(stream.ReplyCountTopic(reply.PostID), stream.EventModified, "reply_count", map[string]interface{}{
			"post_id": reply.PostID,
			"count":   count,
		})
	}
	return nil
}

// ToggleLike flips the caller's membership in a post's like set with a
// single-row insert or delete. Calling it twice lands back where it
// started; concurrent toggles by different users never clobber each
// other. Returns the new liked state and the fresh count.
func (s *FeedService) ToggleLike(ctx context.Context, userID, postID uint) (bool, int64, error) {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return false, 0, err
	}

	liked, err := s.postRepo.HasLiked(ctx, postID, userID)
	if err != nil {
		return false, 0, err
	}

	var nowLiked bool
	if liked {
		if _, err := s.postRepo.RemoveLike(ctx, postID, userID); err != nil {
			return false, 0, err
		}
		nowLiked = false
	} else {
		// AddLike is a no-op on conflict, so a duplicate tap is safe.
		if _, err := s.postRepo.AddLike(ctx, postID, userID); err != nil {
			return false, 0, err
		}
		nowLiked = true
	}

	count, err := s.postRepo.CountLikes(ctx, postID)
	if err != nil {
		return nowLiked, 0, err
	}

	s.feedCache.InvalidateFeed(post.CommunityID)

	if s.broker != nil {
		s.broker.Publish(stream.FeedTopic(post.CommunityID), stream.EventModified, "post", map[string]interface{}{
			"post_id":    postID,
			"like_count": count,
		})
	}
	if nowLiked && post.AuthorID != userID {
		s.notifier.PostLiked(postID, post.AuthorID, userID, count)
	}

	return nowLiked, count, nil
}

// GetReplyCount returns a post's live reply count, cached briefly.
func (s *FeedService) GetReplyCount(ctx context.Context, postID uint) (int64, error) {
	if count, ok := s.feedCache.GetReplyCount(postID); ok {
		return count, nil
	}
	count, err := s.postRepo.CountReplies(ctx, postID)
	if err != nil {
		return 0, err
	}
	s.feedCache.SetReplyCount(postID, count)
	return count, nil
}

// SearchPosts matches on flattened post text and author username
// within one community.
func (s *FeedService) SearchPosts(ctx context.Context, viewerID, communityID uint, query string, limit int) ([]models.Post, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	posts, err := s.postRepo.Search(ctx, communityID, query, limit)
	if err != nil {
		return nil, err
	}
	if err := s.postRepo.Hydrate(ctx, posts, viewerID); err != nil {
		return nil, err
	}
	return posts, nil
}

// SubscribeFeed attaches to a community's live feed. Members only.
func (s *FeedService) SubscribeFeed(ctx context.Context, requesterID, communityID uint) (*stream.Subscription, error) {
	isMember, err := s.communityRepo.IsMember(ctx, communityID, requesterID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, models.ErrPermissionDenied
	}
	return s.broker.Subscribe(stream.FeedTopic(communityID)), nil
}

// SubscribeReplyCount attaches to one post's reply counter.
func (s *FeedService) SubscribeReplyCount(postID uint) *stream.Subscription {
	return s.broker.Subscribe(stream.ReplyCountTopic(postID))
}
