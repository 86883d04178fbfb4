package handlers

import (
	"errors"

	"github.com/Rawann0m/EcoNest-sub000/internal/httpx"
	"github.com/Rawann0m/EcoNest-sub000/internal/models"
	"github.com/Rawann0m/EcoNest-sub000/internal/service"
	"github.com/gofiber/fiber/v2"
)

type FeedHandler struct {
	feedService *service.FeedService
}

func NewFeedHandler(feedService *service.FeedService) *FeedHandler {
	return &FeedHandler{feedService: feedService}
}

func (h *FeedHandler) CreatePost(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	var input service.CreatePostInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}
	if input.CommunityID == 0 {
		return httpx.BadRequest(c, "missing_community", "community_id is required")
	}

	post, err := h.feedService.CreatePost(c.Context(), userID, input)
	if err != nil {
		if errors.Is(err, models.ErrPermissionDenied) {
			return httpx.Forbidden(c, "not_a_member", "Join the community before posting")
		}
		var decodeErr *models.DecodeError
		if errors.As(err, &decodeErr) {
			return httpx.BadRequest(c, "invalid_parts", decodeErr.Error())
		}
		return httpx.FromDomain(c, err, "create_post_failed")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"post": post.ToResponse(),
	})
}

// GetFeed returns one page of a community feed, newest first.
// GET /feed/:communityID?cursor=<row id>&limit=20
func (h *FeedHandler) GetFeed(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	communityID := paramUint(c, "communityID")
	if communityID == 0 {
		return httpx.BadRequest(c, "invalid_community", "Invalid community id")
	}

	cursor := uint(c.QueryInt("cursor", 0))
	limit := c.QueryInt("limit", 20)
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	posts, err := h.feedService.GetFeed(c.Context(), userID, communityID, cursor, limit)
	if err != nil {
		return httpx.FromDomain(c, err, "get_feed_failed")
	}

	responses := make([]models.PostResponse, len(posts))
	var nextCursor uint
	for i, p := range posts {
		responses[i] = p.ToResponse()
		if nextCursor == 0 || p.ID < nextCursor {
			nextCursor = p.ID
		}
	}

	return c.JSON(fiber.Map{
		"posts":       responses,
		"count":       len(responses),
		"next_cursor": nextCursor,
	})
}

func (h *FeedHandler) GetPost(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	postID := paramUint(c, "postID")
	if postID == 0 {
		return httpx.BadRequest(c, "invalid_post", "Invalid post id")
	}

	post, err := h.feedService.GetPost(c.Context(), userID, postID)
	if err != nil {
		return httpx.FromDomain(c, err, "get_post_failed")
	}

	return c.JSON(fiber.Map{
		"post": post.ToResponse(),
	})
}

func (h *FeedHandler) DeletePost(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	postID := paramUint(c, "postID")
	if postID == 0 {
		return httpx.BadRequest(c, "invalid_post", "Invalid post id")
	}

	if err := h.feedService.DeletePost(c.Context(), userID, postID); err != nil {
		return httpx.FromDomain(c, err, "delete_post_failed")
	}

	return c.JSON(fiber.Map{"ok": true})
}

func (h *FeedHandler) CreateReply(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	var input service.CreateReplyInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}
	if pid := paramUint(c, "postID"); pid != 0 {
		input.PostID = pid
	}
	if input.PostID == 0 {
		return httpx.BadRequest(c, "invalid_post", "Invalid post id")
	}

	reply, err := h.feedService.CreateReply(c.Context(), userID, input)
	if err != nil {
		if errors.Is(err, models.ErrPermissionDenied) {
			return httpx.Forbidden(c, "not_a_member", "Join the community before replying")
		}
		var decodeErr *models.DecodeError
		if errors.As(err, &decodeErr) {
			return httpx.BadRequest(c, "invalid_parts", decodeErr.Error())
		}
		return httpx.FromDomain(c, err, "create_reply_failed")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"reply": reply.ToResponse(),
	})
}

func (h *FeedHandler) GetReplies(c *fiber.Ctx) error {
	if _, err := httpx.LocalUint(c, "userID"); err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	postID := paramUint(c, "postID")
	if postID == 0 {
		return httpx.BadRequest(c, "invalid_post", "Invalid post id")
	}

	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	replies, err := h.feedService.GetReplies(c.Context(), postID, limit)
	if err != nil {
		return httpx.FromDomain(c, err, "get_replies_failed")
	}

	responses := make([]models.ReplyResponse, len(replies))
	for i, r := range replies {
		responses[i] = r.ToResponse()
	}

	return c.JSON(fiber.Map{
		"replies": responses,
		"count":   len(responses),
	})
}

func (h *FeedHandler) DeleteReply(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	replyID := paramUint(c, "replyID")
	if replyID == 0 {
		return httpx.BadRequest(c, "invalid_reply", "Invalid reply id")
	}

	if err := h.feedService.DeleteReply(c.Context(), userID, replyID); err != nil {
		return httpx.FromDomain(c, err, "delete_reply_failed")
	}

	return c.JSON(fiber.Map{"ok": true})
}

// ToggleLike flips the caller's like on a post and returns the new
// state plus the resulting count.
func (h *FeedHandler) ToggleLike(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	postID := paramUint(c, "postID")
	if postID == 0 {
		return httpx.BadRequest(c, "invalid_post", "Invalid post id")
	}

	liked, count, err := h.feedService.ToggleLike(c.Context(), userID, postID)
	if err != nil {
		return httpx.FromDomain(c, err, "toggle_like_failed")
	}

	return c.JSON(fiber.Map{
		"liked":      liked,
		"like_count": count,
	})
}

func (h *FeedHandler) GetReplyCount(c *fiber.Ctx) error {
	if _, err := httpx.LocalUint(c, "userID"); err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	postID := paramUint(c, "postID")
	if postID == 0 {
		return httpx.BadRequest(c, "invalid_post", "Invalid post id")
	}

	count, err := h.feedService.GetReplyCount(c.Context(), postID)
	if err != nil {
		return httpx.FromDomain(c, err, "reply_count_failed")
	}

	return c.JSON(fiber.Map{
		"post_id":     postID,
		"reply_count": count,
	})
}

// SearchPosts matches against flattened post text within one community.
func (h *FeedHandler) SearchPosts(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	communityID := paramUint(c, "communityID")
	if communityID == 0 {
		return httpx.BadRequest(c, "invalid_community", "Invalid community id")
	}

	query := trimQuery(c)
	if query == "" {
		return httpx.BadRequest(c, "missing_query", "Search query is required")
	}

	limit := c.QueryInt("limit", 20)
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	posts, err := h.feedService.SearchPosts(c.Context(), userID, communityID, query, limit)
	if err != nil {
		return httpx.FromDomain(c, err, "search_posts_failed")
	}

	responses := make([]models.PostResponse, len(posts))
	for i, p := range posts {
		responses[i] = p.ToResponse()
	}

	return c.JSON(fiber.Map{
		"posts": responses,
		"count": len(responses),
	})
}
