package cache

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/Rawann0m/EcoNest-sub000/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	feedPageTTL     = 90 * time.Second
	replyCountTTL   = 5 * time.Minute
	feedPrefix      = "feed:"
	replyCountPfx   = "replycount:"
	feedPageMaxSize = 50
)

// FeedCache caches the first page of each community feed plus per-post
// reply counts. Only page one is cached; deeper pages always hit the
// database since they are rarely requested twice.
type FeedCache struct {
	redis *RedisCache
}

func NewFeedCache(redis *RedisCache) *FeedCache {
	return &FeedCache{redis: redis}
}

func feedKey(communityID uint) string {
	return fmt.Sprintf("%s%d", feedPrefix, communityID)
}

func replyCountKey(postID uint) string {
	return fmt.Sprintf("%s%d", replyCountPfx, postID)
}

// GetFirstPage returns the cached first page of a community feed, or nil on miss.
func (c *FeedCache) GetFirstPage(communityID uint) []models.Post {
	if c == nil || c.redis == nil {
		return nil
	}
	data, err := c.redis.Get(feedKey(communityID))
	if err != nil || data == nil {
		return nil
	}
	var posts []models.Post
	if err := msgpack.Unmarshal(data, &posts); err != nil {
		log.Printf("FeedCache: failed to decode feed for community %d: %v", communityID, err)
		c.redis.Delete(feedKey(communityID))
		return nil
	}
	return posts
}

// SetFirstPage stores the first page of a community feed. Oversized
// pages are not cached.
func (c *FeedCache) SetFirstPage(communityID uint, posts []models.Post) {
	if c == nil || c.redis == nil || len(posts) > feedPageMaxSize {
		return
	}
	data, err := msgpack.Marshal(posts)
	if err != nil {
		log.Printf("FeedCache: failed to encode feed for community %d: %v", communityID, err)
		return
	}
	if err := c.redis.Set(feedKey(communityID), data, feedPageTTL); err != nil {
		log.Printf("FeedCache: failed to cache feed for community %d: %v", communityID, err)
	}
}

// InvalidateFeed drops the cached page for a community. Called on post
// create/delete and on like toggles so counts stay honest.
func (c *FeedCache) InvalidateFeed(communityID uint) {
	if c == nil || c.redis == nil {
		return
	}
	if err := c.redis.Delete(feedKey(communityID)); err != nil {
		log.Printf("FeedCache: failed to invalidate feed for community %d: %v", communityID, err)
	}
}

// GetReplyCount returns the cached reply count for a post. The second
// return value reports whether the count was present.
func (c *FeedCache) GetReplyCount(postID uint) (int64, bool) {
	if c == nil || c.redis == nil {
		return 0, false
	}
	data, err := c.redis.Get(replyCountKey(postID))
	if err != nil || data == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		c.redis.Delete(replyCountKey(postID))
		return 0, false
	}
	return n, true
}

// SetReplyCount stores the reply count for a post.
func (c *FeedCache) SetReplyCount(postID uint, count int64) {
	if c == nil || c.redis == nil {
		return
	}
	data := []byte(strconv.FormatInt(count, 10))
	if err := c.redis.Set(replyCountKey(postID), data, replyCountTTL); err != nil {
		log.Printf("FeedCache: failed to cache reply count for post %d: %v", postID, err)
	}
}

// InvalidateReplyCount drops the cached count after a reply is added or removed.
func (c *FeedCache) InvalidateReplyCount(postID uint) {
	if c == nil || c.redis == nil {
		return
	}
	if err := c.redis.Delete(replyCountKey(postID)); err != nil {
		log.Printf("FeedCache: failed to invalidate reply count for post %d: %v", postID, err)
	}
}
