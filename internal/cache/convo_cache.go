package cache

import (
	"fmt"
	"log"
	"time"

	"github.com/Rawann0m/EcoNest-sub000/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	summariesTTL    = 2 * time.Minute
	summariesPrefix = "summaries:"
)

// ConvoCache caches per-user conversation summary lists. Entries are
// msgpack-encoded and invalidated on every write that touches a thread,
// so a short TTL is only a backstop.
type ConvoCache struct {
	redis *RedisCache
}

func NewConvoCache(redis *RedisCache) *ConvoCache {
	return &ConvoCache{redis: redis}
}

func summariesKey(ownerID uint) string {
	return fmt.Sprintf("%s%d", summariesPrefix, ownerID)
}

// GetSummaries returns the cached summary list for a user, or nil on miss.
func (c *ConvoCache) GetSummaries(ownerID uint) []models.ConversationSummary {
	if c == nil || c.redis == nil {
		return nil
	}
	data, err := c.redis.Get(summariesKey(ownerID))
	if err != nil || data == nil {
		return nil
	}
	var summaries []models.ConversationSummary
	if err := msgpack.Unmarshal(data, &summaries); err != nil {
		log.Printf("ConvoCache: failed to decode summaries for user %d: %v", ownerID, err)
		c.redis.Delete(summariesKey(ownerID))
		return nil
	}
	return summaries
}

// SetSummaries stores the summary list for a user.
func (c *ConvoCache) SetSummaries(ownerID uint, summaries []models.ConversationSummary) {
	if c == nil || c.redis == nil {
		return
	}
	data, err := msgpack.Marshal(summaries)
	if err != nil {
		log.Printf("ConvoCache: failed to encode summaries for user %d: %v", ownerID, err)
		return
	}
	if err := c.redis.Set(summariesKey(ownerID), data, summariesTTL); err != nil {
		log.Printf("ConvoCache: failed to cache summaries for user %d: %v", ownerID, err)
	}
}

// Invalidate drops the cached list for a user. Called after any write
// that changes that user's threads or read state.
func (c *ConvoCache) Invalidate(ownerID uint) {
	if c == nil || c.redis == nil {
		return
	}
	if err := c.redis.Delete(summariesKey(ownerID)); err != nil {
		log.Printf("ConvoCache: failed to invalidate summaries for user %d: %v", ownerID, err)
	}
}

// InvalidatePair drops both participants' cached lists after a send.
func (c *ConvoCache) InvalidatePair(a, b uint) {
	c.Invalidate(a)
	c.Invalidate(b)
}
