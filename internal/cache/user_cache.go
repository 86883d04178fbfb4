package cache

import (
	"fmt"
	"log"
	"strconv"
)

const onlineUsersKey = "online_users"

// PresenceCache tracks which users currently hold a websocket
// connection. Membership is a Redis set so multiple server instances
// see the same view.
type PresenceCache struct {
	redis *RedisCache
}

func NewPresenceCache(redis *RedisCache) *PresenceCache {
	return &PresenceCache{redis: redis}
}

// SetOnline marks a user as connected.
func (c *PresenceCache) SetOnline(userID uint) {
	if c == nil || c.redis == nil {
		return
	}
	if err := c.redis.SetAdd(onlineUsersKey, fmt.Sprintf("%d", userID)); err != nil {
		log.Printf("PresenceCache: failed to mark user %d online: %v", userID, err)
	}
}

// SetOffline clears a user's connected flag.
func (c *PresenceCache) SetOffline(userID uint) {
	if c == nil || c.redis == nil {
		return
	}
	if err := c.redis.SetRemove(onlineUsersKey, fmt.Sprintf("%d", userID)); err != nil {
		log.Printf("PresenceCache: failed to mark user %d offline: %v", userID, err)
	}
}

// IsOnline reports whether a user has at least one live connection.
func (c *PresenceCache) IsOnline(userID uint) bool {
	if c == nil || c.redis == nil {
		return false
	}
	return c.redis.SetIsMember(onlineUsersKey, fmt.Sprintf("%d", userID))
}

// OnlineUsers returns the ids of all connected users.
func (c *PresenceCache) OnlineUsers() []uint {
	if c == nil || c.redis == nil {
		return nil
	}
	members, err := c.redis.SetMembers(onlineUsersKey)
	if err != nil {
		log.Printf("PresenceCache: failed to list online users: %v", err)
		return nil
	}
	ids := make([]uint, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseUint(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, uint(id))
	}
	return ids
}
