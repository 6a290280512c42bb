package cache

import (
	"fmt"
	"time"

	"github.com/andy2076/school-chat-system/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

// TTL constants for room-related cache entries. These caches only hold
// derived data; the message log and receipt set remain the source of
// truth, so short TTLs bound any staleness.
const (
	RoomListTTL    = 2 * time.Minute
	UnreadCountTTL = 1 * time.Minute
)

// RoomCache caches per-user room list summaries and unread counts.
type RoomCache struct {
	redis *RedisCache
}

// NewRoomCache creates a new room cache
func NewRoomCache(redis *RedisCache) *RoomCache {
	return &RoomCache{redis: redis}
}

func roomListKey(userID uint) string {
	return fmt.Sprintf("roomlist:%d", userID)
}

func unreadKey(userID, roomID uint) string {
	return fmt.Sprintf("unread:%d:%d", userID, roomID)
}

// GetRoomList retrieves a cached room list for a user
func (rc *RoomCache) GetRoomList(userID uint) ([]models.RoomSummary, bool) {
	if rc == nil || rc.redis == nil {
		return nil, false
	}
	data, err := rc.redis.Get(roomListKey(userID))
	if err != nil || data == nil {
		return nil, false
	}

	var summaries []models.RoomSummary
	if err := msgpack.Unmarshal(data, &summaries); err != nil {
		return nil, false
	}
	return summaries, true
}

// SetRoomList caches a room list for a user
func (rc *RoomCache) SetRoomList(userID uint, summaries []models.RoomSummary) error {
	if rc == nil || rc.redis == nil {
		return nil
	}
	data, err := msgpack.Marshal(summaries)
	if err != nil {
		return err
	}
	return rc.redis.Set(roomListKey(userID), data, RoomListTTL)
}

// InvalidateRoomList removes a user's cached room list
func (rc *RoomCache) InvalidateRoomList(userID uint) error {
	if rc == nil || rc.redis == nil {
		return nil
	}
	return rc.redis.Delete(roomListKey(userID))
}

// GetUnreadCount retrieves a cached unread count
func (rc *RoomCache) GetUnreadCount(userID, roomID uint) (int64, bool) {
	if rc == nil || rc.redis == nil {
		return 0, false
	}
	data, err := rc.redis.Get(unreadKey(userID, roomID))
	if err != nil || data == nil {
		return 0, false
	}

	var count int64
	if err := msgpack.Unmarshal(data, &count); err != nil {
		return 0, false
	}
	return count, true
}

// SetUnreadCount caches an unread count
func (rc *RoomCache) SetUnreadCount(userID, roomID uint, count int64) error {
	if rc == nil || rc.redis == nil {
		return nil
	}
	data, err := msgpack.Marshal(count)
	if err != nil {
		return err
	}
	return rc.redis.Set(unreadKey(userID, roomID), data, UnreadCountTTL)
}

// InvalidateUnreadCount removes a cached unread count
func (rc *RoomCache) InvalidateUnreadCount(userID, roomID uint) error {
	if rc == nil || rc.redis == nil {
		return nil
	}
	return rc.redis.Delete(unreadKey(userID, roomID))
}

// InvalidateForRoomMembers drops room list and unread entries for every
// given member, typically after an append or membership change.
func (rc *RoomCache) InvalidateForRoomMembers(roomID uint, memberIDs []uint) {
	if rc == nil || rc.redis == nil {
		return
	}
	for _, userID := range memberIDs {
		_ = rc.redis.Delete(roomListKey(userID))
		_ = rc.redis.Delete(unreadKey(userID, roomID))
	}
}
