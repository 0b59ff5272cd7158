package cache

import (
	"context"
	"fmt"
	"time"

	"resona/db"

	"github.com/go-redis/redis/v8"
)

const (
	chatPresenceKey = "chat:presence:%d"  // String: 用户在线心跳 key
	chatOnlineSet   = "chat:online_users" // Set: 在线用户集合
	presenceTTL     = 60 * time.Second    // 心跳过期时间
)

// PresenceCache 聊天在线状态缓存。注册/注销连接时更新，
// 供在线列表等读路径查询，失败时只降级不影响消息投递。
type PresenceCache struct {
	client *redis.Client
}

// NewPresenceCache 创建在线状态缓存
func NewPresenceCache() *PresenceCache {
	return &PresenceCache{client: db.RedisClient}
}

// UpdateUserPresence 更新用户在线心跳
func (c *PresenceCache) UpdateUserPresence(ctx context.Context, userID int64) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, fmt.Sprintf(chatPresenceKey, userID), time.Now().Unix(), presenceTTL)
	pipe.SAdd(ctx, chatOnlineSet, userID)
	_, err := pipe.Exec(ctx)
	return err
}

// RemoveUserPresence 移除用户在线状态
func (c *PresenceCache) RemoveUserPresence(ctx context.Context, userID int64) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	pipe := c.client.Pipeline()
	pipe.Del(ctx, fmt.Sprintf(chatPresenceKey, userID))
	pipe.SRem(ctx, chatOnlineSet, userID)
	_, err := pipe.Exec(ctx)
	return err
}

// IsUserOnline 检查用户心跳 key 是否存在
func (c *PresenceCache) IsUserOnline(ctx context.Context, userID int64) (bool, error) {
	if c.client == nil {
		return false, fmt.Errorf("Redis client not initialized")
	}

	n, err := c.client.Exists(ctx, fmt.Sprintf(chatPresenceKey, userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetOnlineUsers 获取当前有有效心跳的用户ID列表
func (c *PresenceCache) GetOnlineUsers(ctx context.Context) ([]int64, error) {
	if c.client == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	members, err := c.client.SMembers(ctx, chatOnlineSet).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	online := make([]int64, 0, len(members))
	for _, m := range members {
		var userID int64
		if _, err := fmt.Sscanf(m, "%d", &userID); err != nil {
			continue
		}
		// 集合中可能残留已过期用户，按心跳 key 过滤
		exists, err := c.client.Exists(ctx, fmt.Sprintf(chatPresenceKey, userID)).Result()
		if err != nil {
			return nil, err
		}
		if exists > 0 {
			online = append(online, userID)
		} else {
			c.client.SRem(ctx, chatOnlineSet, userID)
		}
	}
	return online, nil
}
