package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"resona/db"
	"resona/model"

	"github.com/go-redis/redis/v8"
)

const (
	searchResultKey = "search:songs:%s" // 规范化查询词 -> 结果 JSON
	searchResultTTL = 2 * time.Minute   // 搜索结果短暂缓存
)

// SearchCache 歌曲搜索结果缓存
type SearchCache struct {
	client *redis.Client
}

// NewSearchCache 创建搜索缓存
func NewSearchCache() *SearchCache {
	return &SearchCache{client: db.RedisClient}
}

func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// Get 获取查询词对应的缓存结果，未命中返回 (nil, nil)
func (c *SearchCache) Get(ctx context.Context, query string) ([]*model.SongView, error) {
	if c.client == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	key := fmt.Sprintf(searchResultKey, normalizeQuery(query))
	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var results []*model.SongView
	if err := json.Unmarshal([]byte(data), &results); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached search results: %w", err)
	}
	return results, nil
}

// Set 缓存查询结果
func (c *SearchCache) Set(ctx context.Context, query string, results []*model.SongView) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to marshal search results: %w", err)
	}

	key := fmt.Sprintf(searchResultKey, normalizeQuery(query))
	return c.client.Set(ctx, key, data, searchResultTTL).Err()
}

// Invalidate 清除全部搜索缓存（歌曲/专辑写入后调用）
func (c *SearchCache) Invalidate(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	iter := c.client.Scan(ctx, 0, fmt.Sprintf(searchResultKey, "*"), 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
