package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/povarna/generative-ai-agents/api-discovery/internal/models"
	"github.com/redis/go-redis/v9"
)

// Cache stores ranked results per query and top_k
type Cache interface {
	Get(ctx context.Context, key string) ([]models.QueryResult, bool, error)
	Set(ctx context.Context, key string, results []models.QueryResult) error
}

func cacheKey(query string, topK int) string {
	return fmt.Sprintf("top_apis:%d:%x", topK, sha256.Sum256([]byte(query)))
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]models.QueryResult, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var results []models.QueryResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, false, fmt.Errorf("decode cached results: %w", err)
	}
	return results, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, results []models.QueryResult) error {
	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
