package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/weiawesome/majex-chat/internal/config"
	"github.com/weiawesome/majex-chat/internal/domain"
)

// RedisHistoryCache keeps every cached query as a field of one hash whose
// key is the configured prefix.
type RedisHistoryCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedisHistoryCache(redisCfg config.RedisConfig, cacheCfg config.CacheConfig) (*RedisHistoryCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     redisCfg.Address,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisHistoryCache{
		client: client,
		key:    cacheCfg.Prefix,
		ttl:    cacheCfg.TTL,
	}, nil
}

func (c *RedisHistoryCache) Get(ctx context.Context, field string) ([]domain.ChatMessage, error) {
	data, err := c.client.HGet(ctx, c.key, field).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var messages []domain.ChatMessage
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}
	return messages, nil
}

func (c *RedisHistoryCache) Set(ctx context.Context, field string, messages []domain.ChatMessage) error {
	if messages == nil {
		messages = []domain.ChatMessage{}
	}
	data, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, c.key, field, data)
		if c.ttl > 0 {
			// The TTL starts with the first field written after an
			// invalidation and is never extended.
			pipe.ExpireNX(ctx, c.key, c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}
	return nil
}

func (c *RedisHistoryCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate redis cache: %w", err)
	}
	return nil
}

func (c *RedisHistoryCache) Close() error {
	return c.client.Close()
}
