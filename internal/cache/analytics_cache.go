package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"carehub-backend/internal/domain"
	"carehub-backend/internal/logger"

	"github.com/redis/go-redis/v9"
)

const analyticsKey = "carehub:analytics:platform"

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisAnalyticsCache implements service.AnalyticsCache on a single key.
type RedisAnalyticsCache struct {
	client *redis.Client
}

// NewRedisClient connects and pings so a bad address fails at startup.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

func NewRedisAnalyticsCache(client *redis.Client) *RedisAnalyticsCache {
	return &RedisAnalyticsCache{client: client}
}

func (c *RedisAnalyticsCache) Get(ctx context.Context) (*domain.Analytics, error) {
	data, err := c.client.Get(ctx, analyticsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		logger.Debug("Analytics cache miss")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read analytics from cache: %w", err)
	}

	var a domain.Analytics
	if err := json.Unmarshal(data, &a); err != nil {
		// drop the corrupted entry so the next read recomputes
		_ = c.client.Del(ctx, analyticsKey).Err()
		return nil, fmt.Errorf("failed to decode cached analytics: %w", err)
	}
	return &a, nil
}

func (c *RedisAnalyticsCache) Set(ctx context.Context, a *domain.Analytics, ttl time.Duration) error {
	if a == nil {
		return nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to encode analytics: %w", err)
	}
	if err := c.client.Set(ctx, analyticsKey, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write analytics to cache: %w", err)
	}
	return nil
}

func (c *RedisAnalyticsCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, analyticsKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate analytics cache: %w", err)
	}
	return nil
}
