package cache

import (
	"context"
	"testing"
	"time"

	"carehub-backend/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisAnalyticsCache) {
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisAnalyticsCache(client)
}

func TestAnalyticsCache_RoundTrip(t *testing.T) {
	mr, c := setupTestRedis(t)
	ctx := context.Background()

	got, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got, "miss is not an error")

	snapshot := &domain.Analytics{
		TotalBookings:     3,
		CompletedBookings: 2,
		TotalRevenue:      4000,
		PlatformEarnings:  600,
		ComputedAt:        time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, c.Set(ctx, snapshot, time.Minute))
	assert.Equal(t, time.Minute, mr.TTL(analyticsKey))

	got, err = c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, snapshot, got)

	mr.FastForward(2 * time.Minute)
	got, err = c.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got, "expired")
}

func TestAnalyticsCache_Invalidate(t *testing.T) {
	mr, c := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, &domain.Analytics{TotalBookings: 1}, time.Hour))
	require.NoError(t, c.Invalidate(ctx))
	assert.False(t, mr.Exists(analyticsKey))

	// invalidating an empty cache is fine
	require.NoError(t, c.Invalidate(ctx))
}

func TestAnalyticsCache_CorruptEntryIsDropped(t *testing.T) {
	mr, c := setupTestRedis(t)
	require.NoError(t, mr.Set(analyticsKey, "{not json"))

	_, err := c.Get(context.Background())
	assert.Error(t, err)
	assert.False(t, mr.Exists(analyticsKey))
}

func TestAnalyticsCache_Unreachable(t *testing.T) {
	mr, c := setupTestRedis(t)
	mr.Close()

	_, err := c.Get(context.Background())
	assert.Error(t, err)
}

func TestNewRedisClient_BadAddress(t *testing.T) {
	_, err := NewRedisClient(context.Background(), RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
