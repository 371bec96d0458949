package repository

import (
	"context"
	"testing"
	"time"

	"shareit/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisRateLimiter(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	limiter := NewRedisRateLimiter(client, "")
	ctx := context.Background()

	t.Run("AllowsUpToLimit", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			allowed, err := limiter.CheckRateLimit(ctx, 1, 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, allowed, "request %d", i+1)
		}
		allowed, err := limiter.CheckRateLimit(ctx, 1, 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)
	})

	t.Run("WindowHasTTL", func(t *testing.T) {
		_, err := limiter.CheckRateLimit(ctx, 2, 3, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, time.Minute, s.TTL("shareit:rate_limit:2"))
	})

	t.Run("WindowExpires", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			_, err := limiter.CheckRateLimit(ctx, 3, 1, time.Minute)
			require.NoError(t, err)
		}
		s.FastForward(2 * time.Minute)
		allowed, err := limiter.CheckRateLimit(ctx, 3, 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("UsersAreIndependent", func(t *testing.T) {
		allowed, err := limiter.CheckRateLimit(ctx, 4, 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, Ping(ctx, client))
	})
}

func TestRedisRateLimiter_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewRedisRateLimiter(nil, "x").CheckRateLimit(ctx, 1, 1, time.Minute)
	assert.Error(t, err)

	s, err := miniredis.Run()
	require.NoError(t, err)
	client := NewRedisClient(config.RedisConfig{Address: s.Addr()})
	s.Close()

	_, err = NewRedisRateLimiter(client, "x").CheckRateLimit(ctx, 1, 1, time.Minute)
	assert.Error(t, err)
	assert.Error(t, Ping(ctx, client))

	assert.NoError(t, Close(client))
	assert.NoError(t, Close(nil))
}
