package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"shareit/internal/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRateLimiter(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	limiter := NewMemoryRateLimiter(clk)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := limiter.CheckRateLimit(ctx, 1, 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, err := limiter.CheckRateLimit(ctx, 1, 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	clk.Add(time.Minute)
	allowed, err = limiter.CheckRateLimit(ctx, 1, 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed, "new window")
}

func TestMemoryRateLimiter_Prune(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	limiter := NewMemoryRateLimiter(clk)
	ctx := context.Background()

	_, _ = limiter.CheckRateLimit(ctx, 1, 5, time.Minute)
	_, _ = limiter.CheckRateLimit(ctx, 2, 5, time.Hour)

	clk.Add(2 * time.Minute)
	assert.Equal(t, 1, limiter.Prune())
	assert.Equal(t, 0, limiter.Prune())
}

func TestMemoryRateLimiter_Concurrent(t *testing.T) {
	limiter := NewMemoryRateLimiter(nil)
	ctx := context.Background()

	const workers = 50
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := limiter.CheckRateLimit(ctx, 9, 10, time.Hour)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, allowed)
}
