package worker

import (
	"testing"
	"time"

	"shareit/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicyNextDelay(t *testing.T) {
	policy := RetryPolicy{InitialDelay: time.Second, BackoffFactor: 2, MaxDelay: 5 * time.Second}

	assert.Equal(t, time.Second, policy.NextDelay(1))
	assert.Equal(t, 2*time.Second, policy.NextDelay(2))
	assert.Equal(t, 5*time.Second, policy.NextDelay(5))
	assert.Equal(t, 5*time.Second, policy.NextDelay(200), "huge attempts stay clamped")
	assert.Equal(t, time.Second, RetryPolicy{}.NextDelay(0))
}

func TestRetryPolicyFromConfig(t *testing.T) {
	p := RetryPolicyFromConfig(config.OutboxConfig{MaxRetries: 3, BaseDelay: 2 * time.Second, MaxDelay: time.Minute})

	assert.Equal(t, 2*time.Second, p.NextDelay(1))
	assert.Equal(t, 8*time.Second, p.NextDelay(3))
	assert.False(t, p.Exhausted(2))
	assert.True(t, p.Exhausted(3))
	assert.False(t, RetryPolicy{}.Exhausted(100))
}
