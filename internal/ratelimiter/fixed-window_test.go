package ratelimiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedWindow(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	rl := NewFixedWindowLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	for range 2 {
		ok, _ := rl.Allow("10.0.0.1")
		assert.True(t, ok)
	}
	ok, retry := rl.Allow("10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, time.Minute, retry)

	ok, _ = rl.Allow("10.0.0.2")
	assert.True(t, ok, "keys are independent")

	now = now.Add(61 * time.Second)
	ok, _ = rl.Allow("10.0.0.1")
	assert.True(t, ok, "window reset")
}

func TestSweepDropsExpired(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	rl := NewFixedWindowLimiter(1, time.Minute)
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	now = now.Add(30 * time.Second)
	rl.Allow("b")
	now = now.Add(31 * time.Second)
	rl.sweep()

	assert.NotContains(t, rl.clients, "a")
	assert.Contains(t, rl.clients, "b")
}
