package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChatLimiter_Window(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := NewChatLimiter(3, 30*time.Second)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		ok, _ := rl.Allow("u1")
		assert.True(t, ok, "attempt %d should pass", i+1)
	}

	ok, retryAfter := rl.Allow("u1")
	assert.False(t, ok)
	assert.Greater(t, retryAfter, time.Duration(0))
	assert.LessOrEqual(t, retryAfter, 30*time.Second)

	// Other users have their own window.
	ok, _ = rl.Allow("u2")
	assert.True(t, ok)

	// After the window elapses the same action succeeds.
	now = now.Add(31 * time.Second)
	ok, _ = rl.Allow("u1")
	assert.True(t, ok)
}

func TestChatLimiter_Forget(t *testing.T) {
	rl := NewChatLimiter(1, time.Minute)
	ok, _ := rl.Allow("u1")
	assert.True(t, ok)
	ok, _ = rl.Allow("u1")
	assert.False(t, ok)

	rl.Forget("u1")
	ok, _ = rl.Allow("u1")
	assert.True(t, ok)
}

func TestChatLimiter_NonPositiveLimitDisables(t *testing.T) {
	rl := NewChatLimiter(0, 0)
	for i := 0; i < 20; i++ {
		ok, retry := rl.Allow("u1")
		assert.True(t, ok)
		assert.Zero(t, retry)
	}

	rl = NewChatLimiter(-1, time.Minute)
	ok, _ := rl.Allow("u1")
	assert.True(t, ok)
}
