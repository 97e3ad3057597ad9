package app

import (
	"sync"
	"time"

	"github.com/tastevin/tastevin/internal/domain"
)

// ChatLimiter is a sliding-window send limiter scoped to one room,
// keyed by user. It has its own lock because a user can hold two
// connections into the same room and both paths must count.
type ChatLimiter struct {
	mu       sync.Mutex
	history  map[domain.UserID][]time.Time
	limit    int
	interval time.Duration
	now      func() time.Time
}

func NewChatLimiter(limit int, interval time.Duration) *ChatLimiter {
	return &ChatLimiter{
		history:  make(map[domain.UserID][]time.Time),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

// Allow records an attempt if the user is under the limit. When the
// window is full it returns false plus how long until the oldest
// attempt ages out, so the client can render a countdown.
func (rl *ChatLimiter) Allow(uid domain.UserID) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	// A non-positive limit disables limiting.
	if rl.limit <= 0 {
		return true, 0
	}

	now := rl.now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[uid]
	fresh := make([]time.Time, 0, len(attempts))
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.limit {
		rl.history[uid] = fresh
		return false, fresh[0].Sub(windowStart)
	}

	fresh = append(fresh, now)
	rl.history[uid] = fresh
	return true, 0
}

// Forget drops a user's window, e.g. after a kick.
func (rl *ChatLimiter) Forget(uid domain.UserID) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.history, uid)
}
