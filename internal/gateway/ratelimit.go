package gateway

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter applies a per-client requests-per-minute cap with a small
// burst. An RPM of zero or less disables limiting.
type RateLimiter struct {
	rpm      int
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewRateLimiter creates a limiter for the given requests-per-minute budget.
func NewRateLimiter(rpm int) *RateLimiter {
	return &RateLimiter{
		rpm:      rpm,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Enabled reports whether limiting is active.
func (r *RateLimiter) Enabled() bool { return r.rpm > 0 }

// Allow reports whether the client may proceed with one more request.
func (r *RateLimiter) Allow(clientID string) bool {
	if !r.Enabled() {
		return true
	}

	r.mu.Lock()
	lim, ok := r.limiters[clientID]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(r.rpm)), 5)
		r.limiters[clientID] = lim
	}
	r.mu.Unlock()

	return lim.Allow()
}

// Forget drops the per-client state after a disconnect.
func (r *RateLimiter) Forget(clientID string) {
	r.mu.Lock()
	delete(r.limiters, clientID)
	r.mu.Unlock()
}
