package transport

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// BackoffCooldownPeriod is how long after the last throttle before the
	// original rate is restored.
	BackoffCooldownPeriod = 2 * time.Minute
	// MinRPSMultiplier is the floor for rate reduction (0.25 = 25% of original).
	MinRPSMultiplier = 0.25
)

// RateLimiter paces requests for one API key with a token bucket and slows
// down when the upstream starts throttling.
type RateLimiter struct {
	mu           sync.Mutex
	limiter      *rate.Limiter
	originalRPS  float64
	currentRPS   float64
	lastThrottle time.Time
	throttles    int
}

// NewRateLimiter creates a limiter allowing rps requests per second with the
// given burst. A zero rps disables pacing.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if rps <= 0 {
		return &RateLimiter{}
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiter:     rate.NewLimiter(rate.Limit(rps), burst),
		originalRPS: rps,
		currentRPS:  rps,
	}
}

// Wait blocks until a request may proceed or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil || rl.limiter == nil {
		return nil
	}
	return rl.limiter.Wait(ctx)
}

// RecordThrottle halves the current rate, never going below
// MinRPSMultiplier of the original.
func (rl *RateLimiter) RecordThrottle() {
	if rl == nil || rl.limiter == nil {
		return
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.throttles++
	rl.lastThrottle = time.Now()

	next := rl.currentRPS * 0.5
	if floor := rl.originalRPS * MinRPSMultiplier; next < floor {
		next = floor
	}
	rl.currentRPS = next
	rl.limiter.SetLimit(rate.Limit(next))
}

// RecordSuccess restores the original rate once the cooldown has passed
// since the last throttle.
func (rl *RateLimiter) RecordSuccess() {
	if rl == nil || rl.limiter == nil {
		return
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.throttles == 0 || time.Since(rl.lastThrottle) < BackoffCooldownPeriod {
		return
	}
	rl.throttles = 0
	rl.currentRPS = rl.originalRPS
	rl.limiter.SetLimit(rate.Limit(rl.originalRPS))
}

// CurrentRPS returns the rate currently in effect.
func (rl *RateLimiter) CurrentRPS() float64 {
	if rl == nil {
		return 0
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.currentRPS
}
