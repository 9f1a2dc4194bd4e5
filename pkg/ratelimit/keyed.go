package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Keyed hands out one token bucket per key (subject id, client IP).
// Buckets idle for longer than the eviction window are dropped on the next sweep.
type Keyed struct {
	mu       sync.Mutex
	limiters map[string]*entry
	rate     rate.Limit
	burst    int
	idle     time.Duration
	lastGC   time.Time
	now      func() time.Time
}

// PerMinute builds a limiter allowing n events per minute per key with the given burst.
// n <= 0 disables limiting.
func PerMinute(n, burst int) *Keyed {
	limit := rate.Inf
	if n > 0 {
		limit = rate.Every(time.Minute / time.Duration(n))
	}
	if burst <= 0 {
		burst = 1
	}
	return &Keyed{
		limiters: make(map[string]*entry),
		rate:     limit,
		burst:    burst,
		idle:     10 * time.Minute,
		now:      time.Now,
	}
}

// Allow reports whether an event for key may happen now.
func (k *Keyed) Allow(key string) bool {
	if k == nil || k.rate == rate.Inf {
		return true
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	k.sweep(now)
	e, ok := k.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(k.rate, k.burst)}
		k.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// Len returns the number of tracked keys.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.limiters)
}

func (k *Keyed) sweep(now time.Time) {
	if now.Sub(k.lastGC) < k.idle {
		return
	}
	for key, e := range k.limiters {
		if now.Sub(e.lastSeen) > k.idle {
			delete(k.limiters, key)
		}
	}
	k.lastGC = now
}
