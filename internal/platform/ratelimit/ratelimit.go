// Package ratelimit provides an in-process sliding-window rate limiter,
// keyed per caller. The sliding window avoids the burst-at-the-boundary
// problem of fixed windows. Not distributed: each instance enforces its own
// budget.
package ratelimit

import (
	"sync"
	"time"
)

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed   bool
	Remaining int
	Limit     int

	// ResetAt is when the oldest counted request leaves the window.
	ResetAt time.Time
}

// Limiter admits up to Limit requests per key within a sliding Window.
type Limiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	windows map[string]*slidingWindow
	now     func() time.Time
}

type slidingWindow struct {
	timestamps []time.Time
}

// NewLimiter builds a limiter admitting limit requests per window per key.
func NewLimiter(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:   limit,
		window:  window,
		windows: make(map[string]*slidingWindow),
		now:     time.Now,
	}
}

// Allow records one request for the key and reports whether it fits the
// budget. Denied requests are not counted against the window.
func (l *Limiter) Allow(key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w := l.windows[key]
	if w == nil {
		w = &slidingWindow{}
		l.windows[key] = w
	}
	w.expire(now.Add(-l.window))

	if len(w.timestamps)+1 > l.limit {
		return Decision{
			Allowed: false,
			Limit:   l.limit,
			ResetAt: w.timestamps[0].Add(l.window),
		}
	}

	w.timestamps = append(w.timestamps, now)
	return Decision{
		Allowed:   true,
		Remaining: l.limit - len(w.timestamps),
		Limit:     l.limit,
		ResetAt:   w.timestamps[0].Add(l.window),
	}
}

// Reset clears the window for a key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

func (w *slidingWindow) expire(cutoff time.Time) {
	i := 0
	for ; i < len(w.timestamps); i++ {
		if w.timestamps[i].After(cutoff) {
			break
		}
	}
	w.timestamps = w.timestamps[i:]
}
