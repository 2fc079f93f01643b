package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a sliding-window counter keyed by client identity. It is owned
// by whoever constructs it and injected where needed; there is no package
// state.
type Limiter struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	hits      map[string][]time.Time
	lastSweep time.Time
	now       func() time.Time
}

func NewLimiter(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:  limit,
		window: window,
		hits:   map[string][]time.Time{},
		now:    time.Now,
	}
}

// Allow records a hit for key and reports whether it is within the limit for
// the current window. Once per window it also sweeps keys that stopped
// hitting, since those would otherwise keep their timestamps resident
// forever.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	windowStart := now.Add(-l.window)

	if now.Sub(l.lastSweep) >= l.window {
		l.sweep(windowStart)
		l.lastSweep = now
	}

	kept := l.hits[key][:0]
	for _, t := range l.hits[key] {
		if t.After(windowStart) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= l.limit {
		l.hits[key] = kept
		return false
	}

	l.hits[key] = append(kept, now)
	return true
}

// PruneStale forces an immediate sweep of keys with no hits inside the
// current window. Allow already sweeps once per window on its own; this is
// for owners that want reclamation on their own schedule.
func (l *Limiter) PruneStale() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(l.now().Add(-l.window))
}

func (l *Limiter) sweep(windowStart time.Time) {
	for key, times := range l.hits {
		live := false
		for _, t := range times {
			if t.After(windowStart) {
				live = true
				break
			}
		}
		if !live {
			delete(l.hits, key)
		}
	}
}
