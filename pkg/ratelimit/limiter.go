package ratelimit

import (
	"sync"
	"time"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

type window struct {
	mu          sync.Mutex
	count       int
	windowStart time.Time
}

// Limiter is a fixed-window counter keyed by client. Windows reset the
// first time a request arrives after expiry; bursts across a window
// boundary are accepted by design. O(1) memory and update per key.
type Limiter struct {
	limit        int
	windowSize   time.Duration
	entries      sync.Map // client key -> *window
	timeProvider func() time.Time
}

type Opts struct {
	TimeProvider func() time.Time
}

func NewLimiter(limit int, windowSize time.Duration, opts *Opts) *Limiter {
	timeProvider := time.Now
	if opts != nil && opts.TimeProvider != nil {
		timeProvider = opts.TimeProvider
	}
	return &Limiter{
		limit:        limit,
		windowSize:   windowSize,
		timeProvider: timeProvider,
	}
}

// Allow increments the caller's window and reports whether the request is
// within the limit. The increment-and-compare runs under the per-key lock,
// so concurrent callers on one key never over-admit.
func (l *Limiter) Allow(key string) Decision {
	entry, _ := l.entries.LoadOrStore(key, &window{})
	w, ok := entry.(*window)
	if !ok {
		return Decision{Allowed: true, Remaining: l.limit}
	}

	now := l.timeProvider()

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.windowStart.IsZero() || now.Sub(w.windowStart) >= l.windowSize {
		w.windowStart = now
		w.count = 0
	}

	if w.count >= l.limit {
		return Decision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: l.windowSize - now.Sub(w.windowStart),
		}
	}

	w.count++
	return Decision{Allowed: true, Remaining: l.limit - w.count}
}

// Prune drops windows idle for more than one full window so abandoned
// client keys do not accumulate.
func (l *Limiter) Prune() {
	now := l.timeProvider()
	l.entries.Range(func(key, value interface{}) bool {
		w, ok := value.(*window)
		if !ok {
			return true
		}
		w.mu.Lock()
		stale := !w.windowStart.IsZero() && now.Sub(w.windowStart) >= 2*l.windowSize
		w.mu.Unlock()
		if stale {
			l.entries.Delete(key)
		}
		return true
	})
}

// Janitor runs Prune on a ticker until stop is closed.
func (l *Limiter) Janitor(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.Prune()
		case <-stop:
			return
		}
	}
}
