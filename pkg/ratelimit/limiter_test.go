package ratelimit_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nimbusvault/gateway/pkg/ratelimit"
)

func TestLimiter_FixedWindow(t *testing.T) {
	now := time.Now()
	limiter := ratelimit.NewLimiter(3, time.Minute, &ratelimit.Opts{
		TimeProvider: func() time.Time { return now },
	})

	for i := 0; i < 3; i++ {
		decision := limiter.Allow("10.0.0.1")
		assert.True(t, decision.Allowed, "request %d should pass", i+1)
	}

	decision := limiter.Allow("10.0.0.1")
	assert.False(t, decision.Allowed)
	assert.Greater(t, decision.RetryAfter, time.Duration(0))

	// Another client key is unaffected.
	assert.True(t, limiter.Allow("10.0.0.2").Allowed)
}

func TestLimiter_WindowReset(t *testing.T) {
	now := time.Now()
	limiter := ratelimit.NewLimiter(1, time.Minute, &ratelimit.Opts{
		TimeProvider: func() time.Time { return now },
	})

	assert.True(t, limiter.Allow("key").Allowed)
	assert.False(t, limiter.Allow("key").Allowed)

	now = now.Add(time.Minute)
	assert.True(t, limiter.Allow("key").Allowed)
	assert.False(t, limiter.Allow("key").Allowed)
}

func TestLimiter_ConcurrentNoOverAdmit(t *testing.T) {
	const limit = 50
	limiter := ratelimit.NewLimiter(limit, time.Minute, nil)

	var allowed int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Allow("shared").Allowed {
				atomic.AddInt64(&allowed, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(limit), allowed)
}

func TestLimiter_Prune(t *testing.T) {
	now := time.Now()
	limiter := ratelimit.NewLimiter(5, time.Minute, &ratelimit.Opts{
		TimeProvider: func() time.Time { return now },
	})

	limiter.Allow("stale")
	now = now.Add(3 * time.Minute)
	limiter.Prune()

	// A pruned key starts a fresh window.
	decision := limiter.Allow("stale")
	assert.True(t, decision.Allowed)
	assert.Equal(t, 4, decision.Remaining)
}
