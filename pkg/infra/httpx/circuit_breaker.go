package httpx

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// CircuitBreaker short-circuits calls to a backend after a run of
// consecutive failures, recovering after the configured open duration.
type CircuitBreaker interface {
	Execute(fn func() error) error
}

// IsOpen reports whether err came from an open or saturated breaker rather
// than the wrapped call itself.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

type breakerWrapper struct {
	breaker *gobreaker.CircuitBreaker
}

func newBreaker(name string, openDuration time.Duration, maxFailures uint32) CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Timeout:     openDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
	}
	return &breakerWrapper{breaker: gobreaker.NewCircuitBreaker(settings)}
}

func (b *breakerWrapper) Execute(fn func() error) error {
	_, err := b.breaker.Execute(func() (interface{}, error) {
		if err := fn(); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		if IsOpen(err) {
			return err
		}
		return fmt.Errorf("breaker (%s): %w", b.breaker.Name(), err)
	}
	return nil
}

// BreakerGroup keeps one breaker per backend.
type BreakerGroup struct {
	mu           sync.Mutex
	breakers     map[string]CircuitBreaker
	openDuration time.Duration
	maxFailures  uint32
}

func NewBreakerGroup(openDuration time.Duration, maxFailures uint32) *BreakerGroup {
	return &BreakerGroup{
		breakers:     make(map[string]CircuitBreaker),
		openDuration: openDuration,
		maxFailures:  maxFailures,
	}
}

func (g *BreakerGroup) ForBackend(name string) CircuitBreaker {
	g.mu.Lock()
	defer g.mu.Unlock()
	cb, ok := g.breakers[name]
	if !ok {
		cb = newBreaker(name, g.openDuration, g.maxFailures)
		g.breakers[name] = cb
	}
	return cb
}
