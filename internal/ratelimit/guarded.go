package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aman-churiwal/quota-gateway/internal/circuitbreaker"
	"github.com/aman-churiwal/quota-gateway/internal/metrics"
)

// ErrCounterUnavailable wraps every failure of the counter store, including an open breaker.
var ErrCounterUnavailable = errors.New("window counter unavailable")

// GuardedCounter bounds each increment by a timeout and stops calling a failing store
// until its circuit breaker lets a probe through.
type GuardedCounter struct {
	next    Counter
	breaker *circuitbreaker.CircuitBreaker
	timeout time.Duration
	metrics *metrics.Collector
}

func NewGuardedCounter(next Counter, breaker *circuitbreaker.CircuitBreaker, timeout time.Duration, m *metrics.Collector) *GuardedCounter {
	return &GuardedCounter{
		next:    next,
		breaker: breaker,
		timeout: timeout,
		metrics: m,
	}
}

func (g *GuardedCounter) Increment(ctx context.Context, keyID string, windowIndex int64) (int64, error) {
	var count int64
	start := time.Now()

	err := g.breaker.Call(ctx, func(ctx context.Context) error {
		if g.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}

		var err error
		count, err = g.next.Increment(ctx, keyID, windowIndex)
		return err
	})

	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrCounterUnavailable, err)
	}

	g.metrics.ObserveCounter(time.Since(start).Seconds())
	return count, nil
}
