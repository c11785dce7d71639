package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/aman-churiwal/quota-gateway/internal/metrics"
	"github.com/aman-churiwal/quota-gateway/internal/models"
)

// PlanCacheTTL bounds how long a changed plan limit can go unnoticed by one process.
const PlanCacheTTL = 60 * time.Second

// PlanSource loads a plan by id, returning nil when it does not exist.
type PlanSource interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Plan, error)
}

type planEntry struct {
	limit     int
	fetchedAt time.Time
}

// PlanCache memoizes plan limits in process memory. Entries are immutable and replaced
// wholesale on refresh. Nothing is ever evicted, so memory grows with the number of
// distinct plans this process has seen.
type PlanCache struct {
	source  PlanSource
	ttl     time.Duration
	clock   clockwork.Clock
	metrics *metrics.Collector

	entries sync.Map // uuid.UUID -> planEntry
	group   singleflight.Group
}

func NewPlanCache(source PlanSource, clock clockwork.Clock, m *metrics.Collector) *PlanCache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &PlanCache{
		source:  source,
		ttl:     PlanCacheTTL,
		clock:   clock,
		metrics: m,
	}
}

// LimitFor returns the requests-per-window limit of a plan. A plan that does not exist has
// limit 0 and is not cached, so it is picked up as soon as it appears.
func (c *PlanCache) LimitFor(ctx context.Context, planID uuid.UUID) (int, error) {
	if v, ok := c.entries.Load(planID); ok {
		entry := v.(planEntry)
		if c.clock.Since(entry.fetchedAt) < c.ttl {
			c.metrics.IncPlanCache(metrics.CacheHit)
			return entry.limit, nil
		}
	}

	// The load is shared by concurrent callers, so one caller going away must not fail the rest.
	loadCtx := context.WithoutCancel(ctx)

	v, err, _ := c.group.Do(planID.String(), func() (interface{}, error) {
		plan, err := c.source.FindByID(loadCtx, planID)
		if err != nil {
			return nil, fmt.Errorf("failed to load plan %s: %w", planID, err)
		}
		if plan == nil {
			c.metrics.IncPlanCache(metrics.CacheAbsent)
			return 0, nil
		}

		c.metrics.IncPlanCache(metrics.CacheMiss)
		c.entries.Store(planID, planEntry{limit: plan.DefaultRPM, fetchedAt: c.clock.Now()})
		return plan.DefaultRPM, nil
	})
	if err != nil {
		return 0, err
	}

	return v.(int), nil
}
