// Package metrics holds the Prometheus collectors of the gateway.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const Namespace = "quota_gateway"

// Admission outcomes.
const (
	OutcomeAllowed            = "allowed"
	OutcomeRejected           = "rejected"
	OutcomeUnauthenticated    = "unauthenticated"
	OutcomeStoreError         = "store_error"
	OutcomeCounterErrorOpen   = "counter_error_open"
	OutcomeCounterErrorClosed = "counter_error_closed"
)

// Plan cache lookup results.
const (
	CacheHit    = "hit"
	CacheMiss   = "miss"
	CacheAbsent = "absent"
)

// Usage tracker results.
const (
	UsageWritten   = "written"
	UsageCoalesced = "coalesced"
	UsageDropped   = "dropped"
	UsageFailed    = "failed"
)

// Collector groups every metric the gateway exports. A nil *Collector records nothing.
type Collector struct {
	Admissions      *prometheus.CounterVec
	PlanCache       *prometheus.CounterVec
	UsageUpdates    *prometheus.CounterVec
	BreakerState    prometheus.Gauge
	CounterDuration prometheus.Histogram
}

func NewCollector(namespace string) *Collector {
	return &Collector{
		Admissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admissions_total",
			Help:      "Number of admission decisions on protected paths by outcome.",
		}, []string{"outcome"}),
		PlanCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_cache_lookups_total",
			Help:      "Number of plan limit lookups by result.",
		}, []string{"result"}),
		UsageUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usage_updates_total",
			Help:      "Number of last-used updates by result.",
		}, []string{"result"}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "counter_breaker_state",
			Help:      "State of the counter store circuit breaker (0 closed, 1 open, 2 half-open).",
		}),
		CounterDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "counter_increment_duration_seconds",
			Help:      "Latency of window counter increments.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// MustRegister registers all collectors in reg and panics if any error occurs.
func (c *Collector) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		c.Admissions,
		c.PlanCache,
		c.UsageUpdates,
		c.BreakerState,
		c.CounterDuration,
	)
}

func (c *Collector) IncAdmission(outcome string) {
	if c == nil {
		return
	}
	c.Admissions.WithLabelValues(outcome).Inc()
}

func (c *Collector) IncPlanCache(result string) {
	if c == nil {
		return
	}
	c.PlanCache.WithLabelValues(result).Inc()
}

func (c *Collector) IncUsage(result string) {
	if c == nil {
		return
	}
	c.UsageUpdates.WithLabelValues(result).Inc()
}

func (c *Collector) SetBreakerState(state int) {
	if c == nil {
		return
	}
	c.BreakerState.Set(float64(state))
}

func (c *Collector) ObserveCounter(seconds float64) {
	if c == nil {
		return
	}
	c.CounterDuration.Observe(seconds)
}
