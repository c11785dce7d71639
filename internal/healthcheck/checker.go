package healthcheck

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/aman-churiwal/quota-gateway/internal/logging"
)

// Probe reports whether a dependency is reachable.
type Probe func(ctx context.Context) error

// Dependency is a named probe, e.g. "postgres" with the store's Ping.
type Dependency struct {
	Name  string
	Probe Probe
}

// Periodically probes the gateway's dependencies
type Checker struct {
	mu           sync.RWMutex
	dependencies []Dependency
	healthStatus map[string]*Status
	interval     time.Duration
	timeout      time.Duration
	maxFailures  int
	clock        clockwork.Clock
	log          logging.FieldLogger
	stopChan     chan struct{}
	doneChan     chan struct{}
	running      bool
	stopped      bool
}

// Holds health checker configuration
type Config struct {
	Dependencies []Dependency
	Interval     time.Duration // How often to check (default: 10s)
	Timeout      time.Duration // Probe timeout (default: 2s)
	MaxFailures  int           // Failures before marking unhealthy (default: 1)
	Clock        clockwork.Clock
}

func NewChecker(cfg Config, log logging.FieldLogger) *Checker {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 1
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}

	checker := &Checker{
		dependencies: cfg.Dependencies,
		healthStatus: make(map[string]*Status),
		interval:     cfg.Interval,
		timeout:      cfg.Timeout,
		maxFailures:  cfg.MaxFailures,
		clock:        cfg.Clock,
		log:          log,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}

	// Unknown until the first probe runs
	for _, dep := range cfg.Dependencies {
		checker.healthStatus[dep.Name] = &Status{Name: dep.Name}
	}

	return checker
}

// Runs one round of probes and then keeps probing every interval until Stop.
// A stopped checker cannot be started again.
func (c *Checker) Start() {
	c.mu.Lock()
	if c.running || c.stopped {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.mu.Unlock()

	c.log.Info("starting dependency checks",
		logging.Int("dependencies", len(c.dependencies)),
		logging.Duration("interval", c.interval),
	)

	c.CheckAll(context.Background())

	go func() {
		defer close(c.doneChan)

		ticker := c.clock.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.Chan():
				c.CheckAll(context.Background())
			case <-c.stopChan:
				return
			}
		}
	}()
}

// Stops the health checker and waits for the probe loop to exit
func (c *Checker) Stop() {
	c.mu.Lock()
	if !c.running {
		c.stopped = true
		c.mu.Unlock()
		return
	}
	close(c.stopChan)
	c.running = false
	c.stopped = true
	c.mu.Unlock()

	<-c.doneChan
	c.log.Info("dependency checker stopped")
}

// Probes every dependency concurrently
func (c *Checker) CheckAll(ctx context.Context) {
	var wg sync.WaitGroup

	for _, dep := range c.dependencies {
		wg.Add(1)
		go func(d Dependency) {
			defer wg.Done()
			c.check(ctx, d)
		}(dep)
	}

	wg.Wait()
}

func (c *Checker) check(ctx context.Context, dep Dependency) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := dep.Probe(ctx); err != nil {
		c.recordFailure(dep.Name, err)
		return
	}
	c.recordSuccess(dep.Name)
}

// Records a successful probe
func (c *Checker) recordSuccess(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	status := c.healthStatus[name]
	status.Checked = true
	status.LastCheck = now
	status.LastSuccess = now
	status.FailureCount = 0
	status.LastError = ""

	if !status.IsHealthy {
		c.log.Info("dependency is healthy", logging.String("dependency", name))
		status.IsHealthy = true
	}
}

// Records a failed probe
func (c *Checker) recordFailure(name string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	status := c.healthStatus[name]
	status.Checked = true
	status.LastCheck = now
	status.LastFailure = now
	status.FailureCount++
	status.LastError = err.Error()

	if status.FailureCount == c.maxFailures {
		c.log.Warn("dependency is unhealthy",
			logging.String("dependency", name),
			logging.Int("failures", status.FailureCount),
			logging.Error(err),
		)
	}
	if status.FailureCount >= c.maxFailures {
		status.IsHealthy = false
	}
}

// Returns a copy of every dependency's status, ordered by name
func (c *Checker) AllStatus() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Status, 0, len(c.healthStatus))
	for _, status := range c.healthStatus {
		out = append(out, *status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

// Returns the overall health status
func (c *Checker) OverallHealth() HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	healthy := 0
	for _, status := range c.healthStatus {
		if status.IsHealthy {
			healthy++
		}
	}

	switch {
	case healthy == len(c.healthStatus):
		return Healthy
	case healthy == 0:
		return Unhealthy
	default:
		return Degraded
	}
}
