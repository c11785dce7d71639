package healthcheck

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-churiwal/quota-gateway/internal/logging"
)

type switchProbe struct {
	fail  atomic.Bool
	calls atomic.Int32
}

func (p *switchProbe) probe(context.Context) error {
	p.calls.Add(1)
	if p.fail.Load() {
		return errors.New("connection refused")
	}
	return nil
}

func TestChecker_OverallHealth(t *testing.T) {
	pg, rd := &switchProbe{}, &switchProbe{}
	c := NewChecker(Config{
		Dependencies: []Dependency{{Name: "postgres", Probe: pg.probe}, {Name: "redis", Probe: rd.probe}},
		Clock:        clockwork.NewFakeClock(),
	}, logging.NewDisabledLogger())

	assert.Equal(t, Unhealthy, c.OverallHealth(), "nothing probed yet")

	c.CheckAll(context.Background())
	assert.Equal(t, Healthy, c.OverallHealth())

	rd.fail.Store(true)
	c.CheckAll(context.Background())
	assert.Equal(t, Degraded, c.OverallHealth())

	statuses := c.AllStatus()
	require.Len(t, statuses, 2)
	assert.Equal(t, "postgres", statuses[0].Name)
	assert.True(t, statuses[0].IsHealthy)
	assert.Equal(t, "redis", statuses[1].Name)
	assert.False(t, statuses[1].IsHealthy)
	assert.Equal(t, "connection refused", statuses[1].LastError)

	pg.fail.Store(true)
	c.CheckAll(context.Background())
	assert.Equal(t, Unhealthy, c.OverallHealth())

	pg.fail.Store(false)
	rd.fail.Store(false)
	c.CheckAll(context.Background())
	assert.Equal(t, Healthy, c.OverallHealth())
}

func TestChecker_MaxFailures(t *testing.T) {
	p := &switchProbe{}
	c := NewChecker(Config{
		Dependencies: []Dependency{{Name: "redis", Probe: p.probe}},
		MaxFailures:  2,
		Clock:        clockwork.NewFakeClock(),
	}, logging.NewDisabledLogger())

	c.CheckAll(context.Background())
	p.fail.Store(true)

	c.CheckAll(context.Background())
	assert.Equal(t, Healthy, c.OverallHealth())

	c.CheckAll(context.Background())
	assert.Equal(t, Unhealthy, c.OverallHealth())
}

func TestChecker_StartStop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	p := &switchProbe{}
	c := NewChecker(Config{
		Dependencies: []Dependency{{Name: "redis", Probe: p.probe}},
		Interval:     time.Second,
		Clock:        clock,
	}, logging.NewDisabledLogger())

	c.Start()
	c.Start()
	assert.Equal(t, int32(1), p.calls.Load())

	require.NoError(t, clock.BlockUntilContext(context.Background(), 1))
	clock.Advance(time.Second)
	assert.Eventually(t, func() bool { return p.calls.Load() == 2 }, time.Second, 5*time.Millisecond)

	c.Stop()
	c.Stop()
}

func TestChecker_StartAfterStopIsNoop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	p := &switchProbe{}
	c := NewChecker(Config{
		Dependencies: []Dependency{{Name: "redis", Probe: p.probe}},
		Clock:        clock,
	}, logging.NewDisabledLogger())

	c.Start()
	c.Stop()
	require.Equal(t, int32(1), p.calls.Load())

	assert.NotPanics(t, func() {
		c.Start()
		c.Stop()
	})
	assert.Equal(t, int32(1), p.calls.Load())

	neverStarted := NewChecker(Config{
		Dependencies: []Dependency{{Name: "postgres", Probe: p.probe}},
		Clock:        clock,
	}, logging.NewDisabledLogger())
	neverStarted.Stop()
	neverStarted.Start()
	assert.Equal(t, int32(1), p.calls.Load())
}
