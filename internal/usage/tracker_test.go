package usage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-churiwal/quota-gateway/internal/logging"
	"github.com/aman-churiwal/quota-gateway/internal/logging/logtest"
	"github.com/aman-churiwal/quota-gateway/internal/metrics"
)

type recordingStore struct {
	mu      sync.Mutex
	writes  map[uuid.UUID][]time.Time
	err     error
	block   chan struct{}
	started chan struct{}
}

func newRecordingStore() *recordingStore {
	return &recordingStore{writes: make(map[uuid.UUID][]time.Time)}
}

func (s *recordingStore) UpdateLastUsed(_ context.Context, id uuid.UUID, at time.Time) error {
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.writes[id] = append(s.writes[id], at)
	return nil
}

func (s *recordingStore) count(id uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.writes[id])
}

func TestTracker_WritesEventually(t *testing.T) {
	store := newRecordingStore()
	clock := clockwork.NewFakeClock()
	tr := NewTracker(store, Config{QueueSize: 8, Workers: 2}, clock, logging.NewDisabledLogger(), nil)
	tr.Start()
	defer func() { _ = tr.Shutdown(context.Background()) }()

	id := uuid.New()
	tr.Track(id)

	assert.Eventually(t, func() bool { return store.count(id) == 1 }, time.Second, 5*time.Millisecond)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.True(t, store.writes[id][0].Equal(clock.Now()))
}

func TestTracker_CoalescesWithinInterval(t *testing.T) {
	store := newRecordingStore()
	clock := clockwork.NewFakeClock()
	m := metrics.NewCollector("test")
	tr := NewTracker(store, Config{QueueSize: 8, Workers: 1, CoalesceInterval: time.Minute}, clock, logging.NewDisabledLogger(), m)
	tr.Start()

	id := uuid.New()
	tr.Track(id)
	tr.Track(id)
	tr.Track(id)

	clock.Advance(time.Minute)
	tr.Track(id)

	require.NoError(t, tr.Shutdown(context.Background()))

	assert.Equal(t, 2, store.count(id))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.UsageUpdates.WithLabelValues(metrics.UsageCoalesced)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.UsageUpdates.WithLabelValues(metrics.UsageWritten)))
}

func TestTracker_DropsWhenQueueFull(t *testing.T) {
	store := newRecordingStore()
	m := metrics.NewCollector("test")
	tr := NewTracker(store, Config{QueueSize: 1, Workers: 1}, clockwork.NewFakeClock(), logging.NewDisabledLogger(), m)

	// Not started: the first update fills the queue.
	first := uuid.New()
	tr.Track(first)
	tr.Track(uuid.New())
	tr.Track(uuid.New())

	require.NoError(t, tr.Shutdown(context.Background()))

	assert.Equal(t, 1, store.count(first))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.UsageUpdates.WithLabelValues(metrics.UsageDropped)))
}

func TestTracker_SwallowsErrors(t *testing.T) {
	store := newRecordingStore()
	store.err = errors.New("record not found")
	m := metrics.NewCollector("test")
	rec := logtest.NewRecorder()
	tr := NewTracker(store, Config{QueueSize: 4, Workers: 1}, clockwork.NewFakeClock(), rec, m)
	tr.Start()

	assert.NotPanics(t, func() { tr.Track(uuid.New()) })
	require.NoError(t, tr.Shutdown(context.Background()))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.UsageUpdates.WithLabelValues(metrics.UsageFailed)))
	entry, ok := rec.FindEntry("failed to update last used time")
	require.True(t, ok)
	_, hasErr := entry.FindField("error")
	assert.True(t, hasErr)
}

func TestTracker_TrackDoesNotBlockOnSlowStore(t *testing.T) {
	store := newRecordingStore()
	store.block = make(chan struct{})
	store.started = make(chan struct{}, 16)
	tr := NewTracker(store, Config{QueueSize: 2, Workers: 1}, clockwork.NewFakeClock(), logging.NewDisabledLogger(), nil)
	tr.Start()

	tr.Track(uuid.New())
	<-store.started

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			tr.Track(uuid.New())
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Track blocked on a slow store")
	}

	close(store.block)
	require.NoError(t, tr.Shutdown(context.Background()))
}

func TestTracker_ShutdownDeadline(t *testing.T) {
	store := newRecordingStore()
	store.block = make(chan struct{})
	store.started = make(chan struct{}, 1)
	tr := NewTracker(store, Config{QueueSize: 2, Workers: 1}, clockwork.NewFakeClock(), logging.NewDisabledLogger(), nil)
	tr.Start()
	tr.Track(uuid.New())
	<-store.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, tr.Shutdown(ctx), context.DeadlineExceeded)

	close(store.block)
}

func TestTracker_TrackAfterShutdown(t *testing.T) {
	store := newRecordingStore()
	tr := NewTracker(store, Config{QueueSize: 2, Workers: 1}, clockwork.NewFakeClock(), logging.NewDisabledLogger(), nil)
	tr.Start()
	require.NoError(t, tr.Shutdown(context.Background()))
	require.NoError(t, tr.Shutdown(context.Background()))

	id := uuid.New()
	assert.NotPanics(t, func() { tr.Track(id) })
	assert.Equal(t, 0, store.count(id))
}
