// Package usage records when API keys were last used, off the request path.
package usage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/aman-churiwal/quota-gateway/internal/logging"
	"github.com/aman-churiwal/quota-gateway/internal/metrics"
)

// Toucher persists the last-used time of a key. Implemented by repository.APIKeyRepository.
type Toucher interface {
	UpdateLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error
}

type Config struct {
	QueueSize        int
	Workers          int
	CoalesceInterval time.Duration
	// WriteTimeout bounds one store write. Zero means no bound beyond the store's own.
	WriteTimeout time.Duration
}

type update struct {
	keyID uuid.UUID
	at    time.Time
}

// Tracker is a bounded, best-effort last-used writer. Track never blocks: updates for a key
// seen within CoalesceInterval are skipped, and updates that find the queue full are dropped.
// Write errors are counted and logged at debug level, never returned.
type Tracker struct {
	store   Toucher
	cfg     Config
	clock   clockwork.Clock
	log     logging.FieldLogger
	metrics *metrics.Collector

	queue  chan update
	sendMu sync.RWMutex
	closed atomic.Bool

	seenMu sync.Mutex
	seen   map[uuid.UUID]time.Time

	started atomic.Bool
	stop    chan struct{}
	group   errgroup.Group
}

func NewTracker(store Toucher, cfg Config, clock clockwork.Clock, log logging.FieldLogger, m *metrics.Collector) *Tracker {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Tracker{
		store:   store,
		cfg:     cfg,
		clock:   clock,
		log:     log,
		metrics: m,
		queue:   make(chan update, cfg.QueueSize),
		seen:    make(map[uuid.UUID]time.Time),
		stop:    make(chan struct{}),
	}
}

// Start launches the workers. Calling it more than once has no effect.
func (t *Tracker) Start() {
	if !t.started.CompareAndSwap(false, true) {
		return
	}

	for i := 0; i < t.cfg.Workers; i++ {
		t.group.Go(t.work)
	}

	if t.cfg.CoalesceInterval > 0 {
		t.group.Go(t.prune)
	}

	t.log.Info("usage tracker started",
		logging.Int("workers", t.cfg.Workers),
		logging.Int("queue_size", t.cfg.QueueSize),
		logging.Duration("coalesce_interval", t.cfg.CoalesceInterval),
	)
}

// Track schedules a last-used update for keyID stamped with the current time.
func (t *Tracker) Track(keyID uuid.UUID) {
	now := t.clock.Now()

	if t.coalesce(keyID, now) {
		t.metrics.IncUsage(metrics.UsageCoalesced)
		return
	}

	t.sendMu.RLock()
	defer t.sendMu.RUnlock()

	if t.closed.Load() {
		t.metrics.IncUsage(metrics.UsageDropped)
		return
	}

	select {
	case t.queue <- update{keyID: keyID, at: now}:
	default:
		t.forget(keyID, now)
		t.metrics.IncUsage(metrics.UsageDropped)
	}
}

// Shutdown stops accepting updates and waits until queued ones are written or ctx is done.
func (t *Tracker) Shutdown(ctx context.Context) error {
	t.sendMu.Lock()
	if t.closed.Load() {
		t.sendMu.Unlock()
		return nil
	}
	t.closed.Store(true)
	close(t.queue)
	close(t.stop)
	t.sendMu.Unlock()

	// Workers that were never started would leave the queue undrained.
	t.Start()

	done := make(chan struct{})
	go func() {
		_ = t.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.log.Info("usage tracker stopped")
		return nil
	case <-ctx.Done():
		t.log.Warn("usage tracker stopped before draining its queue", logging.Int("pending", len(t.queue)))
		return ctx.Err()
	}
}

func (t *Tracker) work() error {
	for u := range t.queue {
		t.write(u)
	}
	return nil
}

func (t *Tracker) write(u update) {
	ctx := context.Background()
	if t.cfg.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.WriteTimeout)
		defer cancel()
	}

	if err := t.store.UpdateLastUsed(ctx, u.keyID, u.at); err != nil {
		t.metrics.IncUsage(metrics.UsageFailed)
		t.log.Debug("failed to update last used time", logging.String("api_key_id", u.keyID.String()), logging.Error(err))
		return
	}
	t.metrics.IncUsage(metrics.UsageWritten)
}

// coalesce reports whether an update for keyID was already scheduled within the interval,
// and records now as the latest schedule time otherwise.
func (t *Tracker) coalesce(keyID uuid.UUID, now time.Time) bool {
	if t.cfg.CoalesceInterval <= 0 {
		return false
	}

	t.seenMu.Lock()
	defer t.seenMu.Unlock()

	if last, ok := t.seen[keyID]; ok && now.Sub(last) < t.cfg.CoalesceInterval {
		return true
	}
	t.seen[keyID] = now
	return false
}

// forget clears the schedule time recorded for a dropped update so the next one is tried.
func (t *Tracker) forget(keyID uuid.UUID, at time.Time) {
	t.seenMu.Lock()
	defer t.seenMu.Unlock()

	if last, ok := t.seen[keyID]; ok && last.Equal(at) {
		delete(t.seen, keyID)
	}
}

func (t *Tracker) prune() error {
	ticker := t.clock.NewTicker(t.cfg.CoalesceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			now := t.clock.Now()
			t.seenMu.Lock()
			for id, last := range t.seen {
				if now.Sub(last) >= t.cfg.CoalesceInterval {
					delete(t.seen, id)
				}
			}
			t.seenMu.Unlock()
		case <-t.stop:
			return nil
		}
	}
}
