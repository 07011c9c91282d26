// Package worker hands what the simulation produced each tick to the
// storage backend and InfluxDB on a goroutine of its own, so that slow
// sinks never hold up a tick.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/trackworks/railcore/internal/cache"
	"github.com/trackworks/railcore/internal/geo"
	"github.com/trackworks/railcore/internal/influx"
	"github.com/trackworks/railcore/internal/logging"
	"github.com/trackworks/railcore/internal/session"
	"github.com/trackworks/railcore/internal/storage"
	"github.com/trackworks/railcore/pkg/core"
)

// ErrTooEarlyForStateAssociation is returned when a state arrives for a
// train that was never registered.
var ErrTooEarlyForStateAssociation = errors.New("too early for state association")

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("worker closed")

const DefaultQueueSize = 256

// Snapshot is what one tick produced. Trains lists every train present
// at the end of the tick; States may be empty on ticks that are not
// sampled.
type Snapshot struct {
	Stats   core.TickStats
	Trains  []core.Train
	States  []core.TrainState
	Events  []core.Event
	Crashes []core.CrashEvent
}

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	TrainCache *cache.TrainCache
	LogManager *logging.SlogManager
	Session    *session.Context
	// Influx is optional.
	Influx *influx.Manager
	// Frame adds map coordinates to influx states when set.
	Frame     *geo.Frame
	QueueSize int
}

// Manager records snapshots in the order they were submitted.
type Manager struct {
	deps    Dependencies
	backend storage.Backend

	in     chan Snapshot
	done   chan struct{}
	mu     sync.Mutex
	closed bool

	lastWrite atomic.Int64
	recorded  atomic.Uint64
	failures  atomic.Uint64
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies, backend storage.Backend) *Manager {
	if deps.TrainCache == nil {
		deps.TrainCache = cache.NewTrainCache()
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.Session == nil {
		deps.Session = session.NewContext()
	}
	if deps.QueueSize <= 0 {
		deps.QueueSize = DefaultQueueSize
	}
	return &Manager{
		deps:    deps,
		backend: backend,
		in:      make(chan Snapshot, deps.QueueSize),
		done:    make(chan struct{}),
	}
}

// Start runs the recording goroutine until Close.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		defer close(m.done)
		for s := range m.in {
			if err := m.Record(ctx, s); err != nil {
				m.failures.Add(1)
				m.deps.LogManager.Logger().Error("Failed to record tick", "tick", s.Stats.Tick, "error", err)
			}
		}
	}()
}

// Submit queues s, waiting for room while the queue is full.
func (m *Manager) Submit(ctx context.Context, s Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	select {
	case m.in <- s:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting snapshots and waits until every queued one is
// recorded. It must only be called after Start.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.in)
	m.mu.Unlock()
	<-m.done
}

// Record writes one snapshot: new trains first so their states can be
// associated, then states, events, crashes and the tick sample.
func (m *Manager) Record(ctx context.Context, s Snapshot) error {
	start := time.Now()
	defer func() { m.lastWrite.Store(int64(time.Since(start))) }()

	var errs []error
	present := make(map[uint32]struct{}, len(s.Trains))
	for i := range s.Trains {
		t := s.Trains[i]
		present[t.ID] = struct{}{}
		if known, ok := m.deps.TrainCache.Get(t.ID); ok && known.JoinTick == t.JoinTick {
			continue
		}
		m.deps.TrainCache.Add(t)
		if err := m.backend.AddTrain(&t); err != nil {
			errs = append(errs, fmt.Errorf("add train %d: %w", t.ID, err))
		}
	}
	for _, id := range m.deps.TrainCache.Sweep(func(id uint32) bool {
		_, ok := present[id]
		return ok
	}) {
		m.deps.LogManager.Logger().Debug("Train left the session", "train", id, "tick", s.Stats.Tick)
	}

	sessionID := m.deps.Session.GetSession().ID
	for i := range s.States {
		st := s.States[i]
		if _, ok := m.deps.TrainCache.Get(st.TrainID); !ok {
			errs = append(errs, fmt.Errorf("train %d: %w", st.TrainID, ErrTooEarlyForStateAssociation))
			continue
		}
		if err := m.backend.RecordTrainState(&st); err != nil {
			errs = append(errs, fmt.Errorf("train state %d: %w", st.TrainID, err))
		}
		if m.deps.Influx != nil {
			if err := m.deps.Influx.WritePoint(m.deps.Influx.StateBucket(), influx.TrainStatePoint(sessionID, st, m.deps.Frame)); err != nil {
				errs = append(errs, err)
			}
		}
	}

	for i := range s.Events {
		if err := m.backend.RecordEvent(&s.Events[i]); err != nil {
			errs = append(errs, fmt.Errorf("event %s: %w", s.Events[i].Key, err))
		}
	}
	for i := range s.Crashes {
		if err := m.backend.RecordCrash(&s.Crashes[i]); err != nil {
			errs = append(errs, fmt.Errorf("crash of train %d: %w", s.Crashes[i].TrainID, err))
		}
	}

	if err := m.backend.RecordTickStats(&s.Stats); err != nil {
		errs = append(errs, fmt.Errorf("tick stats: %w", err))
	}
	if m.deps.Influx != nil {
		if err := m.deps.Influx.WritePoint(m.deps.Influx.PerformanceBucket(), influx.TickPoint(sessionID, s.Stats)); err != nil {
			errs = append(errs, err)
		}
	}

	m.recorded.Add(1)
	return errors.Join(errs...)
}

// Pending returns how many snapshots wait in the queue.
func (m *Manager) Pending() int {
	return len(m.in)
}

// Recorded returns how many snapshots have been written.
func (m *Manager) Recorded() uint64 {
	return m.recorded.Load()
}

// Failures returns how many snapshots were written with errors.
func (m *Manager) Failures() uint64 {
	return m.failures.Load()
}

// GetLastWriteDuration returns how long the last snapshot took to write.
func (m *Manager) GetLastWriteDuration() time.Duration {
	return time.Duration(m.lastWrite.Load())
}
