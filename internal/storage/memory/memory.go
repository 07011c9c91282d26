// Package memory implements storage.Backend by keeping a session in memory
// and exporting it to JSON when the session ends.
package memory

import (
	"sync"

	"github.com/trackworks/railcore/internal/config"
	"github.com/trackworks/railcore/pkg/core"
)

// TrainRecord groups a train with all its sampled states
type TrainRecord struct {
	Train  core.Train
	States []core.TrainState
}

// Backend stores session data in memory and exports to JSON
type Backend struct {
	cfg     config.MemoryConfig
	session *core.Session
	layout  *core.Layout

	// Train ids are pool indexes and get reused after a sale, so records
	// are kept in registration order and the map points at the latest.
	trains  []*TrainRecord
	current map[uint32]*TrainRecord

	events  []core.Event
	crashes []core.CrashEvent
	ticks   []core.TickStats
	endTick uint64

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:     cfg,
		current: make(map[uint32]*TrainRecord),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartSession begins recording a new session
func (b *Backend) StartSession(session *core.Session, layout *core.Layout) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.session = session
	b.layout = layout

	// Reset all collections
	b.trains = nil
	b.current = make(map[uint32]*TrainRecord)
	b.events = nil
	b.crashes = nil
	b.ticks = nil
	b.endTick = 0
	b.lastExportPath = ""

	return nil
}

// EndSession finalizes and exports the session data
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return nil
	}
	return b.exportJSON()
}

// AddTrain registers a new train
func (b *Backend) AddTrain(t *core.Train) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	record := &TrainRecord{
		Train:  *t,
		States: make([]core.TrainState, 0),
	}
	b.trains = append(b.trains, record)
	b.current[t.ID] = record
	b.seen(t.JoinTick)
	return nil
}

// GetTrain looks up the latest train registered under id
func (b *Backend) GetTrain(id uint32) (*core.Train, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if record, ok := b.current[id]; ok {
		return &record.Train, true
	}
	return nil, false
}

// RecordTrainState records a train state sample
func (b *Backend) RecordTrainState(s *core.TrainState) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seen(s.Tick)
	if record, ok := b.current[s.TrainID]; ok {
		record.States = append(record.States, *s)
	}
	return nil // silently ignore unknown trains
}

// RecordTickStats records a tick sample
func (b *Backend) RecordTickStats(s *core.TickStats) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seen(s.Tick)
	b.ticks = append(b.ticks, *s)
	return nil
}

// RecordEvent records a presentation event
func (b *Backend) RecordEvent(e *core.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seen(e.Tick)
	b.events = append(b.events, *e)
	return nil
}

// RecordCrash records a crash
func (b *Backend) RecordCrash(c *core.CrashEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seen(c.Tick)
	b.crashes = append(b.crashes, *c)
	return nil
}

func (b *Backend) seen(tick uint64) {
	if tick > b.endTick {
		b.endTick = tick
	}
}
