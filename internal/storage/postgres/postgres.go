// Package postgres implements the storage.Backend interface using GORM/PostgreSQL
// with internal queues and a background DB writer goroutine.
package postgres

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	"github.com/trackworks/railcore/internal/database"
	"github.com/trackworks/railcore/internal/logging"
	"github.com/trackworks/railcore/internal/model"
	"github.com/trackworks/railcore/internal/model/convert"
	"github.com/trackworks/railcore/internal/queue"
	"github.com/trackworks/railcore/pkg/core"
)

// DefaultFlushInterval is how often the writer drains the queues.
const DefaultFlushInterval = 2 * time.Second

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB         *gorm.DB
	LogManager *logging.SlogManager
	// SQLiteSchema migrates the reduced schema without tick samples.
	SQLiteSchema  bool
	FlushInterval time.Duration
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	Trains      *queue.Queue[model.Train]
	TrainStates *queue.Queue[model.TrainState]
	Events      *queue.Queue[model.SimEvent]
	Crashes     *queue.Queue[model.Crash]
	TickSamples *queue.Queue[model.TickSample]
}

func newQueues() *queues {
	return &queues{
		Trains:      queue.New[model.Train](),
		TrainStates: queue.New[model.TrainState](),
		Events:      queue.New[model.SimEvent](),
		Crashes:     queue.New[model.Crash](),
		TickSamples: queue.New[model.TickSample](),
	}
}

// Backend implements storage.Backend using GORM/PostgreSQL with queue-based batch writes.
type Backend struct {
	deps      Dependencies
	queues    *queues
	sessionID atomic.Uint64
	stopChan  chan struct{}
	wg        sync.WaitGroup
	writeMu   sync.Mutex
	dbReady   bool
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	return &Backend{
		deps:   deps,
		queues: newQueues(),
	}
}

// Init runs schema migration and starts the DB writer goroutine.
// If no DB was injected via Dependencies, it creates its own postgres connection.
func (b *Backend) Init() error {
	b.stopChan = make(chan struct{})

	if b.deps.DB == nil {
		db, err := database.GetPostgresDBStandalone()
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
		if err = sqlDB.Ping(); err != nil {
			return fmt.Errorf("failed to validate connection: %w", err)
		}
		sqlDB.SetMaxOpenConns(10)
		b.deps.DB = db
	}

	b.deps.LogManager.WriteLog("setupDB", "Migrating schema", "INFO")
	if err := database.Migrate(b.deps.DB, b.deps.SQLiteSchema); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.deps.LogManager.WriteLog("setupDB", "Database setup complete", "INFO")
	b.dbReady = true

	b.startDBWriters()
	return nil
}

// DB returns the connection in use.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Close stops the DB writer goroutine and writes whatever is still queued.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		b.wg.Wait()
		b.stopChan = nil
	}
	if b.dbReady && b.sessionID.Load() != 0 {
		b.Flush()
	}
	return nil
}

// StartSession inserts the session row synchronously so that queued rows
// can reference its ID.
func (b *Backend) StartSession(session *core.Session, layout *core.Layout) error {
	if b.deps.DB == nil {
		return nil
	}

	gormSession := convert.CoreToSession(*session, layout)
	if err := b.deps.DB.Create(&gormSession).Error; err != nil {
		b.deps.LogManager.WriteLog("StartSession", fmt.Sprintf("Failed to insert session: %v", err), "ERROR")
		return fmt.Errorf("failed to insert new session: %w", err)
	}

	// Store session ID for the DB writer goroutine
	b.sessionID.Store(uint64(gormSession.ID))
	return nil
}

// SessionID returns the database ID of the running session.
func (b *Backend) SessionID() uint {
	return uint(b.sessionID.Load())
}

// EndSession writes all queued rows.
func (b *Backend) EndSession() error {
	if b.dbReady {
		b.Flush()
	}
	return nil
}

// AddTrain converts a core train to GORM and pushes to the write queue.
func (b *Backend) AddTrain(t *core.Train) error {
	b.queues.Trains.Push(convert.CoreToTrain(*t))
	return nil
}

// RecordTrainState converts and queues a train state.
func (b *Backend) RecordTrainState(s *core.TrainState) error {
	m, err := convert.CoreToTrainState(*s)
	if err != nil {
		return err
	}
	b.queues.TrainStates.Push(m)
	return nil
}

// RecordTickStats converts and queues a tick sample.
func (b *Backend) RecordTickStats(s *core.TickStats) error {
	b.queues.TickSamples.Push(convert.CoreToTickSample(*s))
	return nil
}

// RecordEvent converts and queues a presentation event.
func (b *Backend) RecordEvent(e *core.Event) error {
	b.queues.Events.Push(convert.CoreToSimEvent(*e))
	return nil
}

// RecordCrash converts and queues a crash.
func (b *Backend) RecordCrash(c *core.CrashEvent) error {
	m, err := convert.CoreToCrash(*c)
	if err != nil {
		return err
	}
	b.queues.Crashes.Push(m)
	return nil
}

// writeQueue writes all items from a queue to the database in a transaction.
// Failed batches go back on the queue for the next cycle.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log func(string, string, string), prepare func([]T)) {
	if q.Empty() {
		return
	}

	tx := db.Begin()
	items := q.Drain()
	if prepare != nil {
		prepare(items)
	}
	if err := tx.Create(&items).Error; err != nil {
		log(":DB:WRITER:", fmt.Sprintf("Error creating %s: %v", name, err), "ERROR")
		tx.Rollback()
		q.Push(items...)
		return
	}

	tx.Commit()
}

// Flush drains every queue into the database once.
func (b *Backend) Flush() {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	db := b.deps.DB
	log := b.deps.LogManager.WriteLog
	sessionID := uint(b.sessionID.Load())

	// Trains first, states reference them
	writeQueue(db, b.queues.Trains, "trains", log, func(items []model.Train) {
		for i := range items {
			items[i].SessionID = sessionID
		}
	})
	writeQueue(db, b.queues.TrainStates, "train states", log, func(items []model.TrainState) {
		for i := range items {
			items[i].SessionID = sessionID
		}
	})
	writeQueue(db, b.queues.Events, "sim events", log, func(items []model.SimEvent) {
		for i := range items {
			items[i].SessionID = sessionID
		}
	})
	writeQueue(db, b.queues.Crashes, "crashes", log, func(items []model.Crash) {
		for i := range items {
			items[i].SessionID = sessionID
		}
	})
	writeQueue(db, b.queues.TickSamples, "tick samples", log, func(items []model.TickSample) {
		for i := range items {
			items[i].SessionID = sessionID
		}
	})
}

// startDBWriters starts the background goroutine that periodically drains queues into the DB.
func (b *Backend) startDBWriters() {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(b.deps.FlushInterval)
		defer ticker.Stop()

		for {
			select {
			case <-b.stopChan:
				return
			case <-ticker.C:
				if b.sessionID.Load() == 0 {
					continue
				}
				b.Flush()
			}
		}
	}()
}
