// Package sqlitestorage records a session into SQLite through the gorm
// backend and snapshots the database to a file with VACUUM INTO, both
// periodically and when the session ends. The final snapshot is what gets
// uploaded.
package sqlitestorage

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	"github.com/trackworks/railcore/internal/database"
	"github.com/trackworks/railcore/internal/logging"
	pgstorage "github.com/trackworks/railcore/internal/storage/postgres"
	"github.com/trackworks/railcore/pkg/core"
)

type Config struct {
	DumpInterval time.Duration
	// DumpPath is the snapshot file; empty disables snapshots.
	DumpPath string
	// DSN overrides the shared in-memory database, mostly for tests.
	DSN string
}

// Backend is the gorm backend on a SQLite database. Tick samples are not
// stored, only the last tick is kept for the upload metadata.
type Backend struct {
	*pgstorage.Backend
	db  *gorm.DB
	cfg Config
	log *logging.SlogManager

	lastTick atomic.Uint64

	mu       sync.Mutex
	session  *core.Session
	exported string

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func New(cfg Config, logManager *logging.SlogManager) (*Backend, error) {
	if logManager == nil {
		logManager = logging.NewSlogManager()
	}
	db, err := database.GetSqliteDBStandalone(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return &Backend{
		Backend: pgstorage.New(pgstorage.Dependencies{DB: db, LogManager: logManager, SQLiteSchema: true}),
		db:      db,
		cfg:     cfg,
		log:     logManager,
		stop:    make(chan struct{}),
	}, nil
}

// Init migrates the schema and starts periodic snapshots when configured.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}
	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		b.wg.Add(1)
		go b.snapshotEvery(b.cfg.DumpInterval)
	}
	return nil
}

func (b *Backend) StartSession(session *core.Session, layout *core.Layout) error {
	if err := b.Backend.StartSession(session, layout); err != nil {
		return err
	}
	b.mu.Lock()
	b.session, b.exported = session, ""
	b.mu.Unlock()
	b.lastTick.Store(0)
	return nil
}

// EndSession writes the queued rows and takes the final snapshot.
func (b *Backend) EndSession() error {
	if err := b.Backend.EndSession(); err != nil {
		return err
	}
	if err := b.snapshot(); err != nil || b.cfg.DumpPath == "" {
		return err
	}
	b.mu.Lock()
	b.exported = b.cfg.DumpPath
	b.mu.Unlock()
	return nil
}

// Close stops the snapshots and closes the gorm backend.
func (b *Backend) Close() error {
	b.once.Do(func() { close(b.stop) })
	b.wg.Wait()
	return b.Backend.Close()
}

// RecordTickStats keeps the tick only; there is no tick sample table.
func (b *Backend) RecordTickStats(s *core.TickStats) error {
	b.lastTick.Store(s.Tick)
	return nil
}

// GetExportedFilePath returns the final snapshot, empty until a session
// with a snapshot path has ended.
func (b *Backend) GetExportedFilePath() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exported
}

func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil {
		return core.UploadMetadata{}
	}
	return b.session.Metadata(b.lastTick.Load())
}

func (b *Backend) snapshot() error {
	if b.cfg.DumpPath == "" {
		return nil
	}
	start := time.Now()
	if err := database.DumpMemoryDBToDisk(b.db, b.cfg.DumpPath); err != nil {
		b.log.WriteLog("snapshot", fmt.Sprintf("Snapshot to %s failed: %v", b.cfg.DumpPath, err), "ERROR")
		return err
	}
	b.log.WriteLog("snapshot", fmt.Sprintf("Snapshot written in %s", time.Since(start)), "DEBUG")
	return nil
}

// snapshotEvery snapshots until Close. VACUUM INTO reads a consistent view,
// so writers keep going meanwhile.
func (b *Backend) snapshotEvery(interval time.Duration) {
	defer b.wg.Done()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-b.stop:
			return
		case <-t.C:
			_ = b.snapshot()
		}
	}
}
