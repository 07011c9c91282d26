package postgres

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/trackworks/railcore/internal/logging"
	"github.com/trackworks/railcore/internal/model"
	"github.com/trackworks/railcore/internal/storage"
	"github.com/trackworks/railcore/pkg/core"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

// newTestBackend creates a Backend with no DB (queue-only mode for unit testing).
func newTestBackend() *Backend {
	return New(Dependencies{LogManager: logging.NewSlogManager()})
}

func openSqlite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	return db
}

func newSqliteBackend(t *testing.T) *Backend {
	t.Helper()
	b := New(Dependencies{
		DB:            openSqlite(t),
		LogManager:    logging.NewSlogManager(),
		FlushInterval: time.Hour,
	})
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func testSession() (*core.Session, *core.Layout) {
	return &core.Session{
			ID:          "c0ffee00-0000-4000-8000-000000000001",
			Name:        "loop run",
			Scenario:    "loop",
			Seed:        1,
			Pathfinder:  "legacy",
			StartTime:   time.Now(),
			TicksPerDay: 74,
		}, &core.Layout{
			Width:    64,
			Height:   32,
			Depots:   1,
			Stations: []core.Station{{ID: 1, Name: "North"}},
		}
}

func TestNew_Defaults(t *testing.T) {
	b := New(Dependencies{})
	require.NotNil(t, b)
	assert.NotNil(t, b.deps.LogManager)
	assert.Equal(t, DefaultFlushInterval, b.deps.FlushInterval)
	assert.NotNil(t, b.queues)
}

func TestInitClose(t *testing.T) {
	b := New(Dependencies{
		DB:         openSqlite(t),
		LogManager: logging.NewSlogManager(),
	})

	require.NoError(t, b.Init())
	require.NotNil(t, b.stopChan)
	assert.True(t, b.DB().Migrator().HasTable(&model.TickSample{}))

	require.NoError(t, b.Close())
	// second close is harmless
	require.NoError(t, b.Close())
}

func TestStartSession_NoDB(t *testing.T) {
	b := newTestBackend()
	s, l := testSession()
	require.NoError(t, b.StartSession(s, l))
	assert.Zero(t, b.SessionID())
}

func TestRecord_QueuesToInternalQueue(t *testing.T) {
	b := newTestBackend()

	require.NoError(t, b.AddTrain(&core.Train{ID: 3, Engine: "kirby"}))
	require.NoError(t, b.RecordTrainState(&core.TrainState{TrainID: 3, Tick: 74}))
	require.NoError(t, b.RecordEvent(&core.Event{Kind: core.EventSound, Key: "train_horn"}))
	require.NoError(t, b.RecordCrash(&core.CrashEvent{TrainID: 3, OtherID: 4}))
	require.NoError(t, b.RecordTickStats(&core.TickStats{Tick: 74, Checksum: 1}))

	assert.Equal(t, 1, b.queues.Trains.Len())
	assert.Equal(t, 1, b.queues.TrainStates.Len())
	assert.Equal(t, 1, b.queues.Events.Len())
	assert.Equal(t, 1, b.queues.Crashes.Len())
	assert.Equal(t, 1, b.queues.TickSamples.Len())
}

func TestFlush_WritesRowsWithSessionID(t *testing.T) {
	b := newSqliteBackend(t)
	s, l := testSession()
	require.NoError(t, b.StartSession(s, l))
	require.NotZero(t, b.SessionID())

	require.NoError(t, b.AddTrain(&core.Train{ID: 3, Engine: "kirby", Units: 4, JoinTime: time.Now()}))
	require.NoError(t, b.RecordTrainState(&core.TrainState{
		TrainID:  3,
		Tick:     74,
		Time:     time.Now(),
		Position: core.Position{X: 32, Y: 48, Z: 8},
		Speed:    40,
	}))
	require.NoError(t, b.RecordEvent(&core.Event{Tick: 74, Kind: core.EventNews, Key: "first_arrival", Params: map[string]any{"station": 1}}))
	require.NoError(t, b.RecordCrash(&core.CrashEvent{Tick: 80, TrainID: 3, OtherID: 4, Casualties: 4}))
	require.NoError(t, b.RecordTickStats(&core.TickStats{Tick: 74, Checksum: 0xabc}))

	require.NoError(t, b.EndSession())

	db := b.DB()
	var session model.Session
	require.NoError(t, db.First(&session).Error)
	assert.Equal(t, s.ID, session.UUID)
	assert.Equal(t, uint32(64), session.Width)

	var train model.Train
	require.NoError(t, db.First(&train).Error)
	assert.Equal(t, session.ID, train.SessionID)
	assert.Equal(t, "kirby", train.Engine)

	var state model.TrainState
	require.NoError(t, db.First(&state).Error)
	assert.Equal(t, session.ID, state.SessionID)
	assert.Equal(t, uint16(40), state.Speed)
	assert.Equal(t, uint8(8), state.Height)

	var event model.SimEvent
	require.NoError(t, db.First(&event).Error)
	assert.Equal(t, "first_arrival", event.Key)
	assert.JSONEq(t, `{"station":1}`, string(event.Params))

	var crash model.Crash
	require.NoError(t, db.First(&crash).Error)
	assert.Equal(t, 4, crash.Casualties)

	var sample model.TickSample
	require.NoError(t, db.First(&sample).Error)
	assert.Equal(t, "0000000000000abc", sample.Checksum)

	assert.True(t, b.queues.Trains.Empty())
	assert.True(t, b.queues.TrainStates.Empty())
}

func TestWriterLoop_FlushesAfterSessionStart(t *testing.T) {
	b := New(Dependencies{
		DB:            openSqlite(t),
		LogManager:    logging.NewSlogManager(),
		FlushInterval: 10 * time.Millisecond,
	})
	require.NoError(t, b.Init())
	defer func() { require.NoError(t, b.Close()) }()

	s, l := testSession()
	require.NoError(t, b.StartSession(s, l))
	require.NoError(t, b.RecordEvent(&core.Event{Tick: 1, Kind: core.EventSound, Key: "train_horn"}))

	assert.Eventually(t, func() bool {
		var n int64
		b.DB().Model(&model.SimEvent{}).Count(&n)
		return n == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestClose_FlushesPendingRows(t *testing.T) {
	db := openSqlite(t)
	b := New(Dependencies{DB: db, FlushInterval: time.Hour})
	require.NoError(t, b.Init())

	s, l := testSession()
	require.NoError(t, b.StartSession(s, l))
	require.NoError(t, b.RecordCrash(&core.CrashEvent{TrainID: 1, OtherID: 2}))
	require.NoError(t, b.Close())

	var n int64
	db.Model(&model.Crash{}).Count(&n)
	assert.Equal(t, int64(1), n)
}
