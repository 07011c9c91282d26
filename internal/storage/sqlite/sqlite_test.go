package sqlitestorage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackworks/railcore/internal/database"
	"github.com/trackworks/railcore/internal/model"
	"github.com/trackworks/railcore/internal/storage"
	"github.com/trackworks/railcore/pkg/core"
)

var (
	_ storage.Backend    = (*Backend)(nil)
	_ storage.Uploadable = (*Backend)(nil)
)

func newBackend(t *testing.T, cfg Config) *Backend {
	t.Helper()
	if cfg.DSN == "" {
		cfg.DSN = filepath.Join(t.TempDir(), "live.db")
	}
	b, err := New(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestInit_ReducedSchema(t *testing.T) {
	b := newBackend(t, Config{})

	assert.True(t, b.db.Migrator().HasTable(&model.TrainState{}))
	assert.False(t, b.db.Migrator().HasTable(&model.TickSample{}))
}

func TestRecordTickStats_KeepsTickOnly(t *testing.T) {
	b := newBackend(t, Config{})
	require.NoError(t, b.StartSession(&core.Session{ID: "s0", Scenario: "loop", Name: "short", Tag: "ci"}, nil))
	require.NoError(t, b.RecordTickStats(&core.TickStats{Tick: 1000}))

	meta := b.GetExportMetadata()
	assert.Equal(t, "loop", meta.ScenarioName)
	assert.Equal(t, "short", meta.SessionName)
	assert.InDelta(t, 30.0, meta.SessionDuration, 1e-9)
	assert.Equal(t, "ci", meta.Tag)
}

func TestEndSession_DumpsToDisk(t *testing.T) {
	out := filepath.Join(t.TempDir(), "session.db")
	b := newBackend(t, Config{DumpPath: out})

	require.NoError(t, b.StartSession(&core.Session{ID: "s1", Name: "run", StartTime: time.Now()}, &core.Layout{Width: 8, Height: 8}))
	require.NoError(t, b.AddTrain(&core.Train{ID: 1, Engine: "kirby", JoinTime: time.Now()}))
	require.NoError(t, b.RecordTrainState(&core.TrainState{TrainID: 1, Tick: 74, Time: time.Now()}))
	assert.Empty(t, b.GetExportedFilePath())
	require.NoError(t, b.EndSession())

	require.FileExists(t, out)
	assert.Equal(t, out, b.GetExportedFilePath())
	dumped, err := database.GetSqliteDBStandalone(out)
	require.NoError(t, err)

	var n int64
	dumped.Model(&model.TrainState{}).Count(&n)
	assert.Equal(t, int64(1), n)

	var session model.Session
	require.NoError(t, dumped.First(&session).Error)
	assert.Equal(t, "s1", session.UUID)
}

func TestEndSession_NoDumpPath(t *testing.T) {
	b := newBackend(t, Config{})
	require.NoError(t, b.StartSession(&core.Session{ID: "s2"}, nil))
	require.NoError(t, b.EndSession())
	assert.Empty(t, b.GetExportedFilePath())
}

func TestDumpLoop(t *testing.T) {
	out := filepath.Join(t.TempDir(), "periodic.db")
	b := newBackend(t, Config{DumpPath: out, DumpInterval: 10 * time.Millisecond})
	require.NoError(t, b.StartSession(&core.Session{ID: "s3"}, nil))

	assert.Eventually(t, func() bool {
		_, err := os.Stat(out)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, b.Close())
	// closing twice is safe
	require.NoError(t, b.Close())
}
