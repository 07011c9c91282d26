package memory

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackworks/railcore/internal/config"
	"github.com/trackworks/railcore/internal/storage"
	"github.com/trackworks/railcore/pkg/core"
)

// Compile-time interface checks
var (
	_ storage.Backend    = (*Backend)(nil)
	_ storage.Uploadable = (*Backend)(nil)
)

func startedBackend(t *testing.T, compress bool) *Backend {
	t.Helper()
	b := New(config.MemoryConfig{OutputDir: t.TempDir(), CompressOutput: compress})
	require.NoError(t, b.Init())
	require.NoError(t, b.StartSession(&core.Session{
		ID:          "s-1",
		Name:        "evening run",
		Scenario:    "loop",
		StartTime:   time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC),
		TicksPerDay: 74,
		Tag:         "ci",
	}, &core.Layout{Width: 64, Height: 32, Depots: 1}))
	return b
}

func readExport(t *testing.T, path string) SessionExport {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var export SessionExport
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		require.NoError(t, err)
		defer gz.Close()
		require.NoError(t, json.NewDecoder(gz).Decode(&export))
	} else {
		require.NoError(t, json.NewDecoder(f).Decode(&export))
	}
	return export
}

func TestAddTrainAndRecordState(t *testing.T) {
	b := startedBackend(t, false)

	require.NoError(t, b.AddTrain(&core.Train{ID: 3, Engine: "kirby", JoinTick: 5}))
	require.NoError(t, b.RecordTrainState(&core.TrainState{TrainID: 3, Tick: 74, Speed: 20}))
	require.NoError(t, b.RecordTrainState(&core.TrainState{TrainID: 3, Tick: 148, Speed: 40}))

	train, ok := b.GetTrain(3)
	require.True(t, ok)
	assert.Equal(t, "kirby", train.Engine)
	assert.Len(t, b.current[3].States, 2)
}

func TestRecordTrainState_UnknownTrainIgnored(t *testing.T) {
	b := startedBackend(t, false)
	require.NoError(t, b.RecordTrainState(&core.TrainState{TrainID: 99, Tick: 1}))
	_, ok := b.GetTrain(99)
	assert.False(t, ok)
}

func TestAddTrain_ReusedIDStartsNewRecord(t *testing.T) {
	b := startedBackend(t, false)

	require.NoError(t, b.AddTrain(&core.Train{ID: 3, Engine: "kirby"}))
	require.NoError(t, b.RecordTrainState(&core.TrainState{TrainID: 3, Tick: 10}))
	require.NoError(t, b.AddTrain(&core.Train{ID: 3, Engine: "ploddyphut"}))
	require.NoError(t, b.RecordTrainState(&core.TrainState{TrainID: 3, Tick: 20}))

	require.Len(t, b.trains, 2)
	assert.Len(t, b.trains[0].States, 1)
	assert.Len(t, b.trains[1].States, 1)
	train, _ := b.GetTrain(3)
	assert.Equal(t, "ploddyphut", train.Engine)
}

func TestStartSession_Resets(t *testing.T) {
	b := startedBackend(t, false)
	require.NoError(t, b.AddTrain(&core.Train{ID: 1}))
	require.NoError(t, b.RecordEvent(&core.Event{Tick: 9}))

	require.NoError(t, b.StartSession(&core.Session{ID: "s-2"}, nil))
	assert.Empty(t, b.trains)
	assert.Empty(t, b.events)
	assert.Zero(t, b.endTick)
}

func TestEndSession_NoSession(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})
	require.NoError(t, b.EndSession())
	assert.Empty(t, b.GetExportedFilePath())
	assert.Equal(t, core.UploadMetadata{}, b.GetExportMetadata())
}

func TestExport_Plain(t *testing.T) {
	b := startedBackend(t, false)

	require.NoError(t, b.AddTrain(&core.Train{ID: 3, UnitNumber: 1, Engine: "kirby", Units: 3, JoinTick: 5}))
	require.NoError(t, b.RecordTrainState(&core.TrainState{
		TrainID:   3,
		Tick:      74,
		Position:  core.Position{X: 392, Y: 385, Z: 8},
		Direction: "SW",
		Speed:     56,
		MaxSpeed:  160,
		Units:     3,
		Order:     "station:4",
		InDepot:   true,
		Stopped:   true,
	}))
	require.NoError(t, b.RecordEvent(&core.Event{Tick: 80, Kind: core.EventSound, Key: "train_horn", VehicleID: 3}))
	require.NoError(t, b.RecordEvent(&core.Event{Tick: 90, Kind: core.EventSound, Key: "train_steam", VehicleID: 3}))
	require.NoError(t, b.RecordEvent(&core.Event{Tick: 95, Kind: core.EventNews, Key: "first_arrival", VehicleID: 3}))
	require.NoError(t, b.RecordCrash(&core.CrashEvent{Tick: 100, TrainID: 3, OtherID: 4, Casualties: 4}))
	require.NoError(t, b.RecordTickStats(&core.TickStats{Tick: 100, Checksum: 0xbeef}))

	require.NoError(t, b.EndSession())

	path := b.GetExportedFilePath()
	assert.Equal(t, "evening_run_20260301_183000.json", filepath.Base(path))

	export := readExport(t, path)
	assert.Equal(t, FormatVersion, export.FormatVersion)
	assert.Equal(t, "s-1", export.Session.ID)
	assert.Equal(t, uint32(64), export.Layout.Width)
	assert.Equal(t, uint64(100), export.EndTick)

	require.Len(t, export.Trains, 1)
	train := export.Trains[0]
	assert.Equal(t, uint64(5), train.StartTick)
	require.Len(t, train.States, 1)
	state := train.States[0]
	assert.Equal(t, float64(74), state[0])
	assert.Equal(t, float64(392), state[1])
	assert.Equal(t, "SW", state[4])
	assert.Equal(t, float64(56), state[5])
	assert.Equal(t, "station:4", state[8])
	assert.Equal(t, float64(5), state[9]) // stopped | in depot

	require.Len(t, export.Events, 3)
	assert.Equal(t, "train_horn", export.Events[0][2])
	require.Len(t, export.Crashes, 1)
	assert.Equal(t, []any{float64(100), "000000000000beef"}, export.Checksums[0])

	assert.Equal(t, Summary{
		Trains:       1,
		Crashes:      1,
		Casualties:   4,
		EventsByKind: map[string]int{"sound": 2, "news": 1},
		MaxSpeed:     56,
	}, export.Summary)
}

func TestExport_Gzip(t *testing.T) {
	b := startedBackend(t, true)
	require.NoError(t, b.AddTrain(&core.Train{ID: 1}))
	require.NoError(t, b.EndSession())

	path := b.GetExportedFilePath()
	assert.True(t, strings.HasSuffix(path, ".json.gz"))
	export := readExport(t, path)
	assert.Len(t, export.Trains, 1)
	assert.Empty(t, export.Events)
}

func TestExport_NameFallsBackToScenario(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})
	require.NoError(t, b.StartSession(&core.Session{Scenario: "two way/red", StartTime: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}, nil))
	require.NoError(t, b.EndSession())
	assert.Equal(t, "two_way_red_20260102_030405.json", filepath.Base(b.GetExportedFilePath()))
}

func TestGetExportMetadata(t *testing.T) {
	b := startedBackend(t, false)
	require.NoError(t, b.RecordTickStats(&core.TickStats{Tick: 2000}))

	meta := b.GetExportMetadata()
	assert.Equal(t, "loop", meta.ScenarioName)
	assert.Equal(t, "evening run", meta.SessionName)
	assert.Equal(t, "ci", meta.Tag)
	assert.InDelta(t, 60.0, meta.SessionDuration, 1e-9)
}

func TestStateFlags(t *testing.T) {
	assert.Equal(t, 0, stateFlags(core.TrainState{}))
	assert.Equal(t, 2, stateFlags(core.TrainState{Crashed: true}))
	assert.Equal(t, 7, stateFlags(core.TrainState{Stopped: true, Crashed: true, InDepot: true}))
}
