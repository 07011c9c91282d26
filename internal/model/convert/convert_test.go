package convert

import (
	"testing"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/trackworks/railcore/internal/model"
	"github.com/trackworks/railcore/pkg/core"
)

func TestPositionToPoint(t *testing.T) {
	pt, err := positionToPoint(core.Position{X: 328, Y: 392, Z: 8})
	require.NoError(t, err)

	coord, ok := pt.Coordinates()
	require.True(t, ok)
	assert.Equal(t, 20.5, coord.XY.X)
	assert.Equal(t, 24.5, coord.XY.Y)
}

func TestPointToPosition_Empty(t *testing.T) {
	pos := pointToPosition(geom.Point{}, 3)
	assert.Equal(t, core.Position{Z: 3}, pos)
}

func TestParamsToJSON(t *testing.T) {
	assert.Equal(t, datatypes.JSON("{}"), paramsToJSON(nil))
	assert.JSONEq(t, `{"station":4}`, string(paramsToJSON(map[string]any{"station": 4})))
}

func TestSessionRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Millisecond)
	session := core.Session{
		ID:          "5d0c8d5e-0000-4000-8000-000000000001",
		Name:        "evening run",
		Scenario:    "loop",
		Seed:        42,
		Pathfinder:  "npf",
		Realistic:   true,
		StartTime:   now,
		TicksPerDay: 74,
		Tag:         "ci",
	}
	layout := &core.Layout{
		Width:    64,
		Height:   32,
		Depots:   2,
		Stations: []core.Station{{ID: 4, Name: "North", Tile: 74, At: core.Position{X: 160, Y: 16}}},
	}

	m := CoreToSession(session, layout)
	assert.Equal(t, session.ID, m.UUID)
	assert.Equal(t, uint32(64), m.Width)
	assert.Contains(t, string(m.Stations), `"North"`)

	gotSession, gotLayout := SessionToCore(m)
	assert.Equal(t, session, gotSession)
	assert.Equal(t, *layout, gotLayout)
}

func TestCoreToSession_NoLayout(t *testing.T) {
	m := CoreToSession(core.Session{ID: "x"}, nil)
	assert.Equal(t, datatypes.JSON("[]"), m.Stations)
	assert.Zero(t, m.Width)
}

func TestTrainRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Millisecond)
	train := core.Train{ID: 7, UnitNumber: 2, Owner: 1, Engine: "kirby", Units: 4, JoinTick: 100, JoinTime: now}

	m := CoreToTrain(train)
	assert.Equal(t, uint32(7), m.TrainID)
	assert.Equal(t, train, TrainToCore(m))
}

func TestTrainStateRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Millisecond)
	state := core.TrainState{
		TrainID:   7,
		Tick:      740,
		Time:      now,
		Tile:      1560,
		Position:  core.Position{X: 392, Y: 385, Z: 16},
		Direction: "SW",
		Track:     1,
		Speed:     88,
		MaxSpeed:  160,
		Units:     4,
		Order:     "station:4",
		InDepot:   false,
	}

	m, err := CoreToTrainState(state)
	require.NoError(t, err)
	assert.Equal(t, uint8(16), m.Height)
	assert.Equal(t, state, TrainStateToCore(m))
}

func TestSimEventRoundTrip(t *testing.T) {
	event := core.Event{
		Tick:      12,
		Kind:      core.EventNews,
		VehicleID: 3,
		Tile:      99,
		Key:       "first_arrival",
		Params:    map[string]any{"station": float64(4)},
	}

	m := CoreToSimEvent(event)
	assert.Equal(t, "news", m.Kind)
	assert.Equal(t, event, SimEventToCore(m))
}

func TestSimEventToCore_EmptyParams(t *testing.T) {
	e := SimEventToCore(model.SimEvent{Kind: "sound", Params: datatypes.JSON("{}")})
	assert.Nil(t, e.Params)
	assert.Equal(t, core.EventSound, e.Kind)
}

func TestCrashRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Millisecond)
	crash := core.CrashEvent{
		Tick:       300,
		Time:       now,
		TrainID:    7,
		OtherID:    9,
		Tile:       200,
		Position:   core.Position{X: 130, Y: 50},
		Casualties: 124,
	}

	m, err := CoreToCrash(crash)
	require.NoError(t, err)
	assert.Equal(t, crash, CrashToCore(m))
}

func TestTickSampleRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Millisecond)
	stats := core.TickStats{
		Tick:      74,
		Time:      now,
		Duration:  1500 * time.Microsecond,
		Trains:    3,
		Vehicles:  11,
		Crashed:   1,
		Checksum:  0xfedcba9876543210,
		Reversals: 2,
	}

	m := CoreToTickSample(stats)
	assert.Equal(t, "fedcba9876543210", m.Checksum)
	assert.Equal(t, int64(1500), m.DurationUs)
	assert.Equal(t, stats, TickSampleToCore(m))
}

func TestTickSampleToCore_BadChecksum(t *testing.T) {
	s := TickSampleToCore(model.TickSample{Checksum: "zz"})
	assert.Zero(t, s.Checksum)
}
