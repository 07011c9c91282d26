package convert

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/trackworks/railcore/internal/model"
	"github.com/trackworks/railcore/pkg/core"
)

// pointToPosition converts a stored point and height back to a
// core.Position.
func pointToPosition(p geom.Point, z uint8) core.Position {
	coord, ok := p.Coordinates()
	if !ok {
		return core.Position{Z: z}
	}
	return core.Position{
		X: int32(math.Round(coord.XY.X * subPerTile)),
		Y: int32(math.Round(coord.XY.Y * subPerTile)),
		Z: z,
	}
}

// SessionToCore converts a GORM Session to a core.Session and its layout.
func SessionToCore(s model.Session) (core.Session, core.Layout) {
	layout := core.Layout{
		Width:  s.Width,
		Height: s.Height,
		Depots: s.Depots,
	}
	if len(s.Stations) > 0 {
		_ = json.Unmarshal(s.Stations, &layout.Stations)
	}
	return core.Session{
		ID:          s.UUID,
		Name:        s.Name,
		Scenario:    s.Scenario,
		Seed:        s.Seed,
		Pathfinder:  s.Pathfinder,
		Realistic:   s.Realistic,
		StartTime:   s.StartTime,
		TicksPerDay: s.TicksPerDay,
		Tag:         s.Tag,
	}, layout
}

// TrainToCore converts a GORM Train to a core.Train.
func TrainToCore(t model.Train) core.Train {
	return core.Train{
		ID:         t.TrainID,
		UnitNumber: t.UnitNumber,
		Owner:      t.Owner,
		Engine:     t.Engine,
		Units:      t.Units,
		JoinTick:   t.JoinTick,
		JoinTime:   t.JoinTime,
	}
}

// TrainStateToCore converts a GORM TrainState to a core.TrainState.
func TrainStateToCore(s model.TrainState) core.TrainState {
	return core.TrainState{
		TrainID:   s.TrainID,
		Tick:      s.Tick,
		Time:      s.Time,
		Tile:      s.Tile,
		Position:  pointToPosition(s.Position, s.Height),
		Direction: s.Direction,
		Track:     s.Track,
		Speed:     s.Speed,
		MaxSpeed:  s.MaxSpeed,
		Units:     s.Units,
		Order:     s.Order,
		Stopped:   s.Stopped,
		Crashed:   s.Crashed,
		InDepot:   s.InDepot,
	}
}

// SimEventToCore converts a GORM SimEvent to a core.Event.
func SimEventToCore(e model.SimEvent) core.Event {
	var params map[string]any
	if len(e.Params) > 0 {
		_ = json.Unmarshal(e.Params, &params)
	}
	if len(params) == 0 {
		params = nil
	}
	return core.Event{
		Tick:      e.Tick,
		Kind:      core.EventKind(e.Kind),
		VehicleID: e.VehicleID,
		Tile:      e.Tile,
		Key:       e.Key,
		Params:    params,
	}
}

// CrashToCore converts a GORM Crash to a core.CrashEvent. The stored point
// carries no height.
func CrashToCore(c model.Crash) core.CrashEvent {
	return core.CrashEvent{
		Tick:       c.Tick,
		Time:       c.Time,
		TrainID:    c.TrainID,
		OtherID:    c.OtherID,
		Tile:       c.Tile,
		Position:   pointToPosition(c.Position, 0),
		Casualties: c.Casualties,
	}
}

// TickSampleToCore converts a GORM TickSample to a core.TickStats. A
// malformed checksum reads as zero.
func TickSampleToCore(s model.TickSample) core.TickStats {
	sum, _ := strconv.ParseUint(s.Checksum, 16, 64)
	return core.TickStats{
		Tick:      s.Tick,
		Time:      s.Time,
		Duration:  time.Duration(s.DurationUs) * time.Microsecond,
		Trains:    s.Trains,
		Vehicles:  s.Vehicles,
		Crashed:   s.Crashed,
		Checksum:  sum,
		Reversals: uint64(s.Reversals),
	}
}
