// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"

	"github.com/trackworks/railcore/internal/model"
	"github.com/trackworks/railcore/pkg/core"
)

// subPerTile is the number of position units along one tile edge.
const subPerTile = 16

// positionToPoint converts a core.Position to a 2D point in tile units.
// The height is stored in its own column.
func positionToPoint(p core.Position) (geom.Point, error) {
	pt, err := geom.NewPoint(geom.Coordinates{XY: geom.XY{
		X: float64(p.X) / subPerTile,
		Y: float64(p.Y) / subPerTile,
	}})
	if err != nil {
		return geom.Point{}, fmt.Errorf("position %d,%d: %w", p.X, p.Y, err)
	}
	return pt, nil
}

// paramsToJSON converts event params to datatypes.JSON for DB storage.
func paramsToJSON(params map[string]any) datatypes.JSON {
	if len(params) == 0 {
		return datatypes.JSON("{}")
	}
	data, err := json.Marshal(params)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(data)
}

// CoreToSession converts a core.Session and its layout to a GORM
// model.Session. core.Session.ID maps to GORM Session.UUID.
func CoreToSession(s core.Session, l *core.Layout) model.Session {
	out := model.Session{
		UUID:        s.ID,
		Name:        s.Name,
		Scenario:    s.Scenario,
		Seed:        s.Seed,
		Pathfinder:  s.Pathfinder,
		Realistic:   s.Realistic,
		StartTime:   s.StartTime,
		TicksPerDay: s.TicksPerDay,
		Tag:         s.Tag,
		Stations:    datatypes.JSON("[]"),
	}
	if l != nil {
		out.Width = l.Width
		out.Height = l.Height
		out.Depots = l.Depots
		if len(l.Stations) > 0 {
			if data, err := json.Marshal(l.Stations); err == nil {
				out.Stations = datatypes.JSON(data)
			}
		}
	}
	return out
}

// CoreToTrain converts a core.Train to a GORM model.Train.
// core.Train.ID maps to GORM Train.TrainID.
func CoreToTrain(t core.Train) model.Train {
	return model.Train{
		TrainID:    t.ID,
		UnitNumber: t.UnitNumber,
		Owner:      t.Owner,
		Engine:     t.Engine,
		Units:      t.Units,
		JoinTick:   t.JoinTick,
		JoinTime:   t.JoinTime,
	}
}

// CoreToTrainState converts a core.TrainState to a GORM model.TrainState.
func CoreToTrainState(s core.TrainState) (model.TrainState, error) {
	pos, err := positionToPoint(s.Position)
	if err != nil {
		return model.TrainState{}, fmt.Errorf("train %d state: %w", s.TrainID, err)
	}
	return model.TrainState{
		Time:      s.Time,
		Tick:      s.Tick,
		TrainID:   s.TrainID,
		Tile:      s.Tile,
		Position:  pos,
		Height:    s.Position.Z,
		Direction: s.Direction,
		Track:     s.Track,
		Speed:     s.Speed,
		MaxSpeed:  s.MaxSpeed,
		Units:     s.Units,
		Order:     s.Order,
		Stopped:   s.Stopped,
		Crashed:   s.Crashed,
		InDepot:   s.InDepot,
	}, nil
}

// CoreToSimEvent converts a core.Event to a GORM model.SimEvent.
func CoreToSimEvent(e core.Event) model.SimEvent {
	return model.SimEvent{
		Tick:      e.Tick,
		Kind:      string(e.Kind),
		VehicleID: e.VehicleID,
		Tile:      e.Tile,
		Key:       e.Key,
		Params:    paramsToJSON(e.Params),
	}
}

// CoreToCrash converts a core.CrashEvent to a GORM model.Crash.
func CoreToCrash(c core.CrashEvent) (model.Crash, error) {
	pos, err := positionToPoint(c.Position)
	if err != nil {
		return model.Crash{}, fmt.Errorf("crash of train %d: %w", c.TrainID, err)
	}
	return model.Crash{
		Time:       c.Time,
		Tick:       c.Tick,
		TrainID:    c.TrainID,
		OtherID:    c.OtherID,
		Tile:       c.Tile,
		Position:   pos,
		Casualties: c.Casualties,
	}, nil
}

// CoreToTickSample converts a core.TickStats to a GORM model.TickSample.
func CoreToTickSample(s core.TickStats) model.TickSample {
	return model.TickSample{
		Time:       s.Time,
		Tick:       s.Tick,
		DurationUs: s.Duration.Microseconds(),
		Trains:     s.Trains,
		Vehicles:   s.Vehicles,
		Crashed:    s.Crashed,
		Checksum:   fmt.Sprintf("%016x", s.Checksum),
		Reversals:  int64(s.Reversals),
	}
}
