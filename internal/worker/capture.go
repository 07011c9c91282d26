package worker

import (
	"strconv"
	"time"

	"github.com/trackworks/railcore/internal/consist"
	"github.com/trackworks/railcore/pkg/core"
)

type joined struct {
	head *consist.Vehicle
	tick uint64
	time time.Time
}

// Capturer turns the trains of a pool into storage records. It runs on
// the simulation goroutine and remembers when each head first appeared,
// telling a new train apart from an earlier one whose index it reuses.
type Capturer struct {
	engines *consist.EngineTable
	seen    map[consist.VehicleID]joined
}

func NewCapturer(engines *consist.EngineTable) *Capturer {
	return &Capturer{engines: engines, seen: make(map[consist.VehicleID]joined)}
}

// Capture builds the snapshot of a tick from the heads in the pool.
// withStates also samples the state of every train.
func (c *Capturer) Capture(stats core.TickStats, heads []*consist.Vehicle, withStates bool) Snapshot {
	s := Snapshot{Stats: stats}
	live := make(map[consist.VehicleID]struct{}, len(heads))
	for _, h := range heads {
		if !h.IsFrontEngine() {
			continue
		}
		live[h.Index] = struct{}{}
		j, ok := c.seen[h.Index]
		if !ok || j.head != h {
			j = joined{head: h, tick: stats.Tick, time: stats.Time}
			c.seen[h.Index] = j
		}
		s.Trains = append(s.Trains, c.train(h, j))
		if withStates {
			s.States = append(s.States, State(h, stats.Tick, stats.Time))
		}
	}
	for id := range c.seen {
		if _, ok := live[id]; !ok {
			delete(c.seen, id)
		}
	}
	return s
}

func (c *Capturer) train(h *consist.Vehicle, j joined) core.Train {
	return core.Train{
		ID:         uint32(h.Index),
		UnitNumber: h.UnitNumber,
		Owner:      uint8(h.Owner),
		Engine:     c.engines.Info(h.Engine).Name,
		Units:      h.Count(),
		JoinTick:   j.tick,
		JoinTime:   j.time,
	}
}

// State is the recorded state of the train headed by h.
func State(h *consist.Vehicle, tick uint64, at time.Time) core.TrainState {
	return core.TrainState{
		TrainID:   uint32(h.Index),
		Tick:      tick,
		Time:      at,
		Tile:      uint32(h.Tile),
		Position:  core.Position{X: h.X, Y: h.Y, Z: h.Z},
		Direction: h.Direction.String(),
		Track:     uint8(h.Track),
		Speed:     h.CurSpeed,
		MaxSpeed:  h.MaxSpeed,
		Units:     h.Count(),
		Order:     OrderString(h.CurrentOrder),
		Stopped:   h.IsStopped(),
		Crashed:   h.IsCrashed(),
		InDepot:   h.InDepot(),
	}
}

// OrderString names an order compactly, e.g. "goto_station:4".
func OrderString(o consist.Order) string {
	switch o.Type {
	case consist.OrderNothing:
		return ""
	case consist.OrderGotoStation, consist.OrderLoading, consist.OrderLeaveStation:
		return o.Type.String() + ":" + strconv.Itoa(int(o.Station))
	case consist.OrderGotoDepot:
		return o.Type.String() + ":" + strconv.Itoa(int(o.Depot))
	case consist.OrderGotoWaypoint:
		return o.Type.String() + ":" + strconv.FormatUint(uint64(o.Tile), 10)
	}
	return o.Type.String()
}
