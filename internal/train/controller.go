// Package train moves trains across the track network one tick at a time.
// It steps every unit of a consist, enters and leaves tiles, waits at
// signals, reverses, detects collisions and runs the depot, order and
// breakdown logic around the movement.
package train

import (
	"errors"
	"log/slog"
	"math/rand/v2"

	"github.com/trackworks/railcore/internal/consist"
	"github.com/trackworks/railcore/internal/events"
	"github.com/trackworks/railcore/internal/pathfind"
	"github.com/trackworks/railcore/internal/physics"
	"github.com/trackworks/railcore/internal/pool"
	"github.com/trackworks/railcore/internal/rail"
	"github.com/trackworks/railcore/internal/world"
	"github.com/trackworks/railcore/pkg/core"
)

// ErrDisconnected is reported when a trailing unit cannot follow the unit
// in front of it.
var ErrDisconnected = errors.New("train disconnected")

// Result is the outcome of stepping a train once.
type Result uint8

const (
	// Advanced means every unit moved one step.
	Advanced Result = iota
	// InvalidRail means the head cannot enter the tile ahead.
	InvalidRail
	// RedLight means the head stopped in front of a red signal.
	RedLight
	// ReverseRequested means the head gave up waiting and must turn.
	ReverseRequested
	// Stopped means a line end or a station stop ended the step early.
	Stopped
	// Disconnected means a trailing unit found no track to follow.
	Disconnected
)

var resultNames = []string{"advanced", "invalid_rail", "red_light", "reverse_requested", "stopped", "disconnected"}

func (r Result) String() string {
	if int(r) < len(resultNames) {
		return resultNames[r]
	}
	return "unknown"
}

// Outcome describes a step. For RedLight, Tile and Trackdir name the
// guarded track and Dir the heading the head arrived with.
type Outcome struct {
	Result   Result
	Unit     *consist.Vehicle
	Tile     world.TileIndex
	Enter    rail.DiagDir
	Dir      rail.Direction
	Trackdir rail.Trackdir
}

// Loader moves cargo while a head stands at a station.
type Loader interface {
	// LoadUnload transfers cargo for one loading round, sets the loading
	// timer and reports whether the cargo on board changed.
	LoadUnload(head *consist.Vehicle) bool
	// CanFill reports whether a full-load order should keep waiting.
	CanFill(head *consist.Vehicle) bool
}

// Controller holds everything train movement reads and writes.
type Controller struct {
	Grid    world.TrackQuery
	Signals world.SignalBlockManager
	Pool    *pool.Pool
	Path    *pathfind.Adapter
	Physics *physics.Model
	Engines *consist.EngineTable
	Events  events.Sink
	Loader  Loader
	Params  Params
	Rand    *rand.Rand
	Log     *slog.Logger

	tick      uint64
	date      int32
	reversals uint64
	waits     uint64
	crashes   []core.CrashEvent
}

// Step moves every unit of head's train one step.
func (c *Controller) Step(head *consist.Vehicle) Outcome {
	return c.step(head, nil)
}

// step moves the units from lead up to, not including, end. The unit
// before end counts as the last one for signal updates.
func (c *Controller) step(lead, end *consist.Vehicle) Outcome {
	var prev *consist.Vehicle
	if !lead.IsHead() {
		prev = lead.Prev()
	}
	leader := true

	for v := lead; v != nil && v != end; prev, v, leader = v, v.Next(), false {
		last := v.Next() == end
		oldTile := v.Tile
		dx, dy := v.Direction.Step()
		x, y := v.X+dx, v.Y+dy
		newTile := c.Grid.TileFromXY(x, y)

		if v.InTunnel() {
			if c.Grid.TileKind(newTile) == world.TileTunnel && c.enterTile(v, newTile, x, y).skip {
				c.settle(v, x, y, newTile != oldTile, leader)
				continue
			}
			v.X, v.Y = x, y
			continue
		}

		if newTile == oldTile {
			if v.InDepot() {
				x, y = v.X, v.Y
			} else {
				if !c.checkIfLineEnds(v) {
					return Outcome{Result: Stopped, Unit: v, Tile: oldTile}
				}
				r := c.enterTile(v, newTile, x, y)
				if r.invalid {
					return c.invalidRail(v, leader, newTile)
				}
				if r.station != world.InvalidStation {
					c.enterStation(v, r.station)
					return Outcome{Result: Stopped, Unit: v, Tile: newTile}
				}
				if v.CurrentOrder.Is(consist.OrderLeaveStation) {
					v.CurrentOrder = consist.Order{}
				}
			}
			c.settle(v, x, y, false, leader)
			continue
		}

		if newTile == world.InvalidTile {
			return c.invalidRail(v, leader, newTile)
		}

		ox, oy := c.Grid.TileOrigin(oldTile)
		nx, ny := c.Grid.TileOrigin(newTile)
		dir := rail.DirectionFromDelta(sign(nx-ox), sign(ny-oy))
		enter := dir.Diag()

		ts := c.Grid.TrackStatus(newTile).Mask(rail.Reachable(enter))
		bits := ts.Trackdirs.Tracks()
		if leader && c.Path != nil && c.Path.Forbids90() && !v.Track.IsSentinel() {
			bits &^= rail.CrossingTracks(v.Track.First())
		}
		if bits == rail.TrackBitsNone || !c.compatible(v, newTile) {
			return c.invalidRail(v, leader, newTile)
		}

		var chosen rail.Track
		switch {
		case leader && v.IsFrontEngine():
			chosen = c.Path.ChooseTrack(v, newTile, enter, bits)
			td := rail.TrackdirFromEntry(chosen, enter)
			if ts.Red.Has(td) && v.ForceProceed == 0 {
				return Outcome{Result: RedLight, Unit: v, Tile: newTile, Enter: enter, Dir: dir, Trackdir: td}
			}
		case prev != nil:
			follow := pathfind.WagonFollow(prev, x, y, bits)
			if follow == rail.TrackBitsNone {
				return c.invalidRail(v, leader, newTile)
			}
			chosen = follow.First()
		default:
			chosen = bits.First()
		}

		sub := rail.EntrySubCoord(chosen, enter)
		x = x&^0xF | int32(sub.X)
		y = y&^0xF | int32(sub.Y)

		r := c.enterTile(v, newTile, x, y)
		if r.invalid {
			return c.invalidRail(v, leader, newTile)
		}
		if v.IsFrontEngine() {
			v.LoadUnloadTimeRem = 0
		}
		if !r.skip {
			v.Tile = newTile
			v.Track = chosen.Bit()
		}

		// signals only change when the first or the last unit moves
		if v.IsFrontEngine() {
			c.trainMoved(newTile, enter)
		}
		if last {
			c.trainMoved(oldTile, enter.Reverse())
			c.disableCrossing(oldTile)
		}

		if leader && v.IsFrontEngine() {
			c.Physics.AffectSpeedByDirChange(v, sub.Dir)
		}
		v.Direction = sub.Dir
		c.settle(v, x, y, true, leader)
	}
	return Outcome{Result: Advanced}
}

// settle is the common tail of every step: the unit takes its new
// position and height.
func (c *Controller) settle(v *consist.Vehicle, x, y int32, newTile, leader bool) {
	if c.Params.EmitMoves {
		c.emit(core.EventDirty, v, "", nil)
	}
	v.X, v.Y = x, y
	oldZ := c.afterSetPos(v, newTile)
	if leader && v.IsFrontEngine() {
		c.Physics.AffectSpeedByZChange(v, oldZ)
	}
}

func (c *Controller) invalidRail(v *consist.Vehicle, leader bool, t world.TileIndex) Outcome {
	if !leader {
		return Outcome{Result: Disconnected, Unit: v, Tile: t}
	}
	return Outcome{Result: InvalidRail, Unit: v, Tile: t}
}

func sign(d int32) int32 {
	switch {
	case d > 0:
		return 1
	case d < 0:
		return -1
	}
	return 0
}
