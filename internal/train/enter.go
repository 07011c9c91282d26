package train

import (
	"github.com/trackworks/railcore/internal/consist"
	"github.com/trackworks/railcore/internal/events"
	"github.com/trackworks/railcore/internal/rail"
	"github.com/trackworks/railcore/internal/world"
	"github.com/trackworks/railcore/pkg/core"
)

// entry is what a tile does to a unit stepping onto (x, y) of it.
type entry struct {
	// invalid refuses the step.
	invalid bool
	// skip means the tile already placed the unit; tile and track must
	// not be overwritten.
	skip bool
	// station is set when a head has to stop at this platform.
	station world.StationID
}

// Fractional in-tile positions, indexed by depot exit or tunnel edge,
// packed as x | y<<4.
var (
	depotBehind = [4]uint8{0x8F, 0x08, 0x80, 0xF8}
	depotEnter  = [4]uint8{0x8A, 0x48, 0x84, 0xA8}

	tunnelSound = [4]uint8{0x8E, 0x18, 0x81, 0xE8}
	tunnelEnter = [4]uint8{0x81, 0x98, 0x87, 0x38}
	tunnelExit  = [4]uint8{0x82, 0x88, 0x86, 0x48}
)

// depotLeaveStep is the per unit length offset, x then y, from the depot
// entry point at which the next unit is released.
var depotLeaveStep = [8]int32{-1, 0, 1, 0, 0, 1, 0, -1}

// stationSpeeds caps the approach speed by distance to the stop point.
var stationSpeeds = [12]uint16{215, 195, 175, 155, 135, 115, 95, 75, 55, 35, 15, 0}

func fractCoord(x, y int32) uint8 {
	return uint8(x&0xF) | uint8(y&0xF)<<4
}

func (c *Controller) enterTile(v *consist.Vehicle, t world.TileIndex, x, y int32) entry {
	r := entry{station: world.InvalidStation}
	switch c.Grid.TileKind(t) {
	case world.TileDepot:
		c.enterDepotTile(v, t, x, y, &r)
	case world.TileTunnel:
		c.enterTunnel(v, t, x, y, &r)
	case world.TileStation:
		c.enterPlatform(v, t, x, y, &r)
	case world.TileCrossing:
		if !c.Grid.CrossingLit(t) {
			c.Grid.SetCrossingLit(t, true)
			c.emit(core.EventSound, v, events.SoundLevelCrossing, nil)
		}
	}
	return r
}

func (c *Controller) enterDepotTile(v *consist.Vehicle, t world.TileIndex, x, y int32, r *entry) {
	exit := c.Grid.DepotExit(t)
	if exit == rail.DiagInvalid {
		return
	}
	fc := fractCoord(x, y)
	switch {
	case fc == depotBehind[exit]:
		r.invalid = true
	case fc == depotEnter[exit]:
		if v.Direction != exit.Reverse().Direction() {
			return
		}
		v.Track = rail.TrackBitsDepot
		v.SetStatus(consist.StatusHidden)
		v.Direction = v.Direction.Reverse()
		if v.Next() == nil {
			c.enterDepot(v, t)
		}
		v.Tile = t
		r.skip = true
	default:
		n := int32(v.CachedVehLength) + 1
		lx := int32(depotEnter[exit]&0xF) + n*depotLeaveStep[exit]
		ly := int32(depotEnter[exit]>>4) + n*depotLeaveStep[exit+4]
		if x&0xF != lx || y&0xF != ly || v.Direction != exit.Direction() {
			return
		}
		if next := v.Next(); next != nil {
			next.ClearStatus(consist.StatusHidden)
			next.Track = rail.AxisTrack(exit).Bit()
		}
	}
}

func (c *Controller) enterTunnel(v *consist.Vehicle, t world.TileIndex, x, y int32, r *entry) {
	into, _ := c.Grid.TunnelPortal(t)
	if into == rail.DiagInvalid {
		return
	}
	fc := fractCoord(x, y)
	vdir := v.Direction.Diag()

	if !v.InTunnel() && into == vdir {
		if v.IsFrontEngine() && fc == tunnelSound[into] {
			c.emit(core.EventSound, v, events.SoundTunnel, nil)
			return
		}
		if fc == tunnelEnter[into] {
			v.Tile = t
			v.Track = rail.TrackBitsTunnel
			v.SetStatus(consist.StatusHidden)
			r.skip = true
		}
		return
	}
	if into == vdir.Reverse() && fc == tunnelExit[into] {
		v.Tile = t
		v.Track = rail.AxisTrack(into).Bit()
		v.ClearStatus(consist.StatusHidden)
		r.skip = true
	}
}

// enterPlatform slows a head down on the last platform tile and stops it
// at the stop point.
func (c *Controller) enterPlatform(v *consist.Vehicle, t world.TileIndex, x, y int32, r *entry) {
	if !v.IsFrontEngine() {
		return
	}
	if c.Grid.TileKind(c.Grid.Neighbour(t, v.Direction.Diag())) == world.TileStation {
		return
	}
	st := c.Grid.StationAt(t)
	o := v.CurrentOrder
	nonstop := o.Has(consist.OrderNonStop)
	if (nonstop || c.Params.NewNonstop) && !(o.Is(consist.OrderGotoStation) && o.Station == st) {
		return
	}
	if (c.Params.NewNonstop && nonstop) || o.Is(consist.OrderLeaveStation) || v.LastStationVisited == st {
		return
	}

	fx, fy := x&0xF, y&0xF
	dir := v.Direction & 6
	if dir&2 != 0 {
		fx, fy = fy, fx
	}
	if fy != 8 {
		return
	}
	if dir != 2 && dir != 4 {
		fx = ^fx & 0xF
	}
	switch {
	case fx == 12:
		r.station = st
	case fx < 12:
		v.SetStatus(consist.StatusSlowing)
		if s := stationSpeeds[fx]; s < v.CurSpeed {
			v.CurSpeed = s
		}
	}
}

// afterSetPos updates the height of v at its new position and returns the
// previous one. Slope flags are only recomputed on a new tile.
func (c *Controller) afterSetPos(v *consist.Vehicle, newTile bool) uint8 {
	oldZ := v.Z
	v.Z = c.Grid.SlopeZ(v.X, v.Y)
	if newTile {
		v.ClearFlag(consist.FlagGoingUp | consist.FlagGoingDown)
		if v.Z != oldZ && c.Grid.TileKind(c.Grid.TileFromXY(v.X, v.Y)) != world.TileTunnel {
			if v.Z > oldZ {
				v.SetFlag(consist.FlagGoingUp)
			} else {
				v.SetFlag(consist.FlagGoingDown)
			}
		}
	}
	return oldZ
}

// trainMoved recomputes the block beyond the signal on t after a train
// crossed edge enter of it.
func (c *Controller) trainMoved(t world.TileIndex, enter rail.DiagDir) {
	if t == world.InvalidTile || c.Grid.TileKind(t) != world.TileRail || !c.Grid.HasSignals(t) {
		return
	}
	tds := c.Grid.Tracks(t).Trackdirs() & rail.Reachable(enter)
	if tds == 0 {
		return
	}
	c.Signals.UpdateSignalsOnSegment(t, tds.First().Exit().Direction())
}

// compatible reports whether v may run on t: the track must belong to its
// owner and heads need their own rail type.
func (c *Controller) compatible(v *consist.Vehicle, t world.TileIndex) bool {
	if !c.Grid.TileKind(t).IsRailBearing() {
		return true
	}
	if !c.Grid.IsOwnedBy(t, v.Owner) {
		return false
	}
	return !v.IsFrontEngine() || c.Grid.RailTypeAt(t) == v.RailType
}

// disableCrossing switches the lights of a level crossing off once no
// train stands on it.
func (c *Controller) disableCrossing(t world.TileIndex) {
	if c.Grid.TileKind(t) != world.TileCrossing || !c.Grid.CrossingLit(t) {
		return
	}
	if len(c.Pool.OnTile(t)) == 0 {
		c.Grid.SetCrossingLit(t, false)
	}
}
