package train

import (
	"github.com/trackworks/railcore/internal/consist"
	"github.com/trackworks/railcore/internal/events"
	"github.com/trackworks/railcore/internal/rail"
	"github.com/trackworks/railcore/internal/world"
	"github.com/trackworks/railcore/pkg/core"
)

// breakdownSpeeds caps the speed of a failing train by breakdown counter,
// and of a train nearing a line end by distance to the tile edge.
var breakdownSpeeds = [16]uint16{225, 210, 195, 180, 165, 150, 135, 120, 105, 90, 75, 60, 45, 30, 15, 15}

// checkIfLineEnds looks at the tile ahead of v. It slows v down in front
// of dead ends and red signals and turns the train around when it would
// run onto missing or foreign track. It returns false after turning.
func (c *Controller) checkIfLineEnds(v *consist.Vehicle) bool {
	if t := v.BreakdownCtr; t > 1 {
		v.SetStatus(consist.StatusSlowing)
		if s := breakdownSpeeds[(^t>>4)&0xF]; s <= v.CurSpeed {
			v.CurSpeed = s
		}
	} else {
		v.ClearStatus(consist.StatusSlowing)
	}

	if v.InTunnel() {
		return true
	}
	if into, _ := c.Grid.TunnelPortal(v.Tile); into != rail.DiagInvalid && into.Direction() == v.Direction {
		return true
	}

	edge := rail.ExitDiag(v.Direction, v.Track)
	next := c.Grid.Neighbour(v.Tile, edge)
	var ts rail.TrackStatus
	if next != world.InvalidTile {
		ts = c.Grid.TrackStatus(next).Mask(rail.Reachable(edge))
	}

	// distance to the edge of the tile, in sixteenths
	x, y := uint32(v.X&0xF), uint32(v.Y&0xF)
	switch v.Direction {
	case rail.DirN:
		x = ^x + ^y + 24
	case rail.DirNW:
		x = ^y + 16
	case rail.DirNE:
		x = ^x + 16
	case rail.DirE:
		x = ^x + y + 8
	case rail.DirSE:
		x = y
	case rail.DirS:
		x = x + y - 8
	case rail.DirW:
		x = ^y + x + 8
	}

	if !ts.Empty() {
		if x+4 > 15 && !c.compatible(v, next) {
			v.CurSpeed = 0
			c.Reverse(v.First())
			return false
		}
		if ts.Red == 0 {
			if c.Grid.TileKind(next) == world.TileCrossing && !c.Grid.CrossingLit(next) {
				c.Grid.SetCrossingLit(next, true)
				c.emit(core.EventSound, v, events.SoundLevelCrossing, nil)
			}
			return true
		}
	} else if x+4 > 15 {
		v.CurSpeed = 0
		c.Reverse(v.First())
		return false
	}

	v.SetStatus(consist.StatusSlowing)
	s := breakdownSpeeds[x&0xF]
	if !v.Direction.IsAxial() {
		s >>= 1
	}
	if s < v.CurSpeed {
		v.CurSpeed = s
	}
	return true
}
