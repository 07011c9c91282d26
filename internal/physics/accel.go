package physics

import (
	"github.com/trackworks/railcore/internal/consist"
	"github.com/trackworks/railcore/internal/rail"
	"github.com/trackworks/railcore/internal/world"
)

// Mode selects between accelerating and braking force.
type Mode uint8

const (
	ModeAccel Mode = iota
	ModeBrake
)

// curveNeighbours45 lists, per heading, the headings of a following unit
// that is half a turn off; curveNeighbours90 the ones a right angle off.
var curveNeighbours45 = [8][2]rail.Direction{
	{7, 1}, {0, 2}, {1, 3}, {2, 4}, {3, 5}, {4, 6}, {5, 7}, {6, 0},
}

var curveNeighbours90 = [8][2]rail.Direction{
	{6, 2}, {7, 3}, {0, 4}, {1, 5}, {2, 6}, {3, 7}, {4, 0}, {5, 1},
}

// Model evaluates the acceleration of a train on grid.
type Model struct {
	Params Params
	Grid   world.TrackQuery

	// Realistic enables the force based model; otherwise the fixed
	// acceleration of the consist is used.
	Realistic bool
	// NewNonstop selects the non-stop order semantics used for station
	// braking.
	NewNonstop bool
}

// New returns a model over grid with the given constants.
func New(p Params, grid world.TrackQuery) *Model {
	return &Model{Params: p, Grid: grid}
}

// Acceleration returns the signed speed change per step of head under
// the realistic model. As a side effect head.MaxSpeed is set to the
// current speed cap from curves, stations and depots.
func (m *Model) Acceleration(head *consist.Vehicle, mode Mode) int {
	p := m.Params
	speed := int(head.CurSpeed) * 10 / 16

	maxSpeed := m.curveCap(head)
	maxSpeed += maxSpeed / 2 * int(head.RailType)

	if m.Grid.TileKind(head.Tile) == world.TileStation && head.IsFrontEngine() {
		if consist.ShouldStopAt(head, m.Grid.StationAt(head.Tile), m.NewNonstop) {
			maxSpeed = m.stationCap(head)
		}
	}

	mass := int(head.CachedWeight)
	if mass == 0 {
		mass = 1
	}
	power := int(head.CachedPower) * p.WattsPerHP
	maxSpeed = min(maxSpeed, int(head.CachedMaxSpeed))

	num, drag, incl := 0, p.Drag, 0
	for u := head; u != nil; u = u.Next() {
		num++
		drag += p.DragPerUnit
		if u.InDepot() {
			maxSpeed = min(p.DepotCap, maxSpeed)
		}
		switch {
		case u.Has(consist.FlagGoingUp):
			incl += int(u.CachedVehWeight) * p.InclinePerWeight
		case u.Has(consist.FlagGoingDown):
			incl -= int(u.CachedVehWeight) * p.InclinePerWeight
		}
	}

	head.MaxSpeed = uint16(max(maxSpeed, 0))

	maglev := head.RailType == rail.RailMaglev
	var resistance int
	if !maglev {
		resistance = p.RollingNum * mass / p.RollingDen
		resistance += p.PerUnit * num
		resistance += p.Friction * mass * speed / 1000
		resistance += p.Area * drag * speed * speed / 10000
	} else {
		resistance = p.Area * (drag / 2) * speed * speed / 10000
	}
	resistance += incl
	resistance *= p.ResistanceScale

	var force int
	switch {
	case speed == 0:
		force = resistance * p.Kickoff
	case maglev:
		force = power / 25
	default:
		force = power / speed * 22 / 10
	}
	if force <= 0 {
		force = p.ForceFloor
	}
	if !maglev {
		force = min(force, mass*p.ForcePerMass)
	}

	if mode == ModeAccel {
		return (force - resistance) / (mass * 4)
	}
	return min((-force-resistance)/(mass*4), p.ForceFloor/(mass*4))
}

// curveCap derives the speed limit imposed by the bends the consist is
// currently stretched over.
func (m *Model) curveCap(head *consist.Vehicle) int {
	p := m.Params
	maxSpeed := p.StartCap
	var curves [2]int
	sum, numCurves, lastPos := 0, 0, -1

	pos := 0
	for u := head; u.Next() != nil; u = u.Next() {
		dir, ndir := u.Direction&7, u.Next().Direction
		for i := 0; i < 2; i++ {
			if curveNeighbours45[dir][i] != ndir {
				continue
			}
			curves[i]++
			if lastPos != -1 {
				numCurves++
				sum += pos - lastPos
				if pos-lastPos == 1 {
					maxSpeed = p.AdjacentCurveCap
				}
			}
			lastPos = pos
		}
		if curveNeighbours90[dir][0] == ndir || curveNeighbours90[dir][1] == ndir {
			maxSpeed = p.SharpCurveCap
		}
		pos++
	}
	if numCurves > 0 {
		sum /= numCurves
	}

	if (curves[0] != 0 || curves[1] != 0) && maxSpeed > p.AdjacentCurveCap {
		total := curves[0] + curves[1]
		switch {
		case curves[0] == 1 && curves[1] == 1:
			// an S-bend does not slow the train
			maxSpeed = 0xFFFF
		case total > 1:
			d := 13 - min(max(sum, 1), 12)
			maxSpeed = p.CurveBase - d*d
		}
	}
	return maxSpeed
}

// stationCap brakes a head that has to stop on the platform it is on so
// that it comes to rest near the platform end.
func (m *Model) stationCap(head *consist.Vehicle) int {
	p := m.Params
	ref := head.Tile
	length := 0
	for t := ref; ; {
		length++
		t = m.Grid.Neighbour(t, head.Direction.Diag())
		if !m.sameStation(t, ref, head.Owner) {
			break
		}
	}

	cur := int(head.CurSpeed)
	capped := p.StationCap
	delta := cur / (length + 1)
	if int(head.MaxSpeed) > cur-delta {
		capped = cur - delta/10
	}
	return max(capped, p.StationTileCap*length)
}

func (m *Model) sameStation(t, ref world.TileIndex, owner world.Owner) bool {
	return t != world.InvalidTile &&
		m.Grid.TileKind(t) == world.TileStation &&
		m.Grid.StationAt(t) == m.Grid.StationAt(ref) &&
		m.Grid.Tracks(t) == m.Grid.Tracks(ref) &&
		m.Grid.IsOwnedBy(t, owner)
}
