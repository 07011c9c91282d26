// Package rail holds the tile geometry of the track network: compass
// directions, track pieces, directed tracks and the lookup tables relating
// them.
package rail

// Direction is one of the eight compass headings a vehicle can face.
// Odd values run along a tile axis, even values are diagonal to the grid.
type Direction uint8

const (
	DirN Direction = iota
	DirNE
	DirE
	DirSE
	DirS
	DirSW
	DirW
	DirNW
)

var directionNames = [8]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

func (d Direction) String() string {
	if d > DirNW {
		return "invalid"
	}
	return directionNames[d]
}

// Reverse returns the opposite heading.
func (d Direction) Reverse() Direction { return d ^ 4 }

// IsAxial reports whether the heading runs along a tile axis.
func (d Direction) IsAxial() bool { return d&1 == 1 }

// Diag returns the tile edge a vehicle heading d crosses, valid for axial
// headings.
func (d Direction) Diag() DiagDir { return DiagDir(d >> 1) }

// Turn rotates the heading by delta eighths, wrapping.
func (d Direction) Turn(delta int) Direction {
	return Direction((int(d) + delta) & 7)
}

// Step returns the sub-tile position delta of one movement step along d.
func (d Direction) Step() (dx, dy int32) {
	s := directionSteps[d&7]
	return s[0], s[1]
}

var directionSteps = [8][2]int32{
	{-1, -1}, // N
	{-1, 0},  // NE
	{-1, 1},  // E
	{0, 1},   // SE
	{1, 1},   // S
	{1, 0},   // SW
	{1, -1},  // W
	{0, -1},  // NW
}

// newDirectionTable maps (dy+1)*4 + (dx+1) for dx, dy in [-1,1] to a heading.
var newDirectionTable = [11]Direction{
	DirN, DirNW, DirW, DirN,
	DirNE, DirN, DirSW, DirN,
	DirE, DirSE, DirS,
}

// DirectionFromDelta returns the heading of a unit step (dx, dy), each
// component in [-1,1].
func DirectionFromDelta(dx, dy int32) Direction {
	return newDirectionTable[(dy+1)*4+(dx+1)]
}

// DirectionTowards returns the coarse heading from (x, y) to (tx, ty),
// treating offsets within two sub-tile units as aligned.
func DirectionTowards(x, y, tx, ty int32) Direction {
	return DirectionFromDelta(coarse(tx-x), coarse(ty-y))
}

func coarse(d int32) int32 {
	switch {
	case d > 2:
		return 1
	case d < -2:
		return -1
	}
	return 0
}

// DiagDir is one of the four tile edges: NE, SE, SW, NW.
type DiagDir uint8

const (
	DiagNE DiagDir = iota
	DiagSE
	DiagSW
	DiagNW

	DiagInvalid DiagDir = 0xFF
)

func (d DiagDir) String() string {
	switch d {
	case DiagNE:
		return "NE"
	case DiagSE:
		return "SE"
	case DiagSW:
		return "SW"
	case DiagNW:
		return "NW"
	}
	return "invalid"
}

// Reverse returns the opposite edge.
func (d DiagDir) Reverse() DiagDir { return d ^ 2 }

// Direction returns the axial heading leaving through edge d.
func (d DiagDir) Direction() Direction { return Direction(d*2 + 1) }

// Offset returns the tile delta of the neighbour across edge d.
func (d DiagDir) Offset() (dx, dy int) {
	o := diagOffsets[d&3]
	return o[0], o[1]
}

var diagOffsets = [4][2]int{
	{-1, 0}, // NE
	{0, 1},  // SE
	{1, 0},  // SW
	{0, -1}, // NW
}

// stateDirTable holds, per exit edge, the track a diagonally heading vehicle
// must occupy to leave through that edge rather than the one before it.
var stateDirTable = [4]TrackBits{0x20, 0x08, 0x10, 0x04}

// ExitDiag returns the edge a vehicle heading d on track t will leave its
// tile through.
func ExitDiag(d Direction, t TrackBits) DiagDir {
	e := DiagDir(d >> 1)
	if !d.IsAxial() && t != stateDirTable[e] {
		e = (e - 1) & 3
	}
	return e
}
