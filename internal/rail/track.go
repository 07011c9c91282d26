package rail

import "math/bits"

// Track is one of the six track pieces that fit in a tile.
type Track uint8

const (
	TrackX     Track = iota // NE-SW
	TrackY                  // NW-SE
	TrackUpper              // NE-NW corner
	TrackLower              // SE-SW corner
	TrackLeft               // NW-SW corner
	TrackRight              // NE-SE corner

	TrackInvalid Track = 0xFF
)

var trackNames = [6]string{"X", "Y", "UPPER", "LOWER", "LEFT", "RIGHT"}

func (t Track) String() string {
	if t > TrackRight {
		return "invalid"
	}
	return trackNames[t]
}

// Bit returns the single-piece set holding t.
func (t Track) Bit() TrackBits { return TrackBits(1) << t }

// TrackBits is a set of track pieces. A vehicle's occupied track is a
// single piece or one of the Depot and Tunnel sentinels.
type TrackBits uint8

const (
	TrackBitsNone TrackBits = 0
	TrackBitsAll  TrackBits = 0x3F

	// TrackBitsTunnel marks a vehicle travelling inside a tunnel.
	TrackBitsTunnel TrackBits = 0x40
	// TrackBitsDepot marks a vehicle parked inside a depot.
	TrackBitsDepot TrackBits = 0x80

	trackBitsSentinels = TrackBitsTunnel | TrackBitsDepot
)

func (b TrackBits) Has(t Track) bool { return b&t.Bit() != 0 }

// Count returns the number of pieces in the set, sentinels excluded.
func (b TrackBits) Count() int { return bits.OnesCount8(uint8(b & TrackBitsAll)) }

// Single reports whether exactly one piece is set.
func (b TrackBits) Single() bool { return b.Count() == 1 }

// First returns the lowest piece in the set, TrackInvalid when empty.
func (b TrackBits) First() Track {
	b &= TrackBitsAll
	if b == 0 {
		return TrackInvalid
	}
	return Track(bits.TrailingZeros8(uint8(b)))
}

// WithoutFirst clears the lowest piece.
func (b TrackBits) WithoutFirst() TrackBits { return b & (b - 1) }

// IsSentinel reports whether b is the depot or tunnel marker.
func (b TrackBits) IsSentinel() bool { return b&trackBitsSentinels != 0 }

// crossingTracks lists, per track, the pieces that cross it.
var crossingTracks = [6]TrackBits{
	TrackY.Bit(),
	TrackX.Bit(),
	TrackLeft.Bit() | TrackRight.Bit(),
	TrackLeft.Bit() | TrackRight.Bit(),
	TrackUpper.Bit() | TrackLower.Bit(),
	TrackUpper.Bit() | TrackLower.Bit(),
}

// CrossingTracks returns the pieces that would form a 90 degree turn when
// taken directly after t.
func CrossingTracks(t Track) TrackBits {
	if t > TrackRight {
		return TrackBitsNone
	}
	return crossingTracks[t]
}

// AxisTrack returns the straight track running across edge d.
func AxisTrack(d DiagDir) Track {
	if d&1 == 0 {
		return TrackX
	}
	return TrackY
}

// matchingTracks maps the heading toward the preceding unit to the pieces a
// trailing unit may take to follow it.
var matchingTracks = [8]TrackBits{0x30, 0x01, 0x0C, 0x02, 0x30, 0x01, 0x0C, 0x02}

// FollowTracks returns the pieces that lead toward a unit lying in
// direction d.
func FollowTracks(d Direction) TrackBits { return matchingTracks[d&7] }

// SubCoord is the entry point of a track piece: the fractional position a
// vehicle is placed at when it enters a tile, and its new heading.
type SubCoord struct {
	X, Y uint8
	Dir  Direction
}

// initialSubCoord is indexed by [track][enter edge]; zero rows are
// unreachable combinations.
var initialSubCoord = [6][4]SubCoord{
	{{15, 8, DirNE}, {}, {0, 8, DirSW}, {}},
	{{}, {8, 0, DirSE}, {}, {8, 15, DirNW}},
	{{}, {7, 0, DirE}, {0, 7, DirW}, {}},
	{{15, 8, DirE}, {}, {}, {8, 15, DirW}},
	{{15, 7, DirN}, {8, 0, DirS}, {}, {}},
	{{}, {}, {0, 8, DirS}, {7, 15, DirN}},
}

// EntrySubCoord returns where a vehicle entering across edge enter onto
// track t is placed.
func EntrySubCoord(t Track, enter DiagDir) SubCoord {
	return initialSubCoord[t][enter&3]
}
