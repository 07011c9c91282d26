package rail

import "math/bits"

// Trackdir is a track piece together with a travel direction along it.
// Values 0-5 and 8-13 are valid; flipping bit 3 reverses the direction.
type Trackdir uint8

const (
	TrackdirXNE    Trackdir = 0
	TrackdirYSE    Trackdir = 1
	TrackdirUpperE Trackdir = 2
	TrackdirLowerE Trackdir = 3
	TrackdirLeftS  Trackdir = 4
	TrackdirRightS Trackdir = 5
	TrackdirXSW    Trackdir = 8
	TrackdirYNW    Trackdir = 9
	TrackdirUpperW Trackdir = 10
	TrackdirLowerW Trackdir = 11
	TrackdirLeftN  Trackdir = 12
	TrackdirRightN Trackdir = 13

	TrackdirInvalid Trackdir = 0xFF
)

// IsValid reports whether td names a real directed track.
func (td Trackdir) IsValid() bool { return td < 14 && td&7 < 6 }

// Track drops the direction.
func (td Trackdir) Track() Track { return Track(td & 7) }

// Reverse returns the same piece travelled the other way.
func (td Trackdir) Reverse() Trackdir { return td ^ 8 }

// Exit returns the tile edge a vehicle following td leaves through.
func (td Trackdir) Exit() DiagDir { return trackdirExits[td] }

// Heading returns the vehicle direction while following td.
func (td Trackdir) Heading() Direction { return trackdirHeadings[td] }

// Bit returns the single-element set holding td.
func (td Trackdir) Bit() TrackdirBits { return TrackdirBits(1) << td }

var trackdirExits = [14]DiagDir{
	DiagNE, DiagSE, DiagNE, DiagSE, DiagSW, DiagSE, DiagInvalid, DiagInvalid,
	DiagSW, DiagNW, DiagNW, DiagSW, DiagNW, DiagNE,
}

var trackdirHeadings = [14]Direction{
	DirNE, DirSE, DirE, DirE, DirS, DirS, 0, 0,
	DirSW, DirNW, DirW, DirW, DirN, DirN,
}

// TrackdirBits is a set of directed tracks.
type TrackdirBits uint16

const TrackdirBitsNone TrackdirBits = 0

// reachableTrackdirs lists the directed tracks a vehicle can continue on
// after crossing into a tile over each edge.
var reachableTrackdirs = [4]TrackdirBits{0x1009, 0x0016, 0x0520, 0x2A00}

// Reachable returns the directed tracks usable after entering over edge e.
func Reachable(e DiagDir) TrackdirBits { return reachableTrackdirs[e&3] }

func (b TrackdirBits) Has(td Trackdir) bool { return b&td.Bit() != 0 }

// First returns the lowest directed track in the set.
func (b TrackdirBits) First() Trackdir {
	if b == 0 {
		return TrackdirInvalid
	}
	return Trackdir(bits.TrailingZeros16(uint16(b)))
}

// WithoutFirst clears the lowest element.
func (b TrackdirBits) WithoutFirst() TrackdirBits { return b & (b - 1) }

// Tracks folds both directions of each piece into a track set.
func (b TrackdirBits) Tracks() TrackBits {
	return TrackBits((b | b>>8) & TrackdirBits(TrackBitsAll))
}

// Trackdirs expands a track set to both directions of every piece.
func (t TrackBits) Trackdirs() TrackdirBits {
	tb := TrackdirBits(t & TrackBitsAll)
	return tb | tb<<8
}

// TrackdirFromEntry returns the directed form of t taken after crossing
// edge e, TrackdirInvalid when t cannot be entered that way.
func TrackdirFromEntry(t Track, e DiagDir) Trackdir {
	r := Reachable(e) & t.Bit().Trackdirs()
	return r.First()
}

// TrackdirFromHeading returns the directed form of t matching heading d.
func TrackdirFromHeading(t Track, d Direction) Trackdir {
	if t > TrackRight {
		return TrackdirInvalid
	}
	td := Trackdir(t)
	if td.Heading() == d {
		return td
	}
	return td.Reverse()
}

// TrackStatus is what a tile offers a rail vehicle: the directed tracks it
// can travel and the subset guarded by a red signal.
type TrackStatus struct {
	Trackdirs TrackdirBits
	Red       TrackdirBits
}

// Mask restricts the status to the given directed tracks.
func (s TrackStatus) Mask(m TrackdirBits) TrackStatus {
	return TrackStatus{Trackdirs: s.Trackdirs & m, Red: s.Red & m}
}

// Empty reports whether no track is available.
func (s TrackStatus) Empty() bool { return s.Trackdirs == 0 }
