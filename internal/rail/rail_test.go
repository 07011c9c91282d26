package rail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectionReverseAndAxis(t *testing.T) {
	for d := DirN; d <= DirNW; d++ {
		assert.Equal(t, d, d.Reverse().Reverse())
		assert.Equal(t, d.IsAxial(), d.Reverse().IsAxial())
	}
	assert.True(t, DirNE.IsAxial())
	assert.False(t, DirE.IsAxial())
	assert.Equal(t, DiagSW, DirSW.Diag())
	assert.Equal(t, DirNW, DiagNW.Direction())
}

func TestDirectionFromDeltaMatchesStep(t *testing.T) {
	for d := DirN; d <= DirNW; d++ {
		dx, dy := d.Step()
		assert.Equal(t, d, DirectionFromDelta(dx, dy), "direction %s", d)
	}
}

func TestDiagOffsetsMatchAxialSteps(t *testing.T) {
	for e := DiagNE; e <= DiagNW; e++ {
		dx, dy := e.Offset()
		sx, sy := e.Direction().Step()
		assert.Equal(t, int(sx), dx)
		assert.Equal(t, int(sy), dy)
	}
}

func TestDirectionTowardsDeadZone(t *testing.T) {
	// within two units counts as aligned on that axis
	assert.Equal(t, DirNE, DirectionTowards(20, 8, 10, 9))
	assert.Equal(t, DirSW, DirectionTowards(10, 8, 20, 7))
	assert.Equal(t, DirS, DirectionTowards(0, 0, 10, 10))
}

func TestTrackBits(t *testing.T) {
	b := TrackX.Bit() | TrackLeft.Bit()
	assert.Equal(t, 2, b.Count())
	assert.False(t, b.Single())
	assert.Equal(t, TrackX, b.First())
	assert.Equal(t, TrackLeft, b.WithoutFirst().First())
	assert.Equal(t, TrackInvalid, TrackBitsNone.First())
	assert.True(t, TrackBitsDepot.IsSentinel())
	assert.True(t, TrackBitsTunnel.IsSentinel())
	assert.False(t, TrackY.Bit().IsSentinel())
	assert.Equal(t, 0, TrackBitsDepot.Count())
}

func TestTrackdirTables(t *testing.T) {
	for td := Trackdir(0); td < 14; td++ {
		if !td.IsValid() {
			continue
		}
		rev := td.Reverse()
		require.True(t, rev.IsValid())
		assert.Equal(t, td.Track(), rev.Track())
		assert.Equal(t, td.Heading().Reverse(), rev.Heading(), "trackdir %d", td)
	}
	assert.False(t, Trackdir(6).IsValid())
	assert.False(t, Trackdir(7).IsValid())
}

func TestReachableTrackdirsEnterAcrossEdge(t *testing.T) {
	for e := DiagNE; e <= DiagNW; e++ {
		r := Reachable(e)
		assert.Equal(t, 3, popcount(r))
		for ; r != 0; r = r.WithoutFirst() {
			td := r.First()
			// a directed track entered over e never exits back over the same edge
			assert.NotEqual(t, e.Reverse(), td.Exit(), "edge %s trackdir %d", e, td)
		}
	}
}

func TestEntrySubCoordAgreesWithTrackdir(t *testing.T) {
	for e := DiagNE; e <= DiagNW; e++ {
		for r := Reachable(e); r != 0; r = r.WithoutFirst() {
			td := r.First()
			sc := EntrySubCoord(td.Track(), e)
			assert.Equal(t, td.Heading(), sc.Dir, "edge %s trackdir %d", e, td)
			assert.Equal(t, td, TrackdirFromEntry(td.Track(), e))
		}
	}
	assert.Equal(t, TrackdirInvalid, TrackdirFromEntry(TrackY, DiagNE))
}

func TestTrackdirFromHeading(t *testing.T) {
	assert.Equal(t, TrackdirXNE, TrackdirFromHeading(TrackX, DirNE))
	assert.Equal(t, TrackdirXSW, TrackdirFromHeading(TrackX, DirSW))
	assert.Equal(t, TrackdirLeftN, TrackdirFromHeading(TrackLeft, DirN))
	assert.Equal(t, TrackdirInvalid, TrackdirFromHeading(TrackInvalid, DirN))
}

func TestExitDiagOnCorner(t *testing.T) {
	assert.Equal(t, DiagNE, ExitDiag(DirNE, TrackX.Bit()))
	// heading N on the right piece leaves over NE, on the left piece over NW
	assert.Equal(t, DiagNE, ExitDiag(DirN, TrackRight.Bit()))
	assert.Equal(t, DiagNW, ExitDiag(DirN, TrackLeft.Bit()))
}

func TestFollowTracksAndCrossings(t *testing.T) {
	assert.Equal(t, TrackX.Bit(), FollowTracks(DirNE))
	assert.Equal(t, TrackY.Bit(), FollowTracks(DirNW))
	assert.Equal(t, TrackY.Bit(), CrossingTracks(TrackX))
	assert.Equal(t, TrackBitsNone, CrossingTracks(TrackInvalid))
}

func TestTrackdirBitsFold(t *testing.T) {
	b := TrackdirXSW.Bit() | TrackdirUpperE.Bit()
	assert.Equal(t, TrackX.Bit()|TrackUpper.Bit(), b.Tracks())
	assert.Equal(t, TrackdirXNE.Bit()|TrackdirXSW.Bit(), TrackX.Bit().Trackdirs())
}

func popcount(b TrackdirBits) int {
	n := 0
	for ; b != 0; b = b.WithoutFirst() {
		n++
	}
	return n
}
