package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackworks/railcore/internal/rail"
)

type fakeOccupancy map[TileIndex]rail.TrackBits

func (f fakeOccupancy) Occupied(t TileIndex, tracks rail.TrackBits) bool {
	return f[t]&tracks != 0
}

// line builds a row of X track along y=1 from x=0 to x=n-1.
func line(t *testing.T, n uint32) *Grid {
	t.Helper()
	g := NewGrid(n, 3)
	for x := uint32(0); x < n; x++ {
		require.NoError(t, g.SetRail(g.TileXY(x, 1), 1, rail.RailNormal, rail.TrackX.Bit()))
	}
	return g
}

func TestGridGeometry(t *testing.T) {
	g := NewGrid(8, 4)
	tile := g.TileXY(3, 2)
	assert.Equal(t, uint32(3), g.TileX(tile))
	assert.Equal(t, uint32(2), g.TileY(tile))
	assert.Equal(t, g.TileXY(2, 2), g.Neighbour(tile, rail.DiagNE))
	assert.Equal(t, g.TileXY(3, 3), g.Neighbour(tile, rail.DiagSE))
	assert.Equal(t, InvalidTile, g.Neighbour(g.TileXY(0, 0), rail.DiagNE))
	assert.Equal(t, InvalidTile, g.Neighbour(g.TileXY(7, 3), rail.DiagSE))
	assert.Equal(t, tile, g.TileFromXY(3*16+5, 2*16+15))
	assert.Equal(t, InvalidTile, g.TileFromXY(-1, 0))
	assert.Equal(t, uint(4), g.Distance(g.TileXY(0, 0), g.TileXY(3, 1)))
}

func TestTrackStatusPerKind(t *testing.T) {
	g := line(t, 6)
	rt := g.TileXY(2, 1)
	require.NoError(t, g.SetSignal(rt, rail.TrackdirXSW))
	st := g.TrackStatus(rt)
	assert.Equal(t, rail.TrackdirXNE.Bit()|rail.TrackdirXSW.Bit(), st.Trackdirs)
	assert.Zero(t, st.Red, "new signals show green")

	g.Tile(rt).Green = 0
	assert.Equal(t, rail.TrackdirXSW.Bit(), g.TrackStatus(rt).Red)
	pair := g.SignalState(rt, rail.TrackdirXSW)
	assert.Equal(t, AspectRed, pair.Along)
	assert.Equal(t, AspectNone, pair.Against)
	pair = g.SignalState(rt, rail.TrackdirXNE)
	assert.Equal(t, AspectNone, pair.Along)
	assert.Equal(t, AspectRed, pair.Against)

	_, err := g.SetDepot(g.TileXY(0, 1), 1, rail.RailNormal, rail.DiagSW)
	require.NoError(t, err)
	assert.Equal(t, rail.TrackX.Bit().Trackdirs(), g.TrackStatus(g.TileXY(0, 1)).Trackdirs)
	d, ok := g.DepotAt(g.TileXY(0, 1))
	require.True(t, ok)
	assert.Equal(t, g.TileXY(0, 1), d.Tile)

	require.NoError(t, g.SetTunnel(g.TileXY(3, 1), g.TileXY(5, 1), 1, rail.RailNormal, rail.DiagSW))
	assert.Equal(t, rail.TrackdirXSW.Bit(), g.TrackStatus(g.TileXY(3, 1)).Trackdirs)
	assert.Equal(t, rail.TrackdirXNE.Bit(), g.TrackStatus(g.TileXY(5, 1)).Trackdirs)
	into, far := g.TunnelPortal(g.TileXY(5, 1))
	assert.Equal(t, rail.DiagNE, into)
	assert.Equal(t, g.TileXY(3, 1), far)

	assert.Empty(t, g.TrackStatus(g.TileXY(0, 0)).Trackdirs)
	assert.Error(t, g.SetSignal(g.TileXY(0, 0), rail.TrackdirXNE))
}

func TestSlopeZ(t *testing.T) {
	g := NewGrid(4, 4)
	tile := g.TileXY(1, 1)
	require.NoError(t, g.SetSlope(tile, 1, rail.DiagSW))
	x, y := g.TileOrigin(tile)
	assert.Equal(t, uint8(8), g.SlopeZ(x, y+8))
	assert.Equal(t, uint8(15), g.SlopeZ(x+15, y+8))
	assert.Equal(t, uint8(0), g.SlopeZ(0, 0))
}

func TestBlockManagerSetsEntrySignal(t *testing.T) {
	g := line(t, 10)
	entry, exit := g.TileXY(3, 1), g.TileXY(7, 1)
	require.NoError(t, g.SetSignal(entry, rail.TrackdirXSW))
	require.NoError(t, g.SetSignal(exit, rail.TrackdirXSW))

	occ := fakeOccupancy{g.TileXY(5, 1): rail.TrackX.Bit()}
	m := NewBlockManager(g, occ)

	busy := m.UpdateSignalsOnSegment(entry, rail.DirSW)
	assert.True(t, busy)
	assert.Equal(t, AspectRed, g.SignalState(entry, rail.TrackdirXSW).Along)
	// the exit signal guards the next block and is left alone
	assert.Equal(t, AspectGreen, g.SignalState(exit, rail.TrackdirXSW).Along)

	delete(occ, g.TileXY(5, 1))
	busy = m.UpdateSignalsOnSegment(entry, rail.DirSW)
	assert.False(t, busy)
	assert.Equal(t, AspectGreen, g.SignalState(entry, rail.TrackdirXSW).Along)
	assert.Equal(t, uint64(2), m.Updates())
}

func TestBlockManagerCountsSignalTileOccupancy(t *testing.T) {
	g := line(t, 10)
	entry := g.TileXY(3, 1)
	require.NoError(t, g.SetSignal(entry, rail.TrackdirXSW))
	occ := fakeOccupancy{entry: rail.TrackX.Bit()}
	m := NewBlockManager(g, occ)

	assert.True(t, m.UpdateSignalsOnSegment(entry, rail.DirSW))
	assert.Equal(t, AspectRed, g.SignalState(entry, rail.TrackdirXSW).Along)
}

func TestBlockManagerJunctionAndOwner(t *testing.T) {
	g := NewGrid(8, 8)
	for x := uint32(0); x < 8; x++ {
		require.NoError(t, g.SetRail(g.TileXY(x, 1), 1, rail.RailNormal, rail.TrackX.Bit()))
	}
	// a branch leaving the main line at x=4 towards SE
	require.NoError(t, g.SetRail(g.TileXY(4, 1), 1, rail.RailNormal, rail.TrackX.Bit()|rail.TrackRight.Bit()))
	for y := uint32(2); y < 6; y++ {
		require.NoError(t, g.SetRail(g.TileXY(4, y), 1, rail.RailNormal, rail.TrackY.Bit()))
	}
	require.NoError(t, g.SetSignal(g.TileXY(2, 1), rail.TrackdirXSW))
	// foreign track does not belong to the block
	require.NoError(t, g.SetRail(g.TileXY(6, 1), 2, rail.RailNormal, rail.TrackX.Bit()))

	occ := fakeOccupancy{g.TileXY(4, 4): rail.TrackY.Bit(), g.TileXY(7, 1): rail.TrackX.Bit()}
	m := NewBlockManager(g, occ)
	assert.True(t, m.UpdateSignalsOnSegment(g.TileXY(2, 1), rail.DirSW), "branch occupancy reaches the block")

	delete(occ, g.TileXY(4, 4))
	assert.False(t, m.UpdateSignalsOnSegment(g.TileXY(2, 1), rail.DirSW), "foreign tile blocks the flood")
}

func TestBlockManagerDepotAndTunnel(t *testing.T) {
	g := line(t, 10)
	depot := g.TileXY(0, 1)
	_, err := g.SetDepot(depot, 1, rail.RailNormal, rail.DiagSW)
	require.NoError(t, err)
	require.NoError(t, g.SetTunnel(g.TileXY(3, 1), g.TileXY(6, 1), 1, rail.RailNormal, rail.DiagSW))
	require.NoError(t, g.SetSignal(g.TileXY(8, 1), rail.TrackdirXNE))

	occ := fakeOccupancy{}
	m := NewBlockManager(g, occ)
	assert.False(t, m.UpdateSignalsOnSegment(depot, rail.DirSW))

	// a vehicle inside the tunnel is seen through its portal
	occ[g.TileXY(3, 1)] = rail.TrackBitsTunnel
	assert.True(t, m.UpdateSignalsOnSegment(depot, rail.DirSW))
	assert.Equal(t, AspectRed, g.SignalState(g.TileXY(8, 1), rail.TrackdirXNE).Along)

	delete(occ, g.TileXY(3, 1))
	m.SetSignalsOnBothDir(depot, rail.TrackX)
	assert.Equal(t, AspectGreen, g.SignalState(g.TileXY(8, 1), rail.TrackdirXNE).Along)
}

func TestModifyStationRating(t *testing.T) {
	g := NewGrid(40, 4)
	require.NoError(t, g.SetStation(g.TileXY(1, 1), 1, rail.RailNormal, 7, rail.TrackX))
	require.NoError(t, g.SetStation(g.TileXY(39, 1), 2, rail.RailNormal, 8, rail.TrackX))
	g.ModifyStationRating(g.TileXY(2, 1), 1, -160, 30)
	s, ok := g.Station(7)
	require.True(t, ok)
	assert.Equal(t, 15, s.Rating)
	other, _ := g.Station(8)
	assert.Equal(t, 175, other.Rating)
	assert.Len(t, g.Stations(), 2)
}
