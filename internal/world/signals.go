package world

import "github.com/trackworks/railcore/internal/rail"

// Occupancy reports whether a rail vehicle outside a depot occupies one of
// the given tracks of tile t. Vehicles inside a tunnel occupy its portals.
type Occupancy interface {
	Occupied(t TileIndex, tracks rail.TrackBits) bool
}

// SignalBlockManager recomputes signal aspects of a block after its
// occupancy changed.
type SignalBlockManager interface {
	// UpdateSignalsOnSegment floods the block leaving t towards heading dir,
	// sets every signal guarding entry into it and reports whether the block
	// is occupied.
	UpdateSignalsOnSegment(t TileIndex, dir rail.Direction) bool
	// SetSignalsOnBothDir updates the blocks at both ends of track on t.
	SetSignalsOnBothDir(t TileIndex, track rail.Track)
}

// BlockManager is the grid's SignalBlockManager.
type BlockManager struct {
	grid *Grid
	occ  Occupancy

	updates uint64
}

var _ SignalBlockManager = (*BlockManager)(nil)

// NewBlockManager creates a block manager over g. occ may be set later
// with SetOccupancy but must be present before the first update.
func NewBlockManager(g *Grid, occ Occupancy) *BlockManager {
	return &BlockManager{grid: g, occ: occ}
}

// SetOccupancy replaces the vehicle occupancy source.
func (m *BlockManager) SetOccupancy(occ Occupancy) { m.occ = occ }

// Updates returns how many segments were recomputed.
func (m *BlockManager) Updates() uint64 { return m.updates }

type blockNode struct {
	tile  TileIndex
	track rail.Track
}

type blockStep struct {
	from TileIndex
	edge rail.DiagDir
}

type signalRef struct {
	tile TileIndex
	td   rail.Trackdir
}

type segment struct {
	owner   Owner
	busy    bool
	visited map[blockNode]struct{}
	entries []signalRef
}

func (m *BlockManager) UpdateSignalsOnSegment(t TileIndex, dir rail.Direction) bool {
	origin := m.grid.Tile(t)
	if origin == nil {
		return false
	}
	m.updates++

	seg := &segment{owner: origin.Owner, visited: make(map[blockNode]struct{})}
	m.explore(seg, blockStep{from: t, edge: dir.Diag()})

	for _, s := range seg.entries {
		tile := &m.grid.tiles[s.tile]
		if seg.busy {
			tile.Green &^= s.td.Bit()
		} else {
			tile.Green |= s.td.Bit()
		}
	}
	return seg.busy
}

func (m *BlockManager) SetSignalsOnBothDir(t TileIndex, track rail.Track) {
	if track > rail.TrackRight {
		return
	}
	if exit := m.grid.DepotExit(t); exit != rail.DiagInvalid {
		m.UpdateSignalsOnSegment(t, exit.Direction())
		return
	}
	td := rail.Trackdir(track)
	m.UpdateSignalsOnSegment(t, td.Exit().Direction())
	m.UpdateSignalsOnSegment(t, td.Reverse().Exit().Direction())
}

func (m *BlockManager) explore(seg *segment, start blockStep) {
	stack := []blockStep{start}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := m.grid.Neighbour(s.from, s.edge)
		if n == InvalidTile {
			continue
		}
		tile := &m.grid.tiles[n]
		if !tile.Kind.IsRailBearing() || tile.Owner != seg.owner {
			continue
		}

		switch tile.Kind {
		case TileDepot:
			// entered from the exit side only; the depot closes the block
			if s.edge == tile.Dir.Reverse() {
				seg.visited[blockNode{n, rail.AxisTrack(tile.Dir)}] = struct{}{}
			}
			continue

		case TileTunnel:
			if s.edge != tile.Dir {
				continue
			}
			k := blockNode{n, rail.AxisTrack(tile.Dir)}
			if _, ok := seg.visited[k]; ok {
				continue
			}
			seg.visited[k] = struct{}{}
			seg.visited[blockNode{tile.TunnelEnd, k.track}] = struct{}{}
			tracks := k.track.Bit() | rail.TrackBitsTunnel
			if m.occ.Occupied(n, tracks) || m.occ.Occupied(tile.TunnelEnd, tracks) {
				seg.busy = true
			}
			stack = append(stack,
				blockStep{from: tile.TunnelEnd, edge: s.edge},
				blockStep{from: n, edge: s.edge.Reverse()})
			continue
		}

		tds := m.grid.TrackStatus(n).Trackdirs & rail.Reachable(s.edge)
		for ; tds != 0; tds = tds.WithoutFirst() {
			td := tds.First()
			k := blockNode{n, td.Track()}
			if _, ok := seg.visited[k]; ok {
				continue
			}
			seg.visited[k] = struct{}{}

			if m.occ.Occupied(n, td.Track().Bit()) {
				seg.busy = true
			}
			if tile.Kind == TileRail && tile.Signals&(td.Bit()|td.Reverse().Bit()) != 0 {
				if tile.Signals.Has(td.Reverse()) {
					seg.entries = append(seg.entries, signalRef{tile: n, td: td.Reverse()})
				}
				continue
			}
			stack = append(stack,
				blockStep{from: n, edge: td.Exit()},
				blockStep{from: n, edge: td.Reverse().Exit()})
		}
	}
}
