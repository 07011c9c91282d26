// Package pathfind chooses tracks for trains at junctions, decides whether
// a train should turn around to reach its destination and finds the
// closest depot.
package pathfind

import (
	"github.com/trackworks/railcore/internal/rail"
	"github.com/trackworks/railcore/internal/world"
)

// noDist marks a distance that has not been found.
const noDist = ^uint(0)

// Node is a directed track reached by a search.
type Node struct {
	Tile     world.TileIndex
	Trackdir rail.Trackdir
	// Length counts the tiles travelled from the start.
	Length uint
	// First is the directed track taken on the first tile after the start.
	First rail.Trackdir
	// PassedGreen is set once the path went through a green signal.
	PassedGreen bool
}

// Visitor inspects a node and reports whether the search should stop
// following this branch.
type Visitor func(n Node) bool

// SignalRule selects which signals end a search branch.
type SignalRule uint8

const (
	// RuleOneWay stops only in front of one-way signals facing away.
	RuleOneWay SignalRule = iota
	// RuleTwoWay also stops at red two-way signals unless the path already
	// passed a green one.
	RuleTwoWay
)

// Follower walks the track network breadth first from a tile edge,
// staying on track of one owner and rail type.
type Follower struct {
	Grid     world.TrackQuery
	Owner    world.Owner
	RailType rail.RailType
	// Limit caps the number of visited nodes; zero means unlimited.
	Limit int
	Rule  SignalRule
}

type step struct {
	from world.TileIndex
	edge rail.DiagDir
	at   Node
}

type nodeKey struct {
	tile world.TileIndex
	td   rail.Trackdir
}

// Search visits the network beyond tile from, leaving it over edge. It
// returns the number of visited nodes.
func (f *Follower) Search(from world.TileIndex, edge rail.DiagDir, visit Visitor) int {
	queue := []step{{from: from, edge: edge, at: Node{First: rail.TrackdirInvalid}}}
	seen := make(map[nodeKey]struct{})
	visited := 0

	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		for _, n := range f.enter(s) {
			k := nodeKey{n.Tile, n.Trackdir}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			if f.Limit > 0 && visited >= f.Limit {
				return visited
			}
			visited++

			if f.blocked(&n) || visit(n) {
				continue
			}
			if next, ok := f.leave(n); ok {
				queue = append(queue, next)
			}
		}
	}
	return visited
}

// enter returns the directed tracks usable on the tile across s.edge.
func (f *Follower) enter(s step) []Node {
	n := f.Grid.Neighbour(s.from, s.edge)
	if n == world.InvalidTile || !f.usable(n) {
		return nil
	}
	mk := func(td rail.Trackdir) Node {
		node := Node{Tile: n, Trackdir: td, Length: s.at.Length + 1, First: s.at.First, PassedGreen: s.at.PassedGreen}
		if node.First == rail.TrackdirInvalid {
			node.First = td
		}
		return node
	}

	switch f.Grid.TileKind(n) {
	case world.TileDepot:
		if f.Grid.DepotExit(n) != s.edge.Reverse() {
			return nil
		}
		return []Node{mk(rail.TrackdirFromEntry(rail.AxisTrack(s.edge), s.edge))}
	case world.TileTunnel:
		if into, _ := f.Grid.TunnelPortal(n); into != s.edge {
			return nil
		}
		return []Node{mk(rail.TrackdirFromEntry(rail.AxisTrack(s.edge), s.edge))}
	}

	var out []Node
	for tds := f.Grid.TrackStatus(n).Trackdirs & rail.Reachable(s.edge); tds != 0; tds = tds.WithoutFirst() {
		out = append(out, mk(tds.First()))
	}
	return out
}

// leave returns the step out of n. Depots end every path; tunnels are
// crossed in one step to the far portal.
func (f *Follower) leave(n Node) (step, bool) {
	switch f.Grid.TileKind(n.Tile) {
	case world.TileDepot:
		return step{}, false
	case world.TileTunnel:
		into, far := f.Grid.TunnelPortal(n.Tile)
		if n.Trackdir.Exit() == into && far != world.InvalidTile {
			at := n
			at.Length += f.Grid.Distance(n.Tile, far)
			return step{from: far, edge: into, at: at}, true
		}
	}
	return step{from: n.Tile, edge: n.Trackdir.Exit(), at: n}, true
}

func (f *Follower) usable(t world.TileIndex) bool {
	return f.Grid.TileKind(t).IsRailBearing() &&
		f.Grid.IsOwnedBy(t, f.Owner) &&
		f.Grid.RailTypeAt(t) == f.RailType
}

// blocked applies the signal rules to n and records a passed green
// signal on it.
func (f *Follower) blocked(n *Node) bool {
	if !f.Grid.HasSignals(n.Tile) {
		return false
	}
	sp := f.Grid.SignalState(n.Tile, n.Trackdir)
	switch {
	case sp.Along == world.AspectNone:
		return sp.Against != world.AspectNone
	case sp.Along == world.AspectGreen:
		n.PassedGreen = true
	case f.Rule == RuleTwoWay && sp.Against != world.AspectNone && !n.PassedGreen:
		return true
	}
	return false
}
