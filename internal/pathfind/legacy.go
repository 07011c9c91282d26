package pathfind

import (
	"github.com/trackworks/railcore/internal/consist"
	"github.com/trackworks/railcore/internal/rail"
	"github.com/trackworks/railcore/internal/world"
)

// pickTrackTable gives the heading group (direction & 3) that counts as
// running straight on for each candidate.
var pickTrackTable = [6]rail.Direction{1, 3, 2, 2, 0, 0}

// searchResult is the outcome of one destination search.
type searchResult struct {
	// bird is the smallest Manhattan distance to the target seen, zero once
	// it was reached.
	bird uint
	// track is the path length to the target, noDist when not reached.
	track uint
	first rail.Trackdir
}

func (r searchResult) reached() bool { return r.track != noDist }

// compareResults returns 1 when a is the better path, -1 when b is and 0
// when they are equal. Reaching the target beats not reaching it; then
// the shorter track wins, then the smaller remaining distance.
func compareResults(a, b searchResult) int {
	switch {
	case a.reached() && !b.reached():
		return 1
	case !a.reached() && b.reached():
		return -1
	case a.reached():
		return cmpUint(b.track, a.track)
	}
	return cmpUint(b.bird, a.bird)
}

func cmpUint(a, b uint) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// treeSearch holds the follower based searches shared by the legacy and
// directed strategies.
type treeSearch struct {
	env
}

// destination runs one search for target from tile over edge.
func (t treeSearch) destination(head *consist.Vehicle, tile world.TileIndex, edge rail.DiagDir, target Target) searchResult {
	res := searchResult{bird: noDist, track: noDist, first: rail.TrackdirInvalid}
	if !target.Valid() {
		return res
	}
	t.follower(head, RuleTwoWay).Search(tile, edge, func(n Node) bool {
		if target.Reached(t.grid, n.Tile) {
			res.bird = 0
			if n.Length < res.track {
				res.track = n.Length
				res.first = n.First
			}
			return true
		}
		if res.reached() {
			return n.Length >= res.track
		}
		if d := t.grid.Distance(n.Tile, target.Tile); d < res.bird {
			res.bird = d
			res.first = n.First
		}
		return false
	})
	return res
}

// keepBest settles a tie between candidate and best with a random roll
// biased towards whichever runs straight on for a train heading dir.
func (t treeSearch) keepBest(candidate, best int, dir rail.Direction) bool {
	r := 128
	if t.rand != nil {
		r = int(uint8(t.rand.Uint32()))
	}
	if pickTrackTable[candidate] == dir&3 {
		r += 80
	}
	if pickTrackTable[best] == dir&3 {
		r -= 80
	}
	return r <= 127
}

// CheckReverse compares searching ahead of the head with searching
// behind it.
func (t treeSearch) CheckReverse(head *consist.Vehicle) bool {
	target := TargetOf(head)
	ahead := rail.ExitDiag(head.Direction, head.Track)

	var best searchResult
	bestEdge, reverse, found := ahead, false, false
	for _, back := range []bool{false, true} {
		edge := ahead
		if back {
			edge = ahead.Reverse()
		}
		res := t.destination(head, head.Tile, edge, target)
		if found {
			c := compareResults(res, best)
			if c < 0 || (c == 0 && t.keepBest(int(edge), int(bestEdge), head.Direction)) {
				continue
			}
		}
		best, bestEdge, reverse, found = res, edge, back, true
	}
	return reverse
}

// FindDepot searches ahead first and only looks behind the train when
// nothing was found.
func (t treeSearch) FindDepot(head *consist.Vehicle) DepotResult {
	if t.grid.TileKind(head.Tile) == world.TileDepot {
		return DepotResult{Found: true, Tile: head.Tile}
	}
	tile := searchTile(t.grid, head)

	res := t.depot(head, tile, rail.ExitDiag(head.Direction, head.Track))
	if !res.Found {
		res = t.depot(head, tile, rail.ExitDiag(head.Direction.Reverse(), head.Track))
		res.Reverse = true
	}
	return res
}

func (t treeSearch) depot(head *consist.Vehicle, tile world.TileIndex, edge rail.DiagDir) DepotResult {
	best := DepotResult{Tile: world.InvalidTile, Length: noDist}
	t.follower(head, RuleOneWay).Search(tile, edge, func(n Node) bool {
		if t.grid.TileKind(n.Tile) == world.TileDepot {
			if n.Length < best.Length {
				best = DepotResult{Found: true, Tile: n.Tile, Length: n.Length}
			}
			return true
		}
		return n.Length >= best.Length
	})
	return best
}

// Legacy searches once per candidate track out of the junction tile and
// keeps the best outcome.
type Legacy struct {
	treeSearch
}

func (l *Legacy) ChooseTrack(head *consist.Vehicle, tile world.TileIndex, enter rail.DiagDir, bits rail.TrackBits) rail.Track {
	target := TargetOf(head)
	best := rail.TrackInvalid
	var bestRes searchResult

	for b := bits; b != 0; b = b.WithoutFirst() {
		cand := b.First()
		td := rail.TrackdirFromEntry(cand, enter)
		if td == rail.TrackdirInvalid {
			continue
		}
		res := l.destination(head, tile, td.Exit(), target)
		if best != rail.TrackInvalid {
			c := compareResults(res, bestRes)
			if c < 0 || (c == 0 && l.keepBest(int(cand), int(best), head.Direction)) {
				continue
			}
		}
		best, bestRes = cand, res
	}
	return best
}

// Directed runs a single search from the tile before the junction and
// takes the first track of the best path found.
type Directed struct {
	treeSearch
}

func (d *Directed) ChooseTrack(head *consist.Vehicle, tile world.TileIndex, enter rail.DiagDir, bits rail.TrackBits) rail.Track {
	prev := d.grid.Neighbour(tile, enter.Reverse())
	if prev == world.InvalidTile {
		return bits.First()
	}
	res := d.destination(head, prev, enter, TargetOf(head))
	if res.first == rail.TrackdirInvalid || !bits.Has(res.first.Track()) {
		return bits.First()
	}
	return res.first.Track()
}
