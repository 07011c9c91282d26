package pathfind

import (
	"container/heap"

	"github.com/trackworks/railcore/internal/consist"
	"github.com/trackworks/railcore/internal/rail"
	"github.com/trackworks/railcore/internal/world"
)

// Costs weighs the parts of a path for the network strategy.
type Costs struct {
	Tile      uint `mapstructure:"tile" json:"tile"`
	Curve     uint `mapstructure:"curve" json:"curve"`
	RedSignal uint `mapstructure:"redSignal" json:"redSignal"`
	Station   uint `mapstructure:"station" json:"station"`
}

// DefaultCosts returns the standard path weights.
func DefaultCosts() Costs {
	return Costs{Tile: 100, Curve: 1, RedSignal: 1000, Station: 100}
}

// Network runs a cheapest path search over the whole network from both
// ends of the train.
type Network struct {
	env
	Costs    Costs
	Forbid90 bool
}

type origin struct {
	from    world.TileIndex
	edge    rail.DiagDir
	prev    rail.Trackdir
	mask    rail.TrackBits
	reverse bool
}

type route struct {
	found   bool
	first   rail.Trackdir
	reverse bool
	tile    world.TileIndex
	cost    uint
}

func (n *Network) ChooseTrack(head *consist.Vehicle, tile world.TileIndex, enter rail.DiagDir, bits rail.TrackBits) rail.Track {
	target := TargetOf(head)
	prev := n.grid.Neighbour(tile, enter.Reverse())
	if !target.Valid() || prev == world.InvalidTile {
		return bits.First()
	}
	r := n.search(head, []origin{{from: prev, edge: enter, prev: headTrackdir(head), mask: bits}},
		func(t world.TileIndex) bool { return target.Reached(n.grid, t) }, target.Tile)
	if r.first == rail.TrackdirInvalid {
		return bits.First()
	}
	return r.first.Track()
}

func (n *Network) CheckReverse(head *consist.Vehicle) bool {
	target := TargetOf(head)
	if !target.Valid() {
		return false
	}
	r := n.search(head, n.twoWay(head), func(t world.TileIndex) bool { return target.Reached(n.grid, t) }, target.Tile)
	return r.found && r.reverse
}

func (n *Network) FindDepot(head *consist.Vehicle) DepotResult {
	if n.grid.TileKind(head.Tile) == world.TileDepot {
		return DepotResult{Found: true, Tile: head.Tile}
	}
	r := n.search(head, n.twoWay(head), func(t world.TileIndex) bool {
		return n.grid.TileKind(t) == world.TileDepot
	}, world.InvalidTile)
	if !r.found {
		return DepotResult{Tile: world.InvalidTile}
	}
	length := r.cost
	if n.Costs.Tile > 0 {
		length /= n.Costs.Tile
	}
	return DepotResult{Found: true, Tile: r.tile, Length: length, Reverse: r.reverse}
}

// twoWay starts a search ahead of the head and one behind the last unit.
func (n *Network) twoWay(head *consist.Vehicle) []origin {
	td := headTrackdir(head)
	out := []origin{{
		from: searchTile(n.grid, head),
		edge: rail.ExitDiag(head.Direction, head.Track),
		prev: td,
		mask: rail.TrackBitsAll,
	}}
	last := head.Last()
	if ltd := headTrackdir(last); ltd != rail.TrackdirInvalid {
		back := ltd.Reverse()
		out = append(out, origin{from: last.Tile, edge: back.Exit(), prev: back, mask: rail.TrackBitsAll, reverse: true})
	}
	return out
}

// search returns the cheapest route to a tile satisfying goal. When none
// is reachable it reports the first step towards the node closest to
// near.
func (n *Network) search(head *consist.Vehicle, origins []origin, goal func(world.TileIndex) bool, near world.TileIndex) route {
	f := n.follower(head, RuleOneWay)
	pq := &nodeQueue{}

	for _, o := range origins {
		for _, nd := range f.enter(step{from: o.from, edge: o.edge, at: Node{First: rail.TrackdirInvalid}}) {
			if !o.mask.Has(nd.Trackdir.Track()) || n.forbidden(o.prev, nd.Trackdir) {
				continue
			}
			heap.Push(pq, &queued{node: nd, cost: n.cost(o.prev, nd), reverse: o.reverse})
		}
	}

	closed := make(map[nodeKey]struct{})
	closest := route{first: rail.TrackdirInvalid, tile: world.InvalidTile}
	bird := noDist
	visited := 0

	for pq.Len() > 0 {
		it := heap.Pop(pq).(*queued)
		k := nodeKey{it.node.Tile, it.node.Trackdir}
		if _, ok := closed[k]; ok {
			continue
		}
		closed[k] = struct{}{}
		if n.limit > 0 && visited >= n.limit {
			break
		}
		visited++

		if f.blocked(&it.node) {
			continue
		}
		if goal(it.node.Tile) {
			return route{found: true, first: it.node.First, reverse: it.reverse, tile: it.node.Tile, cost: it.cost}
		}
		if near != world.InvalidTile {
			if d := n.grid.Distance(it.node.Tile, near); d < bird {
				bird = d
				closest = route{first: it.node.First, reverse: it.reverse, tile: it.node.Tile, cost: it.cost}
			}
		}

		s, ok := f.leave(it.node)
		if !ok {
			continue
		}
		for _, nd := range f.enter(s) {
			if n.forbidden(it.node.Trackdir, nd.Trackdir) {
				continue
			}
			if _, ok := closed[nodeKey{nd.Tile, nd.Trackdir}]; ok {
				continue
			}
			cost := it.cost + n.cost(it.node.Trackdir, nd)
			if s.from != it.node.Tile {
				// tunnel
				cost += n.grid.Distance(it.node.Tile, s.from) * n.Costs.Tile
			}
			heap.Push(pq, &queued{node: nd, cost: cost, reverse: it.reverse})
		}
	}
	return closest
}

func (n *Network) forbidden(prev, next rail.Trackdir) bool {
	return n.Forbid90 && prev != rail.TrackdirInvalid && rail.CrossingTracks(prev.Track()).Has(next.Track())
}

func (n *Network) cost(prev rail.Trackdir, nd Node) uint {
	c := n.Costs.Tile
	if prev != rail.TrackdirInvalid && prev.Heading() != nd.Trackdir.Heading() {
		c += n.Costs.Curve
	}
	if n.grid.TrackStatus(nd.Tile).Red.Has(nd.Trackdir) {
		c += n.Costs.RedSignal
	}
	if n.grid.TileKind(nd.Tile) == world.TileStation {
		c += n.Costs.Station
	}
	return c
}

type queued struct {
	node    Node
	cost    uint
	reverse bool
}

// nodeQueue orders queued nodes by cost, then by insertion for equal
// costs so searches stay deterministic.
type nodeQueue struct {
	items []*queued
	seq   []uint64
	next  uint64
}

func (q *nodeQueue) Len() int { return len(q.items) }

func (q *nodeQueue) Less(i, j int) bool {
	if q.items[i].cost != q.items[j].cost {
		return q.items[i].cost < q.items[j].cost
	}
	return q.seq[i] < q.seq[j]
}

func (q *nodeQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
	q.seq[i], q.seq[j] = q.seq[j], q.seq[i]
}

func (q *nodeQueue) Push(x any) {
	q.items = append(q.items, x.(*queued))
	q.seq = append(q.seq, q.next)
	q.next++
}

func (q *nodeQueue) Pop() any {
	n := len(q.items) - 1
	it := q.items[n]
	q.items = q.items[:n]
	q.seq = q.seq[:n]
	return it
}
