package pathfind

import (
	"fmt"
	"math/rand/v2"

	"github.com/trackworks/railcore/internal/consist"
	"github.com/trackworks/railcore/internal/rail"
	"github.com/trackworks/railcore/internal/world"
)

// Kind names a pathfinding strategy as used in configuration.
type Kind string

const (
	KindLegacy   Kind = "legacy"
	KindDirected Kind = "new"
	KindNetwork  Kind = "npf"
)

// ParseKind validates a configured strategy name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindLegacy, KindDirected, KindNetwork:
		return k, nil
	case "":
		return KindLegacy, nil
	}
	return "", fmt.Errorf("unknown pathfinder %q", s)
}

// DepotResult describes the closest reachable depot.
type DepotResult struct {
	Found  bool
	Tile   world.TileIndex
	Length uint
	// Reverse is set when the train has to turn around to get there.
	Reverse bool
}

// Strategy is a track selection algorithm.
type Strategy interface {
	// ChooseTrack picks one of bits for head about to enter tile over
	// edge enter.
	ChooseTrack(head *consist.Vehicle, tile world.TileIndex, enter rail.DiagDir, bits rail.TrackBits) rail.Track
	// CheckReverse reports whether head reaches its destination sooner
	// by turning around.
	CheckReverse(head *consist.Vehicle) bool
	// FindDepot returns the closest depot owned by head's owner.
	FindDepot(head *consist.Vehicle) DepotResult
}

// Options tune the strategies.
type Options struct {
	// SearchLimit caps the nodes a single search may visit.
	SearchLimit int
	// Forbid90 stops the network strategy from taking right angle turns.
	Forbid90 bool
	// LineReverseMode other than zero disables reversing in front of
	// stations.
	LineReverseMode int
}

// Target is where a head is heading: a station when it has a station
// order, otherwise a plain tile.
type Target struct {
	Tile    world.TileIndex
	Station world.StationID
}

// TargetOf reads the destination of head from its current order.
func TargetOf(head *consist.Vehicle) Target {
	t := Target{Tile: head.DestTile, Station: world.InvalidStation}
	if head.CurrentOrder.Is(consist.OrderGotoStation) {
		t.Station = head.CurrentOrder.Station
	}
	return t
}

// Valid reports whether there is anywhere to go.
func (t Target) Valid() bool { return t.Tile != world.InvalidTile }

// Reached reports whether tile completes the trip. Station targets match
// any platform tile of the station since Tile only approximates it.
func (t Target) Reached(q world.TrackQuery, tile world.TileIndex) bool {
	if t.Station == world.InvalidStation {
		return tile == t.Tile
	}
	return q.StationAt(tile) == t.Station
}

// Adapter is the single entry point of the movement code into track
// selection. Every ChooseTrack answer is a member of the candidate set.
type Adapter struct {
	Strategy Strategy

	kind            Kind
	forbid90        bool
	lineReverseMode int
}

// New builds the adapter for the strategy of the given kind over grid.
// rng drives the random tie-breaks of the tree searches.
func New(kind Kind, grid world.TrackQuery, rng *rand.Rand, opts Options) (*Adapter, error) {
	e := env{grid: grid, rand: rng, limit: opts.SearchLimit}
	a := &Adapter{kind: kind, forbid90: opts.Forbid90, lineReverseMode: opts.LineReverseMode}
	switch kind {
	case KindLegacy, "":
		a.kind = KindLegacy
		a.Strategy = &Legacy{treeSearch{e}}
	case KindDirected:
		a.Strategy = &Directed{treeSearch{e}}
	case KindNetwork:
		a.Strategy = &Network{env: e, Forbid90: opts.Forbid90, Costs: DefaultCosts()}
	default:
		return nil, fmt.Errorf("unknown pathfinder %q", kind)
	}
	return a, nil
}

// Kind returns the configured strategy kind.
func (a *Adapter) Kind() Kind { return a.kind }

// Forbids90 reports whether heads must not take right angle turns.
func (a *Adapter) Forbids90() bool { return a.kind == KindNetwork && a.forbid90 }

// ChooseTrack picks the track head takes on tile out of bits.
func (a *Adapter) ChooseTrack(head *consist.Vehicle, tile world.TileIndex, enter rail.DiagDir, bits rail.TrackBits) rail.Track {
	bits &= rail.TrackBitsAll
	if bits.Single() || a.Strategy == nil {
		return bits.First()
	}
	t := a.Strategy.ChooseTrack(head, tile, enter, bits)
	if t > rail.TrackRight || !bits.Has(t) {
		return bits.First()
	}
	return t
}

// CheckReverse reports whether head should turn around. Only heads on
// open track running along a tile axis are considered.
func (a *Adapter) CheckReverse(head *consist.Vehicle) bool {
	if a.lineReverseMode != 0 || head.Track.IsSentinel() || !head.Direction.IsAxial() || a.Strategy == nil {
		return false
	}
	return a.Strategy.CheckReverse(head)
}

// FindClosestDepot returns the nearest depot head can reach.
func (a *Adapter) FindClosestDepot(head *consist.Vehicle) DepotResult {
	if a.Strategy == nil {
		return DepotResult{Tile: world.InvalidTile}
	}
	return a.Strategy.FindDepot(head)
}

// WagonFollow returns the pieces of bits a trailing unit at (x, y) may
// take to follow prev.
func WagonFollow(prev *consist.Vehicle, x, y int32, bits rail.TrackBits) rail.TrackBits {
	return rail.FollowTracks(rail.DirectionTowards(x, y, prev.X, prev.Y)) & bits
}

type env struct {
	grid  world.TrackQuery
	rand  *rand.Rand
	limit int
}

func (e env) follower(head *consist.Vehicle, rule SignalRule) *Follower {
	return &Follower{Grid: e.grid, Owner: head.Owner, RailType: head.RailType, Limit: e.limit, Rule: rule}
}

// headTrackdir returns the directed track v is travelling.
func headTrackdir(v *consist.Vehicle) rail.Trackdir {
	if v.Track.IsSentinel() {
		return rail.TrackdirInvalid
	}
	return rail.TrackdirFromHeading(v.Track.First(), v.Direction)
}

// searchTile returns the tile searches start from: the far portal for a
// unit inside a tunnel heading out of it.
func searchTile(q world.TrackQuery, v *consist.Vehicle) world.TileIndex {
	if v.InTunnel() {
		if into, far := q.TunnelPortal(v.Tile); into == v.Direction.Diag() && far != world.InvalidTile {
			return far
		}
	}
	return v.Tile
}
