package world

import (
	"fmt"
	"maps"
	"slices"

	"github.com/trackworks/railcore/internal/rail"
)

// TrackQuery is the side of the grid consumed by the simulation core.
// Crossing lights and station ratings are the only tile state the core
// writes directly; signal aspects change only through a SignalBlockManager.
type TrackQuery interface {
	TileKind(t TileIndex) TileKind
	TrackStatus(t TileIndex) rail.TrackStatus
	SignalState(t TileIndex, td rail.Trackdir) SignalPair
	HasSignals(t TileIndex) bool
	IsOwnedBy(t TileIndex, o Owner) bool
	RailTypeAt(t TileIndex) rail.RailType
	Tracks(t TileIndex) rail.TrackBits

	SlopeZ(x, y int32) uint8
	Rise(t TileIndex) rail.DiagDir

	Neighbour(t TileIndex, d rail.DiagDir) TileIndex
	TileFromXY(x, y int32) TileIndex
	TileOrigin(t TileIndex) (x, y int32)
	Distance(a, b TileIndex) uint

	DepotExit(t TileIndex) rail.DiagDir
	DepotAt(t TileIndex) (*Depot, bool)
	Depot(id DepotID) (*Depot, bool)
	TunnelPortal(t TileIndex) (into rail.DiagDir, far TileIndex)
	StationAt(t TileIndex) StationID
	Station(id StationID) (*Station, bool)

	CrossingLit(t TileIndex) bool
	SetCrossingLit(t TileIndex, lit bool)
	ModifyStationRating(t TileIndex, owner Owner, delta, radius int)
}

// Grid is the in-memory tile map. It is not safe for concurrent use; the
// simulation owns it for the duration of a tick.
type Grid struct {
	width, height uint32
	tiles         []Tile

	stations    map[StationID]*Station
	depots      map[DepotID]*Depot
	nextDepotID DepotID
}

var _ TrackQuery = (*Grid)(nil)

// NewGrid creates an empty grid of the given size.
func NewGrid(width, height uint32) *Grid {
	g := &Grid{
		width:    width,
		height:   height,
		tiles:    make([]Tile, int(width)*int(height)),
		stations: make(map[StationID]*Station),
		depots:   make(map[DepotID]*Depot),
	}
	for i := range g.tiles {
		g.tiles[i].Rise = rail.DiagInvalid
		g.tiles[i].Station = InvalidStation
		g.tiles[i].TunnelEnd = InvalidTile
	}
	return g
}

func (g *Grid) Width() uint32  { return g.width }
func (g *Grid) Height() uint32 { return g.height }

// TileXY returns the index of tile (x, y).
func (g *Grid) TileXY(x, y uint32) TileIndex { return TileIndex(y*g.width + x) }

// TileX returns the column of t.
func (g *Grid) TileX(t TileIndex) uint32 { return uint32(t) % g.width }

// TileY returns the row of t.
func (g *Grid) TileY(t TileIndex) uint32 { return uint32(t) / g.width }

func (g *Grid) valid(t TileIndex) bool { return int(t) < len(g.tiles) }

// Tile returns the tile at t for direct inspection or editing.
func (g *Grid) Tile(t TileIndex) *Tile {
	if !g.valid(t) {
		return nil
	}
	return &g.tiles[t]
}

func (g *Grid) TileKind(t TileIndex) TileKind {
	if !g.valid(t) {
		return TileClear
	}
	return g.tiles[t].Kind
}

func (g *Grid) TrackStatus(t TileIndex) rail.TrackStatus {
	if !g.valid(t) {
		return rail.TrackStatus{}
	}
	tile := &g.tiles[t]
	switch tile.Kind {
	case TileRail:
		tds := tile.Tracks.Trackdirs()
		return rail.TrackStatus{Trackdirs: tds, Red: tile.Signals &^ tile.Green & tds}
	case TileStation, TileCrossing, TileDepot:
		return rail.TrackStatus{Trackdirs: tile.Tracks.Trackdirs()}
	case TileTunnel:
		td := rail.TrackdirFromEntry(rail.AxisTrack(tile.Dir), tile.Dir)
		return rail.TrackStatus{Trackdirs: td.Bit()}
	}
	return rail.TrackStatus{}
}

func (g *Grid) SignalState(t TileIndex, td rail.Trackdir) SignalPair {
	if !g.valid(t) || !td.IsValid() {
		return SignalPair{}
	}
	tile := &g.tiles[t]
	return SignalPair{Along: tile.aspect(td), Against: tile.aspect(td.Reverse())}
}

func (t *Tile) aspect(td rail.Trackdir) Aspect {
	switch {
	case !t.Signals.Has(td):
		return AspectNone
	case t.Green.Has(td):
		return AspectGreen
	}
	return AspectRed
}

func (g *Grid) HasSignals(t TileIndex) bool {
	return g.valid(t) && g.tiles[t].Kind == TileRail && g.tiles[t].HasSignals()
}

func (g *Grid) IsOwnedBy(t TileIndex, o Owner) bool {
	return g.valid(t) && g.tiles[t].Owner == o
}

func (g *Grid) RailTypeAt(t TileIndex) rail.RailType {
	if !g.valid(t) {
		return rail.RailNormal
	}
	return g.tiles[t].RailType
}

func (g *Grid) Tracks(t TileIndex) rail.TrackBits {
	if !g.valid(t) {
		return rail.TrackBitsNone
	}
	return g.tiles[t].Tracks
}

// SlopeZ returns the ground height under sub-tile position (x, y).
func (g *Grid) SlopeZ(x, y int32) uint8 {
	t := g.TileFromXY(x, y)
	if !g.valid(t) {
		return 0
	}
	tile := &g.tiles[t]
	z := int32(tile.Height) * 8
	fx, fy := x&0xF, y&0xF
	switch tile.Rise {
	case rail.DiagNE:
		z += (15 - fx) >> 1
	case rail.DiagSW:
		z += fx >> 1
	case rail.DiagNW:
		z += (15 - fy) >> 1
	case rail.DiagSE:
		z += fy >> 1
	}
	return uint8(z)
}

func (g *Grid) Rise(t TileIndex) rail.DiagDir {
	if !g.valid(t) {
		return rail.DiagInvalid
	}
	return g.tiles[t].Rise
}

// Neighbour returns the tile across edge d, InvalidTile off the map.
func (g *Grid) Neighbour(t TileIndex, d rail.DiagDir) TileIndex {
	if !g.valid(t) {
		return InvalidTile
	}
	dx, dy := d.Offset()
	x, y := int64(g.TileX(t))+int64(dx), int64(g.TileY(t))+int64(dy)
	if x < 0 || y < 0 || x >= int64(g.width) || y >= int64(g.height) {
		return InvalidTile
	}
	return g.TileXY(uint32(x), uint32(y))
}

// TileFromXY returns the tile containing sub-tile position (x, y).
func (g *Grid) TileFromXY(x, y int32) TileIndex {
	if x < 0 || y < 0 {
		return InvalidTile
	}
	tx, ty := uint32(x)>>4, uint32(y)>>4
	if tx >= g.width || ty >= g.height {
		return InvalidTile
	}
	return g.TileXY(tx, ty)
}

// TileOrigin returns the sub-tile position of the tile's north corner.
func (g *Grid) TileOrigin(t TileIndex) (x, y int32) {
	return int32(g.TileX(t)) * 16, int32(g.TileY(t)) * 16
}

// Distance is the Manhattan distance between two tiles.
func (g *Grid) Distance(a, b TileIndex) uint {
	return absDiff(g.TileX(a), g.TileX(b)) + absDiff(g.TileY(a), g.TileY(b))
}

func absDiff(a, b uint32) uint {
	if a > b {
		return uint(a - b)
	}
	return uint(b - a)
}

func (g *Grid) DepotExit(t TileIndex) rail.DiagDir {
	if !g.valid(t) || g.tiles[t].Kind != TileDepot {
		return rail.DiagInvalid
	}
	return g.tiles[t].Dir
}

func (g *Grid) DepotAt(t TileIndex) (*Depot, bool) {
	if !g.valid(t) || g.tiles[t].Kind != TileDepot {
		return nil, false
	}
	return g.Depot(g.tiles[t].Depot)
}

func (g *Grid) Depot(id DepotID) (*Depot, bool) {
	d, ok := g.depots[id]
	return d, ok
}

func (g *Grid) TunnelPortal(t TileIndex) (rail.DiagDir, TileIndex) {
	if !g.valid(t) || g.tiles[t].Kind != TileTunnel {
		return rail.DiagInvalid, InvalidTile
	}
	return g.tiles[t].Dir, g.tiles[t].TunnelEnd
}

func (g *Grid) StationAt(t TileIndex) StationID {
	if !g.valid(t) || g.tiles[t].Kind != TileStation {
		return InvalidStation
	}
	return g.tiles[t].Station
}

func (g *Grid) Station(id StationID) (*Station, bool) {
	s, ok := g.stations[id]
	return s, ok
}

// Stations returns every registered station.
func (g *Grid) Stations() []*Station {
	out := make([]*Station, 0, len(g.stations))
	for _, id := range slices.Sorted(maps.Keys(g.stations)) {
		out = append(out, g.stations[id])
	}
	return out
}

func (g *Grid) CrossingLit(t TileIndex) bool {
	return g.valid(t) && g.tiles[t].Kind == TileCrossing && g.tiles[t].Lit
}

func (g *Grid) SetCrossingLit(t TileIndex, lit bool) {
	if g.valid(t) && g.tiles[t].Kind == TileCrossing {
		g.tiles[t].Lit = lit
	}
}

// ModifyStationRating adjusts the rating of every station whose reference
// tile lies within radius of t and belongs to owner.
func (g *Grid) ModifyStationRating(t TileIndex, owner Owner, delta, radius int) {
	for _, s := range g.stations {
		if !g.valid(s.Tile) || g.tiles[s.Tile].Owner != owner {
			continue
		}
		if int(g.Distance(t, s.Tile)) <= radius {
			s.Rating = clamp(s.Rating+delta, 0, 255)
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SetRail lays plain track on t.
func (g *Grid) SetRail(t TileIndex, owner Owner, rt rail.RailType, tracks rail.TrackBits) error {
	tile, err := g.editable(t)
	if err != nil {
		return err
	}
	tile.Kind = TileRail
	tile.Owner = owner
	tile.RailType = rt
	tile.Tracks = tracks & rail.TrackBitsAll
	return nil
}

// SetSignal places a signal on directed track td of a rail tile. Two-way
// signals are two calls, one per direction. New signals show green.
func (g *Grid) SetSignal(t TileIndex, td rail.Trackdir) error {
	tile, err := g.editable(t)
	if err != nil {
		return err
	}
	if tile.Kind != TileRail || !tile.Tracks.Has(td.Track()) {
		return fmt.Errorf("no track %s on tile %d", td.Track(), t)
	}
	tile.Signals |= td.Bit()
	tile.Green |= td.Bit()
	return nil
}

// SetDepot builds a depot on t opening over edge exit.
func (g *Grid) SetDepot(t TileIndex, owner Owner, rt rail.RailType, exit rail.DiagDir) (DepotID, error) {
	tile, err := g.editable(t)
	if err != nil {
		return 0, err
	}
	id := g.nextDepotID
	g.nextDepotID++
	tile.Kind = TileDepot
	tile.Owner = owner
	tile.RailType = rt
	tile.Dir = exit
	tile.Tracks = rail.AxisTrack(exit).Bit()
	tile.Depot = id
	g.depots[id] = &Depot{ID: id, Tile: t, Owner: owner}
	return id, nil
}

// SetStation makes t a platform tile of station id running along axis.
func (g *Grid) SetStation(t TileIndex, owner Owner, rt rail.RailType, id StationID, axis rail.Track) error {
	tile, err := g.editable(t)
	if err != nil {
		return err
	}
	if axis != rail.TrackX && axis != rail.TrackY {
		return fmt.Errorf("station axis must be straight, got %s", axis)
	}
	tile.Kind = TileStation
	tile.Owner = owner
	tile.RailType = rt
	tile.Tracks = axis.Bit()
	tile.Station = id
	if _, ok := g.stations[id]; !ok {
		g.stations[id] = &Station{ID: id, Name: fmt.Sprintf("Station %d", id), Tile: t, Rating: 175}
	}
	return nil
}

// SetTunnel builds a tunnel between portals a and b; a leads into the hill
// over edge into, b over the opposite edge.
func (g *Grid) SetTunnel(a, b TileIndex, owner Owner, rt rail.RailType, into rail.DiagDir) error {
	ta, err := g.editable(a)
	if err != nil {
		return err
	}
	tb, err := g.editable(b)
	if err != nil {
		return err
	}
	axis := rail.AxisTrack(into).Bit()
	*ta = Tile{Kind: TileTunnel, Owner: owner, RailType: rt, Tracks: axis, Height: ta.Height,
		Rise: rail.DiagInvalid, Dir: into, TunnelEnd: b, Station: InvalidStation}
	*tb = Tile{Kind: TileTunnel, Owner: owner, RailType: rt, Tracks: axis, Height: tb.Height,
		Rise: rail.DiagInvalid, Dir: into.Reverse(), TunnelEnd: a, Station: InvalidStation}
	return nil
}

// SetCrossing builds a level crossing with rail along axis.
func (g *Grid) SetCrossing(t TileIndex, owner Owner, rt rail.RailType, axis rail.Track) error {
	tile, err := g.editable(t)
	if err != nil {
		return err
	}
	tile.Kind = TileCrossing
	tile.Owner = owner
	tile.RailType = rt
	tile.Tracks = axis.Bit()
	return nil
}

// SetSlope sets the base height of t and the edge it rises towards.
func (g *Grid) SetSlope(t TileIndex, height uint8, rise rail.DiagDir) error {
	tile, err := g.editable(t)
	if err != nil {
		return err
	}
	tile.Height = height
	tile.Rise = rise
	return nil
}

func (g *Grid) editable(t TileIndex) (*Tile, error) {
	if !g.valid(t) {
		return nil, fmt.Errorf("tile %d outside %dx%d grid", t, g.width, g.height)
	}
	return &g.tiles[t], nil
}
