// Package world is the tile grid the trains run on: track layout, signals,
// depots, stations, tunnels and level crossings, plus the signal block
// manager that keeps signal aspects in step with occupancy.
package world

import "github.com/trackworks/railcore/internal/rail"

// TileIndex addresses a tile as y*width + x.
type TileIndex uint32

// InvalidTile is never a valid grid position.
const InvalidTile TileIndex = 0xFFFFFFFF

// Owner identifies a company owning track and vehicles.
type Owner uint8

// StationID identifies a station. InvalidStation means none.
type StationID uint16

const InvalidStation StationID = 0xFFFF

// DepotID identifies a depot.
type DepotID uint16

// TileKind classifies a tile for rail purposes.
type TileKind uint8

const (
	TileClear TileKind = iota
	TileRail
	TileDepot
	TileStation
	TileTunnel
	TileCrossing
)

func (k TileKind) String() string {
	switch k {
	case TileClear:
		return "clear"
	case TileRail:
		return "rail"
	case TileDepot:
		return "depot"
	case TileStation:
		return "station"
	case TileTunnel:
		return "tunnel"
	case TileCrossing:
		return "crossing"
	}
	return "unknown"
}

// IsRailBearing reports whether rail vehicles can occupy the tile.
func (k TileKind) IsRailBearing() bool { return k != TileClear }

// Tile is the rail-relevant content of one grid cell.
type Tile struct {
	Kind     TileKind
	Owner    Owner
	RailType rail.RailType
	Tracks   rail.TrackBits

	// Height is the base level; one level is eight z units.
	Height uint8
	// Rise is the edge the tile slopes up towards, DiagInvalid when flat.
	Rise rail.DiagDir

	// Signals holds the directed tracks guarded by a signal facing
	// vehicles travelling that way; Green the subset showing proceed.
	Signals rail.TrackdirBits
	Green   rail.TrackdirBits

	// Dir is the exit edge of a depot or the edge a tunnel portal leads
	// into the hill through.
	Dir rail.DiagDir
	// TunnelEnd is the opposite portal of a tunnel.
	TunnelEnd TileIndex

	Station StationID
	Depot   DepotID

	// Lit is set while a level crossing warns road traffic.
	Lit bool
}

// HasSignals reports whether any track on the tile carries a signal.
func (t *Tile) HasSignals() bool { return t.Signals != 0 }

// Station is a named platform group. Tile is its reference tile used as the
// approximate destination of orders.
type Station struct {
	ID       StationID
	Name     string
	Tile     TileIndex
	HadTrain bool
	Rating   int
}

// Depot is a rail depot.
type Depot struct {
	ID    DepotID
	Tile  TileIndex
	Owner Owner
}

// Aspect is the state of one side of a signal.
type Aspect uint8

const (
	AspectNone Aspect = iota
	AspectRed
	AspectGreen
)

// SignalPair describes the signals on a directed track: Along faces
// vehicles travelling that way, Against faces the opposite travel.
type SignalPair struct {
	Along   Aspect
	Against Aspect
}
