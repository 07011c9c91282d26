// Package consist models trains as chains of vehicle units and derives the
// consist-wide physical properties from them.
package consist

import (
	"github.com/trackworks/railcore/internal/rail"
	"github.com/trackworks/railcore/internal/world"
)

// VehicleID is the pool index of a unit.
type VehicleID uint32

// Subtype is the role of a unit in its chain.
type Subtype uint8

const (
	FrontEngine Subtype = iota
	FreeCar
	NotFirst
)

func (s Subtype) String() string {
	switch s {
	case FrontEngine:
		return "front_engine"
	case FreeCar:
		return "free_car"
	case NotFirst:
		return "not_first"
	}
	return "unknown"
}

// Status holds the generic vehicle state bits.
type Status uint8

const (
	StatusHidden Status = 1 << iota
	StatusStopped
	StatusCrashed
	StatusSlowing
)

// RailFlags holds rail specific state bits.
type RailFlags uint8

const (
	FlagGoingUp RailFlags = 1 << iota
	FlagGoingDown
	FlagReversing
	FlagPoweredWagon
)

// Vehicle is one unit of a train. Units are owned by the pool; the chain
// link next owns the rest of the consist.
type Vehicle struct {
	Index      VehicleID
	Owner      world.Owner
	Engine     EngineID
	UnitNumber uint16
	Subtype    Subtype
	RailType   rail.RailType

	next  *Vehicle
	prev  *Vehicle
	first *Vehicle // cached head, nil until First is called after a change

	Tile      world.TileIndex
	X, Y      int32
	Z         uint8
	Direction rail.Direction
	// Track is a single track bit or one of the depot/tunnel sentinels.
	Track rail.TrackBits

	CurSpeed     uint16
	SubSpeed     uint8
	Progress     uint8
	MaxSpeed     uint16
	Acceleration uint8

	CargoType   CargoType
	CargoCount  uint16
	CargoCap    uint16
	CargoDays   uint8
	CargoSource world.StationID

	CachedVehWeight uint16
	CachedVehLength uint8
	CachedWeight    uint32
	CachedPower     uint32
	CachedMaxSpeed  uint16
	FirstEngine     EngineID

	Flags  RailFlags
	Status Status

	CurrentOrder       Order
	Orders             []Order
	CurOrderIndex      int
	DestTile           world.TileIndex
	LastStationVisited world.StationID

	CrashAnimPos uint16
	ForceProceed uint8

	DaysSinceOrderProgress uint16
	BreakdownCtr           uint8
	BreakdownDelay         uint8
	BreakdownsSinceService uint8
	BreakdownChance        uint8
	Reliability            uint16

	// LoadUnloadTimeRem is the loading timer; while moving it counts
	// ticks spent waiting at a signal or in a depot.
	LoadUnloadTimeRem uint16

	ServiceInterval   uint16
	DateOfLastService int32
	Age               int32
	MaxAge            int32
	ProfitThisYear    int64
	ProfitLastYear    int64

	TickCounter uint8
	DayCounter  uint8
	LastSpeed   uint16
}

// New returns a standalone unit heading its own chain.
func New(id VehicleID, owner world.Owner, engine EngineID, sub Subtype) *Vehicle {
	v := &Vehicle{
		Index:              id,
		Owner:              owner,
		Engine:             engine,
		Subtype:            sub,
		Tile:               world.InvalidTile,
		DestTile:           world.InvalidTile,
		LastStationVisited: world.InvalidStation,
		CargoSource:        world.InvalidStation,
		FirstEngine:        InvalidEngine,
	}
	return v
}

func (v *Vehicle) IsFrontEngine() bool { return v.Subtype == FrontEngine }
func (v *Vehicle) IsFreeCar() bool     { return v.Subtype == FreeCar }

func (v *Vehicle) Is(s Status) bool       { return v.Status&s != 0 }
func (v *Vehicle) Has(f RailFlags) bool   { return v.Flags&f != 0 }
func (v *Vehicle) IsHidden() bool         { return v.Is(StatusHidden) }
func (v *Vehicle) IsStopped() bool        { return v.Is(StatusStopped) }
func (v *Vehicle) IsCrashed() bool        { return v.Is(StatusCrashed) }
func (v *Vehicle) InDepot() bool          { return v.Track == rail.TrackBitsDepot }
func (v *Vehicle) InTunnel() bool         { return v.Track == rail.TrackBitsTunnel }
func (v *Vehicle) SetStatus(s Status)     { v.Status |= s }
func (v *Vehicle) ClearStatus(s Status)   { v.Status &^= s }
func (v *Vehicle) SetFlag(f RailFlags)    { v.Flags |= f }
func (v *Vehicle) ClearFlag(f RailFlags)  { v.Flags &^= f }
func (v *Vehicle) ToggleFlag(f RailFlags) { v.Flags ^= f }

// IsStoppedInDepot reports whether the whole consist stands still inside
// the depot on the head's tile with a stopped front engine.
func (v *Vehicle) IsStoppedInDepot() bool {
	head := v.First()
	if head.CurSpeed != 0 || !head.IsFrontEngine() || !head.IsStopped() {
		return false
	}
	for u := head; u != nil; u = u.next {
		if !u.InDepot() || u.Tile != head.Tile {
			return false
		}
	}
	return true
}
