package parser

import (
	"github.com/trackworks/railcore/internal/consist"
	"github.com/trackworks/railcore/internal/world"
)

// BuildVehicle asks for a new unit of Engine in the depot on Tile.
type BuildVehicle struct {
	Owner  world.Owner
	Tile   world.TileIndex
	Engine consist.EngineID
}

// MoveVehicle moves Src, and with Chain every unit behind it, after Dst.
// Without a Dst the units start a line of their own.
type MoveVehicle struct {
	Owner  world.Owner
	Src    consist.VehicleID
	Dst    consist.VehicleID
	HasDst bool
	Chain  bool
}

// SellVehicle sells a unit, or with Chain the unit and all behind it.
type SellVehicle struct {
	Owner   world.Owner
	Vehicle consist.VehicleID
	Chain   bool
}

// VehicleRef names a train for the commands that take no other argument.
type VehicleRef struct {
	Owner   world.Owner
	Vehicle consist.VehicleID
}

type Refit struct {
	Owner   world.Owner
	Vehicle consist.VehicleID
	Cargo   consist.CargoType
}

type ServiceInterval struct {
	Owner   world.Owner
	Vehicle consist.VehicleID
	Days    uint16
}

// SendToDepot sends a train to the closest depot. Service trains leave
// again after servicing instead of halting.
type SendToDepot struct {
	Owner   world.Owner
	Vehicle consist.VehicleID
	Service bool
}

type SetOrders struct {
	Owner   world.Owner
	Vehicle consist.VehicleID
	Orders  []consist.Order
}
