package command

import (
	"fmt"

	"github.com/trackworks/railcore/internal/consist"
	"github.com/trackworks/railcore/internal/world"
)

// StartStop toggles the stopped state of a train and returns whether it
// is stopped now. A train without power cannot be started.
func (m *Manager) StartStop(owner world.Owner, id consist.VehicleID) (bool, error) {
	head, err := m.train(owner, id)
	if err != nil {
		return false, err
	}
	if head.IsStopped() && head.CachedPower == 0 {
		return true, fmt.Errorf("train %d: %w", id, ErrNoPower)
	}

	head.DaysSinceOrderProgress = 0
	if head.IsStopped() {
		head.ClearStatus(consist.StatusStopped)
	} else {
		head.SetStatus(consist.StatusStopped)
	}
	return head.IsStopped(), nil
}

// Reverse turns a train around. With realistic acceleration a moving
// train only gets the reverse request toggled and turns once it has
// stopped.
func (m *Manager) Reverse(owner world.Owner, id consist.VehicleID) error {
	head, err := m.train(owner, id)
	if err != nil {
		return err
	}
	if head.IsCrashed() {
		return fmt.Errorf("train %d: %w", id, ErrCrashed)
	}
	if head.BreakdownCtr != 0 {
		return fmt.Errorf("train %d: %w", id, ErrBrokenDown)
	}

	if m.params.Realistic && head.CurSpeed != 0 {
		head.ToggleFlag(consist.FlagReversing)
		return nil
	}
	head.CurSpeed = 0
	m.sim.Reverse(head)
	return nil
}

// ForceProceed lets a train pass the next red signal.
func (m *Manager) ForceProceed(owner world.Owner, id consist.VehicleID) error {
	head, err := m.train(owner, id)
	if err != nil {
		return err
	}
	head.ForceProceed = forceProceedTicks
	return nil
}

// Refit changes the cargo of every refittable unit of a stopped train and
// returns the new total capacity. Capacity scales with how much space one
// unit of the old and the new cargo takes. Cargo on board is lost.
func (m *Manager) Refit(owner world.Owner, id consist.VehicleID, cargo consist.CargoType) (uint32, error) {
	head, err := m.train(owner, id)
	if err != nil {
		return 0, err
	}
	if !head.IsStoppedInDepot() {
		return 0, fmt.Errorf("train %d: %w", id, ErrNotStoppedInDepot)
	}

	var total uint32
	refitted := 0
	for u := head; u != nil; u = u.Next() {
		info := m.sim.Engines.Info(u.Engine)
		if !info.Refittable || u.CargoCap == 0 {
			total += uint32(u.CargoCap)
			continue
		}
		amount := uint32(info.Capacity) * uint32(info.CargoType.RefitMultiplier()) / uint32(cargo.RefitMultiplier())
		if amount == 0 {
			total += uint32(u.CargoCap)
			continue
		}
		u.CargoCount = 0
		u.CargoType = cargo
		u.CargoCap = uint16(min(amount, 0xFFFF))
		total += uint32(u.CargoCap)
		refitted++
	}
	if refitted == 0 {
		return 0, fmt.Errorf("train %d has nothing to refit to %s: %w", id, cargo, ErrWrongKind)
	}

	consist.CargoChanged(head, m.sim.Engines)
	m.recompute(head)
	return total, nil
}

// ServiceInterval sets how many days a train runs between services.
func (m *Manager) ServiceInterval(owner world.Owner, id consist.VehicleID, days uint16) error {
	head, err := m.train(owner, id)
	if err != nil {
		return err
	}
	if days < minServiceInterval || days > maxServiceInterval {
		return fmt.Errorf("service interval %d outside %d..%d: %w", days, minServiceInterval, maxServiceInterval, ErrInvalidValue)
	}
	head.ServiceInterval = days
	return nil
}

// SendToDepot sends a train to its closest depot and returns the depot
// tile. A train already heading for a depot has that order cancelled
// instead, and world.InvalidTile is returned. Unless service is set the
// train halts in the depot.
func (m *Manager) SendToDepot(owner world.Owner, id consist.VehicleID, service bool) (world.TileIndex, error) {
	head, err := m.train(owner, id)
	if err != nil {
		return world.InvalidTile, err
	}
	if head.IsCrashed() {
		return world.InvalidTile, fmt.Errorf("train %d: %w", id, ErrCrashed)
	}

	if head.CurrentOrder.Is(consist.OrderGotoDepot) {
		if head.CurrentOrder.Has(consist.OrderPartOfOrders) {
			head.DaysSinceOrderProgress = 0
			head.CurOrderIndex++
		}
		head.CurrentOrder = consist.Order{Type: consist.OrderDummy}
		return world.InvalidTile, nil
	}

	found := m.sim.Path.FindClosestDepot(head)
	if !found.Found {
		return world.InvalidTile, fmt.Errorf("train %d: %w", id, ErrNoDepot)
	}
	depot, ok := m.grid.DepotAt(found.Tile)
	if !ok {
		return world.InvalidTile, fmt.Errorf("tile %d: %w", found.Tile, ErrNoDepot)
	}

	flags := consist.OrderNonStop
	if !service {
		flags |= consist.OrderHaltInDepot
	}
	head.CurrentOrder = consist.Order{
		Type:  consist.OrderGotoDepot,
		Flags: flags,
		Depot: depot.ID,
		Tile:  found.Tile,
	}
	head.DestTile = found.Tile

	if found.Reverse {
		if err := m.Reverse(owner, id); err != nil {
			m.logger.Debug("train heads to depot without turning", "train", id, "error", err)
		}
	}
	return found.Tile, nil
}

// SetOrders replaces the order list of a train and restarts it at the
// first order. Every station and depot named must exist.
func (m *Manager) SetOrders(owner world.Owner, id consist.VehicleID, orders []consist.Order) error {
	head, err := m.train(owner, id)
	if err != nil {
		return err
	}
	for i, o := range orders {
		switch o.Type {
		case consist.OrderGotoStation:
			if _, ok := m.grid.Station(o.Station); !ok {
				return fmt.Errorf("order %d: station %d: %w", i, o.Station, ErrInvalidValue)
			}
		case consist.OrderGotoWaypoint:
			if m.grid.TileKind(o.Tile) == world.TileClear {
				return fmt.Errorf("order %d: waypoint %d has no track: %w", i, o.Tile, ErrInvalidValue)
			}
		case consist.OrderGotoDepot:
			if _, ok := m.grid.Depot(o.Depot); !ok {
				return fmt.Errorf("order %d: depot %d: %w", i, o.Depot, ErrInvalidValue)
			}
		default:
			return fmt.Errorf("order %d: type %s: %w", i, o.Type, ErrInvalidValue)
		}
	}

	head.Orders = append([]consist.Order(nil), orders...)
	head.CurOrderIndex = 0
	head.DaysSinceOrderProgress = 0
	if !head.CurrentOrder.Is(consist.OrderLoading) {
		head.CurrentOrder = consist.Order{}
	}
	return nil
}
