package command

import (
	"fmt"

	"github.com/trackworks/railcore/internal/consist"
	"github.com/trackworks/railcore/internal/rail"
	"github.com/trackworks/railcore/internal/world"
)

// depotFract is where inside a depot tile new units are placed, by exit
// edge: x offsets first, then y offsets.
var depotFract = [8]int32{
	10, 8, 4, 8,
	8, 4, 8, 10,
}

// Build creates a unit of engine in owner's depot on tile and returns it.
// A wagon joins the free wagon chain of the same type waiting in the
// depot, or starts one. An engine becomes a stopped train of its own,
// with its rear engine for multiheads, and collects the free wagons in the
// depot.
func (m *Manager) Build(owner world.Owner, tile world.TileIndex, engine consist.EngineID) (*consist.Vehicle, error) {
	depot, ok := m.grid.DepotAt(tile)
	if !ok {
		return nil, fmt.Errorf("tile %d: %w", tile, ErrNoDepot)
	}
	if depot.Owner != owner {
		return nil, fmt.Errorf("depot %d: %w", depot.ID, ErrNotOwner)
	}
	info, ok := m.sim.Engines.Get(engine)
	if !ok {
		return nil, fmt.Errorf("engine %d: %w", engine, ErrWrongKind)
	}
	if info.RailType != m.grid.RailTypeAt(tile) {
		return nil, fmt.Errorf("engine %s runs on %s, depot is %s: %w",
			info.Name, info.RailType, m.grid.RailTypeAt(tile), ErrWrongKind)
	}

	if info.IsWagon() {
		return m.buildWagon(owner, tile, engine, info)
	}

	units := 1
	if info.IsMultihead() {
		units = 2
	}
	if !m.sim.Pool.CanAllocate(units) {
		return nil, ErrPoolFull
	}
	number, ok := m.sim.Pool.FreeUnitNumber(owner, m.params.MaxTrains)
	if !ok {
		return nil, fmt.Errorf("owner %d: %w", owner, ErrTooManyTrains)
	}

	head, err := m.sim.Pool.Allocate(owner, engine, consist.FrontEngine)
	if err != nil {
		return nil, fmt.Errorf("allocate engine: %w", err)
	}
	m.place(head, tile, info)
	head.UnitNumber = number
	head.SetStatus(consist.StatusStopped)
	head.Reliability = info.Reliability
	head.MaxAge = info.MaxAgeDays
	head.ServiceInterval = uint16(max(m.sim.Params.ServintTrains, 0))
	head.DateOfLastService = m.sim.Date()

	if units == 2 {
		rear, err := m.sim.Pool.Allocate(owner, engine, consist.NotFirst)
		if err != nil {
			return nil, fmt.Errorf("allocate rear engine: %w", err)
		}
		m.place(rear, tile, info)
		if err := head.SetNext(rear); err != nil {
			return nil, err
		}
	}

	m.recompute(head)
	m.collectFreeWagons(head)

	m.logger.Debug("built train", "owner", owner, "train", head.Index, "unit", number, "engine", info.Name)
	return head, nil
}

func (m *Manager) buildWagon(owner world.Owner, tile world.TileIndex, engine consist.EngineID, info *consist.EngineInfo) (*consist.Vehicle, error) {
	if !m.sim.Pool.CanAllocate(1) {
		return nil, ErrPoolFull
	}
	w, err := m.sim.Pool.Allocate(owner, engine, consist.FreeCar)
	if err != nil {
		return nil, fmt.Errorf("allocate wagon: %w", err)
	}
	m.place(w, tile, info)

	head := w
	if chain := m.freeChainOf(owner, tile, engine, w); chain != nil {
		w.Subtype = consist.NotFirst
		if err := chain.Last().SetNext(w); err != nil {
			return nil, err
		}
		head = chain
	}
	m.recompute(head)

	m.logger.Debug("built wagon", "owner", owner, "wagon", w.Index, "chain", head.Index, "engine", info.Name)
	return w, nil
}

// place puts a new unit into the depot on tile, hidden and facing the exit.
func (m *Manager) place(v *consist.Vehicle, tile world.TileIndex, info *consist.EngineInfo) {
	exit := m.grid.DepotExit(tile)
	ox, oy := m.grid.TileOrigin(tile)
	v.X = ox + depotFract[exit]
	v.Y = oy + depotFract[exit+4]
	v.Z = m.grid.SlopeZ(v.X, v.Y)
	v.Tile = tile
	v.Direction = exit.Direction()
	v.Track = rail.TrackBitsDepot
	v.SetStatus(consist.StatusHidden)

	v.RailType = info.RailType
	v.MaxSpeed = info.MaxSpeed
	v.CargoType = info.CargoType
	v.CargoCap = info.Capacity
}

// freeChainOf returns a free wagon chain in the depot on tile led by a
// wagon of engine, skipping except.
func (m *Manager) freeChainOf(owner world.Owner, tile world.TileIndex, engine consist.EngineID, except *consist.Vehicle) *consist.Vehicle {
	for _, u := range m.sim.Pool.OnTile(tile) {
		if u == except || u.Owner != owner || !u.IsFreeCar() || !u.IsHead() || !u.InDepot() {
			continue
		}
		if u.Engine == engine {
			return u
		}
	}
	return nil
}

// collectFreeWagons moves the free wagon chains waiting in head's depot
// behind head, for as long as the train does not get too long.
func (m *Manager) collectFreeWagons(head *consist.Vehicle) {
	for _, u := range m.sim.Pool.OnTile(head.Tile) {
		if u.Owner != head.Owner || !u.IsFreeCar() || !u.IsHead() || !u.InDepot() {
			continue
		}
		if err := m.Move(head.Owner, u.Index, head.Index, true, true); err != nil {
			m.logger.Debug("free wagons left in depot", "train", head.Index, "chain", u.Index, "error", err)
			return
		}
	}
}
