package scenario

import (
	"fmt"

	"github.com/trackworks/railcore/internal/command"
	"github.com/trackworks/railcore/internal/consist"
	"github.com/trackworks/railcore/internal/world"
)

// Orders converts the schedule of a train. Depot orders name depots by
// their position in the scenario's depot list.
func (sc *Scenario) Orders(g *world.Grid, in []Order) ([]consist.Order, error) {
	out := make([]consist.Order, 0, len(in))
	for i, o := range in {
		var co consist.Order
		switch o.Type {
		case "station":
			co.Type = consist.OrderGotoStation
			co.Station = world.StationID(o.Station)
			if st, ok := g.Station(co.Station); ok {
				co.Tile = st.Tile
			}
		case "depot":
			co.Type = consist.OrderGotoDepot
			co.Depot = world.DepotID(o.Depot)
			if d, ok := g.Depot(co.Depot); ok {
				co.Tile = d.Tile
			}
			if o.Halt {
				co.Flags |= consist.OrderHaltInDepot
			}
			if o.Service {
				co.Flags |= consist.OrderServiceIfNeeded
			}
			co.Flags |= consist.OrderPartOfOrders
		case "waypoint":
			if o.At == nil {
				return nil, fmt.Errorf("order %d: waypoint without position: %w", i, ErrInvalid)
			}
			if o.At.X >= sc.Width || o.At.Y >= sc.Height {
				return nil, fmt.Errorf("order %d: waypoint outside grid: %w", i, ErrInvalid)
			}
			co.Type = consist.OrderGotoWaypoint
			co.Tile = g.TileXY(o.At.X, o.At.Y)
		default:
			return nil, fmt.Errorf("order %d: unknown type %q: %w", i, o.Type, ErrInvalid)
		}
		if o.NonStop {
			co.Flags |= consist.OrderNonStop
		}
		if co.Type == consist.OrderGotoStation {
			if o.FullLoad {
				co.Flags |= consist.OrderFullLoad
			}
			if o.Unload {
				co.Flags |= consist.OrderUnload
			}
			if o.Transfer {
				co.Flags |= consist.OrderTransfer
			}
		}
		out = append(out, co)
	}
	return out, nil
}

// Populate builds the trains of sc through m, the same way a player would:
// the front engine first, then every further unit moved behind the last
// one. Trains marked Start are started once their orders are set.
func (sc *Scenario) Populate(m *command.Manager, g *world.Grid) ([]*consist.Vehicle, error) {
	heads := make([]*consist.Vehicle, 0, len(sc.Trains))
	for i, tr := range sc.Trains {
		head, err := sc.buildTrain(m, g, tr)
		if err != nil {
			return heads, fmt.Errorf("train %d: %w", i, err)
		}
		heads = append(heads, head)
	}
	return heads, nil
}

func (sc *Scenario) buildTrain(m *command.Manager, g *world.Grid, tr Train) (*consist.Vehicle, error) {
	if tr.Depot.X >= sc.Width || tr.Depot.Y >= sc.Height {
		return nil, fmt.Errorf("depot outside grid: %w", ErrInvalid)
	}
	owner := world.Owner(sc.owner(tr.Owner))
	depot := g.TileXY(tr.Depot.X, tr.Depot.Y)

	var head *consist.Vehicle
	for _, name := range tr.Units {
		engine, _ := sc.EngineID(name)
		u, err := m.Build(owner, depot, engine)
		if err != nil {
			return nil, fmt.Errorf("build %s: %w", name, err)
		}
		if head == nil {
			if !u.IsFrontEngine() {
				return nil, fmt.Errorf("first unit %s is not an engine: %w", name, ErrInvalid)
			}
			head = u
			continue
		}
		if u.IsHead() && u.IsFrontEngine() {
			// extra engines run as part of the consist
			if err := m.Move(owner, u.Index, head.Last().Index, true, true); err != nil {
				return nil, fmt.Errorf("attach %s: %w", name, err)
			}
			continue
		}
		if u.First() != head {
			if err := m.Move(owner, u.Index, head.Last().Index, true, false); err != nil {
				return nil, fmt.Errorf("attach %s: %w", name, err)
			}
		}
	}

	if len(tr.Orders) > 0 {
		orders, err := sc.Orders(g, tr.Orders)
		if err != nil {
			return nil, err
		}
		if err := m.SetOrders(owner, head.Index, orders); err != nil {
			return nil, err
		}
	}
	if tr.ServiceInterval != 0 {
		if err := m.ServiceInterval(owner, head.Index, tr.ServiceInterval); err != nil {
			return nil, err
		}
	}
	if tr.Start {
		if _, err := m.StartStop(owner, head.Index); err != nil {
			return nil, err
		}
	}
	return head, nil
}
