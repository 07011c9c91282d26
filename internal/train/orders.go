package train

import (
	"github.com/trackworks/railcore/internal/consist"
	"github.com/trackworks/railcore/internal/events"
	"github.com/trackworks/railcore/internal/world"
	"github.com/trackworks/railcore/pkg/core"
)

// processOrder moves head on to its next order when the current one is
// done and points it at the new destination. It reports whether the train
// should turn around to get there.
func (c *Controller) processOrder(head *consist.Vehicle) bool {
	cur := head.CurrentOrder
	if cur.Type >= consist.OrderGotoDepot && cur.Type <= consist.OrderLeaveStation {
		// only a depot visit from the order list may be interrupted
		if !cur.Is(consist.OrderGotoDepot) || !cur.Has(consist.OrderPartOfOrders) {
			return false
		}
	}

	if cur.Is(consist.OrderGotoDepot) && cur.Has(consist.OrderServiceIfNeeded) && !c.needsService(head) {
		head.CurOrderIndex++
	}
	if cur.Is(consist.OrderGotoWaypoint) && head.Tile == head.DestTile {
		head.CurOrderIndex++
	}
	if c.Params.NewNonstop && cur.Has(consist.OrderNonStop) &&
		c.Grid.TileKind(head.Tile) == world.TileStation && c.Grid.StationAt(head.Tile) == cur.Station {
		head.CurOrderIndex++
	}

	if head.CurOrderIndex >= len(head.Orders) {
		head.CurOrderIndex = 0
	}
	if len(head.Orders) == 0 {
		head.CurrentOrder = consist.Order{}
		head.DestTile = world.InvalidTile
		return false
	}

	order := head.Orders[head.CurOrderIndex]
	if order == cur {
		return false
	}

	head.CurrentOrder = order
	head.DestTile = world.InvalidTile
	switch order.Type {
	case consist.OrderGotoStation:
		if order.Station == head.LastStationVisited {
			head.LastStationVisited = world.InvalidStation
		}
		if st, ok := c.Grid.Station(order.Station); ok {
			head.DestTile = st.Tile
		}
	case consist.OrderGotoDepot:
		if d, ok := c.Grid.Depot(order.Depot); ok {
			head.DestTile = d.Tile
		}
	case consist.OrderGotoWaypoint:
		head.DestTile = order.Tile
	default:
		return false
	}
	return c.Path.CheckReverse(head)
}

// handleLoading runs the loading timer of a head standing at a station
// and sends it on its way when loading is done.
func (c *Controller) handleLoading(head *consist.Vehicle, mode bool) {
	switch head.CurrentOrder.Type {
	case consist.OrderDummy:
	case consist.OrderLoading:
		if mode {
			return
		}
		if head.CurrentOrder.Has(consist.OrderNonStop) {
			head.DaysSinceOrderProgress = 0
		}
		if head.LoadUnloadTimeRem > 0 {
			head.LoadUnloadTimeRem--
		}
		if head.LoadUnloadTimeRem != 0 {
			return
		}

		if head.CurrentOrder.Has(consist.OrderFullLoad) && c.Loader.CanFill(head) {
			head.DaysSinceOrderProgress = 0
			if c.Loader.LoadUnload(head) {
				consist.CargoChanged(head, c.Engines)
				consist.UpdateAcceleration(head)
			}
			return
		}

		c.emit(core.EventSound, head, c.leaveSoundKey(head), nil)
		final := head.CurrentOrder.Has(consist.OrderNonStop)
		head.CurrentOrder = consist.Order{Type: consist.OrderLeaveStation}
		if !final {
			return
		}
	default:
		return
	}

	head.DaysSinceOrderProgress = 0
	head.CurOrderIndex++
}

// enterStation stops head at a platform of station st and starts loading.
func (c *Controller) enterStation(head *consist.Vehicle, st world.StationID) {
	head.LastStationVisited = st

	if s, ok := c.Grid.Station(st); ok && !s.HadTrain {
		s.HadTrain = true
		c.emit(core.EventNews, head, events.NewsFirstArrival, map[string]any{"station": s.Name})
	}

	o := &head.CurrentOrder
	if o.Is(consist.OrderGotoStation) && o.Station == st {
		// the destination: keep the cargo flags, non-stop now marks it final
		o.Flags &= consist.OrderFullLoad | consist.OrderUnload
		o.Flags |= consist.OrderNonStop
	} else {
		o.Flags = 0
	}
	o.Type = consist.OrderLoading
	o.Station = 0

	if c.Loader.LoadUnload(head) {
		consist.CargoChanged(head, c.Engines)
		consist.UpdateAcceleration(head)
	}
}

// StationLoader is the built-in Loader. Every round it unloads or loads a
// fixed amount per unit.
type StationLoader struct {
	// Rate is the cargo moved per unit and round.
	Rate uint16
	// Ticks is the length of a loading round.
	Ticks uint16
}

var _ Loader = StationLoader{}

func (l StationLoader) LoadUnload(head *consist.Vehicle) bool {
	head.LoadUnloadTimeRem = max(l.Ticks, 1)
	unload := head.CurrentOrder.Has(consist.OrderUnload)
	changed := false
	for u := head; u != nil; u = u.Next() {
		switch {
		case unload && u.CargoCount > 0:
			u.CargoCount -= min(u.CargoCount, l.Rate)
			changed = true
		case !unload && u.CargoCount < u.CargoCap:
			u.CargoCount += min(u.CargoCap-u.CargoCount, l.Rate)
			u.CargoSource = head.LastStationVisited
			changed = true
		}
	}
	return changed
}

func (l StationLoader) CanFill(head *consist.Vehicle) bool {
	for u := head; u != nil; u = u.Next() {
		if u.CargoCount < u.CargoCap {
			return true
		}
	}
	return false
}
