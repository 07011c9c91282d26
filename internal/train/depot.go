package train

import (
	"github.com/trackworks/railcore/internal/consist"
	"github.com/trackworks/railcore/internal/events"
	"github.com/trackworks/railcore/internal/rail"
	"github.com/trackworks/railcore/internal/world"
	"github.com/trackworks/railcore/pkg/core"
)

const (
	// depotDwell is how many ticks a started train waits in its depot
	// before it tries to leave.
	depotDwell = 37
	// serviceRange is the farthest, in tiles, a train detours for service.
	serviceRange = 16
)

// IsStationaryInDepot reports whether head's whole train stands stopped
// inside a depot.
func IsStationaryInDepot(head *consist.Vehicle) bool {
	return head.IsStoppedInDepot()
}

// checkStayInDepot keeps a started train inside its depot until it has
// dwelled and the block in front of the depot is free, then lets the head
// out. It reports whether the train stays.
func (c *Controller) checkStayInDepot(head *consist.Vehicle) bool {
	for u := head; u != nil; u = u.Next() {
		if !u.InDepot() || u.Tile != head.Tile {
			return false
		}
	}

	if head.ForceProceed == 0 {
		head.LoadUnloadTimeRem++
		if head.LoadUnloadTimeRem < depotDwell {
			return true
		}
		head.LoadUnloadTimeRem = 0
		if c.Signals.UpdateSignalsOnSegment(head.Tile, head.Direction) {
			return true
		}
	}

	c.serviceInDepot(head)
	c.emit(core.EventSound, head, c.leaveSoundKey(head), nil)

	head.Track = rail.TrackX.Bit()
	if head.Direction&2 != 0 {
		head.Track = rail.TrackY.Bit()
	}
	head.ClearStatus(consist.StatusHidden)
	head.CurSpeed = 0
	c.Signals.UpdateSignalsOnSegment(head.Tile, head.Direction)
	consist.UpdateAcceleration(head)
	return false
}

// enterDepot runs when the last unit of a train has entered depot t.
func (c *Controller) enterDepot(v *consist.Vehicle, t world.TileIndex) {
	if exit := c.Grid.DepotExit(t); exit != rail.DiagInvalid {
		c.Signals.SetSignalsOnBothDir(t, rail.AxisTrack(exit))
	}
	head := v.First()
	c.serviceInDepot(head)
	head.LoadUnloadTimeRem = 0
	head.CurSpeed = 0

	if !head.CurrentOrder.Is(consist.OrderGotoDepot) {
		return
	}
	o := head.CurrentOrder
	head.CurrentOrder = consist.Order{Type: consist.OrderDummy}
	switch {
	case o.Has(consist.OrderPartOfOrders):
		head.DaysSinceOrderProgress = 0
		head.CurOrderIndex++
	case o.Has(consist.OrderHaltInDepot):
		head.SetStatus(consist.StatusStopped)
		c.emit(core.EventNews, head, events.NewsWaitingInDepot, map[string]any{"unit": head.UnitNumber})
	}
}

func (c *Controller) serviceInDepot(head *consist.Vehicle) {
	head.DateOfLastService = c.date
	head.BreakdownsSinceService = 0
	head.Reliability = c.Engines.Info(head.Engine).Reliability
}

// needsService reports whether head's service interval has passed.
func (c *Controller) needsService(head *consist.Vehicle) bool {
	return head.DateOfLastService+int32(head.ServiceInterval) < c.date
}

func hasDepotOrders(head *consist.Vehicle) bool {
	for _, o := range head.Orders {
		if o.Is(consist.OrderGotoDepot) {
			return true
		}
	}
	return false
}

// checkIfNeedsService sends head to the closest depot when it is due for
// service and one lies close enough.
func (c *Controller) checkIfNeedsService(head *consist.Vehicle) {
	if c.Params.ServintTrains == 0 || !c.needsService(head) || head.IsStopped() {
		return
	}
	if c.Params.GotoDepot && hasDepotOrders(head) {
		return
	}
	o := head.CurrentOrder
	if o.Is(consist.OrderGotoDepot) && o.Has(consist.OrderHaltInDepot|consist.OrderPartOfOrders) {
		return
	}

	res := c.Path.FindClosestDepot(head)
	if !res.Found || res.Length > serviceRange {
		if o.Is(consist.OrderGotoDepot) {
			head.CurrentOrder = consist.Order{Type: consist.OrderDummy}
		}
		return
	}
	depot, ok := c.Grid.DepotAt(res.Tile)
	if !ok {
		return
	}
	if o.Is(consist.OrderGotoDepot) && o.Depot != depot.ID && !c.chance16(3, 16) {
		return
	}

	head.CurrentOrder = consist.Order{Type: consist.OrderGotoDepot, Flags: consist.OrderNonStop, Depot: depot.ID}
	head.DestTile = res.Tile
}

func (c *Controller) chance16(a, b uint32) bool {
	return uint32(uint16(c.Rand.Uint32())) <= 65536*a/b
}
