package consist

import "github.com/trackworks/railcore/internal/world"

// OrderType is what the head is currently doing.
type OrderType uint8

const (
	OrderNothing OrderType = iota
	OrderGotoStation
	OrderGotoDepot
	OrderLoading
	OrderLeaveStation
	OrderDummy
	OrderGotoWaypoint
)

var orderNames = []string{"nothing", "goto_station", "goto_depot", "loading", "leave_station", "dummy", "goto_waypoint"}

func (t OrderType) String() string {
	if int(t) < len(orderNames) {
		return orderNames[t]
	}
	return "unknown"
}

// OrderFlags modify an order. Station and depot orders use different
// subsets.
type OrderFlags uint8

const (
	OrderTransfer OrderFlags = 1 << iota
	OrderUnload
	OrderFullLoad
	OrderNonStop

	// depot orders
	OrderPartOfOrders
	OrderHaltInDepot
	OrderServiceIfNeeded
)

// Order is one entry of a schedule, or the current order of a head.
type Order struct {
	Type    OrderType       `json:"type"`
	Flags   OrderFlags      `json:"flags,omitempty"`
	Station world.StationID `json:"station,omitempty"`
	Depot   world.DepotID   `json:"depot,omitempty"`
	Tile    world.TileIndex `json:"tile,omitempty"`
}

func (o Order) Has(f OrderFlags) bool { return o.Flags&f != 0 }

// Is reports whether o has type t.
func (o Order) Is(t OrderType) bool { return o.Type == t }

// ShouldStopAt reports whether head has to halt at station st rather than
// run through it. newNonstop selects the rule where non-stop orders skip
// only their own destination.
func ShouldStopAt(head *Vehicle, st world.StationID, newNonstop bool) bool {
	o := head.CurrentOrder
	if newNonstop && o.Has(OrderNonStop) && st == o.Station {
		return false
	}
	if head.LastStationVisited == st {
		return false
	}
	if st != o.Station && (o.Has(OrderNonStop) || newNonstop) {
		return false
	}
	return true
}
