package train

import (
	"github.com/trackworks/railcore/internal/consist"
	"github.com/trackworks/railcore/internal/rail"
)

// Reverse turns head's train around in place: the units swap positions
// pairwise from both ends, so the last unit becomes the new front. Units
// of different lengths are shuffled forward before and after the swap so
// the train keeps its footprint.
func (c *Controller) Reverse(head *consist.Vehicle) {
	c.disableCrossing(c.Grid.Neighbour(head.Tile, rail.ExitDiag(head.Direction, head.Track)))

	c.advanceWagons(head, true)
	units := head.Units()
	for l, r := 0, len(units)-1; l <= r; l, r = l+1, r-1 {
		c.swapUnits(units[l], units[r])
	}
	c.advanceWagons(head, false)

	head.ClearFlag(consist.FlagReversing)
	c.reversals++
}

// reverseStopped halts head and reverses it.
func (c *Controller) reverseStopped(head *consist.Vehicle) {
	head.LoadUnloadTimeRem = 0
	head.CurSpeed = 0
	head.SubSpeed = 0
	c.Reverse(head)
}

// advanceWagons moves the inner units of each front/back pair forward by
// the length difference of the pair. It runs once before the swap and
// once after it.
func (c *Controller) advanceWagons(head *consist.Vehicle, before bool) {
	base := head
	first := base.Next()
	for length := head.Count(); length > 2; length -= 2 {
		last := first
		for i := length - 3; i > 0; i-- {
			last = last.Next()
		}

		diff := int(last.CachedVehLength) - int(base.CachedVehLength)
		if before {
			diff = -diff
		}
		for i := 0; i < diff; i++ {
			c.step(first, last.Next())
		}

		base = first
		first = first.Next()
	}
}

func (c *Controller) swapUnits(a, b *consist.Vehicle) {
	if a == b {
		if !a.InDepot() {
			a.Direction = a.Direction.Reverse()
		}
		c.enterTile(a, a.Tile, a.X, a.Y)
		c.repaint(a)
		return
	}

	ah, bh := a.Status&consist.StatusHidden, b.Status&consist.StatusHidden
	a.Status = a.Status&^consist.StatusHidden | bh
	b.Status = b.Status&^consist.StatusHidden | ah

	a.Track, b.Track = b.Track, a.Track
	a.Direction, b.Direction = b.Direction, a.Direction
	if !a.InDepot() {
		a.Direction = a.Direction.Reverse()
	}
	if !b.InDepot() {
		b.Direction = b.Direction.Reverse()
	}

	a.X, b.X = b.X, a.X
	a.Y, b.Y = b.Y, a.Y
	a.Tile, b.Tile = b.Tile, a.Tile
	a.Z, b.Z = b.Z, a.Z
	swapSlopeFlags(a, b)

	c.enterTile(a, a.Tile, a.X, a.Y)
	c.enterTile(b, b.Tile, b.X, b.Y)
	c.repaint(a)
	c.repaint(b)
}

// swapSlopeFlags hands each unit the other's slope state, inverted since
// it now faces the other way.
func swapSlopeFlags(a, b *consist.Vehicle) {
	fa, fb := a.Flags, b.Flags
	const slope = consist.FlagGoingUp | consist.FlagGoingDown
	a.Flags &^= slope
	b.Flags &^= slope
	b.Flags |= invertSlope(fa)
	a.Flags |= invertSlope(fb)
}

func invertSlope(f consist.RailFlags) consist.RailFlags {
	switch {
	case f&consist.FlagGoingUp != 0:
		return consist.FlagGoingDown
	case f&consist.FlagGoingDown != 0:
		return consist.FlagGoingUp
	}
	return 0
}
