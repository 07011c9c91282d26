package train

import (
	"github.com/trackworks/railcore/internal/consist"
	"github.com/trackworks/railcore/internal/events"
	"github.com/trackworks/railcore/pkg/core"
)

// breakdownChance maps the top six bits of the reliability to the
// breakdown chance a head has to reach before it fails.
var breakdownChance = [64]uint8{
	3, 3, 3, 3, 3, 3, 3, 3,
	4, 4, 5, 5, 6, 6, 7, 7,
	8, 8, 9, 9, 10, 10, 11, 11,
	12, 13, 13, 13, 13, 14, 15, 16,
	17, 19, 21, 25, 28, 31, 34, 37,
	40, 44, 48, 52, 56, 60, 64, 68,
	72, 80, 90, 100, 110, 120, 130, 140,
	150, 170, 190, 210, 230, 250, 250, 250,
}

// handleBroken runs one tick of a breakdown: the first tick stops the
// train, later ticks count the delay down.
func (c *Controller) handleBroken(head *consist.Vehicle) {
	if head.BreakdownCtr != 1 {
		head.BreakdownCtr = 1
		head.CurSpeed = 0
		if head.BreakdownsSinceService != 255 {
			head.BreakdownsSinceService++
		}
		c.emit(core.EventSound, head, events.SoundBreakdown, nil)
		if !head.IsHidden() {
			c.emit(core.EventEffect, head, events.EffectBreakdownSmoke, map[string]any{
				"x":        int(head.X) + 4,
				"y":        int(head.Y) + 4,
				"z":        int(head.Z) + 5,
				"duration": int(head.BreakdownDelay) * 2,
			})
		}
	}
	if head.TickCounter&3 == 0 {
		head.BreakdownDelay--
		if head.BreakdownDelay == 0 {
			head.BreakdownCtr = 0
		}
	}
}

// checkBreakdown wears head down by a day and decides whether it starts
// to break down.
func (c *Controller) checkBreakdown(head *consist.Vehicle) {
	head.Reliability -= min(head.Reliability, uint16(max(c.Params.ReliabilityDecay, 0)))

	if head.BreakdownCtr != 0 || head.IsStopped() || head.CurSpeed < 5 {
		return
	}

	r := c.Rand.Uint32()
	chance := int(head.BreakdownChance) + 1
	if uint16(r) <= 65536/25 {
		chance += 25
	}
	head.BreakdownChance = uint8(min(chance, 255))

	if c.Params.Breakdowns < 1 {
		return
	}
	rel := int(head.Reliability)
	if c.Params.Breakdowns == 1 {
		rel += 0x6666
	}
	if breakdownChance[min(rel, 0xFFFF)>>10] <= head.BreakdownChance {
		StartBreakdown(head, r)
	}
}

// StartBreakdown makes head fail; r supplies the counter and the delay.
func StartBreakdown(head *consist.Vehicle, r uint32) {
	head.BreakdownCtr = uint8(r>>16&0x3F) + 0x3F
	head.BreakdownDelay = uint8(r>>24&0x7F) + 0x80
	head.BreakdownChance = 0
}
