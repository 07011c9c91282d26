package train

import (
	"github.com/trackworks/railcore/internal/consist"
	"github.com/trackworks/railcore/internal/events"
	"github.com/trackworks/railcore/internal/rail"
	"github.com/trackworks/railcore/internal/world"
	"github.com/trackworks/railcore/pkg/core"
)

// smokePos holds the x then the y offset direction of the smoke stack
// for each heading.
var smokePos = [16]int{
	-4, -4, -4, 0, 4, 4, 4, 0,
	-4, 0, 4, 4, 4, 0, -4, -4,
}

func (c *Controller) emit(kind core.EventKind, v *consist.Vehicle, key string, params map[string]any) {
	if c.Events == nil {
		return
	}
	c.Events.Emit(core.Event{
		Tick:      c.tick,
		Kind:      kind,
		VehicleID: uint32(v.Index),
		Tile:      uint32(v.Tile),
		Key:       key,
		Params:    params,
	})
}

// repaint tells the presentation layer that v changed heading or place
// outside the normal move step, so its sprite and bounds are stale.
func (c *Controller) repaint(v *consist.Vehicle) {
	c.emit(core.EventImage, v, "", map[string]any{
		"direction": v.Direction.String(),
		"x":         int(v.X),
		"y":         int(v.Y),
		"z":         int(v.Z),
	})
}

// effect spawns a visual effect at an offset from v.
func (c *Controller) effect(v *consist.Vehicle, key string, dx, dy, dz int) {
	c.emit(core.EventEffect, v, key, map[string]any{
		"x": int(v.X) + dx,
		"y": int(v.Y) + dy,
		"z": int(v.Z) + dz,
	})
}

// leaveSoundKey is the sound a head makes when it pulls away.
func (c *Controller) leaveSoundKey(head *consist.Vehicle) string {
	switch head.RailType {
	case rail.RailMono:
		return events.SoundMaglev2
	case rail.RailMaglev:
		return events.SoundMaglev
	}
	if c.Engines.Info(head.Engine).Class == consist.ClassSteam {
		return events.SoundTrainSteam
	}
	return events.SoundTrainHorn
}

// smoke emits the exhaust of every unit of a moving train.
func (c *Controller) smoke(head *consist.Vehicle) {
	if head.Is(consist.StatusSlowing) || head.LoadUnloadTimeRem != 0 || head.CurSpeed < 2 {
		return
	}

	sound := false
	for v := head; v != nil; v = v.Next() {
		info := c.Engines.Info(v.Engine)
		offset := int(info.VisualEffect&0xF) - 8
		kind := int(info.VisualEffect>>4) & 3
		if (info.IsWagon() && kind == 0) || info.VisualEffect&0x40 != 0 || info.Flags&consist.EngineNoSmoke != 0 {
			continue
		}
		if info.RailType != rail.RailNormal || v.IsHidden() || v.Track.IsSentinel() {
			continue
		}
		if k := c.Grid.TileKind(v.Tile); k == world.TileDepot || k == world.TileTunnel {
			continue
		}

		if kind == 0 {
			kind = int(info.Class)
		} else {
			kind--
		}
		x := smokePos[v.Direction&7] * offset
		y := smokePos[v.Direction&7+8] * offset

		switch kind {
		case int(consist.ClassSteam):
			if v.TickCounter&0xF == 0 {
				c.effect(v, events.EffectSteamSmoke, x, y, 10)
				sound = true
			}
		case int(consist.ClassDiesel):
			if head.CurSpeed <= 40 && c.chance16(15, 128) {
				c.effect(v, events.EffectDieselSmoke, 0, 0, 10)
				sound = true
			}
		case int(consist.ClassElectric):
			if v.TickCounter&3 == 0 && c.chance16(1, 45) {
				c.effect(v, events.EffectElectricSpark, 0, 0, 10)
				sound = true
			}
		}
	}

	if sound {
		c.emit(core.EventSound, head, c.leaveSoundKey(head), map[string]any{"engine": true})
	}
}
