package train

import (
	"slices"
	"time"

	"github.com/trackworks/railcore/internal/consist"
	"github.com/trackworks/railcore/internal/events"
	"github.com/trackworks/railcore/internal/rail"
	"github.com/trackworks/railcore/internal/world"
	"github.com/trackworks/railcore/pkg/core"
)

// Crash animation milestones, in ticks since the crash.
const (
	crashExplosion   = 4
	crashSmallBlasts = 200
	crashShaking     = 240
	crashScrapStart  = 4440
	freeCarScrap     = 4400
)

// collisionRange is the x/y distance below which two units collide.
const collisionRange = 6

var randomDirChange = [4]int{-1, 0, 0, 1}

// checkCollision crashes v's train and the train it ran into, if any.
func (c *Controller) checkCollision(v *consist.Vehicle) {
	if v.InDepot() {
		return
	}

	var hit *consist.Vehicle
	for _, u := range c.Pool.OnTiles(c.collisionTiles(v)...) {
		if u == v || u == v.Next() || u.InDepot() || u.First() == v {
			continue
		}
		if absDiff(int32(u.Z), int32(v.Z)) <= 6 && absDiff(u.X, v.X) < collisionRange && absDiff(u.Y, v.Y) < collisionRange {
			hit = u
			break
		}
	}
	if hit == nil {
		return
	}
	coll := hit.First()
	if v.InTunnel() && v.Direction&2 != hit.Direction&2 {
		return
	}

	casualties := 2 + consist.Passengers(v)
	if !coll.IsCrashed() {
		casualties += 2 + consist.Passengers(coll)
	}
	c.setCrashed(v)
	if coll.IsFrontEngine() {
		c.setCrashed(coll)
	}

	c.emit(core.EventNews, v, events.NewsTrainCrash, map[string]any{"casualties": casualties})
	c.Grid.ModifyStationRating(v.Tile, v.Owner, -160, 30)
	c.emit(core.EventSound, v, events.SoundBigCrash, nil)
	c.crashes = append(c.crashes, core.CrashEvent{
		Tick:       c.tick,
		Time:       time.Now(),
		TrainID:    uint32(v.Index),
		OtherID:    uint32(coll.Index),
		Tile:       uint32(v.Tile),
		Position:   core.Position{X: v.X, Y: v.Y, Z: v.Z},
		Casualties: casualties,
	})
	if c.Log != nil {
		c.Log.Warn("train crash",
			"train", v.Index,
			"other", coll.Index,
			"tile", v.Tile,
			"casualties", casualties)
	}
}

// collisionTiles lists the tiles a unit within collision range of v can
// stand on: those under the corners of the tolerance box, v's own tile and,
// inside a tunnel, the far portal.
func (c *Controller) collisionTiles(v *consist.Vehicle) []world.TileIndex {
	const r = collisionRange - 1
	tiles := []world.TileIndex{v.Tile}
	add := func(t world.TileIndex) {
		if t != world.InvalidTile && !slices.Contains(tiles, t) {
			tiles = append(tiles, t)
		}
	}
	for _, d := range [4][2]int32{{-r, -r}, {-r, r}, {r, -r}, {r, r}} {
		add(c.Grid.TileFromXY(v.X+d[0], v.Y+d[1]))
	}
	if v.InTunnel() {
		_, far := c.Grid.TunnelPortal(v.Tile)
		add(far)
	}
	return tiles
}

// setCrashed marks every unit of v's train as crashed. Trains that are
// already crashed are left alone.
func (c *Controller) setCrashed(v *consist.Vehicle) {
	if v.CrashAnimPos != 0 {
		return
	}
	v.CrashAnimPos = 1
	for u := v; u != nil; u = u.Next() {
		u.SetStatus(consist.StatusCrashed)
	}
}

// handleCrashed runs one tick of the wreck animation of head's train and
// finally scraps it unit by unit from the back.
func (c *Controller) handleCrashed(head *consist.Vehicle) {
	head.CrashAnimPos++
	state := head.CrashAnimPos

	if state == crashExplosion && !head.InTunnel() {
		c.effect(head, events.EffectExplosionLarge, 4, 4, 8)
	}

	if state <= crashSmallBlasts {
		if r := c.Rand.Uint32(); uint16(r) <= 0x2492 {
			if u := head.At(c.Rand.IntN(head.Count())); u != nil {
				r = c.Rand.Uint32()
				c.effect(u, events.EffectExplosionSmall, 2+int((r>>8)&7), 2+int((r>>16)&7), 5+int(r&7))
			}
		}
	}

	if state <= crashShaking && head.TickCounter&3 == 0 {
		c.changeDirRandomly(head)
	}

	if state >= crashScrapStart && head.TickCounter&0x1F == 0 {
		c.deleteLastWagon(head)
	}
}

func (c *Controller) changeDirRandomly(head *consist.Vehicle) {
	for u := head; u != nil; u = u.Next() {
		if !u.InTunnel() {
			u.Direction = u.Direction.Turn(randomDirChange[c.Rand.Uint32()&3])
		}
		if !u.IsHidden() {
			c.afterSetPos(u, false)
		}
	}
}

// deleteLastWagon removes the last unit of head's train from the world.
// Signals around the track it occupied are recomputed.
func (c *Controller) deleteLastWagon(head *consist.Vehicle) {
	last := head.Last()
	last.Detach()
	c.Pool.Remove(last)

	if !last.Track.IsSentinel() {
		c.Signals.SetSignalsOnBothDir(last.Tile, last.Track.First())
	}
	c.disableCrossing(last.Tile)

	if !last.InTunnel() {
		return
	}
	_, far := c.Grid.TunnelPortal(last.Tile)
	if c.tunnelBusy(last.Tile, far) {
		return
	}
	var track rail.Track
	switch last.Direction {
	case rail.DirNE, rail.DirSW:
		track = rail.TrackX
	case rail.DirSE, rail.DirNW:
		track = rail.TrackY
	default:
		return
	}
	c.Signals.SetSignalsOnBothDir(last.Tile, track)
	c.Signals.SetSignalsOnBothDir(far, track)
}

// tunnelBusy reports whether any unit is inside the tunnel between
// portals a and b.
func (c *Controller) tunnelBusy(a, b world.TileIndex) bool {
	for _, u := range c.Pool.Vehicles() {
		if u.InTunnel() && (u.Tile == a || u.Tile == b) {
			return true
		}
	}
	return false
}

func absDiff(a, b int32) int32 {
	if a > b {
		return a - b
	}
	return b - a
}
