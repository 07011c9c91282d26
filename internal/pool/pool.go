// Package pool owns every rail vehicle unit of a session.
package pool

import (
	"errors"
	"slices"
	"sync"

	"github.com/elliotchance/orderedmap/v2"

	"github.com/trackworks/railcore/internal/consist"
	"github.com/trackworks/railcore/internal/rail"
	"github.com/trackworks/railcore/internal/world"
)

// ErrFull is returned when the pool has no room for more units.
var ErrFull = errors.New("vehicle pool full")

// Pool keeps units in allocation order so every pass over it is
// deterministic. Lookups are safe from other goroutines; the simulation
// itself mutates units from a single goroutine.
type Pool struct {
	mu       sync.RWMutex
	vehicles *orderedmap.OrderedMap[consist.VehicleID, *consist.Vehicle]
	nextID   consist.VehicleID
	capacity int
}

var _ world.Occupancy = (*Pool)(nil)

// New creates a pool holding at most capacity units; zero means unbounded.
func New(capacity int) *Pool {
	return &Pool{
		vehicles: orderedmap.NewOrderedMap[consist.VehicleID, *consist.Vehicle](),
		capacity: capacity,
	}
}

// Reset drops every unit.
func (p *Pool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.vehicles = orderedmap.NewOrderedMap[consist.VehicleID, *consist.Vehicle]()
	p.nextID = 0
}

// CanAllocate reports whether n more units fit.
func (p *Pool) CanAllocate(n int) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.capacity == 0 || p.vehicles.Len()+n <= p.capacity
}

// Allocate creates a new standalone unit.
func (p *Pool) Allocate(owner world.Owner, engine consist.EngineID, sub consist.Subtype) (*consist.Vehicle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.capacity != 0 && p.vehicles.Len() >= p.capacity {
		return nil, ErrFull
	}
	for {
		if _, taken := p.vehicles.Get(p.nextID); !taken {
			break
		}
		p.nextID++
	}
	v := consist.New(p.nextID, owner, engine, sub)
	p.vehicles.Set(v.Index, v)
	p.nextID++
	return v, nil
}

// Add inserts an existing unit, e.g. one restored from a scenario.
func (p *Pool) Add(v *consist.Vehicle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.capacity != 0 && p.vehicles.Len() >= p.capacity {
		return ErrFull
	}
	p.vehicles.Set(v.Index, v)
	if v.Index >= p.nextID {
		p.nextID = v.Index + 1
	}
	return nil
}

// Get returns the unit with the given index.
func (p *Pool) Get(id consist.VehicleID) (*consist.Vehicle, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.vehicles.Get(id)
}

// Contains reports whether v is still alive.
func (p *Pool) Contains(v *consist.Vehicle) bool {
	got, ok := p.Get(v.Index)
	return ok && got == v
}

// Remove frees a unit. Chain links must have been cut before.
func (p *Pool) Remove(v *consist.Vehicle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.vehicles.Delete(v.Index)
}

func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.vehicles.Len()
}

// Vehicles returns every unit in allocation order. The slice is a copy, so
// units may be removed while walking it; check Contains before use.
func (p *Pool) Vehicles() []*consist.Vehicle {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*consist.Vehicle, 0, p.vehicles.Len())
	for el := p.vehicles.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value)
	}
	return out
}

// Heads returns the front engine of every train.
func (p *Pool) Heads() []*consist.Vehicle {
	var out []*consist.Vehicle
	for _, v := range p.Vehicles() {
		if v.IsFrontEngine() {
			out = append(out, v)
		}
	}
	return out
}

// OnTile returns the units whose position lies on tile t.
func (p *Pool) OnTile(t world.TileIndex) []*consist.Vehicle {
	return p.OnTiles(t)
}

// OnTiles returns the units standing on any of tiles, in allocation order.
func (p *Pool) OnTiles(tiles ...world.TileIndex) []*consist.Vehicle {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []*consist.Vehicle
	for el := p.vehicles.Front(); el != nil; el = el.Next() {
		if slices.Contains(tiles, el.Value.Tile) {
			out = append(out, el.Value)
		}
	}
	return out
}

// Occupied implements world.Occupancy. Units parked inside a depot never
// occupy track.
func (p *Pool) Occupied(t world.TileIndex, tracks rail.TrackBits) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for el := p.vehicles.Front(); el != nil; el = el.Next() {
		v := el.Value
		if v.Tile != t || v.InDepot() {
			continue
		}
		if v.Track&tracks != 0 {
			return true
		}
	}
	return false
}

// FreeUnitNumber returns the lowest unit number not used by a train of
// owner, or false when all numbers up to limit are taken.
func (p *Pool) FreeUnitNumber(owner world.Owner, limit uint16) (uint16, bool) {
	used := make(map[uint16]struct{})
	for _, v := range p.Heads() {
		if v.Owner == owner {
			used[v.UnitNumber] = struct{}{}
		}
	}
	for n := uint16(1); n <= limit; n++ {
		if _, ok := used[n]; !ok {
			return n, true
		}
	}
	return 0, false
}
