package command

import (
	"fmt"

	"github.com/trackworks/railcore/internal/consist"
	"github.com/trackworks/railcore/internal/world"
)

// Move takes unit src, and with chain every unit behind it, out of its
// chain. With hasDst the units are inserted right behind dst; otherwise
// an engine starts a new train and a wagon joins a free chain of its type
// in the depot or starts a new one. Both chains must stand stopped in the
// same depot.
func (m *Manager) Move(owner world.Owner, src, dst consist.VehicleID, hasDst, chain bool) error {
	s, err := m.vehicle(owner, src)
	if err != nil {
		return err
	}
	info := m.sim.Engines.Info(s.Engine)

	var d *consist.Vehicle
	if hasDst {
		if d, err = m.vehicle(owner, dst); err != nil {
			return err
		}
	} else if info.IsWagon() {
		if free := m.freeChainOf(owner, s.Tile, s.Engine, s.First()); free != nil {
			d = free.Last()
		}
	}
	if d == s {
		return nil
	}

	srcHead := s.First()
	if !stoppedInDepot(srcHead) {
		return fmt.Errorf("vehicle %d: %w", srcHead.Index, ErrNotStoppedInDepot)
	}
	var dstHead *consist.Vehicle
	if d != nil {
		dstHead = d.First()
		if !stoppedInDepot(dstHead) {
			return fmt.Errorf("vehicle %d: %w", dstHead.Index, ErrNotStoppedInDepot)
		}
		if dstHead.Tile != srcHead.Tile {
			return fmt.Errorf("vehicles %d and %d are in different depots: %w", srcHead.Index, dstHead.Index, ErrNotStoppedInDepot)
		}
		if chain && srcHead == dstHead && isBehind(d, s) {
			return fmt.Errorf("vehicle %d follows %d: %w", dst, src, consist.ErrCycle)
		}
	}

	moved := 1
	if chain {
		moved = s.Count()
	}
	if dstHead != nil && dstHead.IsFrontEngine() && srcHead != dstHead {
		limit := maxTrainLength
		if m.params.MammothTrains {
			limit = maxMammothTrainLength
		}
		if dstHead.Count()+moved > limit {
			return fmt.Errorf("train %d: %w", dstHead.Index, ErrTrainTooLong)
		}
	}

	var number uint16
	if d == nil && !info.IsWagon() && !s.IsFrontEngine() {
		var ok bool
		if number, ok = m.sim.Pool.FreeUnitNumber(owner, m.params.MaxTrains); !ok {
			return fmt.Errorf("owner %d: %w", owner, ErrTooManyTrains)
		}
	}

	var remain *consist.Vehicle
	if chain {
		if prev := s.Prev(); prev != nil {
			if err := prev.SetNext(nil); err != nil {
				return err
			}
			remain = srcHead
		}
	} else {
		wasHead := s == srcHead
		remain = s.Detach()
		if wasHead && remain != nil {
			becomeFreeChain(remain)
		}
	}

	if d == nil {
		switch {
		case info.IsWagon():
			s.Subtype = consist.FreeCar
		case !s.IsFrontEngine():
			s.Subtype = consist.FrontEngine
			s.UnitNumber = number
			s.SetStatus(consist.StatusStopped)
			s.ServiceInterval = uint16(max(m.sim.Params.ServintTrains, 0))
			s.DateOfLastService = m.sim.Date()
			s.Orders = nil
			s.CurrentOrder = consist.Order{}
			s.CurOrderIndex = 0
		}
		dstHead = s
	} else {
		if s.IsFrontEngine() {
			s.Orders = nil
			s.CurrentOrder = consist.Order{}
			s.UnitNumber = 0
		}
		s.Subtype = consist.NotFirst
		after := d.Next()
		if err := d.SetNext(s); err != nil {
			return err
		}
		if after != nil {
			if err := s.Last().SetNext(after); err != nil {
				return err
			}
		}
		dstHead = d.First()
	}

	if remain != nil && remain.IsHead() && remain != dstHead {
		m.recompute(remain)
	}
	m.recompute(dstHead)

	m.logger.Debug("moved vehicle", "owner", owner, "vehicle", src, "train", dstHead.Index, "chain", chain)
	return nil
}

// becomeFreeChain turns what is left of a train after its front engine
// was taken away into a free chain.
func becomeFreeChain(head *consist.Vehicle) {
	head.Subtype = consist.FreeCar
	head.UnitNumber = 0
	head.Orders = nil
	head.CurrentOrder = consist.Order{}
	head.CurOrderIndex = 0
}

// isBehind reports whether v follows u in their chain.
func isBehind(v, u *consist.Vehicle) bool {
	for w := u.Next(); w != nil; w = w.Next() {
		if w == v {
			return true
		}
	}
	return false
}

// Sell removes unit id, or with chain the unit and every unit behind it.
// When a front engine is sold alone, a following engine takes over the
// train with its unit number and orders; following wagons become a free
// chain. Selling the front of a multihead also sells its rear engine.
func (m *Manager) Sell(owner world.Owner, id consist.VehicleID, chain bool) error {
	v, err := m.vehicle(owner, id)
	if err != nil {
		return err
	}
	head := v.First()
	if !stoppedInDepot(head) {
		return fmt.Errorf("vehicle %d: %w", head.Index, ErrNotStoppedInDepot)
	}

	if chain {
		if prev := v.Prev(); prev != nil {
			if err := prev.SetNext(nil); err != nil {
				return err
			}
		}
		for _, u := range v.Units() {
			m.sim.Pool.Remove(u)
		}
		if head != v {
			m.recompute(head)
		}
		m.logger.Debug("sold chain", "owner", owner, "vehicle", id)
		return nil
	}

	var rear *consist.Vehicle
	if v == head && v.IsFrontEngine() && m.sim.Engines.Info(v.Engine).IsMultihead() {
		if last := v.Last(); last != v && last.Engine == v.Engine {
			rear = last
		}
	}

	if rear != nil {
		rear.Detach()
		m.sim.Pool.Remove(rear)
	}

	rest := v.Detach()
	m.sim.Pool.Remove(v)

	switch {
	case rest == nil:
	case v != head:
		m.recompute(rest)
	case v.IsFrontEngine() && !m.sim.Engines.Info(rest.Engine).IsWagon():
		rest.Subtype = consist.FrontEngine
		rest.UnitNumber = v.UnitNumber
		rest.Orders = v.Orders
		rest.CurrentOrder = v.CurrentOrder
		rest.CurOrderIndex = v.CurOrderIndex
		rest.ServiceInterval = v.ServiceInterval
		rest.DateOfLastService = v.DateOfLastService
		rest.Status = v.Status&^consist.StatusHidden | rest.Status&consist.StatusHidden
		m.recompute(rest)
	default:
		becomeFreeChain(rest)
		m.recompute(rest)
	}

	m.logger.Debug("sold vehicle", "owner", owner, "vehicle", id)
	return nil
}
