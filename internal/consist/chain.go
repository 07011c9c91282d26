package consist

import (
	"errors"
	"fmt"
)

var (
	// ErrCycle is returned when a link would make a chain loop onto itself.
	ErrCycle = errors.New("link would form a cycle")
	// ErrNotChainHead is returned when linking a unit that is not the head of its chain.
	ErrNotChainHead = errors.New("unit is not the head of its chain")
)

// Next returns the following unit, nil at the end of the chain.
func (v *Vehicle) Next() *Vehicle { return v.next }

// First returns the head of v's chain. The answer is cached on v until the
// chain changes.
func (v *Vehicle) First() *Vehicle {
	if v.first != nil {
		return v.first
	}
	u := v
	for u.prev != nil {
		u = u.prev
	}
	v.first = u
	return u
}

// IsHead reports whether v leads its chain.
func (v *Vehicle) IsHead() bool { return v.prev == nil }

// Last returns the final unit of v's chain.
func (v *Vehicle) Last() *Vehicle {
	u := v
	for u.next != nil {
		u = u.next
	}
	return u
}

// Prev returns the unit in front of v, nil for the head.
func (v *Vehicle) Prev() *Vehicle { return v.prev }

// Count returns the number of units from v to the end of the chain.
func (v *Vehicle) Count() int {
	n := 0
	for u := v; u != nil; u = u.next {
		n++
	}
	return n
}

// At returns the i-th unit counting from v, nil past the end.
func (v *Vehicle) At(i int) *Vehicle {
	u := v
	for ; u != nil && i > 0; i-- {
		u = u.next
	}
	return u
}

// Units returns the chain from v onwards as a slice.
func (v *Vehicle) Units() []*Vehicle {
	out := make([]*Vehicle, 0, 8)
	for u := v; u != nil; u = u.next {
		out = append(out, u)
	}
	return out
}

// SetNext makes n follow v. Whatever followed v before becomes a chain of
// its own. n must head its chain and may not belong to v's.
func (v *Vehicle) SetNext(n *Vehicle) error {
	head := v.First()
	if n != nil {
		if !n.IsHead() {
			return fmt.Errorf("link unit %d after %d: %w", n.Index, v.Index, ErrNotChainHead)
		}
		if n == head {
			return fmt.Errorf("link unit %d after %d: %w", n.Index, v.Index, ErrCycle)
		}
	}
	old := v.next
	if old != nil {
		old.prev = nil
	}
	v.next = n
	if n != nil {
		n.prev = v
	}
	head.invalidate()
	if old != nil {
		old.invalidate()
	}
	return nil
}

// Detach removes v alone from its chain and returns the head of what
// remains, nil when v was the only unit.
func (v *Vehicle) Detach() *Vehicle {
	head := v.First()
	prev, rest := v.prev, v.next
	if prev != nil {
		prev.next = rest
	}
	if rest != nil {
		rest.prev = prev
	}
	v.prev, v.next, v.first = nil, nil, nil
	if head == v {
		head = rest
	}
	if head != nil {
		head.invalidate()
	}
	return head
}

// invalidate drops the cached head of every unit from v onwards.
func (v *Vehicle) invalidate() {
	for u := v; u != nil; u = u.next {
		u.first = nil
	}
}

// Validate checks the chain invariants starting at head: the chain ends,
// every cached head pointer is correct and every unit sits on a valid track
// state.
func Validate(head *Vehicle) error {
	if !head.IsHead() {
		return fmt.Errorf("unit %d: %w", head.Index, ErrNotChainHead)
	}
	seen := make(map[*Vehicle]struct{})
	for u := head; u != nil; u = u.next {
		if _, ok := seen[u]; ok {
			return fmt.Errorf("unit %d: %w", u.Index, ErrCycle)
		}
		seen[u] = struct{}{}
		if u.next != nil && u.next.prev != u {
			return fmt.Errorf("unit %d: back link of unit %d is broken", u.Index, u.next.Index)
		}
		if u.First() != head {
			return fmt.Errorf("unit %d caches head %d, chain head is %d", u.Index, u.First().Index, head.Index)
		}
		if u != head && u.Subtype != NotFirst {
			return fmt.Errorf("unit %d inside chain has subtype %s", u.Index, u.Subtype)
		}
		if !u.Track.IsSentinel() && !u.Track.Single() {
			return fmt.Errorf("unit %d on track state %#x", u.Index, uint8(u.Track))
		}
	}
	return nil
}
