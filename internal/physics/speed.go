package physics

import (
	"github.com/trackworks/railcore/internal/consist"
	"github.com/trackworks/railcore/internal/rail"
)

// UpdateSpeed applies one tick of acceleration or braking to head and
// returns how many whole movement steps it may take this tick.
func (m *Model) UpdateSpeed(head *consist.Vehicle) int {
	var accel int
	braking := head.IsStopped() || head.Has(consist.FlagReversing)
	switch {
	case braking && m.Realistic:
		accel = m.Acceleration(head, ModeBrake) * 2
	case braking:
		accel = int(head.Acceleration) * -2
	case m.Realistic:
		accel = m.Acceleration(head, ModeAccel)
	default:
		accel = int(head.Acceleration)
	}

	spd := int(head.SubSpeed) + accel*2
	head.SubSpeed = uint8(spd)

	tempMax := int(head.MaxSpeed)
	if head.CurSpeed > head.MaxSpeed {
		tempMax = int(head.CurSpeed) - int(head.CurSpeed)/10 - 1
	}
	spd = min(max(int(head.CurSpeed)+spd>>8, 0), tempMax)
	head.CurSpeed = uint16(spd)

	// diagonal steps cover more ground
	if !head.Direction.IsAxial() {
		spd = spd * 3 >> 2
	}

	spd += int(head.Progress)
	head.Progress = uint8(spd)
	return spd >> 8
}

// AffectSpeedByDirChange slows head down for turning to newDir. It only
// applies to the simple acceleration model.
func (m *Model) AffectSpeedByDirChange(head *consist.Vehicle, newDir rail.Direction) {
	diff := (head.Direction - newDir) & 7
	if m.Realistic || diff == 0 {
		return
	}
	s := rail.SlowdownFor(head.RailType)
	slow := s.LargeTurn
	if diff == 1 || diff == 7 {
		slow = s.SmallTurn
	}
	head.CurSpeed -= uint16(uint32(slow) * uint32(head.CurSpeed) >> 8)
}

// AffectSpeedByZChange slows head down when it climbed since oldZ and
// speeds it up a little when it descended.
func (m *Model) AffectSpeedByZChange(head *consist.Vehicle, oldZ uint8) {
	if oldZ == head.Z || m.Realistic {
		return
	}
	s := rail.SlowdownFor(head.RailType)
	if oldZ < head.Z {
		head.CurSpeed -= uint16(uint32(head.CurSpeed) * uint32(s.ZUp) >> 8)
		return
	}
	if spd := head.CurSpeed + s.ZDown; spd <= head.MaxSpeed {
		head.CurSpeed = spd
	}
}
