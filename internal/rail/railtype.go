package rail

// RailType is the track gauge family. Heads may only enter matching track.
type RailType uint8

const (
	RailNormal RailType = iota
	RailMono
	RailMaglev
)

func (r RailType) String() string {
	switch r {
	case RailNormal:
		return "normal"
	case RailMono:
		return "monorail"
	case RailMaglev:
		return "maglev"
	}
	return "unknown"
}

// Slowdown holds the fractions of speed (out of 256) removed by turning and
// climbing when realistic acceleration is off.
type Slowdown struct {
	SmallTurn uint16
	LargeTurn uint16
	ZUp       uint16
	ZDown     uint16
}

var slowdowns = [3]Slowdown{
	{SmallTurn: 256 / 4, LargeTurn: 256 / 2, ZUp: 256 / 4, ZDown: 2},
	{SmallTurn: 256 / 4, LargeTurn: 256 / 2, ZUp: 256 / 4, ZDown: 2},
	{SmallTurn: 0, LargeTurn: 256 / 2, ZUp: 256 / 4, ZDown: 2},
}

// SlowdownFor returns the slowdown parameters of r.
func SlowdownFor(r RailType) Slowdown {
	if int(r) >= len(slowdowns) {
		return slowdowns[0]
	}
	return slowdowns[r]
}
