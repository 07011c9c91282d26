package scenario

import (
	"fmt"
	"strings"

	"github.com/trackworks/railcore/internal/consist"
	"github.com/trackworks/railcore/internal/geo"
	"github.com/trackworks/railcore/internal/rail"
	"github.com/trackworks/railcore/internal/world"
	"github.com/trackworks/railcore/pkg/core"
)

var trackNames = map[string]rail.Track{
	"x":     rail.TrackX,
	"y":     rail.TrackY,
	"upper": rail.TrackUpper,
	"lower": rail.TrackLower,
	"left":  rail.TrackLeft,
	"right": rail.TrackRight,
}

var trackdirNames = map[string]rail.Trackdir{
	"x_ne":    rail.TrackdirXNE,
	"y_se":    rail.TrackdirYSE,
	"upper_e": rail.TrackdirUpperE,
	"lower_e": rail.TrackdirLowerE,
	"left_s":  rail.TrackdirLeftS,
	"right_s": rail.TrackdirRightS,
	"x_sw":    rail.TrackdirXSW,
	"y_nw":    rail.TrackdirYNW,
	"upper_w": rail.TrackdirUpperW,
	"lower_w": rail.TrackdirLowerW,
	"left_n":  rail.TrackdirLeftN,
	"right_n": rail.TrackdirRightN,
}

var diagNames = map[string]rail.DiagDir{
	"ne": rail.DiagNE,
	"se": rail.DiagSE,
	"sw": rail.DiagSW,
	"nw": rail.DiagNW,
}

var railTypeNames = map[string]rail.RailType{
	"":         rail.RailNormal,
	"normal":   rail.RailNormal,
	"monorail": rail.RailMono,
	"maglev":   rail.RailMaglev,
}

func lookup[T any](table map[string]T, kind, name string) (T, error) {
	v, ok := table[strings.ToLower(name)]
	if !ok {
		var zero T
		return zero, fmt.Errorf("unknown %s %q: %w", kind, name, ErrInvalid)
	}
	return v, nil
}

func parseTracks(names []string) (rail.TrackBits, error) {
	var bits rail.TrackBits
	for _, n := range names {
		t, err := lookup(trackNames, "track", n)
		if err != nil {
			return 0, err
		}
		bits |= t.Bit()
	}
	if bits == rail.TrackBitsNone {
		return 0, fmt.Errorf("no tracks: %w", ErrInvalid)
	}
	return bits, nil
}

// World is everything a simulator needs from a scenario before trains are
// built.
type World struct {
	Grid    *world.Grid
	Engines *consist.EngineTable
	Layout  *core.Layout
	// Frame is nil for grids without a map anchor.
	Frame *geo.Frame
}

// Build lays out the grid of sc. Slopes go first so that track and
// tunnels keep their heights; signals go last since they need track.
func (sc *Scenario) Build() (*World, error) {
	g := world.NewGrid(sc.Width, sc.Height)
	b := builder{sc: sc, g: g}

	steps := []func() error{b.slopes, b.rails, b.stations, b.depots, b.tunnels, b.crossings, b.signals}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}

	frame, err := sc.Frame()
	if err != nil {
		return nil, err
	}

	layout := &core.Layout{Width: sc.Width, Height: sc.Height, Depots: len(sc.Depots)}
	for _, st := range g.Stations() {
		x, y := g.TileOrigin(st.Tile)
		layout.Stations = append(layout.Stations, core.Station{
			ID:   uint16(st.ID),
			Name: st.Name,
			Tile: uint32(st.Tile),
			At:   core.Position{X: x + 8, Y: y + 8, Z: g.SlopeZ(x+8, y+8)},
		})
	}

	return &World{
		Grid:    g,
		Engines: consist.NewEngineTable(sc.Engines),
		Layout:  layout,
		Frame:   frame,
	}, nil
}

type builder struct {
	sc *Scenario
	g  *world.Grid
}

func (b builder) tile(p Point) (world.TileIndex, error) {
	if p.X >= b.sc.Width || p.Y >= b.sc.Height {
		return world.InvalidTile, fmt.Errorf("tile (%d,%d) outside %dx%d grid: %w", p.X, p.Y, b.sc.Width, b.sc.Height, ErrInvalid)
	}
	return b.g.TileXY(p.X, p.Y), nil
}

func (b builder) slopes() error {
	for _, s := range b.sc.Slopes {
		t, err := b.tile(s.At)
		if err != nil {
			return err
		}
		rise := rail.DiagInvalid
		if s.Rise != "" {
			if rise, err = lookup(diagNames, "edge", s.Rise); err != nil {
				return err
			}
		}
		if err := b.g.SetSlope(t, s.Height, rise); err != nil {
			return err
		}
	}
	return nil
}

func (b builder) rails() error {
	for i, r := range b.sc.Rails {
		tracks, err := parseTracks(r.Tracks)
		if err != nil {
			return fmt.Errorf("rail %d: %w", i, err)
		}
		rt, err := lookup(railTypeNames, "rail type", r.RailType)
		if err != nil {
			return fmt.Errorf("rail %d: %w", i, err)
		}
		to := r.From
		if r.To != nil {
			to = *r.To
		}
		if to.X < r.From.X || to.Y < r.From.Y {
			return fmt.Errorf("rail %d: end (%d,%d) before start: %w", i, to.X, to.Y, ErrInvalid)
		}
		for y := r.From.Y; y <= to.Y; y++ {
			for x := r.From.X; x <= to.X; x++ {
				t, err := b.tile(Point{X: x, Y: y})
				if err != nil {
					return fmt.Errorf("rail %d: %w", i, err)
				}
				if err := b.g.SetRail(t, world.Owner(b.sc.owner(r.Owner)), rt, tracks); err != nil {
					return fmt.Errorf("rail %d: %w", i, err)
				}
			}
		}
	}
	return nil
}

func (b builder) stations() error {
	for _, s := range b.sc.Stations {
		axis, err := lookup(trackNames, "axis", s.Axis)
		if err != nil {
			return fmt.Errorf("station %d: %w", s.ID, err)
		}
		rt, err := lookup(railTypeNames, "rail type", s.RailType)
		if err != nil {
			return fmt.Errorf("station %d: %w", s.ID, err)
		}
		dx, dy := uint32(1), uint32(0)
		if axis == rail.TrackY {
			dx, dy = 0, 1
		}
		for n := range max(s.Length, 1) {
			t, err := b.tile(Point{X: s.At.X + n*dx, Y: s.At.Y + n*dy})
			if err != nil {
				return fmt.Errorf("station %d: %w", s.ID, err)
			}
			id := world.StationID(s.ID)
			if err := b.g.SetStation(t, world.Owner(b.sc.owner(s.Owner)), rt, id, axis); err != nil {
				return fmt.Errorf("station %d: %w", s.ID, err)
			}
		}
		if st, ok := b.g.Station(world.StationID(s.ID)); ok && s.Name != "" {
			st.Name = s.Name
		}
	}
	return nil
}

func (b builder) depots() error {
	for i, d := range b.sc.Depots {
		t, err := b.tile(d.At)
		if err != nil {
			return fmt.Errorf("depot %d: %w", i, err)
		}
		exit, err := lookup(diagNames, "edge", d.Exit)
		if err != nil {
			return fmt.Errorf("depot %d: %w", i, err)
		}
		rt, err := lookup(railTypeNames, "rail type", d.RailType)
		if err != nil {
			return fmt.Errorf("depot %d: %w", i, err)
		}
		if _, err := b.g.SetDepot(t, world.Owner(b.sc.owner(d.Owner)), rt, exit); err != nil {
			return fmt.Errorf("depot %d: %w", i, err)
		}
	}
	return nil
}

func (b builder) tunnels() error {
	for i, tn := range b.sc.Tunnels {
		a, err := b.tile(tn.A)
		if err != nil {
			return fmt.Errorf("tunnel %d: %w", i, err)
		}
		z, err := b.tile(tn.B)
		if err != nil {
			return fmt.Errorf("tunnel %d: %w", i, err)
		}
		into, err := lookup(diagNames, "edge", tn.Into)
		if err != nil {
			return fmt.Errorf("tunnel %d: %w", i, err)
		}
		rt, err := lookup(railTypeNames, "rail type", tn.RailType)
		if err != nil {
			return fmt.Errorf("tunnel %d: %w", i, err)
		}
		if err := b.g.SetTunnel(a, z, world.Owner(b.sc.owner(tn.Owner)), rt, into); err != nil {
			return fmt.Errorf("tunnel %d: %w", i, err)
		}
	}
	return nil
}

func (b builder) crossings() error {
	for i, c := range b.sc.Crossings {
		t, err := b.tile(c.At)
		if err != nil {
			return fmt.Errorf("crossing %d: %w", i, err)
		}
		axis, err := lookup(trackNames, "axis", c.Axis)
		if err != nil {
			return fmt.Errorf("crossing %d: %w", i, err)
		}
		if axis != rail.TrackX && axis != rail.TrackY {
			return fmt.Errorf("crossing %d: axis %s: %w", i, axis, ErrInvalid)
		}
		rt, err := lookup(railTypeNames, "rail type", c.RailType)
		if err != nil {
			return fmt.Errorf("crossing %d: %w", i, err)
		}
		if err := b.g.SetCrossing(t, world.Owner(b.sc.owner(c.Owner)), rt, axis); err != nil {
			return fmt.Errorf("crossing %d: %w", i, err)
		}
	}
	return nil
}

func (b builder) signals() error {
	for i, s := range b.sc.Signals {
		t, err := b.tile(s.At)
		if err != nil {
			return fmt.Errorf("signal %d: %w", i, err)
		}
		for _, name := range s.Trackdirs {
			td, err := lookup(trackdirNames, "trackdir", name)
			if err != nil {
				return fmt.Errorf("signal %d: %w", i, err)
			}
			if err := b.g.SetSignal(t, td); err != nil {
				return fmt.Errorf("signal %d: %w", i, err)
			}
		}
	}
	return nil
}
