package command

import (
	"log/slog"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trackworks/railcore/internal/consist"
	"github.com/trackworks/railcore/internal/events"
	"github.com/trackworks/railcore/internal/pathfind"
	"github.com/trackworks/railcore/internal/physics"
	"github.com/trackworks/railcore/internal/pool"
	"github.com/trackworks/railcore/internal/rail"
	"github.com/trackworks/railcore/internal/train"
	"github.com/trackworks/railcore/internal/world"
)

const (
	engineLoco consist.EngineID = iota
	engineCoach
	engineTwin
	engineMonorail
	engineDead
	engineHopper
)

func testEngines() *consist.EngineTable {
	return consist.NewEngineTable([]consist.EngineInfo{
		{Name: "loco", Power: 1000, Weight: 40, MaxSpeed: 160, Class: consist.ClassDiesel, Reliability: 0xC000, MaxAgeDays: 7320},
		{Name: "coach", Weight: 20, Flags: consist.EngineWagon, Capacity: 30, CargoType: consist.CargoPassengers, Refittable: true},
		{Name: "twin", Power: 800, Weight: 30, MaxSpeed: 140, Flags: consist.EngineMultihead, Class: consist.ClassElectric, Reliability: 0xB000},
		{Name: "mono", Power: 900, Weight: 30, MaxSpeed: 200, RailType: rail.RailMono},
		{Name: "dead", Weight: 30, MaxSpeed: 100},
		{Name: "hopper", Weight: 15, Flags: consist.EngineWagon, Capacity: 20, CargoType: consist.CargoCoal},
	})
}

type fixture struct {
	g     *world.Grid
	pool  *pool.Pool
	sim   *train.Simulator
	m     *Manager
	depot world.TileIndex
}

// newFixture lays a straight line on row 1 with owner 1's depot on
// column 2 opening south west.
func newFixture(t *testing.T, capacity int, params Params) *fixture {
	t.Helper()
	g := world.NewGrid(16, 3)
	for x := uint32(0); x < 16; x++ {
		require.NoError(t, g.SetRail(g.TileXY(x, 1), 1, rail.RailNormal, rail.TrackX.Bit()))
	}
	depot := g.TileXY(2, 1)
	_, err := g.SetDepot(depot, 1, rail.RailNormal, rail.DiagSW)
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(1, 2))
	path, err := pathfind.New(pathfind.KindLegacy, g, rng, pathfind.Options{SearchLimit: 1024})
	require.NoError(t, err)

	p := pool.New(capacity)
	tp := train.DefaultParams()
	tp.Breakdowns = 0
	c := &train.Controller{
		Grid:    g,
		Signals: world.NewBlockManager(g, p),
		Pool:    p,
		Path:    path,
		Physics: physics.New(physics.DefaultParams(), g),
		Engines: testEngines(),
		Events:  &events.Recorder{},
		Params:  tp,
		Rand:    rng,
		Log:     slog.New(slog.DiscardHandler),
	}
	sim, err := train.NewSimulator(c, nil)
	require.NoError(t, err)

	return &fixture{
		g:     g,
		pool:  p,
		sim:   sim,
		m:     NewManager(sim, params, slog.New(slog.DiscardHandler)),
		depot: depot,
	}
}

func (f *fixture) build(t *testing.T, engine consist.EngineID) *consist.Vehicle {
	t.Helper()
	v, err := f.m.Build(1, f.depot, engine)
	require.NoError(t, err)
	return v
}

// running puts a started single engine train on the line at sub-tile x of
// row 1.
func (f *fixture) running(t *testing.T, x int32, dir rail.Direction) *consist.Vehicle {
	t.Helper()
	head := f.build(t, engineLoco)
	head.X, head.Y = x, 24
	head.Tile = f.g.TileFromXY(head.X, head.Y)
	head.Direction = dir
	head.Track = rail.TrackX.Bit()
	head.ClearStatus(consist.StatusHidden | consist.StatusStopped)
	return head
}
