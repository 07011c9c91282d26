package train

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
	"github.com/trackworks/railcore/internal/world"
)

const (
	engineLoco consist.EngineID = iota
	engineWagon
)

func testEngines() *consist.EngineTable {
	return consist.NewEngineTable([]consist.EngineInfo{
		{Name: "loco", Power: 1000, Weight: 40, MaxSpeed: 160, Class: consist.ClassDiesel, Reliability: 0xC000},
		{Name: "coach", Weight: 20, Flags: consist.EngineWagon, Capacity: 30, CargoType: consist.CargoPassengers},
	})
}

type signalCall struct {
	tile  world.TileIndex
	dir   rail.Direction
	both  bool
	track rail.Track
}

// recordingSignals remembers every block update and reports blocks as
// busy on demand.
type recordingSignals struct {
	calls []signalCall
	busy  bool
}

func (r *recordingSignals) UpdateSignalsOnSegment(t world.TileIndex, dir rail.Direction) bool {
	r.calls = append(r.calls, signalCall{tile: t, dir: dir})
	return r.busy
}

func (r *recordingSignals) SetSignalsOnBothDir(t world.TileIndex, track rail.Track) {
	r.calls = append(r.calls, signalCall{tile: t, both: true, track: track})
}

func (r *recordingSignals) index(c signalCall) int {
	for i, got := range r.calls {
		if got == c {
			return i
		}
	}
	return -1
}

type fixture struct {
	g    *world.Grid
	pool *pool.Pool
	sig  *recordingSignals
	rec  *events.Recorder
	c    *Controller
}

func newFixture(t *testing.T, g *world.Grid) *fixture {
	t.Helper()
	rng := rand.New(rand.NewPCG(1, 2))
	path, err := pathfind.New(pathfind.KindLegacy, g, rng, pathfind.Options{SearchLimit: 1024})
	require.NoError(t, err)

	params := DefaultParams()
	params.Breakdowns = 0
	params.TicksPerDay = 1 << 20

	f := &fixture{g: g, pool: pool.New(0), sig: &recordingSignals{}, rec: &events.Recorder{}}
	f.c = &Controller{
		Grid:    g,
		Signals: f.sig,
		Pool:    f.pool,
		Path:    path,
		Physics: physics.New(physics.DefaultParams(), g),
		Engines: testEngines(),
		Events:  f.rec,
		Loader:  StationLoader{Rate: 5, Ticks: 20},
		Params:  params,
		Rand:    rng,
		Log:     slog.New(slog.DiscardHandler),
	}
	return f
}

// line lays straight X track on row 1 from column 0 up to, not
// including, column to.
func line(t *testing.T, width, to uint32) *world.Grid {
	t.Helper()
	g := world.NewGrid(width, 3)
	for x := uint32(0); x < to; x++ {
		require.NoError(t, g.SetRail(g.TileXY(x, 1), 1, rail.RailNormal, rail.TrackX.Bit()))
	}
	return g
}

// train builds a consist of n units, the head at sub-tile x on row 1,
// the others trailing a full unit length behind it.
func (f *fixture) train(t *testing.T, id consist.VehicleID, x int32, dir rail.Direction, n int) *consist.Vehicle {
	t.Helper()
	dx, dy := dir.Step()
	var head, last *consist.Vehicle
	for i := 0; i < n; i++ {
		sub, engine := consist.NotFirst, engineWagon
		if i == 0 {
			sub, engine = consist.FrontEngine, engineLoco
		}
		u := consist.New(id+consist.VehicleID(i), 1, engine, sub)
		u.X = x - dx*8*int32(i)
		u.Y = 24 - dy*8*int32(i)
		u.Tile = f.g.TileFromXY(u.X, u.Y)
		u.Direction = dir
		u.Track = rail.TrackX.Bit()
		if i > 0 {
			u.CargoType = consist.CargoPassengers
			u.CargoCap = 30
		}
		require.NoError(t, f.pool.Add(u))
		if head == nil {
			head = u
		} else {
			require.NoError(t, last.SetNext(u))
		}
		last = u
	}
	consist.ConsistChanged(head, f.c.Engines)
	consist.UpdateAcceleration(head)
	head.ServiceInterval = 150
	head.Reliability = 0xC000
	return head
}

type unitPos struct {
	tile  world.TileIndex
	x, y  int32
	dir   rail.Direction
	track rail.TrackBits
}

func positions(head *consist.Vehicle) []unitPos {
	var out []unitPos
	for u := head; u != nil; u = u.Next() {
		out = append(out, unitPos{u.Tile, u.X, u.Y, u.Direction, u.Track})
	}
	return out
}
