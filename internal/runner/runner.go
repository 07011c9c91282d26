// Package runner drives a scenario: it builds the world and the trains,
// ticks the simulator, dispatches the scenario's timed commands between
// ticks and submits what each tick produced to the recording worker.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/trackworks/railcore/internal/command"
	"github.com/trackworks/railcore/internal/config"
	"github.com/trackworks/railcore/internal/dispatcher"
	"github.com/trackworks/railcore/internal/events"
	"github.com/trackworks/railcore/internal/monitor"
	"github.com/trackworks/railcore/internal/parser"
	"github.com/trackworks/railcore/internal/pathfind"
	"github.com/trackworks/railcore/internal/physics"
	"github.com/trackworks/railcore/internal/pool"
	"github.com/trackworks/railcore/internal/scenario"
	"github.com/trackworks/railcore/internal/session"
	"github.com/trackworks/railcore/internal/train"
	"github.com/trackworks/railcore/internal/worker"
	"github.com/trackworks/railcore/internal/world"
	"github.com/trackworks/railcore/pkg/core"
)

// seedMix derives the second PCG word from the configured seed.
const seedMix = 0x9E3779B97F4A7C15

// Options configure a Runner. Scenario and Recorder are required.
type Options struct {
	Scenario *scenario.Scenario
	Sim      config.SimConfig
	Train    train.Params
	Command  command.Params
	Physics  physics.Params

	// StateInterval is how many ticks apart train states are sampled;
	// zero records no states.
	StateInterval int
	// EventLimit bounds the events kept between two drains.
	EventLimit int

	Session  *session.Context
	Recorder *worker.Manager
	Reporter train.Reporter
	Logger   *slog.Logger
}

// defectCounter is implemented by reporters that count what they reported.
type defectCounter interface {
	Count() uint64
}

// Runner owns the simulation goroutine state. Only Status may be called
// from other goroutines.
type Runner struct {
	opts       Options
	world      *scenario.World
	sim        *train.Simulator
	commands   *command.Manager
	dispatcher *dispatcher.Dispatcher
	events     *events.Buffer
	capturer   *worker.Capturer
	logger     *slog.Logger

	nextCommand   int
	commandErrors atomic.Uint64
	started       time.Time
	last          atomic.Pointer[core.TickStats]
}

// New builds the world of the scenario and its trains.
func New(opts Options) (*Runner, error) {
	if opts.Scenario == nil || opts.Recorder == nil {
		return nil, fmt.Errorf("runner needs a scenario and a recorder")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Session == nil {
		opts.Session = session.NewContext()
	}

	w, err := opts.Scenario.Build()
	if err != nil {
		return nil, fmt.Errorf("build scenario %s: %w", opts.Scenario.Name, err)
	}

	kind, err := pathfind.ParseKind(opts.Sim.Pathfinder)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewPCG(opts.Sim.Seed, opts.Sim.Seed^seedMix))
	path, err := pathfind.New(kind, w.Grid, rng, pathfind.Options{
		SearchLimit:     opts.Sim.SearchLimit,
		Forbid90:        opts.Sim.Forbid90,
		LineReverseMode: opts.Sim.LineReverseMode,
	})
	if err != nil {
		return nil, fmt.Errorf("create pathfinder: %w", err)
	}

	p := pool.New(opts.Sim.MaxVehicles)
	phys := physics.New(opts.Physics, w.Grid)
	phys.Realistic = opts.Command.Realistic
	phys.NewNonstop = opts.Train.NewNonstop

	buf := events.NewBuffer(opts.EventLimit)
	sim, err := train.NewSimulator(&train.Controller{
		Grid:    w.Grid,
		Signals: world.NewBlockManager(w.Grid, p),
		Pool:    p,
		Path:    path,
		Physics: phys,
		Engines: w.Engines,
		Events:  buf,
		Loader:  train.StationLoader{Rate: 5, Ticks: 20},
		Params:  opts.Train,
		Rand:    rng,
		Log:     opts.Logger.With("component", "train"),
	}, opts.Reporter)
	if err != nil {
		return nil, fmt.Errorf("create simulator: %w", err)
	}

	d, err := dispatcher.New(opts.Logger.With("component", "dispatcher"))
	if err != nil {
		return nil, fmt.Errorf("create dispatcher: %w", err)
	}
	mgr := command.NewManager(sim, opts.Command, opts.Logger.With("component", "command"))
	mgr.RegisterHandlers(d, parser.NewParser(opts.Logger))

	heads, err := opts.Scenario.Populate(mgr, w.Grid)
	if err != nil {
		return nil, fmt.Errorf("populate scenario %s: %w", opts.Scenario.Name, err)
	}
	opts.Logger.Info("Scenario loaded",
		"scenario", opts.Scenario.Name,
		"width", w.Grid.Width(),
		"height", w.Grid.Height(),
		"trains", len(heads),
		"commands", len(opts.Scenario.Commands),
		"pathfinder", kind)

	return &Runner{
		opts:       opts,
		world:      w,
		sim:        sim,
		commands:   mgr,
		dispatcher: d,
		events:     buf,
		capturer:   worker.NewCapturer(w.Engines),
		logger:     opts.Logger,
	}, nil
}

// Layout describes the built world for the session record.
func (r *Runner) Layout() *core.Layout {
	return r.world.Layout
}

// NewSession returns the session record of a run of this scenario.
func (r *Runner) NewSession(name, tag string) *core.Session {
	if name == "" {
		name = r.opts.Scenario.Name
	}
	s := session.NewSession(name, r.opts.Scenario.Name, int64(r.opts.Sim.Seed))
	s.Pathfinder = string(r.sim.Path.Kind())
	s.Realistic = r.opts.Command.Realistic
	s.TicksPerDay = r.opts.Train.TicksPerDay
	s.Tag = tag
	return s
}

// Run records the starting state and then ticks until Sim.Ticks ticks have
// run, or until ctx is done when Sim.Ticks is zero.
func (r *Runner) Run(ctx context.Context) error {
	r.started = time.Now()
	initial := core.TickStats{Time: r.started, Vehicles: r.sim.Pool.Len()}
	if err := r.record(ctx, initial, r.opts.StateInterval > 0); err != nil {
		return err
	}

	limit := uint64(max(r.opts.Sim.Ticks, 0))
	for limit == 0 || r.sim.Ticks() < limit {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := r.Step(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Step dispatches the commands that are due and runs one tick.
func (r *Runner) Step(ctx context.Context) (core.TickStats, error) {
	if r.started.IsZero() {
		r.started = time.Now()
	}
	r.dispatchDue(r.sim.Ticks())

	stats, err := r.sim.Tick(ctx)
	if err != nil {
		return stats, err
	}
	r.opts.Session.SetTick(stats.Tick)
	r.last.Store(&stats)

	sample := r.opts.StateInterval > 0 && stats.Tick%uint64(r.opts.StateInterval) == 0
	return stats, r.record(ctx, stats, sample)
}

func (r *Runner) record(ctx context.Context, stats core.TickStats, withStates bool) error {
	snap := r.capturer.Capture(stats, r.sim.Pool.Heads(), withStates)
	snap.Events = r.events.Drain()
	snap.Crashes = r.sim.DrainCrashes()
	for _, c := range snap.Crashes {
		r.logger.Warn("Train crashed", "train", c.TrainID, "other", c.OtherID, "tile", c.Tile, "casualties", c.Casualties)
	}
	if err := r.opts.Recorder.Submit(ctx, snap); err != nil {
		return fmt.Errorf("submit tick %d: %w", stats.Tick, err)
	}
	return nil
}

// dispatchDue runs the scenario commands scheduled at or before tick. A
// failing command is logged and the run goes on, as a refused player
// action would.
func (r *Runner) dispatchDue(tick uint64) {
	due, next := r.opts.Scenario.CommandsAt(tick, r.nextCommand)
	r.nextCommand = next
	for _, c := range due {
		e := dispatcher.Event{
			Command: c.Command,
			Args:    append([]string(nil), c.Args...),
			Tick:    tick,
		}
		result, err := r.dispatcher.Dispatch(e)
		if err != nil {
			r.commandErrors.Add(1)
			r.logger.Warn("Command refused", "command", c.Command, "tick", tick, "error", err)
			continue
		}
		r.logger.Debug("Command applied", "command", c.Command, "tick", tick, "result", result)
	}
}

// CommandErrors returns how many scenario commands were refused.
func (r *Runner) CommandErrors() uint64 {
	return r.commandErrors.Load()
}

// Simulator exposes the simulator, e.g. for inspection in tools.
func (r *Runner) Simulator() *train.Simulator {
	return r.sim
}

var _ monitor.Source = (*Runner)(nil)

// Status reports the last tick and the recorder's backlog.
func (r *Runner) Status() monitor.Status {
	var st monitor.Status
	if last := r.last.Load(); last != nil {
		st.Tick = last.Tick
		st.Trains = last.Trains
		st.Vehicles = last.Vehicles
		st.Crashed = last.Crashed
		st.LastTickUs = last.Duration.Microseconds()
		if elapsed := last.Time.Sub(r.started).Seconds(); elapsed > 0 {
			st.TicksPerSec = float64(last.Tick) / elapsed
		}
	}
	st.EventsDropped = r.events.Dropped()
	st.RecordQueue = r.opts.Recorder.Pending()
	st.RecordFailures = r.opts.Recorder.Failures()
	st.LastWriteMs = float64(r.opts.Recorder.GetLastWriteDuration().Microseconds()) / 1000
	if dc, ok := r.opts.Reporter.(defectCounter); ok {
		st.DefectsReported = dc.Count()
	}
	return st
}
