package train

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/trackworks/railcore/internal/consist"
	"github.com/trackworks/railcore/internal/events"
	"github.com/trackworks/railcore/internal/rail"
	"github.com/trackworks/railcore/internal/world"
	"github.com/trackworks/railcore/pkg/core"
)

// cargoAgePeriod is the number of ticks between two cargo aging steps.
const cargoAgePeriod = 185

// Reporter receives simulation defects such as disconnected trains.
type Reporter interface {
	Report(ctx context.Context, err error, tags map[string]string)
}

// Simulator runs the per-tick and per-day loops over every train in the
// pool.
type Simulator struct {
	*Controller

	reporter Reporter
	metrics  *simMetrics

	cargoSkip uint8
	dayTick   int
}

// NewSimulator wraps c. reporter may be nil.
func NewSimulator(c *Controller, reporter Reporter) (*Simulator, error) {
	m, err := newSimMetrics()
	if err != nil {
		return nil, err
	}
	if c.Loader == nil {
		c.Loader = StationLoader{Rate: 5, Ticks: 20}
	}
	if c.Log == nil {
		c.Log = slog.Default()
	}
	return &Simulator{Controller: c, reporter: reporter, metrics: m, cargoSkip: 1}, nil
}

// Ticks returns how many ticks have run.
func (s *Simulator) Ticks() uint64 { return s.tick }

// Date returns the number of days simulated so far.
func (s *Simulator) Date() int32 { return s.date }

// Reversals returns how many times any train has reversed.
func (s *Simulator) Reversals() uint64 { return s.reversals }

// SignalWaits returns the total ticks heads have waited at red signals.
func (s *Simulator) SignalWaits() uint64 { return s.waits }

// DrainCrashes returns and forgets the collisions since the last call.
func (s *Simulator) DrainCrashes() []core.CrashEvent {
	out := s.crashes
	s.crashes = nil
	return out
}

// Tick advances the world by one tick. ctx is checked between trains; a
// cancelled tick returns ctx.Err() with the trains handled so far moved.
func (s *Simulator) Tick(ctx context.Context) (core.TickStats, error) {
	start := time.Now()
	s.tick++
	reversals, waits, crashes := s.reversals, s.waits, len(s.crashes)

	if s.cargoSkip == 0 {
		s.cargoSkip = cargoAgePeriod - 1
	} else {
		s.cargoSkip--
	}

	for _, v := range s.Pool.Vehicles() {
		if err := ctx.Err(); err != nil {
			return core.TickStats{}, err
		}
		if !s.Pool.Contains(v) {
			continue
		}
		s.vehicleTick(ctx, v)
	}

	s.dayTick++
	if s.dayTick >= max(s.Params.TicksPerDay, 1) {
		s.dayTick = 0
		s.date++
		for _, head := range s.Pool.Heads() {
			s.onNewDay(head)
		}
		if s.Params.DaysPerYear > 0 && int(s.date)%s.Params.DaysPerYear == 0 {
			s.onNewYear()
		}
	}

	units := s.Pool.Vehicles()
	stats := core.TickStats{
		Tick:      s.tick,
		Time:      start,
		Vehicles:  len(units),
		Checksum:  Checksum(units),
		Reversals: s.reversals,
	}
	for _, v := range units {
		if v.IsHead() && v.IsFrontEngine() {
			stats.Trains++
			if v.IsCrashed() {
				stats.Crashed++
			}
		}
	}
	stats.Duration = time.Since(start)
	s.metrics.record(ctx, stats.Duration, len(s.crashes)-crashes, s.reversals-reversals, s.waits-waits)
	return stats, nil
}

func (s *Simulator) vehicleTick(ctx context.Context, v *consist.Vehicle) {
	if s.cargoSkip == 0 && v.CargoDays != 0xFF {
		v.CargoDays++
	}
	v.TickCounter++

	switch {
	case v.IsFrontEngine() && v.IsHead():
		if err := s.locoHandler(v, false); err != nil {
			s.defect(ctx, v, err)
			return
		}
		if s.Pool.Contains(v) && v.IsFrontEngine() {
			if err := s.locoHandler(v, true); err != nil {
				s.defect(ctx, v, err)
			}
		}
	case v.IsFreeCar() && v.IsHead() && v.IsCrashed():
		v.CrashAnimPos++
		if v.CrashAnimPos >= freeCarScrap {
			if rest := v.Detach(); rest != nil {
				rest.Subtype = consist.FreeCar
			}
			s.Pool.Remove(v)
		}
	}
}

func (s *Simulator) defect(ctx context.Context, head *consist.Vehicle, err error) {
	head.CurSpeed = 0
	s.Log.Error("train defect",
		"train", head.Index,
		"tile", head.Tile,
		"tick", s.tick,
		"error", err)
	if s.reporter != nil {
		s.reporter.Report(ctx, err, map[string]string{
			"train": strconv.FormatUint(uint64(head.Index), 10),
			"tile":  strconv.FormatUint(uint64(head.Tile), 10),
			"tick":  strconv.FormatUint(s.tick, 10),
		})
	}
}

// locoHandler runs one half of a head's tick. The second half (mode true)
// only moves the train; crashes, smoke and loading are handled in the
// first.
func (s *Simulator) locoHandler(head *consist.Vehicle, mode bool) error {
	if head.CrashAnimPos != 0 {
		if !mode {
			s.handleCrashed(head)
		}
		return nil
	}

	if head.ForceProceed != 0 {
		head.ForceProceed--
	}

	if head.BreakdownCtr != 0 {
		if head.BreakdownCtr <= 2 {
			s.handleBroken(head)
			return nil
		}
		head.BreakdownCtr--
	}

	if head.Has(consist.FlagReversing) && head.CurSpeed == 0 {
		s.Reverse(head)
	}

	if head.IsStopped() && head.CurSpeed == 0 {
		return nil
	}

	if s.processOrder(head) {
		s.reverseStopped(head)
		return nil
	}

	s.handleLoading(head, mode)
	if head.CurrentOrder.Is(consist.OrderLoading) {
		return nil
	}

	if s.checkStayInDepot(head) {
		return nil
	}

	if !mode {
		s.smoke(head)
	}

	j := s.Physics.UpdateSpeed(head)
	if j == 0 {
		if head.CurSpeed != 0 {
			return nil
		}
	} else {
		s.checkIfLineEnds(head)

		for ; j > 0; j-- {
			if err := s.move(head); err != nil {
				return err
			}
			s.checkCollision(head)
			if head.CurSpeed <= 0x100 {
				break
			}
		}
	}

	head.LastSpeed = head.CurSpeed
	return nil
}

// move steps the train once and reacts to the outcome.
func (s *Simulator) move(head *consist.Vehicle) error {
	out := s.Step(head)
	res := out.Result
	if res == RedLight && !s.waitAtSignal(head, out) {
		res = ReverseRequested
	}
	switch res {
	case InvalidRail, ReverseRequested:
		s.reverseStopped(head)
	case Disconnected:
		return fmt.Errorf("train %d at tile %d: %w", head.Index, out.Tile, ErrDisconnected)
	}
	return nil
}

// waitAtSignal holds head in front of the red signal of out and reports
// whether it keeps waiting. Heads give up after a while, and at once at a
// two-way signal when a train waits on the other side.
func (s *Simulator) waitAtSignal(head *consist.Vehicle, out Outcome) bool {
	head.CurSpeed = 0
	head.SubSpeed = 0
	s.waits++

	pair := s.Grid.SignalState(out.Tile, out.Trackdir)
	if pair.Against == world.AspectNone {
		head.Progress = 255 - 100
		head.LoadUnloadTimeRem++
		return int(head.LoadUnloadTimeRem) < s.Params.WaitOneway*20
	}

	head.Progress = 255 - 10
	head.LoadUnloadTimeRem++
	if int(head.LoadUnloadTimeRem) >= s.Params.WaitTwoway*73 {
		return false
	}
	return !s.vehicleAtSignal(s.Grid.Neighbour(out.Tile, out.Enter), out.Dir.Reverse())
}

// vehicleAtSignal reports whether a head on t faces roughly dir, or
// stands almost still facing anywhere but backwards.
func (s *Simulator) vehicleAtSignal(t world.TileIndex, dir rail.Direction) bool {
	if t == world.InvalidTile {
		return false
	}
	for _, u := range s.Pool.OnTile(t) {
		if !u.IsFrontEngine() || !u.IsHead() {
			continue
		}
		diff := (u.Direction - dir + 2) & 7
		if diff == 2 || (u.CurSpeed <= 5 && diff <= 4) {
			return true
		}
	}
	return false
}

func (s *Simulator) onNewDay(head *consist.Vehicle) {
	head.DayCounter++
	s.checkBreakdown(head)
	head.Age++

	s.checkIfNeedsService(head)

	if s.Params.LostTrainDays > 0 && len(head.Orders) > 0 && !head.IsStopped() && !head.IsCrashed() {
		head.DaysSinceOrderProgress++
		if int(head.DaysSinceOrderProgress) >= s.Params.LostTrainDays {
			head.DaysSinceOrderProgress = 0
			s.emit(core.EventNews, head, events.NewsTrainLost, map[string]any{"unit": head.UnitNumber})
		}
	}

	if o := head.CurrentOrder; o.Is(consist.OrderGotoStation) {
		if st, ok := s.Grid.Station(o.Station); ok && st.Tile != world.InvalidTile {
			head.DestTile = st.Tile
		}
	}

	if !head.IsStopped() && s.Params.DaysPerYear > 0 {
		var cost int64
		for u := head; u != nil; u = u.Next() {
			cost += int64(s.Engines.Info(u.Engine).RunningCost)
		}
		head.ProfitThisYear -= cost / int64(s.Params.DaysPerYear)
	}
}

func (s *Simulator) onNewYear() {
	for _, head := range s.Pool.Heads() {
		if s.Params.TrainIncomeWarn && head.Age >= 730 && head.ProfitThisYear < 0 {
			s.emit(core.EventNews, head, events.NewsTrainUnprofitable, map[string]any{
				"unit":   head.UnitNumber,
				"profit": head.ProfitThisYear,
			})
		}
		head.ProfitLastYear = head.ProfitThisYear
		head.ProfitThisYear = 0
	}
}
