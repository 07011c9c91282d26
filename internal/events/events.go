// Package events carries presentation side effects (sounds, news, visual
// effects, redraw requests) out of the simulation.
package events

import (
	"github.com/trackworks/railcore/internal/queue"
	"github.com/trackworks/railcore/pkg/core"
)

// Sound keys.
const (
	SoundTrainSteam    = "train_steam"
	SoundTrainHorn     = "train_horn"
	SoundMaglev        = "maglev"
	SoundMaglev2       = "maglev_2"
	SoundBreakdown     = "breakdown"
	SoundBigCrash      = "big_crash"
	SoundLevelCrossing = "level_crossing"
	SoundTunnel        = "train_tunnel"
)

// News keys.
const (
	NewsFirstArrival      = "first_arrival"
	NewsTrainCrash        = "train_crash"
	NewsTrainLost         = "train_lost"
	NewsTrainUnprofitable = "train_unprofitable"
	NewsWaitingInDepot    = "waiting_in_depot"
)

// Effect keys.
const (
	EffectSteamSmoke     = "steam_smoke"
	EffectDieselSmoke    = "diesel_smoke"
	EffectElectricSpark  = "electric_spark"
	EffectBreakdownSmoke = "breakdown_smoke"
	EffectExplosionLarge = "explosion_large"
	EffectExplosionSmall = "explosion_small"
)

// Sink receives presentation events. Implementations must not block.
type Sink interface {
	Emit(e core.Event)
}

// Buffer collects events emitted during a tick until the runner drains it.
type Buffer struct {
	q *queue.Queue[core.Event]
}

var _ Sink = (*Buffer)(nil)

// NewBuffer returns a buffer holding at most limit undrained events;
// zero means unbounded.
func NewBuffer(limit int) *Buffer {
	if limit > 0 {
		return &Buffer{q: queue.NewBounded[core.Event](limit)}
	}
	return &Buffer{q: queue.New[core.Event]()}
}

func (b *Buffer) Emit(e core.Event) { b.q.Push(e) }

// Drain returns and forgets all buffered events in emission order.
func (b *Buffer) Drain() []core.Event { return b.q.Drain() }

func (b *Buffer) Len() int { return b.q.Len() }

// Dropped returns how many events were lost to the buffer limit.
func (b *Buffer) Dropped() uint64 { return b.q.Dropped() }

// Discard drops every event.
type Discard struct{}

func (Discard) Emit(core.Event) {}

// Recorder keeps every event; used by tests.
type Recorder struct {
	Events []core.Event
}

func (r *Recorder) Emit(e core.Event) { r.Events = append(r.Events, e) }

// Keys returns the keys of recorded events of kind k in order.
func (r *Recorder) Keys(k core.EventKind) []string {
	var out []string
	for _, e := range r.Events {
		if e.Kind == k {
			out = append(out, e.Key)
		}
	}
	return out
}

// Reset forgets recorded events.
func (r *Recorder) Reset() { r.Events = nil }
