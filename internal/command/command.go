// Package command implements the consist mutation commands: building,
// rearranging and selling units, and the controls a player has over a
// running train. Every command checks all its preconditions before it
// changes anything.
package command

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/trackworks/railcore/internal/consist"
	"github.com/trackworks/railcore/internal/train"
	"github.com/trackworks/railcore/internal/world"
)

var (
	ErrNotOwner          = errors.New("vehicle belongs to another owner")
	ErrWrongKind         = errors.New("wrong kind of vehicle")
	ErrPoolFull          = errors.New("too many vehicles in game")
	ErrNotStoppedInDepot = errors.New("train must be stopped inside a depot")
	ErrTrainTooLong      = errors.New("train too long")
	ErrCrashed           = errors.New("vehicle is crashed")
	ErrBrokenDown        = errors.New("vehicle is broken down")
	ErrNoDepot           = errors.New("no depot")
	ErrTooManyTrains     = errors.New("too many trains")
	ErrNoPower           = errors.New("train has no power")
	ErrInvalidValue      = errors.New("invalid value")
	ErrUnknownVehicle    = errors.New("unknown vehicle")
)

const (
	maxTrainLength        = 9
	maxMammothTrainLength = 100

	minServiceInterval = 30
	maxServiceInterval = 800

	forceProceedTicks = 0x50
)

// Params are the company limits the commands enforce.
type Params struct {
	// MaxTrains caps the unit numbers an owner may hand out.
	MaxTrains     uint16 `mapstructure:"maxTrains" json:"maxTrains"`
	MammothTrains bool   `mapstructure:"mammothTrains" json:"mammothTrains"`
	// Realistic makes Reverse on a moving train wait until it has
	// stopped.
	Realistic bool `mapstructure:"realisticAcceleration" json:"realisticAcceleration"`
}

// DefaultParams returns the stock limits.
func DefaultParams() Params {
	return Params{MaxTrains: 500}
}

// Manager applies commands to the trains of a simulator. It must be used
// from the goroutine that ticks the simulator.
type Manager struct {
	sim    *train.Simulator
	grid   world.TrackQuery
	params Params
	logger *slog.Logger
}

// NewManager creates a command manager over sim.
func NewManager(sim *train.Simulator, params Params, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{sim: sim, grid: sim.Grid, params: params, logger: logger}
}

// vehicle looks up id and checks it belongs to owner.
func (m *Manager) vehicle(owner world.Owner, id consist.VehicleID) (*consist.Vehicle, error) {
	v, ok := m.sim.Pool.Get(id)
	if !ok {
		return nil, fmt.Errorf("vehicle %d: %w", id, ErrUnknownVehicle)
	}
	if v.Owner != owner {
		return nil, fmt.Errorf("vehicle %d: %w", id, ErrNotOwner)
	}
	return v, nil
}

// train looks up id and checks it is the front engine of a train of owner.
func (m *Manager) train(owner world.Owner, id consist.VehicleID) (*consist.Vehicle, error) {
	v, err := m.vehicle(owner, id)
	if err != nil {
		return nil, err
	}
	if !v.IsFrontEngine() {
		return nil, fmt.Errorf("vehicle %d is a %s: %w", id, v.Subtype, ErrWrongKind)
	}
	return v, nil
}

// stoppedInDepot reports whether the chain headed by head may be changed.
// Chains without an engine in front only have to stand in the depot.
func stoppedInDepot(head *consist.Vehicle) bool {
	if head.IsFrontEngine() {
		return head.IsStoppedInDepot()
	}
	for u := head; u != nil; u = u.Next() {
		if !u.InDepot() || u.Tile != head.Tile {
			return false
		}
	}
	return true
}

// recompute refreshes the cached consist values of the chain headed by
// head after a change to its composition.
func (m *Manager) recompute(head *consist.Vehicle) {
	if head == nil {
		return
	}
	consist.ConsistChanged(head, m.sim.Engines)
	if head.IsFrontEngine() {
		consist.UpdateAcceleration(head)
	}
}
