// pkg/core/events.go
package core

import (
	"time"
)

// EventKind classifies presentation events.
type EventKind string

const (
	EventSound  EventKind = "sound"
	EventNews   EventKind = "news"
	EventEffect EventKind = "effect"
	EventDirty  EventKind = "dirty"
	EventImage  EventKind = "image"
)

// Event is a presentation side effect of the simulation: a sound to play,
// a news item, a visual effect or a redraw request.
type Event struct {
	Tick      uint64         `json:"tick"`
	Kind      EventKind      `json:"kind"`
	VehicleID uint32         `json:"vehicleId"`
	Tile      uint32         `json:"tile"`
	Key       string         `json:"key"`
	Params    map[string]any `json:"params,omitempty"`
}

// CrashEvent records a collision between two trains.
type CrashEvent struct {
	Tick       uint64    `json:"tick"`
	Time       time.Time `json:"time"`
	TrainID    uint32    `json:"trainId"`
	OtherID    uint32    `json:"otherId"`
	Tile       uint32    `json:"tile"`
	Position   Position  `json:"position"`
	Casualties int       `json:"casualties"`
}

// TickStats is the per-tick performance sample of the simulator.
type TickStats struct {
	Tick      uint64        `json:"tick"`
	Time      time.Time     `json:"time"`
	Duration  time.Duration `json:"duration"`
	Trains    int           `json:"trains"`
	Vehicles  int           `json:"vehicles"`
	Crashed   int           `json:"crashed"`
	Checksum  uint64        `json:"checksum"`
	Reversals uint64        `json:"reversals"`
}
