package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// Time columns carry no explicit type so each dialect picks its own:
// timestamptz on postgres, datetime on sqlite.

// SchemaVersion is written to the info table on first setup.
const SchemaVersion = "1.0.0"

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&RailcoreInfo{},
	&Session{},
	&Train{},
	&TrainState{},
	&SimEvent{},
	&Crash{},
	&TickSample{},
}

// DatabaseModelsSQLite is the schema of the in-memory SQLite recorder. It
// leaves out the per-tick samples, which go to InfluxDB or the log there.
var DatabaseModelsSQLite = []interface{}{
	&RailcoreInfo{},
	&Session{},
	&Train{},
	&TrainState{},
	&SimEvent{},
	&Crash{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// RailcoreInfo describes the schema of the database.
type RailcoreInfo struct {
	gorm.Model
	SchemaVersion string `json:"schemaVersion" gorm:"size:32"`
	Description   string `json:"description" gorm:"size:255"`
}

func (*RailcoreInfo) TableName() string {
	return "railcore_infos"
}

// TickSample is the per-tick performance sample of a session.
type TickSample struct {
	Time       time.Time `json:"time" gorm:"index:idx_ticksample_time"`
	SessionID  uint      `json:"sessionId" gorm:"index:idx_ticksample_session_id"`
	Session    Session   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Tick       uint64    `json:"tick"`
	DurationUs int64     `json:"durationUs"`
	Trains     int       `json:"trains"`
	Vehicles   int       `json:"vehicles"`
	Crashed    int       `json:"crashed"`
	Checksum   string    `json:"checksum" gorm:"size:16"` // hex, uint64 does not fit a signed bigint
	Reversals  int64     `json:"reversals"`
}

func (*TickSample) TableName() string {
	return "tick_samples"
}

////////////////////////
// RECORDING MODELS
////////////////////////

// Session is one simulation run together with the layout it ran on.
type Session struct {
	gorm.Model
	UUID        string         `json:"uuid" gorm:"size:36;uniqueIndex:idx_session_uuid"`
	Name        string         `json:"name" gorm:"size:200"`
	Scenario    string         `json:"scenario" gorm:"size:200"`
	Seed        int64          `json:"seed"`
	Pathfinder  string         `json:"pathfinder" gorm:"size:16"`
	Realistic   bool           `json:"realistic" gorm:"default:false"`
	StartTime   time.Time      `json:"startTime" gorm:"index:idx_session_start"`
	TicksPerDay int            `json:"ticksPerDay" gorm:"default:74"`
	Tag         string         `json:"tag" gorm:"size:127"`
	Width       uint32         `json:"width"`
	Height      uint32         `json:"height"`
	Depots      int            `json:"depots"`
	Stations    datatypes.JSON `json:"stations" gorm:"type:jsonb;default:'[]'"`

	Trains  []Train
	Events  []SimEvent
	Crashes []Crash
}

func (*Session) TableName() string {
	return "sessions"
}

// Train is a consist registered during a session.
// Uses composite primary key (SessionID, TrainID); TrainID is the pool index
// of the front engine.
type Train struct {
	SessionID  uint           `json:"sessionId" gorm:"primaryKey;autoIncrement:false"`
	TrainID    uint32         `json:"trainId" gorm:"primaryKey;autoIncrement:false"`
	Session    Session        `gorm:"foreignkey:SessionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
	DeletedAt  gorm.DeletedAt `json:"deletedAt" gorm:"index"`
	UnitNumber uint16         `json:"unitNumber"`
	Owner      uint8          `json:"owner"`
	Engine     string         `json:"engine" gorm:"size:64"`
	Units      int            `json:"units"`
	JoinTick   uint64         `json:"joinTick"`
	JoinTime   time.Time      `json:"joinTime" gorm:"NOT NULL;index:idx_train_join_time"`
}

func (*Train) TableName() string {
	return "trains"
}

// TrainState is the sampled state of a train head.
// References Train by (SessionID, TrainID) composite FK.
type TrainState struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time"`
	SessionID uint      `json:"sessionId" gorm:"index:idx_trainstate_session_id"`
	Session   Session   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Tick      uint64    `json:"tick" gorm:"index:idx_trainstate_tick"`
	TrainID   uint32    `json:"trainId" gorm:"index:idx_trainstate_train_id"`
	Train     Train     `gorm:"foreignkey:SessionID,TrainID;references:SessionID,TrainID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`

	Tile      uint32     `json:"tile"`
	Position  geom.Point `json:"position"` // tile units, sixteenths as fraction
	Height    uint8      `json:"height"`
	Direction string     `json:"direction" gorm:"size:4"`
	Track     uint8      `json:"track"`
	Speed     uint16     `json:"speed"`
	MaxSpeed  uint16     `json:"maxSpeed"`
	Units     int        `json:"units"`
	Order     string     `json:"order" gorm:"size:32"`
	Stopped   bool       `json:"stopped" gorm:"default:false"`
	Crashed   bool       `json:"crashed" gorm:"default:false"`
	InDepot   bool       `json:"inDepot" gorm:"default:false"`
}

func (*TrainState) TableName() string {
	return "train_states"
}

// SimEvent is a presentation event (sound, news, effect, redraw).
type SimEvent struct {
	ID        uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	SessionID uint           `json:"sessionId" gorm:"index:idx_simevent_session_id"`
	Session   Session        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Tick      uint64         `json:"tick" gorm:"index:idx_simevent_tick"`
	Kind      string         `json:"kind" gorm:"size:16"`
	VehicleID uint32         `json:"vehicleId"`
	Tile      uint32         `json:"tile"`
	Key       string         `json:"key" gorm:"size:64"`
	Params    datatypes.JSON `json:"params" gorm:"type:jsonb;default:'{}'"`
}

func (*SimEvent) TableName() string {
	return "sim_events"
}

// Crash records a collision between two trains.
type Crash struct {
	ID         uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	Time       time.Time  `json:"time"`
	SessionID  uint       `json:"sessionId" gorm:"index:idx_crash_session_id"`
	Session    Session    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Tick       uint64     `json:"tick"`
	TrainID    uint32     `json:"trainId"`
	OtherID    uint32     `json:"otherId"`
	Tile       uint32     `json:"tile"`
	Position   geom.Point `json:"position"`
	Casualties int        `json:"casualties"`
}

func (*Crash) TableName() string {
	return "crashes"
}
