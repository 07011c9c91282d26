// pkg/core/session.go
package core

import "time"

// TickDuration is the game time one tick represents.
const TickDuration = 30 * time.Millisecond

// Session describes one simulation run.
type Session struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Scenario    string    `json:"scenario"`
	Seed        int64     `json:"seed"`
	Pathfinder  string    `json:"pathfinder"`
	Realistic   bool      `json:"realistic"`
	StartTime   time.Time `json:"startTime"`
	TicksPerDay int       `json:"ticksPerDay"`
	Tag         string    `json:"tag"`
}

// Layout summarises the track network a session runs on.
type Layout struct {
	Width    uint32    `json:"width"`
	Height   uint32    `json:"height"`
	Stations []Station `json:"stations"`
	Depots   int       `json:"depots"`
}

// Station is a named platform group of the layout.
type Station struct {
	ID   uint16   `json:"id"`
	Name string   `json:"name"`
	Tile uint32   `json:"tile"`
	At   Position `json:"at"`
}

// Metadata describes a session that ran for ticks ticks, for upload.
func (s *Session) Metadata(ticks uint64) UploadMetadata {
	return UploadMetadata{
		ScenarioName:    s.Scenario,
		SessionName:     s.Name,
		SessionDuration: (time.Duration(ticks) * TickDuration).Seconds(),
		Tag:             s.Tag,
	}
}

// UploadMetadata contains metadata for uploading an exported session.
type UploadMetadata struct {
	ScenarioName    string
	SessionName     string
	SessionDuration float64
	Tag             string
}
