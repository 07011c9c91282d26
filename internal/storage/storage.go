package storage

import "github.com/trackworks/railcore/pkg/core"

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management
	StartSession(session *core.Session, layout *core.Layout) error
	EndSession() error

	// Train registration
	AddTrain(t *core.Train) error

	// State recording
	RecordTrainState(s *core.TrainState) error
	RecordTickStats(s *core.TickStats) error

	// Event recording
	RecordEvent(e *core.Event) error
	RecordCrash(c *core.CrashEvent) error
}

// Uploadable is an optional interface for storage backends that produce
// files suitable for upload to the recording server.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}
