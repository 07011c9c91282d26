// Package monitor periodically writes the state of a running simulation to
// a status file.
package monitor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/trackworks/railcore/internal/logging"
	"github.com/trackworks/railcore/internal/session"
)

const StatusFileName = "status.json"

// Status is one snapshot of a running simulation.
type Status struct {
	Time    time.Time `json:"time"`
	Session string    `json:"session"`
	Tick    uint64    `json:"tick"`

	Trains   int `json:"trains"`
	Vehicles int `json:"vehicles"`
	Crashed  int `json:"crashed"`

	LastTickUs  int64   `json:"lastTickUs"`
	TicksPerSec float64 `json:"ticksPerSec"`

	EventsDropped   uint64  `json:"eventsDropped"`
	RecordQueue     int     `json:"recordQueue"`
	LastWriteMs     float64 `json:"lastWriteMs"`
	RecordFailures  uint64  `json:"recordFailures"`
	DefectsReported uint64  `json:"defectsReported"`
}

// Source reports the current status.
type Source interface {
	Status() Status
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	LogManager     *logging.SlogManager
	SessionContext *session.Context
	Source         Source
	StatusDir      string
	Interval       time.Duration
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	doneChan  chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// StatusPath is the file the monitor rewrites.
func (s *Service) StatusPath() string {
	return filepath.Join(s.deps.StatusDir, StatusFileName)
}

// GetProgramStatus returns the current status with the session name filled
// in from the session context.
func (s *Service) GetProgramStatus() Status {
	st := s.deps.Source.Status()
	st.Time = time.Now()
	if s.deps.SessionContext != nil {
		st.Session = s.deps.SessionContext.GetSession().Name
	}
	return st
}

// WriteStatus replaces the status file with the current status.
func (s *Service) WriteStatus() error {
	data, err := json.MarshalIndent(s.GetProgramStatus(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	tmp := s.StatusPath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write status: %w", err)
	}
	return os.Rename(tmp, s.StatusPath())
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if err := os.MkdirAll(s.deps.StatusDir, 0o755); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("create status dir: %w", err)
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})
	stop, done := s.stopChan, s.doneChan
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.LogManager.Logger()
		logger.Debug("Starting status monitor goroutine", "path", s.StatusPath())

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := s.WriteStatus(); err != nil {
					logger.Error("Error writing status file", "error", err)
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and writes the status one last time.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.doneChan
	s.mu.Unlock()
	<-done

	if err := s.WriteStatus(); err != nil {
		s.deps.LogManager.Logger().Error("Error writing final status file", "error", err)
	}
}
