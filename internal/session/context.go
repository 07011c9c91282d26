// Package session tracks the simulation run currently being recorded.
package session

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/trackworks/railcore/pkg/core"
)

// Context holds the current session and layout
type Context struct {
	mu      sync.RWMutex
	Session *core.Session
	Layout  *core.Layout
	tick    atomic.Uint64
}

// NewContext creates a new Context with default values
func NewContext() *Context {
	return &Context{
		Session: &core.Session{Name: "No session loaded"},
		Layout:  &core.Layout{},
	}
}

// NewSession returns a session with a fresh random id, started now.
func NewSession(name, scenario string, seed int64) *core.Session {
	return &core.Session{
		ID:        uuid.NewString(),
		Name:      name,
		Scenario:  scenario,
		Seed:      seed,
		StartTime: time.Now().UTC(),
	}
}

// GetSession returns the current session
func (sc *Context) GetSession() *core.Session {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.Session
}

// GetLayout returns the current layout
func (sc *Context) GetLayout() *core.Layout {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.Layout
}

// SetSession sets the current session and layout and rewinds the tick.
func (sc *Context) SetSession(session *core.Session, layout *core.Layout) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.Session = session
	sc.Layout = layout
	sc.tick.Store(0)
}

// SetTick records the tick the simulation is at.
func (sc *Context) SetTick(tick uint64) {
	sc.tick.Store(tick)
}

// Tick returns the last recorded tick.
func (sc *Context) Tick() uint64 {
	return sc.tick.Load()
}

// LogAttrs returns the attributes stamped on every log record.
func (sc *Context) LogAttrs() []slog.Attr {
	s := sc.GetSession()
	return []slog.Attr{
		slog.String("session", s.ID),
		slog.Uint64("tick", sc.tick.Load()),
	}
}
