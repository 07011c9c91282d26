package session

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackworks/railcore/pkg/core"
)

func TestNewContext_Defaults(t *testing.T) {
	ctx := NewContext()

	assert.Equal(t, "No session loaded", ctx.GetSession().Name)
	assert.NotNil(t, ctx.GetLayout())
	assert.Zero(t, ctx.Tick())
}

func TestNewSession(t *testing.T) {
	s := NewSession("run", "loop", 42)

	_, err := uuid.Parse(s.ID)
	require.NoError(t, err)
	assert.Equal(t, "run", s.Name)
	assert.Equal(t, "loop", s.Scenario)
	assert.Equal(t, int64(42), s.Seed)
	assert.False(t, s.StartTime.IsZero())

	assert.NotEqual(t, s.ID, NewSession("run", "loop", 42).ID)
}

func TestSetSession_RewindsTick(t *testing.T) {
	ctx := NewContext()
	ctx.SetTick(500)

	s := &core.Session{ID: "abc"}
	l := &core.Layout{Width: 8}
	ctx.SetSession(s, l)

	assert.Same(t, s, ctx.GetSession())
	assert.Same(t, l, ctx.GetLayout())
	assert.Zero(t, ctx.Tick())
}

func TestLogAttrs(t *testing.T) {
	ctx := NewContext()
	ctx.SetSession(&core.Session{ID: "abc"}, nil)
	ctx.SetTick(74)

	attrs := ctx.LogAttrs()
	require.Len(t, attrs, 2)
	assert.True(t, attrs[0].Equal(slog.String("session", "abc")))
	assert.True(t, attrs[1].Equal(slog.Uint64("tick", 74)))
}

func TestContext_ThreadSafe(t *testing.T) {
	ctx := NewContext()
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ctx.SetTick(uint64(i))
			ctx.SetSession(&core.Session{ID: "x"}, &core.Layout{})
		}()
		go func() {
			defer wg.Done()
			_ = ctx.LogAttrs()
			_ = ctx.GetLayout()
		}()
	}
	wg.Wait()
}
