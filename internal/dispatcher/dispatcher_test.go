package dispatcher

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	lines []string
}

func (l *recordingLogger) log(level, msg string, kv []any) {
	l.lines = append(l.lines, fmt.Sprintf("%s %s %v", level, msg, kv))
}

func (l *recordingLogger) Debug(msg string, kv ...any) { l.log("DEBUG", msg, kv) }
func (l *recordingLogger) Info(msg string, kv ...any)  { l.log("INFO", msg, kv) }
func (l *recordingLogger) Error(msg string, kv ...any) { l.log("ERROR", msg, kv) }

func setup(t *testing.T) (*Dispatcher, *recordingLogger) {
	t.Helper()
	logger := &recordingLogger{}
	d, err := New(logger)
	require.NoError(t, err)
	return d, logger
}

func TestDispatch(t *testing.T) {
	d, _ := setup(t)

	var got Event
	d.Register(":START:STOP:", func(e Event) (any, error) {
		got = e
		return true, nil
	})

	res, err := d.Dispatch(Event{Command: ":START:STOP:", Args: []string{"1", "4"}, Tick: 12})
	require.NoError(t, err)
	assert.Equal(t, true, res)
	assert.Equal(t, []string{"1", "4"}, got.Args)
	assert.Equal(t, uint64(12), got.Tick)
}

func TestDispatch_Unknown(t *testing.T) {
	d, _ := setup(t)

	_, err := d.Dispatch(Event{Command: ":DEMOLISH:"})
	assert.ErrorIs(t, err, ErrUnknownCommand)
	assert.ErrorContains(t, err, ":DEMOLISH:")
}

func TestDispatch_RunsOnCaller(t *testing.T) {
	d, _ := setup(t)

	applied := 0
	d.Register(":REVERSE:", func(Event) (any, error) {
		applied++
		return nil, nil
	}, Logged())

	for range 3 {
		_, err := d.Dispatch(Event{Command: ":REVERSE:"})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, applied)
}

func TestLogged(t *testing.T) {
	d, logger := setup(t)

	errStopped := errors.New("train must be stopped in a depot")
	d.Register(":SELL:VEHICLE:", func(e Event) (any, error) {
		if e.Args[1] == "9" {
			return nil, errStopped
		}
		return nil, nil
	}, Logged())

	_, err := d.Dispatch(Event{Command: ":SELL:VEHICLE:", Args: []string{"1", "2"}, Tick: 5})
	require.NoError(t, err)
	require.Len(t, logger.lines, 1)
	assert.True(t, strings.HasPrefix(logger.lines[0], "DEBUG handling event"))
	assert.Contains(t, logger.lines[0], "tick 5")

	_, err = d.Dispatch(Event{Command: ":SELL:VEHICLE:", Args: []string{"1", "9"}, Tick: 6})
	assert.ErrorIs(t, err, errStopped)
	require.Len(t, logger.lines, 3)
	assert.True(t, strings.HasPrefix(logger.lines[2], "ERROR event failed"))
}

func TestStamped(t *testing.T) {
	d, _ := setup(t)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	var stamps []time.Time
	d.Register(":REFIT:", func(e Event) (any, error) {
		stamps = append(stamps, e.Timestamp)
		return nil, nil
	}, Stamped(func() time.Time { return fixed }))

	own := fixed.Add(-time.Hour)
	_, _ = d.Dispatch(Event{Command: ":REFIT:"})
	_, _ = d.Dispatch(Event{Command: ":REFIT:", Timestamp: own})

	assert.Equal(t, []time.Time{fixed, own}, stamps)
}

func TestRegister_OptionOrder(t *testing.T) {
	d, logger := setup(t)

	// Stamped runs first, so the logged event already carries the time
	var seen time.Time
	d.Register(":ORDERS:SET:", func(e Event) (any, error) {
		seen = e.Timestamp
		return nil, nil
	}, Stamped(time.Now), Logged())

	_, err := d.Dispatch(Event{Command: ":ORDERS:SET:"})
	require.NoError(t, err)
	assert.False(t, seen.IsZero())
	assert.Len(t, logger.lines, 1)
}

func TestRegister_Replaces(t *testing.T) {
	d, logger := setup(t)

	d.Register(":REFIT:", func(Event) (any, error) { return 1, nil })
	d.Register(":REFIT:", func(Event) (any, error) { return 2, nil })

	res, err := d.Dispatch(Event{Command: ":REFIT:"})
	require.NoError(t, err)
	assert.Equal(t, 2, res)
	require.Len(t, logger.lines, 1)
	assert.Contains(t, logger.lines[0], "handler replaced")
}

func TestCommands(t *testing.T) {
	d, _ := setup(t)
	noop := func(Event) (any, error) { return nil, nil }

	d.Register(":SELL:VEHICLE:", noop)
	d.Register(":BUILD:VEHICLE:", noop)
	d.Register(":REVERSE:", noop)

	assert.Equal(t, []string{":BUILD:VEHICLE:", ":REVERSE:", ":SELL:VEHICLE:"}, d.Commands())
	assert.True(t, d.HasHandler(":REVERSE:"))
	assert.False(t, d.HasHandler(":REFIT:"))
}
