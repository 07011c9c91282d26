package command

import (
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackworks/railcore/internal/consist"
	"github.com/trackworks/railcore/internal/dispatcher"
	"github.com/trackworks/railcore/internal/parser"
)

func newTestDispatcher(t *testing.T, f *fixture) *dispatcher.Dispatcher {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	d, err := dispatcher.New(logger)
	require.NoError(t, err)
	f.m.RegisterHandlers(d, parser.NewParser(logger))
	return d
}

func TestRegisterHandlers(t *testing.T) {
	f := newFixture(t, 0, DefaultParams())
	d := newTestDispatcher(t, f)

	assert.Equal(t, []string{
		":BUILD:VEHICLE:",
		":FORCE:PROCEED:",
		":MOVE:VEHICLE:",
		":ORDERS:SET:",
		":REFIT:",
		":REVERSE:",
		":SELL:VEHICLE:",
		":SEND:TO:DEPOT:",
		":SERVICE:INTERVAL:",
		":START:STOP:",
	}, d.Commands())
}

func TestHandlers_BuildStartAndRefit(t *testing.T) {
	f := newFixture(t, 0, DefaultParams())
	d := newTestDispatcher(t, f)
	tile := fmt.Sprint(uint32(f.depot))

	res, err := d.Dispatch(dispatcher.Event{Command: ":BUILD:VEHICLE:", Args: []string{"1", tile, "1"}})
	require.NoError(t, err)
	coach := res.(consist.VehicleID)

	res, err = d.Dispatch(dispatcher.Event{Command: ":BUILD:VEHICLE:", Args: []string{"1", tile, "0"}})
	require.NoError(t, err)
	id := res.(consist.VehicleID)
	head, ok := f.pool.Get(id)
	require.True(t, ok)
	assert.Equal(t, 2, head.Count())

	res, err = d.Dispatch(dispatcher.Event{Command: ":REFIT:", Args: []string{"1", fmt.Sprint(id), `"mail"`}})
	require.NoError(t, err)
	assert.Equal(t, uint32(15), res)

	res, err = d.Dispatch(dispatcher.Event{Command: ":START:STOP:", Args: []string{"1", fmt.Sprint(id)}})
	require.NoError(t, err)
	assert.Equal(t, false, res)

	_, err = d.Dispatch(dispatcher.Event{Command: ":SELL:VEHICLE:", Args: []string{"1", fmt.Sprint(coach)}})
	assert.ErrorIs(t, err, ErrNotStoppedInDepot)
}

func TestHandlers_ParseErrors(t *testing.T) {
	f := newFixture(t, 0, DefaultParams())
	d := newTestDispatcher(t, f)

	for _, cmd := range d.Commands() {
		t.Run(cmd, func(t *testing.T) {
			_, err := d.Dispatch(dispatcher.Event{Command: cmd, Args: []string{"x"}})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "failed to parse")
			assert.Zero(t, f.pool.Len())
		})
	}
}
