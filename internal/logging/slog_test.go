package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

func TestSetup_Sinks(t *testing.T) {
	t.Run("file", func(t *testing.T) {
		stdout := captureStdout(t)
		var file bytes.Buffer
		m := NewSlogManager()
		m.Setup(&file, "info", nil)
		m.Logger().Info("block reserved", "block", 3)

		assert.Contains(t, file.String(), "block=3")
		assert.Contains(t, file.String(), "sinks=1")
		assert.Empty(t, stdout())
	})
	t.Run("console", func(t *testing.T) {
		stdout := captureStdout(t)
		m := NewSlogManager()
		m.Setup(nil, "info", nil)
		m.Logger().Info("block released")

		assert.Contains(t, stdout(), "block released")
	})
	t.Run("otel", func(t *testing.T) {
		var file bytes.Buffer
		m := NewSlogManager()
		m.Setup(&file, "info", sdklog.NewLoggerProvider())
		m.Logger().Info("path found")

		assert.Contains(t, file.String(), "path found")
		assert.Contains(t, file.String(), "sinks=2")
		assert.NoError(t, m.Flush(context.Background()))
	})
}

func TestSetup_Level(t *testing.T) {
	for _, tt := range []struct {
		level     string
		wantDebug bool
	}{
		{"debug", true},
		{"info", false},
		{"bogus", false},
	} {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			m := NewSlogManager()
			m.Setup(&buf, tt.level, nil)
			m.Logger().Debug("lookahead")
			m.Logger().Warn("overspeed")

			assert.Equal(t, tt.wantDebug, bytes.Contains(buf.Bytes(), []byte("lookahead")))
			assert.Contains(t, buf.String(), "overspeed")
		})
	}
}

func TestSetup_TimeIsUTC(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&buf, "info", nil)

	assert.Regexp(t, `time=\d{4}-\d\d-\d\dT\d\d:\d\d:\d\dZ `, buf.String())
}

func TestSetup_Replaces(t *testing.T) {
	var first, second bytes.Buffer
	m := NewSlogManager()
	m.Setup(&first, "info", nil)
	m.Setup(&second, "info", nil)
	m.Logger().Info("after reload")

	assert.NotContains(t, first.String(), "after reload")
	assert.Contains(t, second.String(), "after reload")
}

func TestSetup_Attrs(t *testing.T) {
	var file, extra bytes.Buffer
	m := NewSlogManager()
	tick := uint64(41)
	m.Attrs = func() []slog.Attr {
		return []slog.Attr{slog.Uint64("tick", tick), slog.String("session", "abc")}
	}
	m.Setup(&file, "info", nil, slog.NewJSONHandler(&extra, nil))

	tick++
	m.Logger().Info("train defect", "train", 7)

	assert.Contains(t, file.String(), "tick=42")
	assert.Contains(t, file.String(), "session=abc")
	assert.Contains(t, extra.String(), `"train":7`)
	assert.Contains(t, extra.String(), `"tick":42`)
}

func TestLogger_BeforeSetup(t *testing.T) {
	m := NewSlogManager()
	assert.Equal(t, slog.Default(), m.Logger())
	assert.NoError(t, m.Flush(context.Background()))
	m.WriteLog("Init", "ignored", "info")
}

func TestWriteLog(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&buf, "debug", nil)

	m.WriteLog("writeQueue", "flushed 12 train states", "DEBUG")
	m.WriteLog("Close", "dump failed", "error")

	assert.Contains(t, buf.String(), `level=DEBUG msg="flushed 12 train states" function=writeQueue`)
	assert.Contains(t, buf.String(), `level=ERROR msg="dump failed" function=Close`)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":  slog.LevelDebug,
		"INFO":   slog.LevelInfo,
		"Warn":   slog.LevelWarn,
		"error":  slog.LevelError,
		"warn+2": slog.LevelWarn + 2,
		"":       slog.LevelInfo,
		"loud":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestNewGelfHandler(t *testing.T) {
	_, _, err := NewGelfHandler("not an address", "info")
	require.Error(t, err)

	h, w, err := NewGelfHandler("127.0.0.1:12201", "debug")
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	assert.True(t, h.Enabled(context.Background(), slog.LevelDebug))
	assert.Equal(t, InstrumentationName, w.Facility)
}

func TestNewZerolog(t *testing.T) {
	var file bytes.Buffer
	logger := NewZerolog(&file, "warn")

	logger.Info().Msg("dropped")
	logger.Warn().Str("bucket", "train_state").Msg("influx unreachable")

	assert.NotContains(t, file.String(), "dropped")
	assert.Contains(t, file.String(), "influx unreachable")
	assert.Contains(t, file.String(), "bucket=train_state")
}

// captureStdout points the console sink at a pipe until the returned
// function is called, which yields what was written.
func captureStdout(t *testing.T) func() string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)

	orig := osStdout
	osStdout = w
	return func() string {
		w.Close()
		osStdout = orig
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		r.Close()
		return buf.String()
	}
}
