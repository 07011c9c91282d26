package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// osStdout is where the console handler writes.
var osStdout = os.Stdout

// InstrumentationName names the otel logger the slog bridge writes to.
const InstrumentationName = "railcore"

// SlogManager owns the process logger: a text sink plus optional otel and
// extra sinks, all stamped with the simulation attributes.
type SlogManager struct {
	logger   *slog.Logger
	provider *sdklog.LoggerProvider

	// Attrs, when set, is called for every record, typically to add the
	// current tick and session.
	Attrs AttrsFunc
}

func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel accepts the slog level names in any case, with an optional
// offset such as "warn+2". Anything else is info.
func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// utcTime renders record times as RFC3339 in UTC.
func utcTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.TimeKey {
		return a
	}
	if t, ok := a.Value.Any().(time.Time); ok {
		a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
	}
	return a
}

// Setup builds the logger. Records go to file, or stdout when file is nil,
// and to provider when it is not nil. Extra handlers, such as a GELF sink,
// receive every record as well. Calling Setup again replaces the logger.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider, extra ...slog.Handler) {
	m.provider = provider
	if file == nil {
		file = osStdout
	}

	sinks := []slog.Handler{slog.NewTextHandler(file, &slog.HandlerOptions{
		Level:       parseLevel(level),
		ReplaceAttr: utcTime,
	})}
	if provider != nil {
		sinks = append(sinks, otelslog.NewHandler(InstrumentationName, otelslog.WithLoggerProvider(provider)))
	}
	sinks = append(sinks, extra...)

	m.logger = slog.New(WithDynamicAttrs(Fanout(sinks...), m.Attrs))
	m.logger.Info("Logging initialized", "level", level, "sinks", len(sinks))
}

// Logger returns the configured logger, or slog.Default before Setup.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush pushes buffered otel records out.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.provider == nil {
		return nil
	}
	return m.provider.ForceFlush(ctx)
}

// WriteLog logs data at the named level, tagged with the calling function.
// Storage backends use it to report from code that has no logger of its own.
func (m *SlogManager) WriteLog(functionName, data, level string) {
	if m.logger == nil {
		return
	}
	m.logger.Log(context.Background(), parseLevel(level), data, "function", functionName)
}
