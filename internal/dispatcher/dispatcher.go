// Package dispatcher routes named commands to their handlers. Handlers run
// on the caller's goroutine, so a command dispatched between two ticks is
// fully applied before the next tick starts.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/trackworks/railcore/internal/dispatcher"

// ErrUnknownCommand is returned for commands nothing is registered for.
var ErrUnknownCommand = errors.New("unknown command")

// Event is a command addressed to the simulation. Tick is the simulation
// tick the command was issued for; zero when it was not scheduled.
type Event struct {
	Command   string
	Args      []string
	Tick      uint64
	Timestamp time.Time
}

// HandlerFunc applies an event and returns its result.
type HandlerFunc func(Event) (any, error)

// Logger is the subset of *slog.Logger the dispatcher writes to.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option wraps a handler at registration.
type Option func(d *Dispatcher, command string, h HandlerFunc) HandlerFunc

// Logged logs each event at debug level and each refusal at error level.
func Logged() Option {
	return func(d *Dispatcher, command string, h HandlerFunc) HandlerFunc {
		return func(e Event) (any, error) {
			d.logger.Debug("handling event", "command", command, "args", len(e.Args), "tick", e.Tick)
			res, err := h(e)
			if err != nil {
				d.logger.Error("event failed", "command", command, "tick", e.Tick, "error", err)
			}
			return res, err
		}
	}
}

// Stamped sets the event timestamp when the caller left it zero.
func Stamped(now func() time.Time) Option {
	return func(_ *Dispatcher, _ string, h HandlerFunc) HandlerFunc {
		return func(e Event) (any, error) {
			if e.Timestamp.IsZero() {
				e.Timestamp = now()
			}
			return h(e)
		}
	}
}

// Dispatcher routes events to registered handlers. Registration is not
// safe for concurrent use with Dispatch; register everything up front.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	logger   Logger

	handled  metric.Int64Counter
	duration metric.Float64Histogram
}

// New returns a Dispatcher reporting to the global otel meter, which is a
// no-op until a provider is installed.
func New(logger Logger) (*Dispatcher, error) {
	m := otel.Meter(instrumentationName)
	d := &Dispatcher{handlers: make(map[string]HandlerFunc), logger: logger}

	var err error
	d.handled, err = m.Int64Counter("railcore.commands.handled",
		metric.WithDescription("Commands handled, by command and outcome"))
	if err != nil {
		return nil, fmt.Errorf("creating handled counter: %w", err)
	}
	d.duration, err = m.Float64Histogram("railcore.commands.duration",
		metric.WithDescription("Time spent applying a command"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}
	return d, nil
}

// Register installs h for command, replacing any earlier handler. Options
// apply in order, the first one outermost.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	for _, opt := range slices.Backward(opts) {
		h = opt(d, command, h)
	}
	if _, dup := d.handlers[command]; dup {
		d.logger.Info("handler replaced", "command", command)
	}
	d.handlers[command] = h
}

// Dispatch applies e through its handler.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	h, ok := d.handlers[e.Command]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, e.Command)
	}

	start := time.Now()
	res, err := h(e)

	outcome := "ok"
	if err != nil {
		outcome = "refused"
	}
	ctx := context.Background()
	cmd := attribute.String("command", e.Command)
	d.handled.Add(ctx, 1, metric.WithAttributes(cmd, attribute.String("outcome", outcome)))
	d.duration.Record(ctx, float64(time.Since(start).Microseconds())/1000, metric.WithAttributes(cmd))
	return res, err
}

// HasHandler reports whether command is registered.
func (d *Dispatcher) HasHandler(command string) bool {
	_, ok := d.handlers[command]
	return ok
}

// Commands returns the registered command names, sorted.
func (d *Dispatcher) Commands() []string {
	return slices.Sorted(maps.Keys(d.handlers))
}
