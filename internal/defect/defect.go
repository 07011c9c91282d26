// Package defect reports simulation defects, such as a train whose units
// lost contact with each other, to the log and optionally to Sentry.
package defect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/trackworks/railcore/internal/config"
)

// flushTimeout bounds how long Flush waits for queued reports.
const flushTimeout = 5 * time.Second

// Reporter logs every defect and forwards it to Sentry when a DSN is set.
type Reporter struct {
	logger *slog.Logger
	hub    *sentry.Hub
	count  atomic.Uint64
}

// New returns a reporter for cfg. An empty DSN reports to the log only.
func New(cfg config.SentryConfig, logger *slog.Logger) (*Reporter, error) {
	if cfg.DSN == "" {
		return NewWithClient(nil, logger), nil
	}
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create sentry client: %w", err)
	}
	return NewWithClient(client, logger), nil
}

// NewWithClient wraps an existing Sentry client; nil reports to the log only.
func NewWithClient(client *sentry.Client, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Reporter{logger: logger}
	if client != nil {
		r.hub = sentry.NewHub(client, sentry.NewScope())
	}
	return r
}

// Report records err with tags such as the train id and tick.
func (r *Reporter) Report(ctx context.Context, err error, tags map[string]string) {
	r.count.Add(1)

	args := make([]any, 0, 2+2*len(tags))
	args = append(args, "error", err)
	for _, k := range slices.Sorted(maps.Keys(tags)) {
		args = append(args, k, tags[k])
	}
	r.logger.ErrorContext(ctx, "Simulation defect", args...)

	if r.hub == nil {
		return
	}
	hub := r.hub.Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
	})
	hub.CaptureException(err)
}

// Recover reports a panic of the calling goroutine and re-panics. Use it
// deferred.
func (r *Reporter) Recover(tags map[string]string) {
	v := recover()
	if v == nil {
		return
	}
	err, ok := v.(error)
	if !ok {
		err = errors.New(fmt.Sprint(v))
	}
	r.Report(context.Background(), fmt.Errorf("panic: %w", err), tags)
	r.Flush()
	panic(v)
}

// Count returns how many defects were reported.
func (r *Reporter) Count() uint64 {
	return r.count.Load()
}

// Flush waits for queued Sentry events to be sent.
func (r *Reporter) Flush() bool {
	if r.hub == nil {
		return true
	}
	return r.hub.Flush(flushTimeout)
}
