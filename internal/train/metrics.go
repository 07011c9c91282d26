package train

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/trackworks/railcore/internal/train"

type simMetrics struct {
	ticks     metric.Int64Counter
	crashed   metric.Int64Counter
	reversals metric.Int64Counter
	waits     metric.Int64Counter
	duration  metric.Float64Histogram
}

func newSimMetrics() (*simMetrics, error) {
	m := otel.Meter(instrumentationName)
	s := &simMetrics{}

	var err error
	s.ticks, err = m.Int64Counter(
		"sim.ticks",
		metric.WithDescription("Total simulation ticks run"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ticks counter: %w", err)
	}

	s.crashed, err = m.Int64Counter(
		"sim.trains.crashed",
		metric.WithDescription("Total train collisions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating crash counter: %w", err)
	}

	s.reversals, err = m.Int64Counter(
		"sim.reversals",
		metric.WithDescription("Total train reversals"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating reversal counter: %w", err)
	}

	s.waits, err = m.Int64Counter(
		"sim.signal.waits",
		metric.WithDescription("Total ticks heads spent waiting at red signals"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating signal wait counter: %w", err)
	}

	s.duration, err = m.Float64Histogram(
		"sim.tick.duration",
		metric.WithDescription("Wall time of one simulation tick"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tick duration histogram: %w", err)
	}
	return s, nil
}

func (s *simMetrics) record(ctx context.Context, d time.Duration, crashes int, reversals, waits uint64) {
	s.ticks.Add(ctx, 1)
	if crashes > 0 {
		s.crashed.Add(ctx, int64(crashes))
	}
	if reversals > 0 {
		s.reversals.Add(ctx, int64(reversals))
	}
	if waits > 0 {
		s.waits.Add(ctx, int64(waits))
	}
	s.duration.Record(ctx, float64(d.Microseconds())/1000)
}
