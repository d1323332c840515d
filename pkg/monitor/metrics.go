package monitor

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// MeterName scopes the monitor's instruments.
const MeterName = "redirect-mgmt/monitor"

// Metrics records sweep and repair activity.
type Metrics struct {
	sweeps        metric.Int64Counter
	checks        metric.Int64Counter
	repairs       metric.Int64Counter
	purges        metric.Int64Counter
	sweepDuration metric.Float64Histogram
}

// NewMetrics registers the monitor instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	sweeps, err := meter.Int64Counter("monitor.sweeps",
		metric.WithDescription("Completed sweeps"))
	if err != nil {
		return nil, err
	}
	checks, err := meter.Int64Counter("monitor.checks",
		metric.WithDescription("Health checks by outcome"))
	if err != nil {
		return nil, err
	}
	repairs, err := meter.Int64Counter("monitor.repairs",
		metric.WithDescription("Repair attempts by tier and result"))
	if err != nil {
		return nil, err
	}
	purges, err := meter.Int64Counter("monitor.purges",
		metric.WithDescription("Links dropped after every fallback failed"))
	if err != nil {
		return nil, err
	}
	sweepDuration, err := meter.Float64Histogram("monitor.sweep.duration",
		metric.WithDescription("Sweep plus repair wall time"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		sweeps:        sweeps,
		checks:        checks,
		repairs:       repairs,
		purges:        purges,
		sweepDuration: sweepDuration,
	}, nil
}

func noopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter(MeterName))
	return m
}

func (m *Metrics) recordCheck(ctx context.Context, outcome Outcome) {
	m.checks.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome.String())))
}

func (m *Metrics) recordRepair(ctx context.Context, tier int, ok bool) {
	result := "failed"
	if ok {
		result = "repaired"
	}
	m.repairs.Add(ctx, 1, metric.WithAttributes(
		attribute.Int("tier", tier),
		attribute.String("result", result),
	))
}

func (m *Metrics) recordPurge(ctx context.Context) {
	m.purges.Add(ctx, 1)
}

func (m *Metrics) recordSweep(ctx context.Context, d time.Duration) {
	m.sweeps.Add(ctx, 1)
	m.sweepDuration.Record(ctx, d.Seconds())
}
