package tui

import (
	"context"
	"fmt"
	"strings"

	"redirect-mgmt-go/pkg/monitor"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// metricsSummary totals the monitor's counters collected so far.
func metricsSummary(ctx context.Context, reader *sdkmetric.ManualReader) string {
	if reader == nil {
		return ""
	}
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return ""
	}

	totals := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		if sm.Scope.Name != monitor.MeterName {
			continue
		}
		for _, md := range sm.Metrics {
			sum, ok := md.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				totals[md.Name] += dp.Value
			}
		}
	}

	parts := []string{
		fmt.Sprintf("sweeps: %d", totals["monitor.sweeps"]),
		fmt.Sprintf("checks: %d", totals["monitor.checks"]),
		fmt.Sprintf("repairs: %d", totals["monitor.repairs"]),
		fmt.Sprintf("purges: %d", totals["monitor.purges"]),
	}
	return mutedStyle.Render(strings.Join(parts, "  "))
}
