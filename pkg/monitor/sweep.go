package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"redirect-mgmt-go/pkg/coord"
	"redirect-mgmt-go/pkg/probe"
	"redirect-mgmt-go/pkg/provider"

	"github.com/google/uuid"
)

type checkResult struct {
	shortURL string
	gen      uint64
	res      probe.Result
}

// cycle runs one sweep, repairs what it found and publishes the report.
func (m *Monitor) cycle(ctx context.Context) {
	started := time.Now()
	report := &coord.SweepReport{
		SweepID:       uuid.NewString(),
		Started:       started,
		Errors:        make(map[string]string),
		PreviewErrors: make(map[string]string),
	}
	logger := m.logger.With("sweep_id", report.SweepID)

	m.current = report
	defer func() { m.current = nil }()

	m.setState(Sweeping)
	m.sweep(ctx, report, logger)
	if m.exit || ctx.Err() != nil {
		return
	}

	m.setState(Repairing)
	m.repairPhase(ctx, report, logger)
	if m.exit || ctx.Err() != nil {
		return
	}

	m.setState(Reporting)
	report.Duration = time.Since(started)
	m.metrics.recordSweep(ctx, report.Duration)
	logger.Info("sweep finished",
		"checked", report.Checked,
		"healthy", report.Healthy,
		"repaired", len(report.Repaired),
		"purged", len(report.Purged),
		"incomplete", len(report.Incomplete),
		"duration", report.Duration)
	m.publish(ctx, coord.Report{SweepReport: *report})
}

// sweep checks every tracked link on the pool and fills the report's error
// sets once all checks are in or the ceiling passed.
func (m *Monitor) sweep(ctx context.Context, report *coord.SweepReport, logger *slog.Logger) {
	if len(m.links) == 0 {
		logger.Debug("nothing to sweep")
		return
	}

	col := newCollector()
	tasks := make([]func(context.Context), 0, len(m.links))
	pending := make(map[string]struct{}, len(m.links))
	for shortURL, e := range m.links {
		pending[shortURL] = struct{}{}
		gen := e.gen
		logger.Debug("ping checking", "short_url", shortURL, "expected", e.domain)
		tasks = append(tasks, func(ctx context.Context) {
			col.add(checkResult{shortURL: shortURL, gen: gen, res: m.checker.Check(ctx, shortURL)})
		})
	}

	finished := m.await(ctx, runPool(ctx, m.cfg.Workers, tasks), m.cfg.SweepTimeout)
	results := col.close()

	for shortURL, r := range results {
		delete(pending, shortURL)

		e, ok := m.links[shortURL]
		if !ok || e.gen != r.gen {
			// deleted or retargeted while the check was in flight
			continue
		}

		report.Checked++
		outcome, err := Classify(r.res, e.domain, m.cfg.ProviderDomain)
		m.metrics.recordCheck(ctx, outcome)

		switch outcome {
		case Healthy:
			report.Healthy++
		case Preview:
			report.PreviewErrors[shortURL] = e.domain
			logger.Warn("preview page intercepted", "short_url", shortURL, "expected", e.domain)
		default:
			report.Errors[shortURL] = diagnostic(err)
			logger.Error("redirect check failed", "short_url", shortURL, "error", report.Errors[shortURL])
		}
	}

	for shortURL := range pending {
		report.Incomplete = append(report.Incomplete, shortURL)
	}
	sort.Strings(report.Incomplete)
	if !finished && len(report.Incomplete) > 0 {
		logger.Warn("sweep ceiling reached, checks left incomplete",
			"incomplete", report.Incomplete, "ceiling", m.cfg.SweepTimeout)
	}

	if len(report.Errors) == 0 && len(report.PreviewErrors) == 0 && report.Checked > 0 {
		logger.Info("all redirects point to the right domain")
	}
}

func diagnostic(err error) string {
	var pe *provider.Error
	if errors.As(err, &pe) {
		return pe.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
