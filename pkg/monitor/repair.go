package monitor

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"slices"
	"time"

	"redirect-mgmt-go/pkg/coord"
	"redirect-mgmt-go/pkg/provider"
	"redirect-mgmt-go/pkg/utils"
)

type repairResult int

const (
	abandoned repairResult = iota
	selfHealed
	fallbackRepaired
	exhausted
)

type repairJob struct {
	shortURL string
	entry    entry
	selfHeal bool
}

// inflight is a running repair. gen is the link generation it started from.
type inflight struct {
	gen    uint64
	cancel context.CancelFunc
}

type repairOutcome struct {
	shortURL  string
	gen       uint64
	result    repairResult
	newURL    string
	newDomain string
	reason    string
}

// repairPhase repairs every link the sweep flagged. Mismatches and failures
// go through self-heal first; preview interceptions skip straight to the
// fallback pool because their target is already correct.
func (m *Monitor) repairPhase(ctx context.Context, report *coord.SweepReport, logger *slog.Logger) {
	var tasks []func(context.Context)
	add := func(shortURL string, selfHeal bool) {
		if _, busy := m.repairing[shortURL]; busy {
			logger.Debug("repair already in flight", "short_url", shortURL)
			return
		}
		e, ok := m.links[shortURL]
		if !ok {
			return
		}
		jobCtx, cancel := context.WithCancel(ctx)
		m.repairing[shortURL] = inflight{gen: e.gen, cancel: cancel}
		job := repairJob{shortURL: shortURL, entry: e, selfHeal: selfHeal}
		tasks = append(tasks, func(context.Context) {
			out := m.repair(jobCtx, job, logger.With("short_url", job.shortURL))
			select {
			case m.outcomes <- out:
			case <-m.done:
			}
		})
	}
	for shortURL := range report.Errors {
		add(shortURL, true)
	}
	for shortURL := range report.PreviewErrors {
		add(shortURL, false)
	}
	if len(tasks) == 0 {
		return
	}

	logger.Info("repairing redirects", "count", len(tasks))

	if !m.await(ctx, runPool(ctx, m.cfg.Workers, tasks), m.cfg.RepairTimeout) {
		logger.Warn("repair ceiling reached, remaining repairs continue in background",
			"ceiling", m.cfg.RepairTimeout)
	}
	m.drainOutcomes(ctx)
}

// repair runs both tiers for one link. It never returns an error: provider
// and transport failures only move it to the next attempt.
func (m *Monitor) repair(ctx context.Context, job repairJob, logger *slog.Logger) repairOutcome {
	out := repairOutcome{shortURL: job.shortURL, gen: job.entry.gen}

	if job.selfHeal && m.selfHeal(ctx, job, logger) {
		out.result = selfHealed
		return out
	}

	// Every repair tries each pool entry once, starting at the shared cursor.
	var pool []string
	if m.ring != nil {
		pool = m.ring.URLs()
	}
	if len(pool) == 0 {
		logger.Warn("no fallback available")
		out.result = exhausted
		out.reason = "no fallback available"
		return out
	}
	start := 0
	if cur, ok := m.ring.Current(); ok {
		start = max(slices.Index(pool, cur), 0)
	}

	for i := range len(pool) {
		if ctx.Err() != nil {
			out.result = abandoned
			return out
		}

		fallback := pool[(start+i)%len(pool)]
		logger.Info("attempting fallback redirect", "fallback", fallback, "attempt", i+1, "of", len(pool))

		link, err := m.updater.Update(ctx, job.entry.alias, fallback, provider.UpdateOptions{
			Retries: 1,
			Timeout: m.cfg.UpdateTimeout,
		})
		if !m.sleepJitter(ctx) {
			out.result = abandoned
			return out
		}
		if err != nil {
			logger.Debug("fallback update failed", "fallback", fallback, "error", err)
			m.metrics.recordRepair(ctx, 2, false)
			m.ring.Advance()
			continue
		}

		newURL := utils.EnsureScheme(fallback)
		if link != nil && link.IntendedTarget != "" {
			newURL = link.IntendedTarget
		}
		newDomain := utils.ResolveDomain(newURL)

		outcome, cerr := Classify(m.checker.Check(ctx, job.shortURL), newDomain, m.cfg.ProviderDomain)
		if outcome == Healthy {
			m.metrics.recordRepair(ctx, 2, true)
			logger.Info("redirect moved to fallback", "from", job.entry.target, "to", newURL)
			out.result = fallbackRepaired
			out.newURL = newURL
			out.newDomain = newDomain
			return out
		}
		if ctx.Err() != nil {
			out.result = abandoned
			return out
		}

		logger.Debug("fallback did not take", "fallback", fallback, "error", diagnostic(cerr))
		m.metrics.recordRepair(ctx, 2, false)
		m.ring.Advance()
	}

	logger.Error("every fallback failed, dropping link")
	out.result = exhausted
	out.reason = "all fallbacks failed"
	return out
}

// selfHeal re-submits the link's own target and re-checks it.
func (m *Monitor) selfHeal(ctx context.Context, job repairJob, logger *slog.Logger) bool {
	target := job.entry.target
	if target == "" {
		target = utils.DomainAsURL(job.entry.domain)
	}

	if _, err := m.updater.Update(ctx, job.entry.alias, target, provider.UpdateOptions{
		Retries: m.cfg.SelfHealRetries,
		Timeout: m.cfg.UpdateTimeout,
	}); err != nil {
		logger.Debug("unable to self-update", "error", err)
		m.metrics.recordRepair(ctx, 1, false)
		return false
	}

	outcome, err := Classify(m.checker.Check(ctx, job.shortURL), job.entry.domain, m.cfg.ProviderDomain)
	if outcome != Healthy {
		logger.Debug("self-update did not fix redirect", "error", diagnostic(err))
		m.metrics.recordRepair(ctx, 1, false)
		return false
	}

	logger.Info("redirect restored by self-update", "target", target)
	m.metrics.recordRepair(ctx, 1, true)
	return true
}

// applyOutcome folds a finished repair into the working set. It runs on the
// scheduler goroutine only.
func (m *Monitor) applyOutcome(ctx context.Context, out repairOutcome) {
	if r, ok := m.repairing[out.shortURL]; ok && r.gen == out.gen {
		r.cancel()
		delete(m.repairing, out.shortURL)
	}

	e, ok := m.links[out.shortURL]
	if !ok || e.gen != out.gen {
		m.logger.Debug("discarding repair outcome for changed link", "short_url", out.shortURL)
		return
	}

	switch out.result {
	case selfHealed:
		m.markResolved(out.shortURL, false)

	case fallbackRepaired:
		m.nextGen++
		m.links[out.shortURL] = entry{
			alias:  e.alias,
			target: out.newURL,
			domain: out.newDomain,
			gen:    m.nextGen,
		}
		m.markResolved(out.shortURL, false)
		m.publish(ctx, coord.Repaired{
			Alias:     e.alias,
			ShortURL:  out.shortURL,
			NewDomain: out.newDomain,
			NewURL:    out.newURL,
			Tier:      2,
		})

	case exhausted:
		delete(m.links, out.shortURL)
		m.metrics.recordPurge(ctx)
		m.markResolved(out.shortURL, true)
		m.publish(ctx, coord.Delete{
			Alias:    e.alias,
			ShortURL: out.shortURL,
			Reason:   out.reason,
		})

	case abandoned:
	}
}

// cancelRepair stops the in-flight repair of shortURL, if any. Its outcome
// still arrives later and is dropped as abandoned.
func (m *Monitor) cancelRepair(shortURL string) {
	r, ok := m.repairing[shortURL]
	if !ok {
		return
	}
	r.cancel()
	delete(m.repairing, shortURL)
	m.logger.Debug("cancelled in-flight repair", "short_url", shortURL)
}

func (m *Monitor) cancelRepairs() {
	for shortURL := range m.repairing {
		m.cancelRepair(shortURL)
	}
}

// markResolved moves a link out of the current report's error sets.
func (m *Monitor) markResolved(shortURL string, purged bool) {
	r := m.current
	if r == nil {
		return
	}
	delete(r.Errors, shortURL)
	delete(r.PreviewErrors, shortURL)
	if purged {
		r.Purged = append(r.Purged, shortURL)
	} else {
		r.Repaired = append(r.Repaired, shortURL)
	}
}

func (m *Monitor) drainOutcomes(ctx context.Context) {
	for {
		select {
		case out := <-m.outcomes:
			m.applyOutcome(ctx, out)
		default:
			return
		}
	}
}

// sleepJitter waits a random delay in [JitterMin, JitterMax]. It returns
// false if ctx ended first.
func (m *Monitor) sleepJitter(ctx context.Context) bool {
	d := m.cfg.JitterMin
	if span := m.cfg.JitterMax - m.cfg.JitterMin; span > 0 {
		d += time.Duration(rand.Int64N(int64(span) + 1))
	}
	if d <= 0 {
		return ctx.Err() == nil
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
