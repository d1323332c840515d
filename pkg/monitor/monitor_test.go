package monitor

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"redirect-mgmt-go/pkg/coord"
	"redirect-mgmt-go/pkg/fallback"
	"redirect-mgmt-go/pkg/probe"
	"redirect-mgmt-go/pkg/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		res      probe.Result
		expected string
		want     Outcome
		kind     provider.ErrorKind
	}{
		{
			name:     "healthy",
			res:      probe.Result{URL: "https://tinyurl.com/a", FinalURL: "https://www.example.com/landing"},
			expected: "example.com",
			want:     Healthy,
		},
		{
			name:     "preview page",
			res:      probe.Result{URL: "https://tinyurl.com/a", FinalURL: "https://preview.tinyurl.com/a"},
			expected: "example.com",
			want:     Preview,
			kind:     provider.KindPreviewInterception,
		},
		{
			name:     "mismatch",
			res:      probe.Result{URL: "https://tinyurl.com/a", FinalURL: "https://attacker.com/"},
			expected: "example.com",
			want:     Mismatch,
			kind:     provider.KindUnwantedDomain,
		},
		{
			name:     "transport failure",
			res:      probe.Result{URL: "https://tinyurl.com/a", Err: probe.ErrTimeout},
			expected: "example.com",
			want:     Failed,
			kind:     provider.KindRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.res, tt.expected, providerDomain)
			assert.Equal(t, tt.want, got)
			if tt.want == Healthy {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.kind, provider.KindOf(err))
		})
	}

	_, err := Classify(probe.Result{FinalURL: "https://attacker.com"}, "example.com", providerDomain)
	assert.Contains(t, err.Error(), "Redirect mismatch: Expected domain: example.com, got attacker.com")
}

func TestSelfHealEndToEnd(t *testing.T) {
	w := newWorld()
	short1 := w.addLink("short", "https://attacker.com/phish")
	logs := &safeBuffer{}

	h := startMonitor(t, testConfig(), Deps{
		Checker: w,
		Updater: w,
		Ring:    fallback.New([]string{"https://fallback.net"}),
		Logger:  slog.New(slog.NewJSONHandler(logs, nil)),
	})
	h.track(t, short1, "short", "https://example.com/target1")
	h.submit(t, coord.Ping{})

	report, msgs := h.waitReport(t)

	assert.Contains(t, logs.String(), "Redirect mismatch")
	assert.Empty(t, report.Errors)
	assert.Empty(t, report.PreviewErrors)
	assert.Equal(t, []string{short1}, report.Repaired)
	assert.Empty(t, ofKind(msgs, coord.KindDelete))
	assert.Empty(t, ofKind(msgs, coord.KindRepaired))

	// Only the self-heal update ran, with the original target.
	assert.Equal(t, []updateCall{{alias: "short", target: "https://example.com/target1"}}, w.updateCalls())
}

func TestTierOneRunsBeforeFallback(t *testing.T) {
	w := newWorld()
	short := w.addLink("abcde", "https://attacker.com")
	w.badTargets["https://example.com"] = true

	h := startMonitor(t, testConfig(), Deps{
		Checker: w,
		Updater: w,
		Ring:    fallback.New([]string{"https://fallback.net/page"}),
	})
	h.track(t, short, "abcde", "https://example.com")
	h.submit(t, coord.Ping{})

	report, msgs := h.waitReport(t)

	calls := w.updateCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, "https://example.com", calls[0].target, "self-heal first")
	assert.Equal(t, "https://fallback.net/page", calls[1].target)

	repaired := ofKind(msgs, coord.KindRepaired)
	require.Len(t, repaired, 1)
	r := repaired[0].(coord.Repaired)
	assert.Equal(t, coord.Repaired{
		Alias:     "abcde",
		ShortURL:  short,
		NewDomain: "fallback.net",
		NewURL:    "https://fallback.net/page",
		Tier:      2,
	}, r)
	assert.Equal(t, []string{short}, report.Repaired)
}

func TestPreviewSkipsSelfHeal(t *testing.T) {
	w := newWorld()
	short := w.addLink("prevw", "https://tinyurl.com/app/preview/prevw")

	h := startMonitor(t, testConfig(), Deps{
		Checker: w,
		Updater: w,
		Ring:    fallback.New([]string{"https://fallback.net"}),
	})
	h.track(t, short, "prevw", "https://example.com")
	h.submit(t, coord.Ping{})

	_, msgs := h.waitReport(t)

	assert.Equal(t, []updateCall{{alias: "prevw", target: "https://fallback.net"}}, w.updateCalls())
	require.Len(t, ofKind(msgs, coord.KindRepaired), 1)
}

func TestTrackDerivesMissingAlias(t *testing.T) {
	w := newWorld()
	short := w.addLink("prevw", "https://tinyurl.com/app/preview/prevw")

	h := startMonitor(t, testConfig(), Deps{
		Checker: w,
		Updater: w,
		Ring:    fallback.New([]string{"https://fallback.net"}),
	})
	h.track(t, short, "", "https://example.com")
	h.submit(t, coord.Ping{})

	_, msgs := h.waitReport(t)

	assert.Equal(t, []updateCall{{alias: "prevw", target: "https://fallback.net"}}, w.updateCalls())
	repaired := ofKind(msgs, coord.KindRepaired)
	require.Len(t, repaired, 1)
	assert.Equal(t, "prevw", repaired[0].(coord.Repaired).Alias)
}

func TestConcurrentRepairsEachTryWholePool(t *testing.T) {
	w := newWorld()
	a := w.addLink("aaaaa", "https://tinyurl.com/app/preview/aaaaa")
	b := w.addLink("bbbbb", "https://tinyurl.com/app/preview/bbbbb")
	w.checkDelay[a] = 100 * time.Millisecond
	w.checkDelay[b] = 100 * time.Millisecond
	w.badTargets["https://f1.net"] = true

	h := startMonitor(t, testConfig(), Deps{
		Checker: w,
		Updater: w,
		Ring:    fallback.New([]string{"https://f1.net", "https://f2.net"}),
	})
	h.track(t, a, "aaaaa", "https://example.com")
	h.track(t, b, "bbbbb", "https://example.com")
	h.submit(t, coord.Ping{})

	report, msgs := h.waitReport(t)

	assert.Empty(t, ofKind(msgs, coord.KindDelete), "updates: %v", w.updateCalls())
	assert.Empty(t, report.Purged)
	assert.ElementsMatch(t, []string{a, b}, report.Repaired)
	repaired := ofKind(msgs, coord.KindRepaired)
	require.Len(t, repaired, 2)
	for _, msg := range repaired {
		assert.Equal(t, "f2.net", msg.(coord.Repaired).NewDomain)
	}
}

func TestExhaustionPurgesOnce(t *testing.T) {
	w := newWorld()
	short := w.addLink("stuck", "https://attacker.com")
	w.stuck[short] = true
	fallbacks := []string{"https://a.net", "https://b.net", "https://c.net"}

	h := startMonitor(t, testConfig(), Deps{
		Checker: w,
		Updater: w,
		Ring:    fallback.New(fallbacks),
	})
	h.track(t, short, "stuck", "https://example.com")
	h.submit(t, coord.Ping{})

	report, msgs := h.waitReport(t)

	deletes := ofKind(msgs, coord.KindDelete)
	require.Len(t, deletes, 1)
	assert.Equal(t, short, deletes[0].(coord.Delete).ShortURL)
	assert.Equal(t, []string{short}, report.Purged)

	var targets []string
	for _, c := range w.updateCalls() {
		targets = append(targets, c.target)
	}
	assert.Equal(t, append([]string{"https://example.com"}, fallbacks...), targets)

	// The purged link is no longer part of the working set.
	checks := w.checkCount(short)
	h.submit(t, coord.Ping{})
	report, msgs = h.waitReport(t)
	assert.Equal(t, 0, report.Checked)
	assert.Equal(t, checks, w.checkCount(short))
	assert.Empty(t, ofKind(msgs, coord.KindDelete))
}

func TestEmptyRingPurges(t *testing.T) {
	w := newWorld()
	short := w.addLink("nofbk", "https://attacker.com")
	w.failUpdates = true

	h := startMonitor(t, testConfig(), Deps{Checker: w, Updater: w, Ring: fallback.New(nil)})
	h.track(t, short, "nofbk", "https://example.com")
	h.submit(t, coord.Ping{})

	_, msgs := h.waitReport(t)
	deletes := ofKind(msgs, coord.KindDelete)
	require.Len(t, deletes, 1)
	assert.Equal(t, "no fallback available", deletes[0].(coord.Delete).Reason)
}

func TestSweepIsolation(t *testing.T) {
	w := newWorld()
	healthy := w.addLink("good", "https://example.com/ok")
	broken := w.addLink("bad", "https://attacker.com")
	w.stuck[broken] = true

	h := startMonitor(t, testConfig(), Deps{
		Checker: w,
		Updater: w,
		Ring:    fallback.New([]string{"https://fallback.net"}),
	})
	h.track(t, healthy, "good", "https://example.com")
	h.track(t, broken, "bad", "https://example.org")
	h.submit(t, coord.Ping{})

	report, msgs := h.waitReport(t)

	assert.Equal(t, 2, report.Checked)
	assert.Equal(t, 1, report.Healthy)
	assert.NotContains(t, report.Errors, healthy)
	assert.NotContains(t, report.PreviewErrors, healthy)
	for _, c := range w.updateCalls() {
		assert.Equal(t, "bad", c.alias)
	}
	deletes := ofKind(msgs, coord.KindDelete)
	require.Len(t, deletes, 1)
	assert.Equal(t, broken, deletes[0].(coord.Delete).ShortURL)
}

func TestDeleteStopsMonitoring(t *testing.T) {
	w := newWorld()
	a := w.addLink("aaaaa", "https://example.com")
	b := w.addLink("bbbbb", "https://example.com")

	h := startMonitor(t, testConfig(), Deps{Checker: w, Updater: w})
	h.track(t, a, "aaaaa", "https://example.com")
	h.track(t, b, "bbbbb", "https://example.com")
	h.submit(t, coord.Delete{Alias: "bbbbb"})
	h.submit(t, coord.Ping{})

	report, _ := h.waitReport(t)
	assert.Equal(t, 1, report.Checked)
	assert.Equal(t, 0, w.checkCount(b))
}

func stuckRepairHarness(t *testing.T) (*world, *harness, string) {
	t.Helper()
	w := newWorld()
	short := w.addLink("stuck", "https://attacker.com")
	w.stuck[short] = true

	cfg := testConfig()
	cfg.JitterMin = 150 * time.Millisecond
	cfg.JitterMax = 150 * time.Millisecond
	h := startMonitor(t, cfg, Deps{
		Checker: w,
		Updater: w,
		Ring:    fallback.New([]string{"https://a.net", "https://b.net", "https://c.net", "https://d.net"}),
	})
	h.track(t, short, "stuck", "https://example.com")
	h.submit(t, coord.Ping{})
	time.Sleep(100 * time.Millisecond)
	return w, h, short
}

func TestDeleteCancelsRunningRepair(t *testing.T) {
	w, h, short := stuckRepairHarness(t)

	h.submit(t, coord.Delete{ShortURL: short})
	before := len(w.updateCalls())
	time.Sleep(800 * time.Millisecond)
	assert.Len(t, w.updateCalls(), before, "no provider updates after delete")

	report, msgs := h.waitReport(t)
	assert.Empty(t, ofKind(msgs, coord.KindDelete))
	assert.Empty(t, ofKind(msgs, coord.KindRepaired))
	assert.Empty(t, report.Purged)
}

func TestRetargetCancelsRunningRepair(t *testing.T) {
	w, h, short := stuckRepairHarness(t)

	h.track(t, short, "stuck", "https://example.net")
	before := len(w.updateCalls())
	time.Sleep(800 * time.Millisecond)
	assert.Len(t, w.updateCalls(), before, "stale repair kept updating")

	report, msgs := h.waitReport(t)
	assert.Empty(t, ofKind(msgs, coord.KindDelete), "retargeted link must not be purged")
	assert.Empty(t, report.Purged)
}

func TestSweepCeilingLeavesChecksIncomplete(t *testing.T) {
	w := newWorld()
	fast := w.addLink("fast", "https://example.com")
	slow := w.addLink("slow", "https://example.com")
	w.checkDelay[slow] = time.Second

	cfg := testConfig()
	cfg.SweepTimeout = 50 * time.Millisecond
	h := startMonitor(t, cfg, Deps{Checker: w, Updater: w})
	h.track(t, fast, "fast", "https://example.com")
	h.track(t, slow, "slow", "https://example.com")
	h.submit(t, coord.Ping{})

	report, _ := h.waitReport(t)
	assert.Equal(t, []string{slow}, report.Incomplete)
	assert.NotContains(t, report.Errors, slow, "incomplete is not failed")
	assert.Equal(t, 1, report.Healthy)
}

func TestControlHandledDuringSweep(t *testing.T) {
	w := newWorld()
	slow := w.addLink("slow", "https://example.com")
	w.checkDelay[slow] = 500 * time.Millisecond

	h := startMonitor(t, testConfig(), Deps{Checker: w, Updater: w})
	h.track(t, slow, "slow", "https://example.com")
	h.ch.Send(coord.Ping{})

	require.Eventually(t, func() bool { return h.m.State() == Sweeping }, time.Second, 5*time.Millisecond)

	start := time.Now()
	h.submit(t, coord.Delete{ShortURL: slow})
	assert.Less(t, time.Since(start), 400*time.Millisecond, "delete acknowledged while the sweep was running")

	report, _ := h.waitReport(t)
	assert.Equal(t, 0, report.Checked, "result for a deleted link is discarded")
}

func TestDelayDrivesScheduledSweeps(t *testing.T) {
	w := newWorld()
	short := w.addLink("aaaaa", "https://example.com")

	h := startMonitor(t, testConfig(), Deps{Checker: w, Updater: w})
	h.track(t, short, "aaaaa", "https://example.com")
	h.submit(t, coord.Delay{Interval: 20 * time.Millisecond})
	h.submit(t, coord.Threads{Workers: 2})

	report, _ := h.waitReport(t)
	assert.Equal(t, 1, report.Checked)
}

func TestOfflineSkipsScheduledSweeps(t *testing.T) {
	w := newWorld()
	short := w.addLink("aaaaa", "https://example.com")

	h := startMonitor(t, testConfig(), Deps{Checker: w, Updater: w})
	h.track(t, short, "aaaaa", "https://example.com")
	h.submit(t, coord.Online{Enabled: false})
	h.submit(t, coord.Delay{Interval: 10 * time.Millisecond})

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, w.checkCount(short))

	// An explicit ping still sweeps.
	h.submit(t, coord.Ping{})
	report, _ := h.waitReport(t)
	assert.Equal(t, 1, report.Checked)
}

func TestExitStopsMonitor(t *testing.T) {
	h := startMonitor(t, testConfig(), Deps{Checker: newWorld(), Updater: newWorld()})
	h.submit(t, coord.Exit{})

	select {
	case <-h.m.Done():
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
	assert.NoError(t, <-h.err)
	assert.Equal(t, Stopped, h.m.State())
}

func TestContextCancelStopsMonitor(t *testing.T) {
	m := New(testConfig(), Deps{Checker: newWorld(), Updater: newWorld()})
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- m.Run(ctx) }()

	cancel()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("monitor ignored cancellation")
	}
}

func TestMetricsRecorded(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	metrics, err := NewMetrics(mp.Meter(MeterName))
	require.NoError(t, err)

	w := newWorld()
	short := w.addLink("aaaaa", "https://example.com")
	h := startMonitor(t, testConfig(), Deps{Checker: w, Updater: w, Metrics: metrics})
	h.track(t, short, "aaaaa", "https://example.com")
	h.submit(t, coord.Ping{})
	h.waitReport(t)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	found := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if sum, ok := md.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					found[md.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(1), found["monitor.sweeps"])
	assert.Equal(t, int64(1), found["monitor.checks"])
}
