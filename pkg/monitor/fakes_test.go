package monitor

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"redirect-mgmt-go/pkg/coord"
	"redirect-mgmt-go/pkg/models"
	"redirect-mgmt-go/pkg/probe"
	"redirect-mgmt-go/pkg/provider"
	"redirect-mgmt-go/pkg/utils"

	"github.com/stretchr/testify/require"
)

const providerDomain = "tinyurl.com"

type updateCall struct {
	alias  string
	target string
}

// world fakes both the provider and the internet: updates move where a short
// link lands unless the link is stuck or the target is broken.
type world struct {
	mu          sync.Mutex
	landing     map[string]string
	byAlias     map[string]string
	stuck       map[string]bool
	badTargets  map[string]bool
	failUpdates bool
	checkDelay  map[string]time.Duration
	updates     []updateCall
	checks      map[string]int
}

func newWorld() *world {
	return &world{
		landing:    make(map[string]string),
		byAlias:    make(map[string]string),
		stuck:      make(map[string]bool),
		badTargets: make(map[string]bool),
		checkDelay: make(map[string]time.Duration),
		checks:     make(map[string]int),
	}
}

func (w *world) addLink(alias, landsOn string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	shortURL := "https://" + providerDomain + "/" + alias
	w.byAlias[alias] = shortURL
	w.landing[shortURL] = landsOn
	return shortURL
}

func (w *world) Check(ctx context.Context, link string) probe.Result {
	w.mu.Lock()
	w.checks[link]++
	delay := w.checkDelay[link]
	final := w.landing[link]
	w.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return probe.Result{URL: link, Err: probe.ErrTimeout}
		}
	}
	return probe.Result{URL: link, FinalURL: final, StatusCode: 200}
}

func (w *world) Update(ctx context.Context, alias, target string, _ provider.UpdateOptions) (*models.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	w.updates = append(w.updates, updateCall{alias: alias, target: target})
	if w.failUpdates {
		return nil, &provider.Error{Kind: provider.KindUpdate, Message: "rejected", Status: 422}
	}
	shortURL := w.byAlias[alias]
	if !w.stuck[shortURL] && !w.badTargets[target] {
		w.landing[shortURL] = target
	}
	return &models.Link{
		ShortURL:       shortURL,
		Alias:          alias,
		IntendedTarget: target,
		ResolvedDomain: utils.ResolveDomain(target),
	}, nil
}

func (w *world) updateCalls() []updateCall {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]updateCall(nil), w.updates...)
}

func (w *world) checkCount(link string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.checks[link]
}

// safeBuffer lets tests read what the monitor logged.
type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testConfig() Config {
	return Config{
		Interval:       time.Hour,
		Workers:        4,
		CheckTimeout:   time.Second,
		UpdateTimeout:  time.Second,
		SweepTimeout:   2 * time.Second,
		RepairTimeout:  2 * time.Second,
		ProviderDomain: providerDomain,
	}
}

type harness struct {
	m   *Monitor
	ch  *coord.Channel
	err chan error
}

func startMonitor(t *testing.T, cfg Config, deps Deps) *harness {
	t.Helper()
	if deps.Channel == nil {
		deps.Channel = coord.New()
	}
	m := New(cfg, deps)

	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{m: m, ch: deps.Channel, err: make(chan error, 1)}
	go func() { h.err <- m.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		<-m.Done()
	})
	return h
}

func (h *harness) submit(t *testing.T, msg coord.Message) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, h.ch.Submit(ctx, msg))
}

func (h *harness) track(t *testing.T, shortURL, alias, target string) {
	t.Helper()
	h.submit(t, coord.Update{
		ShortURL: shortURL,
		Alias:    alias,
		Target:   target,
		Domain:   utils.ResolveDomain(target),
	})
}

// waitReport collects feedback until a sweep report arrives.
func (h *harness) waitReport(t *testing.T) (coord.SweepReport, []coord.Message) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var others []coord.Message
	for {
		msgs, err := h.ch.WaitFeedback(ctx)
		require.NoError(t, err, "no sweep report arrived")
		for _, msg := range msgs {
			if r, ok := msg.(coord.Report); ok {
				return r.SweepReport, others
			}
			others = append(others, msg)
		}
	}
}

func ofKind(msgs []coord.Message, kind coord.Kind) []coord.Message {
	var out []coord.Message
	for _, m := range msgs {
		if m.Kind() == kind {
			out = append(out, m)
		}
	}
	return out
}

