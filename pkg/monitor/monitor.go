// Package monitor periodically follows every tracked short link, classifies
// the ones that no longer land on their intended domain and repairs them,
// first by re-submitting the same target and then by rotating through the
// fallback pool.
//
// The monitor owns a private mirror of the links it watches. It never sees
// the session's registry: every change arrives as a coord message and every
// result leaves as one.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"redirect-mgmt-go/pkg/coord"
	"redirect-mgmt-go/pkg/models"
	"redirect-mgmt-go/pkg/probe"
	"redirect-mgmt-go/pkg/provider"
	"redirect-mgmt-go/pkg/utils"
)

// State is the scheduler's current phase.
type State int32

const (
	Idle State = iota
	ControlProcessing
	Sweeping
	Repairing
	Reporting
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ControlProcessing:
		return "control"
	case Sweeping:
		return "sweeping"
	case Repairing:
		return "repairing"
	case Reporting:
		return "reporting"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Checker follows a short link to where it lands.
type Checker interface {
	Check(ctx context.Context, link string) probe.Result
}

// Updater retargets a short link at the provider.
type Updater interface {
	Update(ctx context.Context, alias, target string, opts provider.UpdateOptions) (*models.Link, error)
}

// Ring hands out fallback targets.
type Ring interface {
	Current() (string, bool)
	Advance() (string, bool)
	URLs() []string
}

// Notifier receives a copy of every feedback message. Failures are logged.
type Notifier interface {
	Notify(ctx context.Context, msg coord.Message) error
}

type Config struct {
	Interval        time.Duration
	Workers         int
	MaxWorkers      int
	CheckTimeout    time.Duration
	UpdateTimeout   time.Duration
	SweepTimeout    time.Duration
	RepairTimeout   time.Duration
	SelfHealRetries int
	JitterMin       time.Duration
	JitterMax       time.Duration
	ProviderDomain  string
	Paused          bool // start without scheduled sweeps
}

// DefaultConfig returns the stock schedule and limits.
func DefaultConfig() Config {
	return Config{
		Interval:        60 * time.Second,
		Workers:         4,
		MaxWorkers:      32,
		CheckTimeout:    3 * time.Second,
		UpdateTimeout:   5 * time.Second,
		SweepTimeout:    60 * time.Second,
		RepairTimeout:   60 * time.Second,
		SelfHealRetries: 3,
		JitterMin:       2 * time.Second,
		JitterMax:       6 * time.Second,
	}
}

type Deps struct {
	Checker  Checker
	Updater  Updater
	Ring     Ring
	Channel  *coord.Channel
	Logger   *slog.Logger
	Metrics  *Metrics
	Notifier Notifier
}

// entry is the monitor's view of one link. gen changes whenever the session
// retargets the link so stale check results can be recognized.
type entry struct {
	alias  string
	target string
	domain string
	gen    uint64
}

type Monitor struct {
	cfg      Config
	checker  Checker
	updater  Updater
	ring     Ring
	ch       *coord.Channel
	logger   *slog.Logger
	metrics  *Metrics
	notifier Notifier

	// owned by the scheduler goroutine
	links     map[string]entry
	nextGen   uint64
	repairing map[string]inflight
	online    bool
	forced    bool
	retimed   bool
	exit      bool
	outcomes  chan repairOutcome
	current   *coord.SweepReport

	state atomic.Int32
	done  chan struct{}
}

// New builds a monitor. Run must be called to start it.
func New(cfg Config, deps Deps) *Monitor {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.MaxWorkers < cfg.Workers {
		cfg.MaxWorkers = max(def.MaxWorkers, cfg.Workers)
	}
	if cfg.CheckTimeout <= 0 {
		cfg.CheckTimeout = def.CheckTimeout
	}
	if cfg.UpdateTimeout <= 0 {
		cfg.UpdateTimeout = def.UpdateTimeout
	}
	if cfg.SweepTimeout <= 0 {
		cfg.SweepTimeout = def.SweepTimeout
	}
	if cfg.RepairTimeout <= 0 {
		cfg.RepairTimeout = def.RepairTimeout
	}
	if cfg.SelfHealRetries <= 0 {
		cfg.SelfHealRetries = def.SelfHealRetries
	}
	if cfg.JitterMax < cfg.JitterMin {
		cfg.JitterMax = cfg.JitterMin
	}

	m := &Monitor{
		cfg:       cfg,
		checker:   deps.Checker,
		updater:   deps.Updater,
		ring:      deps.Ring,
		ch:        deps.Channel,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
		notifier:  deps.Notifier,
		links:     make(map[string]entry),
		repairing: make(map[string]inflight),
		online:    !cfg.Paused,
		outcomes:  make(chan repairOutcome, 64),
		done:      make(chan struct{}),
	}
	if m.logger == nil {
		m.logger = slog.New(slog.DiscardHandler)
	}
	if m.metrics == nil {
		m.metrics = noopMetrics()
	}
	if m.ch == nil {
		m.ch = coord.New()
	}
	return m
}

// State reports the scheduler's phase. Safe to call from any goroutine.
func (m *Monitor) State() State {
	return State(m.state.Load())
}

// Done is closed once Run has returned.
func (m *Monitor) Done() <-chan struct{} {
	return m.done
}

func (m *Monitor) setState(s State) {
	m.state.Store(int32(s))
}

// Run is the scheduler loop. It returns nil after an Exit message and the
// context's error when ctx ends first.
func (m *Monitor) Run(ctx context.Context) error {
	defer close(m.done)
	defer m.setState(Stopped)
	defer m.cancelRepairs()

	m.logger.Info("monitor started",
		"interval", m.cfg.Interval, "workers", m.cfg.Workers, "online", m.online)

	timer := time.NewTimer(m.cfg.Interval)
	defer timer.Stop()

	for {
		m.setState(Idle)

		if !m.forced {
			select {
			case <-ctx.Done():
				return ctx.Err()

			case out := <-m.outcomes:
				m.applyOutcome(ctx, out)
				continue

			case <-m.ch.ControlSignal():
				m.processControl()
				if m.exit {
					m.logger.Info("monitor stopped")
					return nil
				}
				if m.retimed {
					m.retimed = false
					timer.Reset(m.cfg.Interval)
				}
				if !m.forced {
					continue
				}

			case <-timer.C:
				if !m.online {
					timer.Reset(m.cfg.Interval)
					continue
				}
			}
		}

		m.forced = false
		m.cycle(ctx)
		if m.exit {
			m.logger.Info("monitor stopped")
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		m.retimed = false
		timer.Reset(m.cfg.Interval)
	}
}

// processControl drains the control queue.
func (m *Monitor) processControl() {
	prev := m.State()
	m.setState(ControlProcessing)
	defer m.setState(prev)

	if _, err := m.ch.DrainControl(m); err != nil {
		m.logger.Error("control message rejected", "error", err)
	}
}

// HandleUpdate starts or refreshes monitoring of a link. A repair already
// running for it is cancelled since its outcome would be stale.
func (m *Monitor) HandleUpdate(msg coord.Update) {
	alias := msg.Alias
	if alias == "" {
		alias = utils.AliasFromShortURL(msg.ShortURL)
	}
	m.cancelRepair(msg.ShortURL)
	m.nextGen++
	m.links[msg.ShortURL] = entry{
		alias:  alias,
		target: msg.Target,
		domain: msg.Domain,
		gen:    m.nextGen,
	}
	m.logger.Debug("tracking link", "short_url", msg.ShortURL, "domain", msg.Domain)
}

// HandleDelete stops monitoring a link.
func (m *Monitor) HandleDelete(msg coord.Delete) {
	shortURL := msg.ShortURL
	if shortURL == "" {
		for url, e := range m.links {
			if e.alias == msg.Alias {
				shortURL = url
				break
			}
		}
	}
	m.cancelRepair(shortURL)
	delete(m.links, shortURL)
	m.logger.Debug("untracked link", "short_url", shortURL)
}

func (m *Monitor) HandleDelay(msg coord.Delay) {
	if msg.Interval <= 0 {
		m.logger.Warn("ignoring non-positive interval", "interval", msg.Interval)
		return
	}
	m.cfg.Interval = msg.Interval
	m.retimed = true
	m.logger.Info("ping interval changed", "interval", msg.Interval)
}

func (m *Monitor) HandleThreads(msg coord.Threads) {
	workers := min(max(msg.Workers, 1), m.cfg.MaxWorkers)
	m.cfg.Workers = workers
	m.logger.Info("worker pool resized", "workers", workers)
}

func (m *Monitor) HandleExit(coord.Exit) {
	m.exit = true
}

func (m *Monitor) HandlePing(coord.Ping) {
	m.forced = true
}

func (m *Monitor) HandleOnline(msg coord.Online) {
	m.online = msg.Enabled
	m.logger.Info("scheduled sweeps toggled", "online", msg.Enabled)
}

// Tracked returns how many links are being watched. Only meaningful from the
// scheduler goroutine or after Run returned.
func (m *Monitor) Tracked() int {
	return len(m.links)
}

func (m *Monitor) publish(ctx context.Context, msg coord.Message) {
	m.ch.Publish(msg)
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Notify(ctx, msg); err != nil && !errors.Is(err, context.Canceled) {
		m.logger.Warn("notify failed", "kind", msg.Kind(), "error", err)
	}
}
