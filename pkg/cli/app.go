package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"redirect-mgmt-go/pkg/cli/logger"
	"redirect-mgmt-go/pkg/config"
	"redirect-mgmt-go/pkg/coord"
	"redirect-mgmt-go/pkg/fallback"
	"redirect-mgmt-go/pkg/monitor"
	"redirect-mgmt-go/pkg/notify"
	"redirect-mgmt-go/pkg/probe"
	"redirect-mgmt-go/pkg/provider"
	"redirect-mgmt-go/pkg/utils"

	"github.com/pelletier/go-toml/v2"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

type App struct {
	cfg        *config.Config
	configPath string
}

// NewApp wraps a loaded config. configPath is where `config set` saves to;
// empty means the default location.
func NewApp(cfg *config.Config, configPath string) *App {
	return &App{cfg: cfg, configPath: configPath}
}

func (a *App) Config() *config.Config {
	return a.cfg
}

// ShowConfig writes the current configuration as TOML. Tokens are masked.
func (a *App) ShowConfig(w io.Writer) error {
	shown := *a.cfg
	shown.Provider.Tokens = make([]string, len(a.cfg.Provider.Tokens))
	for i, t := range a.cfg.Provider.Tokens {
		shown.Provider.Tokens[i] = maskToken(t)
	}
	data, err := toml.Marshal(&shown)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// SetConfig sets a configuration value and saves the file.
// Format: section.key=value (e.g., "monitor.interval_seconds=30")
func (a *App) SetConfig(assignment string) error {
	if err := a.cfg.Set(assignment); err != nil {
		return err
	}
	if a.configPath == "" {
		return config.Save(a.cfg)
	}
	return config.SaveTo(a.configPath, a.cfg)
}

func maskToken(t string) string {
	if len(t) <= 4 {
		return "****"
	}
	return "****" + t[len(t)-4:]
}

// ProviderConfig maps the [provider] section onto the client config.
func (a *App) ProviderConfig() provider.Config {
	p := a.cfg.Provider
	return provider.Config{
		BaseURL:       p.BaseURL,
		ShortDomain:   p.ShortDomain,
		ShortScheme:   p.ShortScheme,
		Timeout:       config.Seconds(p.RequestTimeout),
		AliasLength:   p.AliasLength,
		RatePerSecond: p.RatePerSecond,
	}
}

// MonitorConfig maps the [monitor] section onto the scheduler config.
func (a *App) MonitorConfig() monitor.Config {
	m := a.cfg.Monitor
	return monitor.Config{
		Interval:        config.Seconds(m.IntervalSeconds),
		Workers:         m.Workers,
		MaxWorkers:      m.MaxWorkers,
		CheckTimeout:    config.Seconds(m.CheckTimeoutSeconds),
		UpdateTimeout:   config.Seconds(m.UpdateTimeoutSeconds),
		SweepTimeout:    config.Seconds(m.SweepTimeoutSeconds),
		RepairTimeout:   config.Seconds(m.RepairTimeoutSeconds),
		SelfHealRetries: m.SelfHealRetries,
		JitterMin:       config.Millis(m.JitterMinMS),
		JitterMax:       config.Millis(m.JitterMaxMS),
		ProviderDomain:  a.cfg.Provider.ShortDomain,
	}
}

// Runtime is everything a running session shares with the monitor.
type Runtime struct {
	Logger   *slog.Logger
	Client   *provider.Client
	Ring     *fallback.Ring
	Channel  *coord.Channel
	Monitor  *monitor.Monitor
	Metrics  *sdkmetric.ManualReader
	Interval time.Duration

	cancel  context.CancelFunc
	closers []func() error
}

// Start builds the provider client, fallback pool and monitor, and starts
// the monitor goroutine. Missing tokens are the only fatal error; a bad
// fallback entry or an unreachable NATS server is logged and skipped.
func (a *App) Start(ctx context.Context) (*Runtime, error) {
	log, closeLog, err := logger.New(logger.Options{
		Enabled: a.cfg.Log.Enabled,
		Path:    a.cfg.Log.Path,
		Level:   a.cfg.Log.Level,
	})
	if err != nil {
		return nil, err
	}
	rt := &Runtime{Logger: log, closers: []func() error{closeLog}}

	tokens, err := a.cfg.ResolveTokens()
	if err != nil {
		_ = rt.close()
		return nil, err
	}

	fallbacks, err := a.cfg.ResolveFallbacks()
	if err != nil {
		_ = rt.close()
		return nil, err
	}
	rt.Ring = fallback.New(validFallbacks(fallbacks, log))

	rt.Client = provider.NewClient(a.ProviderConfig(), provider.NewTokenPool(tokens), provider.WithLogger(log))

	rt.Metrics = sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(rt.Metrics))
	rt.closers = append(rt.closers, func() error { return mp.Shutdown(context.Background()) })
	metrics, err := monitor.NewMetrics(mp.Meter(monitor.MeterName))
	if err != nil {
		_ = rt.close()
		return nil, fmt.Errorf("failed to create monitor metrics: %w", err)
	}

	var notifier monitor.Notifier = notify.Nop{}
	if url := a.cfg.Notify.NATSURL; url != "" {
		n, err := notify.Connect(url, a.cfg.Notify.Subject)
		if err != nil {
			log.Warn("event publishing disabled", "error", err)
		} else {
			notifier = n
			rt.closers = append(rt.closers, func() error { n.Close(); return nil })
		}
	}

	mcfg := a.MonitorConfig()
	rt.Interval = mcfg.Interval
	rt.Channel = coord.New()
	rt.Monitor = monitor.New(mcfg, monitor.Deps{
		Checker:  probe.NewChecker(mcfg.CheckTimeout),
		Updater:  rt.Client,
		Ring:     rt.Ring,
		Channel:  rt.Channel,
		Logger:   log.With("component", "monitor"),
		Metrics:  metrics,
		Notifier: notifier,
	})

	monCtx, cancel := context.WithCancel(ctx)
	rt.cancel = cancel
	go func() {
		if err := rt.Monitor.Run(monCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("monitor stopped", "error", err)
		}
	}()

	log.Info("session started",
		"provider_domain", rt.Client.ShortDomain(), "tokens", len(tokens),
		"fallbacks", rt.Ring.URLs(), "interval", mcfg.Interval)
	return rt, nil
}

// Shutdown asks the monitor to exit, waits for it until ctx ends, then
// releases everything Start opened.
func (rt *Runtime) Shutdown(ctx context.Context) error {
	select {
	case <-rt.Monitor.Done():
	default:
		rt.Channel.Send(coord.Exit{})
	}
	select {
	case <-rt.Monitor.Done():
		rt.Logger.Info("monitor stopped", "tracked", rt.Monitor.Tracked())
	case <-ctx.Done():
		rt.Logger.Warn("monitor did not stop in time")
	}
	rt.cancel()
	return rt.close()
}

func (rt *Runtime) close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func validFallbacks(urls []string, log *slog.Logger) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		v, err := utils.ValidateURL(u)
		if err != nil {
			log.Warn("skipping invalid fallback url", "url", u, "error", err)
			continue
		}
		out = append(out, v)
	}
	return out
}
