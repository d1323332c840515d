package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"redirect-mgmt-go/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix prefixes every environment override, e.g.
// REDIRECT_MGMT_PROVIDER_BASE_URL.
const EnvPrefix = "REDIRECT_MGMT"

// ErrNoTokens is the only configuration problem that stops the session.
var ErrNoTokens = errors.New("no provider API tokens configured")

type Provider struct {
	BaseURL         string   `toml:"base_url" split_words:"true" validate:"required,url"`
	ShortDomain     string   `toml:"short_domain" split_words:"true" validate:"required,hostname_port|hostname"`
	ShortScheme     string   `toml:"short_scheme" split_words:"true" validate:"oneof=http https"`
	Tokens          []string `toml:"tokens" split_words:"true"`
	TokensFile      string   `toml:"tokens_file" split_words:"true"`
	TokensSeparator string   `toml:"tokens_separator" split_words:"true"`
	RequestTimeout  int      `toml:"request_timeout_seconds" split_words:"true" validate:"min=1"`
	CreateTimeout   int      `toml:"create_timeout_seconds" split_words:"true" validate:"min=1"`
	RatePerSecond   float64  `toml:"rate_per_second" split_words:"true" validate:"min=0"`
	AliasLength     int      `toml:"alias_length" split_words:"true" validate:"min=1,max=30"`
}

type Monitor struct {
	IntervalSeconds      int      `toml:"interval_seconds" split_words:"true" validate:"min=1"`
	Workers              int      `toml:"workers" split_words:"true" validate:"min=1,ltefield=MaxWorkers"`
	MaxWorkers           int      `toml:"max_workers" split_words:"true" validate:"min=1"`
	CheckTimeoutSeconds  int      `toml:"check_timeout_seconds" split_words:"true" validate:"min=1"`
	UpdateTimeoutSeconds int      `toml:"update_timeout_seconds" split_words:"true" validate:"min=1"`
	SweepTimeoutSeconds  int      `toml:"sweep_timeout_seconds" split_words:"true" validate:"min=1"`
	RepairTimeoutSeconds int      `toml:"repair_timeout_seconds" split_words:"true" validate:"min=1"`
	SelfHealRetries      int      `toml:"self_heal_retries" split_words:"true" validate:"min=1"`
	JitterMinMS          int      `toml:"jitter_min_ms" split_words:"true" validate:"min=0"`
	JitterMaxMS          int      `toml:"jitter_max_ms" split_words:"true" validate:"gtefield=JitterMinMS"`
	FallbackURLs         []string `toml:"fallback_urls" split_words:"true"`
	FallbackFile         string   `toml:"fallback_file" split_words:"true"`
	FallbackSeparator    string   `toml:"fallback_separator" split_words:"true"`
}

type Log struct {
	Enabled bool   `toml:"enabled" split_words:"true"`
	Path    string `toml:"path" split_words:"true"`
	Level   string `toml:"level" split_words:"true" validate:"oneof=debug info warn error"`
}

type API struct {
	Host           string   `toml:"host" split_words:"true"`
	Port           int      `toml:"port" split_words:"true" validate:"min=1,max=65535"`
	PreviewAliases []string `toml:"preview_aliases" split_words:"true"`
}

type Notify struct {
	NATSURL string `toml:"nats_url" split_words:"true"`
	Subject string `toml:"subject" split_words:"true"`
}

type Config struct {
	Provider Provider `toml:"provider"`
	Monitor  Monitor  `toml:"monitor"`
	Log      Log      `toml:"log"`
	API      API      `toml:"api"`
	Notify   Notify   `toml:"notify"`
}

// DefaultConfig returns a config with default values. The provider defaults
// point at TinyURL's public API.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Provider.BaseURL = "https://api.tinyurl.com"
	cfg.Provider.ShortDomain = "tinyurl.com"
	cfg.Provider.ShortScheme = "https"
	cfg.Provider.TokensFile = "tokens.txt"
	cfg.Provider.TokensSeparator = `\n`
	cfg.Provider.RequestTimeout = 5
	cfg.Provider.CreateTimeout = 30
	cfg.Provider.RatePerSecond = 5
	cfg.Provider.AliasLength = 5

	cfg.Monitor.IntervalSeconds = 60
	cfg.Monitor.Workers = 4
	cfg.Monitor.MaxWorkers = 32
	cfg.Monitor.CheckTimeoutSeconds = 3
	cfg.Monitor.UpdateTimeoutSeconds = 5
	cfg.Monitor.SweepTimeoutSeconds = 60
	cfg.Monitor.RepairTimeoutSeconds = 60
	cfg.Monitor.SelfHealRetries = 3
	cfg.Monitor.JitterMinMS = 2000
	cfg.Monitor.JitterMaxMS = 6000
	cfg.Monitor.FallbackFile = "fallbacks.txt"
	cfg.Monitor.FallbackSeparator = `\n`

	cfg.Log.Enabled = true
	cfg.Log.Path = "."
	cfg.Log.Level = "info"

	cfg.API.Host = "0.0.0.0"
	cfg.API.Port = 8080

	cfg.Notify.Subject = "redirect-mgmt.events"
	return cfg
}

// ConfigPath returns the path to the config file
func ConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "redirect-mgmt", "config.toml"), nil
}

// Load reads configuration from ~/.config/redirect-mgmt/config.toml.
// Creates the file with defaults if it doesn't exist.
func Load() (*Config, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

// LoadFrom reads the config at path, creating it with defaults when missing,
// then applies environment overrides and validates the result.
func LoadFrom(path string) (*Config, error) {
	path, err := expandHome(path)
	if err != nil {
		return nil, err
	}

	var cfg *Config
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		cfg = DefaultConfig()
		if err := SaveTo(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		cfg = &Config{}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		cfg.mergeDefaults(DefaultConfig())
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnvFiles loads .env style files into the process environment. Missing
// files are skipped; variables already set win.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// mergeDefaults fills zero values the file left out.
func (c *Config) mergeDefaults(d *Config) {
	p, dp := &c.Provider, d.Provider
	if p.BaseURL == "" {
		p.BaseURL = dp.BaseURL
	}
	if p.ShortDomain == "" {
		p.ShortDomain = dp.ShortDomain
	}
	if p.ShortScheme == "" {
		p.ShortScheme = dp.ShortScheme
	}
	if p.TokensSeparator == "" {
		p.TokensSeparator = dp.TokensSeparator
	}
	if p.RequestTimeout == 0 {
		p.RequestTimeout = dp.RequestTimeout
	}
	if p.CreateTimeout == 0 {
		p.CreateTimeout = dp.CreateTimeout
	}
	if p.AliasLength == 0 {
		p.AliasLength = dp.AliasLength
	}

	m, dm := &c.Monitor, d.Monitor
	if m.IntervalSeconds == 0 {
		m.IntervalSeconds = dm.IntervalSeconds
	}
	if m.Workers == 0 {
		m.Workers = dm.Workers
	}
	if m.MaxWorkers == 0 {
		m.MaxWorkers = max(dm.MaxWorkers, m.Workers)
	}
	if m.CheckTimeoutSeconds == 0 {
		m.CheckTimeoutSeconds = dm.CheckTimeoutSeconds
	}
	if m.UpdateTimeoutSeconds == 0 {
		m.UpdateTimeoutSeconds = dm.UpdateTimeoutSeconds
	}
	if m.SweepTimeoutSeconds == 0 {
		m.SweepTimeoutSeconds = dm.SweepTimeoutSeconds
	}
	if m.RepairTimeoutSeconds == 0 {
		m.RepairTimeoutSeconds = dm.RepairTimeoutSeconds
	}
	if m.SelfHealRetries == 0 {
		m.SelfHealRetries = dm.SelfHealRetries
	}
	if m.JitterMinMS == 0 && m.JitterMaxMS == 0 {
		m.JitterMinMS, m.JitterMaxMS = dm.JitterMinMS, dm.JitterMaxMS
	}
	if m.FallbackSeparator == "" {
		m.FallbackSeparator = dm.FallbackSeparator
	}

	if c.Log.Path == "" {
		c.Log.Path = d.Log.Path
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.API.Host == "" {
		c.API.Host = d.API.Host
	}
	if c.API.Port == 0 {
		c.API.Port = d.API.Port
	}
	if c.Notify.Subject == "" {
		c.Notify.Subject = d.Notify.Subject
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ResolveTokens returns the inline tokens followed by the ones in
// tokens_file. An empty result is ErrNoTokens.
func (c *Config) ResolveTokens() ([]string, error) {
	tokens, err := resolveList(c.Provider.Tokens, c.Provider.TokensFile, c.Provider.TokensSeparator)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, ErrNoTokens
	}
	return tokens, nil
}

// ResolveFallbacks returns the fallback pool. A missing fallback file just
// means an empty pool.
func (c *Config) ResolveFallbacks() ([]string, error) {
	return resolveList(c.Monitor.FallbackURLs, c.Monitor.FallbackFile, c.Monitor.FallbackSeparator)
}

func resolveList(inline []string, file, sep string) ([]string, error) {
	out := append([]string(nil), inline...)
	if file == "" {
		return out, nil
	}
	path, err := expandHome(file)
	if err != nil {
		return nil, err
	}
	items, err := utils.LoadList(path, sep)
	if errors.Is(err, os.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	return append(out, items...), nil
}

func Seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func Millis(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// Save writes the configuration to the config file
func Save(cfg *Config) error {
	configPath, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(configPath, cfg)
}

// SaveTo writes the configuration to path.
func SaveTo(path string, cfg *Config) error {
	path, err := expandHome(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return strings.Replace(path, "~", homeDir, 1), nil
}
