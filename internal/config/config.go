// Package config loads the wzstats configuration: struct defaults, then an
// optional YAML file, then WZSTATS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"github.com/Sternrassler/wzstats-client/pkg/client"
	"github.com/Sternrassler/wzstats-client/pkg/logging"
	"github.com/Sternrassler/wzstats-client/pkg/provider/live"
	"github.com/Sternrassler/wzstats-client/pkg/provider/replay"
	"github.com/Sternrassler/wzstats-client/pkg/retry"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "WZSTATS_"

// Provider modes.
const (
	ModeLive   = "live"
	ModeReplay = "replay"
)

var (
	// ErrUnknownMode is returned for a provider mode other than live or replay.
	ErrUnknownMode = errors.New("unknown provider mode")

	// ErrReplayDirRequired is returned when replay mode has no fixture directory.
	ErrReplayDirRequired = errors.New("replay dir is required")
)

// Config is the complete wzstats configuration.
type Config struct {
	Logging  logging.Config `yaml:"logging" envPrefix:"LOG_"`
	Provider ProviderConfig `yaml:"provider" envPrefix:"PROVIDER_"`
	Redis    RedisConfig    `yaml:"redis" envPrefix:"REDIS_"`
	Client   ClientConfig   `yaml:"client" envPrefix:"CLIENT_"`
	Server   ServerConfig   `yaml:"server" envPrefix:"SERVER_"`
}

// ProviderConfig selects and configures the record provider.
type ProviderConfig struct {
	// Mode is live or replay
	Mode   string        `yaml:"mode" default:"live" env:"MODE"`
	Live   live.Config   `yaml:"live" envPrefix:"LIVE_"`
	Replay replay.Config `yaml:"replay" envPrefix:"REPLAY_"`
}

// RedisConfig configures the shared throttle store. An empty Addr disables it.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
}

// Enabled reports whether a throttle store is configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// ClientConfig holds the client tunables.
type ClientConfig struct {
	ProfileRetry retry.Config `yaml:"profile_retry" envPrefix:"PROFILE_RETRY_"`
	PageRetry    retry.Config `yaml:"page_retry" envPrefix:"PAGE_RETRY_"`
	DetailRetry  retry.Config `yaml:"detail_retry" envPrefix:"DETAIL_RETRY_"`

	DetailConcurrency   int           `yaml:"detail_concurrency" default:"2" env:"DETAIL_CONCURRENCY"`
	SmoothingPause      time.Duration `yaml:"smoothing_pause" default:"2s" env:"SMOOTHING_PAUSE"`
	DetailRatePerSecond float64       `yaml:"detail_rate_per_second" env:"DETAIL_RATE_PER_SECOND"`
	DetailTimeout       time.Duration `yaml:"detail_timeout" default:"60s" env:"DETAIL_TIMEOUT"`

	MaxPages  int           `yaml:"max_pages" default:"5" env:"MAX_PAGES"`
	PagePause time.Duration `yaml:"page_pause" default:"500ms" env:"PAGE_PAUSE"`

	ProfileCacheSize int `yaml:"profile_cache_size" default:"8" env:"PROFILE_CACHE_SIZE"`
	PageCacheSize    int `yaml:"page_cache_size" default:"128" env:"PAGE_CACHE_SIZE"`
	DetailCacheSize  int `yaml:"detail_cache_size" default:"128" env:"DETAIL_CACHE_SIZE"`
}

// ServerConfig configures the HTTP front end.
type ServerConfig struct {
	Addr            string        `yaml:"addr" default:":8080" env:"ADDR"`
	MetricsAddr     string        `yaml:"metrics_addr" default:":9090" env:"METRICS_ADDR"`
	RequestTimeout  time.Duration `yaml:"request_timeout" default:"90s" env:"REQUEST_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s" env:"SHUTDOWN_TIMEOUT"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() (*Config, error) {
	cfg := &Config{
		Client: ClientConfig{
			ProfileRetry: retry.LightConfig(),
			PageRetry:    retry.DefaultConfig(),
			DetailRetry:  retry.DetailConfig(),
		},
	}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return cfg, nil
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is non-empty) and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // user-provided config file path
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the client cannot run with.
func (c *Config) Validate() error {
	if !c.Logging.Level.Valid() {
		return fmt.Errorf("logging.level: invalid level %q", c.Logging.Level)
	}

	switch c.Provider.Mode {
	case ModeLive:
		if c.Provider.Live.BaseURL == "" {
			return fmt.Errorf("provider.live.base_url is required")
		}
	case ModeReplay:
		if c.Provider.Replay.Dir == "" {
			return ErrReplayDirRequired
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, c.Provider.Mode)
	}

	cc := c.Client
	positive := []struct {
		name  string
		value int
	}{
		{"client.detail_concurrency", cc.DetailConcurrency},
		{"client.max_pages", cc.MaxPages},
		{"client.profile_cache_size", cc.ProfileCacheSize},
		{"client.page_cache_size", cc.PageCacheSize},
		{"client.detail_cache_size", cc.DetailCacheSize},
		{"client.profile_retry.max_attempts", cc.ProfileRetry.MaxAttempts},
		{"client.page_retry.max_attempts", cc.PageRetry.MaxAttempts},
		{"client.detail_retry.max_attempts", cc.DetailRetry.MaxAttempts},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("%s must be > 0 (got %d)", p.name, p.value)
		}
	}

	if cc.SmoothingPause < 0 || cc.PagePause < 0 || cc.DetailTimeout < 0 {
		return fmt.Errorf("client pauses and timeouts must not be negative")
	}
	if cc.DetailRatePerSecond < 0 {
		return fmt.Errorf("client.detail_rate_per_second must not be negative")
	}
	return nil
}

// ClientConfig converts the client section into a client.Config.
func (c *Config) ClientConfig() client.Config {
	cc := c.Client
	return client.Config{
		ProfileRetry:        cc.ProfileRetry,
		PageRetry:           cc.PageRetry,
		DetailRetry:         cc.DetailRetry,
		DetailConcurrency:   cc.DetailConcurrency,
		SmoothingPause:      cc.SmoothingPause,
		DetailRatePerSecond: cc.DetailRatePerSecond,
		DetailTimeout:       cc.DetailTimeout,
		MaxPages:            cc.MaxPages,
		PagePause:           cc.PagePause,
		ProfileCacheSize:    cc.ProfileCacheSize,
		PageCacheSize:       cc.PageCacheSize,
		DetailCacheSize:     cc.DetailCacheSize,
	}
}
