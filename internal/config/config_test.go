package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/wzstats-client/pkg/client"
	"github.com/Sternrassler/wzstats-client/pkg/logging"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wzstats.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	assert.Equal(t, ModeLive, cfg.Provider.Mode)
	assert.Equal(t, "https://my.callofduty.com/api/papi-client", cfg.Provider.Live.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Provider.Live.Timeout)
	assert.Equal(t, 20, cfg.Provider.Replay.PageSize)
	assert.Equal(t, logging.LevelInfo, cfg.Logging.Level)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, ":9090", cfg.Server.MetricsAddr)
	assert.False(t, cfg.Redis.Enabled())

	// the converted client config matches the client's own defaults
	assert.Equal(t, client.DefaultConfig(), cfg.ClientConfig())
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Client.DetailConcurrency)
}

func TestLoad_YAMLOverrides(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
  pretty: true
provider:
  mode: replay
  replay:
    dir: /tmp/fixtures
    page_size: 10
redis:
  addr: localhost:6379
client:
  detail_concurrency: 4
  smoothing_pause: 250ms
  max_pages: 3
  page_retry:
    max_attempts: 2
    max_elapsed: 5s
server:
  addr: ":9000"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, logging.LevelDebug, cfg.Logging.Level)
	assert.True(t, cfg.Logging.Pretty)
	assert.Equal(t, ModeReplay, cfg.Provider.Mode)
	assert.Equal(t, "/tmp/fixtures", cfg.Provider.Replay.Dir)
	assert.Equal(t, 10, cfg.Provider.Replay.PageSize)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 4, cfg.Client.DetailConcurrency)
	assert.Equal(t, 250*time.Millisecond, cfg.Client.SmoothingPause)
	assert.Equal(t, 3, cfg.Client.MaxPages)
	assert.Equal(t, 2, cfg.Client.PageRetry.MaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.Client.PageRetry.MaxElapsed)
	assert.Equal(t, time.Second, cfg.Client.PageRetry.InitialBackoff, "unset retry fields keep their defaults")
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, ":9090", cfg.Server.MetricsAddr)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
client:
  detail_concurrency: 4
`)
	t.Setenv("WZSTATS_CLIENT_DETAIL_CONCURRENCY", "6")
	t.Setenv("WZSTATS_CLIENT_DETAIL_RETRY_MAX_ATTEMPTS", "3")
	t.Setenv("WZSTATS_PROVIDER_LIVE_TOKEN", "secret")
	t.Setenv("WZSTATS_LOG_LEVEL", "warn")
	t.Setenv("WZSTATS_SERVER_REQUEST_TIMEOUT", "30s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Client.DetailConcurrency)
	assert.Equal(t, 3, cfg.Client.DetailRetry.MaxAttempts)
	assert.Equal(t, "secret", cfg.Provider.Live.Token)
	assert.Equal(t, logging.LevelWarn, cfg.Logging.Level)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "client: [not, a, map"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "provider:\n  mode: carrier-pigeon\n"))
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"replay without dir", func(c *Config) { c.Provider.Mode = ModeReplay }, true},
		{"replay with dir", func(c *Config) { c.Provider.Mode = ModeReplay; c.Provider.Replay.Dir = "x" }, false},
		{"live without base url", func(c *Config) { c.Provider.Live.BaseURL = "" }, true},
		{"zero concurrency", func(c *Config) { c.Client.DetailConcurrency = 0 }, true},
		{"zero page ceiling", func(c *Config) { c.Client.MaxPages = 0 }, true},
		{"zero cache", func(c *Config) { c.Client.DetailCacheSize = 0 }, true},
		{"zero retry attempts", func(c *Config) { c.Client.PageRetry.MaxAttempts = 0 }, true},
		{"negative pause", func(c *Config) { c.Client.PagePause = -time.Second }, true},
		{"negative rate", func(c *Config) { c.Client.DetailRatePerSecond = -1 }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Default()
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
