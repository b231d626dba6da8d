package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, LevelInfo, cfg.Level)
	assert.False(t, cfg.Pretty)
	assert.Equal(t, "wzstats", cfg.Service)
	assert.NotNil(t, cfg.Output)
}

func TestSetup_LevelFiltering(t *testing.T) {
	tests := []struct {
		level   LogLevel
		written []string
		dropped []string
	}{
		{LevelDebug, []string{"permit granted", "history collected", "retrying", "exhausted"}, nil},
		{LevelInfo, []string{"history collected", "retrying", "exhausted"}, []string{"permit granted"}},
		{LevelWarn, []string{"retrying", "exhausted"}, []string{"permit granted", "history collected"}},
		{LevelError, []string{"exhausted"}, []string{"permit granted", "history collected", "retrying"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := Setup(Config{Level: tt.level, Output: buf})

			logger.Debug().Msg("permit granted")
			logger.Info().Msg("history collected")
			logger.Warn().Msg("retrying")
			logger.Error().Msg("exhausted")

			for _, msg := range tt.written {
				assert.Contains(t, buf.String(), msg)
			}
			for _, msg := range tt.dropped {
				assert.NotContains(t, buf.String(), msg)
			}
		})
	}
}

func TestSetup_Pretty(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Pretty: true, Output: buf})

	logger := NewLogger("cache")
	logger.Info().Msg("console line")

	assert.Contains(t, buf.String(), "console line")
	assert.NotContains(t, buf.String(), `"message"`, "console output is not JSON")
}

func TestSetup_ServiceAndComponent(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Service: "wzstats-test", Output: buf})

	logger := NewLogger("history")
	logger.Info().Str("reason", "satisfied").Msg("History collected")

	out := buf.String()
	assert.Contains(t, out, `"service":"wzstats-test"`)
	assert.Contains(t, out, `"component":"history"`)
	assert.Contains(t, out, `"reason":"satisfied"`)
}

func TestSetup_NoService(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Output: buf})

	logger := NewLogger("retry")
	logger.Info().Msg("plain")
	assert.NotContains(t, buf.String(), `"service"`)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input LogLevel
		want  zerolog.Level
	}{
		{LevelDebug, zerolog.DebugLevel},
		{LevelInfo, zerolog.InfoLevel},
		{LevelWarn, zerolog.WarnLevel},
		{"WARNING", zerolog.WarnLevel},
		{LevelError, zerolog.ErrorLevel},
		{"invalid", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestLogLevelValid(t *testing.T) {
	for _, l := range []LogLevel{LevelDebug, LevelInfo, LevelWarn, LevelError, "WARNING"} {
		assert.True(t, l.Valid(), l)
	}
	assert.False(t, LogLevel("trace").Valid())
	assert.False(t, LogLevel("").Valid())
}
