// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel `yaml:"level" default:"info" env:"LEVEL"`

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool `yaml:"pretty" env:"PRETTY"`

	// Service is attached to every record when set.
	Service string `yaml:"service" default:"wzstats" env:"SERVICE"`

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer `yaml:"-"`
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:   LevelInfo,
		Pretty:  false,
		Service: "wzstats",
		Output:  os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	// Set global log level
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	// Configure output
	var output io.Writer = cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	// Create logger with timestamp
	ctx := zerolog.New(output).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str("service", cfg.Service)
	}
	logger := ctx.Logger()

	// Set as global logger
	log.Logger = logger

	return logger
}

// Valid reports whether level is one of the known levels.
func (l LogLevel) Valid() bool {
	switch strings.ToLower(string(l)) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Per-call detail
//   - Cache hits, shared results and stored entries
//   - Limiter permit waits and smoothing pauses
//   - Individual history pages
//
// Info: Normal operation events
//   - History runs finished (pages, qualifying, reason)
//   - Fixtures loaded, server startup/shutdown
//
// Warn: Conditions that don't stop a run
//   - Retry attempts
//   - Throttle cool-downs recorded or active
//   - Throttle store unreachable (fail open)
//   - History run stopped early on a later page
//
// Error: Conditions requiring attention
//   - Provider calls failing after retries
//   - Configuration errors
//
// Context Fields:
//   - component: emitting package (retry, limiter, cache, history, live-provider)
//   - operation: profile, match_page, match_detail
//   - error_class: not_found, forbidden, rate_limit, server, network, timeout, malformed
//   - attempt / backoff: retry progress
//   - key: cache key of a batch slot or page
//   - reason: accumulation stop reason
