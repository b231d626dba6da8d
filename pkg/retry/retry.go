// Package retry wraps single remote calls with bounded exponential-backoff
// retries. Transient failures are absorbed up to an attempt count and a time
// budget, whichever runs out first; fatal failures propagate on first sight.
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wzstats_retries_total",
		Help: "Total number of retry attempts by policy",
	}, []string{"policy"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wzstats_retry_backoff_seconds",
		Help:    "Backoff duration for retries by policy",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"policy"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wzstats_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by policy",
	}, []string{"policy"})
)

// Config holds the configuration for retry logic.
type Config struct {
	// MaxAttempts is the maximum number of attempts (including the initial call).
	MaxAttempts int `yaml:"max_attempts" env:"MAX_ATTEMPTS"`

	// MaxElapsed bounds the total time spent in one Execute, waits included.
	// Zero disables the time budget.
	MaxElapsed time.Duration `yaml:"max_elapsed" env:"MAX_ELAPSED"`

	// InitialBackoff is the wait after the first failure.
	InitialBackoff time.Duration `yaml:"initial_backoff" env:"INITIAL_BACKOFF"`

	// MaxBackoff caps a single wait.
	MaxBackoff time.Duration `yaml:"max_backoff" env:"MAX_BACKOFF"`

	// BackoffMultiplier is the growth factor between waits.
	BackoffMultiplier float64 `yaml:"backoff_multiplier" env:"BACKOFF_MULTIPLIER"`

	// Jitter randomises each wait by ±Jitter (0.2 = ±20%). Zero disables it.
	Jitter float64 `yaml:"jitter" env:"JITTER"`
}

// DefaultConfig returns the configuration used for paged history calls.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:       8,
		MaxElapsed:        45 * time.Second,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            0.2,
	}
}

// LightConfig returns the configuration for lightweight calls such as profile lookups.
func LightConfig() Config {
	return Config{
		MaxAttempts:       5,
		MaxElapsed:        10 * time.Second,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            0.2,
	}
}

// DetailConfig returns the configuration for full match detail lookups.
func DetailConfig() Config {
	return Config{
		MaxAttempts:       5,
		MaxElapsed:        25 * time.Second,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            0.2,
	}
}

// Policy executes calls with retry. A nil *Policy runs each call exactly once.
type Policy struct {
	name     string
	config   Config
	classify func(error) bool
	logger   zerolog.Logger
	rand     func() float64
}

// Option configures a Policy.
type Option func(*Policy)

// WithClassifier replaces the function deciding whether an error is transient.
func WithClassifier(fn func(error) bool) Option {
	return func(p *Policy) {
		p.classify = fn
	}
}

// WithLogger sets the policy logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Policy) {
		p.logger = logger
	}
}

// New creates a retry policy. The name labels metrics and log lines.
func New(name string, cfg Config, opts ...Option) *Policy {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.BackoffMultiplier < 1 {
		cfg.BackoffMultiplier = 1
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = cfg.InitialBackoff
	}

	p := &Policy{
		name:     name,
		config:   cfg,
		classify: IsRetryable,
		logger:   log.With().Str("component", "retry").Str("policy", name).Logger(),
		rand:     rand.Float64,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the policy name.
func (p *Policy) Name() string {
	return p.name
}

// Config returns the policy configuration.
func (p *Policy) Config() Config {
	return p.config
}

// Execute runs fn until it succeeds, fails fatally, or the attempt count or
// time budget is exhausted. Each attempt receives a context bounded by the
// remaining budget. Waiting between attempts only suspends the calling
// goroutine and honours ctx cancellation.
func (p *Policy) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if p == nil {
		return fn(ctx)
	}

	start := time.Now()
	var deadline time.Time
	if p.config.MaxElapsed > 0 {
		deadline = start.Add(p.config.MaxElapsed)
	}

	var lastErr error
	attempt := 0
	for attempt < p.config.MaxAttempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrContextCancelled, err)
		}
		attempt++

		err := p.call(ctx, deadline, fn)
		if err == nil {
			if attempt > 1 {
				p.logger.Info().
					Int("attempt", attempt).
					Dur("elapsed", time.Since(start)).
					Msg("Call succeeded after retry")
			}
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
		}

		if !p.classify(err) {
			return err
		}
		budgetSpent := !deadline.IsZero() && !time.Now().Before(deadline)
		if budgetSpent || attempt >= p.config.MaxAttempts {
			break
		}

		wait := p.Backoff(attempt)
		if !deadline.IsZero() && wait >= time.Until(deadline) {
			// the next attempt could not start inside the budget
			break
		}

		retriesTotal.WithLabelValues(p.name).Inc()
		retryBackoffSeconds.WithLabelValues(p.name).Observe(wait.Seconds())

		p.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("Retrying call after backoff")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			p.logger.Warn().
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
		case <-timer.C:
		}
	}

	retryExhaustedTotal.WithLabelValues(p.name).Inc()
	elapsed := time.Since(start)
	p.logger.Error().
		Err(lastErr).
		Int("attempts", attempt).
		Dur("elapsed", elapsed).
		Msg("Retry attempts exhausted")

	return &ExhaustedError{
		Policy:   p.name,
		Attempts: attempt,
		Elapsed:  elapsed,
		Last:     lastErr,
	}
}

func (p *Policy) call(ctx context.Context, deadline time.Time, fn func(ctx context.Context) error) error {
	if deadline.IsZero() {
		return fn(ctx)
	}
	callCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()
	return fn(callCtx)
}

// Backoff returns the wait after the given (1-based) failed attempt:
// InitialBackoff * BackoffMultiplier^(attempt-1), capped at MaxBackoff, with jitter.
func (p *Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := float64(p.config.InitialBackoff) * math.Pow(p.config.BackoffMultiplier, float64(attempt-1))
	if ceiling := float64(p.config.MaxBackoff); base > ceiling {
		base = ceiling
	}
	if p.config.Jitter > 0 {
		base *= 1 - p.config.Jitter + p.rand()*2*p.config.Jitter
	}
	return time.Duration(base)
}

// Do runs fn under the policy and returns its value.
func Do[T any](ctx context.Context, p *Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := p.Execute(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
