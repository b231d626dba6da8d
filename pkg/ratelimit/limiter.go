package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Prometheus metrics for concurrency limiting.
var (
	limiterInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "wzstats_limiter_in_flight",
		Help: "Number of permits currently held by limiter",
	}, []string{"limiter"})

	limiterSaturatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wzstats_limiter_saturated_total",
		Help: "Total number of permits granted while the limiter was saturated",
	}, []string{"limiter"})

	limiterWaitSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wzstats_limiter_wait_seconds",
		Help:    "Time spent waiting for a permit by limiter",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"limiter"})
)

// LimiterConfig holds concurrency limiter configuration.
type LimiterConfig struct {
	// Name labels metrics and logs.
	Name string

	// Capacity is the maximum number of permits outstanding at any instant.
	Capacity int

	// SmoothingPause is slept, while holding the permit, whenever a permit is
	// granted with the limiter saturated. Zero disables it.
	SmoothingPause time.Duration

	// RatePerSecond optionally caps how fast permits are granted. Zero disables it.
	RatePerSecond float64

	// Burst is the token bucket size used with RatePerSecond (default 1).
	Burst int
}

// Limiter bounds the number of in-flight calls to the remote service.
// Waiters are served in FIFO order, so no request waits while capacity is free.
type Limiter struct {
	name     string
	capacity int64
	sem      *semaphore.Weighted
	inFlight atomic.Int64
	pause    time.Duration
	rate     *rate.Limiter
	logger   zerolog.Logger
}

// NewLimiter creates a limiter.
func NewLimiter(cfg LimiterConfig) (*Limiter, error) {
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("limiter capacity must be > 0 (got %d)", cfg.Capacity)
	}
	if cfg.SmoothingPause < 0 {
		return nil, fmt.Errorf("smoothing pause must be >= 0 (got %s)", cfg.SmoothingPause)
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}

	l := &Limiter{
		name:     cfg.Name,
		capacity: int64(cfg.Capacity),
		sem:      semaphore.NewWeighted(int64(cfg.Capacity)),
		pause:    cfg.SmoothingPause,
		logger:   log.With().Str("component", "limiter").Str("limiter", cfg.Name).Logger(),
	}
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		l.rate = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	return l, nil
}

// Acquire suspends the caller until a permit is free. If ctx ends first, no
// permit is held on return.
func (l *Limiter) Acquire(ctx context.Context) (*Permit, error) {
	start := time.Now()
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire permit: %w", err)
	}

	held := l.inFlight.Add(1)
	limiterInFlight.WithLabelValues(l.name).Set(float64(held))
	permit := &Permit{limiter: l}

	if l.rate != nil {
		if err := l.rate.Wait(ctx); err != nil {
			permit.Release()
			return nil, fmt.Errorf("acquire permit: %w", err)
		}
	}
	limiterWaitSeconds.WithLabelValues(l.name).Observe(time.Since(start).Seconds())

	if held >= l.capacity {
		limiterSaturatedTotal.WithLabelValues(l.name).Inc()
		if l.pause > 0 {
			l.logger.Debug().
				Int64("in_flight", held).
				Dur("pause", l.pause).
				Msg("Concurrency limit reached, smoothing")

			timer := time.NewTimer(l.pause)
			select {
			case <-ctx.Done():
				timer.Stop()
				permit.Release()
				return nil, fmt.Errorf("acquire permit: %w", ctx.Err())
			case <-timer.C:
			}
		}
	}

	return permit, nil
}

// InFlight returns the number of permits currently held.
func (l *Limiter) InFlight() int {
	return int(l.inFlight.Load())
}

// Capacity returns the configured capacity.
func (l *Limiter) Capacity() int {
	return int(l.capacity)
}

// Name returns the limiter name.
func (l *Limiter) Name() string {
	return l.name
}

// Permit is the right to make one in-flight call.
type Permit struct {
	limiter *Limiter
	once    sync.Once
}

// Release returns the permit. Calling it more than once is a no-op.
func (p *Permit) Release() {
	if p == nil {
		return
	}
	p.once.Do(func() {
		held := p.limiter.inFlight.Add(-1)
		limiterInFlight.WithLabelValues(p.limiter.name).Set(float64(held))
		p.limiter.sem.Release(1)
	})
}
