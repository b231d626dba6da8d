package pagination

import (
	"github.com/rs/zerolog"

	"github.com/Sternrassler/wzstats-client/pkg/ratelimit"
	"github.com/Sternrassler/wzstats-client/pkg/retry"
)

type options struct {
	limiter *ratelimit.Limiter
	retry   *retry.Policy
	logger  *zerolog.Logger
}

// Option configures a BatchFetcher or an Accumulator.
type Option func(*options)

// WithLimiter runs every remote call under a permit from l.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(o *options) {
		o.limiter = l
	}
}

// WithRetry wraps every remote call in p.
func WithRetry(p *retry.Policy) Option {
	return func(o *options) {
		o.retry = p
	}
}

// WithLogger overrides the component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &logger
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
