package pagination

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/wzstats-client/pkg/cache"
	"github.com/Sternrassler/wzstats-client/pkg/retry"
)

var (
	// ErrNoKeys is returned by FetchAll for an empty key list
	ErrNoKeys = errors.New("no keys to fetch")

	// ErrInvalidKey is returned by FetchAll when a key has no operation
	ErrInvalidKey = errors.New("invalid fetch key")
)

// Config holds batch fetcher configuration
type Config struct {
	// Name labels metrics and logs
	Name string
	// Timeout bounds each key's fetch, including retries (0 = no per-key timeout)
	Timeout time.Duration
}

// DefaultConfig returns the default configuration for match detail lookups
func DefaultConfig() Config {
	return Config{
		Name:    "match_detail",
		Timeout: 60 * time.Second,
	}
}

// KeyFetcher performs the remote call for one key
type KeyFetcher[V any] func(ctx context.Context, key cache.Key) (V, error)

// Result is the outcome for one input key. Exactly one of Value and Err is meaningful.
type Result[V any] struct {
	Key    cache.Key
	Value  V
	Err    error
	Cached bool
}

// OK reports whether the key was fetched successfully.
func (r Result[V]) OK() bool {
	return r.Err == nil
}

// BatchFetcher fans independent keys out through limiter, cache and retry
// and gathers the outcomes in input order.
type BatchFetcher[V any] struct {
	fetch  KeyFetcher[V]
	cache  *cache.Cache[V]
	config Config
	opts   options
	logger zerolog.Logger
}

// NewBatchFetcher creates a new batch fetcher. c may be nil to disable caching.
func NewBatchFetcher[V any](fetch KeyFetcher[V], c *cache.Cache[V], config Config, opts ...Option) *BatchFetcher[V] {
	if config.Name == "" {
		config.Name = "batch"
	}
	if config.Timeout < 0 {
		config.Timeout = 0
	}

	o := buildOptions(opts)
	logger := log.With().Str("component", "batch_fetcher").Str("batch", config.Name).Logger()
	if o.logger != nil {
		logger = *o.logger
	}

	return &BatchFetcher[V]{
		fetch:  fetch,
		cache:  c,
		config: config,
		opts:   o,
		logger: logger,
	}
}

// FetchAll fetches every key concurrently and returns one result per key,
// in input order. A failing key never cancels its siblings; its error is
// stored in its slot. FetchAll itself fails only for an empty or invalid key
// list, or when ctx ends, in which case the results gathered so far are
// returned together with the context error.
func (bf *BatchFetcher[V]) FetchAll(ctx context.Context, keys []cache.Key) ([]Result[V], error) {
	if len(keys) == 0 {
		return nil, ErrNoKeys
	}
	for i, k := range keys {
		if k.IsZero() {
			return nil, fmt.Errorf("%w at index %d", ErrInvalidKey, i)
		}
	}

	start := time.Now()
	results := make([]Result[V], len(keys))

	var wg sync.WaitGroup
	for i, key := range keys {
		wg.Add(1)
		go func(i int, key cache.Key) {
			defer wg.Done()
			results[i] = bf.fetchOne(ctx, key)
		}(i, key)
	}
	wg.Wait()

	failed := 0
	for _, r := range results {
		switch {
		case r.Err == nil:
			batchResultsTotal.WithLabelValues(bf.config.Name, "success").Inc()
		case errors.Is(r.Err, context.Canceled) || errors.Is(r.Err, context.DeadlineExceeded):
			failed++
			batchResultsTotal.WithLabelValues(bf.config.Name, "cancelled").Inc()
		default:
			failed++
			batchResultsTotal.WithLabelValues(bf.config.Name, "error").Inc()
		}
	}
	batchDuration.WithLabelValues(bf.config.Name).Observe(time.Since(start).Seconds())

	if err := ctx.Err(); err != nil {
		bf.logger.Warn().
			Err(err).
			Int("keys", len(keys)).
			Int("failed", failed).
			Msg("Batch fetch cancelled - returning partial results")
		return results, fmt.Errorf("batch fetch cancelled: %w", err)
	}

	event := bf.logger.Info()
	if failed > 0 {
		event = bf.logger.Warn()
	}
	event.
		Int("keys", len(keys)).
		Int("failed", failed).
		Dur("duration", time.Since(start)).
		Msg("Batch fetch complete")

	return results, nil
}

// fetchOne resolves a single key. Cache hits never take a permit.
func (bf *BatchFetcher[V]) fetchOne(ctx context.Context, key cache.Key) Result[V] {
	result := Result[V]{Key: key}

	if entry, ok := bf.cache.Get(key); ok {
		result.Value = entry.Value
		result.Cached = true
		return result
	}

	if bf.opts.limiter != nil {
		permit, err := bf.opts.limiter.Acquire(ctx)
		if err != nil {
			result.Err = err
			return result
		}
		defer permit.Release()
	}

	keyCtx := ctx
	if bf.config.Timeout > 0 {
		var cancel context.CancelFunc
		keyCtx, cancel = context.WithTimeout(ctx, bf.config.Timeout)
		defer cancel()
	}

	v, err := bf.cache.GetOrFetch(keyCtx, key, func(ctx context.Context) (V, error) {
		return retry.Do(ctx, bf.opts.retry, func(ctx context.Context) (V, error) {
			return bf.fetch(ctx, key)
		})
	})
	if err != nil {
		bf.logger.Debug().
			Err(err).
			Str("key", key.String()).
			Msg("Key fetch failed")
		result.Err = err
		return result
	}

	result.Value = v
	return result
}
