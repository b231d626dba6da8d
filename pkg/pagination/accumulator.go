package pagination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/wzstats-client/pkg/cache"
	"github.com/Sternrassler/wzstats-client/pkg/retry"
)

// StopReason tells why an accumulation ended.
type StopReason string

const (
	// ReasonSatisfied means the qualifying threshold was reached
	ReasonSatisfied StopReason = "satisfied"
	// ReasonPageLimit means the page ceiling was hit first
	ReasonPageLimit StopReason = "page_limit"
	// ReasonSourceExhausted means the provider returned an empty page
	ReasonSourceExhausted StopReason = "source_exhausted"
	// ReasonCursorStalled means a page did not move the cursor strictly backwards
	ReasonCursorStalled StopReason = "cursor_stalled"
	// ReasonFetchFailed means a page after the head failed; Err holds the cause
	ReasonFetchFailed StopReason = "fetch_failed"
)

// AccumulatorConfig holds history accumulation configuration
type AccumulatorConfig struct {
	// Name labels logs
	Name string
	// MaxPages bounds the number of page fetches, head page included
	MaxPages int
	// PagePause is slept between consecutive page fetches
	PagePause time.Duration
}

// DefaultAccumulatorConfig returns the default accumulation limits
func DefaultAccumulatorConfig() AccumulatorConfig {
	return AccumulatorConfig{
		Name:      "history",
		MaxPages:  5,
		PagePause: 500 * time.Millisecond,
	}
}

// PageFunc fetches the page of records older than before, newest first.
// A zero before requests the head of history.
type PageFunc[T any] func(ctx context.Context, before time.Time) ([]T, error)

// CursorFunc extracts the continuation cursor from a record.
type CursorFunc[T any] func(T) time.Time

// PageKeyFunc names the cache entry for the page older than before.
type PageKeyFunc func(before time.Time) cache.Key

// AccumulationResult is the concatenation of every page fetched by one
// Collect run, newest page first, each page in provider order.
type AccumulationResult[T any] struct {
	Records    []T
	Pages      int
	Qualifying int
	Reason     StopReason
	// Err is set when Reason is ReasonFetchFailed
	Err error
}

// Satisfied reports whether the qualifying threshold was met.
func (r *AccumulationResult[T]) Satisfied() bool {
	return r.Reason == ReasonSatisfied
}

// Accumulator walks a paged source backwards in time until enough
// qualifying records have been seen or the page ceiling is reached.
type Accumulator[T any] struct {
	source   PageFunc[T]
	cursorOf CursorFunc[T]
	pages    *cache.Cache[[]T]
	pageKey  PageKeyFunc
	config   AccumulatorConfig
	opts     options
	logger   zerolog.Logger
}

// NewAccumulator creates an accumulator over source.
func NewAccumulator[T any](source PageFunc[T], cursorOf CursorFunc[T], config AccumulatorConfig, opts ...Option) (*Accumulator[T], error) {
	if source == nil || cursorOf == nil {
		return nil, errors.New("accumulator needs a page source and a cursor function")
	}
	if config.MaxPages <= 0 {
		return nil, fmt.Errorf("max pages must be > 0 (got %d)", config.MaxPages)
	}
	if config.PagePause < 0 {
		config.PagePause = 0
	}
	if config.Name == "" {
		config.Name = "history"
	}

	o := buildOptions(opts)
	logger := log.With().Str("component", "accumulator").Str("accumulator", config.Name).Logger()
	if o.logger != nil {
		logger = *o.logger
	}

	return &Accumulator[T]{
		source:   source,
		cursorOf: cursorOf,
		config:   config,
		opts:     o,
		logger:   logger,
	}, nil
}

// WithPageCache serves pages after the head from c, keyed by key(before).
// The head page is always fetched fresh.
func (a *Accumulator[T]) WithPageCache(c *cache.Cache[[]T], key PageKeyFunc) *Accumulator[T] {
	a.pages = c
	a.pageKey = key
	return a
}

// Collect fetches pages until at least minQualifying records satisfy
// isQualifying. Running out of pages, an exhausted source, a stalled cursor
// or a failed page after the head all end the run with a partial result and
// a nil error. Only a failed head page or caller cancellation return an error.
func (a *Accumulator[T]) Collect(ctx context.Context, minQualifying int, isQualifying func(T) bool) (*AccumulationResult[T], error) {
	if isQualifying == nil {
		isQualifying = func(T) bool { return true }
	}

	start := time.Now()
	result := &AccumulationResult[T]{}
	var before time.Time

	for {
		if result.Pages >= a.config.MaxPages {
			result.Reason = ReasonPageLimit
			break
		}

		if result.Pages > 0 && a.config.PagePause > 0 {
			if err := sleepCtx(ctx, a.config.PagePause); err != nil {
				return result, fmt.Errorf("accumulation cancelled: %w", err)
			}
		}

		page, err := a.fetchPage(ctx, before, result.Pages == 0)
		if err != nil {
			if ctx.Err() != nil {
				return result, fmt.Errorf("accumulation cancelled: %w", ctx.Err())
			}
			if result.Pages == 0 {
				return nil, fmt.Errorf("fetch head page: %w", err)
			}
			result.Reason = ReasonFetchFailed
			result.Err = err
			break
		}
		result.Pages++

		if len(page) == 0 {
			result.Reason = ReasonSourceExhausted
			break
		}

		result.Records = append(result.Records, page...)
		for _, r := range page {
			if isQualifying(r) {
				result.Qualifying++
			}
		}

		if result.Qualifying >= minQualifying {
			result.Reason = ReasonSatisfied
			break
		}

		cursor := a.cursorOf(page[len(page)-1])
		if cursor.IsZero() || (!before.IsZero() && !cursor.Before(before)) {
			result.Reason = ReasonCursorStalled
			break
		}
		before = cursor
	}

	accumulationsTotal.WithLabelValues(string(result.Reason)).Inc()
	accumulatedPages.Observe(float64(result.Pages))

	event := a.logger.Info()
	if result.Reason != ReasonSatisfied {
		event = a.logger.Warn().Err(result.Err)
	}
	event.
		Str("reason", string(result.Reason)).
		Int("pages", result.Pages).
		Int("records", len(result.Records)).
		Int("qualifying", result.Qualifying).
		Int("wanted", minQualifying).
		Dur("duration", time.Since(start)).
		Msg("History accumulation finished")

	return result, nil
}

func (a *Accumulator[T]) fetchPage(ctx context.Context, before time.Time, head bool) ([]T, error) {
	if a.opts.limiter != nil {
		permit, err := a.opts.limiter.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		defer permit.Release()
	}

	load := func(ctx context.Context) ([]T, error) {
		return retry.Do(ctx, a.opts.retry, func(ctx context.Context) ([]T, error) {
			return a.source(ctx, before)
		})
	}

	if head || a.pages == nil || a.pageKey == nil {
		return load(ctx)
	}
	return a.pages.GetOrFetch(ctx, a.pageKey(before), load)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
