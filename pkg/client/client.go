// Package client provides the stats client used by the dashboard: profile
// lookups, history accumulation and batched match detail retrieval, each
// protected by caching, retry and concurrency limits.
package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/wzstats-client/pkg/cache"
	"github.com/Sternrassler/wzstats-client/pkg/pagination"
	"github.com/Sternrassler/wzstats-client/pkg/provider"
	"github.com/Sternrassler/wzstats-client/pkg/ratelimit"
	"github.com/Sternrassler/wzstats-client/pkg/retry"
)

var operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "wzstats_operation_duration_seconds",
	Help:    "Duration of client operations in seconds",
	Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
}, []string{"operation"})

const (
	opProfile     = "profile"
	opMatchPage   = "match_page"
	opMatchDetail = "match_detail"
)

// Config holds the client configuration.
type Config struct {
	// Retry
	ProfileRetry retry.Config
	PageRetry    retry.Config
	DetailRetry  retry.Config

	// Concurrency
	DetailConcurrency   int           // Max parallel match detail calls
	SmoothingPause      time.Duration // Extra pause when the detail limiter is saturated
	DetailRatePerSecond float64       // Optional cap on detail call rate (0 = off)
	DetailTimeout       time.Duration // Per match detail, retries included

	// Accumulation
	MaxPages  int           // Page ceiling per history run, head page included
	PagePause time.Duration // Pause between history pages

	// Caching
	ProfileCacheSize int
	PageCacheSize    int
	DetailCacheSize  int
}

// DefaultConfig returns a configuration that stays below the remote
// service's rate limits.
func DefaultConfig() Config {
	return Config{
		ProfileRetry:      retry.LightConfig(),
		PageRetry:         retry.DefaultConfig(),
		DetailRetry:       retry.DetailConfig(),
		DetailConcurrency: 2,
		SmoothingPause:    2 * time.Second,
		DetailTimeout:     60 * time.Second,
		MaxPages:          5,
		PagePause:         500 * time.Millisecond,
		ProfileCacheSize:  8,
		PageCacheSize:     128,
		DetailCacheSize:   128,
	}
}

// Client is the main stats client.
type Client struct {
	provider provider.Provider

	profiles *cache.Cache[*provider.Profile]
	pages    *cache.Cache[[]provider.MatchSummary]
	details  *cache.Cache[*provider.MatchDetail]

	detailLimiter *ratelimit.Limiter
	profileRetry  *retry.Policy
	pageRetry     *retry.Policy
	detailFetcher *pagination.BatchFetcher[*provider.MatchDetail]

	config Config
	logger zerolog.Logger
}

// New creates a new client on top of p.
func New(p provider.Provider, cfg Config) (*Client, error) {
	if p == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if cfg.MaxPages <= 0 {
		return nil, fmt.Errorf("max_pages must be > 0 (got %d)", cfg.MaxPages)
	}

	logger := log.With().Str("component", "wzstats-client").Logger()

	profiles, err := cache.New[*provider.Profile](cache.Config{Name: opProfile, Capacity: cfg.ProfileCacheSize})
	if err != nil {
		return nil, fmt.Errorf("profile cache: %w", err)
	}
	pages, err := cache.New[[]provider.MatchSummary](cache.Config{Name: opMatchPage, Capacity: cfg.PageCacheSize})
	if err != nil {
		return nil, fmt.Errorf("page cache: %w", err)
	}
	details, err := cache.New[*provider.MatchDetail](cache.Config{Name: opMatchDetail, Capacity: cfg.DetailCacheSize})
	if err != nil {
		return nil, fmt.Errorf("detail cache: %w", err)
	}

	limiter, err := ratelimit.NewLimiter(ratelimit.LimiterConfig{
		Name:           opMatchDetail,
		Capacity:       cfg.DetailConcurrency,
		SmoothingPause: cfg.SmoothingPause,
		RatePerSecond:  cfg.DetailRatePerSecond,
	})
	if err != nil {
		return nil, fmt.Errorf("detail limiter: %w", err)
	}

	c := &Client{
		provider:      p,
		profiles:      profiles,
		pages:         pages,
		details:       details,
		detailLimiter: limiter,
		profileRetry:  retry.New(opProfile, cfg.ProfileRetry),
		pageRetry:     retry.New(opMatchPage, cfg.PageRetry),
		config:        cfg,
		logger:        logger,
	}

	c.detailFetcher = pagination.NewBatchFetcher(c.fetchDetail, details,
		pagination.Config{Name: opMatchDetail, Timeout: cfg.DetailTimeout},
		pagination.WithLimiter(limiter),
		pagination.WithRetry(retry.New(opMatchDetail, cfg.DetailRetry)),
	)

	return c, nil
}

// Profile returns a player's lifetime profile.
func (c *Client) Profile(ctx context.Context, platform provider.Platform, username string) (*provider.Profile, error) {
	defer observe(opProfile, time.Now())

	key := cache.NewKey(opProfile, platform, username)
	return c.profiles.GetOrFetch(ctx, key, func(ctx context.Context) (*provider.Profile, error) {
		return retry.Do(ctx, c.profileRetry, func(ctx context.Context) (*provider.Profile, error) {
			return c.provider.FetchProfile(ctx, platform, username)
		})
	})
}

// History walks a player's match history until at least minQualifying
// matches satisfy isQualifying (nil accepts every match) or the page
// ceiling is reached. The head page is always fetched fresh; older pages are
// cached by cursor.
func (c *Client) History(ctx context.Context, platform provider.Platform, username string, minQualifying int, isQualifying func(provider.MatchSummary) bool) (*pagination.AccumulationResult[provider.MatchSummary], error) {
	defer observe("history", time.Now())

	source := func(ctx context.Context, before time.Time) ([]provider.MatchSummary, error) {
		page, err := c.provider.FetchMatchPage(ctx, platform, username, before)
		if err != nil {
			return nil, err
		}
		return page.Matches, nil
	}

	acc, err := pagination.NewAccumulator(source, provider.MatchSummary.StartTime,
		pagination.AccumulatorConfig{
			Name:      "history",
			MaxPages:  c.config.MaxPages,
			PagePause: c.config.PagePause,
		},
		pagination.WithRetry(c.pageRetry),
		pagination.WithLogger(c.logger.With().Str("platform", string(platform)).Str("username", username).Logger()),
	)
	if err != nil {
		return nil, err
	}
	acc.WithPageCache(c.pages, func(before time.Time) cache.Key {
		return cache.NewKey(opMatchPage, platform, username, before)
	})

	return acc.Collect(ctx, minQualifying, isQualifying)
}

// MatchDetails fetches the full detail of every match ID concurrently.
// Results are in input order; a failed match only fails its own slot.
func (c *Client) MatchDetails(ctx context.Context, platform provider.Platform, matchIDs []string) ([]pagination.Result[*provider.MatchDetail], error) {
	defer observe("match_details", time.Now())

	keys := make([]cache.Key, len(matchIDs))
	for i, id := range matchIDs {
		if id == "" {
			return nil, fmt.Errorf("%w: empty match id at index %d", pagination.ErrInvalidKey, i)
		}
		keys[i] = cache.NewKey(opMatchDetail, platform, id)
	}
	return c.detailFetcher.FetchAll(ctx, keys)
}

func (c *Client) fetchDetail(ctx context.Context, key cache.Key) (*provider.MatchDetail, error) {
	if len(key.Args) != 2 {
		return nil, errors.New("match detail key needs platform and match id")
	}
	return c.provider.FetchMatchDetail(ctx, provider.Platform(key.Args[0]), key.Args[1])
}

// DetailInFlight returns the number of match detail calls currently running.
func (c *Client) DetailInFlight() int {
	return c.detailLimiter.InFlight()
}

// Close drops every cached result.
func (c *Client) Close() error {
	c.profiles.Purge()
	c.pages.Purge()
	c.details.Purge()
	return nil
}

func observe(op string, start time.Time) {
	operationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
