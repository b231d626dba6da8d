// Package cache provides an in-memory result cache for remote calls.
//
// The cache memoizes the outcome of a call keyed by its logical arguments:
//
// - Bounded entry count with least-recently-used eviction
// - Single-flight: concurrent misses for one key run a single fetch
// - Only successful outcomes are stored, failures are always refetched
// - A cancelled fetch never leaves its key stuck in flight
// - Prometheus metrics per cache instance
// - Deterministic key strings
//
// Nothing is persisted; a process restart starts with empty caches.
//
// # Basic Usage
//
//	details, err := cache.New[*provider.MatchDetail](cache.Config{
//		Name:     "match_detail",
//		Capacity: 128,
//	})
//	if err != nil {
//		return err
//	}
//
//	key := cache.NewKey("match_detail", platform, matchID)
//	detail, err := details.GetOrFetch(ctx, key, func(ctx context.Context) (*provider.MatchDetail, error) {
//		return p.FetchMatchDetail(ctx, platform, matchID)
//	})
//
// # Cancellation
//
// A fetch runs under the context of the caller that started it. If that
// caller goes away, callers still waiting on the same key start a fresh
// fetch under their own context instead of receiving the cancellation.
//
// # Metrics
//
//   - wzstats_cache_hits_total{cache} - Lookups served from memory
//   - wzstats_cache_misses_total{cache} - Lookups that started or joined a fetch
//   - wzstats_cache_shared_total{cache} - Callers served by a shared fetch
//   - wzstats_cache_evictions_total{cache} - Entries evicted or removed
//   - wzstats_cache_entries{cache} - Current entry count
package cache
