// Package pagination orchestrates multi-call fetches against the stats API.
//
// Two shapes of work are covered:
//
// BatchFetcher fans a list of independent keys (e.g. match IDs) out
// concurrently. Each key goes through the result cache, a limiter permit and
// the retry policy; results come back in input order with per-key errors.
//
//	fetcher := pagination.NewBatchFetcher(fetchDetail, detailCache, pagination.DefaultConfig(),
//		pagination.WithLimiter(limiter),
//		pagination.WithRetry(policy),
//	)
//	results, err := fetcher.FetchAll(ctx, keys)
//
// Accumulator drives the sequential history walk: the head page is fetched
// fresh, every following page is requested with the cursor taken from the
// oldest record of the previous page, until enough qualifying records are
// collected or the page ceiling is hit.
//
//	acc, err := pagination.NewAccumulator(fetchPage, cursorOf, pagination.DefaultAccumulatorConfig(),
//		pagination.WithRetry(pagePolicy),
//	)
//	result, err := acc.Collect(ctx, 12, provider.IsBattleRoyale)
//
// The accumulator:
//   - Never fetches pages in parallel
//   - Stops on an empty page or a cursor that does not move backwards
//   - Treats a short history as a valid partial result, not an error
package pagination
