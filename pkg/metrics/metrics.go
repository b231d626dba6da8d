// Package metrics exposes the Prometheus registry used by the stats client.
// All metrics are defined in their respective packages (retry, ratelimit,
// cache, pagination, provider/live, client) and registered via promauto.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the stats client.
var Registry = prometheus.DefaultRegisterer

// Path is where Handler is mounted by NewServer.
const Path = "/metrics"

// Handler serves every registered metric in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// NewServer returns an HTTP server exposing Handler on Path. The caller
// owns its lifecycle.
func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(Path, Handler())

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 15 * time.Second,
	}
}

// Metrics Documentation
//
// Retry Metrics (pkg/retry):
//   - wzstats_retries_total{policy} (Counter): Retry attempts
//   - wzstats_retry_backoff_seconds{policy} (Histogram): Backoff waits
//   - wzstats_retry_exhausted_total{policy} (Counter): Calls that ran out of attempts
//
// Concurrency Metrics (pkg/ratelimit):
//   - wzstats_limiter_in_flight{limiter} (Gauge): Permits currently held
//   - wzstats_limiter_saturated_total{limiter} (Counter): Smoothing pauses taken
//   - wzstats_limiter_wait_seconds{limiter} (Histogram): Time spent waiting for a permit
//   - wzstats_throttle_recent (Gauge): Throttle responses in the shared window
//   - wzstats_throttle_recorded_total (Counter): Throttle responses recorded
//   - wzstats_throttle_blocks_total (Counter): Calls blocked by an active cool-down
//   - wzstats_throttle_slowdowns_total (Counter): Calls slowed by recent throttling
//
// Cache Metrics (pkg/cache):
//   - wzstats_cache_hits_total{cache} (Counter)
//   - wzstats_cache_misses_total{cache} (Counter)
//   - wzstats_cache_shared_total{cache} (Counter): Callers served by another caller's fetch
//   - wzstats_cache_evictions_total{cache} (Counter)
//   - wzstats_cache_entries{cache} (Gauge)
//
// Batch and History Metrics (pkg/pagination):
//   - wzstats_batch_results_total{batch, outcome} (Counter): success, error, cancelled
//   - wzstats_batch_duration_seconds{batch} (Histogram)
//   - wzstats_accumulations_total{reason} (Counter): History runs by stop reason
//   - wzstats_accumulation_pages (Histogram): Pages fetched per history run
//
// Provider Metrics (pkg/provider/live):
//   - wzstats_provider_requests_total{operation, status} (Counter)
//   - wzstats_provider_request_duration_seconds{operation} (Histogram)
//   - wzstats_provider_errors_total{class} (Counter)
//
// Client Metrics (pkg/client):
//   - wzstats_operation_duration_seconds{operation} (Histogram)
//
// Example Prometheus Queries:
//
//   # Detail cache hit rate
//   sum(rate(wzstats_cache_hits_total{cache="match_detail"}[5m])) /
//   (sum(rate(wzstats_cache_hits_total{cache="match_detail"}[5m])) + sum(rate(wzstats_cache_misses_total{cache="match_detail"}[5m])))
//
//   # History runs cut short by the page ceiling
//   rate(wzstats_accumulations_total{reason="page_limit"}[15m])
//
//   # Failed batch slots
//   rate(wzstats_batch_results_total{outcome="error"}[5m])
