package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks lookups served from memory
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wzstats_cache_hits_total",
			Help: "Total number of result cache hits",
		},
		[]string{"cache"},
	)

	// CacheMisses tracks lookups that started or joined a fetch
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wzstats_cache_misses_total",
			Help: "Total number of result cache misses",
		},
		[]string{"cache"},
	)

	// CacheShared tracks callers that received the outcome of a shared fetch
	CacheShared = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wzstats_cache_shared_total",
			Help: "Total number of callers served by a single-flight fetch",
		},
		[]string{"cache"},
	)

	// CacheEvictions tracks entries dropped by capacity pressure or removal
	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wzstats_cache_evictions_total",
			Help: "Total number of result cache entries evicted or removed",
		},
		[]string{"cache"},
	)

	// CacheEntries tracks the current entry count
	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wzstats_cache_entries",
			Help: "Current number of result cache entries",
		},
		[]string{"cache"},
	)
)
