package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	batchResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wzstats_batch_results_total",
			Help: "Total number of batch fetch results by outcome",
		},
		[]string{"batch", "outcome"}, // "success", "error", "cancelled"
	)

	batchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wzstats_batch_duration_seconds",
			Help:    "Duration of complete batch fetch runs",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"batch"},
	)

	accumulationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wzstats_accumulations_total",
			Help: "Total number of history accumulations by stop reason",
		},
		[]string{"reason"},
	)

	accumulatedPages = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wzstats_accumulation_pages",
			Help:    "Number of pages fetched per history accumulation",
			Buckets: []float64{1, 2, 3, 4, 5, 8, 12, 20},
		},
	)
)
