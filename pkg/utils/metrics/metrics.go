package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache lookup results
const (
	ResultHit  = "hit"
	ResultMiss = "miss"
)

// Metrics definitions
var (
	SourceFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tally_source_fetch_seconds",
		Help:    "Time spent loading download rows from a data source.",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})

	SourceFetchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tally_source_fetch_errors_total",
		Help: "Total number of failed data source loads.",
	}, []string{"source"})

	SourceRecords = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tally_source_records",
		Help: "Number of download rows returned by the last successful load.",
	}, []string{"source"})

	CacheRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tally_cache_requests_total",
		Help: "Total number of cache lookups by kind and result.",
	}, []string{"kind", "result"})

	FiguresRenderedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tally_figures_rendered_total",
		Help: "Total number of figures built from download rows.",
	}, []string{"chart"})
)
