package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CallAttempts counts every attempt made through the retry wrapper.
	CallAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citebank_call_attempts_total",
			Help: "Attempts made by resilient network calls",
		},
		[]string{"component", "outcome"}, // outcome: success, retry, exhausted, permanent, canceled
	)

	SearchQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citebank_search_queries_total",
			Help: "Search queries executed by the aggregator",
		},
		[]string{"provider", "status"}, // status: ok, error
	)

	SearchCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "citebank_search_cache_hits_total",
			Help: "Search submissions answered from an existing session",
		},
	)

	SourcesRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "citebank_sources_registered_total",
			Help: "Source records inserted into session registries",
		},
	)

	DetailFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citebank_detail_fetches_total",
			Help: "Detail retrievals by resulting fetch state",
		},
		[]string{"state"},
	)

	FetchLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "citebank_fetch_latency_seconds",
			Help:    "Full page fetch latency including retries",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	Refinements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citebank_refinements_total",
			Help: "Refiner invocations",
		},
		[]string{"outcome"}, // outcome: refined, failed
	)

	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "citebank_sessions_active",
			Help: "Search sessions held by the in-process store",
		},
	)
)
