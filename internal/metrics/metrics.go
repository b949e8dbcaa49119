package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LookupsTotal counts calls to the external tax engine by outcome.
	LookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tax",
		Name:      "lookups_total",
		Help:      "Tax engine lookups by result.",
	}, []string{"result"})

	// LookupDuration observes external lookup latency.
	LookupDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tax",
		Name:      "lookup_duration_seconds",
		Help:      "Latency of external tax engine lookups.",
		Buckets:   prometheus.DefBuckets,
	})

	// CacheRequestsTotal counts lookup cache accesses by hit/miss.
	CacheRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tax",
		Name:      "cache_requests_total",
		Help:      "Lookup cache accesses by result.",
	}, []string{"result"})

	// CalculationsTotal counts full calculation passes by outcome.
	CalculationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tax",
		Name:      "calculations_total",
		Help:      "Calculation passes by outcome.",
	}, []string{"status"})

	// PackagesSkippedTotal counts packages excluded from lookup and why.
	PackagesSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tax",
		Name:      "packages_skipped_total",
		Help:      "Packages skipped during calculation by reason.",
	}, []string{"reason"})
)
