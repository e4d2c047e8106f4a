package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

type collectors struct {
	requests      *prometheus.CounterVec
	cache         *prometheus.CounterVec
	parseDuration prometheus.Histogram
	cachedTables  prometheus.GaugeFunc
}

func newCollectors(cacheLen func() int) *collectors {
	return &collectors{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bnf_requests_total",
				Help: "Counter for API requests by endpoint and outcome.",
			},
			[]string{"endpoint", "outcome"},
		),
		cache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bnf_grammar_cache_total",
				Help: "Counter for compiled grammar cache lookups by result.",
			},
			[]string{"result"},
		),
		parseDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bnf_parse_duration_seconds",
			Help:    "Histogram for the time spent matching input.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		cachedTables: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "bnf_grammar_cache_entries",
				Help: "Gauge for the number of compiled grammars held in the cache.",
			},
			func() float64 { return float64(cacheLen()) },
		),
	}
}

func (c *collectors) register(reg prometheus.Registerer) error {
	for _, collector := range []prometheus.Collector{c.requests, c.cache, c.parseDuration, c.cachedTables} {
		if err := reg.Register(collector); err != nil {
			return err
		}
	}
	return nil
}
