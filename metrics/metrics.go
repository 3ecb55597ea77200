// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "fuel_ledger_"

	ResultSuccess  = "success"
	ResultError    = "error"
	ResultNotReady = "not_ready"

	CacheHit  = "hit"
	CacheMiss = "miss"
)

var (
	registerOnce sync.Once

	reportTotal   *prometheus.CounterVec
	reportLatency *prometheus.HistogramVec

	balanceLookups *prometheus.CounterVec

	feedGeneration  prometheus.Gauge
	feedLoadTotal   *prometheus.CounterVec
	feedLoadLatency *prometheus.HistogramVec

	recordsIngested *prometheus.CounterVec
)

// Init registers collectors with the default registry. Safe to call more
// than once; helpers are no-ops until Init has run.
func Init() {
	registerOnce.Do(func() {
		reportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_generate_total",
				Help: "Total report generations by report and result",
			},
			[]string{"report", "result"},
		)
		reportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "report_generate_latency_seconds",
				Help:    "Report generation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"report"},
		)
		balanceLookups = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "balance_cache_lookups_total",
				Help: "Balance query cache lookups by result",
			},
			[]string{"result"},
		)
		feedGeneration = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "feed_generation",
				Help: "Current collections generation",
			},
		)
		feedLoadTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "feed_load_total",
				Help: "Collection loads by source and result",
			},
			[]string{"source", "result"},
		)
		feedLoadLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "feed_load_latency_seconds",
				Help:    "Collection load latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		)
		recordsIngested = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "records_ingested_total",
				Help: "Records accepted through the API by kind",
			},
			[]string{"kind"},
		)

		prometheus.MustRegister(
			reportTotal,
			reportLatency,
			balanceLookups,
			feedGeneration,
			feedLoadTotal,
			feedLoadLatency,
			recordsIngested,
		)
	})
}

// ObserveReport records one report generation.
func ObserveReport(report, result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if reportTotal != nil {
		reportTotal.WithLabelValues(report, result).Inc()
	}
	if reportLatency != nil && result == ResultSuccess {
		reportLatency.WithLabelValues(report).Observe(duration.Seconds())
	}
}

// IncBalanceLookup counts a balance cache hit or miss.
func IncBalanceLookup(result string) {
	if balanceLookups != nil {
		balanceLookups.WithLabelValues(result).Inc()
	}
}

// SetGeneration publishes the current collections generation.
func SetGeneration(gen uint64) {
	if feedGeneration != nil {
		feedGeneration.Set(float64(gen))
	}
}

// ObserveFeedLoad records one collection load.
func ObserveFeedLoad(source, result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if feedLoadTotal != nil {
		feedLoadTotal.WithLabelValues(source, result).Inc()
	}
	if feedLoadLatency != nil {
		feedLoadLatency.WithLabelValues(source).Observe(duration.Seconds())
	}
}

// IncRecordIngested counts an accepted record.
func IncRecordIngested(kind string) {
	if recordsIngested != nil {
		recordsIngested.WithLabelValues(kind).Inc()
	}
}
