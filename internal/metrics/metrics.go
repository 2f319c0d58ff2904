// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	feedFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notecal_feed_fetch_total",
		Help: "ICS feed fetches by feed and result (ok, cache, not_found, error)",
	}, []string{"feed", "result"})

	feedFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "notecal_feed_fetch_duration_seconds",
		Help:    "Latency of a single ICS feed fetch",
		Buckets: prometheus.DefBuckets,
	}, []string{"feed"})

	recordsProduced = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "notecal_feed_records",
		Help: "Event records produced by the last processing run of each feed",
	}, []string{"feed"})

	syncTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notecal_sync_total",
		Help: "Note sync attempts by outcome (synced, no_event, error)",
	}, []string{"outcome"})
)

// ObserveFetch records one feed fetch.
func ObserveFetch(feed, result string, d time.Duration) {
	feedFetchTotal.WithLabelValues(feed, result).Inc()
	feedFetchDuration.WithLabelValues(feed).Observe(d.Seconds())
}

// SetRecords stores how many records a feed produced.
func SetRecords(feed string, n int) {
	recordsProduced.WithLabelValues(feed).Set(float64(n))
}

// ObserveSync records one note sync attempt.
func ObserveSync(outcome string) {
	syncTotal.WithLabelValues(outcome).Inc()
}
