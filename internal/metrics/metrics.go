// Package metrics exposes Prometheus collectors for the catalog service.
package metrics

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchesTotal         *prometheus.CounterVec
	fetchDurationSeconds *prometheus.HistogramVec
	fetchRetriesTotal    prometheus.Counter
	pagesExtractedTotal  prometheus.Counter
	videosUpsertedTotal  prometheus.Counter
	studiosUpsertedTotal prometheus.Counter
	resolveOutcomesTotal *prometheus.CounterVec
	enrichFailuresTotal  prometheus.Counter
	crawlStoppedTotal    prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		fetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_fetches_total",
				Help: "Total page fetches, labeled by host and outcome.",
			},
			[]string{"host", "outcome"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "catalog_fetch_duration_seconds",
				Help:    "Histogram of fetch latencies, labeled by host.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
			},
			[]string{"host"},
		)

		fetchRetriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "catalog_fetch_retries_total",
				Help: "Total fetch attempts beyond the first.",
			},
		)

		pagesExtractedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "catalog_listing_pages_total",
				Help: "Total listing pages parsed.",
			},
		)

		videosUpsertedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "catalog_videos_upserted_total",
				Help: "Total video upserts issued to the store.",
			},
		)

		studiosUpsertedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "catalog_studios_upserted_total",
				Help: "Total studio upserts issued to the store.",
			},
		)

		resolveOutcomesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_resolves_total",
				Help: "Total stream resolutions, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		enrichFailuresTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "catalog_enrich_failures_total",
				Help: "Total per-video enrichment failures (retried on later sweeps).",
			},
		)

		crawlStoppedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "catalog_crawl_stops_total",
				Help: "Total cooperative stops observed by the orchestrator.",
			},
		)
	})
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObserveFetch records one completed fetch attempt chain.
func ObserveFetch(rawURL string, ok bool, d time.Duration) {
	Init()
	host := "unknown"
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	fetchesTotal.WithLabelValues(host, outcome).Inc()
	fetchDurationSeconds.WithLabelValues(host).Observe(d.Seconds())
}

// IncFetchRetry counts one retry attempt.
func IncFetchRetry() {
	Init()
	fetchRetriesTotal.Inc()
}

// IncListingPage counts one parsed listing page.
func IncListingPage() {
	Init()
	pagesExtractedTotal.Inc()
}

// IncVideoUpsert counts one video upsert.
func IncVideoUpsert() {
	Init()
	videosUpsertedTotal.Inc()
}

// IncStudioUpsert counts one studio upsert.
func IncStudioUpsert() {
	Init()
	studiosUpsertedTotal.Inc()
}

// ObserveResolve records a stream resolution outcome ("hit", "miss" or "error").
func ObserveResolve(outcome string) {
	Init()
	resolveOutcomesTotal.WithLabelValues(outcome).Inc()
}

// IncEnrichFailure counts one per-video enrichment failure.
func IncEnrichFailure() {
	Init()
	enrichFailuresTotal.Inc()
}

// IncCrawlStopped counts one observed cooperative stop.
func IncCrawlStopped() {
	Init()
	crawlStoppedTotal.Inc()
}
