// Package metrics holds the Prometheus collectors shared across the app.
package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "courseshelf"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP API requests",
		},
		[]string{"method", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP API request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	CatalogRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_requests_total",
			Help:      "Requests sent to the remote catalog",
		},
		[]string{"operation", "status"},
	)

	SyncRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "Catalog sync runs by scope and outcome",
		},
		[]string{"scope", "outcome"},
	)

	SyncRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_records_total",
			Help:      "Catalog records merged by result",
		},
		[]string{"result"},
	)

	SyncDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Catalog sync duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	DownloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Finished course downloads by outcome",
		},
		[]string{"outcome"},
	)

	DownloadBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_bytes_total",
			Help:      "Bytes written by completed downloads",
		},
	)

	ActiveDownloads = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_downloads",
			Help:      "Downloads currently transferring",
		},
	)

	QueuedDownloads = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queued_downloads",
			Help:      "Downloads waiting for a free slot",
		},
	)

	SearchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Course searches served",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		CatalogRequestsTotal,
		SyncRunsTotal,
		SyncRecordsTotal,
		SyncDuration,
		DownloadsTotal,
		DownloadBytesTotal,
		ActiveDownloads,
		QueuedDownloads,
		SearchesTotal,
	)
}

// Handler serves the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// RecordRequest records one HTTP API request.
func RecordRequest(method, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, status).Inc()
	HTTPRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordSync records a finished sync run.
func RecordSync(scope, outcome string, added, updated, failed int, duration time.Duration) {
	SyncRunsTotal.WithLabelValues(scope, outcome).Inc()
	SyncRecordsTotal.WithLabelValues("added").Add(float64(added))
	SyncRecordsTotal.WithLabelValues("updated").Add(float64(updated))
	SyncRecordsTotal.WithLabelValues("failed").Add(float64(failed))
	SyncDuration.Observe(duration.Seconds())
}
