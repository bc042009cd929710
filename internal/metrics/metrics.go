// Package metrics exposes Prometheus collectors for the content engine.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	tasksTotal                 *prometheus.CounterVec
	scrapeJobsTotal            *prometheus.CounterVec
	scrapeDurationSeconds      *prometheus.HistogramVec
	selectionSize              prometheus.Histogram
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	activeWorkers              prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		tasksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "content_tasks_total",
				Help: "Total number of tasks finished, labeled by status.",
			},
			[]string{"status"},
		)

		scrapeJobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "content_scrape_jobs_total",
				Help: "Total number of platform scrape jobs, labeled by platform and outcome.",
			},
			[]string{"platform", "outcome"},
		)

		scrapeDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "content_scrape_duration_seconds",
				Help:    "Histogram of per-platform scrape durations.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
			},
			[]string{"platform"},
		)

		selectionSize = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "content_selection_size",
				Help:    "Histogram of selected post counts per completed task.",
				Buckets: []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "content_active_workers",
				Help: "Number of workers currently processing a task.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveTask increments the task counter for the given terminal status.
func ObserveTask(status string) {
	tasksTotal.WithLabelValues(status).Inc()
}

// ObserveScrapeJob records the outcome and duration of one platform job.
func ObserveScrapeJob(platform, outcome string, duration time.Duration) {
	scrapeJobsTotal.WithLabelValues(platform, outcome).Inc()
	scrapeDurationSeconds.WithLabelValues(platform).Observe(duration.Seconds())
}

// ObserveSelection records how many posts a completed task selected.
func ObserveSelection(count int) {
	selectionSize.Observe(float64(count))
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	activeWorkers.Dec()
}
