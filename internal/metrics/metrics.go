// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Reasons used for the id_generation_errors_total label.
const (
	ReasonClockBackwards    = "clock_backwards"
	ReasonSequenceExhausted = "sequence_exhausted"
	ReasonOther             = "other"
)

var (
	// HTTPRequestsTotal counts total HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures request latency in seconds.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// ActiveConnections tracks current active connections.
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_connections",
			Help: "Number of active connections",
		},
	)

	// DBQueryDuration measures database query latency.
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// IDsGeneratedTotal counts identifiers minted by this process.
	IDsGeneratedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ids_generated_total",
			Help: "Total number of identifiers generated",
		},
	)

	// IDGenerationErrorsTotal counts failed generations by reason.
	IDGenerationErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "id_generation_errors_total",
			Help: "Total number of failed identifier generations",
		},
		[]string{"reason"},
	)

	// WorkerID exposes the worker ID this process generates under.
	WorkerID = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "idgen_worker_id",
			Help: "Worker ID assigned to this process",
		},
	)

	// WorkerLeaseFailuresTotal counts failed worker lease refreshes.
	WorkerLeaseFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "idgen_worker_lease_failures_total",
			Help: "Total number of failed worker ID lease refreshes",
		},
	)

	// UsersCreatedTotal counts users created.
	UsersCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "journal_users_created_total",
			Help: "Total number of users created",
		},
	)

	// EntriesCreatedTotal counts journal entries created.
	EntriesCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "journal_entries_created_total",
			Help: "Total number of journal entries created",
		},
	)
)

func init() {
	// Pre-create the reason series so they are scraped as zero.
	for _, reason := range []string{ReasonClockBackwards, ReasonSequenceExhausted, ReasonOther} {
		IDGenerationErrorsTotal.WithLabelValues(reason)
	}
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRequest records an HTTP request metric.
func RecordRequest(method, path string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordDBQuery records a database query duration.
func RecordDBQuery(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordIDsGenerated records n successfully minted identifiers.
func RecordIDsGenerated(n int) {
	IDsGeneratedTotal.Add(float64(n))
}

// RecordIDGenerationError records a failed generation.
func RecordIDGenerationError(reason string) {
	IDGenerationErrorsTotal.WithLabelValues(reason).Inc()
}

// SetWorkerID publishes the active worker ID.
func SetWorkerID(id int64) {
	WorkerID.Set(float64(id))
}

// RecordWorkerLeaseFailure records a failed lease refresh.
func RecordWorkerLeaseFailure() {
	WorkerLeaseFailuresTotal.Inc()
}

// RecordUserCreated records a user creation.
func RecordUserCreated() {
	UsersCreatedTotal.Inc()
}

// RecordEntryCreated records a journal entry creation.
func RecordEntryCreated() {
	EntriesCreatedTotal.Inc()
}
