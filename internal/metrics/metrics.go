package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storemirror",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status.",
		},
		[]string{"endpoint", "status"},
	)

	pagesFetched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storemirror",
			Name:      "pages_fetched_total",
			Help:      "Remote pages fetched by collection.",
		},
		[]string{"sync_type"},
	)

	recordsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storemirror",
			Name:      "records_processed_total",
			Help:      "Records upserted into the mirror by collection.",
		},
		[]string{"sync_type"},
	)

	recordsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storemirror",
			Name:      "records_failed_total",
			Help:      "Records that failed transform or upsert by collection.",
		},
		[]string{"sync_type"},
	)

	tasksFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storemirror",
			Name:      "tasks_finished_total",
			Help:      "Sync tasks that reached a terminal status.",
		},
		[]string{"sync_type", "status"},
	)

	tasksCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storemirror",
			Name:      "tasks_created_total",
			Help:      "Sync tasks materialized by the scheduler.",
		},
		[]string{"sync_type"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			pagesFetched,
			recordsProcessed,
			recordsFailed,
			tasksFinished,
			tasksCreated,
		)
	})
}

// IncHTTP increments the request counter for an endpoint/status pair.
func IncHTTP(endpoint, status string) {
	httpRequests.WithLabelValues(endpoint, status).Inc()
}

// IncPage counts one fetched remote page.
func IncPage(syncType string) {
	pagesFetched.WithLabelValues(syncType).Inc()
}

// AddRecords counts processed and failed records for a collection.
func AddRecords(syncType string, processed, failed int) {
	if processed > 0 {
		recordsProcessed.WithLabelValues(syncType).Add(float64(processed))
	}
	if failed > 0 {
		recordsFailed.WithLabelValues(syncType).Add(float64(failed))
	}
}

// IncTaskFinished counts a task reaching completed or failed.
func IncTaskFinished(syncType, status string) {
	tasksFinished.WithLabelValues(syncType, status).Inc()
}

// AddTasksCreated counts tasks materialized for a collection.
func AddTasksCreated(syncType string, n int) {
	if n > 0 {
		tasksCreated.WithLabelValues(syncType).Add(float64(n))
	}
}
