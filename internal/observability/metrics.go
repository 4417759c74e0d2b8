package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	httpRequestsTotal   *prometheus.CounterVec
	httpLatencySeconds  *prometheus.HistogramVec
	httpErrorsTotal     *prometheus.CounterVec

	submissionsCreatedTotal     *prometheus.CounterVec
	reviewTransitionsTotal      *prometheus.CounterVec
	similarityScores            *prometheus.HistogramVec
	notificationsPublishedTotal *prometheus.CounterVec
	notificationStreamsActive   prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "proposal_http_requests_total",
			Help: "Total number of API requests served, by route scope.",
		}, []string{"scope", "method", "route", "status"})

		// PDF rendering dominates the upper buckets.
		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "proposal_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 15.0},
		}, []string{"scope", "method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "proposal_http_errors_total",
			Help: "Total number of 4xx and 5xx API responses.",
		}, []string{"scope", "method", "route", "status"})

		submissionsCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "proposal_submissions_created_total",
			Help: "Total number of proposals submitted, by proposal type.",
		}, []string{"proposal_type"})

		reviewTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "proposal_review_transitions_total",
			Help: "Total number of recorded review decisions, by stage and decision.",
		}, []string{"stage", "decision"})

		similarityScores = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "proposal_similarity_score",
			Help:    "Distribution of similarity scores assigned to proposals.",
			Buckets: []float64{10, 25, 50, 60, 70, 75, 85, 95, 100},
		}, []string{"proposal_type"})

		notificationsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_published_total",
			Help: "Total number of notifications delivered to subscribers.",
		}, []string{"type"})

		notificationStreamsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "notification_streams_active",
			Help: "Number of open SSE and websocket notification streams.",
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			submissionsCreatedTotal,
			reviewTransitionsTotal,
			similarityScores,
			notificationsPublishedTotal,
			notificationStreamsActive,
		)
	})
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

func SubmissionsCreated() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsCreatedTotal
}

// ReviewTransitions counts lecturer and final decisions.
func ReviewTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return reviewTransitionsTotal
}

func SimilarityScores() *prometheus.HistogramVec {
	RegisterMetrics()
	return similarityScores
}

func NotificationsPublishedTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsPublishedTotal
}

// NotificationStreamsActive tracks connected notification subscribers.
func NotificationStreamsActive() prometheus.Gauge {
	RegisterMetrics()
	return notificationStreamsActive
}
