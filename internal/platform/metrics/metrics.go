package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the gateway.
type Metrics struct {
	QueriesTotal       *prometheus.CounterVec
	PlanPartsTotal     prometheus.Counter
	UnsatisfiedPaths   prometheus.Counter
	JobSubmissionsVec  *prometheus.CounterVec
	JobPollDuration    prometheus.Histogram
	FragmentsMerged    prometheus.Counter
	RequestDurationVec *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		QueriesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lif_queries_total",
			Help: "Total person queries served, by outcome (ok, partial, failed).",
		}, []string{"outcome"}),
		PlanPartsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lif_plan_parts_total",
			Help: "Total query plan parts dispatched to information sources.",
		}),
		UnsatisfiedPaths: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lif_unsatisfied_fragment_paths_total",
			Help: "Requested fragment paths no configured source could serve.",
		}),
		JobSubmissionsVec: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lif_orchestrator_job_submissions_total",
			Help: "Orchestrator job submissions, by result (ok, retried, failed).",
		}, []string{"result"}),
		JobPollDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "lif_orchestrator_job_poll_seconds",
			Help:    "Wall time from job submission to terminal status.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		FragmentsMerged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lif_fragments_merged_total",
			Help: "Fragments merged into canonical records.",
		}),
		RequestDurationVec: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lif_http_request_duration_seconds",
			Help:    "HTTP request latency by path and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "status"}),
	}
}

// ObserveRequest records one HTTP request's latency.
func (m *Metrics) ObserveRequest(path string, status int, d time.Duration) {
	m.RequestDurationVec.WithLabelValues(path, strconv.Itoa(status)).Observe(d.Seconds())
}
