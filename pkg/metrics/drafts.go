package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DraftMetrics records draft mutations and order submissions.
type DraftMetrics struct {
	operations     *prometheus.CounterVec
	submissions    *prometheus.CounterVec
	submitDuration prometheus.Histogram
}

// NewDraftMetrics registers the draft metrics on the provided registerer.
func NewDraftMetrics(reg prometheus.Registerer) *DraftMetrics {
	if reg == nil {
		return &DraftMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "draft_operations_total",
		Help: "Draft operations by name and result.",
	}, []string{"operation", "result"})
	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "draft_submissions_total",
		Help: "Order submissions by outcome.",
	}, []string{"outcome"})
	submitDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "draft_submit_duration_seconds",
		Help:    "Duration of order submissions including the backend call.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(operations, submissions, submitDuration)
	return &DraftMetrics{
		operations:     operations,
		submissions:    submissions,
		submitDuration: submitDuration,
	}
}

// IncOperation counts a draft operation; result is "ok", "warning" or "error".
func (m *DraftMetrics) IncOperation(operation, result string) {
	if m == nil || m.operations == nil {
		return
	}
	m.operations.WithLabelValues(normalizeLabel(operation), normalizeLabel(result)).Inc()
}

// IncSubmission counts a submission attempt by outcome.
func (m *DraftMetrics) IncSubmission(outcome string) {
	if m == nil || m.submissions == nil {
		return
	}
	m.submissions.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveSubmit records how long a submission took.
func (m *DraftMetrics) ObserveSubmit(duration time.Duration) {
	if m == nil || m.submitDuration == nil {
		return
	}
	m.submitDuration.Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
