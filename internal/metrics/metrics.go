// Package metrics holds the Prometheus instruments for evaluation cycles.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "garden_cycles_total",
			Help: "Evaluation cycles by outcome (ok, error, skipped)",
		},
		[]string{"outcome"},
	)

	CycleDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "garden_cycle_duration_seconds",
			Help:    "Wall time of one generate and evaluate cycle",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 240},
		},
	)

	ReadingsGeneratedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "garden_readings_generated_total",
			Help: "Simulated readings appended",
		},
	)

	InsightsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "garden_insights_created_total",
			Help: "Insights created by rule and severity",
		},
		[]string{"rule", "severity"},
	)

	InsightsResolvedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "garden_insights_resolved_total",
			Help: "Insights resolved by the recovery scan",
		},
	)

	// InsightsOpen is refreshed after every cycle.
	InsightsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "garden_insights_open",
			Help: "Currently unresolved insights",
		},
	)

	PublishFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "garden_publish_failures_total",
			Help: "Insight event batches that failed to publish",
		},
	)
)

const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
)

// RecordCycle counts a finished cycle and observes its duration.
func RecordCycle(outcome string, took time.Duration) {
	CyclesTotal.WithLabelValues(outcome).Inc()
	if outcome != OutcomeSkipped {
		CycleDurationSeconds.Observe(took.Seconds())
	}
}

func RecordReadings(n int) {
	ReadingsGeneratedTotal.Add(float64(n))
}

func RecordInsightCreated(rule, severity string) {
	InsightsCreatedTotal.WithLabelValues(rule, severity).Inc()
}

func RecordInsightsResolved(n int) {
	InsightsResolvedTotal.Add(float64(n))
}

func SetOpenInsights(n int) {
	InsightsOpen.Set(float64(n))
}

func RecordPublishFailure() {
	PublishFailuresTotal.Inc()
}
