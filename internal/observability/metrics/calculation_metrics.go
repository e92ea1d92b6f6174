package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	CalcOutcomeOK    = "ok"
	CalcOutcomeError = "error"
)

// CalculationMetrics captures emissions calculation health signals.
type CalculationMetrics struct {
	runs           *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	skippedRecords *prometheus.CounterVec
}

var (
	calcOnce    sync.Once
	calcMetrics *CalculationMetrics
)

// NewCalculationMetrics registers the calculation instruments once.
func NewCalculationMetrics() *CalculationMetrics {
	calcOnce.Do(func() {
		calcMetrics = &CalculationMetrics{
			runs: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "carbontrail_calculation_runs_total",
				Help: "Corporate emissions calculations, by outcome.",
			}, []string{"outcome"}),
			duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "carbontrail_calculation_duration_seconds",
				Help:    "Corporate emissions calculation latency.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			}, []string{"outcome"}),
			skippedRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "carbontrail_calculation_skipped_records_total",
				Help: "Source records degraded to zero contribution, by reason.",
			}, []string{"reason"}),
		}
		prometheus.MustRegister(calcMetrics.runs, calcMetrics.duration, calcMetrics.skippedRecords)
	})
	return calcMetrics
}

// RecordCalculation records one calculation run.
func (m *CalculationMetrics) RecordCalculation(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome = normalizeOutcome(outcome)
	m.runs.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// RecordSkippedRecord counts a source record that degraded to zero.
func (m *CalculationMetrics) RecordSkippedRecord(reason string) {
	if m == nil {
		return
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown"
	}
	m.skippedRecords.WithLabelValues(reason).Inc()
}

func normalizeOutcome(outcome string) string {
	switch strings.ToLower(strings.TrimSpace(outcome)) {
	case CalcOutcomeOK:
		return CalcOutcomeOK
	default:
		return CalcOutcomeError
	}
}
