// Package metrics registers Prometheus collectors for the normalization
// service. Register once at startup; helper functions are safe no-ops until
// Init has run.
package metrics

import (
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "connectorhub_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	normalizeRuns    *prometheus.CounterVec
	normalizeRecords *prometheus.CounterVec
	normalizeLatency *prometheus.HistogramVec

	diagnostics *prometheus.CounterVec

	rulesRegistered prometheus.Counter
	inferRequests   prometheus.Counter
)

// Init registers normalization metrics.
func Init(logger *log.Logger) {
	registerOnce.Do(func() {
		normalizeRuns = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "normalize_runs_total",
				Help: "Total normalization runs by result",
			},
			[]string{"result"},
		)
		normalizeRecords = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "normalize_records_total",
				Help: "Records seen by normalization runs, by outcome",
			},
			[]string{"outcome"},
		)
		normalizeLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "normalize_latency_seconds",
				Help:    "Normalization run latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		diagnostics = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "normalize_diagnostics_total",
				Help: "Diagnostics emitted by normalization runs, by code",
			},
			[]string{"code"},
		)
		rulesRegistered = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "rules_registered_total",
				Help: "Total mapping rule registrations",
			},
		)
		inferRequests = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "schema_infer_requests_total",
				Help: "Total schema inference requests",
			},
		)

		collectors := []prometheus.Collector{
			normalizeRuns,
			normalizeRecords,
			normalizeLatency,
			diagnostics,
			rulesRegistered,
			inferRequests,
		}
		for _, collector := range collectors {
			if err := prometheus.Register(collector); err != nil {
				if logger != nil {
					logger.Printf("metrics register error: %v", err)
				}
			}
		}
	})
}

// ObserveNormalizeRun records one engine run.
func ObserveNormalizeRun(success bool, output, skipped int, duration time.Duration) {
	if normalizeRuns == nil {
		return
	}
	result := resultSuccess
	if !success {
		result = resultError
	}
	normalizeRuns.WithLabelValues(result).Inc()
	normalizeRecords.WithLabelValues("points").Add(float64(output))
	normalizeRecords.WithLabelValues("skipped").Add(float64(skipped))
	normalizeLatency.WithLabelValues(result).Observe(duration.Seconds())
}

// CountDiagnostic records one emitted diagnostic code.
func CountDiagnostic(code string) {
	if diagnostics == nil {
		return
	}
	diagnostics.WithLabelValues(code).Inc()
}

// CountRuleRegistered records one rule registration.
func CountRuleRegistered() {
	if rulesRegistered == nil {
		return
	}
	rulesRegistered.Inc()
}

// CountInferRequest records one schema inference request.
func CountInferRequest() {
	if inferRequests == nil {
		return
	}
	inferRequests.Inc()
}
