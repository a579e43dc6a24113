// Copyright (C) 2025 Librex AI (eng@librex.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides metrics and instrumentation for the
// orchestrator.
//
// # Description
//
// This package implements Prometheus metrics for monitoring benchmark
// orchestration. Metrics include:
//   - Job counters (by terminal status)
//   - Job and solve duration histograms
//   - Active job gauge
//   - Error counters (by endpoint and error type)
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Use with Prometheus +
// Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "librex"

// Subsystem for benchmark orchestration metrics
const benchSubsystem = "bench"

// BenchMetrics holds all Prometheus metrics for benchmark orchestration.
//
// Initialize once at startup via InitMetrics(); handlers and the scheduler
// read the DefaultMetrics singleton and treat nil as metrics-disabled.
type BenchMetrics struct {
	// JobsTotal counts benchmark jobs by terminal status.
	// Labels: status (done, error)
	JobsTotal *prometheus.CounterVec

	// JobDurationSeconds measures whole-job wall time.
	// Labels: status (done, error)
	JobDurationSeconds *prometheus.HistogramVec

	// SolveDurationSeconds measures individual solver invocations.
	// Labels: mode, status (success, error)
	SolveDurationSeconds *prometheus.HistogramVec

	// ActiveJobs tracks currently running benchmark jobs.
	ActiveJobs prometheus.Gauge

	// SolveRequestsTotal counts synchronous solve requests.
	// Labels: status (success, error, timeout)
	SolveRequestsTotal *prometheus.CounterVec

	// ErrorsTotal counts request errors by endpoint and error type.
	// Labels: endpoint, error_code
	ErrorsTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance of BenchMetrics.
// Initialized by InitMetrics(); nil when metrics are disabled.
var DefaultMetrics *BenchMetrics

// InitMetrics initializes the default metrics instance against the global
// Prometheus registry. Calling it again returns the existing instance.
func InitMetrics() *BenchMetrics {
	if DefaultMetrics != nil {
		return DefaultMetrics
	}
	DefaultMetrics = NewBenchMetrics(prometheus.DefaultRegisterer)
	return DefaultMetrics
}

// NewBenchMetrics creates and registers the metric set against reg.
// Tests pass a fresh prometheus.NewRegistry() for isolation.
func NewBenchMetrics(reg prometheus.Registerer) *BenchMetrics {
	factory := promauto.With(reg)

	return &BenchMetrics{
		JobsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: benchSubsystem,
				Name:      "jobs_total",
				Help:      "Total benchmark jobs by terminal status",
			},
			[]string{"status"},
		),

		JobDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: benchSubsystem,
				Name:      "job_duration_seconds",
				Help:      "Wall-clock duration of benchmark jobs",
				Buckets:   []float64{1, 5, 15, 60, 300, 900, 3600},
			},
			[]string{"status"},
		),

		SolveDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: benchSubsystem,
				Name:      "solve_duration_seconds",
				Help:      "Duration of individual solver invocations",
				Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
			},
			[]string{"mode", "status"},
		),

		ActiveJobs: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: benchSubsystem,
				Name:      "active_jobs",
				Help:      "Number of currently running benchmark jobs",
			},
		),

		SolveRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: benchSubsystem,
				Name:      "solve_requests_total",
				Help:      "Total synchronous solve requests by outcome",
			},
			[]string{"status"},
		),

		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: benchSubsystem,
				Name:      "errors_total",
				Help:      "Total request errors by endpoint and error type",
			},
			[]string{"endpoint", "error_code"},
		),
	}
}

// =============================================================================
// Error Codes
// =============================================================================

// ErrorCode represents a categorized error type for metrics.
type ErrorCode string

const (
	// ErrorCodeValidation indicates request validation failure.
	ErrorCodeValidation ErrorCode = "validation"

	// ErrorCodeSolverError indicates a solver backend failure.
	ErrorCodeSolverError ErrorCode = "solver_error"

	// ErrorCodeTimeout indicates the sync solve path gave up waiting.
	ErrorCodeTimeout ErrorCode = "timeout"

	// ErrorCodeNotFound indicates an unknown job id.
	ErrorCodeNotFound ErrorCode = "not_found"

	// ErrorCodeInternal indicates an internal server error.
	ErrorCodeInternal ErrorCode = "internal"
)

// =============================================================================
// Helper Methods
// =============================================================================

// JobStarted increments the active job gauge.
func (m *BenchMetrics) JobStarted() {
	m.ActiveJobs.Inc()
}

// JobFinished records a job's terminal state and duration.
func (m *BenchMetrics) JobFinished(status string, seconds float64) {
	m.ActiveJobs.Dec()
	m.JobsTotal.WithLabelValues(status).Inc()
	m.JobDurationSeconds.WithLabelValues(status).Observe(seconds)
}

// RecordSolve records one solver invocation duration.
func (m *BenchMetrics) RecordSolve(mode string, seconds float64, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.SolveDurationSeconds.WithLabelValues(mode, status).Observe(seconds)
}

// RecordSolveRequest records a synchronous solve request outcome.
func (m *BenchMetrics) RecordSolveRequest(status string) {
	m.SolveRequestsTotal.WithLabelValues(status).Inc()
}

// RecordError records a categorized request error.
func (m *BenchMetrics) RecordError(endpoint string, code ErrorCode) {
	m.ErrorsTotal.WithLabelValues(endpoint, string(code)).Inc()
}
