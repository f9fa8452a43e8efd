// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics and optional metric
// export for the bridge service.
//
// # Description
//
// Metrics cover the pipeline (stage latency, cache lookups, mitigation
// outcomes, collaborator failures) and the HTTP surface (request
// counters and latency). They are exposed on /metrics; use with
// Prometheus + Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal
// locking.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics
const metricsNamespace = "connector"

// Subsystem names
const (
	pipelineSubsystem = "pipeline"
	httpSubsystem     = "http"
)

// BridgeMetrics holds all Prometheus metrics for the bridge service.
//
// # Fields
//
//   - QueriesTotal: Counter of pipeline queries by cache outcome
//   - StageDurationSeconds: Histogram of per-stage latency
//   - MitigationsTotal: Counter of mitigation loops by outcome
//   - CollaboratorFailuresTotal: Counter of stage failures by collaborator
//   - RequestsTotal: Counter of HTTP requests by route and status
//   - RequestDurationSeconds: Histogram of HTTP request latency by route
type BridgeMetrics struct {
	// QueriesTotal counts pipeline queries. Labels: cache (hit, miss)
	QueriesTotal *prometheus.CounterVec

	// StageDurationSeconds measures per-stage latency.
	// Labels: stage (context, connection, narrative, review, mitigation)
	StageDurationSeconds *prometheus.HistogramVec

	// MitigationsTotal counts mitigation loops.
	// Labels: outcome (resolved, exhausted)
	MitigationsTotal *prometheus.CounterVec

	// CollaboratorFailuresTotal counts collaborator failures.
	// Labels: collaborator (connection, explanation, bias, review, persistence)
	CollaboratorFailuresTotal *prometheus.CounterVec

	// RequestsTotal counts HTTP requests. Labels: route, status
	RequestsTotal *prometheus.CounterVec

	// RequestDurationSeconds measures HTTP latency. Labels: route
	RequestDurationSeconds *prometheus.HistogramVec
}

// DefaultMetrics is the singleton instance, set by InitMetrics. Record
// helpers are no-ops while it is nil, so unit tests need no registry.
var DefaultMetrics *BridgeMetrics

// InitMetrics creates and registers all metrics against the default
// Prometheus registry. Call once at startup; a second call panics on
// duplicate registration.
func InitMetrics() *BridgeMetrics {
	DefaultMetrics = &BridgeMetrics{
		QueriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "queries_total",
				Help:      "Total pipeline queries by cache outcome",
			},
			[]string{"cache"},
		),

		StageDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "stage_duration_seconds",
				Help:      "Pipeline stage latency in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"stage"},
		),

		MitigationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "mitigations_total",
				Help:      "Total mitigation loops by outcome",
			},
			[]string{"outcome"},
		),

		CollaboratorFailuresTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "collaborator_failures_total",
				Help:      "Total collaborator failures by stage",
			},
			[]string{"collaborator"},
		),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: httpSubsystem,
				Name:      "requests_total",
				Help:      "Total HTTP requests by route and status",
			},
			[]string{"route", "status"},
		),

		RequestDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: httpSubsystem,
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   []float64{0.005, 0.025, 0.1, 0.5, 1, 5, 15, 60},
			},
			[]string{"route"},
		),
	}
	return DefaultMetrics
}

// =============================================================================
// Record Helpers
// =============================================================================

// RecordCacheLookup counts one cache lookup.
func RecordCacheLookup(hit bool) {
	if DefaultMetrics == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	DefaultMetrics.QueriesTotal.WithLabelValues(outcome).Inc()
}

// RecordStageDuration observes one pipeline stage duration.
func RecordStageDuration(stage string, d time.Duration) {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.StageDurationSeconds.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordMitigation counts one completed mitigation loop.
func RecordMitigation(resolved bool) {
	if DefaultMetrics == nil {
		return
	}
	outcome := "exhausted"
	if resolved {
		outcome = "resolved"
	}
	DefaultMetrics.MitigationsTotal.WithLabelValues(outcome).Inc()
}

// RecordCollaboratorFailure counts one collaborator failure.
func RecordCollaboratorFailure(collaborator string) {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.CollaboratorFailuresTotal.WithLabelValues(collaborator).Inc()
}

// RecordRequest records one HTTP request with its latency.
func RecordRequest(route, status string, d time.Duration) {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.RequestsTotal.WithLabelValues(route, status).Inc()
	DefaultMetrics.RequestDurationSeconds.WithLabelValues(route).Observe(d.Seconds())
}
