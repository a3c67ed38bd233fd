// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

// Package metrics exposes Prometheus instrumentation for the migration
// server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "deskmigrate"

// Metrics holds the Prometheus collectors updated during job
// processing.
type Metrics struct {
	registry *prometheus.Registry

	JobsStarted   prometheus.Counter
	JobsSucceeded prometheus.Counter
	JobsFailed    prometheus.Counter

	RecordsMigrated   *prometheus.CounterVec
	ComponentDuration *prometheus.HistogramVec
}

// New creates the collectors on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		JobsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "migration_jobs_started_total",
			Help:      "Total number of migration jobs picked up for processing.",
		}),
		JobsSucceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "migration_jobs_succeeded_total",
			Help:      "Total number of migration jobs that finished successfully.",
		}),
		JobsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "migration_jobs_failed_total",
			Help:      "Total number of migration jobs that failed.",
		}),
		RecordsMigrated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_migrated_total",
			Help:      "Total number of records created on target instances.",
		}, []string{"component"}),
		ComponentDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "component_migration_duration_seconds",
			Help:      "Time spent migrating one component of one job.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"component"}),
	}

	registry.MustRegister(
		m.JobsStarted,
		m.JobsSucceeded,
		m.JobsFailed,
		m.RecordsMigrated,
		m.ComponentDuration,
	)

	return m
}

// Handler returns the HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
