// Package metrics provides Prometheus metrics for the velvet admission service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a Manager. Options handed a zero or nil value leave
// the default in place.
type Option func(*Manager)

// WithNamespace overrides the metric namespace.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace == "" {
			return
		}
		m.namespace = namespace
	}
}

// WithSubsystem overrides the metric subsystem.
func WithSubsystem(subsystem string) Option {
	return func(m *Manager) {
		if subsystem == "" {
			return
		}
		m.subsystem = subsystem
	}
}

// WithHistogramBuckets replaces the latency histogram buckets.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) == 0 {
			return
		}
		m.histogramBuckets = buckets
	}
}

// WithMetricsEnabled toggles collection entirely.
func WithMetricsEnabled(enabled bool) Option {
	return func(m *Manager) {
		m.enabled = enabled
	}
}

// WithRefreshInterval sets how often gauge metrics are refreshed.
func WithRefreshInterval(interval time.Duration) Option {
	return func(m *Manager) {
		if interval <= 0 {
			return
		}
		m.refreshInterval = interval
	}
}

// WithCustomLabels attaches constant labels to every metric.
func WithCustomLabels(labels map[string]string) Option {
	return func(m *Manager) {
		if labels == nil {
			return
		}
		m.customLabels = labels
	}
}

// WithMetricPrefix prepends a prefix to every metric name.
func WithMetricPrefix(prefix string) Option {
	return func(m *Manager) {
		if prefix == "" {
			return
		}
		m.metricPrefix = prefix
	}
}

// WithPrometheusRegistry registers the metrics on a caller-supplied
// registry instead of the package one.
func WithPrometheusRegistry(registry prometheus.Registerer) Option {
	return func(m *Manager) {
		if registry == nil {
			return
		}
		m.registry = registry
	}
}
