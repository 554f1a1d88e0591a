// Package metrics defines the Prometheus counters of panel-sentinel.
package metrics
