// Package cache provides a redis-backed store.KeyValue so several
// panel-sentinel replicas can share one arm-state cache.
package cache
