// Package store declares the persistence contracts of panel-sentinel:
// building schedules, the ignore list, pre-schedule snapshots and a small
// key-value area used by the arm-state cache.
//
// Implementations live in the sqlite and memory subpackages.
package store
