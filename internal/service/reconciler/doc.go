// Package reconciler keeps device reactive states in step with building arm states.
//
// Engine.Tick detects per-building arm/disarm edges against the StateCache and
// mutes or unmutes the ignore-listed devices. SnapshotManager applies a
// building's schedule on demand, remembering the previous device states so they
// can be restored. AlertChecker raises an alert when a building is disarmed at
// its check time. Loop drives both periodic phases.
//
// Engine, SnapshotManager and manual callers share BuildingLocks, so work on
// one building is never interleaved while different buildings run in parallel.
package reconciler
