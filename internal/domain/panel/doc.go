// Package panel contains core domain types for panel-state reconciliation.
//
// It defines buildings and their scheduled check time, the devices ("ProEvents")
// whose reactive flag is reconciled, ignore-list entries, arm states and the
// snapshots used to restore a building's devices. Clone helpers avoid leaking
// internal references between layers.
package panel
