package panel

import (
	"cmp"
	"slices"
	"time"
)

// Device is a monitored point (a "ProEvent") owned by the live system.
type Device struct {
	ID         DeviceID
	BuildingID BuildingID
	Name       string
	State      ReactiveState
}

// DeviceState is a single (device, reactive state) pair used by bulk writes and snapshots.
type DeviceState struct {
	ID    DeviceID      `json:"id"`
	State ReactiveState `json:"state"`
}

// IgnoreEntry marks a device to be muted while its building is disarmed.
type IgnoreEntry struct {
	// DeviceID is the muted device.
	DeviceID DeviceID
	// BuildingID is the building the device belongs to.
	BuildingID BuildingID
	// IgnoreOnArm is persisted for completeness but never read by reconciliation.
	IgnoreOnArm bool
	// IgnoreOnDisarm selects the device for both the arm and disarm branches.
	IgnoreOnDisarm bool
}

// IgnoreSet returns the ids of the building's devices marked ignore-on-disarm.
func IgnoreSet(entries []IgnoreEntry, building BuildingID) map[DeviceID]struct{} {
	set := make(map[DeviceID]struct{})

	for _, e := range entries {
		if e.BuildingID == building && e.IgnoreOnDisarm {
			set[e.DeviceID] = struct{}{}
		}
	}

	return set
}

// TargetStates builds a bulk-write batch that sets every id in set to state.
// The batch is sorted by id so writes are deterministic.
func TargetStates(set map[DeviceID]struct{}, state ReactiveState) []DeviceState {
	targets := make([]DeviceState, 0, len(set))
	for id := range set {
		targets = append(targets, DeviceState{ID: id, State: state})
	}

	slices.SortFunc(targets, func(a, b DeviceState) int {
		return cmp.Compare(a.ID, b.ID)
	})

	return targets
}

// Snapshot captures a building's device states before a schedule is applied.
type Snapshot struct {
	// BuildingID is the building whose devices were captured.
	BuildingID BuildingID
	// Devices holds the captured states in live-system order.
	Devices []DeviceState
	// TakenAt is when the snapshot was persisted.
	TakenAt time.Time
}

// Clone returns a copy of the snapshot that does not share the device slice.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}

	return &Snapshot{
		BuildingID: s.BuildingID,
		Devices:    slices.Clone(s.Devices),
		TakenAt:    s.TakenAt,
	}
}

// Alert describes a building found disarmed at its scheduled check time.
type Alert struct {
	BuildingID BuildingID `json:"building_id"`
	CheckTime  string     `json:"check_time"`
	ObservedAt time.Time  `json:"observed_at"`
}

// DeviceInfo is a device as listed to operators.
type DeviceInfo struct {
	Device

	// IsIgnored reports whether the device is on the ignore-on-disarm list.
	IsIgnored bool
}
