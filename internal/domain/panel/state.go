package panel

import "fmt"

// BuildingID identifies a building in the live system.
type BuildingID int64

// DeviceID identifies a device (ProEvent) in the live system.
type DeviceID int64

// ArmState is the last known arm state of a building's panel.
type ArmState int

const (
	// ArmStateUnknown means the panel was never observed.
	ArmStateUnknown ArmState = iota
	// ArmStateArmed means the panel is armed.
	ArmStateArmed
	// ArmStateDisarmed means the panel is disarmed.
	ArmStateDisarmed
)

// ArmStateOf converts a live armed flag into an ArmState.
func ArmStateOf(isArmed bool) ArmState {
	if isArmed {
		return ArmStateArmed
	}

	return ArmStateDisarmed
}

// IsKnown reports whether the state is a definite armed or disarmed value.
func (s ArmState) IsKnown() bool {
	return s == ArmStateArmed || s == ArmStateDisarmed
}

// String implements fmt.Stringer.
func (s ArmState) String() string {
	switch s {
	case ArmStateArmed:
		return "armed"
	case ArmStateDisarmed:
		return "disarmed"
	default:
		return "unknown"
	}
}

// ReactiveState tells whether a device can fire alerts.
type ReactiveState int

const (
	// Reactive devices can fire alerts.
	Reactive ReactiveState = iota
	// NonReactive devices are muted.
	NonReactive
)

// Code returns the live-system encoding of the state: 0 for reactive, 1 for non-reactive.
func (s ReactiveState) Code() int {
	if s == NonReactive {
		return 1
	}

	return 0
}

// String implements fmt.Stringer.
func (s ReactiveState) String() string {
	if s == NonReactive {
		return "non-reactive"
	}

	return "reactive"
}

// ReactiveStateFromCode decodes the live-system encoding.
func ReactiveStateFromCode(code int) (ReactiveState, error) {
	switch code {
	case 0:
		return Reactive, nil
	case 1:
		return NonReactive, nil
	default:
		return Reactive, fmt.Errorf("unknown reactive state code %d", code)
	}
}

// Actor identifies who performed a manual action.
type Actor struct {
	// Hostname is the machine name where the action was performed.
	Hostname string
	// Username is the system user who triggered the action.
	Username string
}

// Clone returns a deep copy of the actor.
func (a *Actor) Clone() *Actor {
	if a == nil {
		return nil
	}

	cloned := *a

	return &cloned
}

// String implements fmt.Stringer.
func (a *Actor) String() string {
	if a == nil {
		return "unknown"
	}

	return a.Username + "@" + a.Hostname
}
