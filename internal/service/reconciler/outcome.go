package reconciler

// ReevaluateOutcome reports what a manual reevaluation did.
type ReevaluateOutcome int

const (
	// OutcomeRejected means the operator panel flag is armed; nothing was read or written.
	OutcomeRejected ReevaluateOutcome = iota
	// OutcomeAlreadyApplied means a snapshot exists, so the schedule is already in force.
	OutcomeAlreadyApplied
	// OutcomeApplied means a snapshot was taken and the schedule written.
	OutcomeApplied
	// OutcomeNoSchedule means the building has no schedule row.
	OutcomeNoSchedule
	// OutcomeNoDevices means the live system has no devices for the building.
	OutcomeNoDevices
)

// String implements fmt.Stringer. The values are used as metric labels and in API answers.
func (o ReevaluateOutcome) String() string {
	switch o {
	case OutcomeRejected:
		return "rejected"
	case OutcomeAlreadyApplied:
		return "already_applied"
	case OutcomeApplied:
		return "applied"
	case OutcomeNoSchedule:
		return "no_schedule"
	case OutcomeNoDevices:
		return "no_devices"
	default:
		return "unknown"
	}
}

// TickReport summarizes one Engine.Tick.
type TickReport struct {
	// Initialized counts buildings seen for the first time.
	Initialized int
	// Unchanged counts buildings whose state matched the cache.
	Unchanged int
	// Transitioned counts applied edges.
	Transitioned int
	// Failed counts buildings skipped because of an error; they are retried next tick.
	Failed int
}
