package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oshokin/panel-sentinel/internal/domain/panel"
	"github.com/oshokin/panel-sentinel/internal/logger"
	"github.com/oshokin/panel-sentinel/internal/metrics"
	"github.com/oshokin/panel-sentinel/internal/repository/store"
)

// SnapshotManager applies building schedules and restores the states they replaced.
//
// A stored snapshot means "the schedule is in force": it is written before the
// schedule and removed again if the schedule could not be written.
type SnapshotManager struct {
	store   SnapshotStore
	gateway Gateway
	locks   *BuildingLocks
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewSnapshotManager creates a manager. m may be nil.
func NewSnapshotManager(st SnapshotStore, gateway Gateway, locks *BuildingLocks, m *metrics.Metrics) *SnapshotManager {
	return &SnapshotManager{
		store:   st,
		gateway: gateway,
		locks:   locks,
		metrics: m,
		now:     time.Now,
	}
}

// EvaluateBuildingState applies the building's schedule unless it has none or it is already applied.
func (m *SnapshotManager) EvaluateBuildingState(ctx context.Context, building panel.BuildingID) (ReevaluateOutcome, error) {
	unlock := m.locks.Lock(building)
	defer unlock()

	ctx = logger.WithKV(ctx, "building_id", building)

	if _, err := m.store.GetBuildingSchedule(ctx, building); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			logger.Info(ctx, "Building has no schedule, nothing to evaluate")

			return OutcomeNoSchedule, nil
		}

		return OutcomeNoSchedule, fmt.Errorf("load schedule: %w", err)
	}

	_, err := m.store.GetSnapshot(ctx, building)
	switch {
	case err == nil:
		logger.Info(ctx, "Snapshot exists, maintaining scheduled state")

		return OutcomeAlreadyApplied, nil
	case !errors.Is(err, store.ErrNotFound):
		return OutcomeNoSchedule, fmt.Errorf("load snapshot: %w", err)
	}

	return m.takeSnapshotAndApply(ctx, building)
}

// TakeSnapshotAndApplySchedule records the current device states and writes the schedule:
// ignore-listed devices become non-reactive, the rest reactive.
func (m *SnapshotManager) TakeSnapshotAndApplySchedule(
	ctx context.Context,
	building panel.BuildingID,
) (ReevaluateOutcome, error) {
	unlock := m.locks.Lock(building)
	defer unlock()

	return m.takeSnapshotAndApply(logger.WithKV(ctx, "building_id", building), building)
}

// RevertSnapshot writes exactly the given pairs and then forgets the building's snapshot.
// When the write fails the snapshot is kept so the revert can be retried.
func (m *SnapshotManager) RevertSnapshot(
	ctx context.Context,
	building panel.BuildingID,
	states []panel.DeviceState,
) error {
	unlock := m.locks.Lock(building)
	defer unlock()

	return m.revert(logger.WithKV(ctx, "building_id", building), building, states)
}

// RevertBuilding restores the building from its stored snapshot and returns the number of devices written.
func (m *SnapshotManager) RevertBuilding(ctx context.Context, building panel.BuildingID) (int, error) {
	unlock := m.locks.Lock(building)
	defer unlock()

	ctx = logger.WithKV(ctx, "building_id", building)

	snapshot, err := m.store.GetSnapshot(ctx, building)
	if errors.Is(err, store.ErrNotFound) {
		return 0, ErrNoSnapshot
	}

	if err != nil {
		return 0, fmt.Errorf("load snapshot: %w", err)
	}

	if err := m.revert(ctx, building, snapshot.Devices); err != nil {
		return 0, err
	}

	return len(snapshot.Devices), nil
}

func (m *SnapshotManager) takeSnapshotAndApply(ctx context.Context, building panel.BuildingID) (ReevaluateOutcome, error) {
	devices, err := m.gateway.Devices(ctx, building)
	if err != nil {
		return OutcomeNoDevices, fmt.Errorf("read devices: %w", err)
	}

	if len(devices) == 0 {
		logger.Warn(ctx, "No devices found in the live system to snapshot")

		return OutcomeNoDevices, nil
	}

	snapshot := &panel.Snapshot{
		BuildingID: building,
		Devices:    make([]panel.DeviceState, 0, len(devices)),
		TakenAt:    m.now().UTC(),
	}

	for _, d := range devices {
		snapshot.Devices = append(snapshot.Devices, panel.DeviceState{ID: d.ID, State: d.State})
	}

	if err := m.store.SaveSnapshot(ctx, snapshot); err != nil {
		if errors.Is(err, store.ErrSnapshotExists) {
			return OutcomeAlreadyApplied, nil
		}

		return OutcomeNoSchedule, fmt.Errorf("save snapshot: %w", err)
	}

	entries, err := m.store.ListIgnoreEntries(ctx)
	if err != nil {
		return OutcomeNoSchedule, m.undoSnapshot(ctx, building, fmt.Errorf("load ignore list: %w", err))
	}

	ignored := panel.IgnoreSet(entries, building)
	targets := make([]panel.DeviceState, 0, len(snapshot.Devices))
	nonReactive := 0

	for _, d := range snapshot.Devices {
		state := panel.Reactive
		if _, ok := ignored[d.ID]; ok {
			state = panel.NonReactive
			nonReactive++
		}

		targets = append(targets, panel.DeviceState{ID: d.ID, State: state})
	}

	err = m.gateway.SetReactiveBulk(ctx, building, targets)
	m.metrics.BulkWrite(err)

	if err != nil {
		return OutcomeNoSchedule, m.undoSnapshot(ctx, building, fmt.Errorf("apply schedule: %w", err))
	}

	logger.InfoKV(ctx, "Snapshot taken and schedule applied",
		"non_reactive", nonReactive,
		"reactive", len(targets)-nonReactive,
	)

	return OutcomeApplied, nil
}

// undoSnapshot removes a snapshot whose schedule was not written and returns cause joined with any cleanup error.
func (m *SnapshotManager) undoSnapshot(ctx context.Context, building panel.BuildingID, cause error) error {
	logger.ErrorKV(ctx, "Schedule not applied, dropping snapshot", "error", cause)

	if err := m.store.ClearSnapshot(ctx, building); err != nil {
		return errors.Join(cause, fmt.Errorf("clear snapshot: %w", err))
	}

	return cause
}

func (m *SnapshotManager) revert(ctx context.Context, building panel.BuildingID, states []panel.DeviceState) error {
	logger.InfoKV(ctx, "Reverting devices to snapshot states", "devices", len(states))

	err := m.gateway.SetReactiveBulk(ctx, building, states)
	m.metrics.BulkWrite(err)

	if err != nil {
		return fmt.Errorf("restore device states: %w", err)
	}

	if err := m.store.ClearSnapshot(ctx, building); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}

	return nil
}
