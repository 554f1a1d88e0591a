package reconciler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/oshokin/panel-sentinel/internal/domain/panel"
	"github.com/oshokin/panel-sentinel/internal/logger"
	"github.com/oshokin/panel-sentinel/internal/repository/store"
)

func scheduleBuilding(t *testing.T, f *fixture, building panel.BuildingID) {
	t.Helper()

	require.NoError(t, f.store.SetBuildingSchedule(context.Background(), panel.Schedule{
		BuildingID: building,
		CheckTime:  panel.DefaultCheckTime,
	}))
}

// TestEvaluate_SnapshotExactlyOnce applies the schedule on the first call only.
func TestEvaluate_SnapshotExactlyOnce(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	scheduleBuilding(t, f, 1)
	f.seedDevices(1, 3, 102)
	f.ignore(t, 1, 101)

	outcome, err := f.snapshots.EvaluateBuildingState(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, outcome)

	outcome, err = f.snapshots.EvaluateBuildingState(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, OutcomeAlreadyApplied, outcome)

	require.Equal(t, [][]panel.DeviceState{{
		{ID: 101, State: panel.NonReactive},
		{ID: 102, State: panel.Reactive},
		{ID: 103, State: panel.Reactive},
	}}, f.gateway.writes)

	snapshot, err := f.store.GetSnapshot(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []panel.DeviceState{
		{ID: 101, State: panel.Reactive},
		{ID: 102, State: panel.NonReactive},
		{ID: 103, State: panel.Reactive},
	}, snapshot.Devices)
}

// TestRevert_Fidelity restores exactly the pre-schedule states and drops the snapshot.
func TestRevert_Fidelity(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	scheduleBuilding(t, f, 1)
	f.seedDevices(1, 4, 102, 104)
	f.ignore(t, 1, 101, 103)

	before := f.gateway.deviceStates(1)

	_, err := f.snapshots.EvaluateBuildingState(ctx, 1)
	require.NoError(t, err)
	require.NotEqual(t, before, f.gateway.deviceStates(1))

	restored, err := f.snapshots.RevertBuilding(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 4, restored)
	require.Equal(t, before, f.gateway.deviceStates(1))

	_, err = f.store.GetSnapshot(ctx, 1)
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = f.snapshots.RevertBuilding(ctx, 1)
	require.ErrorIs(t, err, ErrNoSnapshot)
}

// TestRevert_FailureKeepsSnapshot allows the revert to be retried.
func TestRevert_FailureKeepsSnapshot(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	scheduleBuilding(t, f, 1)
	f.seedDevices(1, 2)

	_, err := f.snapshots.EvaluateBuildingState(ctx, 1)
	require.NoError(t, err)

	errWrite := errors.New("connection reset")
	f.gateway.writeErrs = []error{errWrite}

	_, err = f.snapshots.RevertBuilding(ctx, 1)
	require.ErrorIs(t, err, errWrite)

	_, err = f.store.GetSnapshot(ctx, 1)
	require.NoError(t, err)

	_, err = f.snapshots.RevertBuilding(ctx, 1)
	require.NoError(t, err)
}

// TestApply_FailureDropsSnapshot keeps "snapshot exists" meaning "schedule applied".
func TestApply_FailureDropsSnapshot(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	scheduleBuilding(t, f, 1)
	f.seedDevices(1, 2)

	errWrite := errors.New("timeout")
	f.gateway.writeErrs = []error{errWrite}

	_, err := f.snapshots.EvaluateBuildingState(ctx, 1)
	require.ErrorIs(t, err, errWrite)

	_, err = f.store.GetSnapshot(ctx, 1)
	require.ErrorIs(t, err, store.ErrNotFound)

	outcome, err := f.snapshots.EvaluateBuildingState(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, outcome)
}

// TestEvaluate_NoScheduleOrDevices does nothing in either case.
func TestEvaluate_NoScheduleOrDevices(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.seedDevices(1, 2)

	outcome, err := f.snapshots.EvaluateBuildingState(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, OutcomeNoSchedule, outcome)

	scheduleBuilding(t, f, 2)

	outcome, err = f.snapshots.TakeSnapshotAndApplySchedule(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, OutcomeNoDevices, outcome)

	_, err = f.store.GetSnapshot(ctx, 2)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.Zero(t, f.gateway.writeCount())
}

// TestRevertSnapshot_WritesGivenPairs writes exactly what the caller passes.
func TestRevertSnapshot_WritesGivenPairs(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	pairs := []panel.DeviceState{{ID: 5, State: panel.NonReactive}, {ID: 2, State: panel.Reactive}}
	f.gateway.addDevices(3, 2, 5)

	require.NoError(t, f.store.SaveSnapshot(ctx, &panel.Snapshot{BuildingID: 3, Devices: pairs}))
	require.NoError(t, f.snapshots.RevertSnapshot(ctx, 3, pairs))
	require.Equal(t, [][]panel.DeviceState{pairs}, f.gateway.writes)

	_, err := f.store.GetSnapshot(ctx, 3)
	require.ErrorIs(t, err, store.ErrNotFound)
}

// TestEvaluate_IgnoreEntriesOutsideBuilding only touches the building's own devices
// and counts only them in the log.
func TestEvaluate_IgnoreEntriesOutsideBuilding(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := logger.ToContext(context.Background(), zap.New(core).Sugar())
	scheduleBuilding(t, f, 1)
	f.seedDevices(1, 2)
	f.ignore(t, 1, 102)

	// Device 999 no longer exists in the live system.
	require.NoError(t, f.store.SetIgnore(ctx, panel.IgnoreEntry{DeviceID: 999, BuildingID: 1, IgnoreOnDisarm: true}))

	outcome, err := f.snapshots.EvaluateBuildingState(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, outcome)
	require.Equal(t, [][]panel.DeviceState{{
		{ID: 101, State: panel.Reactive},
		{ID: 102, State: panel.NonReactive},
	}}, f.gateway.writes)

	applied := logs.FilterMessage("Snapshot taken and schedule applied").All()
	require.Len(t, applied, 1)
	require.Equal(t, int64(1), applied[0].ContextMap()["non_reactive"])
	require.Equal(t, int64(1), applied[0].ContextMap()["reactive"])
}
