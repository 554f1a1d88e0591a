package reconciler

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/oshokin/panel-sentinel/internal/domain/panel"
	"github.com/oshokin/panel-sentinel/internal/logger"
	"github.com/oshokin/panel-sentinel/internal/metrics"
	"github.com/oshokin/panel-sentinel/internal/repository/store"
)

// buildingResult is what one building contributed to a tick.
type buildingResult int

const (
	resultInitialized buildingResult = iota
	resultUnchanged
	resultTransitioned
)

// Engine detects arm-state edges and applies them to ignore-listed devices.
type Engine struct {
	cache     *StateCache
	ignores   store.Ignores
	gateway   Gateway
	snapshots *SnapshotManager
	locks     *BuildingLocks
	metrics   *metrics.Metrics
}

// NewEngine wires an engine. locks must be the table shared with snapshots. m may be nil.
func NewEngine(
	cache *StateCache,
	ignores store.Ignores,
	gateway Gateway,
	snapshots *SnapshotManager,
	locks *BuildingLocks,
	m *metrics.Metrics,
) *Engine {
	return &Engine{
		cache:     cache,
		ignores:   ignores,
		gateway:   gateway,
		snapshots: snapshots,
		locks:     locks,
		metrics:   m,
	}
}

// Tick reconciles every building in live, in ascending id order.
// A building that fails keeps its cached state and is retried on the next tick.
func (e *Engine) Tick(ctx context.Context, live map[panel.BuildingID]bool) TickReport {
	var report TickReport

	for _, id := range slices.Sorted(maps.Keys(live)) {
		buildingCtx := logger.WithKV(ctx, "building_id", id)

		result, err := e.reconcileBuilding(buildingCtx, id, panel.ArmStateOf(live[id]))
		if err != nil {
			logger.ErrorKV(buildingCtx, "Building reconciliation failed", "phase", "reconcile", "error", err)

			report.Failed++

			continue
		}

		switch result {
		case resultInitialized:
			report.Initialized++
		case resultUnchanged:
			report.Unchanged++
		case resultTransitioned:
			report.Transitioned++
		}
	}

	return report
}

// Reevaluate applies the building's schedule now, unless the operator panel flag is armed.
func (e *Engine) Reevaluate(
	ctx context.Context,
	building panel.BuildingID,
	actor *panel.Actor,
) (ReevaluateOutcome, error) {
	ctx = logger.WithFields(ctx, "building_id", building, "actor", actor.String())

	isArmed, err := e.cache.GlobalFlag(ctx)
	if err != nil {
		return OutcomeRejected, err
	}

	if isArmed {
		logger.Warn(ctx, "Manual re-evaluation skipped: panel is armed")
		e.metrics.Reevaluated(OutcomeRejected.String())

		return OutcomeRejected, nil
	}

	logger.Info(ctx, "Manual re-evaluation triggered")

	outcome, err := e.snapshots.EvaluateBuildingState(ctx, building)
	if err != nil {
		e.metrics.Reevaluated("error")

		return outcome, err
	}

	e.metrics.Reevaluated(outcome.String())

	return outcome, nil
}

func (e *Engine) reconcileBuilding(
	ctx context.Context,
	building panel.BuildingID,
	current panel.ArmState,
) (buildingResult, error) {
	unlock := e.locks.Lock(building)
	defer unlock()

	cached, err := e.cache.Get(ctx, building)
	if err != nil {
		return resultUnchanged, err
	}

	// First sighting: remember the state, touch nothing.
	if !cached.IsKnown() {
		if err := e.cache.Set(ctx, building, current); err != nil {
			return resultUnchanged, err
		}

		logger.DebugKV(ctx, "Building state initialized", "state", current)

		return resultInitialized, nil
	}

	if cached == current {
		return resultUnchanged, nil
	}

	logger.InfoKV(ctx, "Panel state changed", "from", cached, "to", current)

	entries, err := e.ignores.ListIgnoreEntries(ctx)
	if err != nil {
		return resultUnchanged, fmt.Errorf("load ignore list: %w", err)
	}

	target := panel.Reactive
	if current == panel.ArmStateDisarmed {
		target = panel.NonReactive
	}

	ignored := panel.IgnoreSet(entries, building)
	if len(ignored) == 0 {
		logger.InfoKV(ctx, "No ignored devices to change", "state", current)
	} else if err := e.applyToIgnored(ctx, building, ignored, target); err != nil {
		// The cache keeps the old state so the edge is seen again next tick.
		return resultUnchanged, err
	}

	if err := e.cache.Set(ctx, building, current); err != nil {
		return resultUnchanged, err
	}

	e.metrics.Transitioned(current.String())

	return resultTransitioned, nil
}

// applyToIgnored writes target to the ignore-listed devices the building still has.
// Entries naming devices that are gone, or that belong to another building, are skipped.
func (e *Engine) applyToIgnored(
	ctx context.Context,
	building panel.BuildingID,
	ignored map[panel.DeviceID]struct{},
	target panel.ReactiveState,
) error {
	devices, err := e.gateway.Devices(ctx, building)
	if err != nil {
		return fmt.Errorf("read devices: %w", err)
	}

	present := make(map[panel.DeviceID]struct{}, len(ignored))

	for _, d := range devices {
		if _, ok := ignored[d.ID]; ok {
			present[d.ID] = struct{}{}
		}
	}

	if missing := len(ignored) - len(present); missing > 0 {
		logger.WarnKV(ctx, "Ignore list names devices the building does not have", "missing", missing)
	}

	batch := panel.TargetStates(present, target)
	if len(batch) == 0 {
		return nil
	}

	err = e.gateway.SetReactiveBulk(ctx, building, batch)
	e.metrics.BulkWrite(err)

	if err != nil {
		return fmt.Errorf("set %d ignored devices %s: %w", len(batch), target, err)
	}

	logger.InfoKV(ctx, "Ignored devices updated", "devices", len(batch), "state", target)

	return nil
}
