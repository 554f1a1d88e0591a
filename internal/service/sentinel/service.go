package sentinel

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/panel-sentinel/internal/domain/panel"
	"github.com/oshokin/panel-sentinel/internal/logger"
	"github.com/oshokin/panel-sentinel/internal/repository/store"
	"github.com/oshokin/panel-sentinel/internal/service/reconciler"
)

// service implements the operator operations on top of the store, the live system and the engine.
// It is unexported to keep the transport decoupled from the implementation.
type service struct {
	store     store.Store
	cache     *reconciler.StateCache
	engine    *reconciler.Engine
	snapshots *reconciler.SnapshotManager
	directory Directory
}

func newService(
	st store.Store,
	cache *reconciler.StateCache,
	engine *reconciler.Engine,
	snapshots *reconciler.SnapshotManager,
	dir Directory,
) *service {
	return &service{
		store:     st,
		cache:     cache,
		engine:    engine,
		snapshots: snapshots,
		directory: dir,
	}
}

// Reevaluate applies the building's schedule now unless the panel flag is armed.
func (s *service) Reevaluate(
	ctx context.Context,
	actor *panel.Actor,
	building panel.BuildingID,
) (reconciler.ReevaluateOutcome, error) {
	return s.engine.Reevaluate(ctx, building, actor)
}

// GetPanelStatus returns the operator panel flag. An unset flag is stored as armed.
func (s *service) GetPanelStatus(ctx context.Context) (bool, error) {
	isArmed, err := s.cache.GlobalFlag(ctx)
	if err != nil {
		return false, err
	}

	if err := s.cache.SetGlobalFlag(ctx, isArmed); err != nil {
		return false, err
	}

	logger.DebugKV(ctx, "Panel status requested", "is_armed", isArmed)

	return isArmed, nil
}

// SetPanelStatus stores the operator panel flag.
func (s *service) SetPanelStatus(ctx context.Context, actor *panel.Actor, isArmed bool) (bool, error) {
	if err := s.cache.SetGlobalFlag(ctx, isArmed); err != nil {
		return false, err
	}

	logger.InfoKV(ctx, "Panel status updated", "is_armed", isArmed, "actor", actor.String())

	return isArmed, nil
}

// GetBuildingTime returns the stored schedule of the building, nil when there is none.
func (s *service) GetBuildingTime(ctx context.Context, building panel.BuildingID) (*panel.Schedule, error) {
	schedule, err := s.store.GetBuildingSchedule(ctx, building)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil //nolint:nilnil // No schedule is a valid answer.
	}

	if err != nil {
		return nil, fmt.Errorf("load schedule of building %d: %w", building, err)
	}

	return &schedule, nil
}

// SetBuildingTime stores the check time of a building.
func (s *service) SetBuildingTime(ctx context.Context, actor *panel.Actor, schedule panel.Schedule) error {
	if err := s.store.SetBuildingSchedule(ctx, schedule); err != nil {
		return fmt.Errorf("save schedule of building %d: %w", schedule.BuildingID, err)
	}

	logger.InfoKV(ctx, "Building schedule updated",
		"building_id", schedule.BuildingID,
		"check_time", schedule.CheckTime.String(),
		"actor", actor.String(),
	)

	return nil
}

// SetIgnored saves the ignore-on-disarm flag of every entry and returns how many were saved.
// Entries are saved one by one; on failure the ones before it stay saved.
func (s *service) SetIgnored(ctx context.Context, actor *panel.Actor, entries []panel.IgnoreEntry) (int, error) {
	for i, e := range entries {
		e.IgnoreOnArm = false

		if err := s.store.SetIgnore(ctx, e); err != nil {
			return i, fmt.Errorf("save ignore flag of device %d: %w", e.DeviceID, err)
		}
	}

	logger.InfoKV(ctx, "Ignore list updated", "entries", len(entries), "actor", actor.String())

	return len(entries), nil
}

// RevertSnapshot restores a building from its snapshot and returns the number of devices written.
func (s *service) RevertSnapshot(ctx context.Context, actor *panel.Actor, building panel.BuildingID) (int, error) {
	ctx = logger.WithFields(ctx, "building_id", building, "actor", actor.String())

	restored, err := s.snapshots.RevertBuilding(ctx, building)
	if err != nil {
		return 0, err
	}

	logger.InfoKV(ctx, "Snapshot reverted by operator", "devices", restored)

	return restored, nil
}

// ListBuildings returns the live buildings with their check times, the default one when unset.
func (s *service) ListBuildings(ctx context.Context) ([]panel.Building, error) {
	buildings, err := s.directory.ListBuildings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list live buildings: %w", err)
	}

	schedules, err := s.store.ListBuildingSchedules(ctx)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}

	checkTimes := make(map[panel.BuildingID]panel.CheckTime, len(schedules))
	for _, sc := range schedules {
		checkTimes[sc.BuildingID] = sc.CheckTime
	}

	for i := range buildings {
		checkTime, ok := checkTimes[buildings[i].ID]
		if !ok {
			checkTime = panel.DefaultCheckTime
		}

		buildings[i].CheckTime = checkTime
	}

	logger.DebugKV(ctx, "Buildings listed", "buildings", len(buildings), "schedules", len(schedules))

	return buildings, nil
}

// ListDevices pages through the building's devices and marks the ignored ones.
func (s *service) ListDevices(
	ctx context.Context,
	building panel.BuildingID,
	search string,
	limit, offset int,
) ([]panel.DeviceInfo, error) {
	devices, err := s.directory.SearchDevices(ctx, building, search, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("search devices: %w", err)
	}

	entries, err := s.store.ListIgnoreEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ignore entries: %w", err)
	}

	ignored := panel.IgnoreSet(entries, building)
	result := make([]panel.DeviceInfo, 0, len(devices))

	for _, d := range devices {
		_, isIgnored := ignored[d.ID]
		result = append(result, panel.DeviceInfo{Device: d, IsIgnored: isIgnored})
	}

	return result, nil
}
