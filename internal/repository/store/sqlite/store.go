package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	dbpkg "github.com/oshokin/panel-sentinel/internal/db"
	"github.com/oshokin/panel-sentinel/internal/domain/panel"
	"github.com/oshokin/panel-sentinel/internal/repository/store"
)

// Store is the sqlite-backed store.Store.
type Store struct {
	db     *sql.DB
	writer *dbpkg.Worker
	now    func() time.Time
}

var _ store.Store = (*Store)(nil)

// New returns a store reading from db and writing through writer.
func New(db *sql.DB, writer *dbpkg.Worker) *Store {
	return &Store{
		db:     db,
		writer: writer,
		now:    time.Now,
	}
}

// GetBuildingSchedule implements store.Schedules.
func (s *Store) GetBuildingSchedule(ctx context.Context, id panel.BuildingID) (panel.Schedule, error) {
	var raw string

	err := s.db.QueryRowContext(ctx,
		"SELECT start_time FROM building_schedules WHERE building_id = ?;", int64(id),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return panel.Schedule{}, store.ErrNotFound
	}

	if err != nil {
		return panel.Schedule{}, fmt.Errorf("get schedule of building %d: %w", id, err)
	}

	checkTime, err := panel.ParseCheckTime(raw)
	if err != nil {
		return panel.Schedule{}, fmt.Errorf("building %d: %w", id, err)
	}

	return panel.Schedule{BuildingID: id, CheckTime: checkTime}, nil
}

// ListBuildingSchedules implements store.Schedules.
func (s *Store) ListBuildingSchedules(ctx context.Context) ([]panel.Schedule, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT building_id, start_time FROM building_schedules ORDER BY building_id;")
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}

	defer rows.Close()

	var schedules []panel.Schedule

	for rows.Next() {
		var (
			id  int64
			raw string
		)

		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}

		checkTime, err := panel.ParseCheckTime(raw)
		if err != nil {
			return nil, fmt.Errorf("building %d: %w", id, err)
		}

		schedules = append(schedules, panel.Schedule{BuildingID: panel.BuildingID(id), CheckTime: checkTime})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedules: %w", err)
	}

	return schedules, nil
}

// SetBuildingSchedule implements store.Schedules.
func (s *Store) SetBuildingSchedule(ctx context.Context, schedule panel.Schedule) error {
	ms := s.now().UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO building_schedules(building_id, start_time, updated_at_ms)
VALUES (?, ?, ?)
ON CONFLICT(building_id) DO UPDATE SET
  start_time    = excluded.start_time,
  updated_at_ms = excluded.updated_at_ms;
`, int64(schedule.BuildingID), schedule.CheckTime.String(), ms); err != nil {
			return fmt.Errorf("set schedule of building %d: %w", schedule.BuildingID, err)
		}

		return nil
	})
}

// ListIgnoreEntries implements store.Ignores.
func (s *Store) ListIgnoreEntries(ctx context.Context) ([]panel.IgnoreEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT device_id, building_id, ignore_on_arm, ignore_on_disarm
FROM ignored_proevents
ORDER BY building_id, device_id;
`)
	if err != nil {
		return nil, fmt.Errorf("list ignore entries: %w", err)
	}

	defer rows.Close()

	var entries []panel.IgnoreEntry

	for rows.Next() {
		var (
			device, building int64
			onArm, onDisarm  bool
		)

		if err := rows.Scan(&device, &building, &onArm, &onDisarm); err != nil {
			return nil, fmt.Errorf("scan ignore entry: %w", err)
		}

		entries = append(entries, panel.IgnoreEntry{
			DeviceID:       panel.DeviceID(device),
			BuildingID:     panel.BuildingID(building),
			IgnoreOnArm:    onArm,
			IgnoreOnDisarm: onDisarm,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ignore entries: %w", err)
	}

	return entries, nil
}

// SetIgnore implements store.Ignores.
func (s *Store) SetIgnore(ctx context.Context, entry panel.IgnoreEntry) error {
	ms := s.now().UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO ignored_proevents(device_id, building_id, ignore_on_arm, ignore_on_disarm, updated_at_ms)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(device_id, building_id) DO UPDATE SET
  ignore_on_arm    = excluded.ignore_on_arm,
  ignore_on_disarm = excluded.ignore_on_disarm,
  updated_at_ms    = excluded.updated_at_ms;
`, int64(entry.DeviceID), int64(entry.BuildingID), entry.IgnoreOnArm, entry.IgnoreOnDisarm, ms); err != nil {
			return fmt.Errorf("set ignore entry %d/%d: %w", entry.BuildingID, entry.DeviceID, err)
		}

		return nil
	})
}

// GetSnapshot implements store.Snapshots.
func (s *Store) GetSnapshot(ctx context.Context, building panel.BuildingID) (*panel.Snapshot, error) {
	var (
		data    string
		takenAt int64
	)

	err := s.db.QueryRowContext(ctx,
		"SELECT devices, taken_at_ms FROM snapshots WHERE building_id = ?;", int64(building),
	).Scan(&data, &takenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("get snapshot of building %d: %w", building, err)
	}

	var devices []panel.DeviceState
	if err := json.Unmarshal([]byte(data), &devices); err != nil {
		return nil, fmt.Errorf("decode snapshot of building %d: %w", building, err)
	}

	return &panel.Snapshot{
		BuildingID: building,
		Devices:    devices,
		TakenAt:    time.UnixMilli(takenAt).UTC(),
	}, nil
}

// SaveSnapshot implements store.Snapshots.
func (s *Store) SaveSnapshot(ctx context.Context, snapshot *panel.Snapshot) error {
	data, err := json.Marshal(snapshot.Devices)
	if err != nil {
		return fmt.Errorf("encode snapshot of building %d: %w", snapshot.BuildingID, err)
	}

	takenAt := snapshot.TakenAt
	if takenAt.IsZero() {
		takenAt = s.now()
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var exists int

		err := tx.QueryRowContext(ctx,
			"SELECT 1 FROM snapshots WHERE building_id = ?;", int64(snapshot.BuildingID),
		).Scan(&exists)

		switch {
		case err == nil:
			return store.ErrSnapshotExists
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("check snapshot of building %d: %w", snapshot.BuildingID, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO snapshots(building_id, devices, taken_at_ms) VALUES (?, ?, ?);",
			int64(snapshot.BuildingID), string(data), takenAt.UTC().UnixMilli(),
		); err != nil {
			return fmt.Errorf("save snapshot of building %d: %w", snapshot.BuildingID, err)
		}

		return nil
	})
}

// ClearSnapshot implements store.Snapshots.
func (s *Store) ClearSnapshot(ctx context.Context, building panel.BuildingID) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM snapshots WHERE building_id = ?;", int64(building),
		); err != nil {
			return fmt.Errorf("clear snapshot of building %d: %w", building, err)
		}

		return nil
	})
}

// CacheGet implements store.KeyValue.
func (s *Store) CacheGet(ctx context.Context, key string) (string, error) {
	var value string

	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv_cache WHERE key = ?;", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrNotFound
	}

	if err != nil {
		return "", fmt.Errorf("get cache key %q: %w", key, err)
	}

	return value, nil
}

// CacheSet implements store.KeyValue.
func (s *Store) CacheSet(ctx context.Context, key, value string) error {
	ms := s.now().UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO kv_cache(key, value, updated_at_ms)
VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
  value         = excluded.value,
  updated_at_ms = excluded.updated_at_ms;
`, key, value, ms); err != nil {
			return fmt.Errorf("set cache key %q: %w", key, err)
		}

		return nil
	})
}
