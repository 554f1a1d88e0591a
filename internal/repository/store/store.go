package store

import (
	"context"
	"errors"

	"github.com/oshokin/panel-sentinel/internal/domain/panel"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrSnapshotExists is returned when a building already has a snapshot.
	ErrSnapshotExists = errors.New("snapshot already exists")
)

// Schedules persists per-building check times.
type Schedules interface {
	// GetBuildingSchedule returns ErrNotFound when the building has no row.
	GetBuildingSchedule(ctx context.Context, id panel.BuildingID) (panel.Schedule, error)
	// ListBuildingSchedules returns all schedules ordered by building id.
	ListBuildingSchedules(ctx context.Context) ([]panel.Schedule, error)
	// SetBuildingSchedule inserts or replaces the building's schedule.
	SetBuildingSchedule(ctx context.Context, schedule panel.Schedule) error
}

// Ignores persists the ignore list.
type Ignores interface {
	// ListIgnoreEntries returns every entry ordered by building and device id.
	ListIgnoreEntries(ctx context.Context) ([]panel.IgnoreEntry, error)
	// SetIgnore inserts or replaces the entry keyed by (device, building).
	SetIgnore(ctx context.Context, entry panel.IgnoreEntry) error
}

// Snapshots persists at most one snapshot per building.
type Snapshots interface {
	// GetSnapshot returns ErrNotFound when the building has no snapshot.
	GetSnapshot(ctx context.Context, building panel.BuildingID) (*panel.Snapshot, error)
	// SaveSnapshot returns ErrSnapshotExists if the building already has one.
	SaveSnapshot(ctx context.Context, snapshot *panel.Snapshot) error
	// ClearSnapshot removes the building's snapshot. Missing snapshots are not an error.
	ClearSnapshot(ctx context.Context, building panel.BuildingID) error
}

// KeyValue is a string key-value area.
type KeyValue interface {
	// CacheGet returns ErrNotFound when the key is absent.
	CacheGet(ctx context.Context, key string) (string, error)
	// CacheSet stores value under key.
	CacheSet(ctx context.Context, key, value string) error
}

// Store combines every persistence contract.
type Store interface {
	Schedules
	Ignores
	Snapshots
	KeyValue
}
