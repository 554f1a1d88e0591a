package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/oshokin/panel-sentinel/internal/domain/panel"
	"github.com/oshokin/panel-sentinel/internal/repository/store"
)

// ignoreKey identifies an ignore entry.
type ignoreKey struct {
	device   panel.DeviceID
	building panel.BuildingID
}

// Store keeps everything in memory.
type Store struct {
	mu        sync.RWMutex
	schedules map[panel.BuildingID]panel.Schedule
	ignores   map[ignoreKey]panel.IgnoreEntry
	snapshots map[panel.BuildingID]*panel.Snapshot
	kv        map[string]string
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		schedules: make(map[panel.BuildingID]panel.Schedule),
		ignores:   make(map[ignoreKey]panel.IgnoreEntry),
		snapshots: make(map[panel.BuildingID]*panel.Snapshot),
		kv:        make(map[string]string),
	}
}

func (s *Store) GetBuildingSchedule(_ context.Context, id panel.BuildingID) (panel.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	schedule, ok := s.schedules[id]
	if !ok {
		return panel.Schedule{}, store.ErrNotFound
	}

	return schedule, nil
}

func (s *Store) ListBuildingSchedules(_ context.Context) ([]panel.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	schedules := make([]panel.Schedule, 0, len(s.schedules))
	for _, schedule := range s.schedules {
		schedules = append(schedules, schedule)
	}

	slices.SortFunc(schedules, func(a, b panel.Schedule) int {
		return cmp.Compare(a.BuildingID, b.BuildingID)
	})

	return schedules, nil
}

func (s *Store) SetBuildingSchedule(_ context.Context, schedule panel.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.schedules[schedule.BuildingID] = schedule

	return nil
}

func (s *Store) ListIgnoreEntries(_ context.Context) ([]panel.IgnoreEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]panel.IgnoreEntry, 0, len(s.ignores))
	for _, e := range s.ignores {
		entries = append(entries, e)
	}

	slices.SortFunc(entries, func(a, b panel.IgnoreEntry) int {
		return cmp.Or(cmp.Compare(a.BuildingID, b.BuildingID), cmp.Compare(a.DeviceID, b.DeviceID))
	})

	return entries, nil
}

func (s *Store) SetIgnore(_ context.Context, entry panel.IgnoreEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ignores[ignoreKey{device: entry.DeviceID, building: entry.BuildingID}] = entry

	return nil
}

func (s *Store) GetSnapshot(_ context.Context, building panel.BuildingID) (*panel.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.snapshots[building]
	if !ok {
		return nil, store.ErrNotFound
	}

	return snapshot.Clone(), nil
}

func (s *Store) SaveSnapshot(_ context.Context, snapshot *panel.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.snapshots[snapshot.BuildingID]; ok {
		return store.ErrSnapshotExists
	}

	saved := snapshot.Clone()
	if saved.TakenAt.IsZero() {
		saved.TakenAt = time.Now().UTC()
	}

	s.snapshots[snapshot.BuildingID] = saved

	return nil
}

func (s *Store) ClearSnapshot(_ context.Context, building panel.BuildingID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.snapshots, building)

	return nil
}

func (s *Store) CacheGet(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.kv[key]
	if !ok {
		return "", store.ErrNotFound
	}

	return value, nil
}

func (s *Store) CacheSet(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.kv[key] = value

	return nil
}
