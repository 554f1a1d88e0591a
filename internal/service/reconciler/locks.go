package reconciler

import (
	"sync"

	"github.com/oshokin/panel-sentinel/internal/domain/panel"
)

// BuildingLocks hands out one mutex per building.
type BuildingLocks struct {
	mu    sync.Mutex
	locks map[panel.BuildingID]*sync.Mutex
}

// NewBuildingLocks returns an empty lock table.
func NewBuildingLocks() *BuildingLocks {
	return &BuildingLocks{
		locks: make(map[panel.BuildingID]*sync.Mutex),
	}
}

// Lock blocks until the building is free and returns the matching unlock.
func (l *BuildingLocks) Lock(building panel.BuildingID) (unlock func()) {
	l.mu.Lock()

	m, ok := l.locks[building]
	if !ok {
		m = new(sync.Mutex)
		l.locks[building] = m
	}

	l.mu.Unlock()

	m.Lock()

	return m.Unlock
}
