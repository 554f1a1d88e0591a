package reconciler

import (
	"context"
	"errors"

	"github.com/oshokin/panel-sentinel/internal/domain/panel"
	"github.com/oshokin/panel-sentinel/internal/repository/store"
)

// ErrNoSnapshot is returned by RevertBuilding when the building has no snapshot.
var ErrNoSnapshot = errors.New("building has no snapshot")

// ArmStateReader reads live arm states.
type ArmStateReader interface {
	LiveArmStates(ctx context.Context) (map[panel.BuildingID]bool, error)
}

// Gateway is the part of the live system the reconciler reads and writes.
type Gateway interface {
	ArmStateReader
	Devices(ctx context.Context, building panel.BuildingID) ([]panel.Device, error)
	SetReactiveBulk(ctx context.Context, building panel.BuildingID, states []panel.DeviceState) error
}

// SnapshotStore is the persistence needed by SnapshotManager.
type SnapshotStore interface {
	store.Schedules
	store.Ignores
	store.Snapshots
}
