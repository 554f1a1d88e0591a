package sentinel

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/oshokin/panel-sentinel/internal/domain/panel"
)

// fakeLive is an in-memory live system.
type fakeLive struct {
	mu sync.Mutex

	buildings []panel.Building
	armed     map[panel.BuildingID]bool
	devices   map[panel.BuildingID][]panel.Device
	writes    int
}

func newFakeLive() *fakeLive {
	return &fakeLive{
		armed:   make(map[panel.BuildingID]bool),
		devices: make(map[panel.BuildingID][]panel.Device),
	}
}

func (f *fakeLive) addBuilding(id panel.BuildingID, name string, isArmed bool, devices ...panel.Device) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.buildings = append(f.buildings, panel.Building{ID: id, Name: name})
	f.armed[id] = isArmed
	f.devices[id] = devices
}

func (f *fakeLive) setArmed(id panel.BuildingID, isArmed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.armed[id] = isArmed
}

func (f *fakeLive) LiveArmStates(context.Context) (map[panel.BuildingID]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	states := make(map[panel.BuildingID]bool, len(f.armed))
	for id, isArmed := range f.armed {
		states[id] = isArmed
	}

	return states, nil
}

func (f *fakeLive) Devices(_ context.Context, building panel.BuildingID) ([]panel.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return slices.Clone(f.devices[building]), nil
}

func (f *fakeLive) SetReactiveBulk(_ context.Context, building panel.BuildingID, states []panel.DeviceState) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.writes++

	for _, s := range states {
		for i := range f.devices[building] {
			if f.devices[building][i].ID == s.ID {
				f.devices[building][i].State = s.State
			}
		}
	}

	return nil
}

func (f *fakeLive) ListBuildings(context.Context) ([]panel.Building, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return slices.Clone(f.buildings), nil
}

func (f *fakeLive) SearchDevices(
	_ context.Context,
	building panel.BuildingID,
	search string,
	_, _ int,
) ([]panel.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var found []panel.Device

	for _, d := range f.devices[building] {
		if strings.Contains(strings.ToLower(d.Name), strings.ToLower(search)) {
			found = append(found, d)
		}
	}

	return found, nil
}

func (f *fakeLive) state(building panel.BuildingID, device panel.DeviceID) panel.ReactiveState {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, d := range f.devices[building] {
		if d.ID == device {
			return d.State
		}
	}

	return panel.Reactive
}
