package reconciler

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/oshokin/panel-sentinel/internal/domain/panel"
	"github.com/oshokin/panel-sentinel/internal/repository/store/memory"
)

var (
	errLiveDown      = errors.New("live system unavailable")
	errUnknownDevice = errors.New("device not in building")
)

// fakeGateway is an in-memory live system.
type fakeGateway struct {
	mu sync.Mutex

	live    map[panel.BuildingID]bool
	devices map[panel.BuildingID][]panel.Device

	// writeErrs are returned by the next bulk writes, one per call.
	writeErrs []error
	// liveErr is returned by LiveArmStates when set.
	liveErr error

	writes      [][]panel.DeviceState
	liveReads   int
	deviceReads int
	// beforeWrite runs before every bulk write, outside the mutex.
	beforeWrite func(states []panel.DeviceState)
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		live:    make(map[panel.BuildingID]bool),
		devices: make(map[panel.BuildingID][]panel.Device),
	}
}

func (g *fakeGateway) LiveArmStates(context.Context) (map[panel.BuildingID]bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.liveReads++

	if g.liveErr != nil {
		return nil, g.liveErr
	}

	return maps.Clone(g.live), nil
}

func (g *fakeGateway) Devices(_ context.Context, building panel.BuildingID) ([]panel.Device, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.deviceReads++

	return slices.Clone(g.devices[building]), nil
}

// SetReactiveBulk fails the whole batch when a device is not in the building, like the live UPDATE.
func (g *fakeGateway) SetReactiveBulk(_ context.Context, building panel.BuildingID, states []panel.DeviceState) error {
	if g.beforeWrite != nil {
		g.beforeWrite(states)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.writeErrs) > 0 {
		err := g.writeErrs[0]
		g.writeErrs = g.writeErrs[1:]

		if err != nil {
			return err
		}
	}

	devices := g.devices[building]

	for _, s := range states {
		if !slices.ContainsFunc(devices, func(d panel.Device) bool { return d.ID == s.ID }) {
			return fmt.Errorf("%w: %d", errUnknownDevice, s.ID)
		}
	}

	g.writes = append(g.writes, slices.Clone(states))

	for _, s := range states {
		for i := range devices {
			if devices[i].ID == s.ID {
				devices[i].State = s.State
			}
		}
	}

	return nil
}

// addDevices puts reactive devices into building unless they are already there.
func (g *fakeGateway) addDevices(building panel.BuildingID, ids ...panel.DeviceID) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, id := range ids {
		if slices.ContainsFunc(g.devices[building], func(d panel.Device) bool { return d.ID == id }) {
			continue
		}

		g.devices[building] = append(g.devices[building], panel.Device{ID: id, BuildingID: building, State: panel.Reactive})
	}
}

func (g *fakeGateway) deviceReadCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.deviceReads
}

func (g *fakeGateway) setLive(building panel.BuildingID, isArmed bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.live[building] = isArmed
}

func (g *fakeGateway) writeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.writes)
}

func (g *fakeGateway) deviceStates(building panel.BuildingID) []panel.DeviceState {
	g.mu.Lock()
	defer g.mu.Unlock()

	states := make([]panel.DeviceState, 0, len(g.devices[building]))
	for _, d := range g.devices[building] {
		states = append(states, panel.DeviceState{ID: d.ID, State: d.State})
	}

	return states
}

// fakeSender records alerts.
type fakeSender struct {
	mu     sync.Mutex
	alerts []panel.Alert
	err    error
}

func (s *fakeSender) SendDisarmedAlert(_ context.Context, alert panel.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}

	s.alerts = append(s.alerts, alert)

	return nil
}

func (s *fakeSender) sent() []panel.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.alerts)
}

// countingStore is the memory store with reads counted.
type countingStore struct {
	*memory.Store

	reads atomic.Int64
}

func (s *countingStore) GetBuildingSchedule(ctx context.Context, id panel.BuildingID) (panel.Schedule, error) {
	s.reads.Add(1)

	return s.Store.GetBuildingSchedule(ctx, id)
}

func (s *countingStore) ListIgnoreEntries(ctx context.Context) ([]panel.IgnoreEntry, error) {
	s.reads.Add(1)

	return s.Store.ListIgnoreEntries(ctx)
}

func (s *countingStore) GetSnapshot(ctx context.Context, building panel.BuildingID) (*panel.Snapshot, error) {
	s.reads.Add(1)

	return s.Store.GetSnapshot(ctx, building)
}

// fixture wires an engine and snapshot manager over the memory store.
type fixture struct {
	store     *countingStore
	gateway   *fakeGateway
	cache     *StateCache
	snapshots *SnapshotManager
	engine    *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st := &countingStore{Store: memory.New()}
	gw := newFakeGateway()
	locks := NewBuildingLocks()
	cache := NewStateCache(st)
	snapshots := NewSnapshotManager(st, gw, locks, nil)

	return &fixture{
		store:     st,
		gateway:   gw,
		cache:     cache,
		snapshots: snapshots,
		engine:    NewEngine(cache, st, gw, snapshots, locks, nil),
	}
}

// ignore marks devices of building as ignore-on-disarm and makes sure the building has them.
func (f *fixture) ignore(t *testing.T, building panel.BuildingID, devices ...panel.DeviceID) {
	t.Helper()

	f.gateway.addDevices(building, devices...)

	for _, d := range devices {
		if err := f.store.SetIgnore(context.Background(), panel.IgnoreEntry{
			DeviceID:       d,
			BuildingID:     building,
			IgnoreOnDisarm: true,
		}); err != nil {
			t.Fatal(err)
		}
	}
}

// seedDevices gives building devices 1..n, all reactive except the listed ones.
func (f *fixture) seedDevices(building panel.BuildingID, n int, nonReactive ...panel.DeviceID) {
	f.gateway.mu.Lock()
	defer f.gateway.mu.Unlock()

	devices := make([]panel.Device, 0, n)

	for i := 1; i <= n; i++ {
		id := panel.DeviceID(int(building)*100 + i)
		state := panel.Reactive

		if slices.Contains(nonReactive, id) {
			state = panel.NonReactive
		}

		devices = append(devices, panel.Device{ID: id, BuildingID: building, State: state})
	}

	f.gateway.devices[building] = devices
}
