package integration

import (
	"context"
	"net"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/panel-sentinel/internal/config"
	"github.com/oshokin/panel-sentinel/internal/db"
	"github.com/oshokin/panel-sentinel/internal/domain/panel"
	"github.com/oshokin/panel-sentinel/internal/repository/store/sqlite"
	"github.com/oshokin/panel-sentinel/internal/service/sentinel"
)

// liveSystem is an in-memory live security system shared by the server and the test.
type liveSystem struct {
	mu sync.Mutex

	buildings []panel.Building
	armed     map[panel.BuildingID]bool
	devices   map[panel.BuildingID][]panel.Device
}

func newLiveSystem() *liveSystem {
	return &liveSystem{
		armed:   make(map[panel.BuildingID]bool),
		devices: make(map[panel.BuildingID][]panel.Device),
	}
}

func (l *liveSystem) add(id panel.BuildingID, name string, isArmed bool, devices ...panel.Device) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buildings = append(l.buildings, panel.Building{ID: id, Name: name})
	l.armed[id] = isArmed
	l.devices[id] = devices
}

func (l *liveSystem) setArmed(id panel.BuildingID, isArmed bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.armed[id] = isArmed
}

func (l *liveSystem) state(building panel.BuildingID, device panel.DeviceID) panel.ReactiveState {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, d := range l.devices[building] {
		if d.ID == device {
			return d.State
		}
	}

	return panel.Reactive
}

func (l *liveSystem) LiveArmStates(context.Context) (map[panel.BuildingID]bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	states := make(map[panel.BuildingID]bool, len(l.armed))
	for id, isArmed := range l.armed {
		states[id] = isArmed
	}

	return states, nil
}

func (l *liveSystem) Devices(_ context.Context, building panel.BuildingID) ([]panel.Device, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return slices.Clone(l.devices[building]), nil
}

func (l *liveSystem) SetReactiveBulk(_ context.Context, building panel.BuildingID, states []panel.DeviceState) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, s := range states {
		for i := range l.devices[building] {
			if l.devices[building][i].ID == s.ID {
				l.devices[building][i].State = s.State
			}
		}
	}

	return nil
}

func (l *liveSystem) ListBuildings(context.Context) ([]panel.Building, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return slices.Clone(l.buildings), nil
}

func (l *liveSystem) SearchDevices(
	_ context.Context,
	building panel.BuildingID,
	search string,
	_, _ int,
) ([]panel.Device, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var found []panel.Device

	for _, d := range l.devices[building] {
		if strings.Contains(strings.ToLower(d.Name), strings.ToLower(search)) {
			found = append(found, d)
		}
	}

	return found, nil
}

// startSentinel serves a sentinel backed by an in-memory sqlite store and returns its address.
func startSentinel(t *testing.T, live *liveSystem, interval time.Duration) string {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())

	conn, err := db.OpenMemory(ctx, "integration_"+t.Name())
	require.NoError(t, err)

	writer := db.NewWorker(conn)
	st := sqlite.New(conn, writer)

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := sentinel.New(&sentinel.Dependencies{
		Store:        st,
		Live:         live,
		Location:     time.UTC,
		PollInterval: interval,
	})

	done := make(chan struct{})

	go func() {
		defer close(done)

		_ = s.Serve(ctx, lis) //nolint:errcheck // Serve errors surface as failed client calls.
	}()

	t.Cleanup(func() {
		cancel()
		<-done
		writer.Close()
		_ = conn.Close()
	})

	return lis.Addr().String()
}

// writeClientConfig saves a settings file pointing panelctl at addr.
func writeClientConfig(t *testing.T, addr string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "panel-sentinel.yaml")

	require.NoError(t, config.Save(path, &config.Config{
		ListenAddress: addr,
		Timeout:       5 * time.Second,
		Live:          config.LiveConfig{DSN: "postgres://localhost/live"},
	}))

	return path
}
