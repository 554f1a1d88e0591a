package integration

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/panel-sentinel/internal/domain/panel"
	"github.com/oshokin/panel-sentinel/internal/service/client"
)

// TestPanelctl_Commands runs the operator commands against a live server using a settings file.
func TestPanelctl_Commands(t *testing.T) {
	t.Parallel()

	live := newLiveSystem()
	live.add(5, "Warehouse", false,
		panel.Device{ID: 51, BuildingID: 5, Name: "Dock door"},
		panel.Device{ID: 52, BuildingID: 5, Name: "Office"},
	)

	addr := startSentinel(t, live, time.Hour)

	var out bytes.Buffer

	opts := &client.Options{
		ConfigPath: writeClientConfig(t, addr),
		Out:        &out,
	}
	ctx := context.Background()

	disarmed := false
	require.NoError(t, client.Status(ctx, opts, &disarmed))
	require.Contains(t, out.String(), "panel: disarmed")

	out.Reset()
	require.NoError(t, client.Schedule(ctx, opts, 5, ""))
	require.Contains(t, out.String(), "not set")

	out.Reset()
	require.NoError(t, client.Schedule(ctx, opts, 5, "21:00"))
	require.Contains(t, out.String(), "21:00")

	out.Reset()
	require.NoError(t, client.Ignore(ctx, opts, 5, []panel.DeviceID{52}, true))
	require.Contains(t, out.String(), "1 devices saved")

	out.Reset()
	require.NoError(t, client.Reevaluate(ctx, opts, 5))
	require.Contains(t, out.String(), "applied")
	require.Equal(t, panel.NonReactive, live.state(5, 52))

	out.Reset()
	require.NoError(t, client.Buildings(ctx, opts))
	require.Contains(t, out.String(), "Warehouse")

	out.Reset()
	require.NoError(t, client.Devices(ctx, opts, 5, "office", 0, 0))
	require.Contains(t, out.String(), "non-reactive")

	out.Reset()
	require.NoError(t, client.Revert(ctx, opts, 5))
	require.Contains(t, out.String(), "2 devices restored")
	require.Equal(t, panel.Reactive, live.state(5, 52))

	require.Error(t, client.Revert(ctx, opts, 5))
}
