package reconciler

import (
	"context"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/panel-sentinel/internal/domain/panel"
	"github.com/oshokin/panel-sentinel/internal/metrics"
	"github.com/oshokin/panel-sentinel/internal/notify"
	"github.com/oshokin/panel-sentinel/internal/repository/store/memory"
)

// recordingPhases counts calls of both phases and can panic in the first.
type recordingPhases struct {
	mu        sync.Mutex
	order     []string
	ticks     int
	panicking bool
}

func (p *recordingPhases) CheckAll(context.Context) error {
	p.mu.Lock()
	p.order = append(p.order, PhaseAlerts)
	panicking := p.panicking
	p.mu.Unlock()

	if panicking {
		panic("alert sink exploded")
	}

	return nil
}

func (p *recordingPhases) Tick(context.Context, map[panel.BuildingID]bool) TickReport {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.order = append(p.order, PhaseReconcile)
	p.ticks++

	return TickReport{}
}

func (p *recordingPhases) snapshot() ([]string, int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]string(nil), p.order...), p.ticks
}

// TestLoop_RunsImmediatelyThenOnInterval checks cycle cadence and phase order.
func TestLoop_RunsImmediatelyThenOnInterval(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		phases := new(recordingPhases)
		m := metrics.New()
		loop := NewLoop(phases, newFakeGateway(), phases, time.Minute, m)

		ctx, cancel := context.WithCancel(t.Context())
		done := make(chan struct{})

		go func() {
			defer close(done)

			loop.Run(ctx)
		}()

		synctest.Wait()

		order, ticks := phases.snapshot()
		require.Equal(t, []string{PhaseAlerts, PhaseReconcile}, order)
		require.Equal(t, 1, ticks)

		time.Sleep(time.Minute)
		synctest.Wait()

		_, ticks = phases.snapshot()
		require.Equal(t, 2, ticks)

		cancel()
		<-done

		require.InDelta(t, 2, testutil.ToFloat64(m.Cycles), 0)
	})
}

// TestLoop_PanickingPhaseDoesNotStopReconcile isolates the phases.
func TestLoop_PanickingPhaseDoesNotStopReconcile(t *testing.T) {
	t.Parallel()

	phases := &recordingPhases{panicking: true}
	m := metrics.New()
	loop := NewLoop(phases, newFakeGateway(), phases, time.Minute, m)

	require.NotPanics(t, func() { loop.RunCycle(context.Background()) })

	_, ticks := phases.snapshot()
	require.Equal(t, 1, ticks)
	require.InDelta(t, 1, testutil.ToFloat64(m.PhaseErrors.WithLabelValues(PhaseAlerts)), 0)
	require.InDelta(t, 0, testutil.ToFloat64(m.PhaseErrors.WithLabelValues(PhaseReconcile)), 0)
}

// TestLoop_LiveReadErrorSkipsTick reports the failure and leaves the cache alone.
func TestLoop_LiveReadErrorSkipsTick(t *testing.T) {
	t.Parallel()

	phases := new(recordingPhases)
	gw := newFakeGateway()
	gw.liveErr = errLiveDown
	m := metrics.New()
	loop := NewLoop(phases, gw, phases, time.Minute, m)

	loop.RunCycle(context.Background())

	_, ticks := phases.snapshot()
	require.Zero(t, ticks)
	require.InDelta(t, 1, testutil.ToFloat64(m.PhaseErrors.WithLabelValues(PhaseReconcile)), 0)
}

// pendingToken is a publish the broker never acknowledges.
type pendingToken struct {
	done chan struct{}
}

func (t pendingToken) Wait() bool                     { <-t.done; return true }
func (t pendingToken) WaitTimeout(time.Duration) bool { return false }
func (t pendingToken) Done() <-chan struct{}          { return t.done }
func (t pendingToken) Error() error                   { return nil }

// reconnectingClient hands out pending tokens, as paho does while it reconnects.
type reconnectingClient struct {
	token pendingToken
}

func (c reconnectingClient) Publish(string, byte, bool, any) mqtt.Token {
	return c.token
}

// TestLoop_StuckAlertSinkDoesNotStopReconcile bounds the alert phase so reconciliation still runs.
func TestLoop_StuckAlertSinkDoesNotStopReconcile(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx := t.Context()
		st := memory.New()
		gw := newFakeGateway()
		gw.setLive(4, false)
		require.NoError(t, st.SetBuildingSchedule(ctx, panel.Schedule{BuildingID: 4, CheckTime: panel.DefaultCheckTime}))

		// No per-publish timeout: only the phase bound can end the wait.
		sender := notify.NewMQTTSender(reconnectingClient{token: pendingToken{done: make(chan struct{})}}, "alerts", 1, 0)
		checker := NewAlertChecker(st, gw, sender, time.UTC, nil)
		checker.now = func() time.Time { return time.Date(2026, 3, 14, 20, 0, 5, 0, time.UTC) }

		phases := new(recordingPhases)
		m := metrics.New()
		loop := NewLoop(checker, gw, phases, time.Minute, m)

		start := time.Now()
		loop.RunCycle(ctx)

		require.Equal(t, time.Minute, time.Since(start))

		_, ticks := phases.snapshot()
		require.Equal(t, 1, ticks)
		require.InDelta(t, 1, testutil.ToFloat64(m.PhaseErrors.WithLabelValues(PhaseAlerts)), 0)
	})
}
