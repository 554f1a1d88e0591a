package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/oshokin/panel-sentinel/internal/domain/panel"
	"github.com/oshokin/panel-sentinel/internal/logger"
	"github.com/oshokin/panel-sentinel/internal/metrics"
)

// Phase names used in logs and metrics.
const (
	PhaseAlerts    = "alerts"
	PhaseReconcile = "reconcile"
)

// alertPhase is phase one of a cycle.
type alertPhase interface {
	CheckAll(ctx context.Context) error
}

// reconcilePhase is phase two of a cycle.
type reconcilePhase interface {
	Tick(ctx context.Context, live map[panel.BuildingID]bool) TickReport
}

// Loop runs the periodic cycle: alert check first, then reconciliation.
// Cycles run on a single goroutine and never overlap.
type Loop struct {
	alerts    alertPhase
	reader    ArmStateReader
	reconcile reconcilePhase
	interval  time.Duration
	metrics   *metrics.Metrics
}

// NewLoop creates a loop running every interval. Each phase gets at most one interval. m may be nil.
func NewLoop(
	alerts alertPhase,
	reader ArmStateReader,
	reconcile reconcilePhase,
	interval time.Duration,
	m *metrics.Metrics,
) *Loop {
	return &Loop{
		alerts:    alerts,
		reader:    reader,
		reconcile: reconcile,
		interval:  interval,
		metrics:   m,
	}
}

// Run executes a cycle immediately and then on every tick until ctx is done.
func (l *Loop) Run(ctx context.Context) {
	ctx = logger.WithName(ctx, "loop")

	logger.InfoKV(ctx, "Poll loop started", "interval", l.interval.String())

	l.RunCycle(ctx)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Poll loop stopped")

			return
		case <-ticker.C:
			l.RunCycle(ctx)
		}
	}
}

// RunCycle runs both phases once. A failing or panicking phase does not stop the other.
func (l *Loop) RunCycle(ctx context.Context) {
	l.metrics.CycleStarted()

	l.runPhase(ctx, PhaseAlerts, l.alerts.CheckAll)
	l.runPhase(ctx, PhaseReconcile, l.reconcileOnce)
}

func (l *Loop) reconcileOnce(ctx context.Context) error {
	live, err := l.reader.LiveArmStates(ctx)
	if err != nil {
		return fmt.Errorf("read live arm states: %w", err)
	}

	report := l.reconcile.Tick(ctx, live)

	kvs := []any{
		"buildings", len(live),
		"initialized", report.Initialized,
		"unchanged", report.Unchanged,
		"transitioned", report.Transitioned,
		"failed", report.Failed,
	}

	if report.Transitioned > 0 || report.Failed > 0 {
		logger.InfoKV(ctx, "Reconciliation finished", kvs...)
	} else {
		logger.DebugKV(ctx, "Reconciliation finished", kvs...)
	}

	return nil
}

func (l *Loop) runPhase(ctx context.Context, phase string, fn func(context.Context) error) {
	ctx = logger.WithKV(ctx, "phase", phase)

	ctx, cancel := context.WithTimeout(ctx, l.interval)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorKV(ctx, "Phase panicked", "panic", r)
			l.metrics.PhaseFailed(phase)
		}
	}()

	if err := fn(ctx); err != nil {
		logger.ErrorKV(ctx, "Phase failed", "error", err)
		l.metrics.PhaseFailed(phase)
	}
}
