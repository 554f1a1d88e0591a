package sentinel

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"

	api "github.com/oshokin/panel-sentinel/internal/api/grpc/panel"
	"github.com/oshokin/panel-sentinel/internal/config"
	"github.com/oshokin/panel-sentinel/internal/domain/panel"
	"github.com/oshokin/panel-sentinel/internal/logger"
	"github.com/oshokin/panel-sentinel/internal/metrics"
	"github.com/oshokin/panel-sentinel/internal/notify"
	"github.com/oshokin/panel-sentinel/internal/repository/store"
	"github.com/oshokin/panel-sentinel/internal/service/reconciler"
)

// Directory lists what the live system knows about buildings and devices.
type Directory interface {
	ListBuildings(ctx context.Context) ([]panel.Building, error)
	SearchDevices(
		ctx context.Context,
		building panel.BuildingID,
		search string,
		limit, offset int,
	) ([]panel.Device, error)
}

// LiveSystem is everything panel-sentinel needs from the live security system.
type LiveSystem interface {
	reconciler.Gateway
	Directory
}

// Dependencies are the collaborators a Sentinel is built from.
type Dependencies struct {
	// Store keeps schedules, ignore lists and snapshots.
	Store store.Store
	// Cache keeps the per-building arm states and the panel flag. Defaults to Store.
	Cache store.KeyValue
	// Live is the live security system.
	Live LiveSystem
	// Sender delivers disarmed alerts. Defaults to logging them.
	Sender notify.Sender
	// Metrics may be nil.
	Metrics *metrics.Metrics
	// Location is the timezone check times are expressed in. Defaults to UTC.
	Location *time.Location
	// PollInterval is the period of the poll loop.
	PollInterval time.Duration
}

// Sentinel is a wired panel-sentinel instance.
type Sentinel struct {
	loop    *reconciler.Loop
	service *service
}

// New wires the reconciler and the operator service over deps.
func New(deps *Dependencies) *Sentinel {
	kv := deps.Cache
	if kv == nil {
		kv = deps.Store
	}

	sender := deps.Sender
	if sender == nil {
		sender = notify.LogSender{}
	}

	interval := deps.PollInterval
	if interval <= 0 {
		interval = config.DefaultPollInterval
	}

	locks := reconciler.NewBuildingLocks()
	cache := reconciler.NewStateCache(kv)
	snapshots := reconciler.NewSnapshotManager(deps.Store, deps.Live, locks, deps.Metrics)
	engine := reconciler.NewEngine(cache, deps.Store, deps.Live, snapshots, locks, deps.Metrics)
	alerts := reconciler.NewAlertChecker(deps.Store, deps.Live, sender, deps.Location, deps.Metrics)

	return &Sentinel{
		loop:    reconciler.NewLoop(alerts, deps.Live, engine, interval, deps.Metrics),
		service: newService(deps.Store, cache, engine, snapshots, deps.Live),
	}
}

// RunOnce runs a single poll cycle.
func (s *Sentinel) RunOnce(ctx context.Context) {
	s.loop.RunCycle(ctx)
}

// Serve runs the poll loop and the operator API on lis until ctx is canceled.
// It returns only after the loop and the API have both stopped.
func (s *Sentinel) Serve(ctx context.Context, lis net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	grpcServer := grpc.NewServer()
	api.RegisterPanelServiceServer(grpcServer, api.NewServer(s.service))

	var wg sync.WaitGroup

	wg.Go(func() {
		s.loop.Run(ctx)
	})

	wg.Go(func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		grpcServer.GracefulStop()
	})

	logger.InfoKV(ctx, "Operator API listening", "listen_address", lis.Addr().String())

	err := grpcServer.Serve(lis)

	// Serve also returns early on a listener failure; stop the loop in that case too.
	cancel()
	wg.Wait()

	if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	logger.Info(ctx, "GRPC server stopped")

	return nil
}
