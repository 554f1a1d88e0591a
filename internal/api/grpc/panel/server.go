package panel

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	domain "github.com/oshokin/panel-sentinel/internal/domain/panel"
	"github.com/oshokin/panel-sentinel/internal/logger"
	"github.com/oshokin/panel-sentinel/internal/repository/store"
	"github.com/oshokin/panel-sentinel/internal/service/reconciler"
)

// Service abstracts the business operations the transport layer depends on.
type Service interface {
	Reevaluate(ctx context.Context, actor *domain.Actor, building domain.BuildingID) (reconciler.ReevaluateOutcome, error)
	GetPanelStatus(ctx context.Context) (bool, error)
	SetPanelStatus(ctx context.Context, actor *domain.Actor, isArmed bool) (bool, error)
	GetBuildingTime(ctx context.Context, building domain.BuildingID) (*domain.Schedule, error)
	SetBuildingTime(ctx context.Context, actor *domain.Actor, schedule domain.Schedule) error
	SetIgnored(ctx context.Context, actor *domain.Actor, entries []domain.IgnoreEntry) (int, error)
	RevertSnapshot(ctx context.Context, actor *domain.Actor, building domain.BuildingID) (int, error)
	ListBuildings(ctx context.Context) ([]domain.Building, error)
	ListDevices(
		ctx context.Context,
		building domain.BuildingID,
		search string,
		limit, offset int,
	) ([]domain.DeviceInfo, error)
}

var _ PanelServiceServer = (*Server)(nil)

// Server implements the PanelService gRPC API.
type Server struct {
	// service provides the business logic for panel operations.
	service Service
}

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// Reevaluate applies a building's schedule now.
func (s *Server) Reevaluate(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	building, err := toBuildingID(req.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	outcome, err := s.service.Reevaluate(ctx, actor, building)
	if err != nil {
		return nil, toStatus(ctx, err, "unable to reevaluate building")
	}

	return structOrInternal(structpb.NewStruct(map[string]any{
		FieldBuildingID: int64(building),
		FieldOutcome:    outcome.String(),
	}))
}

// GetPanelStatus returns the operator panel flag.
func (s *Server) GetPanelStatus(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BoolValue, error) {
	isArmed, err := s.service.GetPanelStatus(ctx)
	if err != nil {
		return nil, toStatus(ctx, err, "unable to read panel status")
	}

	return wrapperspb.Bool(isArmed), nil
}

// SetPanelStatus stores the operator panel flag.
func (s *Server) SetPanelStatus(ctx context.Context, req *wrapperspb.BoolValue) (*wrapperspb.BoolValue, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	isArmed, err := s.service.SetPanelStatus(ctx, actor, req.GetValue())
	if err != nil {
		return nil, toStatus(ctx, err, "unable to persist panel status")
	}

	return wrapperspb.Bool(isArmed), nil
}

// GetBuildingTime returns a building's stored check time, null when unset.
func (s *Server) GetBuildingTime(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	building, err := toBuildingID(req.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	schedule, err := s.service.GetBuildingTime(ctx, building)
	if err != nil {
		return nil, toStatus(ctx, err, "unable to read building time")
	}

	return structOrInternal(scheduleStruct(building, schedule))
}

// SetBuildingTime stores a building's check time.
func (s *Server) SetBuildingTime(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	schedule, err := toSchedule(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if err := s.service.SetBuildingTime(ctx, actor, schedule); err != nil {
		return nil, toStatus(ctx, err, "unable to persist building time")
	}

	return structOrInternal(structpb.NewStruct(map[string]any{
		FieldBuildingID: int64(schedule.BuildingID),
		FieldStartTime:  schedule.CheckTime.String(),
		FieldUpdated:    true,
	}))
}

// SetIgnored saves ignore flags in bulk.
func (s *Server) SetIgnored(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	entries, err := toIgnoreEntries(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	saved, err := s.service.SetIgnored(ctx, actor, entries)
	if err != nil {
		return nil, toStatus(ctx, err, "unable to persist ignore status")
	}

	return structOrInternal(structpb.NewStruct(map[string]any{FieldSaved: saved}))
}

// RevertSnapshot restores a building from its snapshot.
func (s *Server) RevertSnapshot(ctx context.Context, req *wrapperspb.Int64Value) (*wrapperspb.Int64Value, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	building, err := toBuildingID(req.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	restored, err := s.service.RevertSnapshot(ctx, actor, building)
	if err != nil {
		return nil, toStatus(ctx, err, "unable to revert snapshot")
	}

	return wrapperspb.Int64(int64(restored)), nil
}

// ListBuildings returns every building with its check time.
func (s *Server) ListBuildings(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	buildings, err := s.service.ListBuildings(ctx)
	if err != nil {
		return nil, toStatus(ctx, err, "unable to list buildings")
	}

	return structOrInternal(buildingsStruct(buildings))
}

// ListDevices pages through a building's devices.
func (s *Server) ListDevices(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	query, err := toDeviceQuery(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	devices, err := s.service.ListDevices(ctx, query.building, query.search, query.limit, query.offset)
	if err != nil {
		return nil, toStatus(ctx, err, "unable to list devices")
	}

	return structOrInternal(devicesStruct(devices))
}

// requireActor returns the caller identity or an InvalidArgument error.
func requireActor(ctx context.Context) (*domain.Actor, error) {
	actor := actorFromContext(ctx)
	if actor == nil {
		return nil, status.Error(codes.InvalidArgument, "actor is required")
	}

	return actor, nil
}

// toStatus maps business errors to gRPC codes. Internal details are logged, not returned.
func toStatus(ctx context.Context, err error, message string) error {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, reconciler.ErrNoSnapshot):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, message)
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, message)
	default:
		logger.ErrorKV(ctx, message, "error", err)

		return status.Error(codes.Internal, message)
	}
}

func structOrInternal(s *structpb.Struct, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, status.Error(codes.Internal, "unable to encode response")
	}

	return s, nil
}
