package panel

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "panelsentinel.v1.PanelService"

// Method names of the service.
const (
	MethodReevaluate      = "Reevaluate"
	MethodGetPanelStatus  = "GetPanelStatus"
	MethodSetPanelStatus  = "SetPanelStatus"
	MethodGetBuildingTime = "GetBuildingTime"
	MethodSetBuildingTime = "SetBuildingTime"
	MethodSetIgnored      = "SetIgnored"
	MethodRevertSnapshot  = "RevertSnapshot"
	MethodListBuildings   = "ListBuildings"
	MethodListDevices     = "ListDevices"
)

// PanelServiceServer is the server API of the operator service.
type PanelServiceServer interface {
	Reevaluate(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error)
	GetPanelStatus(ctx context.Context, req *emptypb.Empty) (*wrapperspb.BoolValue, error)
	SetPanelStatus(ctx context.Context, req *wrapperspb.BoolValue) (*wrapperspb.BoolValue, error)
	GetBuildingTime(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error)
	SetBuildingTime(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	SetIgnored(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RevertSnapshot(ctx context.Context, req *wrapperspb.Int64Value) (*wrapperspb.Int64Value, error)
	ListBuildings(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	ListDevices(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes PanelService for grpc.Server.RegisterService.
//
//nolint:gochecknoglobals // Mirrors the descriptor protoc-gen-go-grpc would emit.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PanelServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodReevaluate, Handler: unaryHandler(MethodReevaluate, PanelServiceServer.Reevaluate)},
		{MethodName: MethodGetPanelStatus, Handler: unaryHandler(MethodGetPanelStatus, PanelServiceServer.GetPanelStatus)},
		{MethodName: MethodSetPanelStatus, Handler: unaryHandler(MethodSetPanelStatus, PanelServiceServer.SetPanelStatus)},
		{MethodName: MethodGetBuildingTime, Handler: unaryHandler(MethodGetBuildingTime, PanelServiceServer.GetBuildingTime)},
		{MethodName: MethodSetBuildingTime, Handler: unaryHandler(MethodSetBuildingTime, PanelServiceServer.SetBuildingTime)},
		{MethodName: MethodSetIgnored, Handler: unaryHandler(MethodSetIgnored, PanelServiceServer.SetIgnored)},
		{MethodName: MethodRevertSnapshot, Handler: unaryHandler(MethodRevertSnapshot, PanelServiceServer.RevertSnapshot)},
		{MethodName: MethodListBuildings, Handler: unaryHandler(MethodListBuildings, PanelServiceServer.ListBuildings)},
		{MethodName: MethodListDevices, Handler: unaryHandler(MethodListDevices, PanelServiceServer.ListDevices)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "panelsentinel/v1/panel.proto",
}

// RegisterPanelServiceServer registers srv on s.
func RegisterPanelServiceServer(s grpc.ServiceRegistrar, srv PanelServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// FullMethod returns the "/service/method" path of a method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// unaryHandler adapts a typed server method to grpc.MethodHandler, honoring interceptors.
func unaryHandler[Req, Resp any](
	method string,
	call func(PanelServiceServer, context.Context, *Req) (*Resp, error),
) grpc.MethodHandler {
	fullMethod := FullMethod(method)

	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}

		server, _ := srv.(PanelServiceServer)

		if interceptor == nil {
			return call(server, ctx, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}

		handler := func(ctx context.Context, req any) (any, error) {
			typed, _ := req.(*Req)

			return call(server, ctx, typed)
		}

		return interceptor(ctx, in, info, handler)
	}
}
