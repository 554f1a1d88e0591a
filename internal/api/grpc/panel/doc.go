// Package panel implements the gRPC transport for the panel-sentinel operator API.
//
// The service is described by a hand-written grpc.ServiceDesc whose messages are
// protobuf well-known types, so no generated code is needed. The package adapts
// domain types to those messages and exposes a server that calls into a provided
// business-service interface, plus a matching client.
package panel
