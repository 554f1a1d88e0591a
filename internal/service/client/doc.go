// Package client implements the panelctl operator commands.
//
// Every command loads the settings, identifies the local actor, connects to
// panel-sentinel over gRPC and prints the result.
package client
