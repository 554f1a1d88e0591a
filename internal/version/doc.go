// Package version exposes build metadata injected through ldflags
// and a cobra `version` subcommand shared by panel-sentinel and panelctl.
package version
