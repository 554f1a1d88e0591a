// Package config defines the panel-sentinel settings and provides
// helpers to load, validate and save them in YAML format.
//
// Validate fills in defaults (poll interval, timeouts, timezone, store path)
// so a minimal file only needs the live system DSN.
package config
