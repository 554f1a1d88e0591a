// Package memory implements store.Store with mutex-guarded maps.
// It backs tests and `panel-sentinel --memory` development runs.
package memory
