// Package db opens the local sqlite database, applies the embedded schema
// migrations and serializes writes through a single transaction worker.
package db
