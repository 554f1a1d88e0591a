// Package sqlite implements store.Store on top of the local sqlite database.
// Reads go straight to *sql.DB, writes are funneled through db.Worker.
package sqlite
