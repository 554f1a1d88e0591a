// Package live talks to the database of the live security system: it reads
// building arm states and device lists and writes device reactive states.
//
// Any database/sql driver speaking $n placeholders works; lib/pq ("postgres")
// and pgx ("pgx") are registered by this package.
package live
