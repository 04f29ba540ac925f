// Package database provides SQLite-based run history for ingestcas.
//
// This package implements the HistoryDB, which stores:
//   - Runs, one per CLI invocation or scheduled run
//   - Results, one per processed file, page or API
//
// It is a ledger for auditing what was ingested and when. Deduplication
// never consults it: the content-addressable store is the source of truth
// for what is stored.
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. WAL mode lets `history` read while a run is writing
package database
