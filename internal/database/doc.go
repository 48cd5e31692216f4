// Package database provides SQLite-based run history for catalogscan.
//
// This package implements the CatalogDB, which stores:
//   - Runs with their digest and per-stage statistics
//   - Raw items scraped during each run
//   - The canonical products each run produced
//
// SQLite (via modernc.org/sqlite) keeps the history in a single CGO-free file.
// WAL mode provides good concurrent read performance.
package database
