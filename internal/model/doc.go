// Package model defines the core data structures used throughout catalogscan.
//
// This package contains the following main types:
//   - RawItem: An item as extracted from one catalog page
//   - NormalizedItem: A cleaned item carrying its join key and parsed price
//   - CanonicalProduct: The reconciled, deduplicated product record
//   - Table, RawTable, CanonicalTable: Tabular views exchanged with sinks
//   - Run: Per-run state and stage statistics
//
// Multiple packages (crawler, reconcile, pipeline, report, database) share these
// types, so they live in their own package to avoid import cycles.
package model
