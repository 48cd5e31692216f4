// Package pipeline provides a framework for executing catalog run steps in sequence.
//
// A scan run scrapes every category of a catalog, normalizes the raw tables,
// reconciles them into the canonical table, summarizes it and hands it to the
// sinks. A process run loads the raw tables from disk instead of scraping.
// Each stage is implemented as a Step that receives the current run and
// fills in its part.
//
// Category scrapes are independent and run on a bounded worker pool
// (CategoryBatch, built on errgroup). Reconciliation is a barrier: it starts
// only after every category has finished.
package pipeline
