package pipeline

import "errors"

var (
	// ErrNoItems is returned when a scrape produced no items at all.
	// The pipeline stops so an empty table never replaces a previous one.
	ErrNoItems = errors.New("no items scraped")

	// ErrNoCanonicalTable is returned by steps that need a reconciled table
	// when none was produced.
	ErrNoCanonicalTable = errors.New("no canonical table")

	// ErrMissingTable is returned when a process run lacks the raw table of
	// an active taxonomy.
	ErrMissingTable = errors.New("missing raw table")
)
