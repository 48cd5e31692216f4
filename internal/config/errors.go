package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate and File.Validate so callers
// can use errors.Is for programmatic handling.
var (
	// ErrNoCatalog is returned when no catalog name is given on the command line.
	ErrNoCatalog = errors.New("no catalog specified: provide a catalog name such as herbal or equipment")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidConcurrency is returned when the number of concurrent category
	// scrapes is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidBatchSize is returned when the number of catalogs processed
	// concurrently is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidDelay is returned when the delay between requests is negative.
	// Use 0 for no delay.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidMaxPages is returned when the page cap is not positive.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one report format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrUnknownCatalog is returned when the requested catalog is not defined
	// in the catalog file.
	ErrUnknownCatalog = errors.New("unknown catalog")

	// ErrEmptyTaxonomy is returned when a taxonomy required by the catalog kind
	// has no category.
	ErrEmptyTaxonomy = errors.New("taxonomy has no category")

	// ErrInvalidCatalog is returned for any other catalog definition error
	// (unknown kind, precedence, grouping, or a category without URL or label).
	ErrInvalidCatalog = errors.New("invalid catalog definition")

	// ErrConfigNotFound is returned when the catalog file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
)
