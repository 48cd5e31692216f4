package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultTimeout bounds each page request, including reading the body.
	DefaultTimeout = 10 * time.Second

	// DefaultDelay is the minimum interval between two requests to the source.
	// It is shared by all categories scraped concurrently.
	DefaultDelay = 1 * time.Second

	// DefaultConcurrency of 1 scrapes categories one after the other.
	DefaultConcurrency = 1

	// DefaultBatchSize of 1 processes catalogs one after the other.
	DefaultBatchSize = 1

	// DefaultMaxPages caps pagination of categories without a page count.
	DefaultMaxPages = 50

	// DefaultMaxBodySize limits the size of a page body.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultOutputDir is where raw and canonical tables are written.
	DefaultOutputDir = "data"

	// AppName is the application name used for XDG directory paths.
	AppName = "catalogscan"

	// DefaultUserAgent identifies catalogscan in HTTP requests.
	DefaultUserAgent = "catalogscan/1.0 (+https://github.com/nao1215/catalogscan)"
)

// Config holds the run options of catalogscan.
// It is populated from CLI flags and passed through the application
// rather than kept in global state.
type Config struct {
	// Catalogs is the list of catalog names to process, as defined in the
	// catalog file (e.g. "herbal", "equipment").
	Catalogs []string

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// Delay is the minimum interval between two requests.
	Delay time.Duration

	// Concurrency is the number of categories scraped at the same time.
	Concurrency int

	// BatchSize is the number of catalogs processed at the same time.
	BatchSize int

	// MaxPages caps pagination of categories without a page count.
	MaxPages int

	// Retry enables one retry of a page after a transient fetch error.
	Retry bool

	// UserAgent overrides the User-Agent of the catalog file when set.
	UserAgent string

	// MaxBodySize is the maximum page size in bytes. 0 uses the default.
	MaxBodySize int64

	// OutputDir is the directory receiving the raw and canonical tables
	// (CSV and JSON). Empty disables table files.
	OutputDir string

	// JSONReport prints the run report as JSON. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport prints the run report as Markdown with category pie charts.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report. Empty means stdout.
	ReportFile string

	// ConfigFilePath is the path to the catalog file. If empty, the tool
	// searches for .catalogscan in the current and home directories and falls
	// back to the built-in catalogs.
	ConfigFilePath string

	// CatalogFile holds the loaded catalog definitions.
	CatalogFile *File

	// DBDir is the directory of the SQLite run history.
	DBDir string

	// SaveToDB indicates whether runs are recorded in the database.
	SaveToDB bool

	// Verbose enables debug logging.
	Verbose bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Timeout:     DefaultTimeout,
		Delay:       DefaultDelay,
		Concurrency: DefaultConcurrency,
		BatchSize:   DefaultBatchSize,
		MaxPages:    DefaultMaxPages,
		Retry:       true,
		MaxBodySize: DefaultMaxBodySize,
		OutputDir:   DefaultOutputDir,
		DBDir:       XDGDataDir(),
		SaveToDB:    true,
	}
}

// XDGDataDir returns the XDG data directory for catalogscan.
// On Linux: ~/.local/share/catalogscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for catalogscan.
// On Linux: ~/.config/catalogscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the run options and returns the first error found.
func (c *Config) Validate() error {
	if len(c.Catalogs) == 0 {
		return ErrNoCatalog
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.Delay < 0 {
		return ErrInvalidDelay
	}
	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}
