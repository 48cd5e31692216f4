package model

import "time"

// RunSource identifies how a run obtained its raw tables.
type RunSource string

const (
	// SourceScan marks a run that scraped the catalog over HTTP.
	SourceScan RunSource = "scan"
	// SourceProcess marks a run that reconciled raw tables read from disk.
	SourceProcess RunSource = "process"
)

// CategoryStats records the outcome of paginating one category.
type CategoryStats struct {
	Taxonomy     Taxonomy `json:"taxonomy"`
	Label        string   `json:"label"`
	URL          string   `json:"url"`
	Pages        int      `json:"pages"`
	Items        int      `json:"items"`
	SkippedPages int      `json:"skipped_pages"`
	State        string   `json:"state"`
	Error        string   `json:"error,omitempty"`
}

// NormalizeStats records the outcome of normalizing one taxonomy table.
type NormalizeStats struct {
	Taxonomy   Taxonomy `json:"taxonomy"`
	Rows       int      `json:"rows"`
	NullPrices int      `json:"null_prices"`
}

// ReconcileStats records the counts of one reconciliation.
type ReconcileStats struct {
	TypeRows  int `json:"type_rows"`
	UsageRows int `json:"usage_rows"`
	Excluded  int `json:"excluded"`
	Joined    int `json:"joined"`
	Products  int `json:"products"`
}

// Run is the state of one pipeline execution over a catalog. Pipeline steps
// fill it in order; once the reconcile step has run, Canonical is not
// modified again.
type Run struct {
	// ID is the database identifier, set once the run has been saved.
	ID int64 `json:"id,omitempty"`

	// Catalog is the name of the catalog processed.
	Catalog string `json:"catalog"`

	// Source tells whether the raw tables came from a scrape or from disk.
	Source RunSource `json:"source"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Raw holds the scraped items per taxonomy, in category then page order.
	Raw map[Taxonomy][]RawItem `json:"-"`

	// Items holds the normalized items per taxonomy.
	Items map[Taxonomy][]NormalizedItem `json:"-"`

	// Canonical is the reconciled table.
	Canonical *CanonicalTable `json:"canonical,omitempty"`

	// Digest fingerprints Canonical. See CanonicalTable.Digest.
	Digest string `json:"digest,omitempty"`

	// Summary holds the per-category statistics of Canonical.
	Summary []TaxonomySummary `json:"summary,omitempty"`

	Categories []CategoryStats  `json:"categories,omitempty"`
	Normalize  []NormalizeStats `json:"normalize,omitempty"`
	Reconcile  ReconcileStats   `json:"reconcile"`

	// Outputs lists the files written by the sinks.
	Outputs []string `json:"outputs,omitempty"`

	// Steps lists the pipeline steps performed, in order.
	Steps []string `json:"steps,omitempty"`

	// Error is the message of the error that stopped the run, if any.
	Error string `json:"error,omitempty"`
}

// NewRun creates an empty run for the named catalog.
func NewRun(catalog string, source RunSource) *Run {
	return &Run{
		Catalog:   catalog,
		Source:    source,
		StartedAt: time.Now(),
		Raw:       make(map[Taxonomy][]RawItem),
		Items:     make(map[Taxonomy][]NormalizedItem),
	}
}

// RawCount returns the number of scraped items across all taxonomies.
func (r *Run) RawCount() int {
	n := 0
	for _, items := range r.Raw {
		n += len(items)
	}
	return n
}

// FailedCategories returns the categories whose pagination was aborted.
func (r *Run) FailedCategories() []CategoryStats {
	var failed []CategoryStats
	for _, c := range r.Categories {
		if c.Error != "" {
			failed = append(failed, c)
		}
	}
	return failed
}

// Duration returns the wall time of the run, or 0 if it has not finished.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
