package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/nao1215/catalogscan/internal/config"
	"github.com/nao1215/catalogscan/internal/model"
	"github.com/nao1215/catalogscan/internal/normalize"
	"github.com/nao1215/catalogscan/internal/reconcile"
	"github.com/nao1215/catalogscan/internal/report"
)

// ScrapeStep paginates every category of a catalog and fills run.Raw.
// Items of a category with include keywords are kept only when their name
// matches one of them.
type ScrapeStep struct {
	batch   *CategoryBatch
	catalog config.CatalogConfig
	logger  *slog.Logger
}

// ScrapeStepOption configures a ScrapeStep.
type ScrapeStepOption func(*ScrapeStep)

// WithScrapeLogger sets a custom logger for the scrape step.
func WithScrapeLogger(logger *slog.Logger) ScrapeStepOption {
	return func(s *ScrapeStep) {
		s.logger = logger
	}
}

// NewScrapeStep creates a scrape step running the categories of catalog
// on the given batch.
func NewScrapeStep(batch *CategoryBatch, catalog config.CatalogConfig, opts ...ScrapeStepOption) *ScrapeStep {
	s := &ScrapeStep{
		batch:   batch,
		catalog: catalog,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *ScrapeStep) Name() string {
	return "scrape"
}

// Jobs returns the category jobs of the catalog in configuration order:
// every type category, then every usage category.
func (s *ScrapeStep) Jobs() []CategoryJob {
	var jobs []CategoryJob
	for _, tx := range s.catalog.ActiveTaxonomies() {
		for _, src := range s.catalog.Taxonomy(tx).Categories {
			jobs = append(jobs, CategoryJob{Taxonomy: tx, Source: src})
		}
	}
	return jobs
}

// Do executes the scrape step.
func (s *ScrapeStep) Do(ctx context.Context, run *model.Run) error {
	jobs := s.Jobs()
	results, err := s.batch.Run(ctx, jobs)
	if err != nil {
		return fmt.Errorf("scrape interrupted: %w", err)
	}

	for i, job := range jobs {
		res := results[i]
		items := res.Items
		filtered := 0
		if include := reconcile.NewKeywordFilter(job.Source.Include...); !include.Empty() {
			kept := make([]model.RawItem, 0, len(items))
			for _, it := range items {
				if include.Includes(it.Name) {
					kept = append(kept, it)
				}
			}
			filtered = len(items) - len(kept)
			items = kept
		}

		stats := res.Stats(job.Source, job.Taxonomy)
		stats.Items = len(items)
		run.Categories = append(run.Categories, stats)
		run.Raw[job.Taxonomy] = append(run.Raw[job.Taxonomy], items...)

		s.logger.Info("category scraped",
			"taxonomy", job.Taxonomy,
			"category", job.Source.Label,
			"pages", res.Pages,
			"items", len(items),
			"filtered", filtered,
			"skipped_pages", res.Skipped,
			"state", res.State,
		)
	}

	if run.RawCount() == 0 {
		return ErrNoItems
	}
	return nil
}

// LoadTablesStep reads the raw taxonomy tables of a process run from CSV
// files and fills run.Raw.
type LoadTablesStep struct {
	paths      map[model.Taxonomy]string
	taxonomies []model.Taxonomy
	currency   string
	logger     *slog.Logger
}

// NewLoadTablesStep creates a step loading the raw table of each active
// taxonomy of catalog from paths.
func NewLoadTablesStep(paths map[model.Taxonomy]string, catalog config.CatalogConfig, logger *slog.Logger) *LoadTablesStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoadTablesStep{
		paths:      paths,
		taxonomies: catalog.ActiveTaxonomies(),
		currency:   catalog.CurrencySymbol(),
		logger:     logger,
	}
}

// Name returns the step name.
func (s *LoadTablesStep) Name() string {
	return "load-tables"
}

// Do executes the load step. Schema errors of all tables are reported together.
func (s *LoadTablesStep) Do(_ context.Context, run *model.Run) error {
	var errs []error
	for _, tx := range s.taxonomies {
		path, ok := s.paths[tx]
		if !ok || path == "" {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingTable, tx))
			continue
		}

		table, err := report.ReadTableFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to read %s table: %w", tx, err))
			continue
		}

		raws, err := reconcile.RawItemsFromTable(table, tx, s.currency)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		run.Raw[tx] = raws

		s.logger.Info("table loaded",
			"taxonomy", tx,
			"path", path,
			"rows", len(raws),
		)
	}
	return errors.Join(errs...)
}

// NormalizeStep turns run.Raw into run.Items.
type NormalizeStep struct {
	logger *slog.Logger
}

// NewNormalizeStep creates a normalize step.
func NewNormalizeStep(logger *slog.Logger) *NormalizeStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &NormalizeStep{logger: logger}
}

// Name returns the step name.
func (s *NormalizeStep) Name() string {
	return "normalize"
}

// Do executes the normalize step.
func (s *NormalizeStep) Do(_ context.Context, run *model.Run) error {
	run.Normalize = run.Normalize[:0]
	for _, tx := range model.Taxonomies {
		raws, ok := run.Raw[tx]
		if !ok {
			continue
		}
		items := normalize.Items(raws)
		run.Items[tx] = items

		stats := normalize.Stats(tx, items)
		run.Normalize = append(run.Normalize, stats)
		s.logger.Info("table normalized",
			"taxonomy", tx,
			"rows", stats.Rows,
			"null_prices", stats.NullPrices,
		)
	}
	return nil
}

// ReconcileStep builds the canonical table from run.Items and fingerprints it.
type ReconcileStep struct {
	reconciler *reconcile.Reconciler
	single     bool
	logger     *slog.Logger
}

// NewReconcileStep creates a reconcile step. Single-taxonomy catalogs are
// reconciled from their type items alone.
func NewReconcileStep(reconciler *reconcile.Reconciler, single bool, logger *slog.Logger) *ReconcileStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconcileStep{reconciler: reconciler, single: single, logger: logger}
}

// Name returns the step name.
func (s *ReconcileStep) Name() string {
	return "reconcile"
}

// Do executes the reconcile step.
func (s *ReconcileStep) Do(_ context.Context, run *model.Run) error {
	var (
		table *model.CanonicalTable
		stats model.ReconcileStats
	)
	if s.single {
		table, stats = s.reconciler.ReconcileSingle(run.Items[model.TaxonomyType])
	} else {
		table, stats = s.reconciler.Reconcile(run.Items[model.TaxonomyType], run.Items[model.TaxonomyUsage])
	}

	run.Canonical = table
	run.Reconcile = stats
	run.Digest = table.Digest()

	s.logger.Info("catalog reconciled",
		"type_rows", stats.TypeRows,
		"usage_rows", stats.UsageRows,
		"excluded", stats.Excluded,
		"joined", stats.Joined,
		"products", stats.Products,
		"digest", run.Digest,
	)
	return nil
}

// SummaryStep computes the per-category statistics of the canonical table.
type SummaryStep struct{}

// NewSummaryStep creates a summary step.
func NewSummaryStep() *SummaryStep {
	return &SummaryStep{}
}

// Name returns the step name.
func (s *SummaryStep) Name() string {
	return "summary"
}

// Do executes the summary step.
func (s *SummaryStep) Do(_ context.Context, run *model.Run) error {
	if run.Canonical == nil {
		return ErrNoCanonicalTable
	}
	run.Summary = model.Summarize(run.Canonical)
	return nil
}

// PersistStep writes the raw tables and the canonical table of a run under
// <dir>/<catalog>/.
type PersistStep struct {
	dir      string
	currency string
	logger   *slog.Logger
}

// NewPersistStep creates a persist step writing under dir.
func NewPersistStep(dir, currency string, logger *slog.Logger) *PersistStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &PersistStep{dir: dir, currency: currency, logger: logger}
}

// Name returns the step name.
func (s *PersistStep) Name() string {
	return "persist"
}

// Paths returns the files a run of catalog is persisted to: one raw table
// per taxonomy, the canonical CSV table and the canonical JSON products.
func (s *PersistStep) Paths(catalog string) (raw map[model.Taxonomy]string, csvPath, jsonPath string) {
	base := filepath.Join(s.dir, catalog)
	raw = make(map[model.Taxonomy]string, len(model.Taxonomies))
	for _, tx := range model.Taxonomies {
		raw[tx] = filepath.Join(base, fmt.Sprintf("%s_%s_raw.csv", catalog, tx))
	}
	return raw, filepath.Join(base, catalog+".csv"), filepath.Join(base, catalog+".json")
}

// Do executes the persist step. Raw tables are written only for scan runs;
// a process run read them from disk.
func (s *PersistStep) Do(_ context.Context, run *model.Run) error {
	if run.Canonical == nil {
		return ErrNoCanonicalTable
	}
	rawPaths, csvPath, jsonPath := s.Paths(run.Catalog)

	if run.Source == model.SourceScan {
		for _, tx := range model.Taxonomies {
			items, ok := run.Items[tx]
			if !ok {
				continue
			}
			table := model.NewRawTable(run.Catalog+" "+tx.String(), s.currency, items)
			if err := report.WriteTableFile(rawPaths[tx], table); err != nil {
				return err
			}
			run.Outputs = append(run.Outputs, rawPaths[tx])
		}
	}

	if err := report.WriteTableFile(csvPath, run.Canonical.Table()); err != nil {
		return err
	}
	run.Outputs = append(run.Outputs, csvPath)

	if err := writeFile(jsonPath, func(f *os.File) error {
		_, err := report.NewJSONWriter(f, report.WithPrettyPrint()).WriteProducts(run.Canonical)
		return err
	}); err != nil {
		return err
	}
	run.Outputs = append(run.Outputs, jsonPath)

	s.logger.Info("tables persisted",
		"catalog", run.Catalog,
		"files", len(run.Outputs),
		"dir", filepath.Dir(csvPath),
	)
	return nil
}

// writeFile creates path and its parent directories and hands the file to write.
func writeFile(path string, write func(*os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.Create(path) //nolint:gosec // path is built from the output directory
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// RunStore stores finished runs. *database.CatalogDB satisfies this interface.
type RunStore interface {
	SaveRun(ctx context.Context, run *model.Run) (int64, error)
}

// SaveRunStep records the run in the run history.
type SaveRunStep struct {
	store  RunStore
	logger *slog.Logger
}

// NewSaveRunStep creates a step saving runs to store.
func NewSaveRunStep(store RunStore, logger *slog.Logger) *SaveRunStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &SaveRunStep{store: store, logger: logger}
}

// Name returns the step name.
func (s *SaveRunStep) Name() string {
	return "save-run"
}

// Do executes the save step. The run is stamped finished before it is stored.
func (s *SaveRunStep) Do(ctx context.Context, run *model.Run) error {
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	id, err := s.store.SaveRun(ctx, run)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	s.logger.Debug("run saved", "catalog", run.Catalog, "run_id", id)
	return nil
}
