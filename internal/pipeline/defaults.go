package pipeline

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/nao1215/catalogscan/internal/config"
	"github.com/nao1215/catalogscan/internal/crawler"
	"github.com/nao1215/catalogscan/internal/model"
	"github.com/nao1215/catalogscan/internal/reconcile"
)

// DefaultPipelineConfig holds configuration for the default pipelines.
type DefaultPipelineConfig struct {
	// Concurrency is the number of categories scraped at the same time.
	Concurrency int

	// Delay is the minimum interval between two requests to the source.
	Delay time.Duration

	// MaxPages caps pagination of categories without a page count.
	MaxPages int

	// Retry enables one retry of a page after a transient error.
	Retry bool

	// Timeout bounds each page request.
	Timeout time.Duration

	// Site is the request identity (user agent, cookie, headers).
	Site config.SiteConfig

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// OutputDir receives the raw and canonical tables. Empty skips the
	// persist step.
	OutputDir string

	// Store records finished runs. Nil skips the save step.
	Store RunStore

	// Logger is passed to every step.
	Logger *slog.Logger
}

// DefaultPipelineOption configures a DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelineConcurrency sets the number of categories scraped at once.
func WithPipelineConcurrency(n int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Concurrency = n
	}
}

// WithPipelineDelay sets the minimum interval between two requests.
func WithPipelineDelay(delay time.Duration) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Delay = delay
	}
}

// WithPipelineMaxPages sets the page cap of categories without a page count.
func WithPipelineMaxPages(maxPages int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.MaxPages = maxPages
	}
}

// WithPipelineRetry enables or disables the per-page retry.
func WithPipelineRetry(retry bool) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Retry = retry
	}
}

// WithPipelineTimeout sets the per-request timeout.
func WithPipelineTimeout(timeout time.Duration) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Timeout = timeout
	}
}

// WithPipelineSite sets the request identity.
func WithPipelineSite(site config.SiteConfig) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Site = site
	}
}

// WithPipelineMaxBodySize sets the maximum response body size in bytes.
func WithPipelineMaxBodySize(maxBodySize int64) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.MaxBodySize = maxBodySize
	}
}

// WithPipelineOutputDir sets the directory receiving the tables.
func WithPipelineOutputDir(dir string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.OutputDir = dir
	}
}

// WithPipelineStore sets the run history store.
func WithPipelineStore(store RunStore) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Store = store
	}
}

// WithPipelineLogger sets the logger of the steps.
func WithPipelineLogger(logger *slog.Logger) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Logger = logger
	}
}

func newDefaultPipelineConfig(opts []DefaultPipelineOption) *DefaultPipelineConfig {
	cfg := &DefaultPipelineConfig{
		Concurrency: config.DefaultConcurrency,
		Delay:       config.DefaultDelay,
		MaxPages:    config.DefaultMaxPages,
		Retry:       true,
		Timeout:     config.DefaultTimeout,
		MaxBodySize: config.DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return cfg
}

// NewPaginator builds the paginator of a catalog: a fetcher carrying the
// request identity, the catalog's extraction rule and the pacing settings.
func NewPaginator(client *http.Client, catalog config.CatalogConfig, cfg *DefaultPipelineConfig) *crawler.Paginator {
	fetcher := crawler.NewFetcher(client,
		crawler.WithTimeout(cfg.Timeout),
		crawler.WithUserAgent(cfg.Site.UserAgent),
		crawler.WithCookie(cfg.Site.Cookie),
		crawler.WithHeaders(cfg.Site.Headers),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
	)
	return crawler.NewPaginator(fetcher, crawler.NewExtractor(catalog.ExtractionRule()),
		crawler.WithDelay(cfg.Delay),
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithRetry(cfg.Retry),
	)
}

// DefaultPipeline creates the scan pipeline of a catalog:
// scrape, normalize, reconcile, summary, then persist and save-run when an
// output directory and a store are configured.
//
// The first variadic parameter accepts pipeline options (WithLogger, etc).
// The second accepts pipeline config options (WithPipelineDelay, etc).
func DefaultPipeline(
	client *http.Client,
	name string,
	catalog config.CatalogConfig,
	pipelineOpts []Option,
	configOpts ...DefaultPipelineOption,
) (*Pipeline, error) {
	cfg := newDefaultPipelineConfig(configOpts)

	reconciler, err := newReconciler(name, catalog)
	if err != nil {
		return nil, err
	}

	batch := NewCategoryBatch(NewPaginator(client, catalog, cfg),
		WithConcurrency(cfg.Concurrency),
		WithBatchLogger(cfg.Logger),
	)

	p := New(pipelineOpts...)
	p.AddSteps(
		NewScrapeStep(batch, catalog, WithScrapeLogger(cfg.Logger)),
		NewNormalizeStep(cfg.Logger),
		NewReconcileStep(reconciler, catalog.IsSingle(), cfg.Logger),
		NewSummaryStep(),
	)
	addSinks(p, catalog, cfg)
	return p, nil
}

// ProcessPipeline creates the offline pipeline of a catalog: the raw tables
// are read from paths instead of being scraped.
func ProcessPipeline(
	name string,
	catalog config.CatalogConfig,
	paths map[model.Taxonomy]string,
	pipelineOpts []Option,
	configOpts ...DefaultPipelineOption,
) (*Pipeline, error) {
	cfg := newDefaultPipelineConfig(configOpts)

	reconciler, err := newReconciler(name, catalog)
	if err != nil {
		return nil, err
	}

	p := New(pipelineOpts...)
	p.AddSteps(
		NewLoadTablesStep(paths, catalog, cfg.Logger),
		NewNormalizeStep(cfg.Logger),
		NewReconcileStep(reconciler, catalog.IsSingle(), cfg.Logger),
		NewSummaryStep(),
	)
	addSinks(p, catalog, cfg)
	return p, nil
}

func newReconciler(name string, catalog config.CatalogConfig) (*reconcile.Reconciler, error) {
	opts, err := catalog.ReconcilerOptions(name)
	if err != nil {
		return nil, err
	}
	return reconcile.NewReconciler(opts...), nil
}

func addSinks(p *Pipeline, catalog config.CatalogConfig, cfg *DefaultPipelineConfig) {
	if cfg.OutputDir != "" {
		p.AddStep(NewPersistStep(cfg.OutputDir, catalog.CurrencySymbol(), cfg.Logger))
	}
	if cfg.Store != nil {
		p.AddStep(NewSaveRunStep(cfg.Store, cfg.Logger))
	}
}
