package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/catalogscan/internal/crawler"
	"github.com/nao1215/catalogscan/internal/model"
)

// CategoryJob is one category listing to paginate.
type CategoryJob struct {
	Taxonomy model.Taxonomy
	Source   model.CategorySource
}

// CategoryPaginator paginates one category listing.
// *crawler.Paginator satisfies this interface.
type CategoryPaginator interface {
	Paginate(ctx context.Context, src model.CategorySource, tx model.Taxonomy) (*crawler.Result, error)
}

// batchConfig holds the settings shared by CategoryBatch and CatalogBatch.
type batchConfig struct {
	// concurrency is the maximum number of jobs run at once.
	concurrency int

	logger *slog.Logger
}

// BatchOption configures a CategoryBatch or a CatalogBatch.
type BatchOption func(*batchConfig)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(c *batchConfig) {
		c.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent jobs.
// Default is 1, which runs jobs sequentially in order.
func WithConcurrency(n int) BatchOption {
	return func(c *batchConfig) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

func newBatchConfig(opts []BatchOption) batchConfig {
	c := batchConfig{concurrency: 1}
	for _, opt := range opts {
		opt(&c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// CategoryBatch paginates several categories on a bounded worker pool.
// Categories share nothing but the paginator, whose limiter paces all of them.
type CategoryBatch struct {
	batchConfig

	paginator CategoryPaginator
}

// NewCategoryBatch creates a CategoryBatch over the given paginator.
func NewCategoryBatch(paginator CategoryPaginator, opts ...BatchOption) *CategoryBatch {
	return &CategoryBatch{
		batchConfig: newBatchConfig(opts),
		paginator:   paginator,
	}
}

// Run paginates every job and returns one result per job, in job order.
// A category that aborts does not stop the others; its result carries the
// error. Run itself fails only when ctx is done, in which case the results
// of unfinished jobs are nil.
func (b *CategoryBatch) Run(ctx context.Context, jobs []CategoryJob) ([]*crawler.Result, error) {
	b.logger.Debug("starting category batch",
		"categories", len(jobs),
		"concurrency", b.concurrency,
	)

	startTime := time.Now()

	// Each job writes only its own slot.
	results := make([]*crawler.Result, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i, job := range jobs {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			res, err := b.paginator.Paginate(ctx, job.Source, job.Taxonomy)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if res == nil {
				res = &crawler.Result{State: crawler.StateAborted, Err: err}
			}
			results[i] = res

			if err != nil {
				b.logger.Warn("category aborted",
					"taxonomy", job.Taxonomy,
					"category", job.Source.Label,
					"error", err,
				)
			}
			return nil
		})
	}

	err := g.Wait()

	b.logger.Debug("category batch complete",
		"categories", len(jobs),
		"elapsed", time.Since(startTime),
	)

	return results, err
}

// PipelineFactory builds the pipeline of one catalog.
type PipelineFactory func(catalog string) (*Pipeline, error)

// CatalogBatch runs the pipelines of several catalogs concurrently.
// Each catalog gets a fresh pipeline from the factory.
type CatalogBatch struct {
	batchConfig

	factory PipelineFactory
	source  model.RunSource
}

// NewCatalogBatch creates a CatalogBatch producing runs of the given source.
func NewCatalogBatch(factory PipelineFactory, source model.RunSource, opts ...BatchOption) *CatalogBatch {
	return &CatalogBatch{
		batchConfig: newBatchConfig(opts),
		factory:     factory,
		source:      source,
	}
}

// ProcessBatch runs every catalog and returns its runs in catalog order.
// A failed catalog does not stop the others; its run carries the error.
// The error return is the context error when the batch was cancelled.
func (b *CatalogBatch) ProcessBatch(ctx context.Context, catalogs []string) ([]*model.Run, error) {
	b.logger.Info("starting batch processing",
		"catalogs", len(catalogs),
		"concurrency", b.concurrency,
	)

	startTime := time.Now()
	runs := make([]*model.Run, len(catalogs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i, catalog := range catalogs {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			run := model.NewRun(catalog, b.source)
			runs[i] = run

			p, err := b.factory(catalog)
			if err != nil {
				run.Error = err.Error()
				run.FinishedAt = time.Now()
				b.logger.Warn("catalog skipped", "catalog", catalog, "error", err)
				return nil
			}

			if err := p.Execute(ctx, run); err != nil {
				b.logger.Warn("catalog failed", "catalog", catalog, "error", err)
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
			}
			return nil
		})
	}

	err := g.Wait()

	b.logger.Info("batch processing complete",
		"catalogs", len(catalogs),
		"elapsed", time.Since(startTime),
	)

	return runs, err
}
