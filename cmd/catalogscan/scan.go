package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nao1215/catalogscan/internal/config"
	"github.com/nao1215/catalogscan/internal/database"
	"github.com/nao1215/catalogscan/internal/model"
	"github.com/nao1215/catalogscan/internal/pipeline"
	"github.com/nao1215/catalogscan/internal/report"
	"github.com/spf13/cobra"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [catalog...]",
		Short: "Scrape catalogs and build their canonical tables",
		Long: `Scan scrapes every category listing of a catalog, page by page, and
reconciles the type and usage views into one canonical table:
- Product names are matched after whitespace and case normalization
- A product missing from one taxonomy gets the "Others" category there
- Products with the same name and price are merged, categories joined by "; "

The raw tables (one per taxonomy) and the canonical table are written as CSV
under the output directory, and each run is recorded in the run history.

Examples:
  # Scan the built-in herbal catalog
  catalogscan scan herbal

  # Scan every catalog of the catalog file, two at a time
  catalogscan scan --all --batch 2

  # Scrape categories concurrently with a slower request pace
  catalogscan scan --concurrency 4 --delay 2s herbal

  # Print a Markdown summary with category pie charts
  catalogscan scan --markdown -o report.md herbal

  # Use a custom catalog file
  catalogscan scan -c catalogs.yaml mycatalog

Catalog file (.catalogscan) example:
  catalogs:
    mycatalog:
      kind: dual
      taxonomies:
        type:
          categories:
            - {url: "https://example.com/teas", label: "Teas", pages: 2}
        usage:
          exclude: ["gift card"]
          categories:
            - {url: "https://example.com/sleep", label: "Sleep"}`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	cmd.Flags().BoolP("all", "a", false,
		"Scan every catalog defined in the catalog file")

	// Request flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each page request")
	cmd.Flags().DurationP("delay", "d", config.DefaultDelay,
		"Minimum interval between two requests (0 disables pacing)")
	cmd.Flags().StringP("user-agent", "u", "",
		"User-Agent header (overrides the catalog file)")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum page size in bytes")
	cmd.Flags().Bool("retry", true,
		"Retry a page once after a transient fetch error")

	// Pagination flags
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of categories scraped at the same time")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of catalogs processed at the same time")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages per category without a page count")

	addCommonFlags(cmd)

	return cmd
}

// addCommonFlags registers the flags shared by scan and process.
func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "",
		"Catalog file path (default: .catalogscan in current or home directory)")
	cmd.Flags().StringP("output-dir", "O", config.DefaultOutputDir,
		"Directory receiving the raw and canonical tables (empty disables table files)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// Run history flags
	cmd.Flags().String("db-dir", "",
		"Run history directory (default: XDG data directory)")
	cmd.Flags().Bool("no-db", false,
		"Do not record the run in the run history")
}

func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildScanConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, err := newLogger(cmd, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	return runScan(ctx, cfg, cmd.OutOrStdout(), logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	return getBoolFlag(cmd, "verbose")
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// buildScanConfig creates a Config from the scan command flags.
func buildScanConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := buildCommonConfig(cmd)
	if err != nil {
		return nil, err
	}

	if cfg.Timeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.Delay, err = cmd.Flags().GetDuration("delay"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = cmd.Flags().GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = cmd.Flags().GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.Retry, err = cmd.Flags().GetBool("retry"); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = cmd.Flags().GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = cmd.Flags().GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = cmd.Flags().GetInt("max-pages"); err != nil {
		return nil, err
	}

	all, err := cmd.Flags().GetBool("all")
	if err != nil {
		return nil, err
	}
	if all {
		cfg.Catalogs = cfg.CatalogFile.Names()
	} else {
		cfg.Catalogs = args
	}

	for _, name := range cfg.Catalogs {
		if _, err := cfg.CatalogFile.Catalog(name); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// buildCommonConfig reads the flags registered by addCommonFlags and loads
// the catalog file.
func buildCommonConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	var err error
	if cfg.ConfigFilePath, err = cmd.Flags().GetString("config"); err != nil {
		return nil, err
	}
	cfg.CatalogFile, err = config.Load(cfg.ConfigFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog file: %w", err)
	}

	if cfg.OutputDir, err = cmd.Flags().GetString("output-dir"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("output"); err != nil {
		return nil, err
	}

	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}
	noDB, err := cmd.Flags().GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB

	return cfg, nil
}

// runScan scrapes and reconciles every catalog of cfg and writes their reports.
func runScan(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger) error {
	logger.Info("starting scan",
		"catalogs", cfg.Catalogs,
		"concurrency", cfg.Concurrency,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	db, err := openRunStore(cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	client := &http.Client{}
	factory := func(name string) (*pipeline.Pipeline, error) {
		catalog, err := cfg.CatalogFile.Catalog(name)
		if err != nil {
			return nil, err
		}
		site := cfg.CatalogFile.GetSiteConfig(name)
		if cfg.UserAgent != "" {
			site.UserAgent = cfg.UserAgent
		}
		logger.Debug("request identity",
			"catalog", name,
			"userAgent", site.UserAgent,
			"cookie", site.Cookie,
			"headers", site.Headers,
		)

		opts := append(sinkOptions(cfg, db, logger),
			pipeline.WithPipelineConcurrency(cfg.Concurrency),
			pipeline.WithPipelineDelay(cfg.Delay),
			pipeline.WithPipelineMaxPages(cfg.MaxPages),
			pipeline.WithPipelineRetry(cfg.Retry),
			pipeline.WithPipelineTimeout(cfg.Timeout),
			pipeline.WithPipelineMaxBodySize(cfg.MaxBodySize),
			pipeline.WithPipelineSite(site),
		)
		return pipeline.DefaultPipeline(client, name, catalog,
			[]pipeline.Option{pipeline.WithLogger(logger)}, opts...)
	}

	batch := pipeline.NewCatalogBatch(factory, model.SourceScan,
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	startTime := time.Now()
	runs, err := batch.ProcessBatch(ctx, cfg.Catalogs)
	if err != nil {
		return err
	}
	logger.Info("scan completed",
		"catalogs", len(runs),
		"elapsed", time.Since(startTime).Round(time.Millisecond),
	)

	return writeReports(cfg, out, runs)
}

// sinkOptions returns the pipeline options of the table files and the run
// history. A nil db leaves the save step out.
func sinkOptions(cfg *config.Config, db *database.CatalogDB, logger *slog.Logger) []pipeline.DefaultPipelineOption {
	opts := []pipeline.DefaultPipelineOption{
		pipeline.WithPipelineOutputDir(cfg.OutputDir),
		pipeline.WithPipelineLogger(logger),
	}
	if db != nil {
		opts = append(opts, pipeline.WithPipelineStore(db))
	}
	return opts
}

// openRunStore opens the run history when saving is enabled.
// It returns a nil database otherwise.
func openRunStore(cfg *config.Config, logger *slog.Logger) (*database.CatalogDB, error) {
	if !cfg.SaveToDB {
		return nil, nil
	}
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	logger.Debug("database opened", "path", db.Path())
	return db, nil
}

// writeReports writes the report of every run in the requested format to
// the report file or out. It returns an error when a run failed.
func writeReports(cfg *config.Config, out io.Writer, runs []*model.Run) error {
	output, closeOutput, err := reportOutput(cfg, out)
	if err != nil {
		return err
	}

	writer := reportWriter(cfg, output)
	failed := 0
	for _, run := range runs {
		if _, err := writer.Write(run); err != nil {
			_ = closeOutput()
			return fmt.Errorf("failed to write report of %s: %w", run.Catalog, err)
		}
		if run.Error != "" {
			failed++
		}
	}
	if err := closeOutput(); err != nil {
		return fmt.Errorf("failed to close report file: %w", err)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d catalog run(s) failed", failed, len(runs))
	}
	return nil
}

// reportOutput returns the destination of the reports: the report file when
// one is configured, out otherwise.
func reportOutput(cfg *config.Config, out io.Writer) (io.Writer, func() error, error) {
	if cfg.ReportFile == "" {
		return out, func() error { return nil }, nil
	}

	dir := filepath.Dir(cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// reportWriter returns the run writer of the requested format.
func reportWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(output, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		return report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}
}
