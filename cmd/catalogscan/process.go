package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/nao1215/catalogscan/internal/config"
	"github.com/nao1215/catalogscan/internal/model"
	"github.com/nao1215/catalogscan/internal/pipeline"
	"github.com/spf13/cobra"
)

// NewProcessCmd creates the process command.
func NewProcessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process <catalog>",
		Short: "Reconcile raw tables read from disk",
		Long: `Process reconciles raw taxonomy tables that are already on disk instead
of scraping the catalog. Each table is a CSV file with the columns
"Product name", "Price (€)" and "Category" (or "Product category" /
"Use category"). Missing columns abort the run and are all reported.

Without --type and --usage, the raw tables written by the last scan under
the output directory are used.

Examples:
  # Rebuild the canonical table from the last scan's raw tables
  catalogscan process herbal

  # Reconcile tables exported elsewhere
  catalogscan process herbal --type types.csv --usage usages.csv

  # Single-taxonomy catalog
  catalogscan process equipment --type equipment.csv`,
		Args: cobra.ExactArgs(1),
		RunE: runProcessCmd,
	}

	cmd.Flags().StringP("type", "T", "",
		"Raw table of the type taxonomy")
	cmd.Flags().StringP("usage", "U", "",
		"Raw table of the usage taxonomy (dual catalogs only)")

	addCommonFlags(cmd)

	return cmd
}

func runProcessCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildCommonConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Catalogs = args

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	typePath, err := cmd.Flags().GetString("type")
	if err != nil {
		return err
	}
	usagePath, err := cmd.Flags().GetString("usage")
	if err != nil {
		return err
	}

	paths, err := tablePaths(cfg, args[0], typePath, usagePath)
	if err != nil {
		return err
	}

	logger, err := newLogger(cmd, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	return runProcess(ctx, cfg, args[0], paths, cmd.OutOrStdout(), logger)
}

// tablePaths returns the raw table of each taxonomy: the given paths, or
// the files written by a scan under the output directory.
func tablePaths(cfg *config.Config, name, typePath, usagePath string) (map[model.Taxonomy]string, error) {
	if typePath == "" && usagePath == "" {
		if cfg.OutputDir == "" {
			return nil, errors.New("no raw table given: use --type and --usage, or --output-dir with the tables of a previous scan")
		}
		raw, _, _ := pipeline.NewPersistStep(cfg.OutputDir, "", nil).Paths(name)
		return raw, nil
	}

	return map[model.Taxonomy]string{
		model.TaxonomyType:  typePath,
		model.TaxonomyUsage: usagePath,
	}, nil
}

// runProcess reconciles the raw tables at paths and writes the report.
func runProcess(ctx context.Context, cfg *config.Config, name string, paths map[model.Taxonomy]string, out io.Writer, logger *slog.Logger) error {
	catalog, err := cfg.CatalogFile.Catalog(name)
	if err != nil {
		return err
	}

	db, err := openRunStore(cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	p, err := pipeline.ProcessPipeline(name, catalog, paths,
		[]pipeline.Option{pipeline.WithLogger(logger)},
		sinkOptions(cfg, db, logger)...,
	)
	if err != nil {
		return err
	}

	run := model.NewRun(name, model.SourceProcess)
	if err := p.Execute(ctx, run); err != nil {
		return fmt.Errorf("failed to process %s: %w", name, err)
	}

	return writeReports(cfg, out, []*model.Run{run})
}
