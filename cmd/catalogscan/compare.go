package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/catalogscan/internal/config"
	"github.com/nao1215/catalogscan/internal/database"
	"github.com/nao1215/catalogscan/internal/model"
	"github.com/nao1215/catalogscan/internal/report"
	"github.com/spf13/cobra"
)

// NewCompareCmd creates the compare command.
// This command compares canonical tables stored in the run history.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [catalog]",
		Short: "Compare a catalog with its previous runs",
		Long: `Compare displays the differences between two stored runs of a catalog:
- Products added or removed since the earlier run
- Products whose price changed
- Products whose type or usage categories changed

Products are matched by name and price. A name whose only remaining row
changed price on both sides is reported as a price change; other price
variants are reported as added or removed. By default the latest run is compared with
the one before it; runs that stopped with an error are ignored. Use
'catalogscan scan' to record runs.

Examples:
  # Compare the latest two runs of a catalog
  catalogscan compare herbal

  # List the run history of a catalog
  catalogscan compare --list herbal

  # Compare the latest run with a specific run by ID
  catalogscan compare --with-run-id 5 herbal

  # Output the comparison in JSON format
  catalogscan compare --json herbal

  # List all catalogs in the run history
  catalogscan compare --list-catalogs`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompareCmd,
	}

	cmd.Flags().BoolP("list", "l", false,
		"List the run history of the catalog")
	cmd.Flags().BoolP("list-catalogs", "L", false,
		"List all catalogs in the run history")
	cmd.Flags().Int64P("with-run-id", "i", 0,
		"Compare the latest run with a specific run (use --list to see available IDs)")
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().Bool("all-sections", false,
		"Show every change section, including empty ones")
	cmd.Flags().String("db-dir", "",
		"Run history directory (default: XDG data directory)")

	return cmd
}

func runCompareCmd(cmd *cobra.Command, args []string) error {
	listCatalogs, err := cmd.Flags().GetBool("list-catalogs")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database.
	if !listCatalogs && len(args) == 0 {
		return errors.New("catalog name is required (use --list-catalogs to see stored catalogs)")
	}

	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	out := cmd.OutOrStdout()

	if listCatalogs {
		return listStoredCatalogs(ctx, out, db)
	}

	catalog := args[0]

	listHistory, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	if listHistory {
		return listRunHistory(ctx, out, db, catalog)
	}

	withRunID, err := cmd.Flags().GetInt64("with-run-id")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	allSections, err := cmd.Flags().GetBool("all-sections")
	if err != nil {
		return err
	}
	return runComparison(ctx, out, db, catalog, withRunID, jsonOutput, allSections)
}

// listStoredCatalogs lists every catalog with at least one stored run.
func listStoredCatalogs(ctx context.Context, out io.Writer, db *database.CatalogDB) error {
	catalogs, err := db.ListCatalogs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list catalogs: %w", err)
	}

	if len(catalogs) == 0 {
		fmt.Fprintln(out, "No catalogs found in the run history.")
		fmt.Fprintln(out, "\nUse 'catalogscan scan <catalog>' to record a run.")
		return nil
	}

	fmt.Fprintf(out, "Stored catalogs (%d):\n\n", len(catalogs))
	for _, c := range catalogs {
		fmt.Fprintf(out, "  • %s\n", c)
	}
	fmt.Fprintln(out, "\nUse 'catalogscan compare --list <catalog>' to see the runs of a catalog.")

	return nil
}

// listRunHistory lists the stored runs of a catalog, newest first.
func listRunHistory(ctx context.Context, out io.Writer, db *database.CatalogDB, catalog string) error {
	records, err := db.ListRuns(ctx, catalog)
	if err != nil {
		return fmt.Errorf("failed to get run history: %w", err)
	}

	if len(records) == 0 {
		fmt.Fprintf(out, "No run history found for %s\n", catalog)
		fmt.Fprintln(out, "\nUse 'catalogscan scan' to record a run of this catalog.")
		return nil
	}

	fmt.Fprintf(out, "Run history for %s (%d runs):\n\n", catalog, len(records))
	fmt.Fprintf(out, "  %-6s  %-20s  %-8s  %9s  %8s  %s\n", "ID", "Date", "Source", "Raw items", "Products", "Digest")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 76))

	for _, rec := range records {
		fmt.Fprintf(out, "  %-6d  %-20s  %-8s  %9d  %8d  %s\n",
			rec.ID,
			rec.StartedAt.Local().Format("2006-01-02 15:04:05"),
			rec.Source,
			rec.RawItems,
			rec.Products,
			formatDigest(rec),
		)
	}

	fmt.Fprintln(out, "\nUse 'catalogscan compare <catalog>' to compare the latest two runs.")
	fmt.Fprintln(out, "Use 'catalogscan compare --with-run-id <id> <catalog>' to compare with a specific run.")

	return nil
}

// formatDigest returns the short digest of a run, or its error.
func formatDigest(rec database.RunRecord) string {
	if rec.Error != "" {
		return "ERROR: " + truncate(rec.Error, 40)
	}
	if len(rec.Digest) > 12 {
		return rec.Digest[:12]
	}
	if rec.Digest == "" {
		return "-"
	}
	return rec.Digest
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

// runComparison compares the latest run of a catalog with the previous one
// or with the run withRunID.
func runComparison(ctx context.Context, out io.Writer, db *database.CatalogDB, catalog string, withRunID int64, jsonOutput, allSections bool) error {
	limit := 2
	if withRunID > 0 {
		limit = 1
	}
	runs, err := db.LatestRuns(ctx, catalog, limit)
	if err != nil {
		return fmt.Errorf("failed to get run history: %w", err)
	}
	if len(runs) == 0 {
		return fmt.Errorf("no run history found for %s", catalog)
	}

	current := runs[0]
	var previous *model.Run

	if withRunID > 0 {
		previous, err = db.GetRun(ctx, withRunID)
		if err != nil {
			return fmt.Errorf("failed to get run with ID %d: %w", withRunID, err)
		}
		if previous.Catalog != catalog {
			return fmt.Errorf("run ID %d belongs to %s, not %s", withRunID, previous.Catalog, catalog)
		}
		if previous.ID == current.ID {
			return fmt.Errorf("run ID %d is the latest run of %s; choose an earlier run", withRunID, catalog)
		}
		if previous.Error != "" {
			return fmt.Errorf("run ID %d stopped with an error: %s", withRunID, previous.Error)
		}
	} else {
		if len(runs) < 2 {
			return fmt.Errorf("at least 2 runs are required for comparison (found %d)", len(runs))
		}
		previous = runs[1]
	}

	diff := model.Diff(previous.Canonical, current.Canonical)

	if jsonOutput {
		_, err = report.NewJSONWriter(out, report.WithPrettyPrint()).WriteDiff(previous, current, diff)
		return err
	}
	_, err = report.NewSimpleWriter(out, report.WithShowEmpty(allSections)).WriteDiff(previous, current, diff)
	return err
}
