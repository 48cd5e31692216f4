package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/catalogscan/internal/model"
	"github.com/shopspring/decimal"
)

// SimpleWriter outputs human-readable text reports for terminal display.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with nothing to report are shown.
	showEmpty bool

	// verbose adds the per-category pagination table.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the run in human-readable format.
func (w *SimpleWriter) Write(run *model.Run) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, run)
	w.writeCategories(&sb, run)
	for _, s := range summaryOf(run) {
		w.writeSummary(&sb, s)
	}
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// WriteDiff outputs the difference between two runs of a catalog.
func (w *SimpleWriter) WriteDiff(before, after *model.Run, diff *model.CatalogDiff) (int, error) {
	var sb strings.Builder

	writeBanner(&sb, "CATALOG CHANGES")
	sb.WriteString(fmt.Sprintf("Catalog: %s\n", after.Catalog))
	sb.WriteString(fmt.Sprintf("Before:  run %d (%s)\n", before.ID, before.StartedAt.Format(time.DateTime)))
	sb.WriteString(fmt.Sprintf("After:   run %d (%s)\n\n", after.ID, after.StartedAt.Format(time.DateTime)))

	if diff.Empty() {
		sb.WriteString("  No changes\n\n")
		w.writeFooter(&sb)
		return w.output.Write([]byte(sb.String()))
	}

	if len(diff.Added) > 0 || w.showEmpty {
		writeSection(&sb, fmt.Sprintf("ADDED (%d)", len(diff.Added)))
		for _, p := range diff.Added {
			sb.WriteString(fmt.Sprintf("  [+] %s %s\n", p.Name, priceOrDash(p.Price)))
		}
		sb.WriteString("\n")
	}
	if len(diff.Removed) > 0 || w.showEmpty {
		writeSection(&sb, fmt.Sprintf("REMOVED (%d)", len(diff.Removed)))
		for _, p := range diff.Removed {
			sb.WriteString(fmt.Sprintf("  [-] %s %s\n", p.Name, priceOrDash(p.Price)))
		}
		sb.WriteString("\n")
	}
	if len(diff.PriceChanged) > 0 || w.showEmpty {
		writeSection(&sb, fmt.Sprintf("PRICE CHANGES (%d)", len(diff.PriceChanged)))
		for _, c := range diff.PriceChanged {
			sb.WriteString(fmt.Sprintf("  [~] %s: %s -> %s\n", c.Name, dashIfEmpty(c.Before), dashIfEmpty(c.After)))
		}
		sb.WriteString("\n")
	}
	if len(diff.CategoryChanged) > 0 || w.showEmpty {
		writeSection(&sb, fmt.Sprintf("CATEGORY CHANGES (%d)", len(diff.CategoryChanged)))
		for _, c := range diff.CategoryChanged {
			sb.WriteString(fmt.Sprintf("  [~] %s\n", c.Name))
			if c.TypeBefore != c.TypeAfter {
				sb.WriteString(fmt.Sprintf("      %s: %s -> %s\n", model.ColumnProductCategory, c.TypeBefore, c.TypeAfter))
			}
			if c.UsageBefore != c.UsageAfter {
				sb.WriteString(fmt.Sprintf("      %s: %s -> %s\n", model.ColumnUseCategory, c.UsageBefore, c.UsageAfter))
			}
		}
		sb.WriteString("\n")
	}
	w.writeFooter(&sb)
	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, run *model.Run) {
	writeBanner(sb, "CATALOG REPORT")

	products := 0
	if run.Canonical != nil {
		products = run.Canonical.Len()
	}

	sb.WriteString(fmt.Sprintf("Catalog:    %s\n", run.Catalog))
	sb.WriteString(fmt.Sprintf("Source:     %s\n", run.Source))
	sb.WriteString(fmt.Sprintf("Started:    %s\n", run.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Duration:   %s\n", run.Duration().Round(time.Millisecond)))
	sb.WriteString(fmt.Sprintf("Raw items:  %d\n", run.RawCount()))
	sb.WriteString(fmt.Sprintf("Products:   %d\n", products))
	if run.Digest != "" {
		sb.WriteString(fmt.Sprintf("Digest:     %s\n", run.Digest))
	}

	failed := run.FailedCategories()
	switch {
	case run.Error != "":
		sb.WriteString(fmt.Sprintf("Status:     ERROR - %s\n", run.Error))
	case len(failed) > 0:
		sb.WriteString(fmt.Sprintf("Status:     %d category scrape(s) aborted\n", len(failed)))
	default:
		sb.WriteString("Status:     Complete\n")
	}

	sb.WriteString("\n")
}

// writeCategories writes the pagination outcome per category. Only failed
// categories are listed unless the writer is verbose.
func (w *SimpleWriter) writeCategories(sb *strings.Builder, run *model.Run) {
	categories := run.Categories
	if !w.verbose {
		categories = run.FailedCategories()
	}
	if len(categories) == 0 && !w.showEmpty {
		return
	}

	writeSection(sb, "SCRAPED CATEGORIES")

	if len(categories) == 0 {
		sb.WriteString("  No categories\n\n")
		return
	}

	for _, c := range categories {
		sb.WriteString(fmt.Sprintf("  [%s] %s: %d item(s), %d page(s), %d skipped, %s\n",
			c.Taxonomy, c.Label, c.Items, c.Pages, c.SkippedPages, c.State))
		if c.Error != "" {
			sb.WriteString(fmt.Sprintf("      Error: %s\n", c.Error))
		}
	}
	sb.WriteString("\n")
}

// writeSummary writes the category statistics of one taxonomy.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, s model.TaxonomySummary) {
	if len(s.Categories) == 0 && !w.showEmpty {
		return
	}

	writeSection(sb, strings.ToUpper(s.Column))

	if len(s.Categories) == 0 {
		sb.WriteString("  No products\n\n")
		return
	}

	width := 0
	for _, c := range s.Categories {
		width = max(width, len([]rune(c.Label)))
	}
	for _, c := range s.Categories {
		pad := strings.Repeat(" ", width-len([]rune(c.Label)))
		sb.WriteString(fmt.Sprintf("  %s%s  %5d  mean %s\n", c.Label, pad, c.Count, priceOrDash(c.MeanPrice)))
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

func writeBanner(sb *strings.Builder, title string) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat(" ", (70-len(title))/2))
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")
}

func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

func priceOrDash(p decimal.NullDecimal) string {
	return dashIfEmpty(model.FormatPrice(p))
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
