package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/catalogscan/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// maxPieSlices caps the number of slices per chart. Smaller categories are
// folded into a single "other" slice.
const maxPieSlices = 12

// MarkdownWriter outputs run summaries in Markdown format.
// Category distributions are rendered as mermaid pie charts.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the run summary in Markdown format.
func (w *MarkdownWriter) Write(run *model.Run) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, run)
	w.writeAlert(md, run)
	w.writeReconcile(md, run)
	w.writeCategories(md, run)
	for _, s := range summaryOf(run) {
		w.writeSummary(md, s)
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, run *model.Run) {
	md.H1("Catalog Report: " + run.Catalog)
	md.PlainText("")

	products := 0
	if run.Canonical != nil {
		products = run.Canonical.Len()
	}
	digest := "-"
	if run.Digest != "" {
		digest = "`" + run.Digest + "`"
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Catalog", run.Catalog},
			{"Source", string(run.Source)},
			{"Started", run.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", run.Duration().Round(time.Millisecond).String()},
			{"Raw Items", strconv.Itoa(run.RawCount())},
			{"Products", strconv.Itoa(products)},
			{"Digest", digest},
		},
	})
	md.PlainText("")
}

// writeAlert writes an alert describing the health of the run.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, run *model.Run) {
	failed := run.FailedCategories()
	switch {
	case run.Error != "":
		md.Cautionf("Run stopped: %s", run.Error)
	case len(failed) > 0:
		md.Warningf("%d category scrape(s) aborted. Their products are missing from this table.", len(failed))
	case skippedPages(run) > 0:
		md.Importantf("%d page(s) were skipped after fetch errors.", skippedPages(run))
	default:
		md.Tip("All categories were scraped without errors.")
	}
	md.PlainText("")
}

// writeReconcile writes the reconciliation counts.
func (w *MarkdownWriter) writeReconcile(md *markdown.Markdown, run *model.Run) {
	md.H2("Reconciliation")
	md.PlainText("")

	rows := make([][]string, 0, len(run.Normalize)+4)
	for _, n := range run.Normalize {
		rows = append(rows, []string{
			n.Taxonomy.String() + " rows",
			strconv.Itoa(n.Rows) + " (" + strconv.Itoa(n.NullPrices) + " without price)",
		})
	}
	rows = append(rows,
		[]string{"Excluded rows", strconv.Itoa(run.Reconcile.Excluded)},
		[]string{"Joined rows", strconv.Itoa(run.Reconcile.Joined)},
		[]string{"Products", strconv.Itoa(run.Reconcile.Products)},
	)

	md.Table(markdown.TableSet{
		Header: []string{"Stage", "Count"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeCategories writes the pagination outcome of every scraped category.
func (w *MarkdownWriter) writeCategories(md *markdown.Markdown, run *model.Run) {
	if len(run.Categories) == 0 {
		return
	}

	md.H2("Scraped Categories")
	md.PlainText("")

	rows := make([][]string, len(run.Categories))
	for i, c := range run.Categories {
		state := c.State
		if c.Error != "" {
			state += ": " + truncateString(c.Error, 60)
		}
		rows[i] = []string{
			c.Taxonomy.String(),
			c.Label,
			strconv.Itoa(c.Pages),
			strconv.Itoa(c.Items),
			strconv.Itoa(c.SkippedPages),
			state,
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Taxonomy", "Category", "Pages", "Items", "Skipped", "State"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeSummary writes the category table and pie chart of one taxonomy.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, s model.TaxonomySummary) {
	md.H2(s.Column)
	md.PlainText("")

	if len(s.Categories) == 0 {
		md.PlainText("No products.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(s.Categories))
	for i, c := range s.Categories {
		mean := "-"
		if c.MeanPrice.Valid {
			mean = c.MeanPrice.Decimal.StringFixed(2)
		}
		rows[i] = []string{c.Label, strconv.Itoa(c.Count), strconv.Itoa(c.Priced), mean}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Category", "Products", "Priced", "Mean Price"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writePieChart(md, s)
}

// writePieChart writes a mermaid pie chart of the product count per category.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s model.TaxonomySummary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Products per "+s.Column),
		piechart.WithShowData(true),
	)

	var rest uint64
	for i, c := range s.Categories {
		if i >= maxPieSlices-1 && len(s.Categories) > maxPieSlices {
			rest += uint64(c.Count) //nolint:gosec // counts are non-negative
			continue
		}
		chart.LabelAndIntValue(c.Label, uint64(c.Count)) //nolint:gosec // counts are non-negative
	}
	if rest > 0 {
		chart.LabelAndIntValue("(other categories)", rest)
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by catalogscan*")
}

// skippedPages returns the number of pages skipped across all categories.
func skippedPages(run *model.Run) int {
	n := 0
	for _, c := range run.Categories {
		n += c.SkippedPages
	}
	return n
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
