package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/catalogscan/internal/model"
)

// JSONWriter outputs runs in JSON format.
// This format is designed for tool integration and programmatic processing.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string

	// version is written into run reports.
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion sets the tool version recorded in run reports.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// JSONReport wraps a run with the tool version and its category summary.
type JSONReport struct {
	Version string                  `json:"version,omitempty"`
	Run     *model.Run              `json:"run"`
	Summary []model.TaxonomySummary `json:"summary,omitempty"`
}

// Write outputs the run with its canonical table and summary.
func (w *JSONWriter) Write(run *model.Run) (int, error) {
	return w.writeJSON(&JSONReport{
		Version: w.version,
		Run:     run,
		Summary: summaryOf(run),
	})
}

// WriteProducts outputs the products of a canonical table as a JSON array.
func (w *JSONWriter) WriteProducts(table *model.CanonicalTable) (int, error) {
	products := table.Products
	if products == nil {
		products = []model.CanonicalProduct{}
	}
	return w.writeJSON(products)
}

// WriteDiff outputs the difference between two runs.
func (w *JSONWriter) WriteDiff(before, after *model.Run, diff *model.CatalogDiff) (int, error) {
	return w.writeJSON(struct {
		Catalog string             `json:"catalog"`
		Before  int64              `json:"before_run"`
		After   int64              `json:"after_run"`
		Diff    *model.CatalogDiff `json:"diff"`
	}{after.Catalog, before.ID, after.ID, diff})
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}
