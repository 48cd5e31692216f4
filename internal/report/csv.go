package report

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/catalogscan/internal/model"
)

// utf8BOM is written at the start of every CSV file so spreadsheet
// applications detect the encoding.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter outputs tables as comma-separated values.
type CSVWriter struct {
	baseWriter

	// bom enables the UTF-8 byte order mark.
	bom bool
}

// CSVWriterOption configures a CSVWriter.
type CSVWriterOption func(*CSVWriter)

// WithBOM controls whether the UTF-8 byte order mark is written.
// Default is true.
func WithBOM(bom bool) CSVWriterOption {
	return func(w *CSVWriter) {
		w.bom = bom
	}
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer, opts ...CSVWriterOption) *CSVWriter {
	w := &CSVWriter{
		baseWriter: newBaseWriter(output),
		bom:        true,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the canonical table of the run.
func (w *CSVWriter) Write(run *model.Run) (int, error) {
	if run.Canonical == nil {
		return 0, nil
	}
	return w.WriteTable(run.Canonical.Table())
}

// WriteTable outputs the header and rows of a table.
func (w *CSVWriter) WriteTable(t *model.Table) (int, error) {
	cw := &countingWriter{w: w.output}
	if w.bom {
		if _, err := cw.Write(utf8BOM); err != nil {
			return cw.n, err
		}
	}

	enc := csv.NewWriter(cw)
	if err := enc.Write(t.Header); err != nil {
		return cw.n, err
	}
	if err := enc.WriteAll(t.Rows); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

// ReadTable parses a CSV table. A leading byte order mark is ignored and
// rows may have fewer cells than the header.
func ReadTable(r io.Reader, name string) (*model.Table, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return nil, err
		}
	}

	dec := csv.NewReader(br)
	dec.FieldsPerRecord = -1

	t := &model.Table{Name: name}
	header, err := dec.Read()
	if errors.Is(err, io.EOF) {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", name, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	t.Header = header

	rows, err := dec.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of %s: %w", name, err)
	}
	t.Rows = rows
	return t, nil
}

// ReadTableFile reads a CSV table from disk. The table is named after the file.
func ReadTableFile(path string) (*model.Table, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadTable(f, filepath.Base(path))
}

// WriteTableFile writes a table to path with a byte order mark, creating
// parent directories as needed.
func WriteTableFile(path string, t *model.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.Create(path) //nolint:gosec // path is built from the output directory
	if err != nil {
		return err
	}

	if _, err := NewCSVWriter(f).WriteTable(t); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
