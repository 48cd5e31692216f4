package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/catalogscan/internal/model"
	"github.com/shopspring/decimal"
)

func price(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

// createTestRun creates a reconciled run with sample data for testing.
func createTestRun() *model.Run {
	run := model.NewRun("herbal", model.SourceScan)
	run.StartedAt = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	run.FinishedAt = run.StartedAt.Add(3 * time.Second)
	run.Raw[model.TaxonomyType] = []model.RawItem{
		{Name: "Green Tea", PriceText: "12,50 €", Category: "Teas", Taxonomy: model.TaxonomyType},
	}
	run.Canonical = &model.CanonicalTable{
		Catalog:   "herbal",
		Currency:  "€",
		Delimiter: "; ",
		Products: []model.CanonicalProduct{
			{Name: "Green Tea", Price: price("12.5"), TypeCategories: []string{"Teas"}, UseCategories: []string{"Digestion", "Sleep"}},
			{Name: "Ginseng Root", Price: decimal.NullDecimal{}, TypeCategories: []string{"Roots"}, UseCategories: []string{"Others"}},
		},
	}
	run.Digest = run.Canonical.Digest()
	run.Categories = []model.CategoryStats{
		{Taxonomy: model.TaxonomyType, Label: "Teas", URL: "https://example.com/teas", Pages: 2, Items: 20, State: "done"},
		{Taxonomy: model.TaxonomyUsage, Label: "Sleep", URL: "https://example.com/sleep", State: "aborted", Error: "malformed url"},
	}
	run.Reconcile = model.ReconcileStats{TypeRows: 2, UsageRows: 2, Joined: 3, Products: 2}
	return run
}

func TestCSVWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes canonical table with byte order mark", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewCSVWriter(&buf).Write(createTestRun())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("expected %d bytes reported, got %d", buf.Len(), n)
		}
		if !bytes.HasPrefix(buf.Bytes(), utf8BOM) {
			t.Fatal("expected output to start with a byte order mark")
		}

		want := "Product name,Price (€),Product category,Use category\n" +
			"Green Tea,12.50,Teas,Digestion; Sleep\n" +
			"Ginseng Root,,Roots,Others\n"
		if got := string(buf.Bytes()[len(utf8BOM):]); got != want {
			t.Errorf("unexpected csv:\n%s\nwant:\n%s", got, want)
		}
	})

	t.Run("omits byte order mark when disabled", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		_, err := NewCSVWriter(&buf, WithBOM(false)).WriteTable(&model.Table{Header: []string{"a"}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buf.String() != "a\n" {
			t.Errorf("unexpected output %q", buf.String())
		}
	})

	t.Run("writes nothing without canonical table", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewCSVWriter(&buf).Write(model.NewRun("herbal", model.SourceScan))
		if err != nil || n != 0 || buf.Len() != 0 {
			t.Errorf("expected no output, got n=%d err=%v", n, err)
		}
	})
}

func TestReadTable(t *testing.T) {
	t.Parallel()

	t.Run("round trips through a file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "nested", "type.csv")
		in := model.NewRawTable("type", "€", []model.NormalizedItem{
			{Name: "Green Tea", Price: price("12.5"), Category: "Teas, green"},
			{Name: "Ginseng Root", Category: "Roots"},
		})
		if err := WriteTableFile(path, in); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out, err := ReadTableFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Name != "type.csv" {
			t.Errorf("expected table named after file, got %q", out.Name)
		}
		if out.ColumnIndex(model.ColumnProductName) != 0 {
			t.Errorf("byte order mark leaked into header: %q", out.Header)
		}
		if out.Len() != 2 || out.Rows[0][2] != "Teas, green" || out.Rows[1][1] != "" {
			t.Errorf("unexpected rows: %q", out.Rows)
		}
	})

	t.Run("accepts short rows", func(t *testing.T) {
		t.Parallel()

		out, err := ReadTable(strings.NewReader("a,b,c\n1\n"), "short")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Cell(0, 2) != "" || out.Cell(0, 0) != "1" {
			t.Errorf("unexpected cells: %q", out.Rows)
		}
	})

	t.Run("empty input yields empty table", func(t *testing.T) {
		t.Parallel()

		out, err := ReadTable(strings.NewReader(""), "empty")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(out.Header) != 0 || out.Len() != 0 {
			t.Errorf("expected empty table, got %+v", out)
		}
	})
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes run with summary and version", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint(), WithVersion("1.2.3")).Write(createTestRun()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var got struct {
			Version string `json:"version"`
			Run     struct {
				Catalog   string `json:"catalog"`
				Canonical struct {
					Products []struct {
						Name  string   `json:"name"`
						Price *float64 `json:"price"`
					} `json:"products"`
				} `json:"canonical"`
			} `json:"run"`
			Summary []model.TaxonomySummary `json:"summary"`
		}
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got.Version != "1.2.3" || got.Run.Catalog != "herbal" {
			t.Errorf("unexpected header: %+v", got)
		}
		products := got.Run.Canonical.Products
		if len(products) != 2 || products[0].Price == nil || *products[0].Price != 12.5 || products[1].Price != nil {
			t.Errorf("unexpected products: %+v", products)
		}
		if len(got.Summary) != 2 {
			t.Errorf("expected two taxonomy summaries, got %d", len(got.Summary))
		}
	})

	t.Run("writes empty product list as array", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).WriteProducts(&model.CanonicalTable{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buf.String() != "[]\n" {
			t.Errorf("unexpected output %q", buf.String())
		}
	})
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewMarkdownWriter(&buf).Write(createTestRun()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"# Catalog Report: herbal",
		"## Reconciliation",
		"## Scraped Categories",
		"## Product category",
		"## Use category",
		"```mermaid",
		"pie",
		"12.50",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q", want)
		}
	}
}

func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header and summaries", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestRun()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"CATALOG REPORT", "herbal", "1 category scrape(s) aborted", "PRODUCT CATEGORY", "Digestion"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
		if strings.Contains(output, "example.com/teas") {
			t.Error("successful categories should only be listed in verbose mode")
		}
	})

	t.Run("verbose lists every category", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(createTestRun()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "[type] Teas: 20 item(s), 2 page(s)") {
			t.Errorf("expected verbose category line, got:\n%s", buf.String())
		}
	})

	t.Run("writes diff", func(t *testing.T) {
		t.Parallel()

		before := createTestRun()
		before.ID = 1
		after := createTestRun()
		after.ID = 2
		after.Canonical.Products[0].Price = price("13")
		after.Canonical.Products = append(after.Canonical.Products, model.CanonicalProduct{
			Name: "Nettle", TypeCategories: []string{"Leaves"}, UseCategories: []string{"Others"},
		})

		var buf bytes.Buffer
		diff := model.Diff(before.Canonical, after.Canonical)
		if _, err := NewSimpleWriter(&buf).WriteDiff(before, after, diff); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"ADDED (1)", "[+] Nettle -", "Green Tea: 12.50 -> 13.00"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, output)
			}
		}
		if strings.Contains(output, "REMOVED") {
			t.Error("empty sections should be hidden")
		}

		buf.Reset()
		if _, err := NewSimpleWriter(&buf, WithShowEmpty(true)).WriteDiff(before, after, diff); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "REMOVED (0)") {
			t.Errorf("expected empty section to be shown, got:\n%s", buf.String())
		}
	})
}

type failingWriter struct{}

func (failingWriter) Write(*model.Run) (int, error) {
	return 0, errors.New("disk full")
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()

		var a, b bytes.Buffer
		n, err := NewMultiWriter(NewSimpleWriter(&a), NewJSONWriter(&b)).Write(createTestRun())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a.Len() == 0 || b.Len() == 0 || n != a.Len()+b.Len() {
			t.Errorf("unexpected byte counts: n=%d a=%d b=%d", n, a.Len(), b.Len())
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		var b bytes.Buffer
		_, err := NewMultiWriter(failingWriter{}, NewJSONWriter(&b)).Write(createTestRun())
		if err == nil {
			t.Fatal("expected error")
		}
		if b.Len() != 0 {
			t.Error("writers after a failure should not run")
		}
	})
}
