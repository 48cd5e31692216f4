package reconcile

import (
	"errors"
	"strings"
	"testing"

	"github.com/nao1215/catalogscan/internal/model"
	"github.com/nao1215/catalogscan/internal/normalize"
)

func item(tx model.Taxonomy, name, price, category string) model.NormalizedItem {
	return normalize.Item(model.RawItem{Name: name, PriceText: price, Category: category, Taxonomy: tx})
}

func typeItem(name, price, category string) model.NormalizedItem {
	return item(model.TaxonomyType, name, price, category)
}

func usageItem(name, price, category string) model.NormalizedItem {
	return item(model.TaxonomyUsage, name, price, category)
}

// rows renders a canonical table as "name|price|type|usage" lines.
func rows(table *model.CanonicalTable) []string {
	rendered := table.Table()
	out := make([]string, 0, rendered.Len())
	for _, row := range rendered.Rows {
		out = append(out, strings.Join(row, "|"))
	}
	return out
}

func assertRows(t *testing.T, table *model.CanonicalTable, want ...string) {
	t.Helper()
	got := rows(table)
	if len(got) != len(want) {
		t.Fatalf("expected %d rows, got %d:\n%s", len(want), len(got), strings.Join(got, "\n"))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d = %q, expected %q", i, got[i], want[i])
		}
	}
}

func TestReconcile(t *testing.T) {
	t.Parallel()

	t.Run("matches names across case and whitespace", func(t *testing.T) {
		t.Parallel()

		table, stats := NewReconciler().Reconcile(
			[]model.NormalizedItem{typeItem("Green Tea", "12.50", "Tea")},
			[]model.NormalizedItem{usageItem("green   tea", "12.50", "Digestion")},
		)
		assertRows(t, table, "Green Tea|12.50|Tea|Digestion")
		if stats.Joined != 1 || stats.Products != 1 {
			t.Errorf("unexpected stats: %+v", stats)
		}
	})

	t.Run("unmatched type item gets sentinel usage", func(t *testing.T) {
		t.Parallel()

		table, _ := NewReconciler().Reconcile(
			[]model.NormalizedItem{typeItem("Ginseng Root", "8.00", "Bio")},
			nil,
		)
		assertRows(t, table, "Ginseng Root|8.00|Bio|Others")
	})

	t.Run("unmatched usage item gets sentinel type", func(t *testing.T) {
		t.Parallel()

		table, _ := NewReconciler(WithSentinel("Autres")).Reconcile(
			nil,
			[]model.NormalizedItem{usageItem("Reishi", "20", "Forme")},
		)
		assertRows(t, table, "Reishi|20.00|Autres|Forme")
	})

	t.Run("aggregates categories sorted and joined", func(t *testing.T) {
		t.Parallel()

		table, stats := NewReconciler().Reconcile(
			[]model.NormalizedItem{
				typeItem("Green Tea", "12,50 €", "Tea"),
				typeItem("Green Tea", "12,50 €", "Bio"),
				typeItem("Ginseng Root", "8,00 €", "Bio"),
			},
			[]model.NormalizedItem{
				usageItem("Green Tea", "12,50 €", "Digestion"),
				usageItem("Green Tea", "12,50 €", "Detox"),
			},
		)
		assertRows(t, table,
			"Green Tea|12.50|Bio; Tea|Detox; Digestion",
			"Ginseng Root|8.00|Bio|Others",
		)
		if stats.Joined != 5 {
			t.Errorf("expected 5 joined rows, got %d", stats.Joined)
		}
	})

	t.Run("same name at different prices stays distinct", func(t *testing.T) {
		t.Parallel()

		types := []model.NormalizedItem{
			typeItem("Moxa Roll", "5", "TMC Herbs"),
			typeItem("Moxa Roll", "9", "TMC Herbs"),
		}
		table, _ := NewReconciler().Reconcile(types, nil)
		assertRows(t, table,
			"Moxa Roll|5.00|TMC Herbs|Others",
			"Moxa Roll|9.00|TMC Herbs|Others",
		)

		merged, _ := NewReconciler(WithGroupBy(GroupByNameKey)).Reconcile(types, nil)
		assertRows(t, merged, "Moxa Roll|5.00|TMC Herbs|Others")
	})

	t.Run("type side wins name and price by default", func(t *testing.T) {
		t.Parallel()

		types := []model.NormalizedItem{typeItem("Green Tea", "12", "Tea")}
		usages := []model.NormalizedItem{usageItem("GREEN TEA", "13", "Digestion")}

		table, _ := NewReconciler().Reconcile(types, usages)
		assertRows(t, table, "Green Tea|12.00|Tea|Digestion")

		flipped, _ := NewReconciler(WithPrecedence(PrecedenceUsage)).Reconcile(types, usages)
		assertRows(t, flipped, "GREEN TEA|13.00|Tea|Digestion")
	})

	t.Run("null price falls back to other side", func(t *testing.T) {
		t.Parallel()

		table, _ := NewReconciler().Reconcile(
			[]model.NormalizedItem{typeItem("Green Tea", "ToBeDefined", "Tea")},
			[]model.NormalizedItem{usageItem("Green Tea", "11", "Digestion")},
		)
		assertRows(t, table, "Green Tea|11.00|Tea|Digestion")
	})

	t.Run("null prices group together", func(t *testing.T) {
		t.Parallel()

		table, _ := NewReconciler().Reconcile(
			[]model.NormalizedItem{
				typeItem("Kit", "", "A"),
				typeItem("Kit", "n/a", "B"),
			},
			nil,
		)
		assertRows(t, table, "Kit||A; B|Others")
	})

	t.Run("empty names and labels are handled", func(t *testing.T) {
		t.Parallel()

		table, _ := NewReconciler().Reconcile(
			[]model.NormalizedItem{typeItem("", "1", "")},
			[]model.NormalizedItem{usageItem("  ", "1", "Digestion")},
		)
		assertRows(t, table, "|1.00|Others|Digestion")
	})

	t.Run("exclusions apply before the join", func(t *testing.T) {
		t.Parallel()

		r := NewReconciler(
			WithExclusions(model.TaxonomyType, NewKeywordFilter("Filter", "Boule à thé")),
			WithExclusions(model.TaxonomyUsage, NewKeywordFilter("gua sha", "Roller")),
		)
		table, stats := r.Reconcile(
			[]model.NormalizedItem{
				typeItem("Paper tea filter", "3", "Tea"),
				typeItem("Ashwagandha", "9", "Bio"),
			},
			[]model.NormalizedItem{
				usageItem("Jade Roller", "15", "Beauty"),
				usageItem("Gua Sha stone", "15", "Beauty"),
				usageItem("Ashwagandha", "9", "Fatigue and Energy"),
			},
		)
		assertRows(t, table, "Ashwagandha|9.00|Bio|Fatigue and Energy")
		if stats.Excluded != 3 || stats.TypeRows != 2 || stats.UsageRows != 3 {
			t.Errorf("unexpected stats: %+v", stats)
		}
	})

	t.Run("output keeps first appearance order", func(t *testing.T) {
		t.Parallel()

		table, _ := NewReconciler().Reconcile(
			[]model.NormalizedItem{typeItem("Zeta", "1", "A"), typeItem("Alpha", "1", "A")},
			[]model.NormalizedItem{usageItem("Mu", "1", "U"), usageItem("Zeta", "1", "U")},
		)
		assertRows(t, table,
			"Zeta|1.00|A|U",
			"Alpha|1.00|A|Others",
			"Mu|1.00|Others|U",
		)
	})
}

func TestReconcileInvariants(t *testing.T) {
	t.Parallel()

	types := []model.NormalizedItem{
		typeItem("Green Tea", "12,50", "Tea"),
		typeItem("green tea", "12.5", "Bio"),
		typeItem("Moxa", "", ""),
		typeItem("Moxa", "4", "Kit"),
		typeItem("Jasmine", "6", "Tea"),
	}
	usages := []model.NormalizedItem{
		usageItem("Green  Tea", "14", "Digestion"),
		usageItem("Jasmine", "6", "Calm"),
		usageItem("Jasmine", "6", "Calm"),
		usageItem("Reishi", "30", ""),
	}

	for _, groupBy := range []GroupBy{GroupByNameKeyPrice, GroupByNameKey} {
		t.Run(groupBy.String(), func(t *testing.T) {
			t.Parallel()

			r := NewReconciler(WithGroupBy(groupBy))
			first, _ := r.Reconcile(types, usages)
			second, _ := r.Reconcile(types, usages)
			if first.Digest() != second.Digest() {
				t.Error("reconciliation must be idempotent")
			}

			seen := make(map[string]bool)
			for _, p := range first.Products {
				key := p.Name + "|" + model.PriceKey(p.Price)
				if seen[key] {
					t.Errorf("duplicate product %q", key)
				}
				seen[key] = true

				for _, cats := range [][]string{p.TypeCategories, p.UseCategories} {
					if len(cats) == 0 {
						t.Errorf("%q has an empty category set", p.Name)
					}
					for i, c := range cats {
						if c == "" {
							t.Errorf("%q has an empty category", p.Name)
						}
						if i > 0 && cats[i-1] >= c {
							t.Errorf("%q categories not sorted: %v", p.Name, cats)
						}
					}
				}
			}
		})
	}
}

func TestReconcileTables(t *testing.T) {
	t.Parallel()

	header := model.RawColumns("€")

	t.Run("reconciles raw tables", func(t *testing.T) {
		t.Parallel()

		typeTable := &model.Table{Name: "type", Header: header, Rows: [][]string{{"Green Tea", "12.50", "Tea"}}}
		usageTable := &model.Table{Name: "usage", Header: header, Rows: [][]string{{"green tea", "12.50", "Digestion"}}}
		table, _, err := NewReconciler().ReconcileTables(typeTable, usageTable)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		assertRows(t, table, "Green Tea|12.50|Tea|Digestion")
	})

	t.Run("missing columns are reported for both tables", func(t *testing.T) {
		t.Parallel()

		typeTable := &model.Table{Name: "type", Header: []string{"Product name", "Category"}}
		usageTable := &model.Table{Name: "usage", Header: []string{"Name"}}
		_, _, err := NewReconciler().ReconcileTables(typeTable, usageTable)
		if !errors.Is(err, ErrSchema) {
			t.Fatalf("expected ErrSchema, got %v", err)
		}
		msg := err.Error()
		for _, want := range []string{`"type"`, `"usage"`, "Price (€)", "Product name", "Category"} {
			if !strings.Contains(msg, want) {
				t.Errorf("error %q should mention %s", msg, want)
			}
		}
		var se *SchemaError
		if !errors.As(err, &se) || se.Table != "type" || len(se.Missing) != 1 {
			t.Errorf("unexpected first schema error: %+v", se)
		}
	})

	t.Run("currency changes the required price column", func(t *testing.T) {
		t.Parallel()

		typeTable := &model.Table{Name: "type", Header: header}
		_, _, err := NewReconciler(WithCurrency("$")).ReconcileTables(typeTable, typeTable)
		if !errors.Is(err, ErrSchema) || !strings.Contains(err.Error(), "Price ($)") {
			t.Errorf("expected missing Price ($), got %v", err)
		}
	})

	t.Run("unparsable price is a null, not an error", func(t *testing.T) {
		t.Parallel()

		typeTable := &model.Table{Name: "type", Header: header, Rows: [][]string{{"Kit", "ToBeDefined", "Kit"}}}
		usageTable := &model.Table{Name: "usage", Header: header}
		table, _, err := NewReconciler().ReconcileTables(typeTable, usageTable)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if table.Products[0].Price.Valid {
			t.Error("expected null price")
		}
	})

	t.Run("nil table", func(t *testing.T) {
		t.Parallel()

		_, _, err := NewReconciler().ReconcileTables(nil, &model.Table{Header: header})
		if !errors.Is(err, ErrSchema) {
			t.Errorf("expected ErrSchema, got %v", err)
		}
	})
}

func TestParseOptions(t *testing.T) {
	t.Parallel()

	if p, err := ParsePrecedence("Usage"); err != nil || p != PrecedenceUsage {
		t.Errorf("ParsePrecedence(Usage) = %v, %v", p, err)
	}
	if _, err := ParsePrecedence("price"); err == nil {
		t.Error("expected error for unknown precedence")
	}
	if g, err := ParseGroupBy("name"); err != nil || g != GroupByNameKey {
		t.Errorf("ParseGroupBy(name) = %v, %v", g, err)
	}
	if g, err := ParseGroupBy(""); err != nil || g != GroupByNameKeyPrice {
		t.Errorf("ParseGroupBy('') = %v, %v", g, err)
	}
	var g GroupBy
	if err := g.UnmarshalText([]byte("nope")); err == nil {
		t.Error("expected error for unknown grouping")
	}
}
