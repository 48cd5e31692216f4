package model

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func price(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func TestFormatPrice(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		price    decimal.NullDecimal
		expected string
	}{
		{"null", decimal.NullDecimal{}, ""},
		{"integer", price("8"), "8.00"},
		{"one decimal", price("12.5"), "12.50"},
		{"two decimals", price("12.50"), "12.50"},
		{"extra precision kept", price("0.125"), "0.125"},
		{"trailing zeros kept", price("12.000"), "12.000"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := FormatPrice(tc.price); got != tc.expected {
				t.Errorf("got %q, expected %q", got, tc.expected)
			}
		})
	}
}

func TestPriceKey(t *testing.T) {
	t.Parallel()

	if PriceKey(price("12.5")) != PriceKey(price("12.50")) {
		t.Error("equal amounts should share a key")
	}
	if PriceKey(decimal.NullDecimal{}) == PriceKey(price("0")) {
		t.Error("null must not share a key with zero")
	}
}

func TestCanonicalTable(t *testing.T) {
	t.Parallel()

	table := &CanonicalTable{
		Catalog:  "herbal",
		Currency: "€",
		Products: []CanonicalProduct{
			{Name: "Green Tea", Price: price("12.5"), TypeCategories: []string{"Bio", "Tea"}, UseCategories: []string{"Digestion"}},
			{Name: "Ginseng Root", TypeCategories: []string{"Bio"}, UseCategories: []string{DefaultSentinel}},
		},
	}

	t.Run("renders dual taxonomy rows", func(t *testing.T) {
		t.Parallel()

		rendered := table.Table()
		want := []string{"Product name", "Price (€)", "Product category", "Use category"}
		if strings.Join(rendered.Header, "|") != strings.Join(want, "|") {
			t.Fatalf("unexpected header: %v", rendered.Header)
		}
		if got := strings.Join(rendered.Rows[0], "|"); got != "Green Tea|12.50|Bio; Tea|Digestion" {
			t.Errorf("unexpected first row: %q", got)
		}
		if got := strings.Join(rendered.Rows[1], "|"); got != "Ginseng Root||Bio|Others" {
			t.Errorf("unexpected second row: %q", got)
		}
	})

	t.Run("single taxonomy omits use column", func(t *testing.T) {
		t.Parallel()

		single := *table
		single.SingleTaxonomy = true
		if got := len(single.Table().Header); got != 3 {
			t.Errorf("expected 3 columns, got %d", got)
		}
	})

	t.Run("digest is stable and content sensitive", func(t *testing.T) {
		t.Parallel()

		if table.Digest() != table.Digest() {
			t.Error("digest should be deterministic")
		}
		other := *table
		other.Products = table.Products[:1]
		if other.Digest() == table.Digest() {
			t.Error("digest should change with content")
		}
	})

	t.Run("marshals price as number", func(t *testing.T) {
		t.Parallel()

		data, err := json.Marshal(table.Products)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		if !strings.Contains(string(data), `"price":12.50`) {
			t.Errorf("expected numeric price, got %s", data)
		}
		if !strings.Contains(string(data), `"price":null`) {
			t.Errorf("expected null price, got %s", data)
		}
	})
}

func TestTableMissingColumns(t *testing.T) {
	t.Parallel()

	table := &Table{Header: []string{"Product name", "Category"}}
	missing := table.MissingColumns(RawColumns("€")...)
	if len(missing) != 1 || missing[0] != "Price (€)" {
		t.Errorf("unexpected missing columns: %v", missing)
	}
	if table.Cell(5, 0) != "" {
		t.Error("out of range cell should be empty")
	}
}
