package model

import (
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/sha3"
)

// Default reconciliation rendering values.
const (
	// DefaultSentinel marks a product with no recorded membership in a taxonomy.
	DefaultSentinel = "Others"

	// DefaultDelimiter joins the sorted categories of a product.
	DefaultDelimiter = "; "
)

// CanonicalProduct is one reconciled product. Category slices are sorted,
// deduplicated and never empty: a product without membership in a taxonomy
// carries the sentinel category instead.
type CanonicalProduct struct {
	Name           string              `json:"name"`
	Price          decimal.NullDecimal `json:"price"`
	TypeCategories []string            `json:"type_categories"`
	UseCategories  []string            `json:"use_categories"`
}

// Categories returns the category set of the given taxonomy.
func (p CanonicalProduct) Categories(t Taxonomy) []string {
	if t == TaxonomyUsage {
		return p.UseCategories
	}
	return p.TypeCategories
}

// MarshalJSON renders the price as a JSON number (or null) instead of the
// quoted string decimal.Decimal produces by default.
func (p CanonicalProduct) MarshalJSON() ([]byte, error) {
	var price any
	if p.Price.Valid {
		price = json.Number(FormatPrice(p.Price))
	}
	return json.Marshal(struct {
		Name           string   `json:"name"`
		Price          any      `json:"price"`
		TypeCategories []string `json:"type_categories"`
		UseCategories  []string `json:"use_categories"`
	}{p.Name, price, p.TypeCategories, p.UseCategories})
}

// CanonicalTable is the output of a reconciliation run.
type CanonicalTable struct {
	// Catalog is the name of the catalog the table was built from.
	Catalog string `json:"catalog"`

	// Currency is the currency symbol used in the price column name.
	Currency string `json:"currency"`

	// Delimiter joins multi-valued categories when the table is rendered.
	Delimiter string `json:"delimiter"`

	// SingleTaxonomy is set for catalogs scraped under the type taxonomy only.
	// Rendered tables then omit the use category column.
	SingleTaxonomy bool `json:"single_taxonomy"`

	// Products holds the reconciled products in first-appearance order.
	Products []CanonicalProduct `json:"products"`
}

// Len returns the number of products.
func (c *CanonicalTable) Len() int {
	return len(c.Products)
}

// Header returns the column names of the rendered table.
func (c *CanonicalTable) Header() []string {
	header := []string{ColumnProductName, PriceColumn(c.Currency), ColumnProductCategory}
	if !c.SingleTaxonomy {
		header = append(header, ColumnUseCategory)
	}
	return header
}

// Join renders a category set with the table delimiter.
func (c *CanonicalTable) Join(categories []string) string {
	delim := c.Delimiter
	if delim == "" {
		delim = DefaultDelimiter
	}
	return strings.Join(categories, delim)
}

// Table renders the canonical table in its persisted tabular form.
func (c *CanonicalTable) Table() *Table {
	t := &Table{
		Name:   c.Catalog,
		Header: c.Header(),
		Rows:   make([][]string, 0, len(c.Products)),
	}
	for _, p := range c.Products {
		row := []string{p.Name, FormatPrice(p.Price), c.Join(p.TypeCategories)}
		if !c.SingleTaxonomy {
			row = append(row, c.Join(p.UseCategories))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Digest returns a SHA3-256 fingerprint of the rendered table. Two runs over
// identical input produce identical digests.
func (c *CanonicalTable) Digest() string {
	h := sha3.New256()
	t := c.Table()
	write := func(row []string) {
		h.Write([]byte(strings.Join(row, "\x1f")))
		h.Write([]byte{'\x1e'})
	}
	write(t.Header)
	for _, row := range t.Rows {
		write(row)
	}
	return hex.EncodeToString(h.Sum(nil))
}
