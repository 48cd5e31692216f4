package model

import (
	"fmt"
	"strings"
)

// Taxonomy identifies one of the two independent category systems a catalog
// is scraped under.
type Taxonomy int

const (
	// TaxonomyType classifies products by what they are (tea, mushroom, bulk plants).
	TaxonomyType Taxonomy = iota

	// TaxonomyUsage classifies products by what they are used for (digestion, sleep).
	TaxonomyUsage
)

// Taxonomies lists every taxonomy in reconciliation order.
var Taxonomies = []Taxonomy{TaxonomyType, TaxonomyUsage}

// String returns the configuration name of the taxonomy.
func (t Taxonomy) String() string {
	switch t {
	case TaxonomyType:
		return "type"
	case TaxonomyUsage:
		return "usage"
	default:
		return "unknown"
	}
}

// CategoryColumn returns the canonical table column holding this taxonomy's categories.
func (t Taxonomy) CategoryColumn() string {
	switch t {
	case TaxonomyUsage:
		return ColumnUseCategory
	default:
		return ColumnProductCategory
	}
}

// ParseTaxonomy parses a taxonomy name as used in configuration files and flags.
func ParseTaxonomy(s string) (Taxonomy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "type", "product", "product-type":
		return TaxonomyType, nil
	case "usage", "use":
		return TaxonomyUsage, nil
	default:
		return 0, fmt.Errorf("unknown taxonomy %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Taxonomy) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Taxonomy) UnmarshalText(text []byte) error {
	parsed, err := ParseTaxonomy(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
